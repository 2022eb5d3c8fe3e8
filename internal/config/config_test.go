package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("PG_DSN", "postgres://qr:qr@localhost:5432/qr?sslmode=disable")
	t.Setenv("REDIS_ADDR", "localhost:6379")
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	setBase(t)
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout.Duration())
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL.Duration())
	assert.Equal(t, UploadBackendDisk, cfg.Upload.Backend)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxFileBytes)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxPhotoBytes)
	assert.Equal(t, QRConfig{ThumbnailSize: 200, MinSize: 64, MaxSize: 2048}, cfg.QR)
	assert.False(t, cfg.HTTP.TrustProxy)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.CORSOrigins)
}

func TestLoad_DurationsFromEnv(t *testing.T) {
	setBase(t)
	t.Setenv("HTTP_READ_TIMEOUT", "15")
	t.Setenv("HTTP_WRITE_TIMEOUT", "2m")
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout.Duration())
	assert.Equal(t, 2*time.Minute, cfg.HTTP.WriteTimeout.Duration())
	assert.Equal(t, 60*time.Second, cfg.HTTP.IdleTimeout.Duration())
	assert.Equal(t, 60*time.Second, cfg.Redis.DefaultTTL.Duration())

	t.Setenv("SESSION_TTL", "whenever")
	_, err = Load(noEnvFile(t))
	assert.ErrorContains(t, err, "SESSION_TTL")
}

func TestLoad_RedisURLOverridesAddr(t *testing.T) {
	setBase(t)
	t.Setenv("REDIS_URL", "rediss://default:pw@cache.internal:35459/2")
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:35459", cfg.Redis.Addr)
	assert.Equal(t, "pw", cfg.Redis.Password)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_S3NeedsBucket(t *testing.T) {
	setBase(t)
	t.Setenv("UPLOAD_BACKEND", "s3")
	_, err := Load(noEnvFile(t))
	assert.ErrorContains(t, err, "S3_BUCKET")

	t.Setenv("S3_BUCKET", "qr-uploads")
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "qr-uploads", cfg.S3.Bucket)

	t.Setenv("UPLOAD_BACKEND", "ftp")
	_, err = Load(noEnvFile(t))
	assert.Error(t, err)
}

func TestLoad_BadQRRange(t *testing.T) {
	setBase(t)
	t.Setenv("QR_MIN_SIZE", "500")
	t.Setenv("QR_MAX_SIZE", "100")
	_, err := Load(noEnvFile(t))
	assert.ErrorContains(t, err, "QR_MIN_SIZE")
}

func TestLoad_EnvFile(t *testing.T) {
	setBase(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("QR_THUMBNAIL_SIZE=150\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("QR_THUMBNAIL_SIZE") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.QR.ThumbnailSize)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"10", 10 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{`"30s"`, 30 * time.Second, false},
		{"", 0, true},
		{"soon", 0, true},
	}
	for _, tc := range tests {
		got, err := parseDuration(tc.in)
		if tc.err {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseRedisURL(t *testing.T) {
	_, _, _, err := parseRedisURL("http://host:1")
	assert.Error(t, err)
	addr, pw, db, err := parseRedisURL("redis://host:6379")
	require.NoError(t, err)
	assert.Equal(t, "host:6379", addr)
	assert.Empty(t, pw)
	assert.Zero(t, db)
}
