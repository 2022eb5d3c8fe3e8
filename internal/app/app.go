package app

import (
	"context"
	"fmt"
	"time"

	"qrstudio/internal/auth"
	"qrstudio/internal/cache"
	"qrstudio/internal/config"
	"qrstudio/internal/logging"
	"qrstudio/internal/render"
	"qrstudio/internal/repo"
	"qrstudio/internal/upload"
	"qrstudio/migrations"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg    config.Config
	log    logging.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
	router *gin.Engine
}

func New(ctx context.Context, cfg config.Config, log logging.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	if err := runMigrations(cfg.PG.DSN); err != nil {
		return nil, err
	}
	log.Info(ctx, "migrations applied")

	db, err := newPostgres(ctx, cfg.PG.DSN)
	if err != nil {
		return nil, err
	}
	a.db = db

	rdb, err := newRedis(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.redis = rdb

	uploads, err := newUploadStore(ctx, cfg)
	if err != nil {
		a.redis.Close()
		a.db.Close()
		return nil, err
	}

	a.router = NewRouter(cfg, Deps{
		Users:     repo.NewPGUserRepo(db),
		Creations: repo.NewPGCreationRepo(db),
		Sessions:  auth.NewStore(rdb, cfg.Session.TTL.Duration()),
		Cache:     cache.NewCreationCache(rdb, cfg.Redis.DefaultTTL.Duration()),
		Renderer:  render.NewQRRenderer(cfg.QR.MinSize, cfg.QR.MaxSize),
		Uploads:   uploads,
		Logger:    log,
	})
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn(ctx, "redis close", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}

func newPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newUploadStore(ctx context.Context, cfg config.Config) (upload.Store, error) {
	if cfg.Upload.Backend == config.UploadBackendS3 {
		return upload.NewS3Store(ctx, upload.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	}
	return upload.NewDiskStore(cfg.Upload.Dir)
}

// runMigrations applies the embedded migrations once, before the pool is
// handed to any request path.
func runMigrations(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func newCORS(cfg config.Config) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Cookie"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition", "X-Creation-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// requestLogger logs one line per request through log.
func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if id := auth.UserIDFromContext(c); id != 0 {
			args = append(args, "user_id", id)
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}
		log.Info(c.Request.Context(), "http request", args...)
	}
}
