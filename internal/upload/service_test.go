package upload

import (
	"context"
	"io"
	"strings"
	"testing"

	"qrstudio/internal/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, limits Limits) (*Service, *DiskStore) {
	t.Helper()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return NewService(store, limits, logging.Nop()), store
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestSaveFile_RoundTrip(t *testing.T) {
	svc, _ := newService(t, Limits{})
	ctx := context.Background()
	id, err := svc.SaveFile(ctx, Incoming{Name: "menu.pdf", ContentType: "application/pdf", Size: 5, Body: strings.NewReader("%PDF-")})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	rc, meta, err := svc.OpenFile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", readAll(t, rc))
	assert.Equal(t, "menu.pdf", meta.Name)
	assert.Equal(t, "application/pdf", meta.ContentType)
	assert.Equal(t, int64(5), meta.Size)
}

func TestSaveFile_Rejects(t *testing.T) {
	svc, _ := newService(t, Limits{MaxFileBytes: 4})
	ctx := context.Background()

	_, err := svc.SaveFile(ctx, Incoming{Name: "a.exe", ContentType: "application/x-msdownload", Size: 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.SaveFile(ctx, Incoming{Name: "a.png", ContentType: "image/png", Size: 10, Body: strings.NewReader("0123456789")})
	assert.ErrorIs(t, err, ErrTooLarge)

	// declared size lies
	_, err = svc.SaveFile(ctx, Incoming{Name: "a.png", ContentType: "image/png", Size: 1, Body: strings.NewReader("0123456789")})
	assert.ErrorIs(t, err, ErrTooLarge)

	// same lie over a body that cannot be measured up front
	_, err = svc.SaveFile(ctx, Incoming{Name: "a.png", ContentType: "image/png", Size: 1, Body: io.MultiReader(strings.NewReader("0123456789"))})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = svc.SaveFile(ctx, Incoming{Name: "a.png", ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestSaveFile_UsesMeasuredSize(t *testing.T) {
	svc, _ := newService(t, Limits{})
	ctx := context.Background()
	id, err := svc.SaveFile(ctx, Incoming{Name: "a.pdf", ContentType: "application/pdf", Size: 1, Body: strings.NewReader("%PDF-1.4")})
	require.NoError(t, err)
	rc, meta, err := svc.OpenFile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", readAll(t, rc))
	assert.Equal(t, int64(8), meta.Size)
}

func TestSaveProfilePhoto(t *testing.T) {
	svc, _ := newService(t, Limits{})
	ctx := context.Background()
	name, err := svc.SaveProfilePhoto(ctx, Incoming{Name: "Me.JPG", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("jpg")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "profile_"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	rc, meta, err := svc.OpenProfilePhoto(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "jpg", readAll(t, rc))
	assert.Equal(t, "image/jpeg", meta.ContentType)

	_, err = svc.SaveProfilePhoto(ctx, Incoming{Name: "doc.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf")})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestOpen_RejectsForeignKeys(t *testing.T) {
	svc, _ := newService(t, Limits{})
	ctx := context.Background()
	for _, id := range []string{"../../etc/passwd", "nope", uuid.NewString()} {
		_, _, err := svc.OpenFile(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
	for _, name := range []string{"../x", "profile_x.png", "other_" + uuid.NewString() + ".png"} {
		_, _, err := svc.OpenProfilePhoto(ctx, name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

func TestDiskStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	err = store.Put(context.Background(), "../outside", Meta{}, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotFound)
}
