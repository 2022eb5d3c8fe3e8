package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"qrstudio/internal/logging"

	"github.com/google/uuid"
)

const (
	DefaultMaxFileBytes  = 10 << 20
	DefaultMaxPhotoBytes = 5 << 20

	filesPrefix    = "files/"
	profilesPrefix = "profiles/"
	profileName    = "profile_"

	// ProfileURLPrefix is where stored profile photos are served from.
	ProfileURLPrefix = "/uploads/profiles/"
)

var (
	fileTypes  = []string{"application/pdf", "image/jpeg", "image/png", "image/gif"}
	photoTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
)

// Incoming is one file as received from a client.
type Incoming struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Limits bounds accepted uploads.
type Limits struct {
	MaxFileBytes  int64
	MaxPhotoBytes int64
}

type Service struct {
	store  Store
	limits Limits
	log    logging.Logger
}

func NewService(store Store, limits Limits, log logging.Logger) *Service {
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = DefaultMaxFileBytes
	}
	if limits.MaxPhotoBytes <= 0 {
		limits.MaxPhotoBytes = DefaultMaxPhotoBytes
	}
	return &Service{store: store, limits: limits, log: log}
}

func (s *Service) Limits() Limits { return s.limits }

func check(in Incoming, max int64, allowed []string) error {
	if in.Body == nil {
		return ErrNoFile
	}
	if in.Size > max {
		return fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, max)
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(in.ContentType, ";")[0]))
	if !slices.Contains(allowed, ct) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	return nil
}

// capReader fails with ErrTooLarge once more than left bytes are read, so a
// client that lies about Size cannot exceed the limit.
type capReader struct {
	r    io.Reader
	left int64
}

func limitedBody(r io.Reader, max int64) io.Reader {
	return &capReader{r: r, left: max}
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// storeBody returns the reader to hand a store and the true size when it
// is known. A seekable body is measured and passed through unwrapped, so an
// S3 client can rewind it to sign the payload; anything else is capped
// while it is read.
func storeBody(in Incoming, max int64) (io.Reader, int64, error) {
	rs, ok := in.Body.(io.ReadSeeker)
	if !ok {
		return limitedBody(in.Body, max), in.Size, nil
	}
	n, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("measure upload: %w", err)
	}
	if n > max {
		return nil, 0, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, max)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("rewind upload: %w", err)
	}
	return rs, n, nil
}

// SaveFile stores a general file and returns its opaque id.
func (s *Service) SaveFile(ctx context.Context, in Incoming) (string, error) {
	if err := check(in, s.limits.MaxFileBytes, fileTypes); err != nil {
		return "", err
	}
	body, size, err := storeBody(in, s.limits.MaxFileBytes)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	meta := Meta{Name: path.Base(in.Name), ContentType: in.ContentType, Size: size}
	if err := s.store.Put(ctx, filesPrefix+id, meta, body); err != nil {
		return "", err
	}
	s.log.Info(ctx, "file uploaded", "file_id", id, "size", size, "content_type", in.ContentType)
	return id, nil
}

// SaveProfilePhoto stores a vCard photo and returns its file name.
func (s *Service) SaveProfilePhoto(ctx context.Context, in Incoming) (string, error) {
	if err := check(in, s.limits.MaxPhotoBytes, photoTypes); err != nil {
		return "", err
	}
	body, size, err := storeBody(in, s.limits.MaxPhotoBytes)
	if err != nil {
		return "", err
	}
	name := profileName + uuid.NewString() + strings.ToLower(path.Ext(in.Name))
	meta := Meta{Name: name, ContentType: in.ContentType, Size: size}
	if err := s.store.Put(ctx, profilesPrefix+name, meta, body); err != nil {
		return "", err
	}
	s.log.Info(ctx, "profile photo uploaded", "filename", name, "size", size)
	return name, nil
}

// OpenFile opens a file saved by SaveFile.
func (s *Service) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, Meta, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, Meta{}, ErrNotFound
	}
	return s.store.Open(ctx, filesPrefix+fileID)
}

// OpenProfilePhoto opens a photo saved by SaveProfilePhoto.
func (s *Service) OpenProfilePhoto(ctx context.Context, name string) (io.ReadCloser, Meta, error) {
	if !validProfileName(name) {
		return nil, Meta{}, ErrNotFound
	}
	return s.store.Open(ctx, profilesPrefix+name)
}

func validProfileName(name string) bool {
	if !strings.HasPrefix(name, profileName) {
		return false
	}
	ext := path.Ext(name)
	_, err := uuid.Parse(strings.TrimSuffix(strings.TrimPrefix(name, profileName), ext))
	return err == nil && !strings.ContainsAny(ext, `/\`)
}
