package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const metaSuffix = ".meta.json"

// DiskStore keeps objects under a root directory with a JSON sidecar per object.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: bad key %q", ErrNotFound, key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *DiskStore) Put(_ context.Context, key string, meta Meta, body io.Reader) (err error) {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	meta.Size = n
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err = os.WriteFile(p+metaSuffix, b, 0o644); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

func (s *DiskStore) Open(_ context.Context, key string) (io.ReadCloser, Meta, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, Meta{}, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Meta{}, ErrNotFound
	}
	if err != nil {
		return nil, Meta{}, err
	}
	var meta Meta
	if b, err := os.ReadFile(p + metaSuffix); err == nil {
		_ = json.Unmarshal(b, &meta)
	}
	if meta.Name == "" {
		meta.Name = filepath.Base(p)
	}
	if meta.Size == 0 {
		if st, err := f.Stat(); err == nil {
			meta.Size = st.Size()
		}
	}
	return f, meta, nil
}
