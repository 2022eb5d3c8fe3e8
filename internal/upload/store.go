// Package upload stores user files referenced by QR payloads and vCard pages.
package upload

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound        = errors.New("upload not found")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoFile          = errors.New("no file uploaded")
)

// Meta describes a stored object.
type Meta struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store is the byte storage behind uploads. Keys are slash separated and
// generated by Service, never taken from clients verbatim.
type Store interface {
	Put(ctx context.Context, key string, meta Meta, body io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, Meta, error)
}
