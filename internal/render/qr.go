// Package render produces PNG QR symbols.
package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

const (
	DefaultMinSize = 64
	DefaultMaxSize = 2048

	// MaxLogoSide bounds either dimension of a decoded logo, in pixels.
	MaxLogoSide = 2048

	// logoRatio is the share of the symbol side covered by a logo.
	logoRatio = 0.2
	logoPad   = 5
)

var ErrEmptyContent = errors.New("nothing to encode")

// Request describes one symbol to render.
type Request struct {
	Content    string
	Foreground string
	Background string
	Size       int
	// Logo is an optional data URL (data:image/png;base64,...).
	Logo string
}

// Renderer is the image-encoding boundary used by the services.
type Renderer interface {
	Render(req Request) ([]byte, error)
}

// QRRenderer renders with github.com/skip2/go-qrcode. Sizes are clamped to
// [MinSize, MaxSize]; colours that are not CSS hex values fall back to
// black on white.
type QRRenderer struct {
	MinSize int
	MaxSize int
}

func NewQRRenderer(minSize, maxSize int) *QRRenderer {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if maxSize < minSize {
		maxSize = DefaultMaxSize
	}
	return &QRRenderer{MinSize: minSize, MaxSize: maxSize}
}

func (r *QRRenderer) clamp(size int) int {
	switch {
	case size < r.MinSize:
		return r.MinSize
	case size > r.MaxSize:
		return r.MaxSize
	}
	return size
}

func (r *QRRenderer) Render(req Request) ([]byte, error) {
	if req.Content == "" {
		return nil, ErrEmptyContent
	}
	size := r.clamp(req.Size)

	var logo image.Image
	if req.Logo != "" {
		// An unreadable logo is dropped, the symbol is still useful without it.
		logo, _ = decodeDataURL(req.Logo)
	}

	level := qrcode.Medium
	if logo != nil {
		level = qrcode.High
	}
	q, err := qrcode.New(req.Content, level)
	if err != nil {
		return nil, fmt.Errorf("qrcode: %w", err)
	}
	q.ForegroundColor = parseColor(req.Foreground, color.Black)
	q.BackgroundColor = parseColor(req.Background, color.White)

	if logo == nil {
		return q.PNG(size)
	}

	img := q.Image(size)
	b := img.Bounds()
	canvas := image.NewRGBA(b)
	draw.Draw(canvas, b, img, b.Min, draw.Src)
	overlayLogo(canvas, logo)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("png: %w", err)
	}
	return buf.Bytes(), nil
}

func parseColor(s string, fallback color.Color) color.Color {
	c, err := colorful.Hex(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return c
}

func overlayLogo(dst *image.RGBA, logo image.Image) {
	b := dst.Bounds()
	side := int(float64(b.Dx()) * logoRatio)
	if side <= 0 {
		return
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	target := image.Rect(x, y, x+side, y+side)

	draw.Draw(dst, target.Inset(-logoPad), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, target, logo, logo.Bounds(), draw.Over, nil)
}

func decodeDataURL(s string) (image.Image, error) {
	comma := strings.IndexByte(s, ',')
	if !strings.HasPrefix(s, "data:") || comma < 0 {
		return nil, errors.New("logo is not a data URL")
	}
	meta, data := s[len("data:"):comma], s[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("logo data URL is not base64")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("logo base64: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("logo image: %w", err)
	}
	if cfg.Width > MaxLogoSide || cfg.Height > MaxLogoSide {
		return nil, fmt.Errorf("logo is %dx%d, limit is %d per side", cfg.Width, cfg.Height, MaxLogoSide)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("logo image: %w", err)
	}
	return img, nil
}
