package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	dom "qrstudio/internal/domain"
	"qrstudio/internal/legacy"
	"qrstudio/internal/logging"
	"qrstudio/internal/payload"
	"qrstudio/internal/render"
	"qrstudio/internal/repo"
	"qrstudio/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrCorruptRecord = errors.New("corrupt record")
	ErrRenderFailure = errors.New("render failure")
)

const (
	// DefaultThumbnailSize is the pixel size of list thumbnails.
	DefaultThumbnailSize = 200

	publicIDLength   = 16
	publicIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	publicIDAttempts = 3
)

// CreationCache caches raw rows per owner under a generation that every
// write advances. A nil cache disables caching.
type CreationCache interface {
	Generation(ctx context.Context, userID int64) (int64, error)
	GetList(ctx context.Context, userID, gen int64) ([]dom.CreationRecord, error)
	SetList(ctx context.Context, userID, gen int64, list []dom.CreationRecord) error
	Invalidate(ctx context.Context, userID int64) error
}

// CreationInput is what a user submits to create or edit a creation.
type CreationInput struct {
	Fields  dom.Fields
	Options dom.Options
}

// Rendered is a PNG together with the creation it was derived from.
type Rendered struct {
	PNG      []byte
	Creation dom.Creation
}

type CreationService struct {
	repo      repo.CreationRepo
	cache     CreationCache
	renderer  render.Renderer
	log       logging.Logger
	thumbSize int
	sf        singleflight.Group
}

// NewCreationService creates a CreationService. If c is nil, caching is disabled.
func NewCreationService(r repo.CreationRepo, c CreationCache, rd render.Renderer, log logging.Logger, thumbSize int) *CreationService {
	if thumbSize <= 0 {
		thumbSize = DefaultThumbnailSize
	}
	return &CreationService{repo: r, cache: c, renderer: rd, log: log, thumbSize: thumbSize}
}

// Generate renders a new QR code and persists it.
//
// vcard payloads link to their own page, so the row is written first to
// obtain the id and removed again if rendering fails. For every other kind
// the image is rendered first; failing to persist it afterwards is logged
// and the image is still returned.
func (s *CreationService) Generate(ctx context.Context, userID int64, site payload.Site, in CreationInput) (Rendered, error) {
	if err := validate(in); err != nil {
		return Rendered{}, err
	}
	if _, err := encode(in); err != nil {
		return Rendered{}, err
	}

	if in.Fields.Kind() == dom.KindVCard {
		c, err := s.insert(ctx, userID, in)
		if err != nil {
			return Rendered{}, err
		}
		png, err := s.render(c, site, c.Options.Size)
		if err != nil {
			if derr := s.repo.Delete(ctx, userID, c.ID); derr != nil {
				s.log.Error(ctx, "removing unrendered vcard failed", "creation_id", c.ID, "user_id", userID, "error", derr)
			}
			s.invalidateCache(ctx, userID)
			return Rendered{}, err
		}
		return Rendered{PNG: png, Creation: c}, nil
	}

	c := dom.Creation{UserID: userID, Kind: in.Fields.Kind(), Fields: in.Fields, Options: in.Options.WithDefaults()}
	png, err := s.render(c, site, c.Options.Size)
	if err != nil {
		return Rendered{}, err
	}
	saved, err := s.insert(ctx, userID, in)
	if err != nil {
		s.log.Error(ctx, "saving generated creation failed", "user_id", userID, "kind", c.Kind, "error", err)
		return Rendered{PNG: png, Creation: c}, nil
	}
	return Rendered{PNG: png, Creation: saved}, nil
}

func (s *CreationService) insert(ctx context.Context, userID int64, in CreationInput) (dom.Creation, error) {
	rec, err := encode(in)
	if err != nil {
		return dom.Creation{}, err
	}
	rec.UserID = userID

	var saved dom.CreationRecord
	for attempt := 1; ; attempt++ {
		rec.PublicID, err = newPublicID()
		if err != nil {
			return dom.Creation{}, err
		}
		saved, err = s.repo.Create(ctx, rec)
		if err == nil {
			break
		}
		collision := utils.IsPGUniqueViolation(err) && strings.Contains(utils.PGConstraint(err), "public_identifier")
		if !collision || attempt == publicIDAttempts {
			return dom.Creation{}, err
		}
	}
	s.invalidateCache(ctx, userID)

	return dom.Creation{
		ID:        saved.ID,
		PublicID:  saved.PublicID,
		UserID:    saved.UserID,
		Kind:      in.Fields.Kind(),
		Fields:    in.Fields,
		Options:   in.Options.WithDefaults(),
		PhotoRef:  saved.PhotoRef,
		CreatedAt: saved.CreatedAt,
	}, nil
}

func validate(in CreationInput) error {
	if err := payload.Validate(in.Fields); err != nil {
		return err
	}
	return payload.ValidateOptions(in.Fields.Kind(), in.Options)
}

// encode serializes in for storage. Blobs that would reach legacy.Ceiling
// are refused: they could never be read back.
func encode(in CreationInput) (dom.CreationRecord, error) {
	kind := in.Fields.Kind()
	fields, err := json.Marshal(in.Fields)
	if err != nil {
		return dom.CreationRecord{}, fmt.Errorf("encode fields: %w", err)
	}
	if len(fields) >= legacy.Ceiling {
		return dom.CreationRecord{}, &payload.FieldError{Kind: kind, Field: "data", Reason: "is too large"}
	}
	opts, err := json.Marshal(in.Options)
	if err != nil {
		return dom.CreationRecord{}, fmt.Errorf("encode options: %w", err)
	}
	if len(opts) >= legacy.Ceiling {
		return dom.CreationRecord{}, &payload.FieldError{Kind: kind, Field: "options", Reason: "is too large"}
	}
	return dom.CreationRecord{
		Kind:        string(kind),
		FieldsBlob:  string(fields),
		OptionsBlob: string(opts),
		PhotoRef:    dom.PhotoRef(in.Fields),
	}, nil
}

// List returns the owner's creations, newest first. Rows that fail to
// decode are logged and left out.
func (s *CreationService) List(ctx context.Context, userID int64) ([]dom.Creation, error) {
	records, err := s.listRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dom.Creation, 0, len(records))
	for _, rec := range records {
		c, d, err := legacy.Creation(rec)
		if err != nil {
			s.log.Warn(ctx, "skipping unreadable creation", "creation_id", rec.ID, "user_id", userID, "error", err)
			continue
		}
		if d.OptionsRecovered {
			s.log.Debug(ctx, "creation options replaced by defaults", "creation_id", rec.ID)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *CreationService) listRecords(ctx context.Context, userID int64) ([]dom.CreationRecord, error) {
	if s.cache == nil {
		return s.repo.ListByOwner(ctx, userID)
	}
	gen, err := s.cache.Generation(ctx, userID)
	if err != nil {
		s.log.Warn(ctx, "creation cache unavailable", "user_id", userID, "error", err)
		return s.repo.ListByOwner(ctx, userID)
	}
	key := "list:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(gen, 10)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// shared by every caller waiting on key
		ctx := context.WithoutCancel(ctx)
		if list, err := s.cache.GetList(ctx, userID, gen); err == nil && list != nil {
			return list, nil
		}
		list, err := s.repo.ListByOwner(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetList(ctx, userID, gen, list); err != nil {
			s.log.Debug(ctx, "caching creation list failed", "user_id", userID, "error", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.CreationRecord), nil
}

// GetForEdit returns one creation. Unlike List, a row that fails to decode
// is reported as ErrCorruptRecord.
func (s *CreationService) GetForEdit(ctx context.Context, userID, id int64) (dom.Creation, error) {
	return s.load(ctx, userID, id)
}

func (s *CreationService) load(ctx context.Context, userID, id int64) (dom.Creation, error) {
	rec, err := s.repo.GetByIDAndOwner(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Creation{}, ErrNotFound
		}
		return dom.Creation{}, err
	}
	c, _, err := legacy.Creation(rec)
	if err != nil {
		s.log.Error(ctx, "creation cannot be decoded", "creation_id", id, "user_id", userID, "error", err)
		return dom.Creation{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return c, nil
}

// Update replaces kind, fields, options and photo reference. Id, public
// identifier, owner and creation time never change.
func (s *CreationService) Update(ctx context.Context, userID, id int64, in CreationInput) error {
	if err := validate(in); err != nil {
		return err
	}
	rec, err := encode(in)
	if err != nil {
		return err
	}
	rec.ID = id
	rec.UserID = userID
	if err := s.repo.Update(ctx, rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

func (s *CreationService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

// RenderImage re-derives the symbol at thumbnail size.
func (s *CreationService) RenderImage(ctx context.Context, userID, id int64, site payload.Site) (Rendered, error) {
	c, err := s.load(ctx, userID, id)
	if err != nil {
		return Rendered{}, err
	}
	png, err := s.render(c, site, s.thumbSize)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{PNG: png, Creation: c}, nil
}

// RenderDownload re-derives the symbol at the creation's own size.
func (s *CreationService) RenderDownload(ctx context.Context, userID, id int64, site payload.Site) (Rendered, error) {
	c, err := s.load(ctx, userID, id)
	if err != nil {
		return Rendered{}, err
	}
	png, err := s.render(c, site, c.Options.Size)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{PNG: png, Creation: c}, nil
}

// PublicVCard loads a vcard for its public page. No owner scoping.
func (s *CreationService) PublicVCard(ctx context.Context, id int64) (dom.Creation, error) {
	rec, err := s.repo.GetVCard(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Creation{}, ErrNotFound
		}
		return dom.Creation{}, err
	}
	fields, err := legacy.DecodeFields(rec.Kind, rec.FieldsBlob)
	if err != nil {
		s.log.Warn(ctx, "public vcard cannot be decoded", "creation_id", id, "error", err)
		return dom.Creation{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return dom.Creation{
		ID:        rec.ID,
		PublicID:  rec.PublicID,
		UserID:    rec.UserID,
		Kind:      dom.KindVCard,
		Fields:    fields,
		PhotoRef:  rec.PhotoRef,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *CreationService) render(c dom.Creation, site payload.Site, size int) ([]byte, error) {
	content, err := payload.Canonicalize(c.Fields, site, c.ID)
	if err != nil {
		if c.ID != 0 && errors.Is(err, payload.ErrInvalidPayload) {
			return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
		}
		return nil, err
	}
	png, err := s.renderer.Render(render.Request{
		Content:    content,
		Foreground: c.Options.Color,
		Background: c.Options.BgColor,
		Size:       size,
		Logo:       c.Options.Logo,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}
	return png, nil
}

func (s *CreationService) invalidateCache(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn(ctx, "creation cache invalidation failed", "user_id", userID, "error", err)
	}
}

func newPublicID() (string, error) {
	b := make([]byte, publicIDLength)
	max := big.NewInt(int64(len(publicIDAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("rand: %w", err)
		}
		b[i] = publicIDAlphabet[n.Int64()]
	}
	return string(b), nil
}
