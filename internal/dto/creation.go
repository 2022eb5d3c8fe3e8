package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	dom "qrstudio/internal/domain"
	"qrstudio/internal/payload"
)

// QRRequest is the JSON body for POST /api/qr and PUT /api/creations/:id.
type QRRequest struct {
	Type    string          `json:"type" binding:"required"`
	Data    json.RawMessage `json:"data" swaggertype:"object"`
	Options dom.Options     `json:"options"`
}

// Fields decodes Data into the variant named by Type. A missing data object
// decodes to an empty variant so required-field checks report it.
func (r QRRequest) Fields() (dom.Fields, error) {
	kind, err := dom.ParseKind(r.Type)
	if err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(r.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	f, err := dom.DecodeFields(kind, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", payload.ErrInvalidPayload, err)
	}
	return f, nil
}

// CreationResponse is one stored creation.
type CreationResponse struct {
	ID        int64       `json:"id"`
	PublicID  string      `json:"publicId"`
	Type      dom.Kind    `json:"type"`
	Data      dom.Fields  `json:"data" swaggertype:"object"`
	Options   dom.Options `json:"options"`
	PhotoURL  *string     `json:"photo_url"`
	CreatedAt time.Time   `json:"created_at"`
	VCardURL  string      `json:"vcardUrl,omitempty"`
}

type ListCreationsResponse struct {
	Creations []CreationResponse `json:"creations"`
}

// NewCreationResponse converts c. vcardURL is only set for vcard creations.
func NewCreationResponse(c dom.Creation, vcardURL string) CreationResponse {
	resp := CreationResponse{
		ID:        c.ID,
		PublicID:  c.PublicID,
		Type:      c.Kind,
		Data:      c.Fields,
		Options:   c.Options,
		CreatedAt: c.CreatedAt,
	}
	if c.PhotoRef != "" {
		ref := c.PhotoRef
		resp.PhotoURL = &ref
	}
	if c.Kind == dom.KindVCard {
		resp.VCardURL = vcardURL
	}
	return resp
}

type UploadFileResponse struct {
	FileID string `json:"fileId"`
}

type UploadPhotoResponse struct {
	PhotoURL string `json:"photoUrl"`
	Filename string `json:"filename"`
}
