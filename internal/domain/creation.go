package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind is the payload type of a Creation.
type Kind string

const (
	KindURL   Kind = "url"
	KindVCard Kind = "vcard"
	KindFile  Kind = "file"
	KindText  Kind = "text"
	KindWiFi  Kind = "wifi"
)

// ErrUnknownKind is returned by ParseKind and DecodeFields for unsupported kinds.
var ErrUnknownKind = errors.New("unknown kind")

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindURL, KindVCard, KindFile, KindText, KindWiFi:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Fields is the kind-specific payload of a Creation. Exactly one
// implementation exists per Kind.
type Fields interface {
	Kind() Kind
	isFields()
}

type URLFields struct {
	URL string `json:"url"`
}

type TextFields struct {
	Text string `json:"text"`
}

type WiFiFields struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
	Security string `json:"security"`
}

type FileFields struct {
	FileID string `json:"fileId"`
}

type VCardFields struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Website  string `json:"website,omitempty"`
	Address  string `json:"address,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

func (URLFields) Kind() Kind   { return KindURL }
func (TextFields) Kind() Kind  { return KindText }
func (WiFiFields) Kind() Kind  { return KindWiFi }
func (FileFields) Kind() Kind  { return KindFile }
func (VCardFields) Kind() Kind { return KindVCard }

func (URLFields) isFields()   {}
func (TextFields) isFields()  {}
func (WiFiFields) isFields()  {}
func (FileFields) isFields()  {}
func (VCardFields) isFields() {}

// DecodeFields parses a JSON object into the Fields variant of kind.
// Missing keys decode as empty strings.
func DecodeFields(kind Kind, raw []byte) (Fields, error) {
	var (
		f   Fields
		err error
	)
	switch kind {
	case KindURL:
		var v URLFields
		err = json.Unmarshal(raw, &v)
		f = v
	case KindText:
		var v TextFields
		err = json.Unmarshal(raw, &v)
		f = v
	case KindWiFi:
		var v WiFiFields
		err = json.Unmarshal(raw, &v)
		f = v
	case KindFile:
		var v FileFields
		err = json.Unmarshal(raw, &v)
		f = v
	case KindVCard:
		var v VCardFields
		err = json.Unmarshal(raw, &v)
		f = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// PhotoRef returns the photo reference persisted alongside the fields.
// Only vCards carry one.
func PhotoRef(f Fields) string {
	if v, ok := f.(VCardFields); ok {
		return v.PhotoURL
	}
	return ""
}

const (
	DefaultColor   = "#000000"
	DefaultBgColor = "#FFFFFF"
	DefaultSize    = 256
)

// Options are the cosmetic rendering choices of a Creation.
type Options struct {
	Color   string `json:"color"`
	BgColor string `json:"bgColor"`
	Size    int    `json:"size"`
	// Logo is an inline data URL overlaid at the centre of the symbol.
	Logo string `json:"logo,omitempty"`
}

// DefaultOptions is black on white at 256px.
func DefaultOptions() Options {
	return Options{Color: DefaultColor, BgColor: DefaultBgColor, Size: DefaultSize}
}

// WithDefaults fills every unset option from DefaultOptions.
func (o Options) WithDefaults() Options {
	if o.Color == "" {
		o.Color = DefaultColor
	}
	if o.BgColor == "" {
		o.BgColor = DefaultBgColor
	}
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	return o
}

// Creation is a decoded, persisted QR artifact.
type Creation struct {
	ID        int64
	PublicID  string
	UserID    int64
	Kind      Kind
	Fields    Fields
	Options   Options
	PhotoRef  string
	CreatedAt time.Time
}

// CreationRecord is a Creation as stored: fields and options are opaque blobs.
type CreationRecord struct {
	ID          int64     `json:"id"`
	PublicID    string    `json:"public_id"`
	UserID      int64     `json:"user_id"`
	Kind        string    `json:"kind"`
	FieldsBlob  string    `json:"fields_blob"`
	OptionsBlob string    `json:"options_blob"`
	PhotoRef    string    `json:"photo_ref"`
	CreatedAt   time.Time `json:"created_at"`
}
