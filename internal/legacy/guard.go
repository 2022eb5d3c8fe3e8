// Package legacy decodes stored creation blobs defensively.
//
// Older rows were written to a TEXT column capped at 64 KiB and may have
// been cut at the boundary. Fields are the substance of a creation and any
// failure decoding them is fatal for that row. Options are cosmetic: any
// failure falls back to dom.DefaultOptions and the row stays readable.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	dom "qrstudio/internal/domain"
)

// Ceiling is the maximum length of the historical blob column. A blob this
// long or longer may have been truncated and is never trusted.
const Ceiling = 65535

var (
	ErrTruncatedRecord = errors.New("truncated record")
	ErrMalformedRecord = errors.New("malformed record")
)

// Decoded is the usable content of a stored creation.
type Decoded struct {
	Fields  dom.Fields
	Options dom.Options
	// OptionsRecovered is set when the options blob was unusable and
	// defaults were substituted.
	OptionsRecovered bool
}

// Decode parses the fields and options blobs of a row of the given kind.
func Decode(kind, fieldsBlob, optionsBlob string) (Decoded, error) {
	fields, err := DecodeFields(kind, fieldsBlob)
	if err != nil {
		return Decoded{}, err
	}
	opts, err := DecodeOptions(optionsBlob)
	return Decoded{Fields: fields, Options: opts, OptionsRecovered: err != nil}, nil
}

// DecodeFields returns ErrTruncatedRecord for blobs at the ceiling and
// ErrMalformedRecord for anything that does not parse as an object of kind.
func DecodeFields(kind, blob string) (dom.Fields, error) {
	if len(blob) >= Ceiling {
		return nil, fmt.Errorf("%w: fields blob is %d bytes", ErrTruncatedRecord, len(blob))
	}
	k, err := dom.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if strings.TrimSpace(blob) == "" {
		blob = "{}"
	}
	f, err := dom.DecodeFields(k, []byte(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: fields: %w", ErrMalformedRecord, err)
	}
	return f, nil
}

// DecodeOptions always returns usable options. The error, when non-nil,
// says why defaults were used.
func DecodeOptions(blob string) (dom.Options, error) {
	if len(blob) >= Ceiling {
		return dom.DefaultOptions(), fmt.Errorf("%w: options blob is %d bytes", ErrTruncatedRecord, len(blob))
	}
	if strings.TrimSpace(blob) == "" {
		return dom.DefaultOptions(), nil
	}
	var o dom.Options
	if err := json.Unmarshal([]byte(blob), &o); err != nil {
		return dom.DefaultOptions(), fmt.Errorf("%w: options: %w", ErrMalformedRecord, err)
	}
	return o.WithDefaults(), nil
}

// Creation decodes a stored row into a dom.Creation.
func Creation(rec dom.CreationRecord) (dom.Creation, Decoded, error) {
	d, err := Decode(rec.Kind, rec.FieldsBlob, rec.OptionsBlob)
	if err != nil {
		return dom.Creation{}, Decoded{}, err
	}
	return dom.Creation{
		ID:        rec.ID,
		PublicID:  rec.PublicID,
		UserID:    rec.UserID,
		Kind:      d.Fields.Kind(),
		Fields:    d.Fields,
		Options:   d.Options,
		PhotoRef:  rec.PhotoRef,
		CreatedAt: rec.CreatedAt,
	}, d, nil
}
