// Package payload turns typed QR inputs into the exact string handed to the
// QR encoder. Everything here is pure: no I/O, no clock, no globals.
package payload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	dom "qrstudio/internal/domain"
)

const (
	// DefaultWiFiSecurity is used when a wifi payload omits the security mode.
	DefaultWiFiSecurity = "nopass"

	// MaxLogoLength bounds the logo data URL kept in a creation's options.
	MaxLogoLength = 48 << 10
)

var ErrInvalidPayload = errors.New("invalid payload")

// FieldError reports which required field of which kind is missing.
type FieldError struct {
	Kind   dom.Kind
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool { return target == ErrInvalidPayload }

func required(kind dom.Kind, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Kind: kind, Field: field, Reason: "is required"}
	}
	return nil
}

// Site is the scheme and host a request was served from. URLs embedded in
// file and vcard payloads are built from it at render time.
type Site struct {
	Scheme string
	Host   string
}

// URL joins path onto the site origin.
func (s Site) URL(path string) string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + s.Host + path
}

// ValidateOptions checks the options submitted alongside fields of kind.
func ValidateOptions(kind dom.Kind, o dom.Options) error {
	if len(o.Logo) > MaxLogoLength {
		return &FieldError{Kind: kind, Field: "options.logo", Reason: "is too large"}
	}
	return nil
}

// VCardURL is the public page a vcard QR code points at.
func (s Site) VCardURL(id int64) string {
	return s.URL("/vcard/" + strconv.FormatInt(id, 10))
}

// DownloadURL is the public download link a file QR code points at.
func (s Site) DownloadURL(fileID string) string {
	return s.URL("/download/" + fileID)
}

// Validate checks the required fields of f.
func Validate(f dom.Fields) error {
	switch v := f.(type) {
	case dom.URLFields:
		return required(dom.KindURL, "url", v.URL)
	case dom.TextFields:
		return required(dom.KindText, "text", v.Text)
	case dom.WiFiFields:
		return required(dom.KindWiFi, "ssid", v.SSID)
	case dom.FileFields:
		return required(dom.KindFile, "fileId", v.FileID)
	case dom.VCardFields:
		return required(dom.KindVCard, "name", v.Name)
	case nil:
		return &FieldError{Field: "data", Reason: "is required"}
	}
	return fmt.Errorf("%w: unsupported fields %T", ErrInvalidPayload, f)
}

// Canonicalize returns the string to encode for f.
//
// file and vcard payloads are links back to this service, so they depend on
// site; vcard additionally needs the persisted creation id.
func Canonicalize(f dom.Fields, site Site, creationID int64) (string, error) {
	if err := Validate(f); err != nil {
		return "", err
	}
	switch v := f.(type) {
	case dom.URLFields:
		return v.URL, nil
	case dom.TextFields:
		return v.Text, nil
	case dom.WiFiFields:
		security := v.Security
		if security == "" {
			security = DefaultWiFiSecurity
		}
		return "WIFI:T:" + security + ";S:" + v.SSID + ";P:" + v.Password + ";;", nil
	case dom.FileFields:
		if site.Host == "" {
			return "", errors.New("file payload needs the serving host")
		}
		return site.DownloadURL(v.FileID), nil
	case dom.VCardFields:
		if site.Host == "" {
			return "", errors.New("vcard payload needs the serving host")
		}
		if creationID <= 0 {
			return "", errors.New("vcard payload needs a persisted creation id")
		}
		return site.VCardURL(creationID), nil
	}
	return "", fmt.Errorf("%w: unsupported fields %T", ErrInvalidPayload, f)
}
