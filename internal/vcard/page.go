// Package vcard renders the public contact card a vcard QR code points at.
package vcard

import (
	"embed"
	"html/template"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	dom "qrstudio/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateName is the name of the card template inside Templates.
const TemplateName = "card.html"

// Templates holds the parsed card template.
var Templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Page is everything the card template shows.
type Page struct {
	Name     string
	Position string
	Company  string
	Phone    string
	Email    string
	Website  string
	Address  string

	// Exactly one of PhotoURL and Glyph is set.
	PhotoURL string
	Glyph    string
}

// NewPage builds a page from a vcard's fields. photoRef is the stored photo
// column and wins over the photo url inside the fields.
func NewPage(f dom.VCardFields, photoRef string) Page {
	p := Page{
		Name:     strings.TrimSpace(f.Name),
		Position: f.Position,
		Company:  f.Company,
		Phone:    f.Phone,
		Email:    f.Email,
		Website:  f.Website,
		Address:  f.Address,
	}
	switch {
	case photoRef != "":
		p.PhotoURL = photoRef
	case f.PhotoURL != "":
		p.PhotoURL = f.PhotoURL
	case f.Avatar != "":
		p.Glyph = f.Avatar
	default:
		p.Glyph = initial(p.Name)
	}
	return p
}

// Fallback is the glyph shown if the photo fails to load in the browser.
func (p Page) Fallback() string {
	if p.Glyph != "" {
		return p.Glyph
	}
	return initial(p.Name)
}

// PhoneURL is a tel: link with formatting characters removed.
func (p Page) PhoneURL() template.URL {
	var b strings.Builder
	for _, r := range p.Phone {
		if unicode.IsDigit(r) || r == '+' {
			b.WriteRune(r)
		}
	}
	return template.URL("tel:" + b.String())
}

func initial(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsSpace(r) {
		return "U"
	}
	return string(unicode.ToUpper(r))
}

// Render writes the HTML card for p.
func Render(w io.Writer, p Page) error {
	return Templates.ExecuteTemplate(w, TemplateName, p)
}
