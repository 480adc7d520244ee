// Package urls produces navigable links for table of contents entries.
package urls

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
)

// View is the kind of page link should lead to.
type View string

const (
	ViewImage      View = "image"
	ViewObject     View = "object"
	ViewFullscreen View = "fullscreen"
	ViewTOC        View = "toc"
)

// ViewForMediaType selects page view for record media type.
func ViewForMediaType(mimeType string, anchorOrGroup bool) View {
	if anchorOrGroup {
		return ViewTOC
	}
	switch {
	case strings.HasPrefix(mimeType, "video/"),
		strings.HasPrefix(mimeType, "audio/"),
		strings.HasPrefix(mimeType, "model/"),
		mimeType == "application/object":
		return ViewObject
	default:
		return ViewImage
	}
}

// Values is what page URL template could refer to.
type Values struct {
	Base      string
	Record    string
	Page      int
	LogicalID string
	View      string
}

// Builder expands page URL template.
type Builder interface {
	PageURL(topRecordID string, page int, logicalID string, view View) (string, error)
}

// TemplateBuilder builds URLs from a text/template with slim-sprig
// functions and additional "slug".
type TemplateBuilder struct {
	base string
	tmpl *template.Template
}

func NewTemplateBuilder(base, field string) (*TemplateBuilder, error) {
	funcMap := sprig.FuncMap()
	funcMap["slug"] = slug.Make

	tmpl, err := template.New("page_url").Funcs(funcMap).Option("missingkey=error").Parse(field)
	if err != nil {
		return nil, fmt.Errorf("unable to parse page url template: %w", err)
	}
	return &TemplateBuilder{base: strings.TrimSuffix(base, "/"), tmpl: tmpl}, nil
}

func (b *TemplateBuilder) PageURL(topRecordID string, page int, logicalID string, view View) (string, error) {
	if page < 1 {
		page = 1
	}
	values := Values{
		Base:      b.base,
		Record:    topRecordID,
		Page:      page,
		LogicalID: logicalID,
		View:      string(view),
	}

	buf := new(bytes.Buffer)
	if err := b.tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("unable to expand page url for %s: %w", topRecordID, err)
	}
	return buf.String(), nil
}
