// Package i18n provides message translation for table of contents labels.
package i18n

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Translator translates message keys into supported languages.
type Translator interface {
	Translate(key string, tag language.Tag) string
	// Languages returns supported languages, first one is the default.
	Languages() []language.Tag
}

// Catalog is a Translator backed by in-memory message tables.
type Catalog struct {
	langs    []language.Tag
	matcher  language.Matcher
	messages map[language.Tag]map[string]string
}

// NewCatalog creates catalog for the languages. Messages for languages not
// listed are ignored.
func NewCatalog(langs []language.Tag, messages map[language.Tag]map[string]string) (*Catalog, error) {
	if len(langs) == 0 {
		return nil, errors.New("at least one language is required")
	}
	c := &Catalog{
		langs:    langs,
		matcher:  language.NewMatcher(langs),
		messages: make(map[language.Tag]map[string]string, len(langs)),
	}
	for _, tag := range langs {
		c.messages[tag] = messages[tag]
	}
	return c, nil
}

// Load builds catalog from embedded YAML message tables (language -> key ->
// text) and, when path is not empty, overlays messages from that file on top.
func Load(langs []language.Tag, path string) (*Catalog, error) {
	messages, err := decode(bytes.NewReader(defaultMessages))
	if err != nil {
		return nil, fmt.Errorf("unable to decode default messages: %w", err)
	}
	if len(path) > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open messages file: %w", err)
		}
		defer f.Close()

		extra, err := decode(f)
		if err != nil {
			return nil, fmt.Errorf("unable to decode messages file '%s': %w", path, err)
		}
		for tag, table := range extra {
			if messages[tag] == nil {
				messages[tag] = make(map[string]string, len(table))
			}
			for k, v := range table {
				messages[tag][k] = v
			}
		}
	}
	return NewCatalog(langs, messages)
}

func decode(r io.Reader) (map[language.Tag]map[string]string, error) {
	var raw map[string]map[string]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}
	out := make(map[language.Tag]map[string]string, len(raw))
	for name, table := range raw {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("bad language '%s': %w", name, err)
		}
		out[tag] = table
	}
	return out, nil
}

// Translate returns text for the key in the language best matching tag. Keys
// without translation are returned as is.
func (c *Catalog) Translate(key string, tag language.Tag) string {
	if len(key) == 0 {
		return ""
	}
	_, idx, _ := c.matcher.Match(tag)
	if text, ok := c.messages[c.langs[idx]][key]; ok && len(text) > 0 {
		return text
	}
	return key
}

func (c *Catalog) Languages() []language.Tag {
	return c.langs
}
