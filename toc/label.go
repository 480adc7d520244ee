package toc

import (
	"maps"
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"tocview/config"
	"tocview/i18n"
	"tocview/index"
)

// Label is multi-language display text. Value is the rendering in the default
// language, Translations keep renderings for other languages when they differ.
type Label struct {
	Value        string            `yaml:"value"`
	Translations map[string]string `yaml:"translations,omitempty"`
}

// Text returns label in the requested language falling back to the base
// language and then to the default value.
func (l Label) Text(tag language.Tag) string {
	if len(l.Translations) > 0 {
		if s, ok := l.Translations[tag.String()]; ok {
			return s
		}
		base, _ := tag.Base()
		if s, ok := l.Translations[base.String()]; ok {
			return s
		}
	}
	return l.Value
}

func (l Label) IsEmpty() bool {
	if len(l.Value) > 0 {
		return false
	}
	for _, s := range l.Translations {
		if len(s) > 0 {
			return false
		}
	}
	return true
}

func (l Label) String() string {
	return l.Value
}

func (l Label) Clone() Label {
	return Label{Value: l.Value, Translations: maps.Clone(l.Translations)}
}

// newLabel builds label from per language texts, langs[0] is the default
// language. When all populated languages render the same text label keeps
// single value.
func newLabel(langs []language.Tag, texts []string) Label {
	var single string
	same := true
	for _, s := range texts {
		switch {
		case len(s) == 0:
		case len(single) == 0:
			single = s
		case s != single:
			same = false
		}
	}
	if same {
		return Label{Value: single}
	}
	l := Label{Value: texts[0], Translations: make(map[string]string, len(langs))}
	if len(l.Value) == 0 {
		l.Value = single
	}
	for i, tag := range langs {
		if len(texts[i]) > 0 {
			l.Translations[tag.String()] = texts[i]
		}
	}
	return l
}

// LabelResolver produces entry labels from index documents using templates
// keyed by structure type.
type LabelResolver struct {
	templates map[string]config.LabelTemplate
	tr        i18n.Translator
}

func NewLabelResolver(templates map[string]config.LabelTemplate, tr i18n.Translator) *LabelResolver {
	return &LabelResolver{templates: templates, tr: tr}
}

// Resolve builds label for the document. Template is selected by key, then
// _DEFAULT template is tried. Without template label comes from LABEL, then
// MD_TITLE, then from translated structure type.
func (r *LabelResolver) Resolve(doc index.Document, templateKey string) Label {
	tmpl, ok := r.templates[templateKey]
	if !ok {
		tmpl, ok = r.templates[config.DefaultTemplateKey]
	}
	if !ok {
		return r.fallback(doc)
	}

	langs := r.tr.Languages()
	texts := make([]string, len(langs))
	for i, tag := range langs {
		s := tmpl.Master
		for _, p := range tmpl.Params {
			s = strings.ReplaceAll(s, "{"+p.Key+"}", r.param(doc, &p, tag))
		}
		texts[i] = strings.TrimSpace(s)
	}
	return newLabel(langs, texts)
}

func (r *LabelResolver) fallback(doc index.Document) Label {
	if l := r.multiLanguage(doc, index.FieldLabel); !l.IsEmpty() {
		return l
	}
	if l := r.multiLanguage(doc, index.FieldTitle); !l.IsEmpty() {
		return l
	}
	return r.translated(doc.First(index.FieldDocStruct))
}

func (r *LabelResolver) multiLanguage(doc index.Document, field string) Label {
	langs := r.tr.Languages()
	texts := make([]string, len(langs))
	for i, tag := range langs {
		texts[i] = fieldInLanguage(doc, field, tag)
	}
	return newLabel(langs, texts)
}

func (r *LabelResolver) translated(key string) Label {
	langs := r.tr.Languages()
	texts := make([]string, len(langs))
	for i, tag := range langs {
		texts[i] = r.tr.Translate(key, tag)
	}
	return newLabel(langs, texts)
}

// fieldInLanguage returns language specific variant of the field and plain
// field value when there is none.
func fieldInLanguage(doc index.Document, field string, tag language.Tag) string {
	if s := doc.First(index.LangField(field, tag)); len(s) > 0 {
		return s
	}
	return doc.First(field)
}

func (r *LabelResolver) param(doc index.Document, p *config.LabelParam, tag language.Tag) string {
	var value string
	switch p.Kind {
	case config.ParamKindTranslated:
		raw := doc.First(p.Source)
		if len(raw) == 0 && len(p.AltSource) > 0 {
			raw = doc.First(p.AltSource)
		}
		if len(raw) == 0 {
			raw = p.Default
		}
		value = r.tr.Translate(raw, tag)
	case config.ParamKindMultiLanguage:
		value = fieldInLanguage(doc, p.Source, tag)
	default:
		value = doc.First(p.Source)
	}

	if len(value) == 0 {
		if p.Source != index.FieldLabel {
			return ""
		}
		value = r.tr.Translate(doc.First(index.FieldDocStruct), tag)
		if len(value) == 0 {
			return ""
		}
	}
	return r.affix(p.Prefix, tag) + value + r.affix(p.Suffix, tag)
}

// affix translates prefix or suffix keeping surrounding white space intact.
func (r *LabelResolver) affix(text string, tag language.Tag) string {
	core := strings.TrimFunc(text, unicode.IsSpace)
	if len(core) == 0 {
		return text
	}
	start := strings.Index(text, core)
	return text[:start] + r.tr.Translate(core, tag) + text[start+len(core):]
}
