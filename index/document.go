// Package index defines the metadata index the table of contents is built
// from and provides in-memory and SQLite backed implementations of it.
package index

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Field names of index documents.
const (
	FieldPI               = "PI"
	FieldTopStruct        = "PI_TOPSTRUCT"
	FieldParentPI         = "PI_PARENT"
	FieldIDDoc            = "IDDOC"
	FieldIDDocParent      = "IDDOC_PARENT"
	FieldLogID            = "LOGID"
	FieldDocType          = "DOCTYPE"
	FieldDocStruct        = "DOCSTRCT"
	FieldIsWork           = "ISWORK"
	FieldIsAnchor         = "ISANCHOR"
	FieldLabel            = "LABEL"
	FieldTitle            = "MD_TITLE"
	FieldShelfmark        = "MD_SHELFMARK"
	FieldThumbPageNo      = "THUMBPAGENO"
	FieldThumbPageNoLabel = "THUMBPAGENOLABEL"
	FieldThumbnail        = "THUMBNAIL"
	FieldMimeType         = "MIMETYPE"
	FieldGroupType        = "GROUPTYPE"
	FieldCurrentNoSort    = "CURRENTNOSORT"
	FieldAccessCondition  = "ACCESSCONDITION"

	PrefixGroupID    = "GROUPID_"
	PrefixGroupOrder = "GROUPORDER_"

	DocTypeDocStruct = "DOCSTRCT"
	DocTypeGroup     = "GROUP"
)

const langInfix = "_LANG_"

// LangField returns name of the language specific variant of the field, for
// example MD_TITLE_LANG_DE.
func LangField(field string, tag language.Tag) string {
	base, _ := tag.Base()
	return field + langInfix + strings.ToUpper(base.String())
}

// Document is a single index record: field name to scalar or list of scalars.
type Document map[string]any

// Values returns all values of the field converted to strings.
func (d Document) Values(field string) []string {
	v, ok := d[field]
	if !ok || v == nil {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s := scalarString(e); len(s) > 0 {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := scalarString(vv); len(s) > 0 {
			return []string{s}
		}
	}
	return nil
}

// First returns the first value of the field or empty string.
func (d Document) First(field string) string {
	if vals := d.Values(field); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Int returns the first value of the field as integer.
func (d Document) Int(field string) (int, bool) {
	s := d.First(field)
	if len(s) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (d Document) Bool(field string) bool {
	b, err := strconv.ParseBool(d.First(field))
	return err == nil && b
}

func (d Document) Has(field string) bool {
	return len(d.Values(field)) > 0
}

// FieldsWithPrefix returns names of all fields starting with prefix.
func (d Document) FieldsWithPrefix(prefix string) []string {
	var names []string
	for name := range d {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}

// Project returns a copy of the document limited to the requested fields.
// Empty field list means all fields.
func (d Document) Project(fields []string) Document {
	out := make(Document, len(d))
	if len(fields) == 0 {
		for k, v := range d {
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		if v, ok := d[f]; ok {
			out[f] = v
		}
	}
	return out
}

func scalarString(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case fmt.Stringer:
		return vv.String()
	default:
		return fmt.Sprint(vv)
	}
}
