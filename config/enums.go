package config

import "fmt"

// ParamKind is how a label template parameter gets its value.
type ParamKind string

const (
	// Value of the source field (or alternate field or default) translated
	// into every language.
	ParamKindTranslated ParamKind = "translated"
	// Language specific variants <FIELD>_LANG_<XX> of the source field.
	ParamKindMultiLanguage ParamKind = "multilanguage"
	// Literal copy of the source field.
	ParamKindField ParamKind = "field"
)

func (k ParamKind) String() string {
	return string(k)
}

// ParseParamKind converts string to ParamKind.
func ParseParamKind(name string) (ParamKind, error) {
	switch k := ParamKind(name); k {
	case ParamKindTranslated, ParamKindMultiLanguage, ParamKindField:
		return k, nil
	}
	return "", fmt.Errorf("%s is not a valid ParamKind", name)
}

// OutputFmt is requested format of the table of contents dump.
type OutputFmt string

const (
	OutputFmtText OutputFmt = "text"
	OutputFmtYAML OutputFmt = "yaml"
)

func (o OutputFmt) String() string {
	return string(o)
}

// ParseOutputFmt converts string to OutputFmt.
func ParseOutputFmt(name string) (OutputFmt, error) {
	switch o := OutputFmt(name); o {
	case OutputFmtText, OutputFmtYAML:
		return o, nil
	}
	return "", fmt.Errorf("%s is not a valid OutputFmt", name)
}

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtText:
		return ".txt"
	case OutputFmtYAML:
		return ".yaml"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// OutputFmtNames returns names of all supported output formats.
func OutputFmtNames() []string {
	return []string{OutputFmtText.String(), OutputFmtYAML.String()}
}
