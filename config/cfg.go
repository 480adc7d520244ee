package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// LabelParam describes how a single {key} placeholder of label template
	// is resolved from index document.
	LabelParam struct {
		Key       string    `yaml:"key" validate:"required"`
		Kind      ParamKind `yaml:"kind" validate:"oneof=translated multilanguage field"`
		Source    string    `yaml:"source" validate:"required"`
		AltSource string    `yaml:"alt_source,omitempty"`
		Default   string    `yaml:"default,omitempty"`
		Prefix    string    `yaml:"prefix,omitempty"`
		Suffix    string    `yaml:"suffix,omitempty"`
	}

	LabelTemplate struct {
		Master string       `yaml:"master" validate:"required"`
		Params []LabelParam `yaml:"params" validate:"dive"`
	}

	TOCConfig struct {
		// Ancestor identifier fields, PI_PARENT is always tried first.
		AncestorFields []string `yaml:"ancestor_fields" validate:"dive,required"`
		// Structure type of anchor -> volume field used to split volumes into named groups.
		GroupingFields map[string]string `yaml:"grouping_fields"`
		// Structure type -> fields used to order volumes or siblings.
		SortFields            map[string][]string      `yaml:"sort_fields" validate:"dive,dive,required"`
		VolumesPageSize       int                      `yaml:"volumes_page_size" validate:"gte=0"`
		InitialVisibleLevel   int                      `yaml:"initial_visible_level" validate:"gte=0"`
		CollapseThreshold     int                      `yaml:"collapse_threshold" validate:"gte=0"`
		LowestLevelToCollapse int                      `yaml:"lowest_level_to_collapse" validate:"gte=0"`
		LabelTemplates        map[string]LabelTemplate `yaml:"label_templates" validate:"dive"`
	}

	IndexConfig struct {
		Path string `yaml:"path,omitempty" sanitize:"path_clean"`
	}

	LanguagesConfig struct {
		Supported    []string `yaml:"supported" validate:"min=1,dive,bcp47_language_tag"`
		MessagesPath string   `yaml:"messages_path,omitempty" sanitize:"path_clean"`
	}

	AccessConfig struct {
		// Access condition -> privileges it grants. OPENACCESS always grants everything.
		Conditions map[string][]string `yaml:"conditions" validate:"dive,dive,oneof=list download_pdf"`
	}

	URLConfig struct {
		Base         string `yaml:"base" validate:"omitempty,url"`
		PageTemplate string `yaml:"page_template" validate:"required"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		TOC       TOCConfig       `yaml:"toc"`
		Index     IndexConfig     `yaml:"index"`
		Languages LanguagesConfig `yaml:"languages"`
		Access    AccessConfig    `yaml:"access"`
		URLs      URLConfig       `yaml:"urls"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, gencfg must leave go templates
	// used at run time alone
	PageTemplateFieldName TemplateFieldName = "page_template"
)

// DefaultTemplateKey is the label template used for structure types without
// own template.
const DefaultTemplateKey = "_DEFAULT"

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(PageTemplateFieldName)),
)

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// Placeholders returns keys of all {key} placeholders of master template.
func (t *LabelTemplate) Placeholders() []string {
	var keys []string
	for _, m := range placeholderRe.FindAllStringSubmatch(t.Master, -1) {
		keys = append(keys, m[1])
	}
	return keys
}

// checkTemplates makes sure every placeholder of a label template has a
// parameter describing it.
func checkTemplates(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	for name, tmpl := range cfg.TOC.LabelTemplates {
		known := make(map[string]bool, len(tmpl.Params))
		for _, p := range tmpl.Params {
			known[p.Key] = true
		}
		for _, key := range tmpl.Placeholders() {
			if !known[key] {
				sl.ReportError(tmpl.Master, "TOC.LabelTemplates["+name+"].Master", "Master", "placeholder_"+key, "")
			}
		}
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkTemplates)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
