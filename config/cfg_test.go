package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	configPath := writeConfig(t, `version: 1
toc:
  ancestor_fields: [PI_ANCHOR, PI_SERIES]
  grouping_fields:
    Periodical: MD_SERIES
  volumes_page_size: 5
  initial_visible_level: 1
  collapse_threshold: 10
  lowest_level_to_collapse: 2
  label_templates:
    Chapter:
      master: "{no} {title}"
      params:
        - key: no
          kind: field
          source: CURRENTNO
        - key: title
          kind: multilanguage
          source: MD_TITLE
languages:
  supported: [de, en]
access:
  conditions:
    PRINT: [list, download_pdf]
logging:
  console:
    level: quiet
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`)

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if got := cfg.TOC.AncestorFields; !slices.Equal(got, []string{"PI_ANCHOR", "PI_SERIES"}) {
		t.Errorf("AncestorFields = %v", got)
	}
	if cfg.TOC.GroupingFields["Periodical"] != "MD_SERIES" {
		t.Errorf("GroupingFields = %v", cfg.TOC.GroupingFields)
	}
	if cfg.TOC.VolumesPageSize != 5 {
		t.Errorf("VolumesPageSize = %d, want 5", cfg.TOC.VolumesPageSize)
	}
	if cfg.TOC.InitialVisibleLevel != 1 || cfg.TOC.CollapseThreshold != 10 || cfg.TOC.LowestLevelToCollapse != 2 {
		t.Errorf("visibility settings = %d/%d/%d", cfg.TOC.InitialVisibleLevel, cfg.TOC.CollapseThreshold, cfg.TOC.LowestLevelToCollapse)
	}

	tmpl, ok := cfg.TOC.LabelTemplates["Chapter"]
	if !ok {
		t.Fatal("Expected Chapter label template")
	}
	if len(tmpl.Params) != 2 || tmpl.Params[1].Kind != ParamKindMultiLanguage {
		t.Errorf("Chapter params = %+v", tmpl.Params)
	}
	// templates from defaults survive
	if _, ok := cfg.TOC.LabelTemplates["Volume"]; !ok {
		t.Error("Expected default Volume label template to be kept")
	}

	if !slices.Equal(cfg.Languages.Supported, []string{"de", "en"}) {
		t.Errorf("Languages = %v", cfg.Languages.Supported)
	}
	if got := cfg.Access.Conditions["PRINT"]; !slices.Equal(got, []string{"list", "download_pdf"}) {
		t.Errorf("PRINT privileges = %v", got)
	}
	if _, ok := cfg.Access.Conditions["METADATA"]; !ok {
		t.Error("Expected default METADATA condition to be kept")
	}
	if cfg.Logging.ConsoleLogger.Level != "quiet" {
		t.Errorf("console level = %s", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: 1
toc:
  volumes_page_size: 5
  invalid indent
`)
	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	configPath := writeConfig(t, `version: 1
unknown_field: value
`)
	if _, err := LoadConfiguration(configPath); err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_ValidationError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"version", "version: 2\n"},
		{"negative page size", "version: 1\ntoc:\n  volumes_page_size: -1\n"},
		{"bad language", "version: 1\nlanguages:\n  supported: [\"not a language!\"]\n"},
		{"no languages", "version: 1\nlanguages:\n  supported: []\n"},
		{"bad privilege", "version: 1\naccess:\n  conditions:\n    X: [read]\n"},
		{"bad param kind", `version: 1
toc:
  label_templates:
    Chapter:
      master: "{a}"
      params:
        - key: a
          kind: magic
          source: LABEL
`},
		{"placeholder without param", `version: 1
toc:
  label_templates:
    Chapter:
      master: "{a} {b}"
      params:
        - key: a
          kind: field
          source: LABEL
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	// page template has to survive processing untouched
	if !strings.Contains(string(data), "{{ .Record | urlquery }}") {
		t.Error("Prepare() expanded page_template")
	}

	cfg := &Config{}
	if _, err = unmarshalConfig(data, cfg, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	// Verify we can load it back
	cfg2, err := unmarshalConfig(data, &Config{}, true)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}

	if cfg2.URLs.PageTemplate != cfg.URLs.PageTemplate {
		t.Errorf("PageTemplate mismatch after dump/load: got %q, want %q", cfg2.URLs.PageTemplate, cfg.URLs.PageTemplate)
	}
	if len(cfg2.TOC.LabelTemplates) != len(cfg.TOC.LabelTemplates) {
		t.Errorf("LabelTemplates mismatch after dump/load: got %d, want %d", len(cfg2.TOC.LabelTemplates), len(cfg.TOC.LabelTemplates))
	}
}

func TestUnmarshalConfig(t *testing.T) {
	t.Run("valid config without processing", func(t *testing.T) {
		result, err := unmarshalConfig([]byte(`version: 1`), &Config{}, false)
		if err != nil {
			t.Errorf("unmarshalConfig() error = %v", err)
		}
		if result == nil {
			t.Fatal("unmarshalConfig() returned nil")
		}
		if result.Version != 1 {
			t.Errorf("Version = %d, want 1", result.Version)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := unmarshalConfig([]byte(`invalid: [yaml`), &Config{}, false); err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.TOC.VolumesPageSize <= 0 {
		t.Errorf("VolumesPageSize = %d, want positive default", cfg.TOC.VolumesPageSize)
	}
	if cfg.TOC.CollapseThreshold != 0 {
		t.Errorf("CollapseThreshold = %d, length collapsing should be off by default", cfg.TOC.CollapseThreshold)
	}
	if len(cfg.Languages.Supported) == 0 || cfg.Languages.Supported[0] != "en" {
		t.Errorf("Languages = %v, want en first", cfg.Languages.Supported)
	}
	if _, ok := cfg.TOC.LabelTemplates[DefaultTemplateKey]; ok {
		t.Error("Default configuration should not define _DEFAULT template")
	}
}

func TestLoadConfiguration_MergeWithDefaults(t *testing.T) {
	configPath := writeConfig(t, `version: 1
toc:
  initial_visible_level: 0
`)

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.TOC.InitialVisibleLevel != 0 {
		t.Errorf("InitialVisibleLevel = %d, want 0 from config file", cfg.TOC.InitialVisibleLevel)
	}
	if cfg.TOC.VolumesPageSize != 20 {
		t.Errorf("VolumesPageSize = %d, want default 20", cfg.TOC.VolumesPageSize)
	}
	if len(cfg.URLs.PageTemplate) == 0 {
		t.Error("PageTemplate should have default value")
	}
}

func TestLabelTemplate_Placeholders(t *testing.T) {
	tmpl := LabelTemplate{Master: "{label} - {number} {label}"}
	if got := tmpl.Placeholders(); !slices.Equal(got, []string{"label", "number", "label"}) {
		t.Errorf("Placeholders() = %v", got)
	}
}

func TestParseParamKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ParamKind
		wantErr bool
	}{
		{"translated", ParamKindTranslated, false},
		{"multilanguage", ParamKindMultiLanguage, false},
		{"field", ParamKindField, false},
		{"Field", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParamKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseParamKind() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseParamKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutputFmt(t *testing.T) {
	for _, tt := range []struct {
		in  string
		ext string
	}{
		{"text", ".txt"},
		{"yaml", ".yaml"},
	} {
		f, err := ParseOutputFmt(tt.in)
		if err != nil {
			t.Fatalf("ParseOutputFmt(%q) error = %v", tt.in, err)
		}
		if f.String() != tt.in || f.Ext() != tt.ext {
			t.Errorf("OutputFmt(%q) = %s %s", tt.in, f, f.Ext())
		}
	}
	if _, err := ParseOutputFmt("html"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
