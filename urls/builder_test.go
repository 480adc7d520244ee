package urls

import "testing"

const defaultTemplate = `{{ .Base }}/{{ .View }}/{{ .Record | urlquery }}/{{ .Page }}/{{ .LogicalID | default "-" }}/`

func TestTemplateBuilder_PageURL(t *testing.T) {
	b, err := NewTemplateBuilder("https://viewer.example.org/", defaultTemplate)
	if err != nil {
		t.Fatalf("NewTemplateBuilder() error = %v", err)
	}

	tests := []struct {
		name    string
		record  string
		page    int
		logical string
		view    View
		want    string
	}{
		{"full", "PPN123", 5, "LOG_0003", ViewImage, "https://viewer.example.org/image/PPN123/5/LOG_0003/"},
		{"no logical id", "PPN123", 2, "", ViewObject, "https://viewer.example.org/object/PPN123/2/-/"},
		{"page clamped", "PPN123", 0, "", ViewTOC, "https://viewer.example.org/toc/PPN123/1/-/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.PageURL(tt.record, tt.page, tt.logical, tt.view)
			if err != nil {
				t.Fatalf("PageURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemplateBuilder_Slug(t *testing.T) {
	b, err := NewTemplateBuilder("", `/{{ .Record | slug }}`)
	if err != nil {
		t.Fatalf("NewTemplateBuilder() error = %v", err)
	}
	got, err := b.PageURL("Über Alles 1", 1, "", ViewImage)
	if err != nil {
		t.Fatalf("PageURL() error = %v", err)
	}
	if got != "/uber-alles-1" {
		t.Errorf("PageURL() = %q", got)
	}
}

func TestNewTemplateBuilder_Invalid(t *testing.T) {
	if _, err := NewTemplateBuilder("", "{{ .Base "); err == nil {
		t.Error("Expected error for malformed template")
	}
}

func TestTemplateBuilder_UnknownField(t *testing.T) {
	b, err := NewTemplateBuilder("", "{{ .Nope }}")
	if err != nil {
		t.Fatalf("NewTemplateBuilder() error = %v", err)
	}
	if _, err := b.PageURL("R", 1, "", ViewImage); err == nil {
		t.Error("Expected error for unknown template field")
	}
}

func TestViewForMediaType(t *testing.T) {
	tests := []struct {
		mime   string
		anchor bool
		want   View
	}{
		{"image/tiff", false, ViewImage},
		{"", false, ViewImage},
		{"video/mp4", false, ViewObject},
		{"audio/mpeg", false, ViewObject},
		{"model/gltf+json", false, ViewObject},
		{"image/tiff", true, ViewTOC},
	}
	for _, tt := range tests {
		if got := ViewForMediaType(tt.mime, tt.anchor); got != tt.want {
			t.Errorf("ViewForMediaType(%q, %v) = %q, want %q", tt.mime, tt.anchor, got, tt.want)
		}
	}
}
