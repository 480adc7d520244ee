package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

// fixture is the on-disk YAML form of a set of index documents.
type fixture struct {
	Documents []Document `yaml:"documents"`
}

// LoadYAML reads documents from YAML fixture.
func LoadYAML(r io.Reader) ([]Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f fixture
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode index documents: %w", err)
	}
	return f.Documents, nil
}

// Open opens index at path. SQLite databases are recognized by their
// signature, anything else is treated as YAML fixture and loaded in memory.
func Open(ctx context.Context, path string, log *zap.Logger) (Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read index '%s': %w", ErrUnreachable, path, err)
	}

	if filetype.Is(data, "sqlite") {
		log.Debug("Opening SQLite index", zap.String("path", path))
		return OpenSQLite(path)
	}

	docs, err := LoadYAML(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to load index fixture '%s': %w", path, err)
	}
	log.Debug("Loaded index fixture", zap.String("path", path), zap.Int("documents", len(docs)))

	m := NewMemory()
	if err := m.Add(ctx, docs...); err != nil {
		return nil, err
	}
	return m, nil
}
