package index

import (
	"context"
	"sync"
)

// Memory keeps documents in a slice, used for fixtures and tests.
type Memory struct {
	mu   sync.RWMutex
	docs []Document
}

func NewMemory(docs ...Document) *Memory {
	return &Memory{docs: docs}
}

func (m *Memory) Add(_ context.Context, docs ...Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs = append(m.docs, docs...)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) Document(ctx context.Context, q Query, fields []string) (Document, error) {
	docs, err := m.Search(ctx, q, SearchOptions{Fields: fields, Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (m *Memory) Search(ctx context.Context, q Query, opts SearchOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var found []Document
	for _, d := range m.docs {
		if q.Matches(d) {
			found = append(found, d)
		}
	}
	sortDocuments(found, opts.Sort)
	found = page(found, opts.Offset, opts.Limit)

	out := make([]Document, 0, len(found))
	for _, d := range found {
		out = append(out, d.Project(opts.Fields))
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context, q Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, d := range m.docs {
		if q.Matches(d) {
			n++
		}
	}
	return n, nil
}
