package index

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// ErrUnreachable is returned (wrapped) when the index cannot be queried at
// all. Absent documents are never reported with it.
var ErrUnreachable = errors.New("metadata index unreachable")

// Term requires field to have value (any of its values for multi-valued fields).
type Term struct {
	Field string
	Value string
}

// Query is a conjunction of terms.
type Query []Term

func Where(field, value string) Query {
	return Query{{Field: field, Value: value}}
}

func (q Query) And(field, value string) Query {
	return append(slices.Clone(q), Term{Field: field, Value: value})
}

// Matches reports whether document satisfies every term of the query.
func (q Query) Matches(d Document) bool {
	for _, t := range q {
		if !slices.Contains(d.Values(t.Field), t.Value) {
			return false
		}
	}
	return true
}

func (q Query) String() string {
	parts := make([]string, 0, len(q))
	for _, t := range q {
		parts = append(parts, t.Field+":"+t.Value)
	}
	return strings.Join(parts, " AND ")
}

type SortField struct {
	Field      string
	Descending bool
}

// SortBy builds ascending sort specification from field names.
func SortBy(fields ...string) []SortField {
	out := make([]SortField, 0, len(fields))
	for _, f := range fields {
		out = append(out, SortField{Field: f})
	}
	return out
}

type SearchOptions struct {
	Sort   []SortField
	Fields []string
	Offset int
	// Limit <= 0 means no limit.
	Limit int
}

// Index is the read side of the metadata index.
type Index interface {
	// Document returns first document matching query or nil when there is none.
	Document(ctx context.Context, q Query, fields []string) (Document, error)
	Search(ctx context.Context, q Query, opts SearchOptions) ([]Document, error)
	Count(ctx context.Context, q Query) (int, error)
}

// Store is an index which could be populated and has to be closed.
type Store interface {
	Index
	Add(ctx context.Context, docs ...Document) error
	Close() error
}

// sortDocuments orders documents in place using natural order of the first
// field value. Documents missing a sort field go after those having it,
// original order is kept for equal keys.
func sortDocuments(docs []Document, sort []SortField) {
	if len(sort) == 0 {
		return
	}
	slices.SortStableFunc(docs, func(a, b Document) int {
		for _, s := range sort {
			av, bv := a.First(s.Field), b.First(s.Field)
			var c int
			switch {
			case av == bv:
				continue
			case len(av) == 0:
				return 1
			case len(bv) == 0:
				return -1
			case natural.Less(av, bv):
				c = -1
			default:
				c = 1
			}
			if s.Descending {
				c = -c
			}
			return c
		}
		return 0
	})
}

// page applies offset and limit.
func page(docs []Document, offset, limit int) []Document {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
