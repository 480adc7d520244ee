package toc

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"tocview/access"
	"tocview/index"
)

// ancestorFields returns PI_PARENT followed by configured ancestor fields.
func (b *Builder) ancestorFields() []string {
	fields := []string{index.FieldParentPI}
	for _, f := range b.cfg.AncestorFields {
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// buildLeaf builds a candidate list for every distinct ancestor chain and
// keeps the longest one. Candidates are built in order of ancestor fields and
// among equally long candidates the first one wins.
func (b *Builder) buildLeaf(ctx context.Context, record index.Document, opts BuildOptions) (Groups, error) {
	pi := record.First(index.FieldPI)

	var (
		best      []*Entry
		bestField string
		seen      = make(map[string]bool)
	)
	for _, field := range b.ancestorFields() {
		chain, err := b.ancestors(ctx, record, field)
		if err != nil {
			return nil, err
		}
		key := chainKey(chain)
		if seen[key] {
			continue
		}
		seen[key] = true

		main := field == index.FieldParentPI
		entries, err := b.candidate(ctx, record, chain, main && opts.AllSiblings, &opts)
		if err != nil {
			return nil, err
		}
		b.log.Debug("Ancestor chain candidate",
			zap.String("record", pi),
			zap.String("field", field),
			zap.Int("depth", len(chain)),
			zap.Int("entries", len(entries)))
		if len(entries) > len(best) {
			best, bestField = entries, field
		}
	}
	b.log.Debug("Ancestor chain selected", zap.String("record", pi), zap.String("field", bestField), zap.Int("entries", len(best)))
	return Groups{DefaultGroup: best}, nil
}

func chainKey(chain []index.Document) string {
	ids := make([]string, 0, len(chain))
	for _, d := range chain {
		ids = append(ids, d.First(index.FieldPI))
	}
	return strings.Join(ids, "\x00")
}

// ancestors walks up from record following field (PI_PARENT when the field
// is absent on some level) and returns ancestors root first. Missing
// ancestors end the chain.
func (b *Builder) ancestors(ctx context.Context, record index.Document, field string) ([]index.Document, error) {
	pi := record.First(index.FieldPI)
	seen := map[string]bool{pi: true}

	var chain []index.Document
	cur := record
	for {
		parent := cur.First(field)
		if len(parent) == 0 {
			parent = cur.First(index.FieldParentPI)
		}
		if len(parent) == 0 {
			break
		}
		if seen[parent] {
			b.log.Warn("Ancestor cycle detected", zap.String("record", pi), zap.String("field", field), zap.String("ancestor", parent))
			break
		}
		seen[parent] = true

		doc, err := b.idx.Document(ctx, index.Where(index.FieldPI, parent), nil)
		if err != nil {
			return nil, fmt.Errorf("unable to get ancestor %s of %s: %w", parent, pi, err)
		}
		if doc == nil {
			b.log.Warn("Ancestor not found, skipping", zap.String("record", pi), zap.String("field", field), zap.String("ancestor", parent))
			break
		}
		chain = append(chain, doc)
		cur = doc
	}
	slices.Reverse(chain)
	return chain, nil
}

// candidate lists ancestors, record with its structure and, when requested,
// siblings of the record.
func (b *Builder) candidate(ctx context.Context, record index.Document, chain []index.Document, siblings bool, opts *BuildOptions) ([]*Entry, error) {
	list := newEntryList()
	for level, doc := range chain {
		list.add(b.newEntry(doc, level, opts))
	}

	level := len(chain)
	if siblings && level > 0 {
		if err := b.addSiblings(ctx, list, record, chain[level-1], level, opts); err != nil {
			return nil, err
		}
		return list.entries, nil
	}
	if err := b.addRecord(ctx, list, record, level, opts); err != nil {
		return nil, err
	}
	return list.entries, nil
}

func (b *Builder) addRecord(ctx context.Context, list *entryList, record index.Document, level int, opts *BuildOptions) error {
	pi := record.First(index.FieldPI)
	pdf, err := b.access.Check(ctx, pi, "", access.PrivilegeDownloadPDF)
	if err != nil {
		return fmt.Errorf("unable to check access to %s: %w", pi, err)
	}
	e := b.newEntry(record, level, opts)
	e.PDFPermission = pdf
	if !list.add(e) {
		return nil
	}
	return b.addSubtree(ctx, list, record, level+1, opts)
}

// addSiblings lists all works sharing parent with the record, structure is
// only expanded for the record itself. Siblings which could not be listed
// are skipped.
func (b *Builder) addSiblings(ctx context.Context, list *entryList, record, parent index.Document, level int, opts *BuildOptions) error {
	pi := record.First(index.FieldPI)
	ppi := parent.First(index.FieldPI)
	siblings, err := b.idx.Search(ctx,
		index.Where(index.FieldParentPI, ppi).And(index.FieldIsWork, "true"),
		index.SearchOptions{Sort: b.sortFields(parent.First(index.FieldDocStruct))})
	if err != nil {
		return fmt.Errorf("unable to get siblings of %s: %w", pi, err)
	}

	found := false
	for _, s := range siblings {
		spi := s.First(index.FieldPI)
		if spi == pi {
			found = true
			if err := b.addRecord(ctx, list, record, level, opts); err != nil {
				return err
			}
			continue
		}
		ok, pdf, err := b.permissions(ctx, spi)
		if err != nil {
			return fmt.Errorf("unable to check access to sibling %s: %w", spi, err)
		}
		if !ok {
			continue
		}
		e := b.newEntry(s, level, opts)
		e.PDFPermission = pdf
		list.add(e)
	}
	if !found {
		return b.addRecord(ctx, list, record, level, opts)
	}
	return nil
}
