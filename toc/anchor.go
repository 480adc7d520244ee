package toc

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"tocview/index"
)

// buildAnchor lists current page of volumes of multi-volume work. Volumes go
// to groups named by configured grouping field, every group starts with its
// own copy of the anchor entry.
func (b *Builder) buildAnchor(ctx context.Context, record index.Document, opts BuildOptions) (Groups, Paginator, error) {
	pi := record.First(index.FieldPI)
	structType := record.First(index.FieldDocStruct)
	anchor := b.newEntry(record, 0, &opts)
	anchor.AnchorOrGroup = true

	q := index.Where(index.FieldParentPI, pi).And(index.FieldIsWork, "true")
	total, err := b.idx.Count(ctx, q)
	if err != nil {
		return nil, Paginator{}, fmt.Errorf("unable to count volumes of %s: %w", pi, err)
	}
	pager := NewPaginator(total, b.cfg.VolumesPageSize)
	pager.SetPage(opts.Page)

	volumes, err := b.idx.Search(ctx, q, index.SearchOptions{
		Sort:   b.sortFields(structType),
		Offset: pager.Offset(),
		Limit:  pager.Limit(),
	})
	if err != nil {
		return nil, Paginator{}, fmt.Errorf("unable to get volumes of %s: %w", pi, err)
	}

	groupField := b.cfg.GroupingFields[structType]
	lists := map[string]*entryList{DefaultGroup: newEntryList()}
	lists[DefaultGroup].add(anchor)

	var denied int
	for _, vol := range volumes {
		vpi := vol.First(index.FieldPI)
		list, pdf, err := b.permissions(ctx, vpi)
		if err != nil {
			return nil, Paginator{}, fmt.Errorf("unable to check access to volume %s: %w", vpi, err)
		}
		if !list {
			denied++
			continue
		}

		name := DefaultGroup
		if len(groupField) > 0 {
			name = vol.First(groupField)
		}
		l, ok := lists[name]
		if !ok {
			l = newEntryList()
			l.add(anchor.Clone())
			lists[name] = l
		}
		e := b.newEntry(vol, 1, &opts)
		e.PDFPermission = pdf
		l.add(e)
	}

	groups := make(Groups, len(lists))
	for name, l := range lists {
		groups[name] = l.entries
	}
	b.log.Debug("Anchor volumes listed",
		zap.String("record", pi),
		zap.Int("total", total),
		zap.Int("page", pager.Page()),
		zap.Int("pages", pager.Pages()),
		zap.Int("denied", denied),
		zap.Strings("groups", groups.Names()))
	return groups, pager, nil
}

// buildGroup lists members of series or collection. Members with explicit
// order come first, the rest follows in natural order of their labels.
func (b *Builder) buildGroup(ctx context.Context, record index.Document, opts BuildOptions) (Groups, error) {
	pi := record.First(index.FieldPI)
	groupType := record.First(index.FieldGroupType)

	root := b.newEntry(record, 0, &opts)
	root.AnchorOrGroup = true
	if shelfmark := record.First(index.FieldShelfmark); len(shelfmark) > 0 {
		root.Label = Label{Value: shelfmark}
	} else if root.Label.IsEmpty() {
		root.Label = Label{Value: pi}
	}

	members, err := b.idx.Search(ctx, index.Where(index.PrefixGroupID+groupType, pi), index.SearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("unable to get members of group %s: %w", pi, err)
	}

	type member struct {
		entry *Entry
		order int
	}
	var ordered, rest []member
	for _, doc := range members {
		mpi := doc.First(index.FieldPI)
		if mpi == pi {
			continue
		}
		list, pdf, err := b.permissions(ctx, mpi)
		if err != nil {
			return nil, fmt.Errorf("unable to check access to group member %s: %w", mpi, err)
		}
		if !list {
			continue
		}
		e := b.newEntry(doc, 1, &opts)
		e.PDFPermission = pdf
		if n, ok := groupOrder(doc, groupType); ok {
			ordered = append(ordered, member{entry: e, order: n})
		} else {
			rest = append(rest, member{entry: e})
		}
	}
	slices.SortStableFunc(ordered, func(a, b member) int { return a.order - b.order })
	sort.SliceStable(rest, func(i, j int) bool {
		return natural.Less(rest[i].entry.Label.Value, rest[j].entry.Label.Value)
	})

	entries := newEntryList()
	entries.add(root)
	for _, m := range append(ordered, rest...) {
		entries.add(m.entry)
	}
	return Groups{DefaultGroup: entries.entries}, nil
}
