package toc

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"tocview/access"
	"tocview/config"
	"tocview/index"
	"tocview/urls"
)

// BuildOptions are per request parameters of the builder.
type BuildOptions struct {
	// List all siblings of the record (other volumes of the same anchor).
	AllSiblings bool
	// Media type used when record does not specify one.
	MediaType string
	// Requested page of volumes list for anchor records.
	Page int
}

// Builder produces flat lists of entries (one per group) for a record.
type Builder struct {
	idx    index.Index
	cfg    *config.TOCConfig
	labels *LabelResolver
	access access.Checker
	urls   urls.Builder
	log    *zap.Logger
}

func NewBuilder(idx index.Index, cfg *config.TOCConfig, labels *LabelResolver, checker access.Checker, ub urls.Builder, log *zap.Logger) *Builder {
	return &Builder{
		idx:    idx,
		cfg:    cfg,
		labels: labels,
		access: checker,
		urls:   ub,
		log:    log.Named("toc"),
	}
}

// Build produces groups of entries for the record. Empty record produces no
// groups. Documents missing from index are skipped, index failures are
// returned. Paginator describes volumes list of anchor records.
func (b *Builder) Build(ctx context.Context, record index.Document, opts BuildOptions) (Groups, Paginator, error) {
	if len(record) == 0 || len(record.First(index.FieldPI)) == 0 {
		return Groups{}, NewPaginator(0, 0), nil
	}

	switch {
	case record.First(index.FieldDocType) == index.DocTypeGroup:
		groups, err := b.buildGroup(ctx, record, opts)
		return groups, NewPaginator(0, 0), err
	case record.Bool(index.FieldIsAnchor):
		return b.buildAnchor(ctx, record, opts)
	default:
		groups, err := b.buildLeaf(ctx, record, opts)
		return groups, NewPaginator(0, 0), err
	}
}

// sortFields returns configured order of children for structure type.
func (b *Builder) sortFields(structType string) []index.SortField {
	if fields, ok := b.cfg.SortFields[structType]; ok && len(fields) > 0 {
		return index.SortBy(fields...)
	}
	return index.SortBy(index.FieldCurrentNoSort)
}

// newEntry converts index document into entry. Documents describing whole
// records carry PI, structural elements refer to their record with
// PI_TOPSTRUCT.
func (b *Builder) newEntry(doc index.Document, level int, opts *BuildOptions) *Entry {
	structType := doc.First(index.FieldDocStruct)
	e := &Entry{
		ParentPosition: NoParent,
		Level:          level,
		Label:          b.labels.Resolve(doc, structType),
		PageLabel:      doc.First(index.FieldThumbPageNoLabel),
		LogicalID:      doc.First(index.FieldLogID),
		TopRecordID:    doc.First(index.FieldPI),
		RecordID:       doc.First(index.FieldPI),
		Thumbnail:      doc.First(index.FieldThumbnail),
		MediaType:      doc.First(index.FieldMimeType),
		StructureType:  structType,
		AnchorOrGroup:  doc.Bool(index.FieldIsAnchor) || doc.First(index.FieldDocType) == index.DocTypeGroup,
	}
	if len(e.TopRecordID) == 0 {
		e.TopRecordID = doc.First(index.FieldTopStruct)
		e.RecordID = doc.First(index.FieldIDDoc)
	}
	if n, ok := doc.Int(index.FieldThumbPageNo); ok {
		e.PageNumber = n
	}
	if len(e.MediaType) == 0 {
		e.MediaType = opts.MediaType
	}
	for _, f := range doc.FieldsWithPrefix(index.PrefixGroupID) {
		e.GroupIDs = append(e.GroupIDs, doc.Values(f)...)
	}
	sort.Strings(e.GroupIDs)

	view := urls.ViewForMediaType(e.MediaType, e.AnchorOrGroup)
	if u, err := b.urls.PageURL(e.TopRecordID, e.PageNumber, e.LogicalID, view); err == nil {
		e.URL = u
	} else {
		b.log.Warn("Unable to build entry URL", zap.String("record", e.TopRecordID), zap.Error(err))
	}
	return e
}

// permissions checks listing and PDF download privileges for record.
// Listing denial is reported as false, not as an error.
func (b *Builder) permissions(ctx context.Context, pi string) (list, pdf bool, err error) {
	if list, err = b.access.Check(ctx, pi, "", access.PrivilegeList); err != nil || !list {
		return false, false, err
	}
	if pdf, err = b.access.Check(ctx, pi, "", access.PrivilegeDownloadPDF); err != nil {
		return false, false, err
	}
	return true, pdf, nil
}

// addSubtree appends structural elements of the record below level in pre-order.
// All elements are fetched with a single query and linked through
// IDDOC_PARENT. Children are ordered by page, then by IDDOC.
func (b *Builder) addSubtree(ctx context.Context, list *entryList, record index.Document, level int, opts *BuildOptions) error {
	pi := record.First(index.FieldPI)
	docs, err := b.idx.Search(ctx,
		index.Where(index.FieldTopStruct, pi).And(index.FieldDocType, index.DocTypeDocStruct),
		index.SearchOptions{})
	if err != nil {
		return fmt.Errorf("unable to get structure of %s: %w", pi, err)
	}
	if len(docs) == 0 {
		return nil
	}

	self := record.First(index.FieldIDDoc)
	known := make(map[string]bool, len(docs))
	for _, d := range docs {
		known[d.First(index.FieldIDDoc)] = true
	}
	children := make(map[string][]index.Document)
	for _, d := range docs {
		id := d.First(index.FieldIDDoc)
		if len(self) > 0 && id == self {
			continue
		}
		parent := d.First(index.FieldIDDocParent)
		if parent == self {
			parent = ""
		}
		if len(parent) > 0 && !known[parent] {
			b.log.Warn("Structure element parent not found, skipping",
				zap.String("record", pi), zap.String("iddoc", id), zap.String("parent", parent))
			continue
		}
		children[parent] = append(children[parent], d)
	}
	for _, siblings := range children {
		slices.SortStableFunc(siblings, compareStructure)
	}

	visited := make(map[string]bool, len(docs))
	var walk func(parent string, level int) error
	walk = func(parent string, level int) error {
		for _, d := range children[parent] {
			id := d.First(index.FieldIDDoc)
			if visited[id] {
				continue
			}
			visited[id] = true

			e := b.newEntry(d, level, opts)
			if e.PDFPermission, err = b.access.Check(ctx, pi, e.LogicalID, access.PrivilegeDownloadPDF); err != nil {
				return fmt.Errorf("unable to check access to %s/%s: %w", pi, e.LogicalID, err)
			}
			if !list.add(e) {
				continue
			}
			if len(id) > 0 {
				if err := walk(id, level+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk("", level)
}

func compareStructure(a, b index.Document) int {
	pa, _ := a.Int(index.FieldThumbPageNo)
	pb, _ := b.Int(index.FieldThumbPageNo)
	if pa != pb {
		return pa - pb
	}
	ia, ib := a.First(index.FieldIDDoc), b.First(index.FieldIDDoc)
	if ia == ib {
		return 0
	}
	if natural.Less(ia, ib) {
		return -1
	}
	return 1
}

// groupOrder returns explicit member order within group or false.
func groupOrder(doc index.Document, groupType string) (int, bool) {
	s := doc.First(index.PrefixGroupOrder + groupType)
	if len(s) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
