package toc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tocview/config"
	"tocview/index"
)

// EntryBuilder produces groups of entries for a record.
type EntryBuilder interface {
	Build(ctx context.Context, record index.Document, opts BuildOptions) (Groups, Paginator, error)
}

// ViewOptions are the initial request parameters of a view.
type ViewOptions struct {
	Build   BuildOptions
	Tree    TreeParams
	Current Locator
}

// NewViewOptions fills tree parameters from configuration.
func NewViewOptions(cfg *config.TOCConfig) ViewOptions {
	return ViewOptions{
		Tree: TreeParams{
			VisibleLevel:          cfg.InitialVisibleLevel,
			CollapseThreshold:     cfg.CollapseThreshold,
			LowestLevelToCollapse: cfg.LowestLevelToCollapse,
		},
	}
}

// View is table of contents of a single record as seen by one reader. Groups
// are built lazily on first access, exactly once, and rebuilt after record,
// page or current element change. Expand and collapse operations are not
// synchronized.
type View struct {
	id      uuid.UUID
	builder EntryBuilder
	log     *zap.Logger

	mu     sync.Mutex
	record index.Document
	opts   ViewOptions
	built  bool
	flat   []*Entry
	trees  map[string]*Tree
	names  []string
	pager  Paginator
}

func NewView(builder EntryBuilder, record index.Document, opts ViewOptions, log *zap.Logger) *View {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &View{
		id:      id,
		builder: builder,
		record:  record,
		opts:    opts,
		log:     log.With(zap.Stringer("view", id)),
	}
}

func (v *View) ID() string {
	return v.id.String()
}

// Build builds groups unless they are already built. Concurrent callers wait
// for the build in progress. On failure view stays unbuilt and nothing of
// partial result is kept.
func (v *View) Build(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.build(ctx)
}

func (v *View) build(ctx context.Context) error {
	if v.built {
		return nil
	}
	start := time.Now()
	pi := v.record.First(index.FieldPI)

	groups, pager, err := v.builder.Build(ctx, v.record, v.opts.Build)
	if err != nil {
		return fmt.Errorf("unable to build table of contents of %s: %w", pi, err)
	}

	flat := cloneEntries(groups[DefaultGroup])
	trees := make(map[string]*Tree, len(groups))
	for name, entries := range groups {
		params := v.opts.Tree
		params.CollapseLong = name == DefaultGroup
		params.Current = v.opts.Current
		t := NewTree(entries)
		t.Build(params)
		trees[name] = t
	}
	if _, ok := trees[DefaultGroup]; !ok {
		t := NewTree(nil)
		t.Build(v.opts.Tree)
		trees[DefaultGroup] = t
	}

	v.flat, v.trees, v.names, v.pager = flat, trees, groups.Names(), pager
	v.built = true
	v.log.Debug("Table of contents built",
		zap.String("record", pi),
		zap.Int("entries", groups.Len()),
		zap.Int("groups", len(groups)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (v *View) invalidate() {
	v.built = false
	v.flat, v.trees, v.names, v.pager = nil, nil, nil, Paginator{}
}

func (v *View) tree(ctx context.Context, group string) (*Tree, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.build(ctx); err != nil {
		return nil, err
	}
	t, ok := v.trees[group]
	if !ok {
		return nil, fmt.Errorf("no table of contents group '%s'", group)
	}
	return t, nil
}

// Flat returns default group as produced by builder, before view state was
// computed.
func (v *View) Flat(ctx context.Context) ([]*Entry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.build(ctx); err != nil {
		return nil, err
	}
	return v.flat, nil
}

// Tree returns default group.
func (v *View) Tree(ctx context.Context) (*Tree, error) {
	return v.tree(ctx, DefaultGroup)
}

func (v *View) Group(ctx context.Context, name string) (*Tree, error) {
	return v.tree(ctx, name)
}

// GroupNames returns default group name first and the others in natural order.
func (v *View) GroupNames(ctx context.Context) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.build(ctx); err != nil {
		return nil, err
	}
	return v.names, nil
}

func (v *View) Expand(ctx context.Context, group string, pos int) error {
	t, err := v.tree(ctx, group)
	if err != nil {
		return err
	}
	t.Expand(pos)
	return nil
}

func (v *View) Collapse(ctx context.Context, group string, pos int) error {
	t, err := v.tree(ctx, group)
	if err != nil {
		return err
	}
	t.Collapse(pos)
	return nil
}

func (v *View) ExpandAll(ctx context.Context, group string) error {
	t, err := v.tree(ctx, group)
	if err != nil {
		return err
	}
	t.ExpandAll()
	return nil
}

func (v *View) CollapseAll(ctx context.Context, group string) error {
	t, err := v.tree(ctx, group)
	if err != nil {
		return err
	}
	t.CollapseAll()
	return nil
}

// SetPage selects page of volumes list, view is rebuilt on next access.
func (v *View) SetPage(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.built && v.pager.Page() == min(max(n, 1), v.pager.Pages()) {
		return
	}
	v.opts.Build.Page = n
	v.invalidate()
}

// SetCurrent changes element kept visible, view is rebuilt on next access.
func (v *View) SetCurrent(l Locator) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.Current = l
	v.invalidate()
}

// SetRecord switches view to another record, view is rebuilt on next access.
func (v *View) SetRecord(record index.Document) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record = record
	v.opts.Build.Page = 1
	v.invalidate()
}

// Page returns current page of volumes list.
func (v *View) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.built {
		return max(v.opts.Build.Page, 1)
	}
	return v.pager.Page()
}

// Pages returns number of pages of volumes list, 1 before view is built.
func (v *View) Pages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pager.Pages()
}

// MaxDepth returns deepest level of default group, 0 before view is built.
func (v *View) MaxDepth() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.built {
		return 0
	}
	return v.trees[DefaultGroup].MaxDepth()
}

// Empty reports whether there is no table of contents for the record.
func (v *View) Empty(ctx context.Context) (bool, error) {
	t, err := v.Tree(ctx)
	if err != nil {
		return false, err
	}
	return t.Len() == 0, nil
}
