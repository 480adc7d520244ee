package toc

import (
	"fmt"
	"slices"
)

// Locator points to the element of a record currently displayed.
type Locator struct {
	TopRecordID string `yaml:"record,omitempty"`
	LogicalID   string `yaml:"logid,omitempty"`
}

func (l Locator) IsZero() bool {
	return len(l.TopRecordID) == 0 && len(l.LogicalID) == 0
}

func (l Locator) matches(e *Entry) bool {
	if len(l.TopRecordID) > 0 && l.TopRecordID != e.TopRecordID {
		return false
	}
	return len(l.LogicalID) == 0 || l.LogicalID == e.LogicalID
}

// TreeParams controls initial view state of the tree.
type TreeParams struct {
	// Entries deeper than this level start hidden.
	VisibleLevel int
	// Runs of siblings longer than this get collapsed, <= 0 disables.
	CollapseThreshold     int
	LowestLevelToCollapse int
	// Length collapsing is only done when set.
	CollapseLong bool
	// Element kept visible with all its ancestors.
	Current Locator
}

// Tree is a group of entries with computed parent links and view state.
type Tree struct {
	entries  []*Entry
	built    bool
	maxDepth int
}

// NewTree takes ownership of the flat pre-order list of entries.
func NewTree(entries []*Entry) *Tree {
	return &Tree{entries: entries}
}

func (t *Tree) mustBeBuilt() {
	if !t.built {
		panic("toc: tree is used before it is built")
	}
}

func (t *Tree) entry(pos int) *Entry {
	t.mustBeBuilt()
	if pos < 0 || pos >= len(t.entries) {
		panic(fmt.Sprintf("toc: position %d is out of range [0, %d)", pos, len(t.entries)))
	}
	return t.entries[pos]
}

// Build computes parent links and initial visibility. It must be called
// exactly once.
func (t *Tree) Build(p TreeParams) {
	if t.built {
		panic("toc: tree is already built")
	}
	t.link(p.VisibleLevel)
	t.built = true

	if p.CollapseLong && p.CollapseThreshold > 0 {
		t.collapseLong(p.CollapseThreshold, p.LowestLevelToCollapse)
	}
	if !p.Current.IsZero() {
		if pos, ok := t.Find(p.Current); ok {
			t.reveal(pos)
		}
	}
}

// link assigns positions, parents and depth based visibility in a single pass.
func (t *Tree) link(visibleLevel int) {
	var stack []int // level -> position of the latest entry at that level
	prevLevel := -1
	for i, e := range t.entries {
		if e.Level < 0 || e.Level > prevLevel+1 {
			panic(fmt.Sprintf("toc: level jumps from %d to %d at position %d", prevLevel, e.Level, i))
		}
		e.Position = i
		e.HasChild = false
		e.ParentPosition = NoParent
		if e.Level > 0 {
			e.ParentPosition = stack[e.Level-1]
		}
		if e.Level == prevLevel+1 && i > 0 {
			t.entries[i-1].HasChild = true
		}
		stack = append(stack[:e.Level], i)
		prevLevel = e.Level
		t.maxDepth = max(t.maxDepth, e.Level)
	}
	for _, e := range t.entries {
		e.Visible = e.Level <= visibleLevel
		e.Expanded = e.HasChild && e.Level+1 <= visibleLevel
	}
}

// collapseLong hides siblings past threshold in every run longer than
// threshold and collapses parent of such run.
func (t *Tree) collapseLong(threshold, lowest int) {
	runs := make(map[int][]int)
	var parents []int
	for _, e := range t.entries {
		if e.Level < lowest {
			continue
		}
		if _, ok := runs[e.ParentPosition]; !ok {
			parents = append(parents, e.ParentPosition)
		}
		runs[e.ParentPosition] = append(runs[e.ParentPosition], e.Position)
	}
	for _, parent := range parents {
		run := runs[parent]
		if len(run) <= threshold {
			continue
		}
		if parent != NoParent {
			t.entries[parent].Expanded = false
		}
		for _, pos := range run[threshold+1:] {
			e := t.entries[pos]
			e.Visible = false
			e.Expanded = false
			t.hideDescendants(pos)
		}
	}
}

// reveal makes entry and its ancestors visible, expands ancestors and shows
// their immediate children.
func (t *Tree) reveal(pos int) {
	t.entries[pos].Visible = true
	for _, a := range t.Ancestors(pos) {
		e := t.entries[a]
		e.Visible = true
		e.Expanded = true
		t.forChildren(a, func(c *Entry) { c.Visible = true })
	}
}

// forChildren calls fn for every direct child of the entry.
func (t *Tree) forChildren(pos int, fn func(*Entry)) {
	level := t.entries[pos].Level
	for j := pos + 1; j < len(t.entries) && t.entries[j].Level > level; j++ {
		if t.entries[j].Level == level+1 {
			fn(t.entries[j])
		}
	}
}

func (t *Tree) hideDescendants(pos int) {
	level := t.entries[pos].Level
	for j := pos + 1; j < len(t.entries) && t.entries[j].Level > level; j++ {
		t.entries[j].Visible = false
	}
}

// Expand shows direct children of the entry and, recursively, children of
// those which are expanded themselves.
func (t *Tree) Expand(pos int) {
	e := t.entry(pos)
	e.Expanded = true
	t.showChildren(pos)
}

func (t *Tree) showChildren(pos int) {
	t.forChildren(pos, func(c *Entry) {
		c.Visible = true
		if c.Expanded && c.HasChild {
			t.showChildren(c.Position)
		}
	})
}

// Collapse hides all descendants of the entry. Expanded state of descendants
// is kept so expanding entry again restores them.
func (t *Tree) Collapse(pos int) {
	e := t.entry(pos)
	e.Expanded = false
	t.hideDescendants(pos)
}

func (t *Tree) ExpandAll() {
	t.mustBeBuilt()
	for _, e := range t.entries {
		e.Visible = true
		e.Expanded = e.HasChild
	}
}

// CollapseAll leaves only root entries visible.
func (t *Tree) CollapseAll() {
	t.mustBeBuilt()
	for _, e := range t.entries {
		if e.Level == 0 {
			e.Visible = true
			e.Expanded = false
			continue
		}
		e.Visible = false
	}
}

// Entries returns all entries of the tree in pre-order.
func (t *Tree) Entries() []*Entry {
	t.mustBeBuilt()
	return t.entries
}

func (t *Tree) VisibleEntries() []*Entry {
	t.mustBeBuilt()
	var out []*Entry
	for _, e := range t.entries {
		if e.Visible {
			out = append(out, e)
		}
	}
	return out
}

func (t *Tree) Len() int {
	return len(t.entries)
}

func (t *Tree) MaxDepth() int {
	t.mustBeBuilt()
	return t.maxDepth
}

// Ancestors returns positions of all strict ancestors of the entry, root first.
func (t *Tree) Ancestors(pos int) []int {
	var out []int
	for p := t.entry(pos).ParentPosition; p != NoParent; p = t.entries[p].ParentPosition {
		out = append(out, p)
	}
	slices.Reverse(out)
	return out
}

// Find returns position of the first entry located by l.
func (t *Tree) Find(l Locator) (int, bool) {
	t.mustBeBuilt()
	if l.IsZero() {
		return 0, false
	}
	for _, e := range t.entries {
		if l.matches(e) {
			return e.Position, true
		}
	}
	return 0, false
}
