// Package toc builds hierarchical table of contents of a record from flat
// metadata index documents and keeps collapsible view state of it.
package toc

import (
	"slices"
	"sort"

	"github.com/maruel/natural"
)

// DefaultGroup is the name of the group every view has.
const DefaultGroup = ""

// NoParent is ParentPosition of root entries.
const NoParent = -1

// Entry is a single node of flattened (pre-order) tree. Position is the node
// identity, all view operations refer to entries by it. After the tree is
// built only Visible and Expanded change.
type Entry struct {
	Position       int    `yaml:"position"`
	ParentPosition int    `yaml:"parent"`
	Level          int    `yaml:"level"`
	Label          Label  `yaml:"label"`
	PageNumber     int    `yaml:"page,omitempty"`
	PageLabel      string `yaml:"page_label,omitempty"`
	LogicalID      string `yaml:"logid,omitempty"`
	TopRecordID    string `yaml:"top_record"`
	RecordID       string `yaml:"record,omitempty"`
	Thumbnail      string `yaml:"thumbnail,omitempty"`
	MediaType      string `yaml:"media_type,omitempty"`
	StructureType  string `yaml:"structure_type,omitempty"`
	URL            string `yaml:"url,omitempty"`

	AnchorOrGroup bool     `yaml:"anchor_or_group,omitempty"`
	PDFPermission bool     `yaml:"pdf,omitempty"`
	GroupIDs      []string `yaml:"groups,omitempty"`

	Visible  bool `yaml:"visible"`
	Expanded bool `yaml:"expanded"`
	HasChild bool `yaml:"has_child"`
}

// entryKey is what makes entries equal for deduplication.
type entryKey struct {
	logicalID   string
	page        int
	topRecordID string
}

func (e *Entry) key() entryKey {
	return entryKey{logicalID: e.LogicalID, page: e.PageNumber, topRecordID: e.TopRecordID}
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Label = e.Label.Clone()
	c.GroupIDs = slices.Clone(e.GroupIDs)
	return &c
}

// Groups maps group name to flat list of entries.
type Groups map[string][]*Entry

// Names returns group names, default group first, others in natural order.
func (g Groups) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		if name != DefaultGroup {
			names = append(names, name)
		}
	}
	sort.Sort(natural.StringSlice(names))
	if _, ok := g[DefaultGroup]; ok {
		names = append([]string{DefaultGroup}, names...)
	}
	return names
}

// Len returns number of entries in all groups.
func (g Groups) Len() int {
	var n int
	for _, entries := range g {
		n += len(entries)
	}
	return n
}

func cloneEntries(entries []*Entry) []*Entry {
	out := make([]*Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// entryList accumulates entries of a single group skipping duplicates.
type entryList struct {
	entries []*Entry
	seen    map[entryKey]bool
}

func newEntryList() *entryList {
	return &entryList{seen: make(map[entryKey]bool)}
}

// add appends entry unless an equal one is already present. Returns false for
// duplicates.
func (l *entryList) add(e *Entry) bool {
	k := e.key()
	if l.seen[k] {
		return false
	}
	l.seen[k] = true
	e.Position = len(l.entries)
	l.entries = append(l.entries, e)
	return true
}

func (l *entryList) len() int {
	return len(l.entries)
}
