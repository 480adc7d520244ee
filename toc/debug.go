package toc

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"tocview/utils/debug"
)

// Dump renders tree as indented text using labels in requested language.
// Hidden entries are put in parentheses, "+" marks collapsed entries with
// children and "-" expanded ones.
func (t *Tree) Dump(tag language.Tag) string {
	tw := debug.NewTreeWriter()
	t.dump(tw, 0, tag)
	return tw.String()
}

func (t *Tree) String() string {
	return t.Dump(language.Und)
}

func (t *Tree) dump(tw *debug.TreeWriter, depth int, tag language.Tag) {
	for _, e := range t.Entries() {
		mark := debug.MarkLeaf
		if e.HasChild {
			mark = debug.MarkCollapsed
			if e.Expanded {
				mark = debug.MarkExpanded
			}
		}
		tw.Node(depth+e.Level, mark, !e.Visible, "[%d] %s", e.Position, describe(e, tag))
	}
}

func describe(e *Entry, tag language.Tag) string {
	var b strings.Builder
	b.WriteString(e.Label.Text(tag))
	if len(e.PageLabel) > 0 {
		b.WriteString(" p." + e.PageLabel)
	}
	if len(e.LogicalID) > 0 {
		b.WriteString(" {" + e.LogicalID + "}")
	}
	if e.PDFPermission {
		b.WriteString(" pdf")
	}
	return b.String()
}

// Dump renders all groups of the view.
func (v *View) Dump(ctx context.Context, tag language.Tag) (string, error) {
	names, err := v.GroupNames(ctx)
	if err != nil {
		return "", err
	}
	tw := debug.NewTreeWriter()
	for _, name := range names {
		t, err := v.Group(ctx, name)
		if err != nil {
			return "", err
		}
		if len(names) > 1 {
			tw.Line(0, "group %q", name)
			t.dump(tw, 1, tag)
			continue
		}
		t.dump(tw, 0, tag)
	}
	return tw.String(), nil
}
