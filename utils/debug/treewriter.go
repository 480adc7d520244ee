// Package debug renders indented text dumps of hierarchical structures.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// Node markers.
const (
	MarkLeaf      = ' '
	MarkExpanded  = '-'
	MarkCollapsed = '+'
)

type TreeWriter struct {
	w      *strings.Builder
	indent string
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w:      &strings.Builder{},
		indent: "  ",
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) pad(depth int) {
	for range depth {
		tw.w.WriteString(tw.indent)
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Node writes a line prefixed with expansion marker, hidden nodes are put
// in parentheses.
func (tw TreeWriter) Node(depth int, mark rune, hidden bool, format string, args ...any) {
	tw.pad(depth)
	tw.w.WriteRune(mark)
	tw.w.WriteByte(' ')
	if hidden {
		tw.w.WriteByte('(')
	}
	fmt.Fprintf(tw.w, format, args...)
	if hidden {
		tw.w.WriteByte(')')
	}
	tw.w.WriteByte('\n')
}

func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
