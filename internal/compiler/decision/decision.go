// Package decision defines the compiled artifact of the decoder-table
// compiler: the ordered decision table and its dispatch entries. A table is
// immutable once the pipeline has produced it.
package decision

import (
	"fmt"
	"strings"

	"decodegen/internal/rules"
)

// Entry is one fully concrete dispatch case: a single masked equality test
// plus the handler it selects and the constant values bound to that
// handler's parameters.
type Entry struct {
	Mask     uint64
	Expected uint64
	Handler  string
	Bound    []rules.Constant
	Rule     int    // declaration index of the originating rule
	Pattern  string // originating pattern text, for diagnostics
}

// Matches reports whether the entry's masked test accepts the opcode.
func (e Entry) Matches(opcode uint64) bool {
	return opcode&e.Mask == e.Expected
}

// Exact reports whether the entry pins every bit of a width-bit opcode.
func (e Entry) Exact(width int) bool {
	return e.Mask == FullMask(width)
}

func (e Entry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "opcode&%#x == %#x -> %s", e.Mask, e.Expected, e.Handler)
	if len(e.Bound) > 0 {
		exprs := make([]string, len(e.Bound))
		for i, c := range e.Bound {
			exprs[i] = c.Expr
		}
		fmt.Fprintf(&sb, "(%s)", strings.Join(exprs, ", "))
	}
	return sb.String()
}

// Warning is a non-fatal finding reported alongside a table.
type Warning struct {
	Code    string
	Message string
}

func (w Warning) String() string {
	return w.Code + ": " + w.Message
}

// Table is the final, priority-ordered sequence of dispatch entries across
// all rules. Entries are evaluated strictly in order; the first match wins.
type Table struct {
	Width      int
	Dispatcher string
	Context    string
	Entries    []Entry
	Warnings   []Warning
}

// Lookup returns the first entry matching the opcode.
func (t *Table) Lookup(opcode uint64) (Entry, bool) {
	for _, e := range t.Entries {
		if e.Matches(opcode) {
			return e, true
		}
	}
	return Entry{}, false
}

// FullMask returns the all-ones mask for the given opcode width.
func FullMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}
