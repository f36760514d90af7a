// Package rules defines the data model shared by every stage of the
// decoder-table compiler: patterns, variable bindings, and the rule table
// itself. Values in this package are constructed once by the parser and
// resolver and never mutated afterwards.
package rules

import "fmt"

// BindingKind says how a variable's raw bits become the value passed to a
// handler.
type BindingKind int

const (
	// RawInteger passes the natural unsigned value of the extracted bits
	// through unchanged. This is the default for variables with no mapping
	// clause.
	RawInteger BindingKind = iota
	// LiteralMap maps each raw value to a typed constant through an explicit
	// table. The table must cover every raw value the pattern can produce.
	LiteralMap
	// PureFunction passes the raw value to a caller-supplied total function
	// returning the typed constant.
	PureFunction
)

func (k BindingKind) String() string {
	switch k {
	case RawInteger:
		return "raw"
	case LiteralMap:
		return "literal"
	case PureFunction:
		return "func"
	default:
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
}

// Constant is one typed constant bound to a handler parameter. Expr is the
// Go expression the code generator prints at the call site; Value is what
// the table-walking dispatcher passes at runtime.
type Constant struct {
	Expr  string
	Value any
}

// RawConstant builds the passthrough constant for a RawInteger variable.
func RawConstant(raw uint64) Constant {
	return Constant{Expr: fmt.Sprintf("%#x", raw), Value: raw}
}

// MapFunc converts the raw bits of a variable into a typed constant. It must
// be total over [0, 2^k) for a k-bit variable, deterministic, and free of
// side effects; this is a trusted contract and is not verified.
type MapFunc func(raw uint64) Constant

// Binding describes the mapping strategy declared for one variable.
type Binding struct {
	Kind     BindingKind
	Type     string
	Literals map[uint64]Constant // LiteralMap only
	FuncName string              // PureFunction only, as written in the source
	Func     MapFunc             // PureFunction only, filled by the resolver
}

// VariableGroup records where one variable's bits live in a pattern, most
// significant first, together with its resolved binding.
type VariableGroup struct {
	Name      byte
	Positions []int
	Binding   Binding
}

// WidthBits is the number of bits the variable spans.
func (g VariableGroup) WidthBits() int { return len(g.Positions) }

// Mask returns the bits of an opcode of the given width occupied by this
// variable.
func (g VariableGroup) Mask(width int) uint64 {
	var m uint64
	for _, p := range g.Positions {
		m |= 1 << uint(width-1-p)
	}
	return m
}

// Extract pulls the variable's raw value out of an opcode, reassembling
// non-contiguous bits most significant first.
func (g VariableGroup) Extract(opcode uint64, width int) uint64 {
	var raw uint64
	for _, p := range g.Positions {
		raw = raw<<1 | (opcode>>uint(width-1-p))&1
	}
	return raw
}

// Insert places raw at the group's bit positions within value. The least
// significant bit of raw lands at the group's last (least significant)
// position.
func (g VariableGroup) Insert(value, raw uint64, width int) uint64 {
	for i := len(g.Positions) - 1; i >= 0; i-- {
		value |= (raw & 1) << uint(width-1-g.Positions[i])
		raw >>= 1
	}
	return value
}

// Arg is one argument expression in a rule declaration: either a reference
// to a pattern variable or a fixed constant copied through unchanged.
type Arg struct {
	Var   byte // variable letter, 0 for a fixed constant
	Const Constant
}

// IsVar reports whether the argument references a pattern variable.
func (a Arg) IsVar() bool { return a.Var != 0 }

// Rule is one source declaration of the rule table.
type Rule struct {
	Pattern Pattern
	Source  string // pattern text as written, for diagnostics
	Handler string
	Args    []Arg
	Where   map[byte]Binding
	Groups  []VariableGroup // filled by the resolver, in order of appearance
	Index   int             // declaration order, the dispatch priority key
	Line    int
}

// Group returns the resolved variable group for the given letter.
func (r *Rule) Group(name byte) (VariableGroup, bool) {
	for _, g := range r.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return VariableGroup{}, false
}

// RuleSet is the parsed form of one complete rule table.
type RuleSet struct {
	Width      int // opcode width in bits: 8, 16, 32 or 64
	Dispatcher string
	Context    string
	Rules      []*Rule
}

// RawType reports whether a declared type name denotes the raw unsigned
// integer passthrough, which needs no mapping clause.
func RawType(name string) bool {
	switch name {
	case "", "uint", "uint8", "uint16", "uint32", "uint64":
		return true
	}
	return false
}
