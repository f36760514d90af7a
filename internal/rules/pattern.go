package rules

import "strings"

// BitKind classifies one position of a bit pattern.
type BitKind int

const (
	BitFixed0 BitKind = iota
	BitFixed1
	BitWildcard
	BitVariable
)

// BitSpec is one position of a pattern. Var is set for BitVariable only.
type BitSpec struct {
	Kind BitKind
	Var  byte
}

// Pattern is an ordered sequence of bit specifiers, one per opcode bit,
// position 0 being the most significant bit.
type Pattern struct {
	Width int
	Bits  []BitSpec
}

// FixedMask returns the mask covering the pattern's fixed 0/1 positions.
func (p Pattern) FixedMask() uint64 {
	var m uint64
	for i, b := range p.Bits {
		if b.Kind == BitFixed0 || b.Kind == BitFixed1 {
			m |= 1 << uint(p.Width-1-i)
		}
	}
	return m
}

// FixedValue returns the literal value contributed by the fixed 1 bits.
func (p Pattern) FixedValue() uint64 {
	var v uint64
	for i, b := range p.Bits {
		if b.Kind == BitFixed1 {
			v |= 1 << uint(p.Width-1-i)
		}
	}
	return v
}

// Mask returns the mask covering every non-wildcard position, fixed and
// variable alike. Its popcount is the specificity of the pattern.
func (p Pattern) Mask() uint64 {
	var m uint64
	for i, b := range p.Bits {
		if b.Kind != BitWildcard {
			m |= 1 << uint(p.Width-1-i)
		}
	}
	return m
}

// VarNames returns the distinct variable letters in order of first
// appearance, most significant first.
func (p Pattern) VarNames() []byte {
	var names []byte
	seen := [26]bool{}
	for _, b := range p.Bits {
		if b.Kind != BitVariable {
			continue
		}
		if !seen[b.Var-'a'] {
			seen[b.Var-'a'] = true
			names = append(names, b.Var)
		}
	}
	return names
}

// VarPositions returns the bit positions occupied by the given variable,
// most significant first.
func (p Pattern) VarPositions(name byte) []int {
	var positions []int
	for i, b := range p.Bits {
		if b.Kind == BitVariable && b.Var == name {
			positions = append(positions, i)
		}
	}
	return positions
}

// String reconstructs the pattern text without separators.
func (p Pattern) String() string {
	var sb strings.Builder
	for _, b := range p.Bits {
		switch b.Kind {
		case BitFixed0:
			sb.WriteByte('0')
		case BitFixed1:
			sb.WriteByte('1')
		case BitWildcard:
			sb.WriteByte('_')
		case BitVariable:
			sb.WriteByte(b.Var)
		}
	}
	return sb.String()
}
