package compiler

import (
	"fmt"
	"strings"

	"decodegen/internal/rules"
)

// Separator is accepted anywhere in a pattern string and discarded before
// validation. It carries no semantic meaning.
const Separator = '\''

// ValidWidth reports whether w is a supported opcode width.
func ValidWidth(w int) bool {
	return w == 8 || w == 16 || w == 32 || w == 64
}

// ParsePattern turns one bit-pattern string into a Pattern of exactly width
// bits. Accepted characters are 0 and 1 for fixed bits, _ or . for
// wildcards, a-z for variables and ' as a discarded separator.
func ParsePattern(src string, width int) (rules.Pattern, error) {
	if !ValidWidth(width) {
		return rules.Pattern{}, fmt.Errorf("%w: unsupported opcode width %d", ErrMalformedPattern, width)
	}

	stripped := strings.ReplaceAll(src, string(Separator), "")
	if len(stripped) != width {
		return rules.Pattern{}, fmt.Errorf("%w: %q is %d bits, declared width is %d",
			ErrMalformedPattern, src, len(stripped), width)
	}

	bits := make([]rules.BitSpec, width)
	for i := 0; i < width; i++ {
		switch ch := stripped[i]; {
		case ch == '0':
			bits[i] = rules.BitSpec{Kind: rules.BitFixed0}
		case ch == '1':
			bits[i] = rules.BitSpec{Kind: rules.BitFixed1}
		case ch == '_' || ch == '.':
			bits[i] = rules.BitSpec{Kind: rules.BitWildcard}
		case ch >= 'a' && ch <= 'z':
			bits[i] = rules.BitSpec{Kind: rules.BitVariable, Var: ch}
		default:
			return rules.Pattern{}, fmt.Errorf("%w: invalid character %q in %q",
				ErrMalformedPattern, string(ch), src)
		}
	}

	return rules.Pattern{Width: width, Bits: bits}, nil
}
