package compiler

import "errors"

// Sentinel errors for the compile-time failure taxonomy. Every fatal
// pipeline error wraps one of these; callers match with errors.Is.
var (
	// ErrMalformedPattern reports a pattern whose length does not equal the
	// declared opcode width, or which contains a character outside the
	// pattern alphabet.
	ErrMalformedPattern = errors.New("malformed pattern")

	// ErrMissingMapping reports a variable declared with a non-raw type but
	// no usable mapping.
	ErrMissingMapping = errors.New("missing mapping")

	// ErrUnmappedCombination reports a literal table that omits a raw value
	// reachable by the pattern.
	ErrUnmappedCombination = errors.New("unmapped combination")

	// ErrVariableWidthOverflow reports an internal consistency failure: a
	// variable's binding domain cannot be represented in its allotted bits,
	// or expansion would exceed the configured entry cap.
	ErrVariableWidthOverflow = errors.New("variable width overflow")

	// ErrUnreachablePattern reports a rule whose entries are all shadowed by
	// earlier rules.
	ErrUnreachablePattern = errors.New("unreachable pattern")
)

// Warning codes attached to a decision table.
const (
	WarnAmbiguousPattern   = "AmbiguousPattern"
	WarnUnreachablePattern = "UnreachablePattern"
)
