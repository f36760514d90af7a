// Package decodegen is the public surface of the decoder-table compiler.
// It compiles a declarative rule table (DSL text or YAML manifest) into an
// immutable decision table, and turns that table into either generated Go
// source or a runtime dispatcher.
package decodegen

import (
	"decodegen/internal/compiler"
	"decodegen/internal/compiler/codegen"
	"decodegen/internal/compiler/decision"
	"decodegen/internal/manifest"
	"decodegen/internal/rules"
	"decodegen/internal/runtime"
)

// Re-exported pipeline types.
type (
	Table      = decision.Table
	Entry      = decision.Entry
	Warning    = decision.Warning
	Constant   = rules.Constant
	MapFunc    = rules.MapFunc
	Dispatcher = runtime.Dispatcher
	Handler    = runtime.HandlerFunc
)

// Sentinel errors, matchable with errors.Is.
var (
	ErrMalformedPattern      = compiler.ErrMalformedPattern
	ErrMissingMapping        = compiler.ErrMissingMapping
	ErrUnmappedCombination   = compiler.ErrUnmappedCombination
	ErrVariableWidthOverflow = compiler.ErrVariableWidthOverflow
	ErrUnreachablePattern    = compiler.ErrUnreachablePattern
)

// Options configure compilation and generation.
type Options struct {
	// Funcs supplies pure mapping functions referenced by name in where
	// clauses.
	Funcs map[string]MapFunc
	// AllowUnreachable downgrades fully shadowed rules to warnings.
	AllowUnreachable bool
	// MaxEntriesPerRule caps a single rule's expansion; a sensible default
	// applies when zero.
	MaxEntriesPerRule int
	// Package is the package clause of generated source; "main" when empty.
	Package string
	// Fallback names a handler for unmatched opcodes in generated source;
	// the generated dispatcher panics when empty.
	Fallback string
}

func (o Options) pipeline() compiler.Options {
	return compiler.Options{
		Funcs:             o.Funcs,
		AllowUnreachable:  o.AllowUnreachable,
		MaxEntriesPerRule: o.MaxEntriesPerRule,
	}
}

// Compile compiles DSL text into a decision table.
func Compile(src string, opts Options) (*Table, error) {
	return compiler.CompileSource(src, opts.pipeline())
}

// CompileManifest compiles a YAML rule manifest into a decision table.
func CompileManifest(data []byte, opts Options) (*Table, error) {
	rs, err := manifest.Load(data)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(rs, opts.pipeline())
}

// Generate renders a compiled table as Go source with one specialized case
// per dispatch entry.
func Generate(table *Table, opts Options) ([]byte, error) {
	g := codegen.NewGenerator(table, codegen.Options{
		Package:  opts.Package,
		Fallback: opts.Fallback,
	})
	return g.Generate()
}

// NewDispatcher creates a runtime dispatcher over a compiled table. Register
// each handler the table names, then Validate before first use.
func NewDispatcher(table *Table) *Dispatcher {
	return runtime.NewDispatcher(table)
}
