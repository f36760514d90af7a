// Package codegen emits a compiled decision table as Go source: one
// dispatch function with one case per dispatch entry, bound values appearing
// as constant literals at each handler call site so the Go compiler sees a
// fully specialized call per case.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"

	"github.com/rs/zerolog/log"

	"decodegen/internal/compiler/decision"
)

// Options configure the generated source.
type Options struct {
	// Package is the package clause of the generated file; "main" when
	// empty.
	Package string
	// Fallback names a handler invoked for unmatched opcodes. When empty
	// the generated dispatcher panics, carrying the opcode value.
	Fallback string
}

// Generator emits Go source for one decision table. It is structural only:
// it trusts the table's ordering and disjointness and re-derives nothing.
type Generator struct {
	table *decision.Table
	opts  Options
}

// NewGenerator creates a generator for the given table.
func NewGenerator(table *decision.Table, opts Options) *Generator {
	if opts.Package == "" {
		opts.Package = "main"
	}
	return &Generator{table: table, opts: opts}
}

// Generate renders the dispatch function and returns gofmt-formatted
// source.
func (g *Generator) Generate() ([]byte, error) {
	log.Info().
		Str("dispatcher", g.table.Dispatcher).
		Int("entries", len(g.table.Entries)).
		Msg("Generating dispatcher source...")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by decodegen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", g.opts.Package)
	if g.opts.Fallback == "" {
		fmt.Fprintf(&buf, "import \"fmt\"\n\n")
	}

	fmt.Fprintf(&buf, "// %s decodes opcode and invokes the handler of the first matching\n", g.table.Dispatcher)
	fmt.Fprintf(&buf, "// pattern. Cases are ordered by rule declaration: earlier rules win.\n")
	fmt.Fprintf(&buf, "func %s(ctx *%s, opcode uint%d) {\n",
		g.table.Dispatcher, g.table.Context, g.table.Width)
	fmt.Fprintf(&buf, "\tswitch {\n")

	for _, e := range g.table.Entries {
		g.writeCase(&buf, e)
	}

	fmt.Fprintf(&buf, "\tdefault:\n")
	if g.opts.Fallback != "" {
		fmt.Fprintf(&buf, "\t\t%s(ctx, opcode)\n", g.opts.Fallback)
	} else {
		fmt.Fprintf(&buf, "\t\tpanic(fmt.Sprintf(\"unhandled opcode: %s\", opcode))\n", g.hexVerb())
	}
	fmt.Fprintf(&buf, "\t}\n}\n")

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated dispatcher: %w", err)
	}
	return src, nil
}

func (g *Generator) writeCase(buf *bytes.Buffer, e decision.Entry) {
	if e.Exact(g.table.Width) {
		fmt.Fprintf(buf, "\tcase opcode == %s: // %q\n", g.hex(e.Expected), e.Pattern)
	} else {
		fmt.Fprintf(buf, "\tcase opcode&%s == %s: // %q\n",
			g.hex(e.Mask), g.hex(e.Expected), e.Pattern)
	}

	args := make([]string, 0, len(e.Bound)+2)
	args = append(args, "ctx", "opcode")
	for _, c := range e.Bound {
		args = append(args, c.Expr)
	}
	fmt.Fprintf(buf, "\t\t%s(%s)\n", e.Handler, strings.Join(args, ", "))
}

// hex renders a value zero-padded to the table's opcode width.
func (g *Generator) hex(v uint64) string {
	return fmt.Sprintf("%#0*x", g.table.Width/4+2, v)
}

// hexVerb is the fmt verb the generated panic uses for the opcode.
func (g *Generator) hexVerb() string {
	return fmt.Sprintf("%%#0%dx", g.table.Width/4+2)
}
