// Command decodegen compiles a rule table into a Go dispatch function.
//
//	decodegen -o dispatch_gen.go -pkg vm table.dsl
//	decodegen -dump table.yaml
//
// Tables may be DSL text or a YAML manifest (.yaml/.yml). Pure mapping
// functions cannot be supplied on the command line; tables using them must
// be compiled through the library instead.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog/log"

	"decodegen/pkg/decodegen"
)

func main() {
	out := flag.String("o", "dispatch_gen.go", "output file for generated Go source")
	pkg := flag.String("pkg", "main", "package clause of the generated file")
	fallback := flag.String("fallback", "", "handler name for unmatched opcodes (default: panic)")
	allowUnreachable := flag.Bool("allow-unreachable", false, "downgrade fully shadowed rules to warnings")
	maxEntries := flag.Int("max-entries", 0, "cap on a single rule's expansion (0 = default)")
	dump := flag.Bool("dump", false, "dump the compiled decision table instead of generating source")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: decodegen [flags] <table.dsl|table.yaml>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	src, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Msg("Error reading rule table")
		os.Exit(1)
	}

	opts := decodegen.Options{
		AllowUnreachable:  *allowUnreachable,
		MaxEntriesPerRule: *maxEntries,
		Package:           *pkg,
		Fallback:          *fallback,
	}

	var table *decodegen.Table
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		table, err = decodegen.CompileManifest(src, opts)
	} else {
		table, err = decodegen.Compile(string(src), opts)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error compiling rule table")
		os.Exit(1)
	}

	for _, w := range table.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	if *dump {
		spew.Dump(table)
		return
	}

	generated, err := decodegen.Generate(table, opts)
	if err != nil {
		log.Error().Err(err).Msg("Error generating dispatcher source")
		os.Exit(1)
	}

	if err := os.WriteFile(*out, generated, 0644); err != nil {
		log.Error().Err(err).Msg("Error writing generated source")
		os.Exit(1)
	}
	log.Info().Str("output", *out).Int("entries", len(table.Entries)).Msg("Dispatcher generated")
}
