// Package compiler implements the decoder-table pipeline: DSL parsing,
// variable binding resolution, mask/value derivation and cross-product
// expansion, and priority ordering into the final decision table. The
// pipeline runs once per rule table; nothing is re-invoked and nothing is
// mutated after it completes.
package compiler

import (
	"github.com/rs/zerolog/log"

	"decodegen/internal/compiler/decision"
	"decodegen/internal/rules"
)

// Options configure one pipeline run.
type Options struct {
	// Funcs supplies pure mapping functions referenced by name in where
	// clauses. Each must be total over its variable's bit range.
	Funcs map[string]rules.MapFunc
	// AllowUnreachable downgrades fully shadowed rules from a fatal error to
	// a warning, for tables that shadow deliberately.
	AllowUnreachable bool
	// MaxEntriesPerRule caps a single rule's expansion;
	// DefaultMaxEntriesPerRule when zero.
	MaxEntriesPerRule int
}

// Compile runs the full pipeline over an already parsed rule set and
// produces the decision table. The rule set is validated and resolved in
// place; no table is returned if any stage fails.
func Compile(rs *rules.RuleSet, opts Options) (*decision.Table, error) {
	if err := ResolveBindings(rs, opts.Funcs); err != nil {
		return nil, err
	}

	maxEntries := opts.MaxEntriesPerRule
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntriesPerRule
	}

	perRule := make([][]decision.Entry, len(rs.Rules))
	for i, rule := range rs.Rules {
		entries, err := ExpandRule(rule, rs.Width, maxEntries)
		if err != nil {
			return nil, err
		}
		perRule[i] = entries
	}

	table, err := OrderEntries(rs.Width, rs.Dispatcher, rs.Context, perRule, opts.AllowUnreachable)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("dispatcher", table.Dispatcher).
		Int("entries", len(table.Entries)).
		Int("warnings", len(table.Warnings)).
		Msg("Compiled decision table")
	return table, nil
}

// CompileSource parses the DSL text and compiles it in one step.
func CompileSource(src string, opts Options) (*decision.Table, error) {
	rs, err := ParseRuleTable(src)
	if err != nil {
		return nil, err
	}
	return Compile(rs, opts)
}
