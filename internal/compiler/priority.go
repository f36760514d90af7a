package compiler

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"decodegen/internal/compiler/decision"
)

// OrderEntries assembles the per-rule expansions into the final decision
// table. Entries keep rule declaration order: the author orders rules from
// most specific to least specific, and the first matching entry wins.
//
// Two static checks run here:
//   - a rule all of whose entries are subsumed by earlier entries can never
//     match; this is ErrUnreachablePattern, fatal unless allowUnreachable
//     downgrades it to a warning;
//   - two entries from different rules with identical mask/expected pairs
//     but different handlers dispatch the same opcodes; first match still
//     wins deterministically, so this is only an AmbiguousPattern warning.
func OrderEntries(width int, dispatcher, context string, perRule [][]decision.Entry, allowUnreachable bool) (*decision.Table, error) {
	log.Info().Int("rules", len(perRule)).Msg("Ordering dispatch entries...")

	table := &decision.Table{
		Width:      width,
		Dispatcher: dispatcher,
		Context:    context,
	}

	for _, entries := range perRule {
		if len(entries) == 0 {
			continue
		}

		shadowed := 0
		for _, e := range entries {
			if subsumedByAny(table.Entries, e) {
				shadowed++
			}
		}
		if shadowed == len(entries) {
			msg := fmt.Sprintf("rule %d (pattern %q) is fully shadowed by earlier rules",
				entries[0].Rule, entries[0].Pattern)
			if !allowUnreachable {
				return nil, fmt.Errorf("%w: %s", ErrUnreachablePattern, msg)
			}
			log.Warn().Str("pattern", entries[0].Pattern).Msg("Unreachable pattern")
			table.Warnings = append(table.Warnings, decision.Warning{
				Code:    WarnUnreachablePattern,
				Message: msg,
			})
		}

		for _, e := range entries {
			if prev, ok := duplicateOf(table.Entries, e); ok {
				msg := fmt.Sprintf("rules %d and %d both dispatch opcode&%#x == %#x, to %s and %s",
					prev.Rule, e.Rule, e.Mask, e.Expected, prev.Handler, e.Handler)
				log.Warn().Str("pattern", e.Pattern).Msg("Ambiguous pattern")
				table.Warnings = append(table.Warnings, decision.Warning{
					Code:    WarnAmbiguousPattern,
					Message: msg,
				})
			}
			table.Entries = append(table.Entries, e)
		}
	}

	log.Info().Int("entries", len(table.Entries)).Msg("Decision table ordered")
	return table, nil
}

// subsumedByAny reports whether some earlier entry matches every opcode the
// candidate matches: the earlier mask is a subset of the candidate's and the
// expected values agree on it.
func subsumedByAny(earlier []decision.Entry, e decision.Entry) bool {
	for _, prev := range earlier {
		if prev.Mask&^e.Mask == 0 && e.Expected&prev.Mask == prev.Expected {
			return true
		}
	}
	return false
}

// duplicateOf finds an earlier entry from a different rule with the same
// mask/expected pair but a different handler.
func duplicateOf(earlier []decision.Entry, e decision.Entry) (decision.Entry, bool) {
	for _, prev := range earlier {
		if prev.Rule != e.Rule && prev.Mask == e.Mask && prev.Expected == e.Expected && prev.Handler != e.Handler {
			return prev, true
		}
	}
	return decision.Entry{}, false
}
