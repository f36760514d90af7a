package compiler

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"decodegen/internal/compiler/decision"
	"decodegen/internal/rules"
)

// DefaultMaxEntriesPerRule caps the cross-product expansion of a single
// rule. Expansion is exponential in the total variable bit width, so a rule
// that legitimately needs more entries than this almost certainly wants a
// wildcard instead.
const DefaultMaxEntriesPerRule = 65536

// ExpandRule derives the base mask/value pair from the rule's fixed bits and
// produces one dispatch entry for every combination of its variables'
// enumerated raw values. Entries from one rule are pairwise disjoint because
// they partition the variables' domains.
func ExpandRule(rule *rules.Rule, width, maxEntries int) ([]decision.Entry, error) {
	baseMask := rule.Pattern.FixedMask()
	baseValue := rule.Pattern.FixedValue()

	// Every expanded entry pins the variable bits too, so the final mask
	// covers all non-wildcard positions.
	// Size the cross product arithmetically before enumerating any domain,
	// so a rule over the cap fails without a large allocation.
	mask := baseMask
	total := 1
	for _, g := range rule.Groups {
		if g.WidthBits() >= 63 {
			return nil, fmt.Errorf("%w: variable %q spans %d bits", ErrVariableWidthOverflow,
				string(g.Name), g.WidthBits())
		}
		mask |= g.Mask(width)
		size := domainSize(g)
		if size > 1 && total > maxEntries/size {
			return nil, fmt.Errorf("%w: rule %d (line %d) expands to more than %d entries",
				ErrVariableWidthOverflow, rule.Index, rule.Line, maxEntries)
		}
		total *= size
	}
	domains := make([][]uint64, len(rule.Groups))
	for i, g := range rule.Groups {
		domains[i] = domainOf(g)
	}

	var entries []decision.Entry
	raws := make([]uint64, len(rule.Groups))
	var walk func(i int, value uint64) error
	walk = func(i int, value uint64) error {
		if i == len(rule.Groups) {
			bound, err := bindArgs(rule, raws)
			if err != nil {
				return err
			}
			entries = append(entries, decision.Entry{
				Mask:     mask,
				Expected: value,
				Handler:  rule.Handler,
				Bound:    bound,
				Rule:     rule.Index,
				Pattern:  rule.Source,
			})
			return nil
		}
		g := rule.Groups[i]
		for _, raw := range domains[i] {
			raws[i] = raw
			if err := walk(i+1, g.Insert(value, raw, width)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, baseValue); err != nil {
		return nil, err
	}

	log.Debug().
		Int("rule", rule.Index).
		Str("pattern", rule.Source).
		Int("entries", len(entries)).
		Msg("Expanded rule")
	return entries, nil
}

// domainSize is len(domainOf(g)) without building the slice.
func domainSize(g rules.VariableGroup) int {
	if g.Binding.Kind == rules.LiteralMap {
		return len(g.Binding.Literals)
	}
	return 1 << uint(g.WidthBits())
}

// domainOf enumerates the raw values a variable's binding resolves, in
// ascending order. Literal tables are total by the time expansion runs, so
// every kind enumerates the full bit range.
func domainOf(g rules.VariableGroup) []uint64 {
	if g.Binding.Kind == rules.LiteralMap {
		keys := make([]uint64, 0, len(g.Binding.Literals))
		for key := range g.Binding.Literals {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		return keys
	}
	domain := make([]uint64, 1<<uint(g.WidthBits()))
	for raw := range domain {
		domain[raw] = uint64(raw)
	}
	return domain
}

// bindArgs builds the handler's bound-value list for one raw-value tuple by
// applying each variable's binding kind; fixed constants pass through.
func bindArgs(rule *rules.Rule, raws []uint64) ([]rules.Constant, error) {
	if len(rule.Args) == 0 {
		return nil, nil
	}
	bound := make([]rules.Constant, len(rule.Args))
	for i, arg := range rule.Args {
		if !arg.IsVar() {
			bound[i] = arg.Const
			continue
		}
		var c rules.Constant
		found := false
		for j, g := range rule.Groups {
			if g.Name != arg.Var {
				continue
			}
			found = true
			switch g.Binding.Kind {
			case rules.RawInteger:
				c = rules.RawConstant(raws[j])
			case rules.LiteralMap:
				c = g.Binding.Literals[raws[j]]
			case rules.PureFunction:
				c = g.Binding.Func(raws[j])
			}
			break
		}
		if !found {
			// The resolver guarantees this cannot happen.
			return nil, fmt.Errorf("%w: argument %d of rule %d references unresolved variable %q",
				ErrVariableWidthOverflow, i, rule.Index, string(arg.Var))
		}
		bound[i] = c
	}
	return bound, nil
}
