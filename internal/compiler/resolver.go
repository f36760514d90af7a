package compiler

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"decodegen/internal/rules"
)

// ResolveBindings attaches a resolved VariableGroup to every variable of
// every rule. funcs supplies the caller's pure mapping functions by name.
//
// Validation performed here, before any expansion:
//   - a where clause may only name variables present in the pattern;
//   - handler arguments may only reference variables present in the pattern;
//   - a variable declared with a non-raw type must carry a mapping
//     (ErrMissingMapping), and a referenced mapping function must exist in
//     funcs (also ErrMissingMapping);
//   - a literal table must cover every raw value the pattern can produce
//     (ErrUnmappedCombination) and may not contain keys outside the
//     variable's bit range (ErrVariableWidthOverflow).
func ResolveBindings(rs *rules.RuleSet, funcs map[string]rules.MapFunc) error {
	log.Info().Msg("Started resolving variable bindings...")

	for _, rule := range rs.Rules {
		if err := resolveRule(rule, funcs); err != nil {
			return err
		}
	}
	return nil
}

func resolveRule(rule *rules.Rule, funcs map[string]rules.MapFunc) error {
	names := rule.Pattern.VarNames()
	present := map[byte]bool{}
	for _, name := range names {
		present[name] = true
	}

	for name := range rule.Where {
		if !present[name] {
			return fmt.Errorf("rule %d (line %d): where clause binds %q, which does not appear in pattern %q",
				rule.Index, rule.Line, string(name), rule.Source)
		}
	}
	for _, arg := range rule.Args {
		if arg.IsVar() && !present[arg.Var] {
			return fmt.Errorf("rule %d (line %d): argument references %q, which does not appear in pattern %q",
				rule.Index, rule.Line, string(arg.Var), rule.Source)
		}
	}

	rule.Groups = make([]rules.VariableGroup, 0, len(names))
	for _, name := range names {
		binding := rule.Where[name] // zero value is a RawInteger binding
		group := rules.VariableGroup{
			Name:      name,
			Positions: rule.Pattern.VarPositions(name),
		}

		if err := resolveBinding(rule, &binding, group, funcs); err != nil {
			return err
		}

		group.Binding = binding
		rule.Groups = append(rule.Groups, group)
	}
	return nil
}

func resolveBinding(rule *rules.Rule, binding *rules.Binding, group rules.VariableGroup, funcs map[string]rules.MapFunc) error {
	name := string(group.Name)

	switch binding.Kind {
	case rules.RawInteger:
		if !rules.RawType(binding.Type) {
			return fmt.Errorf("%w: variable %q in rule %d (line %d) is declared as %s but has no mapping",
				ErrMissingMapping, name, rule.Index, rule.Line, binding.Type)
		}

	case rules.PureFunction:
		fn, ok := funcs[binding.FuncName]
		if !ok {
			return fmt.Errorf("%w: variable %q in rule %d (line %d) references unknown mapping function %q",
				ErrMissingMapping, name, rule.Index, rule.Line, binding.FuncName)
		}
		binding.Func = fn

	case rules.LiteralMap:
		domain := uint64(1) << uint(group.WidthBits())
		for key := range binding.Literals {
			if key >= domain {
				return fmt.Errorf("%w: literal key %#b does not fit the %d bits of variable %q in rule %d (line %d)",
					ErrVariableWidthOverflow, key, group.WidthBits(), name, rule.Index, rule.Line)
			}
		}
		for raw := uint64(0); raw < domain; raw++ {
			if _, ok := binding.Literals[raw]; !ok {
				return fmt.Errorf("%w: literal table for variable %q in rule %d (line %d) omits raw value %#b",
					ErrUnmappedCombination, name, rule.Index, rule.Line, raw)
			}
		}
	}
	return nil
}
