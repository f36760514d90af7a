// Package manifest loads a rule table declared as YAML instead of the DSL.
// The manifest form covers everything the DSL covers except pure mapping
// functions, which cannot be expressed in data; a manifest variable is
// either a literal table or a raw passthrough.
package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"decodegen/internal/compiler"
	"decodegen/internal/rules"
)

// File mirrors the YAML document structure.
type File struct {
	Width      int        `yaml:"width"`
	Dispatcher string     `yaml:"dispatcher"`
	Context    string     `yaml:"context"`
	Rules      []RuleDecl `yaml:"rules"`
}

// RuleDecl is one rule of the manifest.
type RuleDecl struct {
	Pattern string               `yaml:"pattern"`
	Handler string               `yaml:"handler"`
	Args    []string             `yaml:"args,omitempty"`
	Where   map[string]WhereDecl `yaml:"where,omitempty"`
}

// WhereDecl is one variable binding. Map keys are binary bit strings with
// an optional 0b prefix.
type WhereDecl struct {
	Type string            `yaml:"type,omitempty"`
	Map  map[string]string `yaml:"map,omitempty"`
}

// Load parses a YAML manifest into the same RuleSet the DSL parser
// produces.
func Load(data []byte) (*rules.RuleSet, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rule manifest: %w", err)
	}

	if f.Dispatcher == "" {
		return nil, fmt.Errorf("rule manifest is missing the dispatcher name")
	}
	if f.Context == "" {
		return nil, fmt.Errorf("rule manifest is missing the context type")
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule manifest declares no rules")
	}

	rs := &rules.RuleSet{
		Width:      f.Width,
		Dispatcher: f.Dispatcher,
		Context:    f.Context,
	}
	for i, decl := range f.Rules {
		rule, err := convertRule(decl, i, f.Width)
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule)
	}
	return rs, nil
}

func convertRule(decl RuleDecl, index, width int) (*rules.Rule, error) {
	pattern, err := compiler.ParsePattern(decl.Pattern, width)
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", index, err)
	}
	if decl.Handler == "" {
		return nil, fmt.Errorf("rule %d (%q) has no handler", index, decl.Pattern)
	}

	rule := &rules.Rule{
		Pattern: pattern,
		Source:  decl.Pattern,
		Handler: decl.Handler,
		Where:   map[byte]rules.Binding{},
		Index:   index,
	}

	for _, arg := range decl.Args {
		rule.Args = append(rule.Args, convertArg(arg))
	}

	for name, wd := range decl.Where {
		if len(name) != 1 || name[0] < 'a' || name[0] > 'z' {
			return nil, fmt.Errorf("rule %d: %q is not a variable letter", index, name)
		}
		binding, err := convertBinding(wd)
		if err != nil {
			return nil, fmt.Errorf("rule %d, variable %q: %w", index, name, err)
		}
		rule.Where[name[0]] = binding
	}
	return rule, nil
}

func convertArg(text string) rules.Arg {
	if len(text) == 1 && text[0] >= 'a' && text[0] <= 'z' {
		return rules.Arg{Var: text[0]}
	}
	if n, err := strconv.ParseUint(text, 0, 64); err == nil {
		return rules.Arg{Const: rules.Constant{Expr: text, Value: n}}
	}
	return rules.Arg{Const: rules.Constant{Expr: text, Value: text}}
}

func convertBinding(wd WhereDecl) (rules.Binding, error) {
	binding := rules.Binding{Kind: rules.RawInteger, Type: wd.Type}
	if len(wd.Map) == 0 {
		return binding, nil
	}

	binding.Kind = rules.LiteralMap
	binding.Literals = make(map[uint64]rules.Constant, len(wd.Map))
	for bits, expr := range wd.Map {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(bits, "0b"), "0B")
		key, err := strconv.ParseUint(trimmed, 2, 64)
		if err != nil {
			return rules.Binding{}, fmt.Errorf("invalid binary bits %q", bits)
		}
		binding.Literals[key] = rules.Constant{Expr: expr, Value: expr}
	}
	return binding, nil
}
