package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decodegen/internal/rules"
)

func parseAndResolve(t *testing.T, src string, funcs map[string]rules.MapFunc) (*rules.RuleSet, error) {
	t.Helper()
	rs, err := ParseRuleTable(src)
	require.NoError(t, err)
	return rs, ResolveBindings(rs, funcs)
}

func TestResolveBindings_LiteralMap(t *testing.T) {
	rs, err := parseAndResolve(t, vmTable, nil)
	require.NoError(t, err)

	add := rs.Rules[0]
	require.Len(t, add.Groups, 1)
	g := add.Groups[0]
	assert.Equal(t, byte('r'), g.Name)
	assert.Equal(t, []int{2, 3}, g.Positions)
	assert.Equal(t, 2, g.WidthBits())
	assert.Equal(t, rules.LiteralMap, g.Binding.Kind)

	move := rs.Rules[1]
	require.Len(t, move.Groups, 2)
	assert.Equal(t, byte('d'), move.Groups[0].Name)
	assert.Equal(t, byte('s'), move.Groups[1].Name)

	clc := rs.Rules[2]
	assert.Empty(t, clc.Groups)
}

func TestResolveBindings_RawDefault(t *testing.T) {
	rs, err := parseAndResolve(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"0000'nnnn" => handleImm(n);
`, nil)
	require.NoError(t, err)

	g := rs.Rules[0].Groups[0]
	assert.Equal(t, rules.RawInteger, g.Binding.Kind)
	assert.Equal(t, 4, g.WidthBits())
}

func TestResolveBindings_PureFunction(t *testing.T) {
	funcs := map[string]rules.MapFunc{
		"decodeMode": func(raw uint64) rules.Constant {
			return rules.Constant{Expr: "Mode.X", Value: raw}
		},
	}
	rs, err := parseAndResolve(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"00mm'____" => handleMode(m) where { m: Mode = decodeMode };
`, funcs)
	require.NoError(t, err)

	g := rs.Rules[0].Groups[0]
	assert.Equal(t, rules.PureFunction, g.Binding.Kind)
	require.NotNil(t, g.Binding.Func)
	assert.Equal(t, "Mode.X", g.Binding.Func(1).Expr)
}

func TestResolveBindings_MissingMapping_TypedWithoutClause(t *testing.T) {
	_, err := parseAndResolve(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"00mm'____" => handleMode(m) where { m: Mode };
`, nil)
	assert.ErrorIs(t, err, ErrMissingMapping)
}

func TestResolveBindings_MissingMapping_UnknownFunction(t *testing.T) {
	_, err := parseAndResolve(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"00mm'____" => handleMode(m) where { m: Mode = decodeMode };
`, nil)
	assert.ErrorIs(t, err, ErrMissingMapping)
}

func TestResolveBindings_UnmappedCombination(t *testing.T) {
	// 2-bit variable, only 3 of 4 raw values mapped.
	_, err := parseAndResolve(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"000000mm" => h(m) where { m: Mode = { 00 => A, 01 => B, 10 => C } };
`, nil)
	require.ErrorIs(t, err, ErrUnmappedCombination)
	assert.Contains(t, err.Error(), "0b11")
}

func TestResolveBindings_LiteralKeyOverflow(t *testing.T) {
	// 1-bit variable with a 2-bit key.
	_, err := parseAndResolve(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"0000000m" => h(m) where { m: Mode = { 0 => A, 1 => B, 10 => C } };
`, nil)
	assert.ErrorIs(t, err, ErrVariableWidthOverflow)
}

func TestResolveBindings_UnknownVariableInWhere(t *testing.T) {
	_, err := parseAndResolve(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"00011000" => h where { m: Mode = { 0 => A, 1 => B } };
`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not appear in pattern")
}

func TestResolveBindings_UnknownVariableInArgs(t *testing.T) {
	_, err := parseAndResolve(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"00011000" => h(x);
`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not appear in pattern")
}
