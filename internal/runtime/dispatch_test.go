package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decodegen/internal/compiler"
	"decodegen/internal/compiler/decision"
	"decodegen/internal/rules"
)

func compile(t *testing.T, src string, funcs map[string]rules.MapFunc) *decision.Table {
	t.Helper()
	table, err := compiler.CompileSource(src, compiler.Options{Funcs: funcs})
	require.NoError(t, err)
	return table
}

func TestDispatcher_FirstMatchWins(t *testing.T) {
	table := compile(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"0101'____" => specific;
"01__'____" => generic;
`, nil)

	var calls []string
	d := NewDispatcher(table)
	d.Register("specific", func(ctx any, opcode uint64, args []any) {
		calls = append(calls, "specific")
	})
	d.Register("generic", func(ctx any, opcode uint64, args []any) {
		calls = append(calls, "generic")
	})
	require.NoError(t, d.Validate())

	d.Dispatch(nil, 0x55)
	d.Dispatch(nil, 0x45)
	assert.Equal(t, []string{"specific", "generic"}, calls)
}

func TestDispatcher_BoundValues(t *testing.T) {
	table := compile(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"11rr'____" => implAdd(r) where {
    r: Register = { 00 => R0, 01 => R1, 10 => R2, 11 => R3 }
};
`, nil)

	var got []any
	d := NewDispatcher(table)
	d.Register("implAdd", func(ctx any, opcode uint64, args []any) {
		got = args
	})

	d.Dispatch(nil, 0b11100000)
	require.Len(t, got, 1)
	assert.Equal(t, "R2", got[0])
}

func TestDispatcher_PureFunctionBoolean(t *testing.T) {
	funcs := map[string]rules.MapFunc{
		"asBool": func(raw uint64) rules.Constant {
			return rules.Constant{Expr: "bool", Value: raw != 0}
		},
	}
	table := compile(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"0000000c" => h(c) where { c: bool = asBool };
`, funcs)
	require.Len(t, table.Entries, 2)

	var got bool
	d := NewDispatcher(table)
	d.Register("h", func(ctx any, opcode uint64, args []any) {
		got = args[0].(bool)
	})

	d.Dispatch(nil, 0)
	assert.False(t, got)
	d.Dispatch(nil, 1)
	assert.True(t, got)
}

func TestDispatcher_ContextMutation(t *testing.T) {
	type cpu struct{ acc uint64 }

	table := compile(t, `
width = 8; dispatcher = dispatch; context = cpu;
"0000'nnnn" => addImm(n);
`, nil)

	d := NewDispatcher(table)
	d.Register("addImm", func(ctx any, opcode uint64, args []any) {
		ctx.(*cpu).acc += args[0].(uint64)
	})

	c := &cpu{}
	d.Dispatch(c, 0x05)
	d.Dispatch(c, 0x0A)
	assert.Equal(t, uint64(15), c.acc)
}

func TestDispatcher_UnmatchedOpcodePanics(t *testing.T) {
	table := compile(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"0001'1000" => implClc;
`, nil)

	d := NewDispatcher(table)
	d.Register("implClc", func(ctx any, opcode uint64, args []any) {})

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic for the unmatched opcode")
		err, ok := r.(*UnhandledOpcodeError)
		require.True(t, ok)
		assert.Equal(t, uint64(0xFF), err.Opcode)
		assert.Contains(t, err.Error(), "0xff")
	}()
	d.Dispatch(nil, 0xFF)
}

func TestDispatcher_FallbackReplacesPanic(t *testing.T) {
	table := compile(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"0001'1000" => implClc;
`, nil)

	var fell uint64
	d := NewDispatcher(table)
	d.Register("implClc", func(ctx any, opcode uint64, args []any) {})
	d.OnUnmatched(func(ctx any, opcode uint64, args []any) {
		fell = opcode
	})

	assert.NotPanics(t, func() { d.Dispatch(nil, 0xFF) })
	assert.Equal(t, uint64(0xFF), fell)
}

func TestDispatcher_ValidateMissingHandler(t *testing.T) {
	table := compile(t, `
width = 8; dispatcher = dispatch; context = Cpu;
"0001'1000" => implClc;
`, nil)

	d := NewDispatcher(table)
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implClc")
}
