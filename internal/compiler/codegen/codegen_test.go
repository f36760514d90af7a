package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decodegen/internal/compiler"
)

func generate(t *testing.T, src string, opts Options) string {
	t.Helper()
	table, err := compiler.CompileSource(src, compiler.Options{})
	require.NoError(t, err)
	out, err := NewGenerator(table, opts).Generate()
	require.NoError(t, err)
	return string(out)
}

func TestGenerate_SpecializedCases(t *testing.T) {
	src := generate(t, `
width = 8; dispatcher = dispatch; context = Vm;
"11rr'____" => implAdd(r) where {
    r: Register = { 00 => R0, 01 => R1, 10 => R2, 11 => R3 }
};
"0001'1000" => implClc;
`, Options{Package: "vm"})

	assert.Contains(t, src, "// Code generated by decodegen. DO NOT EDIT.")
	assert.Contains(t, src, "package vm")
	assert.Contains(t, src, "func dispatch(ctx *Vm, opcode uint8)")

	// One case per expanded entry, each with its constant bound value.
	assert.Contains(t, src, "case opcode&0xf0 == 0xc0:")
	assert.Contains(t, src, "implAdd(ctx, opcode, R0)")
	assert.Contains(t, src, "implAdd(ctx, opcode, R3)")

	// Fully fixed patterns become exact comparisons.
	assert.Contains(t, src, "case opcode == 0x18:")
	assert.Contains(t, src, "implClc(ctx, opcode)")

	// Fail-fast default.
	assert.Contains(t, src, "panic(fmt.Sprintf(\"unhandled opcode: %#04x\", opcode))")
}

func TestGenerate_MaskedCaseValues(t *testing.T) {
	src := generate(t, `
width = 8; dispatcher = dispatch; context = Vm;
"0001'rr__" => h(r);
`, Options{Package: "vm"})

	assert.Contains(t, src, "case opcode&0xfc == 0x18:") // r = 0b10
	assert.Contains(t, src, "h(ctx, opcode, 0x2)")
}

func TestGenerate_FallbackHandler(t *testing.T) {
	src := generate(t, `
width = 8; dispatcher = dispatch; context = Vm;
"0001'1000" => implClc;
`, Options{Package: "vm", Fallback: "implUnknown"})

	assert.Contains(t, src, "implUnknown(ctx, opcode)")
	assert.NotContains(t, src, "panic(")
	assert.NotContains(t, src, "\"fmt\"")
}

func TestGenerate_WidthTypes(t *testing.T) {
	src := generate(t, `
width = 16; dispatcher = decode; context = Cpu;
"00000000'00000000" => implNop;
`, Options{})

	assert.Contains(t, src, "package main")
	assert.Contains(t, src, "func decode(ctx *Cpu, opcode uint16)")
	assert.Contains(t, src, "case opcode == 0x0000:")
}

func TestGenerate_PatternComments(t *testing.T) {
	src := generate(t, `
width = 8; dispatcher = dispatch; context = Vm;
"0101'____" => h;
`, Options{})

	assert.True(t, strings.Contains(src, `// "0101'____"`), "case should carry its source pattern")
}
