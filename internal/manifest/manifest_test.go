package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decodegen/internal/compiler"
	"decodegen/internal/rules"
)

const vmManifest = `
width: 8
dispatcher: dispatch
context: Vm
rules:
  - pattern: "11rr'____"
    handler: implAdd
    args: [r]
    where:
      r:
        type: Register
        map: {"00": R0, "01": R1, "10": R2, "11": R3}
  - pattern: "0001'1000"
    handler: implClc
  - pattern: "0000'nnnn"
    handler: implImm
    args: [n, "3"]
`

func TestLoad_Manifest(t *testing.T) {
	rs, err := Load([]byte(vmManifest))
	require.NoError(t, err)

	assert.Equal(t, 8, rs.Width)
	assert.Equal(t, "dispatch", rs.Dispatcher)
	assert.Equal(t, "Vm", rs.Context)
	require.Len(t, rs.Rules, 3)

	add := rs.Rules[0]
	assert.Equal(t, "implAdd", add.Handler)
	require.Len(t, add.Args, 1)
	assert.Equal(t, byte('r'), add.Args[0].Var)

	binding := add.Where['r']
	assert.Equal(t, rules.LiteralMap, binding.Kind)
	assert.Equal(t, "Register", binding.Type)
	assert.Equal(t, "R2", binding.Literals[0b10].Expr)

	imm := rs.Rules[2]
	require.Len(t, imm.Args, 2)
	assert.Equal(t, byte('n'), imm.Args[0].Var)
	assert.Equal(t, uint64(3), imm.Args[1].Const.Value)
}

func TestLoad_CompilesLikeDSL(t *testing.T) {
	rs, err := Load([]byte(vmManifest))
	require.NoError(t, err)

	table, err := compiler.Compile(rs, compiler.Options{})
	require.NoError(t, err)
	assert.Len(t, table.Entries, 4+1+16)

	e, ok := table.Lookup(0b11100000)
	require.True(t, ok)
	assert.Equal(t, "implAdd", e.Handler)
	assert.Equal(t, "R2", e.Bound[0].Expr)
}

func TestLoad_MalformedPattern(t *testing.T) {
	_, err := Load([]byte(`
width: 8
dispatcher: dispatch
context: Vm
rules:
  - pattern: "0001100"
    handler: h
`))
	assert.ErrorIs(t, err, compiler.ErrMalformedPattern)
}

func TestLoad_MissingFields(t *testing.T) {
	_, err := Load([]byte("width: 8\nrules: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatcher")

	_, err = Load([]byte("width: 8\ndispatcher: d\ncontext: C\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rules")
}

func TestLoad_BadBinaryKey(t *testing.T) {
	_, err := Load([]byte(`
width: 8
dispatcher: dispatch
context: Vm
rules:
  - pattern: "000000mm"
    handler: h
    where:
      m:
        map: {"02": A}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid binary bits")
}
