package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
)

func pos() asmerr.Position { return asmerr.Position{File: "t.asm", Line: 1, Column: 1} }

func TestDefineAndLookupIsCaseInsensitive(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.Define(&Macro{Name: "PushAll", Params: nil, Pos: pos()}))

	m, ok := tbl.Lookup("pushall")
	require.True(t, ok)
	assert.Equal(t, "PushAll", m.Name)
}

func TestDefineDuplicateNameFails(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.Define(&Macro{Name: "FOO", Pos: pos()}))
	err := tbl.Define(&Macro{Name: "foo", Pos: asmerr.Position{File: "t.asm", Line: 5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined")
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	tbl := New()
	_, ok := tbl.Lookup("NOPE")
	assert.False(t, ok)
}

func TestExpandSubstitutesBracedAndBareParams(t *testing.T) {
	m := &Macro{
		Name:   "LOADPAIR",
		Params: []string{"dst", "val"},
		Body: []string{
			"LD \\dst,#\\val",
			"LD \\{dst}H,#0",
		},
	}
	out, err := Expand(m, []string{"XIX", "42"}, pos())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "LD XIX,#42", out[0])
	assert.Equal(t, "LD XIXH,#0", out[1])
}

func TestExpandWrongArgCountFails(t *testing.T) {
	m := &Macro{Name: "FOO", Params: []string{"a", "b"}}
	_, err := Expand(m, []string{"1"}, pos())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 2 argument")
}

func TestExpandWithNoParams(t *testing.T) {
	m := &Macro{Name: "NOP2", Body: []string{"NOP", "NOP"}}
	out, err := Expand(m, nil, pos())
	require.NoError(t, err)
	assert.Equal(t, []string{"NOP", "NOP"}, out)
}
