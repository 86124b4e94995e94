package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

type bufEmitter struct {
	bytes []byte
}

func (b *bufEmitter) EmitByte(v uint8)   { b.bytes = append(b.bytes, v) }
func (b *bufEmitter) EmitWord(v uint16)  { b.bytes = append(b.bytes, uint8(v), uint8(v>>8)) }
func (b *bufEmitter) EmitLong(v uint32) {
	b.bytes = append(b.bytes, uint8(v), uint8(v>>8), uint8(v>>16), uint8(v>>24))
}
func (b *bufEmitter) EmitWord24(v uint32) { b.bytes = append(b.bytes, uint8(v), uint8(v>>8), uint8(v>>16)) }
func (b *bufEmitter) EmitFill(n int, v uint8) {
	for i := 0; i < n; i++ {
		b.bytes = append(b.bytes, v)
	}
}
func (b *bufEmitter) EmitString(s []byte) { b.bytes = append(b.bytes, s...) }

func pos() asmerr.Position { return asmerr.Position{File: "t.asm", Line: 1, Column: 1} }

func reg(name string) operand.Operand {
	entry, _ := regtab.Lookup(name)
	return operand.Operand{Mode: operand.Register, Size: entry.Size, Reg: name}
}

func imm(v int64) operand.Operand {
	return operand.Operand{Mode: operand.Immediate, Value: v, ValueKnown: true, IsConstant: true}
}

func directAddr(v int64, constant bool) operand.Operand {
	return operand.Operand{Mode: operand.Direct, Value: v, ValueKnown: true, IsConstant: constant}
}

func TestNOPIsSingleZeroByte(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "NOP", nil, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0x00}, e.bytes)
}

func TestLDByteRegImmShortForm(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "LD", []operand.Operand{reg("A"), imm(0x42)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0x20 + 1, 0x42}, e.bytes)
}

func TestLDLongRegImmShortForm(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "LD", []operand.Operand{reg("XWA"), imm(0x12345678)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0x40, 0x78, 0x56, 0x34, 0x12}, e.bytes)
}

func TestLDWordRegSmallImmUsesShortTwoByteForm(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "LD", []operand.Operand{reg("WA"), imm(5)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0xD8, 0xA8 + 5}, e.bytes)
}

func TestLDWordRegLargeImmUsesLongForm(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "LD", []operand.Operand{reg("WA"), imm(1000)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0x30, 0xE8, 0x03}, e.bytes)
}

func TestLDDirectAddressUsesByteFormBelowThreshold(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "LD", []operand.Operand{reg("WA"), directAddr(0xFF, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, uint8(0x38), e.bytes[0])
}

func TestLDDirectAddressUsesWordFormAtThreshold(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "LD", []operand.Operand{reg("WA"), directAddr(0x100, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, uint8(0x39), e.bytes[0])
}

func TestLDDirectForwardReferenceNeverNarrowsToByteForm(t *testing.T) {
	e := &bufEmitter{}
	// A forward-referenced label whose present value happens to be small
	// must still use the 16-bit (or wider) form: is_constant=false.
	status, err := Encode(e, "LD", []operand.Operand{reg("WA"), directAddr(0x05, false)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, uint8(0x39), e.bytes[0])
}

func TestLDMemoryToMemoryIsUnsupported(t *testing.T) {
	e := &bufEmitter{}
	src := operand.Operand{Mode: operand.RegIndirect, Reg: "XHL"}
	dst := operand.Operand{Mode: operand.RegIndirect, Reg: "XBC"}
	status, err := Encode(e, "LD", []operand.Operand{dst, src}, 0, Emit, pos())
	assert.Equal(t, Failed, status)
	require.Error(t, err)
}

func TestJPUnconditionalNear(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "JP", []operand.Operand{directAddr(0x1234, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0x1A, 0x34, 0x12}, e.bytes)
}

func TestJPUnconditionalFar(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "JP", []operand.Operand{directAddr(0x10000, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0x1B, 0x00, 0x00, 0x01}, e.bytes)
}

func TestJRWithinRange(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "JR", []operand.Operand{directAddr(129, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0x60 + regtab.AlwaysTrueCondition, 127}, e.bytes)
}

func TestJRAtNegativeBoundary(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "JR", []operand.Operand{directAddr(-126, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, uint8(0x80), e.bytes[1]) // -128
}

func TestJROutOfRangeFailsOnlyDuringEmit(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "JR", []operand.Operand{directAddr(130, true)}, 0, Sizing, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Len(t, e.bytes, 2)

	e2 := &bufEmitter{}
	status2, err2 := Encode(e2, "JR", []operand.Operand{directAddr(130, true)}, 0, Emit, pos())
	assert.Equal(t, Failed, status2)
	require.Error(t, err2)
}

func TestCALRZeroDisplacement(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "CALR", []operand.Operand{directAddr(3, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0x1E, 0x00, 0x00}, e.bytes)
}

func TestCALLSelects16BitFormForSmallAddress(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "CALL", []operand.Operand{directAddr(0x1234, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{extPrefix, extOpcodes["CALL"], 0x00, 0x34, 0x12}, e.bytes)
}

func TestCALLSelects24BitFormForLargeAddress(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "CALL", []operand.Operand{directAddr(0x123456, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{extPrefix, extOpcodes["CALL"], 0x01, 0x56, 0x34, 0x12}, e.bytes)
}

func TestCALLIndirectThroughRegister(t *testing.T) {
	e := &bufEmitter{}
	indirect := operand.Operand{Mode: operand.RegIndirect, Reg: "XHL"}
	status, err := Encode(e, "CALL", []operand.Operand{indirect}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	xhl, _ := regtab.Lookup("XHL")
	assert.Equal(t, []byte{extPrefix, extOpcodes["CALL"], 0x02, xhl.Code}, e.bytes)
}

func TestDJNZByteRegister(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "DJNZ", []operand.Operand{reg("B"), directAddr(0, true)}, 3, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Len(t, e.bytes, 3)
}

func TestUnknownMnemonicIsUnhandled(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "FROB", nil, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Unhandled, status)
}

func TestADDRegImm(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "ADD", []operand.Operand{reg("A"), imm(1)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{extPrefix, extOpcodes["ADD"], 1, 1}, e.bytes)
}

func TestINCEncodesNModEightWithRegisterCode(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "INC", []operand.Operand{imm(3), reg("A")}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{extPrefix, extOpcodes["INC"], (1 << 3) | 3}, e.bytes)
}

func TestPOPFPrimeIsUnsupported(t *testing.T) {
	e := &bufEmitter{}
	op := operand.Operand{Mode: operand.Register, Reg: "F'"}
	status, err := Encode(e, "POP", []operand.Operand{op}, 0, Emit, pos())
	assert.Equal(t, Failed, status)
	require.Error(t, err)
}

func TestEXFFPrimeIsUnsupported(t *testing.T) {
	e := &bufEmitter{}
	a := operand.Operand{Mode: operand.Register, Reg: "F"}
	b := operand.Operand{Mode: operand.Register, Reg: "F'"}
	status, err := Encode(e, "EX", []operand.Operand{a, b}, 0, Emit, pos())
	assert.Equal(t, Failed, status)
	require.Error(t, err)
}

func TestBITEncodesIndexAndRegister(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "BIT", []operand.Operand{imm(3), reg("A")}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{extPrefix, extOpcodes["BIT"], (1 << 3) | 3}, e.bytes)
}

func TestLDCLoadFromControlRegister(t *testing.T) {
	e := &bufEmitter{}
	cr := operand.Operand{Mode: operand.Immediate, SymbolName: "DMAS0"}
	status, err := Encode(e, "LDC", []operand.Operand{reg("XWA"), cr}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0xE8, 0x2F, 0, 0}, e.bytes)
}

func TestLDCStoreToControlRegister(t *testing.T) {
	e := &bufEmitter{}
	cr := operand.Operand{Mode: operand.Immediate, SymbolName: "DMAS0"}
	status, err := Encode(e, "LDC", []operand.Operand{cr, reg("XWA")}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0xE8, 0x2E, 0, 0}, e.bytes)
}

func TestBITOnDirectAddressUsesLiteralByteContract(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "BIT", []operand.Operand{imm(3), directAddr(0x10, true)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0xF0, 0x10, 0xC8 + 3}, e.bytes)
}

func TestSETOnDirectAddressUsesLiteralByteContract(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "SET", []operand.Operand{imm(5), directAddr(0x1234, false)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0xF1, 0x34, 0x12, 0xB8 + 5}, e.bytes)
}

func TestRESOnDirectAddressUsesLiteralByteContract(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "RES", []operand.Operand{imm(0), directAddr(0x123456, false)}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0xF2, 0x56, 0x34, 0x12, 0xB0}, e.bytes)
}

func TestRESOn8BitRegisterUsesLiteralByteContract(t *testing.T) {
	e := &bufEmitter{}
	entry, _ := regtab.Lookup("A")
	status, err := Encode(e, "RES", []operand.Operand{imm(2), reg("A")}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0xC8 + entry.Code, 0x30, 2}, e.bytes)
}

func TestLDCControlRegisterNameIsCaseInsensitive(t *testing.T) {
	e := &bufEmitter{}
	cr := operand.Operand{Mode: operand.Immediate, SymbolName: "dmas0"}
	status, err := Encode(e, "LDC", []operand.Operand{reg("XWA"), cr}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{0xE8, 0x2F, 0, 0}, e.bytes)
}

func TestShiftSingleOperandDefaultsToCountOne(t *testing.T) {
	e := &bufEmitter{}
	status, err := Encode(e, "SLA", []operand.Operand{reg("A")}, 0, Emit, pos())
	require.NoError(t, err)
	assert.Equal(t, Handled, status)
	assert.Equal(t, []byte{extPrefix, extOpcodes["SLA"], 1, 1}, e.bytes)
}
