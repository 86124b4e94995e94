package encoder

import (
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

// directBitOpByte is spec §4.4.3's literal "{0xC8/0xB8/0xB0}+bit"
// contract for BIT/SET/RES on a (direct) memory operand, in that order.
var directBitOpByte = map[string]uint8{
	"BIT": 0xC8,
	"SET": 0xB8,
	"RES": 0xB0,
}

// encodeBitOp implements BIT/SET/RES/TSET/CHG n,dst. spec §4.4.3 gives a
// literal byte contract for two shapes: BIT/SET/RES on a (direct) memory
// operand (0xF0/0xF1/0xF2 address prefix + address + directBitOpByte+n),
// and RES on an 8-bit register (0xC8+code, 0x30, n). Every other shape —
// register BIT/SET, RES on a 16/24-bit register, TSET/CHG entirely, and
// non-direct memory operands — has no literal contract in spec.md and
// keeps the systematically-assigned extOpcodes placeholder scheme (see
// DESIGN.md "Systematically assigned opcodes").
func encodeBitOp(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 2 {
		return Failed, invalidOperand(pos, mnemonic, "expected bit-index,destination")
	}
	n := uint8(ops[0].Value) & 7
	dst := ops[1]

	if opByte, ok := directBitOpByte[mnemonic]; ok && dst.Mode == operand.Direct {
		emitDirectAddrPrefix(e, dst)
		e.EmitByte(opByte + n)
		return Handled, nil
	}

	if mnemonic == "RES" && dst.Mode == operand.Register {
		if entry, ok := regtab.Lookup(dst.Reg); ok && entry.Size == regtab.SizeByte {
			e.EmitByte(0xC8 + entry.Code)
			e.EmitByte(0x30)
			e.EmitByte(n)
			return Handled, nil
		}
	}

	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	switch {
	case dst.Mode == operand.Register:
		entry, ok := regtab.Lookup(dst.Reg)
		if !ok {
			return Failed, invalidOperand(pos, mnemonic, "unknown register")
		}
		e.EmitByte((entry.Code << 3) | n)
	case IsMemoryOperand(dst):
		if err := emitStandaloneMemOperand(e, dst, pos, mnemonic); err != nil {
			return Failed, err
		}
		e.EmitByte(n)
	default:
		return Failed, unsupported(pos, mnemonic, "destination must be a register or memory operand")
	}
	return Handled, nil
}

// encodeBitFlagOp implements the one-operand flag-bit
// mnemonics STCF/LDCF/XORCF/BS1B/BS1F, which take a single register or
// bit-index operand.
func encodeBitFlagOp(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 1 {
		return Failed, invalidOperand(pos, mnemonic, "expected 1 operand")
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	op := ops[0]
	switch {
	case op.Mode == operand.Register:
		entry, ok := regtab.Lookup(op.Reg)
		if !ok {
			return Failed, invalidOperand(pos, mnemonic, "unknown register")
		}
		e.EmitByte(entry.Code)
	case op.Mode == operand.Immediate:
		e.EmitByte(uint8(op.Value))
	default:
		return Failed, unsupported(pos, mnemonic, "unrepresentable operand")
	}
	return Handled, nil
}

// controlRegisters is LDC's DMAS0..3/DMAD0..3/DMAC0..3/DMAM0..3/INTNEST
// table (spec §4.4.3), each assigned a stable index within the control
// register address space LDC addresses.
var controlRegisters = map[string]uint8{
	"DMAS0": 0, "DMAS1": 1, "DMAS2": 2, "DMAS3": 3,
	"DMAD0": 4, "DMAD1": 5, "DMAD2": 6, "DMAD3": 7,
	"DMAC0": 8, "DMAC1": 9, "DMAC2": 10, "DMAC3": 11,
	"DMAM0": 12, "DMAM1": 13, "DMAM2": 14, "DMAM3": 15,
	"INTNEST": 16,
}

// encodeLDC implements LDC cr,r / LDC r,cr: a width prefix (0xC8 byte,
// 0xD8 word, 0xE8 long) selects the register width, and a direction byte
// (0x2E to-ctrl, 0x2F from-ctrl) selects transfer direction, per spec
// §4.4.3's control-register contract.
func encodeLDC(e Emitter, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 2 {
		return Failed, invalidOperand(pos, "LDC", "expected 2 operands")
	}
	dst, src := ops[0], ops[1]

	var crName string
	var reg operand.Operand
	var loadFromControl bool
	switch {
	case dst.Mode == operand.Register && isControlRegisterName(src):
		reg, crName, loadFromControl = dst, strings.ToUpper(src.SymbolName), true
	case src.Mode == operand.Register && isControlRegisterName(dst):
		reg, crName, loadFromControl = src, strings.ToUpper(dst.SymbolName), false
	default:
		return Failed, invalidOperand(pos, "LDC", "expected a register and a control-register name")
	}

	crCode, ok := controlRegisters[crName]
	if !ok {
		return Failed, invalidOperand(pos, "LDC", "unknown control register")
	}
	entry, ok := regtab.Lookup(reg.Reg)
	if !ok {
		return Failed, invalidOperand(pos, "LDC", "unknown register")
	}

	var widthPrefix uint8
	switch entry.Size {
	case regtab.SizeByte:
		widthPrefix = 0xC8
	case regtab.SizeWord:
		widthPrefix = 0xD8
	default:
		widthPrefix = 0xE8
	}
	e.EmitByte(widthPrefix)
	if loadFromControl {
		e.EmitByte(0x2F)
	} else {
		e.EmitByte(0x2E)
	}
	e.EmitByte(crCode)
	e.EmitByte(entry.Code)
	return Handled, nil
}

func isControlRegisterName(op operand.Operand) bool {
	if op.SymbolName == "" {
		return false
	}
	_, ok := controlRegisters[strings.ToUpper(op.SymbolName)]
	return ok
}
