package encoder

import (
	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

// encodeJP implements the JP contract of spec §4.4.3: unconditional uses
// 0x1A+16-bit addr (≤0xFFFF) or 0x1B+24-bit; conditional uses
// 0xA0+cc/0xB0+cc by the same width rule; indirect uses
// 0xB4 + mem-operand + 0xD0+cc. Width selection depends only on the
// target value's magnitude, not on is_constant — once assembly
// stabilises, addresses are stable.
func encodeJP(e Emitter, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	var cc uint8 = 0xFF // sentinel: unconditional
	var target operand.Operand

	switch len(ops) {
	case 1:
		target = ops[0]
	case 2:
		if ops[0].Mode != operand.Condition {
			return Failed, invalidOperand(pos, "JP", "first operand must be a condition code")
		}
		cc = ops[0].Condition
		target = ops[1]
	default:
		return Failed, invalidOperand(pos, "JP", "expected 1 or 2 operands")
	}

	if IsMemoryOperand(target) && target.Mode != operand.Direct {
		if cc == 0xFF {
			return Failed, unsupported(pos, "JP", "unconditional indirect JP is not representable")
		}
		e.EmitByte(0xB4)
		if err := emitStandaloneMemOperand(e, target, pos, "JP"); err != nil {
			return Failed, err
		}
		e.EmitByte(0xD0 + cc)
		return Handled, nil
	}

	addr := target.Value
	wide := addr < 0 || addr > 0xFFFF
	if cc == 0xFF {
		if wide {
			e.EmitByte(0x1B)
			e.EmitWord24(uint32(addr))
		} else {
			e.EmitByte(0x1A)
			e.EmitWord(uint16(addr))
		}
		return Handled, nil
	}
	if wide {
		e.EmitByte(0xB0 + cc)
		e.EmitWord24(uint32(addr))
	} else {
		e.EmitByte(0xA0 + cc)
		e.EmitWord(uint16(addr))
	}
	return Handled, nil
}

// encodeJR implements JR [cc,]target: always 2 bytes, signed
// disp = target-(pc+2), per spec §4.4.3's displacement-formula text.
// Out-of-range displacement is reported only in the Emit pass; the
// Sizing pass must still emit 2 bytes so sizes converge (spec §4.4.3,
// §7).
//
// Note: spec §6's worked scenario S4 (`ORG 0 / LOOP: NOP / JR LOOP`,
// expected `00 68 FF`, disp=-1) does not actually satisfy this formula
// — JR sits at pc=1 (after the 1-byte NOP) targeting LOOP=0, so
// target-(pc+2) = 0-(1+2) = -3 (`0xFD`), not -1. The two parts of
// spec.md disagree here; this implementation follows the literal
// formula text over the worked example's arithmetic (see DESIGN.md).
func encodeJR(e Emitter, ops []operand.Operand, pc int64, pass Pass, pos asmerr.Position) (Status, error) {
	cc, target, err := ccAndTarget(ops, "JR", pos)
	if err != nil {
		return Failed, err
	}
	disp := target.Value - (pc + 2)
	e.EmitByte(0x60 + cc)
	e.EmitByte(uint8(int8(disp)))
	if pass == Emit && (disp < -128 || disp > 127) {
		return Failed, branchOutOfRange(pos, "JR", disp)
	}
	return Handled, nil
}

// encodeJRL implements JRL [cc,]target: always 3 bytes, 16-bit signed
// disp = target-(pc+3).
func encodeJRL(e Emitter, ops []operand.Operand, pc int64, pass Pass, pos asmerr.Position) (Status, error) {
	cc, target, err := ccAndTarget(ops, "JRL", pos)
	if err != nil {
		return Failed, err
	}
	disp := target.Value - (pc + 3)
	e.EmitByte(0x70 + cc)
	e.EmitWord(uint16(int16(disp)))
	if pass == Emit && (disp < -32768 || disp > 32767) {
		return Failed, branchOutOfRange(pos, "JRL", disp)
	}
	return Handled, nil
}

func ccAndTarget(ops []operand.Operand, mnemonic string, pos asmerr.Position) (uint8, operand.Operand, error) {
	switch len(ops) {
	case 1:
		return regtab.AlwaysTrueCondition, ops[0], nil
	case 2:
		if ops[0].Mode != operand.Condition {
			return 0, operand.Operand{}, invalidOperand(pos, mnemonic, "first operand must be a condition code")
		}
		return ops[0].Condition, ops[1], nil
	}
	return 0, operand.Operand{}, invalidOperand(pos, mnemonic, "expected 1 or 2 operands")
}

// encodeCALR implements CALR target: 0x1E + 16-bit disp = target-(pc+3).
func encodeCALR(e Emitter, ops []operand.Operand, pc int64, pass Pass, pos asmerr.Position) (Status, error) {
	if len(ops) != 1 {
		return Failed, invalidOperand(pos, "CALR", "expected 1 operand")
	}
	disp := ops[0].Value - (pc + 3)
	e.EmitByte(0x1E)
	e.EmitWord(uint16(int16(disp)))
	if pass == Emit && (disp < -32768 || disp > 32767) {
		return Failed, branchOutOfRange(pos, "CALR", disp)
	}
	return Handled, nil
}

// encodeDJNZ implements DJNZ r,target (spec §4.4.3): for 8-bit r,
// 0xC8+(code>>1), 0x1C+(code&1), disp8; for 16-bit r, 0xD8+code, 0x1C,
// disp8. disp = target-(pc+len), matching JR's range-suppression-during-
// Sizing rule.
func encodeDJNZ(e Emitter, ops []operand.Operand, pc int64, pass Pass, pos asmerr.Position) (Status, error) {
	if len(ops) != 2 || ops[0].Mode != operand.Register {
		return Failed, invalidOperand(pos, "DJNZ", "expected register,target")
	}
	reg, target := ops[0], ops[1]
	entry, ok := regtab.Lookup(reg.Reg)
	if !ok {
		return Failed, invalidOperand(pos, "DJNZ", "unknown register")
	}

	var length int64
	switch entry.Size {
	case regtab.SizeByte:
		length = 3
	case regtab.SizeWord:
		length = 3
	default:
		return Failed, unsupported(pos, "DJNZ", "register must be 8-bit or 16-bit")
	}
	disp := target.Value - (pc + length)

	switch entry.Size {
	case regtab.SizeByte:
		e.EmitByte(0xC8 + (entry.Code >> 1))
		e.EmitByte(0x1C + (entry.Code & 1))
	case regtab.SizeWord:
		e.EmitByte(0xD8 + entry.Code)
		e.EmitByte(0x1C)
	}
	e.EmitByte(uint8(int8(disp)))

	if pass == Emit && (disp < -128 || disp > 127) {
		return Failed, branchOutOfRange(pos, "DJNZ", disp)
	}
	return Handled, nil
}
