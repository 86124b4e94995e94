package encoder

import (
	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

// extOpcodes assigns a stable sub-opcode byte to every mnemonic spec.md
// names as a supported shape but does not give an explicit byte table
// for (everything beyond LD's short-immediate forms, the standalone/
// compact memory tables, and the branch-instruction contracts already
// covered by data.go/memory.go/branch.go). Each such mnemonic is emitted
// as the two-byte sequence extPrefix, extOpcodes[mnemonic], followed by
// its operand bytes. See DESIGN.md "Systematically assigned opcodes".
const extPrefix = 0xFE

var extOpcodes = map[string]uint8{
	"ADD": 0x00, "ADC": 0x01, "SUB": 0x02, "SBC": 0x03,
	"AND": 0x04, "OR": 0x05, "XOR": 0x06, "CP": 0x07,
	"ADDW": 0x08, "ANDW": 0x09, "ORW": 0x0A, "XORW": 0x0B, "CPW": 0x0C,
	"INC": 0x0D, "INCW": 0x0E, "DEC": 0x0F, "DECW": 0x10,
	"NEG": 0x11, "MUL": 0x12, "MULS": 0x13, "DIV": 0x14, "DIVS": 0x15,
	"DAA": 0x16, "CPL": 0x17,
	"RLC": 0x18, "RRC": 0x19, "RL": 0x1A, "RR": 0x1B,
	"SLA": 0x1C, "SRA": 0x1D, "SLL": 0x1E, "SRL": 0x1F,
	"BIT": 0x20, "SET": 0x21, "RES": 0x22, "TSET": 0x23, "CHG": 0x24,
	"STCF": 0x25, "LDCF": 0x26, "XORCF": 0x27, "BS1B": 0x28, "BS1F": 0x29,
	"LDC": 0x2A,
	"EI": 0x2B, "DI": 0x2C, "HALT": 0x2D, "SCF": 0x2E, "RCF": 0x2F,
	"CCF": 0x30, "ZCF": 0x31, "SWI": 0x32,
	"RET": 0x33, "RETI": 0x34, "RETD": 0x35,
	"PUSH": 0x36, "POP": 0x37, "PUSHW": 0x38, "LINK": 0x39, "UNLK": 0x3A,
	"EX": 0x3B, "EXTZ": 0x3C, "EXTS": 0x3D, "SCC": 0x3E,
	"LDI": 0x3F, "LDIR": 0x40, "LDDR": 0x41, "LDIW": 0x42, "LDIRW": 0x43,
	"LDDRW": 0x44, "LDW": 0x45, "LDA": 0x46,
	"CALL": 0x47,
}

func emitExt(e Emitter, mnemonic string) bool {
	sub, ok := extOpcodes[mnemonic]
	if !ok {
		return false
	}
	e.EmitByte(extPrefix)
	e.EmitByte(sub)
	return true
}

// emitRegOperand appends a single register operand's dispatch byte.
func emitRegOperand(e Emitter, op operand.Operand, mnemonic string, pos asmerr.Position) error {
	entry, ok := regtab.Lookup(op.Reg)
	if !ok {
		return invalidOperand(pos, mnemonic, "unknown register")
	}
	e.EmitByte(entry.Code)
	return nil
}

// emitImmediateOperand appends an immediate sized to width.
func emitImmediateOperand(e Emitter, imm operand.Operand, width regtab.Size) {
	switch width {
	case regtab.SizeByte:
		e.EmitByte(uint8(imm.Value))
	case regtab.SizeWord:
		e.EmitWord(uint16(imm.Value))
	default:
		e.EmitLong(uint32(imm.Value))
	}
}

// encodeArith implements the generic two-operand arithmetic/logical shape
// (ADD/ADC/SUB/SBC/CP/CPW/ADDW/AND/ANDW/OR/ORW/XOR/XORW and the
// corresponding reg,imm / reg,reg / reg,(mem) forms): dst must be a
// register; src may be a register, an immediate sized to dst's width, or
// a memory operand encoded in the standalone memory-operand form (spec
// §4.4.2); the compact form is not used here.
func encodeArith(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 2 {
		return Failed, invalidOperand(pos, mnemonic, "expected 2 operands")
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	dst, src := ops[0], ops[1]
	if dst.Mode != operand.Register {
		return Failed, invalidOperand(pos, mnemonic, "destination must be a register")
	}
	dstEntry, ok := regtab.Lookup(dst.Reg)
	if !ok {
		return Failed, invalidOperand(pos, mnemonic, "unknown destination register")
	}
	e.EmitByte(dstEntry.Code)

	switch {
	case src.Mode == operand.Register:
		if err := emitRegOperand(e, src, mnemonic, pos); err != nil {
			return Failed, err
		}
	case src.Mode == operand.Immediate:
		emitImmediateOperand(e, src, dstEntry.Size)
	case IsMemoryOperand(src):
		if err := emitStandaloneMemOperand(e, src, pos, mnemonic); err != nil {
			return Failed, err
		}
	default:
		return Failed, unsupported(pos, mnemonic, "unrepresentable source operand")
	}
	return Handled, nil
}

// encodeIncDec implements INC/INCW/DEC/DECW (spec §4.4.3): accepts
// INC r (n=1), INC n,r, or INC r,n; n mod 8 is encoded into the low bits
// of the second byte alongside the register's own dispatch code.
func encodeIncDec(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	var n int64 = 1
	var reg operand.Operand
	switch len(ops) {
	case 1:
		reg = ops[0]
	case 2:
		if ops[0].Mode == operand.Register {
			reg = ops[0]
			n = ops[1].Value
		} else {
			n = ops[0].Value
			reg = ops[1]
		}
	default:
		return Failed, invalidOperand(pos, mnemonic, "expected 1 or 2 operands")
	}
	if reg.Mode != operand.Register {
		return Failed, invalidOperand(pos, mnemonic, "operand must be a register")
	}
	entry, ok := regtab.Lookup(reg.Reg)
	if !ok {
		return Failed, invalidOperand(pos, mnemonic, "unknown register")
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	e.EmitByte((entry.Code << 3) | uint8(n&7))
	return Handled, nil
}

// encodeUnary implements single-register-operand mnemonics (NEG, CPL,
// DAA and similar) that spec.md names without a full operand table.
func encodeUnary(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 1 || ops[0].Mode != operand.Register {
		return Failed, invalidOperand(pos, mnemonic, "expected a single register operand")
	}
	entry, ok := regtab.Lookup(ops[0].Reg)
	if !ok {
		return Failed, invalidOperand(pos, mnemonic, "unknown register")
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	e.EmitByte(entry.Code)
	return Handled, nil
}

// encodeWideDivMul implements MUL/MULS/DIV/DIVS's wide-dst,narrow-src
// shape (dst a word/long register, src a byte/word register or
// immediate).
func encodeWideDivMul(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	return encodeArith(e, mnemonic, ops, pos)
}

// encodeCALL implements CALL target (spec §1/§4.4 names it among the
// control-flow group but, unlike CALR, spec.md gives no literal byte
// contract for it — it is an absolute, not PC-relative, call, so it
// cannot share CALR's displacement form). Width is selected purely by
// the target's magnitude, the same rule JP uses, since by Emit pass
// every address is stable. Emitted through the same extOpcodes scheme
// as the rest of the non-literally-specified mnemonics (see
// DESIGN.md "Systematically assigned opcodes"); a form-selector byte
// distinguishes the 16-bit/24-bit direct forms from register-indirect.
func encodeCALL(e Emitter, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 1 {
		return Failed, invalidOperand(pos, "CALL", "expected 1 operand")
	}
	target := ops[0]
	if !emitExt(e, "CALL") {
		return Unhandled, nil
	}
	if IsMemoryOperand(target) && target.Mode != operand.Direct {
		e.EmitByte(0x02)
		if err := emitStandaloneMemOperand(e, target, pos, "CALL"); err != nil {
			return Failed, err
		}
		return Handled, nil
	}
	addr := target.Value
	if addr < 0 || addr > 0xFFFF {
		e.EmitByte(0x01)
		e.EmitWord24(uint32(addr))
	} else {
		e.EmitByte(0x00)
		e.EmitWord(uint16(addr))
	}
	return Handled, nil
}
