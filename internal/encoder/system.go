package encoder

import (
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

// encodeNoOperand implements the zero-operand control mnemonics NOP, EI,
// DI, HALT, SCF, RCF, CCF, ZCF, RET, RETI, SWI. NOP is the one literal
// byte spec.md gives (0x00); the rest follow the extPrefix scheme.
func encodeNoOperand(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 0 {
		return Failed, invalidOperand(pos, mnemonic, "expected no operands")
	}
	if mnemonic == "NOP" {
		e.EmitByte(0x00)
		return Handled, nil
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	return Handled, nil
}

// encodeRETD implements RETD d16: return with stack-pointer adjustment.
func encodeRETD(e Emitter, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 1 {
		return Failed, invalidOperand(pos, "RETD", "expected a displacement operand")
	}
	if !emitExt(e, "RETD") {
		return Unhandled, nil
	}
	e.EmitWord(uint16(int16(ops[0].Value)))
	return Handled, nil
}

// encodeStackOp implements PUSH/POP/PUSHW: a single register or memory
// operand. F' is rejected per spec §9 (POP F' is not representable).
func encodeStackOp(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 1 {
		return Failed, invalidOperand(pos, mnemonic, "expected 1 operand")
	}
	op := ops[0]
	if strings.EqualFold(op.Reg, "F'") {
		return Failed, unsupported(pos, mnemonic, "F' is not a representable operand here")
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	switch {
	case op.Mode == operand.Register:
		entry, ok := regtab.Lookup(op.Reg)
		if !ok {
			return Failed, invalidOperand(pos, mnemonic, "unknown register")
		}
		e.EmitByte(entry.Code)
	case IsMemoryOperand(op):
		if err := emitStandaloneMemOperand(e, op, pos, mnemonic); err != nil {
			return Failed, err
		}
	default:
		return Failed, unsupported(pos, mnemonic, "unrepresentable operand")
	}
	return Handled, nil
}

// encodeLinkUnlk implements LINK r,d16 and UNLK r (stack-frame helpers).
func encodeLinkUnlk(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) == 0 || ops[0].Mode != operand.Register {
		return Failed, invalidOperand(pos, mnemonic, "expected a register operand")
	}
	entry, ok := regtab.Lookup(ops[0].Reg)
	if !ok {
		return Failed, invalidOperand(pos, mnemonic, "unknown register")
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	e.EmitByte(entry.Code)
	if mnemonic == "LINK" {
		if len(ops) != 2 {
			return Failed, invalidOperand(pos, mnemonic, "expected register,displacement")
		}
		e.EmitWord(uint16(int16(ops[1].Value)))
	}
	return Handled, nil
}

// encodeEX implements EX r1,r2 (register exchange). EX F,F' is rejected
// per spec §9 (not representable: both operands are the flag register).
func encodeEX(e Emitter, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 2 {
		return Failed, invalidOperand(pos, "EX", "expected 2 operands")
	}
	a, b := ops[0], ops[1]
	if strings.EqualFold(a.Reg, "F") && strings.EqualFold(b.Reg, "F'") {
		return Failed, unsupported(pos, "EX", "EX F,F' is not representable here")
	}
	aEntry, ok := regtab.Lookup(a.Reg)
	if !ok {
		return Failed, invalidOperand(pos, "EX", "unknown first register")
	}
	bEntry, ok := regtab.Lookup(b.Reg)
	if !ok {
		return Failed, invalidOperand(pos, "EX", "unknown second register")
	}
	if !emitExt(e, "EX") {
		return Unhandled, nil
	}
	e.EmitByte(aEntry.Code)
	e.EmitByte(bEntry.Code)
	return Handled, nil
}

// encodeExtend implements EXTZ/EXTS/SCC r: single-register sign/zero
// extension and condition-to-register set.
func encodeExtend(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if mnemonic == "SCC" {
		if len(ops) != 2 || ops[0].Mode != operand.Condition || ops[1].Mode != operand.Register {
			return Failed, invalidOperand(pos, mnemonic, "expected condition,register")
		}
		entry, ok := regtab.Lookup(ops[1].Reg)
		if !ok {
			return Failed, invalidOperand(pos, mnemonic, "unknown register")
		}
		if !emitExt(e, mnemonic) {
			return Unhandled, nil
		}
		e.EmitByte(ops[0].Condition)
		e.EmitByte(entry.Code)
		return Handled, nil
	}
	if len(ops) != 1 || ops[0].Mode != operand.Register {
		return Failed, invalidOperand(pos, mnemonic, "expected a register operand")
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

// encodeBlockTransfer implements the LDI/LDIR/LDDR/LDIW/LDIRW/LDDRW/LDW
// family: fixed zero-operand block-move opcodes operating on WA/XHL/XDE/
// XBC implicitly, per spec §9's convention for the repeating-transfer
// group.
func encodeBlockTransfer(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 0 {
		return Failed, invalidOperand(pos, mnemonic, "expected no operands")
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	return Handled, nil
}

// encodeLDA implements LDA r,(mem): load the effective address of a
// memory operand into a register, rather than its contents.
func encodeLDA(e Emitter, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	if len(ops) != 2 || ops[0].Mode != operand.Register || !IsMemoryOperand(ops[1]) {
		return Failed, invalidOperand(pos, "LDA", "expected register,(memory)")
	}
	entry, ok := regtab.Lookup(ops[0].Reg)
	if !ok {
		return Failed, invalidOperand(pos, "LDA", "unknown destination register")
	}
	if !emitExt(e, "LDA") {
		return Unhandled, nil
	}
	if err := emitStandaloneMemOperand(e, ops[1], pos, "LDA"); err != nil {
		return Failed, err
	}
	e.EmitByte(entry.Code)
	return Handled, nil
}
