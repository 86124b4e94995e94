package encoder

import (
	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

// encodeShift implements RLC/RRC/RL/RR/SLA/SRA/SLL/SRL: single-register
// form shifts by 1, two-operand form shifts the register by a second
// register's value or an immediate count.
func encodeShift(e Emitter, mnemonic string, ops []operand.Operand, pos asmerr.Position) (Status, error) {
	var reg, count operand.Operand
	haveCount := false
	switch len(ops) {
	case 1:
		reg = ops[0]
	case 2:
		reg, count, haveCount = ops[0], ops[1], true
	default:
		return Failed, invalidOperand(pos, mnemonic, "expected 1 or 2 operands")
	}
	if reg.Mode != operand.Register {
		return Failed, invalidOperand(pos, mnemonic, "first operand must be a register")
	}
	entry, ok := regtab.Lookup(reg.Reg)
	if !ok {
		return Failed, invalidOperand(pos, mnemonic, "unknown register")
	}
	if !emitExt(e, mnemonic) {
		return Unhandled, nil
	}
	e.EmitByte(entry.Code)
	if haveCount {
		switch count.Mode {
		case operand.Register:
			countEntry, ok := regtab.Lookup(count.Reg)
			if !ok {
				return Failed, invalidOperand(pos, mnemonic, "unknown count register")
			}
			e.EmitByte(0x80 | countEntry.Code)
		case operand.Immediate:
			e.EmitByte(uint8(count.Value))
		default:
			return Failed, unsupported(pos, mnemonic, "count operand must be a register or immediate")
		}
	} else {
		e.EmitByte(1)
	}
	return Handled, nil
}
