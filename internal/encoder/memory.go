package encoder

import (
	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

// AddrSize resolves the auto-selected address width for a Direct operand
// when op.AddrSize == 0 (spec §4.4.2): known-and-constant values ≤ 0xFF
// take the 8-bit form, ≤ 0xFFFF the 16-bit form, else the 24-bit form.
// The is_constant gate is essential for sizing-loop monotonicity: a bare
// label must never be narrowed to 8 bits merely because its current value
// happens to be small.
func AddrSize(op operand.Operand) int {
	if op.AddrSize != 0 {
		return op.AddrSize
	}
	if op.ValueKnown && op.IsConstant && op.Value >= 0 && op.Value <= 0xFF {
		return 8
	}
	if op.Value >= 0 && op.Value <= 0xFFFF {
		return 16
	}
	return 24
}

// baseRegCode returns the register-table dispatch code for a memory
// pointer register (spec §4.4.2's base_code).
func baseRegCode(reg string) (uint8, bool) {
	entry, ok := regtab.Lookup(reg)
	if !ok {
		return 0, false
	}
	return entry.Code, true
}

// emitStandaloneMemOperand emits the standalone mem-operand byte sequence
// (spec §4.4.2 table), used when the compact form does not apply.
func emitStandaloneMemOperand(e Emitter, op operand.Operand, pos asmerr.Position, mnemonic string) error {
	switch op.Mode {
	case operand.RegIndirect:
		c, ok := baseRegCode(op.Reg)
		if !ok {
			return invalidOperand(pos, mnemonic, "unknown base register")
		}
		e.EmitByte(c)
		return nil
	case operand.PostInc:
		c, ok := baseRegCode(op.Reg)
		if !ok {
			return invalidOperand(pos, mnemonic, "unknown base register")
		}
		e.EmitByte(0x40 + c)
		return nil
	case operand.PreDec:
		c, ok := baseRegCode(op.Reg)
		if !ok {
			return invalidOperand(pos, mnemonic, "unknown base register")
		}
		e.EmitByte(0x48 + c)
		return nil
	case operand.Indexed:
		c, ok := baseRegCode(op.Reg)
		if !ok {
			return invalidOperand(pos, mnemonic, "unknown base register")
		}
		if op.AddrSize == 8 || (op.AddrSize == 0 && op.Value >= -128 && op.Value <= 127) {
			e.EmitByte(0x50 + c)
			e.EmitByte(uint8(int8(op.Value)))
		} else {
			e.EmitByte(0x58 + c)
			e.EmitWord(uint16(int16(op.Value)))
		}
		return nil
	case operand.IndexedReg:
		c, ok := baseRegCode(op.Reg)
		if !ok {
			return invalidOperand(pos, mnemonic, "unknown base register")
		}
		ic, ok := baseRegCode(op.IndexReg)
		if !ok {
			return invalidOperand(pos, mnemonic, "unknown index register")
		}
		e.EmitByte(0x60 + c)
		e.EmitByte(ic)
		return nil
	case operand.Direct:
		switch AddrSize(op) {
		case 8:
			e.EmitByte(0x38)
			e.EmitByte(uint8(op.Value))
		case 16:
			e.EmitByte(0x39)
			e.EmitWord(uint16(op.Value))
		default:
			e.EmitByte(0x3A)
			e.EmitWord24(uint32(op.Value))
		}
		return nil
	}
	return unsupported(pos, mnemonic, "operand is not a memory addressing mode")
}

// emitDirectAddrPrefix emits the direct-addressing prefix byte
// (0xF0/0xF1/0xF2 for address width 8/16/24) followed by the address
// itself, sized per AddrSize. Shared by LD's direct-store compact form
// (spec §4.4.2) and BIT/SET/RES's direct form (spec §4.4.3).
func emitDirectAddrPrefix(e Emitter, op operand.Operand) {
	switch AddrSize(op) {
	case 8:
		e.EmitByte(0xF0)
		e.EmitByte(uint8(op.Value))
	case 16:
		e.EmitByte(0xF1)
		e.EmitWord(uint16(op.Value))
	default:
		e.EmitByte(0xF2)
		e.EmitWord24(uint32(op.Value))
	}
}

// compactModeCode returns the §4.4.2 compact-form mode code for the modes
// the compact encoding supports: simple indirect, indexed d8/d16,
// pre-dec, post-inc. ok=false for modes the compact form cannot express
// (Direct, IndexedReg), in which case the caller must fall back to the
// standalone form.
func compactModeCode(op operand.Operand) (code uint8, ok bool) {
	switch op.Mode {
	case operand.RegIndirect:
		return 0x00, true
	case operand.Indexed:
		if op.AddrSize == 8 || (op.AddrSize == 0 && op.Value >= -128 && op.Value <= 127) {
			return 0x08, true
		}
		return 0x10, true
	case operand.PreDec:
		return 0x28, true
	case operand.PostInc:
		return 0x30, true
	}
	return 0, false
}

// emitCompactMemOperand emits the compact form: one byte adding the
// caller-supplied width/direction base byte to the operand's mode and
// register code, then any displacement bytes. An operand with no compact
// mode code is emitted in the standalone form instead (spec §4.4.2: "byte ops: base
// 0x80 (src) / 0xB0 (dst); word: 0x90/0xB0; long: 0xA0/0xB0").
func emitCompactMemOperand(e Emitter, op operand.Operand, base uint8, pos asmerr.Position, mnemonic string) error {
	modeCode, ok := compactModeCode(op)
	if !ok {
		return emitStandaloneMemOperand(e, op, pos, mnemonic)
	}
	c, ok := baseRegCode(op.Reg)
	if !ok {
		return invalidOperand(pos, mnemonic, "unknown base register")
	}
	e.EmitByte(base + modeCode + c)
	if op.Mode == operand.Indexed {
		if modeCode == 0x08 {
			e.EmitByte(uint8(int8(op.Value)))
		} else {
			e.EmitWord(uint16(int16(op.Value)))
		}
	}
	return nil
}

// IsMemoryOperand reports whether op names a memory addressing mode.
func IsMemoryOperand(op operand.Operand) bool {
	switch op.Mode {
	case operand.RegIndirect, operand.PostInc, operand.PreDec, operand.Indexed, operand.Direct, operand.IndexedReg:
		return true
	}
	return false
}
