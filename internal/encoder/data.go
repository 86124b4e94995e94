package encoder

import (
	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
	"github.com/felipesanches/tlcs900asm/internal/regtab"
)

// encodeLD implements the LD contracts of spec §4.4.2/§4.4.3: the
// register-immediate short forms, the compact register<->memory forms,
// and the direct-addressing compact store form.
func encodeLD(e Emitter, ops []operand.Operand, pass Pass, pos asmerr.Position) (Status, error) {
	if len(ops) != 2 {
		return Failed, invalidOperand(pos, "LD", "expected 2 operands")
	}
	dst, src := ops[0], ops[1]

	if dst.Mode == operand.Register && src.Mode == operand.Immediate {
		return encodeLDRegImm(e, dst, src, pos)
	}

	if dst.Mode == operand.Register && IsMemoryOperand(src) {
		if src.Mode == operand.Direct {
			if err := emitStandaloneMemOperand(e, src, pos, "LD"); err != nil {
				return Failed, err
			}
			entry, ok := regtab.Lookup(dst.Reg)
			if !ok {
				return Failed, invalidOperand(pos, "LD", "unknown destination register")
			}
			e.EmitByte(entry.Code)
			return Handled, nil
		}
		entry, ok := regtab.Lookup(dst.Reg)
		if !ok {
			return Failed, invalidOperand(pos, "LD", "unknown destination register")
		}
		base := ldMemBase(entry.Size, true)
		if err := emitCompactMemOperand(e, src, base, pos, "LD"); err != nil {
			return Failed, err
		}
		e.EmitByte(entry.Code)
		return Handled, nil
	}

	if IsMemoryOperand(dst) && src.Mode == operand.Register {
		entry, ok := regtab.Lookup(src.Reg)
		if !ok {
			return Failed, invalidOperand(pos, "LD", "unknown source register")
		}
		if dst.Mode == operand.Direct {
			emitDirectAddrPrefix(e, dst)
			e.EmitByte(entry.Code)
			return Handled, nil
		}
		if err := emitCompactMemOperand(e, dst, 0xB0, pos, "LD"); err != nil {
			return Failed, err
		}
		e.EmitByte(entry.Code)
		return Handled, nil
	}

	if IsMemoryOperand(dst) && IsMemoryOperand(src) {
		return Failed, unsupported(pos, "LD", "memory-to-memory transfer is not a TLCS-900 instruction")
	}

	if dst.Mode == operand.Register && src.Mode == operand.Register {
		dstEntry, ok := regtab.Lookup(dst.Reg)
		if !ok {
			return Failed, invalidOperand(pos, "LD", "unknown destination register")
		}
		srcEntry, ok := regtab.Lookup(src.Reg)
		if !ok {
			return Failed, invalidOperand(pos, "LD", "unknown source register")
		}
		if dstEntry.Size != srcEntry.Size {
			return Failed, unsupported(pos, "LD", "register-to-register LD requires matching operand widths")
		}
		e.EmitByte(regRegBase(dstEntry.Size))
		e.EmitByte(dstEntry.Code<<4 | srcEntry.Code)
		return Handled, nil
	}

	return Failed, unsupported(pos, "LD", "unrepresentable operand shape")
}

func encodeLDRegImm(e Emitter, dst, imm operand.Operand, pos asmerr.Position) (Status, error) {
	entry, ok := regtab.Lookup(dst.Reg)
	if !ok {
		return Failed, invalidOperand(pos, "LD", "unknown destination register")
	}
	switch entry.Size {
	case regtab.SizeByte:
		e.EmitByte(0x20 + entry.Code)
		e.EmitByte(uint8(imm.Value))
	case regtab.SizeWord:
		// spec §4.4.3: "Immediate 0..7 into rr additionally uses the
		// two-byte 0xD8+code, 0xA8+imm pattern when applicable" — the
		// shorter form, used only for known constant immediates so the
		// sizing loop's width choice cannot depend on a forward reference.
		if imm.ValueKnown && imm.IsConstant && imm.Value >= 0 && imm.Value <= 7 {
			e.EmitByte(0xD8 + entry.Code)
			e.EmitByte(0xA8 + uint8(imm.Value))
		} else {
			e.EmitByte(0x30 + entry.Code)
			e.EmitWord(uint16(imm.Value))
		}
	case regtab.SizeLong:
		e.EmitByte(0x40 + entry.Code)
		e.EmitLong(uint32(imm.Value))
	default:
		return Failed, unsupported(pos, "LD", "destination register has no defined width")
	}
	return Handled, nil
}

// ldMemBase returns the compact-form base byte for a register<->memory
// LD (spec §4.4.2): "byte ops: base 0x80 (src) / 0xB0 (dst); word:
// 0x90/0xB0; long: 0xA0/0xB0" — the store (dst) base is 0xB0 regardless
// of width; only the load (src) base is width-selected.
func ldMemBase(width regtab.Size, loadFromMemory bool) uint8 {
	if !loadFromMemory {
		return 0xB0
	}
	switch width {
	case regtab.SizeByte:
		return 0x80
	case regtab.SizeWord:
		return 0x90
	default:
		return 0xA0
	}
}

// regRegBase is a systematically-assigned (not spec-literal) base byte for
// direct register-to-register LD, which spec.md names as a supported
// shape without giving its byte table. See DESIGN.md "systematically
// assigned opcodes".
func regRegBase(width regtab.Size) uint8 {
	switch width {
	case regtab.SizeByte:
		return 0xC0
	case regtab.SizeWord:
		return 0xC1
	default:
		return 0xC2
	}
}
