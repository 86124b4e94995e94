// Package encoder is the instruction encoder (C4): given a mnemonic, its
// parsed operands, and the current program counter, it emits the
// instruction's bytes through an Emitter. This is the bulk of the
// assembler — every representable TLCS-900/H mnemonic dispatches
// through Encode.
package encoder

import (
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
	"github.com/felipesanches/tlcs900asm/internal/operand"
)

var arithMnemonics = map[string]bool{
	"ADD": true, "ADC": true, "SUB": true, "SBC": true, "CP": true, "CPW": true,
	"ADDW": true, "AND": true, "ANDW": true, "OR": true, "ORW": true, "XOR": true, "XORW": true,
}

var wideDivMulMnemonics = map[string]bool{"MUL": true, "MULS": true, "DIV": true, "DIVS": true}

var incDecMnemonics = map[string]bool{"INC": true, "INCW": true, "DEC": true, "DECW": true}

var unaryMnemonics = map[string]bool{"NEG": true, "CPL": true, "DAA": true}

var shiftMnemonics = map[string]bool{
	"RLC": true, "RRC": true, "RL": true, "RR": true,
	"SLA": true, "SRA": true, "SLL": true, "SRL": true,
}

var bitOpMnemonics = map[string]bool{"BIT": true, "SET": true, "RES": true, "TSET": true, "CHG": true}

var bitFlagMnemonics = map[string]bool{"STCF": true, "LDCF": true, "XORCF": true, "BS1B": true, "BS1F": true}

var noOperandMnemonics = map[string]bool{
	"NOP": true, "EI": true, "DI": true, "HALT": true,
	"SCF": true, "RCF": true, "CCF": true, "ZCF": true,
	"SWI": true, "RET": true, "RETI": true,
}

var stackMnemonics = map[string]bool{"PUSH": true, "POP": true, "PUSHW": true}

var extendMnemonics = map[string]bool{"EXTZ": true, "EXTS": true, "SCC": true}

var blockTransferMnemonics = map[string]bool{
	"LDI": true, "LDIR": true, "LDDR": true,
	"LDIW": true, "LDIRW": true, "LDDRW": true, "LDW": true,
}

// Encode dispatches mnemonic to its encoder, returning Unhandled if the
// mnemonic is not one the instruction encoder recognises (the caller may
// then try macro expansion), per spec §4.4's three-way contract.
func Encode(e Emitter, mnemonic string, ops []operand.Operand, pc int64, pass Pass, pos asmerr.Position) (Status, error) {
	m := strings.ToUpper(mnemonic)

	switch {
	case m == "JP":
		return encodeJP(e, ops, pos)
	case m == "JR":
		return encodeJR(e, ops, pc, pass, pos)
	case m == "JRL":
		return encodeJRL(e, ops, pc, pass, pos)
	case m == "CALR":
		return encodeCALR(e, ops, pc, pass, pos)
	case m == "CALL":
		return encodeCALL(e, ops, pos)
	case m == "DJNZ":
		return encodeDJNZ(e, ops, pc, pass, pos)
	case m == "LD":
		return encodeLD(e, ops, pass, pos)
	case m == "LDA":
		return encodeLDA(e, ops, pos)
	case m == "LDC":
		return encodeLDC(e, ops, pos)
	case arithMnemonics[m] || wideDivMulMnemonics[m]:
		return encodeArith(e, m, ops, pos)
	case incDecMnemonics[m]:
		return encodeIncDec(e, m, ops, pos)
	case unaryMnemonics[m]:
		return encodeUnary(e, m, ops, pos)
	case shiftMnemonics[m]:
		return encodeShift(e, m, ops, pos)
	case bitOpMnemonics[m]:
		return encodeBitOp(e, m, ops, pos)
	case bitFlagMnemonics[m]:
		return encodeBitFlagOp(e, m, ops, pos)
	case m == "RETD":
		return encodeRETD(e, ops, pos)
	case noOperandMnemonics[m]:
		return encodeNoOperand(e, m, ops, pos)
	case stackMnemonics[m]:
		return encodeStackOp(e, m, ops, pos)
	case m == "LINK" || m == "UNLK":
		return encodeLinkUnlk(e, m, ops, pos)
	case m == "EX":
		return encodeEX(e, ops, pos)
	case extendMnemonics[m]:
		return encodeExtend(e, m, ops, pos)
	case blockTransferMnemonics[m]:
		return encodeBlockTransfer(e, m, ops, pos)
	}
	return Unhandled, nil
}
