package encoder

import (
	"fmt"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
)

// Status is the three-way contract result spec §4.4 describes: Handled
// (bytes emitted), Unhandled (mnemonic unknown here, caller may try macro
// expansion), or Failed (mnemonic known, operand shape is not
// representable — a diagnostic has already been produced).
type Status int

const (
	Handled Status = iota
	Unhandled
	Failed
)

func unsupported(pos asmerr.Position, mnemonic string, detail string) error {
	return asmerr.New(pos, asmerr.KindUnsupportedOperandCombo,
		fmt.Sprintf("%s: %s", mnemonic, detail))
}

func invalidOperand(pos asmerr.Position, mnemonic string, detail string) error {
	return asmerr.New(pos, asmerr.KindInvalidOperand,
		fmt.Sprintf("%s: %s", mnemonic, detail))
}

func branchOutOfRange(pos asmerr.Position, mnemonic string, disp int64) error {
	return asmerr.New(pos, asmerr.KindBranchOutOfRange,
		fmt.Sprintf("%s: branch displacement %d out of range", mnemonic, disp))
}
