package encoder

// Emitter is the contract the encoder assumes (spec §4.4.4). During the
// Sizing pass an implementation advances PC only; during Emit it also
// appends bytes to the output buffer. internal/pass owns both
// implementations.
type Emitter interface {
	EmitByte(b uint8)
	EmitWord(w uint16)
	EmitLong(w uint32)
	EmitWord24(w uint32)
	EmitFill(n int, b uint8)
	EmitString(s []byte)
}

// Pass selects Sizing or Emit behaviour for pass-sensitive diagnostics
// (e.g. BranchOutOfRange is suppressed during Sizing, spec §4.4.3/§7).
type Pass int

const (
	Sizing Pass = iota
	Emit
)
