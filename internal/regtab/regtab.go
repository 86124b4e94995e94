// Package regtab is the fixed, case-insensitive TLCS-900/H register and
// condition-code table shared by the operand parser (C3, spec §4.3) and
// the instruction encoder (C4, spec §4.4.1).
package regtab

import "strings"

// Size is the operand width a register name denotes.
type Size int

const (
	SizeNone Size = iota
	SizeByte
	SizeWord
	SizeLong
)

// Entry is one register-table row: its canonical name, bit width, and
// dispatch code within that width's numbering (spec §4.4.1).
type Entry struct {
	Name string
	Size Size
	Code uint8
}

// byte-width table: W=0,A=1,B=2,C=3,D=4,E=5,H=6,L=7 (spec §4.4.1),
// index high/low bytes 8..13, Q-bank mirrors 16..23, Q-index 24..29.
var byteRegs = []Entry{
	{"W", SizeByte, 0}, {"A", SizeByte, 1}, {"B", SizeByte, 2}, {"C", SizeByte, 3},
	{"D", SizeByte, 4}, {"E", SizeByte, 5}, {"H", SizeByte, 6}, {"L", SizeByte, 7},
	{"IXH", SizeByte, 8}, {"IXL", SizeByte, 9}, {"IYH", SizeByte, 10}, {"IYL", SizeByte, 11},
	{"IZH", SizeByte, 12}, {"IZL", SizeByte, 13},
	{"QW", SizeByte, 16}, {"QA", SizeByte, 17}, {"QB", SizeByte, 18}, {"QC", SizeByte, 19},
	{"QD", SizeByte, 20}, {"QE", SizeByte, 21}, {"QH", SizeByte, 22}, {"QL", SizeByte, 23},
	{"QIXH", SizeByte, 24}, {"QIXL", SizeByte, 25}, {"QIYH", SizeByte, 26}, {"QIYL", SizeByte, 27},
	{"QIZH", SizeByte, 28}, {"QIZL", SizeByte, 29},
}

// word-width table: WA=0..SP=7 (spec §4.4.1), Q-bank mirrors 8..14.
var wordRegs = []Entry{
	{"WA", SizeWord, 0}, {"BC", SizeWord, 1}, {"DE", SizeWord, 2}, {"HL", SizeWord, 3},
	{"IX", SizeWord, 4}, {"IY", SizeWord, 5}, {"IZ", SizeWord, 6}, {"SP", SizeWord, 7},
	{"QWA", SizeWord, 8}, {"QBC", SizeWord, 9}, {"QDE", SizeWord, 10}, {"QHL", SizeWord, 11},
	{"QIX", SizeWord, 12}, {"QIY", SizeWord, 13}, {"QIZ", SizeWord, 14},
}

// long-width table: XWA=0..XSP=7 (spec §4.4.1).
var longRegs = []Entry{
	{"XWA", SizeLong, 0}, {"XBC", SizeLong, 1}, {"XDE", SizeLong, 2}, {"XHL", SizeLong, 3},
	{"XIX", SizeLong, 4}, {"XIY", SizeLong, 5}, {"XIZ", SizeLong, 6}, {"XSP", SizeLong, 7},
}

// specials: PC, SR, F, F' (not part of the width-keyed dispatch tables;
// looked up by name only, used by specific mnemonics such as EX/LDC).
var specialNames = map[string]bool{"PC": true, "SR": true, "F": true, "F'": true}

var byName map[string]Entry

func init() {
	byName = make(map[string]Entry)
	for _, e := range byteRegs {
		byName[e.Name] = e
	}
	for _, e := range wordRegs {
		byName[e.Name] = e
	}
	for _, e := range longRegs {
		byName[e.Name] = e
	}
}

// Lookup returns the register-table entry for name (case-insensitive), or
// ok=false if name does not name a register.
func Lookup(name string) (Entry, bool) {
	e, ok := byName[strings.ToUpper(name)]
	return e, ok
}

// IsSpecial reports whether name is one of PC, SR, F, F'.
func IsSpecial(name string) bool {
	return specialNames[strings.ToUpper(name)]
}

// IsRegister reports whether name is any register or special name.
func IsRegister(name string) bool {
	_, ok := Lookup(name)
	return ok || IsSpecial(name)
}

// CodeForSize returns the dispatch code for name at the given Size,
// independent of the register's own intrinsic size (used when an
// instruction's operand width selects the table, e.g. LD A,#imm uses the
// byte table regardless of how A happens to be tabulated elsewhere).
func CodeForSize(name string, size Size) (uint8, bool) {
	var table []Entry
	switch size {
	case SizeByte:
		table = byteRegs
	case SizeWord:
		table = wordRegs
	case SizeLong:
		table = longRegs
	default:
		return 0, false
	}
	upper := strings.ToUpper(name)
	for _, e := range table {
		if e.Name == upper {
			return e.Code, true
		}
	}
	return 0, false
}

// Condition is one of the 16 TLCS-900 condition codes (spec §4.3).
type Condition struct {
	Code  uint8
	Names []string
}

var conditions = []Condition{
	{0, []string{"F"}},
	{1, []string{"LT"}},
	{2, []string{"LE"}},
	{3, []string{"ULE"}},
	{4, []string{"PE", "OV"}},
	{5, []string{"MI", "M"}},
	{6, []string{"Z", "EQ"}},
	{7, []string{"C", "ULT"}},
	{8, []string{"T"}},
	{9, []string{"GE"}},
	{10, []string{"GT"}},
	{11, []string{"UGT"}},
	{12, []string{"PO", "NOV"}},
	{13, []string{"PL", "P"}},
	{14, []string{"NZ", "NE"}},
	{15, []string{"NC", "UGE"}},
}

var conditionByName map[string]uint8

func init() {
	conditionByName = make(map[string]uint8)
	for _, c := range conditions {
		for _, n := range c.Names {
			conditionByName[n] = c.Code
		}
	}
}

// LookupCondition returns the condition code for name (case-insensitive).
func LookupCondition(name string) (uint8, bool) {
	code, ok := conditionByName[strings.ToUpper(name)]
	return code, ok
}

// IsCondition reports whether name is a condition mnemonic.
func IsCondition(name string) bool {
	_, ok := LookupCondition(name)
	return ok
}

// AlwaysTrueCondition is condition code T (8), used when a branch
// mnemonic's condition operand is omitted (unconditional JR/JRL).
const AlwaysTrueCondition uint8 = 8

// AmbiguousNames are the identifiers that name both a register and a
// condition (spec §9): only C genuinely overlaps in the 8-bit register
// table, but Z/NC/NZ are listed in spec §4.3 rule 5 as requiring the same
// lookahead treatment.
var AmbiguousNames = map[string]bool{"C": true, "Z": true, "NC": true, "NZ": true}

// IsAmbiguous reports whether name requires the one-token lookahead past
// the comma (spec §4.3 rule 5, §9).
func IsAmbiguous(name string) bool {
	return AmbiguousNames[strings.ToUpper(name)]
}
