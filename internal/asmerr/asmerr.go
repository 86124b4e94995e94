// Package asmerr provides the position-tagged error model shared by every
// pass of the assembler.
package asmerr

import (
	"fmt"
	"strings"
)

// Position identifies a location in an assembly source file.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Kind categorises an assembly error.
type Kind int

const (
	KindUnterminatedString Kind = iota
	KindUnknownCharacter
	KindInvalidOperand
	KindExpectedX
	KindUnknownInstructionOrMacro
	KindUndefinedSymbol
	KindRedefinition
	KindDivByZero
	KindBranchOutOfRange
	KindUnsupportedOperandCombo
	KindCannotOpenFile
	KindIncludeTooDeep
	KindMacroTooDeep
	KindPathTooLong
	KindOutOfMemory
	KindTooManyErrors
)

func (k Kind) String() string {
	switch k {
	case KindUnterminatedString:
		return "unterminated string"
	case KindUnknownCharacter:
		return "unknown character"
	case KindInvalidOperand:
		return "invalid operand"
	case KindExpectedX:
		return "expected"
	case KindUnknownInstructionOrMacro:
		return "unknown instruction or macro"
	case KindUndefinedSymbol:
		return "undefined symbol"
	case KindRedefinition:
		return "redefinition"
	case KindDivByZero:
		return "division by zero"
	case KindBranchOutOfRange:
		return "branch out of range"
	case KindUnsupportedOperandCombo:
		return "unsupported operand combination"
	case KindCannotOpenFile:
		return "cannot open file"
	case KindIncludeTooDeep:
		return "include nesting too deep"
	case KindMacroTooDeep:
		return "macro nesting too deep"
	case KindPathTooLong:
		return "path too long"
	case KindOutOfMemory:
		return "out of memory"
	case KindTooManyErrors:
		return "too many errors"
	default:
		return "error"
	}
}

// Error is a single diagnostic with source position and context line.
type Error struct {
	Pos     Position
	Kind    Kind
	Message string
	Context string
}

// New creates an Error without source context.
func New(pos Position, kind Kind, message string) *Error {
	return &Error{Pos: pos, Kind: kind, Message: message}
}

// NewWithContext creates an Error carrying the offending source line.
func NewWithContext(pos Position, kind Kind, message, context string) *Error {
	return &Error{Pos: pos, Kind: kind, Message: message, Context: context}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: error: %s\n", e.Pos, e.Message))
	if e.Context != "" {
		sb.WriteString(fmt.Sprintf("    %s\n", e.Context))
	}
	return sb.String()
}

// Warning is a non-fatal diagnostic.
type Warning struct {
	Pos     Position
	Message string
}

func (w *Warning) String() string {
	return fmt.Sprintf("%s: warning: %s", w.Pos, w.Message)
}

// List accumulates errors and warnings across both assembly passes and
// enforces the too-many-errors abort threshold (spec §5).
type List struct {
	Errors   []*Error
	Warnings []*Warning
	MaxErrors int
}

// NewList creates an empty List with the given error-count abort threshold.
// A threshold of 0 means "use the default of 10000" (spec §5).
func NewList(maxErrors int) *List {
	if maxErrors <= 0 {
		maxErrors = 10000
	}
	return &List{MaxErrors: maxErrors}
}

// AddError appends err, returning a TooManyErrors error once MaxErrors is
// exceeded so the caller can abort the current file.
func (l *List) AddError(err *Error) error {
	l.Errors = append(l.Errors, err)
	if len(l.Errors) > l.MaxErrors {
		return New(err.Pos, KindTooManyErrors, fmt.Sprintf("more than %d errors, aborting", l.MaxErrors))
	}
	return nil
}

// AddWarning appends a warning.
func (l *List) AddWarning(w *Warning) {
	l.Warnings = append(l.Warnings, w)
}

// HasErrors reports whether any error has been recorded.
func (l *List) HasErrors() bool {
	return len(l.Errors) > 0
}

// Error implements the error interface, rendering every recorded error.
func (l *List) Error() string {
	if !l.HasErrors() {
		return ""
	}
	var sb strings.Builder
	for _, e := range l.Errors {
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// PrintWarnings renders every recorded warning.
func (l *List) PrintWarnings() string {
	if len(l.Warnings) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, w := range l.Warnings {
		sb.WriteString(w.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
