// Package symtab implements the case-insensitive symbol table (C1).
package symtab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
)

// ErrRedefinition is wrapped by Define when an already defined non-Set
// symbol is redefined during sizing iteration 1 (same kind or not), and by
// DefineMacro when the name is already defined.
var ErrRedefinition = errors.New("redefinition")

// Kind distinguishes the five symbol kinds named in spec §3.
type Kind int

const (
	Label Kind = iota
	Equ
	Set
	Macro
	Section
)

func (k Kind) String() string {
	switch k {
	case Label:
		return "label"
	case Equ:
		return "equ"
	case Set:
		return "set"
	case Macro:
		return "macro"
	case Section:
		return "section"
	default:
		return "unknown"
	}
}

// Symbol is an entity identified by a case-folded name (spec §3).
type Symbol struct {
	Name           string
	Kind           Kind
	Value          int64
	Defined        bool
	DefinitionSite asmerr.Position
	References     []asmerr.Position

	// Macro-only fields; body-line ownership transfers to the symbol on
	// define_macro (spec §4.1).
	MacroParams []string
	MacroBody   []string
}

// Table maps case-folded names to symbols (C1).
type Table struct {
	symbols map[string]*Symbol
}

// New creates an empty symbol table.
func New() *Table {
	return &Table{symbols: make(map[string]*Symbol)}
}

func fold(name string) string {
	return strings.ToLower(name)
}

// Lookup returns the symbol for name, case-insensitively.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.symbols[fold(name)]
	return sym, ok
}

// Define defines or updates a symbol per spec §4.1: a Label/Equ may be
// defined at most once; in sizing iteration 1, redefining an already
// defined symbol, with the same kind or a different one, is an error
// (unless either the old or the new kind is Set, which may always rebind).
// In later iterations (sizingIteration > 1) an existing Label/Equ's value
// is updated in place, since labels legitimately move between sizing
// iterations.
func (t *Table) Define(name string, kind Kind, value int64, pos asmerr.Position, sizingIteration int) (*Symbol, error) {
	key := fold(name)
	if existing, ok := t.symbols[key]; ok {
		if kind == Set || existing.Kind == Set {
			existing.Kind = kind
			existing.Value = value
			existing.Defined = true
			existing.DefinitionSite = pos
			return existing, nil
		}
		// Iteration 1 is the very first time source is scanned: any symbol
		// already Defined at this point was necessarily defined earlier in
		// this same pass, so a second Define call here is always a genuine
		// duplicate-in-source-text error — same kind or not (spec §3: "a
		// Label or Equ may be defined at most once"). From iteration 2
		// onward each full pass legitimately redefines every Label as it
		// moves (spec §4.1: "updates value in-place"), so no check applies.
		if existing.Defined && sizingIteration <= 1 {
			return nil, fmt.Errorf("%s: %w: %q already defined as %s at %s",
				pos, ErrRedefinition, name, existing.Kind, existing.DefinitionSite)
		}
		existing.Kind = kind
		existing.Value = value
		existing.Defined = true
		existing.DefinitionSite = pos
		return existing, nil
	}

	sym := &Symbol{
		Name:           name,
		Kind:           kind,
		Value:          value,
		Defined:        true,
		DefinitionSite: pos,
	}
	t.symbols[key] = sym
	return sym, nil
}

// DefineMacro defines a macro symbol, transferring body-line ownership.
func (t *Table) DefineMacro(name string, params, body []string, pos asmerr.Position) (*Symbol, error) {
	key := fold(name)
	if existing, ok := t.symbols[key]; ok && existing.Defined {
		return nil, fmt.Errorf("%s: %w: macro %q already defined at %s",
			pos, ErrRedefinition, name, existing.DefinitionSite)
	}
	sym := &Symbol{
		Name:           name,
		Kind:           Macro,
		Defined:        true,
		DefinitionSite: pos,
		MacroParams:    params,
		MacroBody:      body,
	}
	t.symbols[key] = sym
	return sym, nil
}

// GetValue returns a symbol's value, marking the symbol referenced. It
// returns ok=false if the symbol does not exist or is not yet defined
// (forward reference).
func (t *Table) GetValue(name string, pos asmerr.Position) (value int64, ok bool) {
	key := fold(name)
	sym, exists := t.symbols[key]
	if !exists {
		t.symbols[key] = &Symbol{Name: name, Kind: Label, References: []asmerr.Position{pos}}
		return 0, false
	}
	sym.References = append(sym.References, pos)
	if !sym.Defined {
		return 0, false
	}
	return sym.Value, true
}

// Reference marks an existing or yet-undefined symbol as referenced at pos,
// without requiring a value.
func (t *Table) Reference(name string, pos asmerr.Position) {
	key := fold(name)
	if sym, ok := t.symbols[key]; ok {
		sym.References = append(sym.References, pos)
		return
	}
	t.symbols[key] = &Symbol{Name: name, Kind: Label, References: []asmerr.Position{pos}}
}

// UndefinedSymbols returns every symbol referenced but never defined.
func (t *Table) UndefinedSymbols() []*Symbol {
	var undefined []*Symbol
	for _, sym := range t.symbols {
		if !sym.Defined {
			undefined = append(undefined, sym)
		}
	}
	return undefined
}

// All returns every symbol in the table.
func (t *Table) All() map[string]*Symbol {
	return t.symbols
}

// Clear empties the table, discarding all symbols.
func (t *Table) Clear() {
	t.symbols = make(map[string]*Symbol)
}

// IsRedefinition reports whether err wraps ErrRedefinition.
func IsRedefinition(err error) bool {
	return errors.Is(err, ErrRedefinition)
}
