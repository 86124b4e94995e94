// Package macro implements MACRO/ENDM definition capture and textual
// expansion, grounded on the teacher's macro-table/parameter-substitution
// shape.
package macro

import (
	"fmt"
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
)

// MaxExpansionDepth is the default macro-invoking-macro nesting bound,
// equal to internal/config's default MaxMacroDepth; pass.Driver enforces
// its Options.MaxMacroDepth, not this constant.
const MaxExpansionDepth = 16

// Macro is a MACRO...ENDM definition: a name, formal parameters, and the
// raw body lines to be substituted and re-tokenized on each invocation.
type Macro struct {
	Name   string
	Params []string
	Body   []string
	Pos    asmerr.Position
}

// Table holds every macro defined so far, keyed case-insensitively.
type Table struct {
	macros map[string]*Macro
}

// New creates an empty macro Table.
func New() *Table {
	return &Table{macros: make(map[string]*Macro)}
}

// Define registers m, failing if a macro of that name already exists.
func (t *Table) Define(m *Macro) error {
	key := strings.ToLower(m.Name)
	if existing, ok := t.macros[key]; ok {
		return fmt.Errorf("%s: macro %q already defined at %s", m.Pos, m.Name, existing.Pos)
	}
	t.macros[key] = m
	return nil
}

// Lookup returns the macro named name, case-insensitively.
func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[strings.ToLower(name)]
	return m, ok
}

// Expand substitutes args for m's formal parameters across m's body lines,
// returning the expanded lines for re-tokenization. Parameters are
// referenced in the body as \name or \{name}.
func Expand(m *Macro, args []string, pos asmerr.Position) ([]string, error) {
	if len(args) != len(m.Params) {
		return nil, fmt.Errorf("%s: macro %q expects %d argument(s), got %d",
			pos, m.Name, len(m.Params), len(args))
	}
	subs := make(map[string]string, len(m.Params))
	for i, p := range m.Params {
		subs[p] = args[i]
	}
	expanded := make([]string, len(m.Body))
	for i, line := range m.Body {
		expanded[i] = substitute(line, subs)
	}
	return expanded, nil
}

func substitute(line string, subs map[string]string) string {
	result := line
	for param, value := range subs {
		result = strings.ReplaceAll(result, "\\{"+param+"}", value)
		result = strings.ReplaceAll(result, "\\"+param, value)
	}
	return result
}
