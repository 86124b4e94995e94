// Package xref generates a cross-reference report over a completed
// symbol table, grounded directly on the teacher's tools/xref.go report
// format (sorted name, definition site, reference list).
package xref

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/symtab"
)

// Report renders every symbol in t, sorted by name, with its kind,
// definition site, and every reference site.
func Report(t *symtab.Table) string {
	all := t.All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sym := all[name]
		def := "undefined"
		if sym.Defined {
			def = fmt.Sprintf("%s = 0x%X (%s)", sym.DefinitionSite, sym.Value, sym.Kind)
		}
		fmt.Fprintf(&sb, "%-24s %s\n", sym.Name, def)
		for _, ref := range sym.References {
			fmt.Fprintf(&sb, "    referenced at %s\n", ref)
		}
	}
	return sb.String()
}

// Undefined returns the names of every symbol referenced but never
// defined, sorted.
func Undefined(t *symtab.Table) []string {
	var names []string
	for _, sym := range t.UndefinedSymbols() {
		names = append(names, sym.Name)
	}
	sort.Strings(names)
	return names
}
