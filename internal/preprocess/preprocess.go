// Package preprocess resolves INCLUDE directives and IFDEF/IFNDEF/
// ELSE/ENDIF conditional assembly into a flat line list, before the
// sizing/emit loop ever sees the source. Grounded on the teacher's
// Preprocessor's include-stack/conditional-stack shape.
package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/asmerr"
)

// Line is one physical source line tagged with its originating position
// (which, after INCLUDE expansion, may name a different file than the
// top-level input).
type Line struct {
	Text string
	Pos  asmerr.Position
}

// Preprocessor resolves includes (bounded by MaxIncludeDepth) and
// conditional-assembly directives against a set of externally-defined
// symbols.
type Preprocessor struct {
	baseDir         string
	maxIncludeDepth int
	includeStack    []string
	defines         map[string]bool
}

// New creates a Preprocessor rooted at baseDir (used to resolve relative
// INCLUDE paths), bounding include nesting at maxIncludeDepth.
func New(baseDir string, maxIncludeDepth int) *Preprocessor {
	if baseDir == "" {
		baseDir = "."
	}
	return &Preprocessor{
		baseDir:         baseDir,
		maxIncludeDepth: maxIncludeDepth,
		defines:         make(map[string]bool),
	}
}

// Define marks symbol as defined for IFDEF/IFNDEF evaluation.
func (p *Preprocessor) Define(symbol string) { p.defines[symbol] = true }

// IsDefined reports whether symbol was marked defined.
func (p *Preprocessor) IsDefined(symbol string) bool { return p.defines[symbol] }

// ProcessFile reads filename and returns its fully include-expanded,
// conditional-assembly-resolved line list.
func (p *Preprocessor) ProcessFile(filename string) ([]Line, error) {
	absPath, err := filepath.Abs(filepath.Join(p.baseDir, filename))
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(absPath) // #nosec G304 -- user-provided include file path
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return p.process(string(content), filename)
}

type condFrame struct {
	active bool // this branch is the one being taken
	taken  bool // some branch in this if-chain has already been taken
}

func (p *Preprocessor) process(content, filename string) ([]Line, error) {
	rawLines := strings.Split(content, "\n")
	var out []Line
	var stack []condFrame

	skipping := func() bool {
		for _, f := range stack {
			if !f.active {
				return true
			}
		}
		return false
	}

	for i, raw := range rawLines {
		pos := asmerr.Position{File: filename, Line: i + 1, Column: 1}
		trimmed := strings.TrimSpace(raw)
		upper := strings.ToUpper(trimmed)

		switch {
		case strings.HasPrefix(upper, "IFDEF "):
			sym := strings.TrimSpace(trimmed[6:])
			active := !skipping() && p.IsDefined(sym)
			stack = append(stack, condFrame{active: active, taken: active})
			continue
		case strings.HasPrefix(upper, "IFNDEF "):
			sym := strings.TrimSpace(trimmed[7:])
			active := !skipping() && !p.IsDefined(sym)
			stack = append(stack, condFrame{active: active, taken: active})
			continue
		case upper == "ELSE":
			if len(stack) == 0 {
				return nil, asmerr.New(pos, asmerr.KindExpectedX, "ELSE without matching IFDEF/IFNDEF")
			}
			top := &stack[len(stack)-1]
			parentActive := true
			for _, f := range stack[:len(stack)-1] {
				parentActive = parentActive && f.active
			}
			top.active = parentActive && !top.taken
			top.taken = top.taken || top.active
			continue
		case upper == "ENDIF":
			if len(stack) == 0 {
				return nil, asmerr.New(pos, asmerr.KindExpectedX, "ENDIF without matching IFDEF/IFNDEF")
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if skipping() {
			continue
		}

		if strings.HasPrefix(upper, "INCLUDE ") {
			if len(p.includeStack) >= p.maxIncludeDepth {
				return nil, asmerr.New(pos, asmerr.KindIncludeTooDeep,
					fmt.Sprintf("include depth exceeds %d", p.maxIncludeDepth))
			}
			incName := strings.Trim(strings.TrimSpace(trimmed[8:]), `"`)
			absPath, err := filepath.Abs(filepath.Join(p.baseDir, incName))
			if err != nil {
				return nil, err
			}
			for _, included := range p.includeStack {
				if included == absPath {
					return nil, asmerr.New(pos, asmerr.KindIncludeTooDeep,
						fmt.Sprintf("circular include of %s", incName))
				}
			}
			content, err := os.ReadFile(absPath) // #nosec G304 -- user-provided include file path
			if err != nil {
				return nil, fmt.Errorf("%s: failed to read include %s: %w", pos, incName, err)
			}
			p.includeStack = append(p.includeStack, absPath)
			included, err := p.process(string(content), incName)
			p.includeStack = p.includeStack[:len(p.includeStack)-1]
			if err != nil {
				return nil, err
			}
			out = append(out, included...)
			continue
		}

		out = append(out, Line{Text: raw, Pos: pos})
	}

	if len(stack) != 0 {
		return nil, asmerr.New(asmerr.Position{File: filename}, asmerr.KindExpectedX, "unterminated IFDEF/IFNDEF")
	}
	return out, nil
}
