// Command tlcs900asm assembles ASL-compatible TLCS-900/H assembly source
// into a raw binary image.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/felipesanches/tlcs900asm/internal/config"
	"github.com/felipesanches/tlcs900asm/internal/listing"
	"github.com/felipesanches/tlcs900asm/internal/macro"
	"github.com/felipesanches/tlcs900asm/internal/pass"
	"github.com/felipesanches/tlcs900asm/internal/preprocess"
	"github.com/felipesanches/tlcs900asm/internal/symtab"
	"github.com/felipesanches/tlcs900asm/internal/xref"
)

// defines collects repeated -D flag occurrences.
type defines []string

func (d *defines) String() string     { return strings.Join(*d, ",") }
func (d *defines) Set(v string) error { *d = append(*d, v); return nil }

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		outFile     = flag.String("o", "", "Output binary file (default: input file with .rom extension)")
		configFile  = flag.String("config", "tlcs900asm.toml", "Configuration file path")
		dumpSymbols = flag.Bool("dump-symbols", false, "Dump symbol table and exit after assembly")
		listingFlag = flag.Bool("listing", false, "Write a hex-dump listing alongside the binary")
		xrefFlag    = flag.Bool("xref", false, "Write a symbol cross-reference report alongside the binary")
		maxIterFlag = flag.Int("max-iterations", 0, "Override configured sizing-loop iteration limit (0: use config)")
		defs        defines
	)
	flag.Var(&defs, "D", "Define a preprocessor symbol for IFDEF/IFNDEF (repeatable); name[=value]")
	flag.Parse()

	if *showVersion {
		fmt.Println("tlcs900asm (TLCS-900/H two-pass assembler)")
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: tlcs900asm [flags] <input.asm>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	inFile := flag.Arg(0)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	opts := pass.DefaultOptions()
	opts.MaxIterations = cfg.Assemble.MaxIterations
	opts.MaxErrors = cfg.Assemble.MaxErrors
	opts.MaxMacroDepth = cfg.Assemble.MaxMacroDepth
	opts.BaseDir = "."
	opts.NonConvergenceIsError = !strings.EqualFold(cfg.Assemble.MaxMode, "warn")
	if *maxIterFlag > 0 {
		opts.MaxIterations = *maxIterFlag
	}

	pp := preprocess.New(".", cfg.Assemble.MaxIncludeDepth)
	for _, d := range defs {
		if name, _, found := strings.Cut(d, "="); found {
			pp.Define(name)
		} else {
			pp.Define(d)
		}
	}
	lines, err := pp.ProcessFile(inFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	symbols := symtab.New()
	driver := pass.New(opts, symbols, macro.New())
	result, err := driver.Assemble(lines)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if result.Errors != nil && result.Errors.HasErrors() {
		fmt.Fprint(os.Stderr, result.Errors.Error())
		os.Exit(1)
	}
	fmt.Fprint(os.Stderr, result.Errors.PrintWarnings())

	out := *outFile
	if out == "" {
		out = trimExt(inFile) + cfg.Assemble.DefaultOutExt
	}
	if err := os.WriteFile(out, result.Output, 0o644); err != nil { // #nosec G306 -- assembler output is not sensitive
		fmt.Fprintln(os.Stderr, "error writing output:", err)
		os.Exit(1)
	}

	if *listingFlag || cfg.Listing.Enabled {
		listFile := cfg.Listing.OutputFile
		if listFile == "" {
			listFile = trimExt(out) + ".lst"
		}
		bytesPerRow := cfg.Listing.BytesPerRow
		if err := os.WriteFile(listFile, []byte(listing.Write(result.Output, bytesPerRow)), 0o644); err != nil { // #nosec G306
			fmt.Fprintln(os.Stderr, "error writing listing:", err)
			os.Exit(1)
		}
	}

	if *xrefFlag || cfg.XRef.Enabled {
		xrefFile := cfg.XRef.OutputFile
		if xrefFile == "" {
			xrefFile = trimExt(out) + ".xref"
		}
		if err := os.WriteFile(xrefFile, []byte(xref.Report(symbols)), 0o644); err != nil { // #nosec G306
			fmt.Fprintln(os.Stderr, "error writing xref report:", err)
			os.Exit(1)
		}
	}

	if *dumpSymbols {
		fmt.Print(xref.Report(symbols))
	}

	fmt.Fprintf(os.Stderr, "assembled %s -> %s (%d bytes, %d sizing iterations)\n",
		inFile, out, len(result.Output), result.Iterations)
}

func trimExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
