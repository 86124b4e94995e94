// Package config loads and saves tlcs900asm's TOML configuration file,
// following the structure and load/save conventions of a typical
// BurntSushi/toml-based CLI tool config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is tlcs900asm's configuration (spec.md's SPEC_FULL.md §2.3).
type Config struct {
	Assemble struct {
		MaxIterations   int    `toml:"max_iterations"`
		MaxErrors       int    `toml:"max_errors"`
		MaxIncludeDepth int    `toml:"max_include_depth"`
		MaxMacroDepth   int    `toml:"max_macro_depth"`
		MaxMode         string `toml:"max_mode"` // "error" or "warn" once MaxIterations is reached without convergence
		DefaultOutExt   string `toml:"default_out_ext"`
	} `toml:"assemble"`

	Listing struct {
		Enabled      bool   `toml:"enabled"`
		BytesPerRow  int    `toml:"bytes_per_row"`
		OutputFile   string `toml:"output_file"`
	} `toml:"listing"`

	XRef struct {
		Enabled    bool   `toml:"enabled"`
		OutputFile string `toml:"output_file"`
	} `toml:"xref"`
}

// Default returns a Config populated with tlcs900asm's built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Assemble.MaxIterations = 10
	cfg.Assemble.MaxErrors = 10000
	cfg.Assemble.MaxIncludeDepth = 16
	cfg.Assemble.MaxMacroDepth = 16
	cfg.Assemble.MaxMode = "error"
	cfg.Assemble.DefaultOutExt = ".rom"

	cfg.Listing.Enabled = false
	cfg.Listing.BytesPerRow = 8
	cfg.Listing.OutputFile = ""

	cfg.XRef.Enabled = false
	cfg.XRef.OutputFile = ""
	return cfg
}

// Load reads a Config from path, falling back to Default() values for any
// field a partial config file omits, and returning Default() unmodified
// if path does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo writes c to path in TOML form, creating parent directories as
// needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	f, err := os.Create(path) // #nosec G304 -- user-provided config path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
