// Package config loads sigforge's TOML configuration, following the
// same struct-of-sections, DefaultConfig-then-overlay pattern used by
// the emulator tooling in this ecosystem.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/keurnel/sigforge/internal/sigasm"
)

// Config is the full set of sigforge defaults a TOML file may override.
type Config struct {
	Wildcards struct {
		RelativeJumps       bool `toml:"relative_jumps"`
		RelativeCalls       bool `toml:"relative_calls"`
		StackOffsets        bool `toml:"stack_offsets"`
		GlobalAddresses     bool `toml:"global_addresses"`
		Immediates          bool `toml:"immediates"`
		StructOffsets       bool `toml:"struct_offsets"`
		MemoryDisplacements bool `toml:"memory_displacements"`
	} `toml:"wildcards"`

	Options struct {
		MinLength     int `toml:"min_length"`
		MaxLength     int `toml:"max_length"`
		Variants      int `toml:"variants"`
		ContextBefore int `toml:"context_before"`
		ContextAfter  int `toml:"context_after"`
	} `toml:"options"`

	Output struct {
		Format string `toml:"format"`
		Module string `toml:"module"`
	} `toml:"output"`
}

// DefaultConfig returns the built-in defaults, matching
// sigasm.DefaultSignatureOptions/DefaultWildcardRules.
func DefaultConfig() *Config {
	cfg := &Config{}

	rules := sigasm.DefaultWildcardRules()
	cfg.Wildcards.RelativeJumps = rules.RelativeJumps
	cfg.Wildcards.RelativeCalls = rules.RelativeCalls
	cfg.Wildcards.StackOffsets = rules.StackOffsets
	cfg.Wildcards.GlobalAddresses = rules.GlobalAddresses
	cfg.Wildcards.Immediates = rules.Immediates
	cfg.Wildcards.StructOffsets = rules.StructOffsets
	cfg.Wildcards.MemoryDisplacements = rules.MemoryDisplacements

	opts := sigasm.DefaultSignatureOptions()
	cfg.Options.MinLength = opts.MinLength
	cfg.Options.MaxLength = opts.MaxLength
	cfg.Options.Variants = opts.Variants
	cfg.Options.ContextBefore = opts.ContextBefore
	cfg.Options.ContextAfter = opts.ContextAfter

	cfg.Output.Format = "aob"
	cfg.Output.Module = "game.exe"

	return cfg
}

// Load reads path over the built-in defaults. A missing file is not an
// error — the defaults are returned unchanged; malformed TOML is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// WildcardRules converts the loaded config into the core's WildcardRules
// value.
func (c *Config) WildcardRules() sigasm.WildcardRules {
	return sigasm.WildcardRules{
		RelativeJumps:       c.Wildcards.RelativeJumps,
		RelativeCalls:       c.Wildcards.RelativeCalls,
		StackOffsets:        c.Wildcards.StackOffsets,
		GlobalAddresses:     c.Wildcards.GlobalAddresses,
		Immediates:          c.Wildcards.Immediates,
		StructOffsets:       c.Wildcards.StructOffsets,
		MemoryDisplacements: c.Wildcards.MemoryDisplacements,
	}
}

// SignatureOptions converts the loaded config into the core's
// SignatureOptions value.
func (c *Config) SignatureOptions() sigasm.SignatureOptions {
	return sigasm.SignatureOptions{
		MinLength:     c.Options.MinLength,
		MaxLength:     c.Options.MaxLength,
		Variants:      c.Options.Variants,
		ContextBefore: c.Options.ContextBefore,
		ContextAfter:  c.Options.ContextAfter,
		WildcardRules: c.WildcardRules(),
	}
}
