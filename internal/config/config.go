// Package config loads run settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every subcommand. Flags override
// file values.
type Config struct {
	Arch       string `yaml:"arch"`   // arm64, x86-64, fuc, xtensa; empty: from the ELF header
	Format     string `yaml:"format"` // objdump, envydis, elf
	MaxSteps   int    `yaml:"max_steps"`
	Mode       Mode   `yaml:"mode"`
	LogLevel   string `yaml:"log_level"`
	DotDir     string `yaml:"dot_dir"`
	MetricsOut string `yaml:"metrics_out"`
}

// Accepted values.
var (
	Archs   = []string{"arm64", "x86-64", "fuc", "xtensa"}
	Formats = []string{"objdump", "envydis", "elf"}
)

// ErrInvalid matches validation failures.
var ErrInvalid = errors.New("config: invalid value")

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Format:   "elf",
		MaxSteps: DefaultMaxSteps,
		Mode:     ModeStrict,
		LogLevel: "info",
	}
}

// Load reads path over the defaults. An empty path yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every enumerated field.
func (c Config) Validate() error {
	if c.Arch != "" && !oneOf(c.Arch, Archs) {
		return fmt.Errorf("%w: arch %q", ErrInvalid, c.Arch)
	}
	if !oneOf(c.Format, Formats) {
		return fmt.Errorf("%w: format %q", ErrInvalid, c.Format)
	}
	if c.Mode != ModeStrict && c.Mode != ModeBestEffort {
		return fmt.Errorf("%w: mode %q", ErrInvalid, c.Mode)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Level returns the parsed log level, info when unset.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Strict reports whether the first failure ends the run.
func (c Config) Strict() bool { return c.Mode != ModeBestEffort }

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
