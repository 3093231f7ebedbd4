// Package config loads blocklog configuration.
//
// A configuration file may be YAML (.yaml, .yml, .json) or CUE (.cue). In
// both cases the data is unified with an embedded CUE schema that rejects
// unknown keys, checks value ranges and supplies defaults, so a missing
// file yields a complete default configuration.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/blocklog/internal/address"
	"github.com/roach88/blocklog/internal/eventlog"
	"github.com/roach88/blocklog/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Config is the validated configuration.
type Config struct {
	Database  string     `json:"database"`
	ProgramID string     `json:"program_id"`
	Namespace string     `json:"namespace"`
	Keypair   string     `json:"keypair,omitempty"`
	Rent      RentConfig `json:"rent"`
	LogLevel  string     `json:"log_level"`
}

// RentConfig prices account allocation.
type RentConfig struct {
	LamportsPerByteYear uint64 `json:"lamports_per_byte_year"`
	ExemptionYears      uint64 `json:"exemption_years"`
	AccountSpace        uint64 `json:"account_space"`
}

// Default returns the configuration used when no file is given.
func Default() (Config, error) {
	return Load("")
}

// Load reads, validates and defaults the configuration at path.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	return Parse(path, data)
}

// Parse validates data as the configuration format implied by name's
// extension. Empty data yields the defaults.
func Parse(name string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	var input cue.Value
	switch ext := strings.ToLower(filepath.Ext(name)); {
	case len(data) == 0:
		input = ctx.CompileString("{}")
	case ext == ".cue":
		input = ctx.CompileBytes(data, cue.Filename(name))
	case ext == ".yaml", ext == ".yml", ext == ".json":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", name, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
		input = ctx.Encode(raw)
	default:
		return Config{}, fmt.Errorf("config %s: unsupported format %q", name, ext)
	}
	if err := input.Err(); err != nil {
		return Config{}, fmt.Errorf("config %s: %s", name, describe(err))
	}

	v := def.Unify(input)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("config %s: %s", name, describe(err))
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: decode: %w", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

// describe flattens a CUE error list into one line.
func describe(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks constraints the schema cannot express.
func (c Config) Validate() error {
	if _, err := ir.ParsePubkey(c.ProgramID); err != nil {
		return fmt.Errorf("program_id: %w", err)
	}
	if len(c.Namespace) > address.MaxSeedLength {
		return fmt.Errorf("namespace: %d bytes exceeds %d", len(c.Namespace), address.MaxSeedLength)
	}
	return nil
}

// Deriver returns the address deriver described by the configuration.
func (c Config) Deriver() (address.Deriver, error) {
	programID, err := ir.ParsePubkey(c.ProgramID)
	if err != nil {
		return address.Deriver{}, fmt.Errorf("program_id: %w", err)
	}
	return address.Deriver{ProgramID: programID, Namespace: c.Namespace}, nil
}

// EventlogRent returns the allocation pricing.
func (c Config) EventlogRent() eventlog.Rent {
	return eventlog.Rent{
		LamportsPerByteYear: c.Rent.LamportsPerByteYear,
		ExemptionYears:      c.Rent.ExemptionYears,
		AccountSpace:        c.Rent.AccountSpace,
	}
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
