// Package config loads the engine configuration.
//
// A configuration file is CUE (JSON is valid CUE). It is unified with an
// embedded schema that closes the field set, constrains values and supplies
// defaults, so a missing or empty file yields Default().
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// Config is the resolved engine configuration.
type Config struct {
	Database            string
	LogLevel            slog.Level
	WaitlistTTL         time.Duration
	PruneInterval       time.Duration
	RegistrationTimeout time.Duration
	RefCacheSize        int
	RefCacheTTL         time.Duration
	MetricsAddr         string
}

// file mirrors #Config in the schema.
type file struct {
	Database            string `json:"database"`
	LogLevel            string `json:"log_level"`
	WaitlistTTL         string `json:"waitlist_ttl"`
	PruneInterval       string `json:"prune_interval"`
	RegistrationTimeout string `json:"registration_timeout"`
	RefCacheSize        int    `json:"ref_cache_size"`
	RefCacheTTL         string `json:"ref_cache_ttl"`
	MetricsAddr         string `json:"metrics_addr"`
}

// Error is a configuration error with its source position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the configuration an empty file resolves to.
func Default() *Config {
	cfg, err := Parse("default.cue", nil)
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and resolves the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return Parse(path, data)
}

// Parse resolves configuration source. name is used in error positions.
func Parse(name string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	src := ctx.CompileBytes(data, cue.Filename(name))
	if err := src.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := def.Unify(src)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f file
	if err := v.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}
	return f.resolve()
}

func (f file) resolve() (*Config, error) {
	cfg := &Config{
		Database:     f.Database,
		RefCacheSize: f.RefCacheSize,
		MetricsAddr:  f.MetricsAddr,
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return nil, &Error{Field: "log_level", Message: err.Error()}
	}

	durations := []struct {
		field string
		src   string
		dst   *time.Duration
	}{
		{"waitlist_ttl", f.WaitlistTTL, &cfg.WaitlistTTL},
		{"prune_interval", f.PruneInterval, &cfg.PruneInterval},
		{"registration_timeout", f.RegistrationTimeout, &cfg.RegistrationTimeout},
		{"ref_cache_ttl", f.RefCacheTTL, &cfg.RefCacheTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return nil, &Error{Field: d.field, Message: err.Error()}
		}
		*d.dst = v
	}
	if cfg.PruneInterval <= 0 {
		return nil, &Error{Field: "prune_interval", Message: "must be positive"}
	}
	return cfg, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	e := &Error{Field: "config", Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		e.Field = path[len(path)-1]
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
