package scratch

import (
	"context"
	_ "embed"
	"time"

	"cuelang.org/go/cue"
	jcue "github.com/jmgilman/go/cue"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
)

//go:embed schema.cue
var configSchema []byte

// Config is the file form of the Manager options. Unset fields keep their
// defaults.
//
// Example file:
//
//	data_dir:          "/var/lib/scratch"
//	toolchain_version: "go1.25"
//	orphan_grace:      "72h"
type Config struct {
	DataDir          string   `json:"data_dir,omitempty"`
	ToolchainVersion string   `json:"toolchain_version,omitempty"`
	Depot            string   `json:"depot,omitempty"`
	OrphanGrace      Duration `json:"orphan_grace,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("72h").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// LoadConfig reads and validates the CUE config file at path.
//
// Returns errors.CodeNotFound if the file does not exist and
// errors.CodeInvalidConfig if it cannot be read. Errors from ParseConfig are
// returned unchanged.
func LoadConfig(ctx context.Context, fsys core.ReadFS, path string) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return nil, errors.WithContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), "path", path)
		}
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeInvalidConfig, "failed to read config file"), "path", path)
	}

	return ParseConfig(ctx, data, path)
}

// ParseConfig validates CUE source against the config schema and decodes it.
// filename is used in error positions only.
//
// Returns errors.CodeCUEBuildFailed if the source does not compile,
// errors.CodeCUEValidationFailed if it does not match the schema,
// errors.CodeCUEDecodeFailed if a value cannot be decoded and
// errors.CodeInvalidConfig if orphan_grace is negative.
func ParseConfig(ctx context.Context, data []byte, filename string) (*Config, error) {
	loader := jcue.NewLoader(nil)

	root, err := loader.LoadBytes(ctx, configSchema, "schema.cue")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "config schema is invalid")
	}
	schema := root.LookupPath(cue.ParsePath("#Config"))

	value, err := loader.LoadBytes(ctx, data, filename)
	if err != nil {
		return nil, errors.WithContext(err, "path", filename)
	}

	if err := jcue.Validate(ctx, schema, value); err != nil {
		return nil, errors.WithContext(err, "path", filename)
	}

	var cfg Config
	if err := jcue.Decode(ctx, schema.Unify(value), &cfg); err != nil {
		return nil, errors.WithContext(err, "path", filename)
	}

	if cfg.OrphanGrace < 0 {
		return nil, errors.WithContext(
			errors.New(errors.CodeInvalidConfig, "orphan_grace cannot be negative"),
			"path", filename,
		)
	}

	return &cfg, nil
}

// Options converts the config into Manager options.
func (c *Config) Options() []Option {
	var opts []Option
	if c.DataDir != "" {
		opts = append(opts, WithDataDir(c.DataDir))
	}
	if c.ToolchainVersion != "" {
		opts = append(opts, WithToolchainVersion(c.ToolchainVersion))
	}
	if c.Depot != "" {
		opts = append(opts, WithDepot(c.Depot))
	}
	if c.OrphanGrace != 0 {
		opts = append(opts, WithOrphanGrace(time.Duration(c.OrphanGrace)))
	}
	return opts
}
