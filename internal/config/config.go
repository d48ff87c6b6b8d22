// Package config provides configuration loading for the labelindex command.
//
// Configuration is resolved in three layers, later layers winning:
//   - built-in defaults (Default)
//   - a YAML file given by --config or the LABELINDEX_CONFIG environment
//     variable
//   - LABELINDEX_* environment variables
//
// Command-line flags are applied on top by the command itself.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/beetlebugorg/labelindex/pkg/labels"
)

// EnvPrefix prefixes every environment variable read by this package.
const EnvPrefix = "LABELINDEX_"

// Config is the complete configuration of the labelindex command.
type Config struct {
	// Index configures index construction.
	Index IndexConfig `yaml:"index"`

	// Parse configures how c.e files are read.
	Parse ParseConfig `yaml:"parse"`

	// Log configures diagnostic output.
	Log LogConfig `yaml:"log"`

	// Snapshot configures snapshot files.
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// IndexConfig configures index construction.
type IndexConfig struct {
	// Template is the base label size as [width, height].
	// Default: [0, 0] (labels are points)
	Template [2]float64 `yaml:"template"`

	// FanOut is the number of entries per node.
	// Default: 16
	FanOut int `yaml:"fanout"`

	// Workers bounds build parallelism. 0 uses all CPUs.
	Workers int `yaml:"workers"`

	// Geographic validates lon/lat ranges and enables antimeridian queries.
	Geographic bool `yaml:"geographic"`
}

// ParseConfig configures how c.e files are read.
type ParseConfig struct {
	// StrictCount requires the declared count to match the label lines.
	// Default: true
	StrictCount bool `yaml:"strict_count"`

	// SkipMalformed drops lines that do not follow the grammar.
	// Default: true
	SkipMalformed bool `yaml:"skip_malformed"`
}

// LogConfig configures diagnostic output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: warn
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// SnapshotConfig configures snapshot files.
type SnapshotConfig struct {
	// Compression is zstd or lz4.
	// Default: zstd
	Compression string `yaml:"compression"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			FanOut:  labels.DefaultFanOut,
			Workers: runtime.NumCPU(),
		},
		Parse: ParseConfig{
			StrictCount:   true,
			SkipMalformed: true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Snapshot: SnapshotConfig{
			Compression: "zstd",
		},
	}
}

// Load resolves the configuration from path, or from LABELINDEX_CONFIG when
// path is empty. Without either, the defaults are used. Environment
// overrides are applied in every case.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a YAML file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// applyEnv applies LABELINDEX_* overrides using lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	if v, ok := lookup(EnvPrefix + "TEMPLATE"); ok {
		wh, err := ParseFloats(v, 2)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTEMPLATE: %w", EnvPrefix, err))
		} else {
			c.Index.Template = [2]float64{wh[0], wh[1]}
		}
	}
	integer("FANOUT", &c.Index.FanOut)
	integer("WORKERS", &c.Index.Workers)
	boolean("GEOGRAPHIC", &c.Index.Geographic)
	boolean("STRICT_COUNT", &c.Parse.StrictCount)
	boolean("SKIP_MALFORMED", &c.Parse.SkipMalformed)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("SNAPSHOT_COMPRESSION", &c.Snapshot.Compression)

	return errors.Join(errs...)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !c.Template().Valid() {
		errs = append(errs, fmt.Errorf("index.template must be finite and not negative: %v", c.Index.Template))
	}
	if c.Index.FanOut != 0 && (c.Index.FanOut < labels.MinFanOut || c.Index.FanOut > labels.MaxFanOut) {
		errs = append(errs, fmt.Errorf("index.fanout must be between %d and %d, got %d",
			labels.MinFanOut, labels.MaxFanOut, c.Index.FanOut))
	}
	if c.Index.Workers < 0 {
		errs = append(errs, fmt.Errorf("index.workers must not be negative, got %d", c.Index.Workers))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid log.format: %q (expected text or json)", c.Log.Format))
	}
	if _, err := labels.ParseCompression(c.Snapshot.Compression); err != nil {
		errs = append(errs, fmt.Errorf("snapshot.compression: %w", err))
	}

	return errors.Join(errs...)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	return level, nil
}

// Template returns the configured base label size.
func (c *Config) Template() labels.Template {
	return labels.Template{Width: c.Index.Template[0], Height: c.Index.Template[1]}
}

// Options converts the configuration into options for labels.Init.
func (c *Config) Options(logger *labels.Logger, metrics labels.MetricsCollector) []labels.Option {
	workers := c.Index.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return []labels.Option{
		labels.WithTemplate(c.Template()),
		labels.WithFanOut(c.Index.FanOut),
		labels.WithWorkers(workers),
		labels.WithGeographic(c.Index.Geographic),
		labels.WithParseOptions(labels.ParseOptions{
			StrictCount:   c.Parse.StrictCount,
			SkipMalformed: c.Parse.SkipMalformed,
		}),
		labels.WithLogger(logger),
		labels.WithMetricsCollector(metrics),
	}
}

// ParseFloats parses exactly n comma-separated numbers, as used for
// templates ("w,h") and boxes ("minx,miny,maxx,maxy").
func ParseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}
