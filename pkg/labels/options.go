package labels

import (
	"runtime"

	"github.com/beetlebugorg/labelindex/internal/parser"
)

// DefaultFanOut is the number of children per index node when none is configured.
const DefaultFanOut = 16

// MinFanOut is the smallest usable fan-out.
const MinFanOut = 2

// MaxFanOut is the largest usable fan-out.
const MaxFanOut = 4096

// BuildOptions configures index construction.
type BuildOptions struct {
	// Template is the base label size scaled by each label's size factor.
	// The zero template indexes labels as points at their anchors.
	Template Template

	// FanOut is the maximum number of entries per leaf bucket and children
	// per internal node. Values are clamped to [MinFanOut, MaxFanOut].
	// Default: DefaultFanOut
	FanOut int

	// Workers bounds the goroutines used to partition sibling groups.
	// 0 or 1 builds sequentially. Parallel and sequential builds produce
	// identical indexes.
	// Default: runtime.NumCPU()
	Workers int

	// Geographic rejects labels outside lon ±180 / lat ±90 and enables
	// antimeridian-crossing queries (MinX > MaxX).
	Geographic bool

	// Logger receives build diagnostics. Nil disables logging.
	Logger *Logger

	// Metrics receives build metrics. Nil disables collection.
	Metrics MetricsCollector
}

// DefaultBuildOptions returns build options with defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		FanOut:  DefaultFanOut,
		Workers: runtime.NumCPU(),
		Logger:  NoopLogger(),
		Metrics: NoopMetricsCollector{},
	}
}

func (o BuildOptions) normalized() BuildOptions {
	if o.FanOut == 0 {
		o.FanOut = DefaultFanOut
	}
	o.FanOut = min(max(o.FanOut, MinFanOut), MaxFanOut)
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = NoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetricsCollector{}
	}
	return o
}

// ParseOptions configures how c.e files are read.
type ParseOptions struct {
	// StrictCount requires the declared label count to match the parsed
	// label lines. Default is true.
	StrictCount bool

	// SkipMalformed drops lines that do not follow the c.e grammar instead
	// of failing the whole file. Default is true.
	SkipMalformed bool
}

// DefaultParseOptions returns default options.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		StrictCount:   true,
		SkipMalformed: true,
	}
}

func (o ParseOptions) internal() parser.ParseOptions {
	opts := parser.DefaultParseOptions()
	opts.StrictCount = o.StrictCount
	opts.SkipMalformed = o.SkipMalformed
	return opts
}

type options struct {
	build  BuildOptions
	parse  ParseOptions
	parser Parser
	cache  *Cache

	// customParser is set when WithParser supplied the parser. Its output
	// is not cached.
	customParser bool
}

// Option configures Init and Registry behavior.
type Option func(*options)

// WithBuildOptions replaces all build options at once.
func WithBuildOptions(b BuildOptions) Option {
	return func(o *options) {
		o.build = b
	}
}

// WithTemplate sets the base label template.
func WithTemplate(t Template) Option {
	return func(o *options) {
		o.build.Template = t
	}
}

// WithFanOut sets the node fan-out.
func WithFanOut(f int) Option {
	return func(o *options) {
		o.build.FanOut = f
	}
}

// WithWorkers sets the number of build goroutines.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.build.Workers = n
	}
}

// WithGeographic enables geographic coordinate validation and
// antimeridian-crossing queries.
func WithGeographic(enabled bool) Option {
	return func(o *options) {
		o.build.Geographic = enabled
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.build.Logger = l
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.build.Metrics = mc
	}
}

// WithParseOptions configures how c.e input is read.
func WithParseOptions(p ParseOptions) Option {
	return func(o *options) {
		o.parse = p
	}
}

// WithParser replaces the c.e parser, e.g. for a different input format.
// Indexes built with a custom parser bypass the cache.
func WithParser(p Parser) Option {
	return func(o *options) {
		o.parser = p
	}
}

// WithCache reuses built indexes across Init calls for unchanged files.
func WithCache(c *Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		build: DefaultBuildOptions(),
		parse: DefaultParseOptions(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.parser == nil {
		o.parser = NewParser()
	} else {
		o.customParser = true
	}
	o.build = o.build.normalized()
	return o
}
