// labelindex builds a label index from a c.e file and reports whether the
// index is usable. With --bbox it also answers a threshold-range query and
// prints the matching labels, one per line.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/beetlebugorg/labelindex/internal/config"
	"github.com/beetlebugorg/labelindex/pkg/labels"
)

// Exit codes.
const (
	exitGood    = 0
	exitUsage   = 1
	exitInvalid = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	configPath  string
	envFile     string
	minT        float64
	bbox        string
	template    string
	fanOut      int
	workers     int
	geographic  bool
	snapshotOut string
	compression string
	logLevel    string
	logJSON     bool
	dump        bool
	limit       int
}

func run(args []string, stdout, stderr io.Writer) int {
	var f flags
	flagSet := pflag.NewFlagSet("labelindex", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&f.configPath, "config", "", "YAML config file (default: $LABELINDEX_CONFIG)")
	flagSet.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before the config, if present")
	flagSet.Float64Var(&f.minT, "min-t", 0, "minimum elimination time for --bbox queries")
	flagSet.StringVar(&f.bbox, "bbox", "", "query box as minx,miny,maxx,maxy")
	flagSet.StringVar(&f.template, "template", "", "base label size as width,height")
	flagSet.IntVar(&f.fanOut, "fanout", 0, "entries per index node")
	flagSet.IntVar(&f.workers, "workers", 0, "build goroutines (0: all CPUs)")
	flagSet.BoolVar(&f.geographic, "geographic", false, "validate lon/lat and allow antimeridian boxes")
	flagSet.StringVar(&f.snapshotOut, "snapshot-out", "", "write a snapshot of the built index to this file")
	flagSet.StringVar(&f.compression, "compression", "", "snapshot compression: zstd or lz4")
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.BoolVar(&f.logJSON, "log-json", false, "write logs as JSON")
	flagSet.BoolVar(&f.dump, "dump", false, "print the index tree")
	flagSet.IntVar(&f.limit, "limit", 0, "maximum number of labels printed for --bbox (0: all)")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitGood
		}
		return exitUsage
	}
	if flagSet.NArg() != 1 {
		printUsage(stderr, flagSet)
		return exitUsage
	}
	path := flagSet.Arg(0)

	if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "error: load %s: %v\n", f.envFile, err)
		return exitUsage
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if err := applyFlags(cfg, flagSet, &f); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	var box labels.Box
	if f.bbox != "" {
		v, err := config.ParseFloats(f.bbox, 4)
		if err != nil {
			fmt.Fprintf(stderr, "error: --bbox: %v\n", err)
			return exitUsage
		}
		// Keep MinX > MaxX as given: it selects an antimeridian query.
		box = labels.Box{MinX: v[0], MinY: min(v[1], v[3]), MaxX: v[2], MaxY: max(v[1], v[3])}
	}

	level, _ := cfg.SlogLevel()
	logger := labels.NewTextLoggerTo(stderr, level)
	if cfg.Log.Format == "json" {
		logger = labels.NewJSONLoggerTo(stderr, level)
	}
	metrics := &labels.BasicMetricsCollector{}

	fmt.Fprintf(stdout, "Initializing the data structure from %s\n", path)
	h := labels.Init(path, cfg.Options(logger, metrics)...)
	defer h.Close()

	if !h.IsGood() {
		fmt.Fprintln(stdout, "Failed to create datastructure!")
		fmt.Fprintf(stderr, "error: %v\n", h.Err())
		return exitInvalid
	}
	fmt.Fprintln(stdout, "Datastructure was created successfully!")

	idx := h.Index()
	if f.dump {
		fmt.Fprint(stdout, idx.String())
	}

	if f.bbox != "" {
		printed := 0
		for l := range h.Query(box, f.minT) {
			fmt.Fprintln(stdout, l)
			printed++
			if f.limit > 0 && printed >= f.limit {
				break
			}
		}
		logger.Info("query finished", "results", printed, "box", box.String(), "min_t", f.minT)
	}

	if f.snapshotOut != "" {
		codec, _ := labels.ParseCompression(cfg.Snapshot.Compression)
		if err := labels.SaveSnapshot(f.snapshotOut, idx, labels.SnapshotOptions{Compression: codec}); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitUsage
		}
		logger.Info("snapshot written", "path", f.snapshotOut, "compression", codec.String())
	}

	stats := metrics.GetStats()
	logger.Debug("metrics",
		"labels", stats.BuiltLabels,
		"rejected", stats.RejectedLabels,
		"queries", stats.QueryCount,
	)
	return exitGood
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(cfg *config.Config, flagSet *pflag.FlagSet, f *flags) error {
	if flagSet.Changed("template") {
		wh, err := config.ParseFloats(f.template, 2)
		if err != nil {
			return fmt.Errorf("--template: %w", err)
		}
		cfg.Index.Template = [2]float64{wh[0], wh[1]}
	}
	if flagSet.Changed("fanout") {
		cfg.Index.FanOut = f.fanOut
	}
	if flagSet.Changed("workers") {
		cfg.Index.Workers = f.workers
	}
	if flagSet.Changed("geographic") {
		cfg.Index.Geographic = f.geographic
	}
	if flagSet.Changed("compression") {
		cfg.Snapshot.Compression = f.compression
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if flagSet.Changed("log-json") && f.logJSON {
		cfg.Log.Format = "json"
	}
	return cfg.Validate()
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `labelindex builds a label index from a c.e file.

Usage:
  labelindex [flags] <file.ce>

Examples:
  # Check that a file builds
  labelindex data/baden-wuerttemberg.ce

  # Labels around Stuttgart still shown at threshold 0.5
  labelindex --bbox 9.0,48.7,9.3,48.9 --min-t 0.5 data/baden-wuerttemberg.ce

  # Build once and keep a snapshot for fast reloading
  labelindex --snapshot-out bw.lblx data/baden-wuerttemberg.ce

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
