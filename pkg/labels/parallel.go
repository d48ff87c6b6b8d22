package labels

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// LoadOptions controls parallel loading behavior and error handling.
type LoadOptions struct {
	// Parallel enables concurrent loading.
	// When true, files are loaded using multiple worker goroutines.
	Parallel bool

	// Workers specifies the number of parallel loader goroutines.
	// If 0, defaults to runtime.NumCPU().
	// Only used when Parallel is true.
	Workers int

	// SkipErrors causes loading to continue when individual files are not
	// usable. Their handles are closed and their errors collected.
	// When false, the first failure stops loading.
	SkipErrors bool

	// Progress is an optional callback for tracking loading progress.
	// Parameters: (loaded, total) where loaded is the count of files
	// processed so far.
	Progress func(loaded, total int)

	// ErrorLog is an optional writer for detailed error reporting.
	// Each failure is written here with the file path and error details.
	ErrorLog io.Writer
}

// DefaultLoadOptions returns load options with sensible defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Parallel:   true,
		Workers:    runtime.NumCPU(),
		SkipErrors: true,
	}
}

// LoadHandlesParallel initializes one handle per path using a worker pool.
//
// Only good handles are returned, in the order of paths. Handles whose
// input was unusable are closed and their errors returned. Every handle is
// built with initOpts.
//
// Example:
//
//	handles, errs := labels.LoadHandlesParallel(ctx, paths, labels.LoadOptions{
//	    Parallel:   true,
//	    SkipErrors: true,
//	    Progress: func(loaded, total int) {
//	        fmt.Printf("\rLoading: %d/%d", loaded, total)
//	    },
//	})
//	if len(errs) > 0 {
//	    fmt.Printf("\nSkipped %d files\n", len(errs))
//	}
func LoadHandlesParallel(ctx context.Context, paths []string, opts LoadOptions, initOpts ...Option) ([]*Handle, []error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if !opts.Parallel {
		return loadHandlesSerial(ctx, paths, opts, initOpts)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(paths))

	type loadResult struct {
		index  int
		handle *Handle
	}

	jobs := make(chan int, len(paths))
	results := make(chan loadResult, len(paths))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				results <- loadResult{
					index:  index,
					handle: InitContext(ctx, paths[index], initOpts...),
				}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	handles := make([]*Handle, len(paths))
	var errs []error
	failed := false
	loaded := 0

	for result := range results {
		loaded++
		if opts.Progress != nil {
			opts.Progress(loaded, len(paths))
		}

		h := result.handle
		if failed {
			// Drain the remaining workers after a fatal error.
			h.Close()
			continue
		}
		if !h.IsGood() {
			err := loadError(opts, paths[result.index], h)
			errs = append(errs, err)
			if !opts.SkipErrors {
				failed = true
			}
			continue
		}
		handles[result.index] = h
	}

	if failed {
		for _, h := range handles {
			if h != nil {
				h.Close()
			}
		}
		return nil, errs[:1]
	}

	good := make([]*Handle, 0, len(paths))
	for _, h := range handles {
		if h != nil {
			good = append(good, h)
		}
	}
	return good, errs
}

// loadHandlesSerial loads files one at a time (fallback when Parallel=false).
func loadHandlesSerial(ctx context.Context, paths []string, opts LoadOptions, initOpts []Option) ([]*Handle, []error) {
	handles := make([]*Handle, 0, len(paths))
	var errs []error

	for i, path := range paths {
		if opts.Progress != nil {
			opts.Progress(i, len(paths))
		}

		h := InitContext(ctx, path, initOpts...)
		if !h.IsGood() {
			errs = append(errs, loadError(opts, path, h))
			if !opts.SkipErrors {
				for _, loaded := range handles {
					loaded.Close()
				}
				return nil, errs
			}
			continue
		}
		handles = append(handles, h)
	}

	if opts.Progress != nil {
		opts.Progress(len(paths), len(paths))
	}
	return handles, errs
}

// loadError closes a failed handle and reports its error.
func loadError(opts LoadOptions, path string, h *Handle) error {
	err := fmt.Errorf("%s: %w", path, h.Err())
	h.Close()
	if opts.ErrorLog != nil {
		fmt.Fprintf(opts.ErrorLog, "Error loading labels: %v\n", err)
	}
	return err
}
