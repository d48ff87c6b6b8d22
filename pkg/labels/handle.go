package labels

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// State is the lifecycle state of a Handle.
type State int32

const (
	// StateUninitialized is the state of a zero Handle.
	StateUninitialized State = iota
	// StateBuilding is the state while Init reads input and builds the index.
	StateBuilding
	// StateValid means the index was built and answers queries.
	StateValid
	// StateInvalid means the input could not be turned into a usable index.
	StateInvalid
	// StateReleased means Close was called.
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilding:
		return "building"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handle owns an index built from one input file.
//
// A Handle is always returned, whatever happened while reading the input;
// check IsGood or Err before relying on query results. Queries on a handle
// that is not good return nothing. All methods are safe for concurrent use.
//
// Example:
//
//	h := labels.Init("data/baden-wuerttemberg.ce")
//	defer h.Close()
//	if !h.IsGood() {
//	    log.Fatal(h.Err())
//	}
//	for l := range h.Query(labels.NewBox(8.5, 48.5, 9.5, 49), 0.5) {
//	    fmt.Println(l)
//	}
type Handle struct {
	path    string
	state   atomic.Int32
	idx     atomic.Pointer[Index]
	err     error
	log     *Logger
	metrics MetricsCollector
}

// Init reads the label file at path and builds its index.
//
// The file may be c.e text or a snapshot written by SaveSnapshot. Init
// never panics; failures are reported through IsGood and Err.
func Init(path string, opts ...Option) *Handle {
	return InitContext(context.Background(), path, opts...)
}

// InitContext is like Init but stops reading the input when ctx is done.
// The context does not bound queries.
func InitContext(ctx context.Context, path string, opts ...Option) *Handle {
	o := applyOptions(opts)
	h := &Handle{
		path:    path,
		log:     o.build.Logger.WithPath(path),
		metrics: o.build.Metrics,
	}
	h.state.Store(int32(StateBuilding))

	idx, err := h.load(ctx, o)
	if err == nil {
		err = idx.Err()
	}
	h.err = err
	if idx != nil {
		h.idx.Store(idx)
	}
	if err != nil {
		h.state.Store(int32(StateInvalid))
	} else {
		h.state.Store(int32(StateValid))
	}
	return h
}

// load reads and builds the index, turning a panic anywhere below into an
// error.
func (h *Handle) load(ctx context.Context, o options) (idx *Index, err error) {
	defer func() {
		if r := recover(); r != nil {
			idx = nil
			err = fmt.Errorf("%w: %v", ErrBuildPanic, r)
			h.log.ErrorContext(ctx, "index build panicked", "panic", r)
		}
	}()

	info, err := os.Stat(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}

	o.build.Logger = h.log
	if o.cache != nil && !o.customParser {
		return o.cache.Get(h.path, info, o.build, o.parse, func() (*Index, error) {
			return loadIndex(ctx, h.path, o)
		})
	}
	return loadIndex(ctx, h.path, o)
}

// loadIndex builds an index from a snapshot or a label file.
func loadIndex(ctx context.Context, path string, o options) (*Index, error) {
	snap, err := isSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	if snap {
		return LoadSnapshot(path, SnapshotOptions{Build: o.build})
	}

	start := time.Now()
	file, err := o.parser.ParseContext(ctx, path, o.parse)
	elapsed := time.Since(start)
	if err != nil {
		o.build.Logger.LogParse(ctx, 0, 0, elapsed, err)
		o.build.Metrics.RecordParse(0, elapsed, err)
		return nil, err
	}
	o.build.Logger.LogParse(ctx, len(file.Labels), len(file.Skipped), elapsed, nil)
	o.build.Metrics.RecordParse(len(file.Labels), elapsed, nil)

	return Build(file.Labels, o.build), nil
}

// Path returns the input path the handle was created from.
func (h *Handle) Path() string { return h.path }

// IsGood reports whether the handle holds a valid index. It has no side
// effects and may be called any number of times.
func (h *Handle) IsGood() bool {
	return h.State() == StateValid
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Err returns why the handle is not good, or nil.
//
// Not-found inputs match ErrNotFound and fs.ErrNotExist, parse failures
// match *ParseError through errors.As, and inputs without usable labels
// match ErrEmptyIndex.
func (h *Handle) Err() error {
	switch h.State() {
	case StateReleased:
		return ErrReleased
	case StateUninitialized:
		return ErrEmptyIndex
	}
	return h.err
}

// Index returns the built index, or nil when the handle has none.
func (h *Handle) Index() *Index {
	idx := h.idx.Load()
	if idx == nil || !idx.Valid() {
		return nil
	}
	return idx
}

// Bounds returns the box enclosing all labels of a good handle, and
// EmptyBox otherwise.
func (h *Handle) Bounds() Box {
	return h.Index().Bounds()
}

// Query returns the labels intersecting box with an elimination time of at
// least minT. A handle that is not good yields nothing.
func (h *Handle) Query(box Box, minT float64) iter.Seq[Label] {
	return func(yield func(Label) bool) {
		h.QueryFunc(box, minT, yield)
	}
}

// QueryFunc calls fn for every matching label until fn returns false.
func (h *Handle) QueryFunc(box Box, minT float64, fn func(Label) bool) {
	idx := h.Index()
	if idx == nil {
		return
	}

	start := time.Now()
	n := 0
	idx.QueryFunc(box, minT, func(l Label) bool {
		n++
		return fn(l)
	})
	elapsed := time.Since(start)
	h.metrics.RecordQuery(n, elapsed)
	h.log.LogQuery(context.Background(), box, minT, n, elapsed)
}

// QueryIDs returns the ids of the matching labels.
// Labels with negative ids are left out.
func (h *Handle) QueryIDs(box Box, minT float64) *roaring64.Bitmap {
	ids := roaring64.New()
	h.QueryFunc(box, minT, func(l Label) bool {
		if l.ID >= 0 {
			ids.Add(uint64(l.ID))
		}
		return true
	})
	return ids
}

// Count returns the number of matching labels.
func (h *Handle) Count(box Box, minT float64) int {
	n := 0
	h.QueryFunc(box, minT, func(Label) bool {
		n++
		return true
	})
	return n
}

// Close releases the index. Queries running concurrently finish against
// the index they started with; later queries return nothing. Close is
// idempotent.
func (h *Handle) Close() error {
	prev := State(h.state.Swap(int32(StateReleased)))
	if prev == StateReleased {
		return nil
	}
	h.idx.Store(nil)
	if h.log != nil {
		h.log.LogRelease(context.Background(), prev)
	}
	return nil
}
