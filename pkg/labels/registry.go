package labels

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Token addresses a handle in a Registry. The zero Token is never issued.
type Token uint64

// Registry owns handles and hands out opaque tokens for them, so callers
// never hold a reference into index internals.
//
// Unknown or released tokens are never good and answer every query with
// nothing. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	handles map[Token]*Handle
	next    Token
	opts    []Option
}

// NewRegistry creates a registry. opts apply to every Init and may be
// overridden per call.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		handles: make(map[Token]*Handle),
		opts:    opts,
	}
}

// Init builds a handle for path and returns its token. A token is returned
// even when the input is unusable; check it with IsGood.
func (r *Registry) Init(path string, opts ...Option) Token {
	return r.InitContext(context.Background(), path, opts...)
}

// InitContext is like Init with a context bounding input reading.
func (r *Registry) InitContext(ctx context.Context, path string, opts ...Option) Token {
	all := make([]Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)
	all = append(all, opts...)
	h := InitContext(ctx, path, all...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.handles[r.next] = h
	return r.next
}

// Handle returns the handle behind tok.
func (r *Registry) Handle(tok Token) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[tok]
	return h, ok
}

// IsGood reports whether tok addresses a handle with a valid index.
func (r *Registry) IsGood(tok Token) bool {
	h, ok := r.Handle(tok)
	return ok && h.IsGood()
}

// Err returns why tok is not good. Unknown tokens report ErrUnknownToken.
func (r *Registry) Err(tok Token) error {
	h, ok := r.Handle(tok)
	if !ok {
		return ErrUnknownToken
	}
	return h.Err()
}

// Query returns the labels of tok's index matching box and minT.
func (r *Registry) Query(tok Token, box Box, minT float64) iter.Seq[Label] {
	return func(yield func(Label) bool) {
		if h, ok := r.Handle(tok); ok {
			h.QueryFunc(box, minT, yield)
		}
	}
}

// QueryIDs returns the ids of the labels of tok's index matching box and minT.
func (r *Registry) QueryIDs(tok Token, box Box, minT float64) *roaring64.Bitmap {
	h, ok := r.Handle(tok)
	if !ok {
		return roaring64.New()
	}
	return h.QueryIDs(box, minT)
}

// Release closes the handle behind tok and forgets the token.
func (r *Registry) Release(tok Token) error {
	r.mu.Lock()
	h, ok := r.handles[tok]
	delete(r.handles, tok)
	r.mu.Unlock()

	if !ok {
		return ErrUnknownToken
	}
	return h.Close()
}

// Len returns the number of live tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close releases every handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[Token]*Handle)
	r.mu.Unlock()

	var errs []error
	for _, h := range handles {
		errs = append(errs, h.Close())
	}
	return errors.Join(errs...)
}
