package labels

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/zeebo/blake3"
)

// Build creates an index over labels.
//
// Build never fails: labels that cannot be indexed are dropped and reported
// by Rejected, and an index without any usable label is returned invalid
// with ErrEmptyIndex. An invalid template yields an invalid index with
// ErrInvalidTemplate. The input slice is not modified.
//
// Example:
//
//	idx := labels.Build(ls, labels.BuildOptions{Template: labels.Template{Width: 2, Height: 2}})
//	if !idx.Valid() {
//	    log.Fatal(idx.Err())
//	}
func Build(labels []Label, opts BuildOptions) *Index {
	opts = opts.normalized()
	ctx := context.Background()
	start := time.Now()

	idx := build(ctx, labels, opts)

	elapsed := time.Since(start)
	opts.Logger.LogBuild(ctx, idx, elapsed)
	opts.Metrics.RecordBuild(idx.Len(), len(idx.rejected), elapsed)
	return idx
}

func build(ctx context.Context, input []Label, opts BuildOptions) *Index {
	idx := &Index{
		root:       -1,
		fanOut:     opts.FanOut,
		template:   opts.Template,
		geographic: opts.Geographic,
		byID:       make(map[int64]int32, len(input)),
	}

	if !opts.Template.Valid() {
		idx.err = fmt.Errorf("%w: %gx%g", ErrInvalidTemplate, opts.Template.Width, opts.Template.Height)
		return idx
	}

	accepted := make([]Label, 0, len(input))
	for _, l := range input {
		if verr := l.validate(opts.Template, opts.Geographic); verr != nil {
			idx.reject(ctx, opts.Logger, verr)
			continue
		}
		if _, dup := idx.byID[l.ID]; dup {
			idx.reject(ctx, opts.Logger, &ValidationError{ID: l.ID, Reason: ReasonDuplicateID})
			continue
		}
		idx.byID[l.ID] = int32(len(accepted))
		accepted = append(accepted, l)
	}

	if len(accepted) == 0 {
		idx.err = ErrEmptyIndex
		return idx
	}

	pk := newPacker(opts.FanOut, opts.Workers)
	labels, err := packLabels(pk, accepted)
	if err != nil {
		idx.err = err
		return idx
	}
	idx.labels = labels
	for i := range labels {
		idx.byID[labels[i].ID] = int32(i)
	}

	if err := idx.buildTree(pk); err != nil {
		idx.labels, idx.nodes, idx.root = nil, nil, -1
		idx.err = err
		return idx
	}
	idx.fingerprint = fingerprint(idx.labels, idx.fanOut)
	return idx
}

func (idx *Index) reject(ctx context.Context, log *Logger, err *ValidationError) {
	idx.rejected = append(idx.rejected, err)
	log.LogRejected(ctx, err)
}

// packLabels returns the labels reordered so that every aligned run of
// fanOut labels forms one leaf.
func packLabels(pk *packer, labels []Label) ([]Label, error) {
	items := make([]packItem, len(labels))
	for i := range labels {
		c := labels[i].Box.Center()
		items[i] = packItem{x: c.X, y: c.Y, key: labels[i].ID, pos: int32(i)}
	}
	if err := pk.run(items); err != nil {
		return nil, err
	}

	packed := make([]Label, len(labels))
	for i, it := range items {
		packed[i] = labels[it.pos]
	}
	return packed, nil
}

// buildTree groups the packed labels into leaves, then packs and groups
// each level of nodes until a single root remains. Aggregates of a node
// are computed from its children only, once the children are final.
func (idx *Index) buildTree(pk *packer) error {
	f := idx.fanOut
	level := make([]node, 0, (len(idx.labels)+f-1)/f)
	for first := 0; first < len(idx.labels); first += f {
		end := min(first+f, len(idx.labels))
		n := node{mbr: EmptyBox(), maxT: math.Inf(-1), first: int32(first), count: int32(end - first), leaf: true}
		for i := first; i < end; i++ {
			n.mbr = n.mbr.Union(idx.labels[i].Box)
			n.maxT = max(n.maxT, idx.labels[i].EliminationTime)
		}
		level = append(level, n)
	}
	idx.height = 1

	for len(level) > 1 {
		items := make([]packItem, len(level))
		for i := range level {
			c := level[i].mbr.Center()
			items[i] = packItem{x: c.X, y: c.Y, key: int64(i), pos: int32(i)}
		}
		if err := pk.run(items); err != nil {
			return err
		}

		base := len(idx.nodes)
		for _, it := range items {
			idx.nodes = append(idx.nodes, level[it.pos])
		}

		parents := make([]node, 0, (len(level)+f-1)/f)
		for first := 0; first < len(level); first += f {
			end := min(first+f, len(level))
			n := node{mbr: EmptyBox(), maxT: math.Inf(-1), first: int32(base + first), count: int32(end - first)}
			for _, child := range idx.nodes[base+first : base+end] {
				n.mbr = n.mbr.Union(child.mbr)
				n.maxT = max(n.maxT, child.maxT)
			}
			parents = append(parents, n)
		}
		level = parents
		idx.height++
	}

	idx.nodes = append(idx.nodes, level[0])
	idx.root = int32(len(idx.nodes) - 1)
	return nil
}

// fingerprint hashes the fields of every label that affect query results.
func fingerprint(labels []Label, fanOut int) [32]byte {
	h := blake3.New()
	var buf [8]byte
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	writeF64 := func(v float64) { writeU64(math.Float64bits(v)) }

	writeU64(uint64(fanOut))
	writeU64(uint64(len(labels)))
	for i := range labels {
		l := &labels[i]
		writeU64(uint64(l.ID))
		writeU64(uint64(uint32(l.Priority)))
		writeF64(l.EliminationTime)
		writeF64(l.Box.MinX)
		writeF64(l.Box.MinY)
		writeF64(l.Box.MaxX)
		writeF64(l.Box.MaxY)
		writeU64(uint64(len(l.Text)))
		h.Write([]byte(l.Text))
	}

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
