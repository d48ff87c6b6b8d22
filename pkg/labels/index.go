package labels

import (
	"fmt"
	"iter"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// node is one entry of the packed tree. Leaf nodes cover the label range
// labels[first:first+count]; internal nodes cover nodes[first:first+count].
type node struct {
	mbr   Box
	maxT  float64
	first int32
	count int32
	leaf  bool
}

// Index is an immutable spatial index over labels, augmented with the
// maximum elimination time of every subtree.
//
// An Index is safe for concurrent use by multiple goroutines. It is never
// modified after Build returns.
type Index struct {
	labels []Label         // accepted labels in leaf order
	nodes  []node          // all nodes, level by level, root last
	byID   map[int64]int32 // label id -> position in labels
	root   int32           // -1 when empty

	height     int
	fanOut     int
	template   Template
	geographic bool

	rejected    []*ValidationError
	err         error
	fingerprint [32]byte
}

// Valid reports whether the index holds at least one label and was built
// without error. Queries against an invalid index return nothing.
func (idx *Index) Valid() bool {
	return idx != nil && idx.err == nil && idx.root >= 0
}

// Err returns why the index is invalid, or nil.
func (idx *Index) Err() error {
	if idx == nil {
		return ErrEmptyIndex
	}
	return idx.err
}

// Len returns the number of indexed labels.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.labels)
}

// Bounds returns the box enclosing every indexed label footprint.
// An index without labels returns EmptyBox().
func (idx *Index) Bounds() Box {
	if idx == nil || idx.root < 0 {
		return EmptyBox()
	}
	return idx.nodes[idx.root].mbr
}

// Height returns the number of node levels, 0 for an empty index.
func (idx *Index) Height() int {
	if idx == nil {
		return 0
	}
	return idx.height
}

// NodeCount returns the number of tree nodes including leaves.
func (idx *Index) NodeCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.nodes)
}

// FanOut returns the maximum number of children per node.
func (idx *Index) FanOut() int { return idx.fanOut }

// Template returns the base label size the footprints were derived from.
func (idx *Index) Template() Template { return idx.template }

// Geographic reports whether the index was built with geographic validation.
func (idx *Index) Geographic() bool { return idx.geographic }

// Rejected returns the labels dropped during validation, in input order.
func (idx *Index) Rejected() []*ValidationError {
	if idx == nil {
		return nil
	}
	return idx.rejected
}

// Fingerprint returns a BLAKE3 digest of the label store in leaf order.
// Two builds from the same input with the same fan-out have equal
// fingerprints.
func (idx *Index) Fingerprint() [32]byte { return idx.fingerprint }

// Label returns the label with the given id.
func (idx *Index) Label(id int64) (Label, bool) {
	if idx == nil {
		return Label{}, false
	}
	pos, ok := idx.byID[id]
	if !ok {
		return Label{}, false
	}
	return idx.labels[pos], true
}

// Labels iterates over all indexed labels in leaf order.
func (idx *Index) Labels() iter.Seq[Label] {
	return func(yield func(Label) bool) {
		if idx == nil {
			return
		}
		for i := range idx.labels {
			if !yield(idx.labels[i]) {
				return
			}
		}
	}
}

// Query returns the labels whose footprint intersects box and whose
// elimination time is at least minT.
//
// The sequence is lazy and can be iterated any number of times. Stopping
// early leaves the index untouched. Results come in tree order; callers
// needing a canonical order must sort.
//
// For a geographic index a box with MinX > MaxX crosses the antimeridian
// and covers [MinX, 180] and [-180, MaxX].
//
// Example:
//
//	for l := range idx.Query(labels.NewBox(8.5, 48.5, 9.5, 49), 0.25) {
//	    fmt.Println(l.Text)
//	}
func (idx *Index) Query(box Box, minT float64) iter.Seq[Label] {
	return func(yield func(Label) bool) {
		idx.QueryFunc(box, minT, yield)
	}
}

// QueryFunc calls fn for every label matching box and minT until fn
// returns false.
func (idx *Index) QueryFunc(box Box, minT float64, fn func(Label) bool) {
	if !idx.Valid() {
		return
	}
	if idx.geographic && box.MinX > box.MaxX {
		idx.searchWrapped(box, minT, fn)
		return
	}
	idx.search(box, minT, fn)
}

// QueryIDs returns the ids of all labels matching box and minT.
// Labels with negative ids are not representable and are left out.
func (idx *Index) QueryIDs(box Box, minT float64) *roaring64.Bitmap {
	ids := roaring64.New()
	idx.QueryFunc(box, minT, func(l Label) bool {
		if l.ID >= 0 {
			ids.Add(uint64(l.ID))
		}
		return true
	})
	return ids
}

// Count returns the number of labels matching box and minT.
func (idx *Index) Count(box Box, minT float64) int {
	n := 0
	idx.QueryFunc(box, minT, func(Label) bool {
		n++
		return true
	})
	return n
}

// search descends depth-first from the root, pruning subtrees whose
// maximum elimination time is below minT before testing their geometry.
// It returns false when fn stopped the traversal.
func (idx *Index) search(box Box, minT float64, fn func(Label) bool) bool {
	if box.Empty() {
		return true
	}

	stack := make([]int32, 1, 64)
	stack[0] = idx.root
	for len(stack) > 0 {
		n := &idx.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if n.maxT < minT {
			continue
		}
		if !n.mbr.Intersects(box) {
			continue
		}

		end := n.first + n.count
		if n.leaf {
			for i := n.first; i < end; i++ {
				l := &idx.labels[i]
				if l.EliminationTime >= minT && l.Box.Intersects(box) {
					if !fn(*l) {
						return false
					}
				}
			}
			continue
		}
		// Push in reverse so children are visited in build order.
		for c := end - 1; c >= n.first; c-- {
			stack = append(stack, c)
		}
	}
	return true
}

// String returns a multi-line dump of the tree, one node per line followed
// by the labels of each leaf.
func (idx *Index) String() string {
	if idx == nil {
		return "<nil index>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Index: %d labels, %d nodes, height %d, fan-out %d",
		len(idx.labels), len(idx.nodes), idx.height, idx.fanOut)
	if idx.err != nil {
		fmt.Fprintf(&b, " (invalid: %v)", idx.err)
	}
	b.WriteByte('\n')
	if idx.root >= 0 {
		idx.dump(&b, idx.root, 0)
	}
	return b.String()
}

func (idx *Index) dump(b *strings.Builder, ni int32, depth int) {
	n := &idx.nodes[ni]
	indent := strings.Repeat("  ", depth)
	kind := "node"
	if n.leaf {
		kind = "leaf"
	}
	fmt.Fprintf(b, "%s%s #%d mbr=%s max-t=%g children=%d\n", indent, kind, ni, n.mbr, n.maxT, n.count)

	end := n.first + n.count
	for i := n.first; i < end; i++ {
		if n.leaf {
			fmt.Fprintf(b, "%s  %s\n", indent, idx.labels[i])
			continue
		}
		idx.dump(b, i, depth+1)
	}
}
