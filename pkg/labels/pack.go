package labels

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// parallelPackThreshold is the smallest range handed to another goroutine.
const parallelPackThreshold = 4096

// packItem is one entry being ordered for packing: a label at the leaf
// level or a node at the levels above.
type packItem struct {
	x, y float64 // center of the entry's box
	key  int64   // tie-break: label id or build position
	pos  int32   // position of the entry before packing
}

func (a *packItem) coord(axis int) float64 {
	if axis == 0 {
		return a.x
	}
	return a.y
}

func (a *packItem) less(b *packItem, axis int) bool {
	ca, cb := a.coord(axis), b.coord(axis)
	if ca != cb {
		return ca < cb
	}
	return a.key < b.key
}

// packer reorders items so that every aligned run of fanOut items is
// spatially compact. Each range is split at a multiple of fanOut by median
// selection along its axis of greatest spread, then both halves are packed
// independently. The result depends only on the item coordinates and keys.
type packer struct {
	fanOut int
	g      *errgroup.Group
}

func newPacker(fanOut, workers int) *packer {
	p := &packer{fanOut: fanOut}
	if workers > 1 {
		p.g = new(errgroup.Group)
		p.g.SetLimit(workers - 1)
	}
	return p
}

// run packs items in place. Sibling ranges are disjoint, so the result does
// not depend on how they were scheduled.
func (p *packer) run(items []packItem) error {
	if p.g == nil {
		p.pack(items)
		return nil
	}
	p.pack(items)
	return p.g.Wait()
}

func (p *packer) pack(items []packItem) {
	for len(items) > p.fanOut {
		groups := (len(items) + p.fanOut - 1) / p.fanOut
		split := (groups / 2) * p.fanOut

		selectNth(items, split, spreadAxis(items))
		left := items[:split]
		items = items[split:]

		if p.g != nil && len(left) >= parallelPackThreshold && p.g.TryGo(p.packAsync(left)) {
			continue
		}
		p.pack(left)
	}
	// Order within a group by key so the layout does not depend on input order.
	slices.SortFunc(items, func(a, b packItem) int { return cmp.Compare(a.key, b.key) })
}

func (p *packer) packAsync(items []packItem) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrBuildPanic, r)
			}
		}()
		p.pack(items)
		return nil
	}
}

// spreadAxis returns 0 when the item centers spread at least as wide along
// X as along Y, and 1 otherwise.
func spreadAxis(items []packItem) int {
	minX, maxX := items[0].x, items[0].x
	minY, maxY := items[0].y, items[0].y
	for i := 1; i < len(items); i++ {
		it := &items[i]
		minX = min(minX, it.x)
		maxX = max(maxX, it.x)
		minY = min(minY, it.y)
		maxY = max(maxY, it.y)
	}
	if maxX-minX >= maxY-minY {
		return 0
	}
	return 1
}

// selectNth reorders items so that items[k] is the element that would be at
// position k after sorting, with all smaller elements before it.
func selectNth(items []packItem, k, axis int) {
	lo, hi := 0, len(items)-1
	for lo < hi {
		p := partition(items, lo, hi, medianOfThree(items, lo, hi, axis), axis)
		switch {
		case k == p:
			return
		case k < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func medianOfThree(items []packItem, lo, hi, axis int) int {
	mid := lo + (hi-lo)/2
	a, b, c := &items[lo], &items[mid], &items[hi]
	switch {
	case a.less(b, axis):
		if b.less(c, axis) {
			return mid
		}
		if a.less(c, axis) {
			return hi
		}
		return lo
	default:
		if a.less(c, axis) {
			return lo
		}
		if b.less(c, axis) {
			return hi
		}
		return mid
	}
}

// partition moves the pivot to its sorted position within [lo, hi] and
// returns that position. Keys are unique, so no two items compare equal.
func partition(items []packItem, lo, hi, pivot, axis int) int {
	items[pivot], items[hi] = items[hi], items[pivot]
	pv := items[hi]
	store := lo
	for i := lo; i < hi; i++ {
		if items[i].less(&pv, axis) {
			items[i], items[store] = items[store], items[i]
			store++
		}
	}
	items[store], items[hi] = items[hi], items[store]
	return store
}
