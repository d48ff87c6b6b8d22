package labels

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dhconnelly/rtreego"
)

// rectEpsilon pads R-tree rectangles. rtreego rejects zero-length sides and
// treats touching rectangles as disjoint, so candidates are found on padded
// rectangles and then filtered with Box.Intersects.
const rectEpsilon = 0.0001

// LabelFileExt is the extension of c.e label files.
const LabelFileExt = ".ce"

// Dataset is one loaded label file in a Catalog.
type Dataset struct {
	Path   string // Input path
	Name   string // File name without extension
	Handle *Handle
	box    Box
}

// Box returns the area covered by the dataset's labels.
func (d *Dataset) Box() Box { return d.box }

// Bounds implements rtreego.Spatial.
func (d *Dataset) Bounds() rtreego.Rect {
	rect, _ := rectOf(d.box)
	return rect
}

func rectOf(b Box) (rtreego.Rect, error) {
	b = b.Expand(rectEpsilon)
	point := rtreego.Point{b.MinX, b.MinY}
	lengths := []float64{b.Width(), b.Height()}
	return rtreego.NewRect(point, lengths)
}

// Catalog routes viewport queries across many label files.
//
// Each dataset's coverage is kept in an R-tree, so a query only descends
// into the indexes whose bounds intersect the viewport. Labels from
// different datasets are reported independently; ids need only be unique
// within a dataset.
//
// Example:
//
//	cat, err := labels.BuildCatalogFromDir(ctx, "data/", labels.DefaultLoadOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cat.Close()
//	for l := range cat.Query(labels.NewBox(5, 47, 15, 55), 1.0) {
//	    fmt.Println(l)
//	}
type Catalog struct {
	datasets []*Dataset
	rtree    *rtreego.Rtree
}

// NewCatalog indexes the given handles. Handles that are not good are
// ignored; the catalog takes ownership of the rest.
func NewCatalog(handles []*Handle) *Catalog {
	c := &Catalog{}
	objs := make([]rtreego.Spatial, 0, len(handles))
	for _, h := range handles {
		if !h.IsGood() {
			continue
		}
		d := &Dataset{
			Path:   h.Path(),
			Name:   strings.TrimSuffix(filepath.Base(h.Path()), filepath.Ext(h.Path())),
			Handle: h,
			box:    h.Bounds(),
		}
		c.datasets = append(c.datasets, d)
		objs = append(objs, d)
	}

	// Create R-tree (2D, min=25 children, max=50 children)
	c.rtree = rtreego.NewTree(2, 25, 50, objs...)
	return c
}

// BuildCatalogFromDir loads every label file below root and indexes the
// usable ones.
//
// Progress and error handling follow opts; initOpts apply to every file.
func BuildCatalogFromDir(ctx context.Context, root string, opts LoadOptions, initOpts ...Option) (*Catalog, error) {
	paths, err := DiscoverLabelFiles(root)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no label files found in %s", root)
	}

	handles, errs := LoadHandlesParallel(ctx, paths, opts, initOpts...)
	if !opts.SkipErrors && len(errs) > 0 {
		return nil, errs[0]
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("no label files could be loaded (%d errors)", len(errs))
	}
	return NewCatalog(handles), nil
}

// DiscoverLabelFiles finds all label files in a directory tree, sorted by
// path.
func DiscoverLabelFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == LabelFileExt {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	slices.Sort(paths)
	return paths, nil
}

// Datasets returns the datasets whose coverage intersects box, ordered by
// path. A box with MinX > MaxX is treated as crossing the antimeridian.
// Boxes the R-tree cannot represent fall back to a linear scan.
func (c *Catalog) Datasets(box Box) []*Dataset {
	var found []*Dataset
	add := func(b Box) {
		if b.Empty() {
			return
		}
		candidates := c.datasets
		if rect, err := rectOf(b); err == nil {
			candidates = candidates[:0:0]
			for _, s := range c.rtree.SearchIntersect(rect) {
				candidates = append(candidates, s.(*Dataset))
			}
		}
		for _, d := range candidates {
			if d.box.Intersects(b) && !slices.Contains(found, d) {
				found = append(found, d)
			}
		}
	}

	if east, west, ok := SplitAntimeridian(box); ok {
		add(east)
		add(west)
	} else {
		add(box)
	}

	slices.SortFunc(found, func(a, b *Dataset) int { return strings.Compare(a.Path, b.Path) })
	return found
}

// Query returns the labels of all datasets matching box and minT, dataset
// by dataset in path order.
func (c *Catalog) Query(box Box, minT float64) iter.Seq[Label] {
	return func(yield func(Label) bool) {
		for _, d := range c.Datasets(box) {
			stopped := false
			d.Handle.QueryFunc(box, minT, func(l Label) bool {
				if !yield(l) {
					stopped = true
					return false
				}
				return true
			})
			if stopped {
				return
			}
		}
	}
}

// Count returns the number of labels matching box and minT across datasets.
func (c *Catalog) Count(box Box, minT float64) int {
	n := 0
	for _, d := range c.Datasets(box) {
		n += d.Handle.Count(box, minT)
	}
	return n
}

// Len returns the number of datasets.
func (c *Catalog) Len() int {
	return len(c.datasets)
}

// Bounds returns the union of all dataset bounds.
func (c *Catalog) Bounds() Box {
	b := EmptyBox()
	for _, d := range c.datasets {
		b = b.Union(d.box)
	}
	return b
}

// All returns every dataset in load order.
func (c *Catalog) All() []*Dataset {
	return c.datasets
}

// Close releases the handles of all datasets.
func (c *Catalog) Close() error {
	var errs []error
	for _, d := range c.datasets {
		errs = append(errs, d.Handle.Close())
	}
	return errors.Join(errs...)
}
