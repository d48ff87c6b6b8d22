// Package labels provides a static spatial index over map labels that
// answers threshold-range queries.
//
// Every label has an anchor, a size factor and an elimination time: the
// threshold at which a multi-resolution decluttering scheme drops it from
// display. The index answers "which labels intersect this viewport and are
// still alive at this threshold (elimination time >= minT)?".
//
// # Basic Usage
//
//	h := labels.Init("baden-wuerttemberg.ce")
//	defer h.Close()
//	if !h.IsGood() {
//	    log.Fatal(h.Err())
//	}
//
//	viewport := labels.NewBox(8.5, 48.5, 9.5, 49.0)
//	for l := range h.Query(viewport, 0.25) {
//	    fmt.Println(l.Text)
//	}
//
// # Building From Memory
//
// Labels that do not come from a c.e file are indexed with Build:
//
//	idx := labels.Build([]labels.Label{
//	    {ID: 1, Anchor: labels.GeoPoint{X: 0, Y: 0}, SizeFactor: 1, EliminationTime: 5},
//	    {ID: 2, Anchor: labels.GeoPoint{X: 10, Y: 10}, SizeFactor: 1, EliminationTime: 2},
//	}, labels.BuildOptions{Template: labels.Template{Width: 2, Height: 2}})
//
//	ids := idx.QueryIDs(labels.NewBox(-1, -1, 11, 11), 3) // {1}
//
// A label's footprint is the template scaled by its size factor and
// centered on its anchor. The zero template indexes labels as points.
// Labels with a negative or non-finite size factor, a non-finite anchor or
// elimination time, or a duplicate id are dropped and listed by
// Index.Rejected. An index without any usable label is invalid and every
// query against it is empty.
//
// # Index Structure
//
// The index is a packed tree built once. Labels are ordered by recursive
// median partitioning along the axis of greatest spread and grouped into
// leaves of FanOut labels; nodes are packed the same way level by level.
// Every node stores the bounding box and the maximum elimination time of
// its subtree, so a query skips subtrees that are out of view or already
// eliminated. Builds are deterministic: the same labels produce the same
// tree whatever their input order and whether or not the build ran in
// parallel.
//
// # Concurrency
//
// Indexes are immutable; any number of goroutines may query one without
// locking. Handle.Close may run concurrently with queries. Queries have no
// cancellation of their own: stop iterating to stop the traversal.
//
// # Error Handling
//
// Init never panics and always returns a handle. Handle.IsGood gives the
// boolean view; Handle.Err tells the failures apart:
//
//	switch err := h.Err(); {
//	case err == nil:
//	case errors.Is(err, labels.ErrNotFound):
//	    // missing input
//	case errors.Is(err, labels.ErrEmptyIndex):
//	    // well-formed but nothing usable
//	default:
//	    var pe *labels.ParseError
//	    if errors.As(err, &pe) {
//	        fmt.Printf("line %d: %s\n", pe.Line, pe.Reason)
//	    }
//	}
//
// # Multiple Files
//
// A Catalog loads a directory of label files in parallel and routes
// viewport queries to the files whose coverage intersects the viewport.
// A Registry hands out opaque tokens for handles, and a Cache reuses built
// indexes across Init calls while the file is unchanged. Snapshots persist
// a built index in a compact binary form that Init loads directly.
package labels
