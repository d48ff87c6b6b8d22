package labels

import (
	"github.com/beetlebugorg/labelindex/internal/parser"
)

// Geographic coordinate limits.
const (
	MinLon = -180.0
	MaxLon = 180.0
	MinLat = -90.0
	MaxLat = 90.0
)

// WorldBox covers the whole geographic coordinate range.
var WorldBox = Box{MinX: MinLon, MinY: MinLat, MaxX: MaxLon, MaxY: MaxLat}

func validateGeographic(p GeoPoint) error {
	return parser.ValidateCoordinate(p.Y, p.X)
}

// SplitAntimeridian splits a box with MinX > MaxX into its eastern part
// [MinX, 180] and its western part [-180, MaxX]. Other boxes are returned
// unchanged with ok set to false.
func SplitAntimeridian(box Box) (east, west Box, ok bool) {
	if box.MinX <= box.MaxX {
		return box, Box{}, false
	}
	east = Box{MinX: box.MinX, MinY: box.MinY, MaxX: MaxLon, MaxY: box.MaxY}
	west = Box{MinX: MinLon, MinY: box.MinY, MaxX: box.MaxX, MaxY: box.MaxY}
	return east, west, true
}

// searchWrapped answers a query crossing the antimeridian. A label whose
// footprint reaches into both halves is reported by the eastern pass only.
func (idx *Index) searchWrapped(box Box, minT float64, fn func(Label) bool) {
	east, west, _ := SplitAntimeridian(box)
	if !idx.search(east, minT, fn) {
		return
	}
	idx.search(west, minT, func(l Label) bool {
		if l.Box.Intersects(east) {
			return true
		}
		return fn(l)
	})
}
