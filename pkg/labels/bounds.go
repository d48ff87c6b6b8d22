package labels

import (
	"fmt"
	"math"
)

// GeoPoint is a label anchor. In c.e data X is the longitude and Y the latitude.
type GeoPoint struct {
	X float64
	Y float64
}

// Finite reports whether both coordinates are finite numbers.
func (p GeoPoint) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Template is the base label size. A label's footprint is the template
// scaled by its size factor and centered on its anchor.
type Template struct {
	Width  float64
	Height float64
}

// Valid reports whether both dimensions are finite and not negative.
func (t Template) Valid() bool {
	return t.Width >= 0 && t.Height >= 0 &&
		!math.IsInf(t.Width, 0) && !math.IsInf(t.Height, 0)
}

// Box is an axis-aligned rectangle with inclusive edges.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBox returns the box spanning the given corners in any order.
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// EmptyBox returns the inverted box that acts as the identity for Union.
//
// No point is contained in the empty box and it intersects nothing.
func EmptyBox() Box {
	return Box{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// BoxOf derives the footprint of a label anchored at p with the given size
// factor. It fails for an invalid template, for a negative or non-finite
// size factor and for a non-finite anchor.
func BoxOf(p GeoPoint, sizeFactor float64, tpl Template) (Box, error) {
	if !tpl.Valid() {
		return Box{}, &ValidationError{Reason: ReasonInvalidTemplate, Err: ErrInvalidTemplate}
	}
	if math.IsNaN(sizeFactor) || math.IsInf(sizeFactor, 0) {
		return Box{}, &ValidationError{Reason: ReasonNonFiniteSize, Value: sizeFactor}
	}
	if sizeFactor < 0 {
		return Box{}, &ValidationError{Reason: ReasonNegativeSize, Value: sizeFactor}
	}
	if !p.Finite() {
		return Box{}, &ValidationError{Reason: ReasonNonFiniteAnchor}
	}

	halfW := sizeFactor * tpl.Width / 2
	halfH := sizeFactor * tpl.Height / 2
	return Box{
		MinX: p.X - halfW,
		MinY: p.Y - halfH,
		MaxX: p.X + halfW,
		MaxY: p.Y + halfH,
	}, nil
}

// Intersects returns true if the two boxes overlap. Touching edges count as
// an intersection.
func (b Box) Intersects(other Box) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}

// Contains returns true if the point is within the box, edges included.
func (b Box) Contains(p GeoPoint) bool {
	return p.X >= b.MinX && p.X <= b.MaxX &&
		p.Y >= b.MinY && p.Y <= b.MaxY
}

// ContainsBox returns true if other lies completely within b.
func (b Box) ContainsBox(other Box) bool {
	return other.MinX >= b.MinX && other.MaxX <= b.MaxX &&
		other.MinY >= b.MinY && other.MaxY <= b.MaxY
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(other Box) Box {
	return Box{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

// Expand returns a new box grown by margin in all directions.
func (b Box) Expand(margin float64) Box {
	return Box{
		MinX: b.MinX - margin,
		MinY: b.MinY - margin,
		MaxX: b.MaxX + margin,
		MaxY: b.MaxY + margin,
	}
}

// Empty reports whether the box encloses nothing (min > max on some axis).
func (b Box) Empty() bool {
	return !(b.MinX <= b.MaxX && b.MinY <= b.MaxY)
}

// Valid reports whether the box is non-empty and has finite bounds.
func (b Box) Valid() bool {
	if b.Empty() {
		return false
	}
	for _, v := range [4]float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Center returns the midpoint of the box.
func (b Box) Center() GeoPoint {
	return GeoPoint{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Width returns the extent of the box along X.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the extent of the box along Y.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

func (b Box) String() string {
	return fmt.Sprintf("[%g,%g .. %g,%g]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}
