package labels

import (
	"fmt"
	"math"
)

// Label is a geolocated map label with its elimination time.
//
// Labels are values: queries hand out copies and never alias index storage.
// Box is derived from Anchor, SizeFactor and the index template when the
// index is built; it is zero on labels that have not been indexed yet.
type Label struct {
	ID              int64    // Unique within one index (OSM id in c.e data)
	Priority        int32    // Display priority class from the source data
	Anchor          GeoPoint // Label position
	EliminationTime float64  // Label is displayed while the query threshold is <= this value
	Radius          float64  // Radius as exported with the label (informational)
	SizeFactor      float64  // Multiplier applied to the base template
	Text            string   // Label text
	Box             Box      // Footprint, derived at build time
}

// AliveAt reports whether the label survives the threshold minT.
func (l *Label) AliveAt(minT float64) bool {
	return l.EliminationTime >= minT
}

func (l Label) String() string {
	return fmt.Sprintf("Label [#%d]: '%s' at (%g, %g) with prio %d, elim-t: %g and label factor: %g",
		l.ID, l.Text, l.Anchor.X, l.Anchor.Y, l.Priority, l.EliminationTime, l.SizeFactor)
}

// validate derives the footprint of l and checks the fields the index relies on.
func (l *Label) validate(tpl Template, geographic bool) *ValidationError {
	if math.IsNaN(l.EliminationTime) || math.IsInf(l.EliminationTime, 0) {
		return &ValidationError{ID: l.ID, Reason: ReasonNonFiniteTime, Value: l.EliminationTime}
	}

	box, err := BoxOf(l.Anchor, l.SizeFactor, tpl)
	if err != nil {
		ve := err.(*ValidationError)
		ve.ID = l.ID
		return ve
	}

	if geographic {
		if err := validateGeographic(l.Anchor); err != nil {
			return &ValidationError{ID: l.ID, Reason: ReasonOutOfRange, Err: err}
		}
	}

	l.Box = box
	return nil
}
