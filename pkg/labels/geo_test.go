package labels

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetlebugorg/labelindex/internal/parser"
)

func geoLabels() []Label {
	return []Label{
		{ID: 1, Anchor: GeoPoint{X: 179.5, Y: 0}, SizeFactor: 0.1, EliminationTime: 1, Text: "east"},
		{ID: 2, Anchor: GeoPoint{X: -179.5, Y: 0}, SizeFactor: 0.1, EliminationTime: 1, Text: "west"},
		{ID: 3, Anchor: GeoPoint{X: 0, Y: 0}, SizeFactor: 0.1, EliminationTime: 1, Text: "greenwich"},
		{ID: 4, Anchor: GeoPoint{X: 179.9, Y: 60}, SizeFactor: 0.1, EliminationTime: 1, Text: "north"},
	}
}

func TestSplitAntimeridian(t *testing.T) {
	east, west, ok := SplitAntimeridian(Box{MinX: 170, MinY: -10, MaxX: -170, MaxY: 10})
	require.True(t, ok)
	assert.Equal(t, Box{MinX: 170, MinY: -10, MaxX: 180, MaxY: 10}, east)
	assert.Equal(t, Box{MinX: -180, MinY: -10, MaxX: -170, MaxY: 10}, west)

	plain := NewBox(-10, -10, 10, 10)
	east, _, ok = SplitAntimeridian(plain)
	assert.False(t, ok)
	assert.Equal(t, plain, east)
}

func TestGeographicRejectsOutOfRange(t *testing.T) {
	input := append(geoLabels(),
		Label{ID: 5, Anchor: GeoPoint{X: 181, Y: 0}, SizeFactor: 1, EliminationTime: 1},
		Label{ID: 6, Anchor: GeoPoint{X: 0, Y: -90.5}, SizeFactor: 1, EliminationTime: 1},
	)

	idx := Build(input, BuildOptions{Template: unitTemplate, Geographic: true})
	require.True(t, idx.Valid())
	assert.Equal(t, 4, idx.Len())
	require.Len(t, idx.Rejected(), 2)
	for _, verr := range idx.Rejected() {
		assert.Equal(t, ReasonOutOfRange, verr.Reason)
		var cerr *parser.ErrInvalidCoordinate
		assert.True(t, errors.As(verr, &cerr))
	}

	planar := Build(input, BuildOptions{Template: unitTemplate})
	assert.Equal(t, 6, planar.Len(), "planar indexes accept any finite anchor")
}

func TestQueryAcrossAntimeridian(t *testing.T) {
	idx := Build(geoLabels(), BuildOptions{Template: unitTemplate, Geographic: true})
	require.True(t, idx.Valid())

	tests := []struct {
		name string
		box  Box
		want []int64
	}{
		{"both sides", Box{MinX: 179, MinY: -1, MaxX: -179, MaxY: 1}, []int64{1, 2}},
		{"east side only", Box{MinX: 179, MinY: -1, MaxX: -179.9, MaxY: 1}, []int64{1}},
		{"west side only", Box{MinX: 179.9, MinY: -1, MaxX: -179, MaxY: 1}, []int64{2}},
		{"tall strip", Box{MinX: 179, MinY: -90, MaxX: -179, MaxY: 90}, []int64{1, 2, 4}},
		{"plain box", NewBox(-1, -1, 1, 1), []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idsOf(idx.Query(tt.box, 0)))
			assert.Equal(t, len(tt.want), idx.Count(tt.box, 0))
		})
	}
}

func TestQueryAcrossAntimeridianReportsOnce(t *testing.T) {
	// The footprint spans [-20, 20] and reaches into both halves of the
	// query [10, 180] + [-180, -10].
	idx := Build([]Label{
		{ID: 1, SizeFactor: 20, EliminationTime: 1},
	}, BuildOptions{Template: unitTemplate, Geographic: true})

	box := Box{MinX: 10, MinY: -5, MaxX: -10, MaxY: 5}
	assert.Equal(t, []int64{1}, idsOf(idx.Query(box, 0)))
	assert.Equal(t, uint64(1), idx.QueryIDs(box, 0).GetCardinality())
}

func TestQueryAcrossAntimeridianEarlyStop(t *testing.T) {
	idx := Build(geoLabels(), BuildOptions{Template: unitTemplate, Geographic: true})

	n := 0
	for range idx.Query(Box{MinX: 179, MinY: -1, MaxX: -179, MaxY: 1}, 0) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestInvertedBoxInPlanarIndex(t *testing.T) {
	idx := Build(geoLabels(), BuildOptions{Template: unitTemplate})
	assert.Empty(t, idsOf(idx.Query(Box{MinX: 179, MinY: -1, MaxX: -179, MaxY: 1}, 0)))
}
