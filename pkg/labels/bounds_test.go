package labels

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxOf(t *testing.T) {
	tests := []struct {
		name   string
		anchor GeoPoint
		factor float64
		tpl    Template
		want   Box
		reason Reason
	}{
		{"unit template", GeoPoint{X: 10, Y: 10}, 1, unitTemplate, Box{MinX: 9, MinY: 9, MaxX: 11, MaxY: 11}, 0},
		{"scaled", GeoPoint{X: 0, Y: 0}, 2.5, Template{Width: 4, Height: 2}, Box{MinX: -5, MinY: -2.5, MaxX: 5, MaxY: 2.5}, 0},
		{"zero factor is a point", GeoPoint{X: 3, Y: -4}, 0, unitTemplate, Box{MinX: 3, MinY: -4, MaxX: 3, MaxY: -4}, 0},
		{"zero template is a point", GeoPoint{X: 3, Y: -4}, 7, Template{}, Box{MinX: 3, MinY: -4, MaxX: 3, MaxY: -4}, 0},
		{"negative factor", GeoPoint{}, -0.5, unitTemplate, Box{}, ReasonNegativeSize},
		{"NaN factor", GeoPoint{}, math.NaN(), unitTemplate, Box{}, ReasonNonFiniteSize},
		{"infinite factor", GeoPoint{}, math.Inf(1), unitTemplate, Box{}, ReasonNonFiniteSize},
		{"infinite anchor", GeoPoint{X: math.Inf(-1)}, 1, unitTemplate, Box{}, ReasonNonFiniteAnchor},
		{"NaN anchor", GeoPoint{Y: math.NaN()}, 1, unitTemplate, Box{}, ReasonNonFiniteAnchor},
		{"negative template", GeoPoint{}, 1, Template{Width: -2, Height: -2}, Box{}, ReasonInvalidTemplate},
		{"infinite template", GeoPoint{}, 1, Template{Width: math.Inf(1), Height: 2}, Box{}, ReasonInvalidTemplate},
		{"NaN template", GeoPoint{}, 1, Template{Width: 2, Height: math.NaN()}, Box{}, ReasonInvalidTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BoxOf(tt.anchor, tt.factor, tt.tpl)
			if tt.reason == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.reason, verr.Reason)
			if tt.reason == ReasonInvalidTemplate {
				assert.ErrorIs(t, err, ErrInvalidTemplate)
			}
		})
	}
}

func TestBoxIntersects(t *testing.T) {
	base := NewBox(0, 0, 10, 10)

	tests := []struct {
		name  string
		other Box
		want  bool
	}{
		{"overlap", NewBox(5, 5, 15, 15), true},
		{"inside", NewBox(2, 2, 3, 3), true},
		{"covering", NewBox(-5, -5, 15, 15), true},
		{"touching edge", NewBox(10, 0, 20, 10), true},
		{"touching corner", NewBox(10, 10, 11, 11), true},
		{"point on edge", NewBox(0, 5, 0, 5), true},
		{"disjoint x", NewBox(10.0001, 0, 20, 10), false},
		{"disjoint y", NewBox(0, -3, 10, -0.5), false},
		{"empty", EmptyBox(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Intersects(tt.other))
			assert.Equal(t, tt.want, tt.other.Intersects(base), "intersection must be symmetric")
		})
	}
}

func TestBoxUnion(t *testing.T) {
	a := NewBox(0, 0, 1, 1)
	b := NewBox(5, -2, 6, 0.5)

	assert.Equal(t, Box{MinX: 0, MinY: -2, MaxX: 6, MaxY: 1}, a.Union(b))
	assert.Equal(t, a, EmptyBox().Union(a), "the empty box is the identity")
	assert.Equal(t, a, a.Union(EmptyBox()))
	assert.True(t, EmptyBox().Union(EmptyBox()).Empty())
}

func TestBoxPredicates(t *testing.T) {
	b := NewBox(4, 3, -2, -1)
	assert.Equal(t, Box{MinX: -2, MinY: -1, MaxX: 4, MaxY: 3}, b, "NewBox orders corners")
	assert.Equal(t, 6.0, b.Width())
	assert.Equal(t, 4.0, b.Height())
	assert.Equal(t, GeoPoint{X: 1, Y: 1}, b.Center())
	assert.True(t, b.Contains(GeoPoint{X: 4, Y: 3}))
	assert.False(t, b.Contains(GeoPoint{X: 4.5, Y: 3}))
	assert.True(t, b.ContainsBox(NewBox(0, 0, 1, 1)))
	assert.False(t, b.ContainsBox(NewBox(0, 0, 5, 1)))
	assert.Equal(t, Box{MinX: -3, MinY: -2, MaxX: 5, MaxY: 4}, b.Expand(1))
	assert.Equal(t, "[-2,-1 .. 4,3]", b.String())

	assert.True(t, b.Valid())
	assert.True(t, NewBox(1, 1, 1, 1).Valid())
	assert.False(t, EmptyBox().Valid())
	assert.False(t, Box{MinX: 1, MaxX: 0}.Valid())
	assert.False(t, NewBox(0, 0, math.Inf(1), 1).Valid())
	assert.True(t, Box{MinX: math.NaN()}.Empty())
}

func TestLabelAliveAt(t *testing.T) {
	l := Label{EliminationTime: 2}
	assert.True(t, l.AliveAt(1))
	assert.True(t, l.AliveAt(2))
	assert.False(t, l.AliveAt(2.0001))
}
