package labels

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	good := writeLabelFile(t, dir, "two.ce", twoLabelFile)

	r := NewRegistry(WithTemplate(unitTemplate))
	defer r.Close()

	tok := r.Init(good)
	bad := r.Init(filepath.Join(dir, "missing.ce"))
	assert.NotZero(t, tok)
	assert.NotEqual(t, tok, bad)
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.IsGood(tok))
	assert.NoError(t, r.Err(tok))
	assert.Equal(t, []int64{1}, idsOf(r.Query(tok, NewBox(-1, -1, 1, 1), 3)))
	assert.Equal(t, []uint64{1, 2}, r.QueryIDs(tok, NewBox(-1, -1, 11, 11), 1).ToArray())

	assert.False(t, r.IsGood(bad))
	assert.ErrorIs(t, r.Err(bad), ErrNotFound)
	assert.Empty(t, idsOf(r.Query(bad, NewBox(-1, -1, 11, 11), 0)))

	h, ok := r.Handle(tok)
	require.True(t, ok)
	assert.Equal(t, good, h.Path())
}

func TestRegistryUnknownToken(t *testing.T) {
	r := NewRegistry()

	for _, tok := range []Token{0, 17} {
		assert.False(t, r.IsGood(tok))
		assert.ErrorIs(t, r.Err(tok), ErrUnknownToken)
		assert.ErrorIs(t, r.Release(tok), ErrUnknownToken)
		assert.Empty(t, idsOf(r.Query(tok, NewBox(-1, -1, 1, 1), 0)))
		assert.True(t, r.QueryIDs(tok, NewBox(-1, -1, 1, 1), 0).IsEmpty())
	}
}

func TestRegistryRelease(t *testing.T) {
	path := writeLabelFile(t, t.TempDir(), "two.ce", twoLabelFile)
	r := NewRegistry()

	tok := r.Init(path)
	h, _ := r.Handle(tok)
	require.NoError(t, r.Release(tok))

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, StateReleased, h.State())
	assert.False(t, r.IsGood(tok))
	assert.ErrorIs(t, r.Err(tok), ErrUnknownToken)
	assert.ErrorIs(t, r.Release(tok), ErrUnknownToken, "a token is released once")

	next := r.Init(path)
	assert.NotEqual(t, tok, next, "tokens are never reused")
}

func TestRegistryPerCallOptions(t *testing.T) {
	path := writeLabelFile(t, t.TempDir(), "two.ce", twoLabelFile)
	r := NewRegistry(WithFanOut(4))
	defer r.Close()

	points := r.Init(path)
	boxes := r.Init(path, WithTemplate(unitTemplate))

	hp, _ := r.Handle(points)
	hb, _ := r.Handle(boxes)
	assert.Equal(t, 4, hp.Index().FanOut())
	assert.Equal(t, 4, hb.Index().FanOut())

	// The far label's footprint only reaches (9, 9) with the unit template.
	query := NewBox(9, 9, 9.5, 9.5)
	assert.Empty(t, idsOf(r.Query(points, query, 0)))
	assert.Equal(t, []int64{2}, idsOf(r.Query(boxes, query, 0)))
}

func TestRegistryClose(t *testing.T) {
	path := writeLabelFile(t, t.TempDir(), "two.ce", twoLabelFile)
	r := NewRegistry()

	var handles []*Handle
	for range 3 {
		h, _ := r.Handle(r.Init(path))
		handles = append(handles, h)
	}
	require.NoError(t, handles[0].Close())
	require.NoError(t, r.Close(), "already released handles close cleanly")

	assert.Equal(t, 0, r.Len())
	for _, h := range handles {
		assert.Equal(t, StateReleased, h.State())
	}
}
