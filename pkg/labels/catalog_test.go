package labels

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stuttgartFile = `2
lat lon osm_id prio elim_t radius lbl_fac label
48.5 8.5 1 2 3.0 1.0 1.0 'Tuebingen'
48.8 9.0 2 1 1.0 1.0 1.0 'Stuttgart'
`
	berlinFile = `1
lat lon osm_id prio elim_t radius lbl_fac label
52.5 13.4 1 1 2.0 1.0 1.0 'Berlin'
`
	brokenFile = "3\nlat lon osm_id prio elim_t radius lbl_fac label\n"
)

// catalogDir lays out two usable label files, one broken file and an
// unrelated file.
func catalogDir(t *testing.T) (dir string, paths []string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	a := writeLabelFile(t, dir, "a.ce", stuttgartFile)
	c := writeLabelFile(t, dir, "c.ce", brokenFile)
	b := writeLabelFile(t, filepath.Join(dir, "sub"), "b.ce", berlinFile)
	writeLabelFile(t, dir, "notes.txt", "not a label file")
	return dir, []string{a, c, b}
}

func TestDiscoverLabelFiles(t *testing.T) {
	dir, paths := catalogDir(t)

	found, err := DiscoverLabelFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{paths[0], paths[1], paths[2]}, found)

	_, err = DiscoverLabelFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBuildCatalogFromDir(t *testing.T) {
	dir, paths := catalogDir(t)
	var errLog bytes.Buffer

	opts := DefaultLoadOptions()
	opts.ErrorLog = &errLog
	cat, err := BuildCatalogFromDir(context.Background(), dir, opts, WithGeographic(true))
	require.NoError(t, err)
	defer cat.Close()

	require.Equal(t, 2, cat.Len())
	assert.Equal(t, "a", cat.All()[0].Name)
	assert.Equal(t, "b", cat.All()[1].Name)
	assert.Contains(t, errLog.String(), "Error loading labels: "+paths[1])
	assert.Equal(t, Box{MinX: 8.5, MinY: 48.5, MaxX: 13.4, MaxY: 52.5}, cat.Bounds())

	tests := []struct {
		name     string
		box      Box
		minT     float64
		datasets []string
		texts    []string
	}{
		{"baden-wuerttemberg", NewBox(8, 48, 10, 49), 0, []string{"a"}, []string{"Tuebingen", "Stuttgart"}},
		{"threshold", NewBox(8, 48, 10, 49), 2, []string{"a"}, []string{"Tuebingen"}},
		{"germany", NewBox(5, 47, 15, 55), 0, []string{"a", "b"}, []string{"Tuebingen", "Stuttgart", "Berlin"}},
		{"point on dataset", NewBox(13.4, 52.5, 13.4, 52.5), 0, []string{"b"}, []string{"Berlin"}},
		{"across antimeridian", Box{MinX: 170, MinY: 48, MaxX: 9, MaxY: 49}, 0, []string{"a"}, []string{"Tuebingen", "Stuttgart"}},
		{"atlantic", NewBox(-40, 30, -20, 50), 0, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, d := range cat.Datasets(tt.box) {
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.datasets, names)

			var texts []string
			for l := range cat.Query(tt.box, tt.minT) {
				texts = append(texts, l.Text)
			}
			assert.ElementsMatch(t, tt.texts, texts)
			assert.Equal(t, len(tt.texts), cat.Count(tt.box, tt.minT))
		})
	}
}

func TestCatalogQueryEarlyStop(t *testing.T) {
	dir, _ := catalogDir(t)
	cat, err := BuildCatalogFromDir(context.Background(), dir, DefaultLoadOptions())
	require.NoError(t, err)
	defer cat.Close()

	n := 0
	for range cat.Query(NewBox(5, 47, 15, 55), 0) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestBuildCatalogFromDirFailures(t *testing.T) {
	dir, paths := catalogDir(t)

	opts := DefaultLoadOptions()
	opts.SkipErrors = false
	_, err := BuildCatalogFromDir(context.Background(), dir, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), paths[1])

	_, err = BuildCatalogFromDir(context.Background(), t.TempDir(), DefaultLoadOptions())
	assert.ErrorContains(t, err, "no label files found")

	brokenOnly := t.TempDir()
	writeLabelFile(t, brokenOnly, "c.ce", brokenFile)
	_, err = BuildCatalogFromDir(context.Background(), brokenOnly, DefaultLoadOptions())
	assert.ErrorContains(t, err, "no label files could be loaded")
}

func TestCatalogClose(t *testing.T) {
	dir, _ := catalogDir(t)
	cat, err := BuildCatalogFromDir(context.Background(), dir, DefaultLoadOptions(), WithTemplate(unitTemplate))
	require.NoError(t, err)

	require.NoError(t, cat.Close())
	require.NoError(t, cat.Close())
	for _, d := range cat.All() {
		assert.Equal(t, StateReleased, d.Handle.State())
	}
	assert.Equal(t, 0, cat.Count(NewBox(5, 47, 15, 55), 0))
}

func TestNewCatalogIgnoresBadHandles(t *testing.T) {
	_, paths := catalogDir(t)
	handles := []*Handle{Init(paths[0]), Init(paths[1]), Init(paths[2])}

	cat := NewCatalog(handles)
	defer cat.Close()
	assert.Equal(t, 2, cat.Len())
}

func TestLoadHandlesParallel(t *testing.T) {
	_, paths := catalogDir(t)

	tests := []struct {
		name string
		opts LoadOptions
	}{
		{"parallel", LoadOptions{Parallel: true, Workers: 2, SkipErrors: true}},
		{"default workers", LoadOptions{Parallel: true, SkipErrors: true}},
		{"serial", LoadOptions{SkipErrors: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			var progress []int
			tt.opts.Progress = func(loaded, total int) {
				mu.Lock()
				defer mu.Unlock()
				assert.Equal(t, len(paths), total)
				progress = append(progress, loaded)
			}

			handles, errs := LoadHandlesParallel(context.Background(), paths, tt.opts)
			require.Len(t, handles, 2)
			assert.Equal(t, paths[0], handles[0].Path())
			assert.Equal(t, paths[2], handles[1].Path())
			require.Len(t, errs, 1)
			assert.ErrorContains(t, errs[0], paths[1])

			require.NotEmpty(t, progress)
			assert.Equal(t, len(paths), progress[len(progress)-1])

			for _, h := range handles {
				assert.True(t, h.IsGood())
				h.Close()
			}
		})
	}
}

func TestLoadHandlesParallelStopsOnError(t *testing.T) {
	_, paths := catalogDir(t)

	for _, parallel := range []bool{true, false} {
		handles, errs := LoadHandlesParallel(context.Background(), paths, LoadOptions{Parallel: parallel})
		assert.Nil(t, handles)
		require.Len(t, errs, 1)
		assert.ErrorContains(t, errs[0], paths[1])
	}
}

func TestLoadHandlesParallelEmpty(t *testing.T) {
	handles, errs := LoadHandlesParallel(context.Background(), nil, DefaultLoadOptions())
	assert.Nil(t, handles)
	assert.Nil(t, errs)
}
