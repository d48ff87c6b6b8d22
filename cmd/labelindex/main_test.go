package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoLabels = `2
lat lon osm_id prio elim_t radius lbl_fac label
0.0 0.0 1 3 5.0 1.0 1.0 'Origin'
10.0 10.0 2 1 2.0 1.0 1.0 'Far away'
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("LABELINDEX_CONFIG", "")
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunMissingArgument(t *testing.T) {
	code, stdout, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Usage:")
}

func TestRunGoodFile(t *testing.T) {
	path := writeFile(t, "two.ce", twoLabels)

	code, stdout, _ := runCLI(t, path)
	assert.Equal(t, exitGood, code)
	assert.Contains(t, stdout, "Initializing the data structure from "+path)
	assert.Contains(t, stdout, "Datastructure was created successfully!")
}

func TestRunMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.ce")

	code, stdout, stderr := runCLI(t, path)
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, stdout, "Failed to create datastructure!")
	assert.Contains(t, stderr, "not found")
}

func TestRunEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.ce", "0\nheader\n")

	code, stdout, _ := runCLI(t, path)
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, stdout, "Failed to create datastructure!")
}

func TestRunQuery(t *testing.T) {
	path := writeFile(t, "two.ce", twoLabels)

	tests := []struct {
		name    string
		bbox    string
		minT    string
		want    []string
		notWant []string
	}{
		{"near origin", "-1,-1,1,1", "3", []string{"Origin"}, []string{"Far away"}},
		{"both alive", "-1,-1,11,11", "1", []string{"Origin", "Far away"}, nil},
		{"threshold drops far label", "-1,-1,11,11", "3", []string{"Origin"}, []string{"Far away"}},
		{"nothing there", "20,20,21,21", "0", nil, []string{"Origin", "Far away"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, "--template", "2,2", "--bbox", tt.bbox, "--min-t", tt.minT, path)
			require.Equal(t, exitGood, code)
			for _, s := range tt.want {
				assert.Contains(t, stdout, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, stdout, s)
			}
		})
	}
}

func TestRunQueryLimit(t *testing.T) {
	path := writeFile(t, "two.ce", twoLabels)

	code, stdout, _ := runCLI(t, "--bbox", "-1,-1,11,11", "--limit", "1", path)
	require.Equal(t, exitGood, code)
	assert.Equal(t, 1, strings.Count(stdout, "Label [#"))
}

func TestRunSnapshotRoundTrip(t *testing.T) {
	path := writeFile(t, "two.ce", twoLabels)
	snap := filepath.Join(t.TempDir(), "two.lblx")

	code, _, stderr := runCLI(t, "--template", "2,2", "--compression", "lz4", "--snapshot-out", snap, path)
	require.Equal(t, exitGood, code, stderr)

	code, stdout, _ := runCLI(t, "--bbox", "-1,-1,1,1", "--min-t", "3", snap)
	require.Equal(t, exitGood, code)
	assert.Contains(t, stdout, "Origin")
	assert.NotContains(t, stdout, "Far away")
}

func TestRunDump(t *testing.T) {
	path := writeFile(t, "two.ce", twoLabels)

	code, stdout, _ := runCLI(t, "--dump", path)
	require.Equal(t, exitGood, code)
	assert.Contains(t, stdout, "Index: 2 labels")
	assert.Contains(t, stdout, "leaf #0")
}

func TestRunBadFlags(t *testing.T) {
	path := writeFile(t, "two.ce", twoLabels)

	tests := []struct {
		name string
		args []string
	}{
		{"bad bbox", []string{"--bbox", "1,2,3", path}},
		{"bad template", []string{"--template", "x,y", path}},
		{"bad fanout", []string{"--fanout", "1", path}},
		{"bad level", []string{"--log-level", "chatty", path}},
		{"unknown flag", []string{"--frobnicate", path}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			assert.Equal(t, exitUsage, code)
		})
	}
}
