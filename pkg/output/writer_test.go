package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/classgraph/pkg/readindex"
)

func testIndex(t *testing.T) *readindex.Index {
	idx := readindex.New()
	_, err := idx.AddLabeled("r1", 5)
	require.NoError(t, err)
	idx.Ensure("r2")
	idx.Ensure("r3")
	return idx
}

func TestWriteLabels(t *testing.T) {
	var buf bytes.Buffer
	err := NewFileWriter().WriteLabels(&buf, testIndex(t), []int{5, 0, 5})
	require.NoError(t, err)
	assert.Equal(t, "r1\t5\nr2\t0\nr3\t5\n", buf.String())
}

func TestWriteLabelsRejectsShortLabelVector(t *testing.T) {
	var buf bytes.Buffer
	err := NewFileWriter().WriteLabels(&buf, testIndex(t), []int{5})
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := ResultPath(dir, "sample_")
	assert.Equal(t, filepath.Join(dir, "sample_CG.res"), path)

	require.NoError(t, NewFileWriter().WriteFile(path, testIndex(t), []int{5, 1, 0}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "r1\t5\nr2\t1\nr3\t0\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not remain")
}

func TestWriteFileLeavesNothingOnError(t *testing.T) {
	dir := t.TempDir()
	path := ResultPath(dir, "bad_")

	err := NewFileWriter().WriteFile(path, testIndex(t), []int{1, 2})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
