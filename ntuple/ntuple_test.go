package ntuple

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y-v-p/root/dataset"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.parquet")
	cols := []Column{
		{Name: "x", Kind: Float64},
		{Name: "y", Kind: Float64},
		{Name: "eventID", Kind: Int64},
	}

	w, err := Create(path, cols)
	require.NoError(t, err)
	rows := [][]float64{
		{0.5, -1.25, 1},
		{1.5, 2.75, 2},
		{-3.0, 0.0, 3},
	}
	for _, r := range rows {
		require.NoError(t, w.WriteRow(r...))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close should be a no-op")

	r, err := Open(path, cols)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(3), r.Rows())

	f, err := r.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y", "eventID"}, f.Names)
	require.Equal(t, 3, f.NumRows())
	for i, want := range rows {
		for j := range cols {
			assert.Equal(t, want[j], f.Cols[j][i], "row %d col %s", i, cols[j].Name)
		}
	}
}

func TestInt64ColumnTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.parquet")
	cols := []Column{{Name: "id", Kind: Int64}}

	w, err := Create(path, cols)
	require.NoError(t, err)
	require.NoError(t, w.WriteRow(7.9))
	require.NoError(t, w.WriteRow(-2.1))
	require.NoError(t, w.Close())

	f, err := ReadFrameFile(path, cols)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, -2}, f.Cols[0])
}

func TestFrameRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.parquet")
	frame, err := dataset.NewFrame(
		[]string{"a", "b"},
		[][]float64{{1, 2, 3, 4}, {0.1, 0.2, 0.3, 0.4}},
	)
	require.NoError(t, err)

	cols := Float64Columns("a", "b")
	require.NoError(t, WriteFrameFile(path, frame, cols))

	got, err := ReadFrameFile(path, cols)
	require.NoError(t, err)
	assert.Equal(t, frame.Names, got.Names)
	assert.Equal(t, frame.Cols, got.Cols)
}

func TestWriteFrameSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	frame, err := dataset.NewFrame([]string{"a"}, [][]float64{{1, 2}})
	require.NoError(t, err)

	w, err := Create(filepath.Join(dir, "bad1.parquet"), Float64Columns("a", "b"))
	require.NoError(t, err)
	assert.Error(t, w.WriteFrame(frame), "column count mismatch")
	require.NoError(t, w.Close())

	w, err = Create(filepath.Join(dir, "bad2.parquet"), Float64Columns("z"))
	require.NoError(t, err)
	assert.Error(t, w.WriteFrame(frame), "column name mismatch")
	require.NoError(t, w.Close())
}

func TestWriterErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.parquet")

	_, err := Create(path, nil)
	assert.Error(t, err, "empty schema")
	_, err = Create(path, []Column{{Name: "x"}, {Name: "x"}})
	assert.Error(t, err, "duplicate column")
	_, err = Create(path, []Column{{Name: ""}})
	assert.Error(t, err, "empty column name")

	w, err := Create(path, Float64Columns("x"))
	require.NoError(t, err)
	assert.Error(t, w.WriteRow(1, 2), "arity mismatch")
	require.NoError(t, w.Close())
	assert.Error(t, w.WriteRow(1), "write after close")
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.parquet"), Float64Columns("x"))
	assert.Error(t, err)

	path := filepath.Join(dir, "one.parquet")
	w, err := Create(path, Float64Columns("x"))
	require.NoError(t, err)
	require.NoError(t, w.WriteRow(1))
	require.NoError(t, w.Close())

	_, err = Open(path, Float64Columns("x", "y"))
	assert.Error(t, err, "file has fewer columns than requested")
}
