package ntuple

import (
	"errors"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/y-v-p/root/dataset"
)

// Reader reads columns back from a parquet file written by Writer. The
// caller declares the expected schema; columns are matched by position.
type Reader struct {
	cols   []Column
	file   source.ParquetFile
	pr     *reader.ParquetReader
	closed bool
}

// Open opens path for reading. cols names the columns to read, in file
// order; the file may carry additional trailing columns.
func Open(path string, cols []Column) (*Reader, error) {
	if err := validateColumns(cols); err != nil {
		return nil, err
	}
	f, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("ntuple: opening %s: %w", path, err)
	}
	pr, err := reader.NewParquetColumnReader(f, 4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ntuple: reading %s: %w", path, err)
	}
	if got := len(pr.SchemaHandler.ValueColumns); got < len(cols) {
		pr.ReadStop()
		f.Close()
		return nil, fmt.Errorf("ntuple: %s has %d columns, need %d", path, got, len(cols))
	}
	return &Reader{cols: append([]Column(nil), cols...), file: f, pr: pr}, nil
}

// Rows reports the number of rows in the file.
func (r *Reader) Rows() int64 { return r.pr.GetNumRows() }

// Columns returns the schema the reader was opened with.
func (r *Reader) Columns() []Column { return append([]Column(nil), r.cols...) }

// ReadAll materializes every declared column as a Frame.
func (r *Reader) ReadAll() (*dataset.Frame, error) {
	if r.closed {
		return nil, errors.New("ntuple: read on closed reader")
	}
	n := r.Rows()
	names := make([]string, len(r.cols))
	data := make([][]float64, len(r.cols))
	for i, c := range r.cols {
		names[i] = c.Name
		vals, _, _, err := r.pr.ReadColumnByIndex(int64(i), n)
		if err != nil {
			return nil, fmt.Errorf("ntuple: reading column %q: %w", c.Name, err)
		}
		if int64(len(vals)) != n {
			return nil, fmt.Errorf("ntuple: column %q has %d values, want %d", c.Name, len(vals), n)
		}
		col := make([]float64, len(vals))
		for j, v := range vals {
			fv, err := asFloat64(v)
			if err != nil {
				return nil, fmt.Errorf("ntuple: column %q row %d: %w", c.Name, j, err)
			}
			col[j] = fv
		}
		data[i] = col
	}
	return dataset.NewFrame(names, data)
}

func asFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

// Close releases the underlying file. Close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.pr.ReadStop()
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("ntuple: closing file: %w", err)
	}
	return nil
}

// WriteFrameFile writes f to path in one call.
func WriteFrameFile(path string, f *dataset.Frame, cols []Column) error {
	w, err := Create(path, cols)
	if err != nil {
		return err
	}
	if err := w.WriteFrame(f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadFrameFile reads the declared columns of path in one call.
func ReadFrameFile(path string, cols []Column) (*dataset.Frame, error) {
	r, err := Open(path, cols)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}
