package ntuple

import (
	"errors"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/y-v-p/root/dataset"
)

// Writer streams rows into a parquet file. Rows are buffered by the
// underlying writer and flushed on Close.
type Writer struct {
	cols   []Column
	file   source.ParquetFile
	pw     *writer.CSVWriter
	closed bool
}

// Create opens path for writing with the given schema, truncating any
// existing file.
func Create(path string, cols []Column) (*Writer, error) {
	if err := validateColumns(cols); err != nil {
		return nil, err
	}
	f, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("ntuple: creating %s: %w", path, err)
	}
	pw, err := writer.NewCSVWriter(metadata(cols), f, 4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ntuple: initializing writer for %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	return &Writer{cols: append([]Column(nil), cols...), file: f, pw: pw}, nil
}

// Columns returns the schema the writer was created with.
func (w *Writer) Columns() []Column { return append([]Column(nil), w.cols...) }

// WriteRow appends one row. vals are given in column order; values for
// Int64 columns are truncated toward zero.
func (w *Writer) WriteRow(vals ...float64) error {
	if w.closed {
		return errors.New("ntuple: write on closed writer")
	}
	if len(vals) != len(w.cols) {
		return fmt.Errorf("ntuple: row has %d values, schema has %d columns", len(vals), len(w.cols))
	}
	rec := make([]interface{}, len(vals))
	for i, v := range vals {
		switch w.cols[i].Kind {
		case Int64:
			rec[i] = int64(v)
		default:
			rec[i] = v
		}
	}
	if err := w.pw.Write(rec); err != nil {
		return fmt.Errorf("ntuple: writing row: %w", err)
	}
	return nil
}

// WriteFrame appends every row of f. Frame columns must match the
// writer schema by name and order.
func (w *Writer) WriteFrame(f *dataset.Frame) error {
	if len(f.Names) != len(w.cols) {
		return fmt.Errorf("ntuple: frame has %d columns, schema has %d", len(f.Names), len(w.cols))
	}
	for i, name := range f.Names {
		if name != w.cols[i].Name {
			return fmt.Errorf("ntuple: frame column %d is %q, schema expects %q", i, name, w.cols[i].Name)
		}
	}
	row := make([]float64, len(w.cols))
	for i := 0; i < f.NumRows(); i++ {
		for j := range w.cols {
			row[j] = f.Cols[j][i]
		}
		if err := w.WriteRow(row...); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered rows and closes the file. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.pw.WriteStop(); err != nil {
		w.file.Close()
		return fmt.Errorf("ntuple: finalizing file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("ntuple: closing file: %w", err)
	}
	return nil
}
