// Package export writes query snapshots to Parquet files for offline
// analysis.
//
// A snapshot is the result of one sum/mean or quantile query at a point in
// time. The on-disk bucket layout is private to a slide and dies with it;
// exporting snapshots is the supported way to keep statistics around.
package export

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/slide/internal/errors"
	"github.com/xtxerr/slide/internal/types"
)

// Source identifies which engine produced a snapshot.
const (
	SourceExact  = "exact"
	SourceApprox = "approx"
)

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.New("export writer is closed")

// Row represents one query snapshot in Parquet format.
type Row struct {
	TakenAt       int64   `parquet:"taken_at"`
	WindowSeconds int64   `parquet:"window_seconds"`
	Source        string  `parquet:"source,zstd"`
	Count         int64   `parquet:"count"`
	Sum           float64 `parquet:"sum"`
	Mean          float64 `parquet:"mean"`
	P50           float64 `parquet:"p50,optional"`
	P95           float64 `parquet:"p95,optional"`
	P99           float64 `parquet:"p99,optional"`
	Max           float64 `parquet:"max,optional"`
}

// FromDistribution converts a Distribution to a snapshot row.
func FromDistribution(d types.Distribution, source string, takenAt, windowSeconds int64) Row {
	row := Row{
		TakenAt:       takenAt,
		WindowSeconds: windowSeconds,
		Source:        source,
		Count:         d.Count,
		Sum:           d.Sum,
		Mean:          d.Mean,
	}

	if d.P50 != nil {
		row.P50 = *d.P50
	}
	if d.P95 != nil {
		row.P95 = *d.P95
	}
	if d.P99 != nil {
		row.P99 = *d.P99
	}
	if d.Max != nil {
		row.Max = *d.Max
	}

	return row
}

// Writer appends snapshot rows to a Parquet file.
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[Row]
	rowCount int64
	closed   bool
}

// NewWriter creates a snapshot Parquet writer, creating parent directories
// as needed.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create export directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create export file")
	}

	writer := parquet.NewGenericWriter[Row](f,
		parquet.Compression(&parquet.Zstd),
	)

	return &Writer{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends rows to the file.
func (w *Writer) Write(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return errors.Wrap(err, "write snapshot rows")
	}

	w.rowCount += int64(n)
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return errors.Wrap(err, "close snapshot writer")
	}
	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// ReadAll reads every snapshot row from a Parquet file.
func ReadAll(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot file")
	}
	return rows, nil
}

// WriteAll writes rows to a new Parquet file and closes it.
func WriteAll(path string, rows []Row) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}

	if err := w.Write(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
