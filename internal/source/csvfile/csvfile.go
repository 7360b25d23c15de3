// Package csvfile reads import rows from CSV files on local disk.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"finances/internal/ports"
)

var _ ports.TabularSource = Source{}

// Source treats the path given to OpenRows as a file name. Release deletes
// the file.
type Source struct{}

func New() Source { return Source{} }

// OpenRows opens path and consumes its header line. Rows may have any number
// of fields.
func (Source) OpenRows(ctx context.Context, path string) (ports.RowReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	if _, err := r.Read(); err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	slog.DebugContext(ctx, "Opened CSV source", "path", path)
	return &rows{f: f, r: r}, nil
}

// Release removes the imported file. A file that is already gone is not an
// error.
func (Source) Release(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	slog.InfoContext(ctx, "Removed imported CSV", "path", path)
	return nil
}

type rows struct {
	f *os.File
	r *csv.Reader
}

func (r *rows) Read() ([]string, error) {
	return r.r.Read()
}

func (r *rows) Close() error {
	return r.f.Close()
}
