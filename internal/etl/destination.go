package etl

import (
	"context"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes a finished table somewhere.
// CSV files are written here; database exporters live in dbclient.

// Destination writes tables to a target system. name identifies the table
// inside the target: a file path for CSV, a table or collection otherwise.
type Destination interface {
	Write(ctx context.Context, name string, t *Table) (int, error)
}

// CSVFileWriter implements Destination for local delimited files.
// Existing files are overwritten.
type CSVFileWriter struct {
	Options CSVOptions
}

func (w *CSVFileWriter) Write(ctx context.Context, path string, t *Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := WriteTableFile(path, t, w.Options); err != nil {
		return 0, err
	}
	return t.NumRows(), nil
}

// Target pairs a destination with the name the table is written under.
type Target struct {
	Dest Destination
	Name string
}
