package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"redcapprep/internal/domain"
)

// CSVOptions controls how tables are read and written.
type CSVOptions struct {
	Delimiter rune // defaults to ','
	WriteBOM  bool // prefix output with a UTF-8 byte-order mark
}

func (o CSVOptions) comma() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// ReadRecords reads every record of a delimited file. A leading byte-order
// mark is dropped. Records may have differing field counts.
func ReadRecords(path string, opts CSVOptions) ([][]string, error) {
	f, reader, err := openReader(path, opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &domain.ParseError{Format: "csv", Path: path, Message: err.Error(), Err: err}
	}
	return records, nil
}

// ReadHeader reads only the first record of a delimited file.
func ReadHeader(path string, opts CSVOptions) ([]string, error) {
	f, reader, err := openReader(path, opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewParse("csv", path, "no header row")
	}
	if err != nil {
		return nil, &domain.ParseError{Format: "csv", Path: path, Message: err.Error(), Err: err}
	}
	return header, nil
}

func openReader(path string, opts CSVOptions) (*os.File, *csv.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, &domain.NotFoundError{Resource: "file", Path: path, Err: err}
		}
		return nil, nil, domain.NewIO("open", path, err)
	}
	reader := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.Comma = opts.comma()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return f, reader, nil
}

// ReadTable reads a delimited file whose first record is the header.
// Short rows are padded with empty cells; rows longer than the header fail.
func ReadTable(path string, opts CSVOptions) (*Table, error) {
	records, err := ReadRecords(path, opts)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.NewParse("csv", path, "no header row")
	}

	t := NewTable(records[0])
	t.Rows = make([][]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) > len(t.Columns) {
			return nil, domain.NewParse("csv", path,
				fmt.Sprintf("row %d has %d fields, header has %d", i+1, len(rec), len(t.Columns)))
		}
		row := make([]string, len(t.Columns))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteTable writes header and rows with LF line endings.
func WriteTable(w io.Writer, t *Table, opts CSVOptions) error {
	if opts.WriteBOM {
		bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
		if err := writeRecords(bw, t, opts); err != nil {
			return err
		}
		return bw.Close()
	}
	return writeRecords(w, t, opts)
}

func writeRecords(w io.Writer, t *Table, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	cw.Comma = opts.comma()
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteTableFile creates (or truncates) path and writes t into it.
func WriteTableFile(path string, t *Table, opts CSVOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return domain.NewIO("create", path, err)
	}
	if err := WriteTable(f, t, opts); err != nil {
		f.Close()
		return domain.NewIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return domain.NewIO("close", path, err)
	}
	return nil
}
