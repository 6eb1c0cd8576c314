package redcap

import (
	"context"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
)

// RemapRequest describes one source table to map through a completed
// dictionary. OutputPath is optional; when empty nothing is written to disk.
type RemapRequest struct {
	Acronym        string
	SourcePath     string
	DictionaryPath string
	FormID         string // defaults to domain.DefaultFormID
	OutputPath     string
	Delimiter      rune
	Exports        []etl.Target // extra destinations written after OutputPath
}

// IndexColumn names the synthetic row-position column for an acronym.
func IndexColumn(acronym string) string {
	return acronym + domain.IndexSuffix
}

// Transforms builds the chain that turns a loaded source table into the
// output table: add <acronym>_index and a placeholder record_id, rename
// through the dictionary, then keep exactly the dictionary's column order.
func (d *Dictionary) Transforms(acronym string) []etl.Transformer {
	return []etl.Transformer{
		&etl.IndexTransform{Columns: []string{IndexColumn(acronym), domain.RecordIDField}},
		&etl.RenameTransform{Mapping: d.Variables},
		&etl.SelectTransform{Fields: d.ColumnOrder},
	}
}

// Remap loads the source table and dictionary, renames and reorders the
// columns and, when requested, writes the result as a BOM-prefixed UTF-8 CSV
// with LF line endings. Rows keep their order and count.
func Remap(ctx context.Context, req RemapRequest) (*etl.Table, error) {
	table, _, err := RemapWithResult(ctx, req)
	return table, err
}

// RemapWithResult is Remap plus the engine's row counts.
func RemapWithResult(ctx context.Context, req RemapRequest) (*etl.Table, *etl.SyncResult, error) {
	formID := req.FormID
	if formID == "" {
		formID = domain.DefaultFormID
	}
	dict, err := LoadDictionary(req.DictionaryPath, formID)
	if err != nil {
		return nil, nil, err
	}

	var targets []etl.Target
	if req.OutputPath != "" {
		targets = append(targets, etl.Target{
			Dest: &etl.CSVFileWriter{Options: etl.CSVOptions{WriteBOM: true}},
			Name: req.OutputPath,
		})
	}
	targets = append(targets, req.Exports...)

	engine := &etl.Engine{}
	return engine.Run(ctx, &etl.Job{
		SourcePath: req.SourcePath,
		Delimiter:  req.Delimiter,
		Transforms: dict.Transforms(req.Acronym),
		Targets:    targets,
	})
}

// File naming conventions for batch outputs.

func HeaderListFileName(base string) string { return base + "_headers.txt" }

func TemplateFileName(base string) string { return base + "_redcap_datadictionary_template.csv" }

func ProcessedFileName(base string) string { return base + "_redcap_processed.csv" }
