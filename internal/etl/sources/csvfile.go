package sources

import (
	"context"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
)

// ── Delimited File Sources ──────────────────────────────────
// Read records from a local comma- or tab-separated file.

type delimitedFileSource struct {
	spec  etl.SourceSpec
	comma rune
}

func init() {
	etl.RegisterSource(&delimitedFileSource{
		spec:  etl.SourceSpec{Type: "csv_file", Label: "CSV File", Extensions: []string{".csv"}},
		comma: ',',
	})
	etl.RegisterSource(&delimitedFileSource{
		spec:  etl.SourceSpec{Type: "tsv_file", Label: "TSV File", Extensions: []string{".tsv", ".tab"}},
		comma: '\t',
	})
}

func (s *delimitedFileSource) Spec() etl.SourceSpec { return s.spec }

func (s *delimitedFileSource) Discover(ctx context.Context, cfg etl.SourceConfig) ([]string, error) {
	opts, err := s.options(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return etl.ReadHeader(cfg.Path, opts)
}

func (s *delimitedFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Table, error) {
	opts, err := s.options(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return etl.ReadTable(cfg.Path, opts)
}

func (s *delimitedFileSource) options(ctx context.Context, cfg etl.SourceConfig) (etl.CSVOptions, error) {
	if cfg.Path == "" {
		return etl.CSVOptions{}, domain.NewParse(s.spec.Label, "", "file path is required")
	}
	if err := ctx.Err(); err != nil {
		return etl.CSVOptions{}, err
	}
	comma := cfg.Delimiter
	if comma == 0 {
		comma = s.comma
	}
	return etl.CSVOptions{Delimiter: comma}, nil
}
