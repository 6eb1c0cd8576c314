package redcap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
	_ "redcapprep/internal/etl/sources" // register delimited file sources
	"redcapprep/internal/logging"
)

// Mode selects what GenerateTemplate writes.
type Mode string

const (
	// ModeAuto infers the mode from the destination extension.
	ModeAuto               Mode = ""
	ModeTextList           Mode = "text-list"
	ModeDictionarySkeleton Mode = "dictionary-skeleton"
)

// Variant selects between the two skeleton layouts in use.
type Variant string

const (
	// VariantPinned pins the record_id row to DefaultFormID and writes no
	// row-number column.
	VariantPinned Variant = "pinned"
	// VariantRowNumbered uses FormID on every row and writes a leading
	// unnamed row-number column.
	VariantRowNumbered Variant = "row-numbered"
)

// ParseVariant converts a flag or config value to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantPinned:
		return VariantPinned, nil
	case VariantRowNumbered:
		return VariantRowNumbered, nil
	}
	return "", domain.NewUnsupported("template variant", s)
}

// TemplateOptions configures GenerateTemplate. The zero value infers the
// mode, uses DefaultFormID and the pinned layout.
type TemplateOptions struct {
	Mode      Mode
	FormID    string
	Variant   Variant
	Delimiter rune // source delimiter; zero uses the source type's default
}

// TemplateResult is what GenerateTemplate wrote. Dictionary is nil in
// text-list mode.
type TemplateResult struct {
	Mode       Mode
	Headers    []string
	Dictionary *etl.Table
}

// ResolveMode returns mode, or infers it from dest's extension when mode is
// ModeAuto.
func ResolveMode(mode Mode, dest string) (Mode, error) {
	switch mode {
	case ModeTextList, ModeDictionarySkeleton:
		return mode, nil
	case ModeAuto:
	default:
		return "", &domain.UnsupportedError{Feature: "template mode", Reason: string(mode), Err: domain.ErrUnresolvableMode}
	}
	switch strings.ToLower(filepath.Ext(dest)) {
	case ".txt":
		return ModeTextList, nil
	case ".csv":
		return ModeDictionarySkeleton, nil
	}
	return "", &domain.UnsupportedError{
		Feature: "template mode",
		Reason:  fmt.Sprintf("cannot infer from destination %q", dest),
		Err:     domain.ErrUnresolvableMode,
	}
}

// HeaderList returns the source headers behind a leading record_id.
func HeaderList(columns []string) []string {
	return append([]string{domain.RecordIDField}, columns...)
}

// GenerateTemplate reads the header row of src and writes either a header list
// or a data-dictionary skeleton to dest, overwriting it.
//
// When the mode cannot be resolved nothing is written and the returned error
// wraps domain.ErrUnresolvableMode.
func GenerateTemplate(ctx context.Context, src, dest string, opts TemplateOptions) (*TemplateResult, error) {
	mode, err := ResolveMode(opts.Mode, dest)
	if err != nil {
		logging.Warn("template_mode_unresolved", "source", src, "destination", dest)
		return nil, err
	}

	source, err := etl.SourceFor(src)
	if err != nil {
		return nil, err
	}
	columns, err := source.Discover(ctx, etl.SourceConfig{Path: src, Delimiter: opts.Delimiter})
	if err != nil {
		return nil, err
	}
	headers := HeaderList(columns)

	switch mode {
	case ModeTextList:
		if err := writeHeaderList(dest, headers); err != nil {
			return nil, err
		}
		return &TemplateResult{Mode: mode, Headers: headers}, nil

	default:
		formID := opts.FormID
		if formID == "" {
			formID = domain.DefaultFormID
		}
		variant := opts.Variant
		if variant == "" {
			variant = VariantPinned
		}
		skeleton := BuildSkeleton(headers, formID, variant)
		if err := etl.WriteTableFile(dest, skeleton, etl.CSVOptions{}); err != nil {
			return nil, err
		}
		return &TemplateResult{Mode: mode, Headers: headers, Dictionary: skeleton}, nil
	}
}

// BuildSkeleton lays out one dictionary row per header with Field Label set
// to the header, Field Type "text" and Form Name formID.
func BuildSkeleton(headers []string, formID string, variant Variant) *etl.Table {
	columns := domain.DictionaryFields
	offset := 0
	if variant == VariantRowNumbered {
		columns = append([]string{""}, domain.DictionaryFields...)
		offset = 1
	}

	t := etl.NewTable(columns)
	t.Rows = make([][]string, len(headers))
	for i, h := range headers {
		row := make([]string, len(columns))
		if offset == 1 {
			row[0] = strconv.Itoa(i)
		}
		row[offset+domain.FormNameCol] = formID
		row[offset+domain.FieldTypeCol] = domain.DefaultFieldType
		row[offset+domain.FieldLabelCol] = h
		t.Rows[i] = row
	}
	if variant == VariantPinned && len(t.Rows) > 0 {
		t.Rows[0][domain.FormNameCol] = domain.DefaultFormID
	}
	return t
}

func writeHeaderList(dest string, headers []string) error {
	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(dest, []byte(b.String()), 0o644); err != nil {
		return domain.NewIO("write", dest, err)
	}
	return nil
}
