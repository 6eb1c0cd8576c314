package redcap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
)

// dictionaryCSV renders a completed dictionary: header row, record_id row,
// then one row per (name, form, label).
func dictionaryCSV(rows ...[3]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(quoteAll(domain.DictionaryFields), ",") + "\n")
	b.WriteString("record_id,form_1,,text,record_id" + strings.Repeat(",", 13) + "\n")
	for _, r := range rows {
		b.WriteString(r[0] + "," + r[1] + ",,text," + r[2] + strings.Repeat(",", 13) + "\n")
	}
	return b.String()
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = `"` + s + `"`
	}
	return out
}

const visitSource = "Age,Name,Notes\n34,ann,first\n51,bo,second\n27,cy,third\n"

func TestLoadDictionary(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "dict.csv", dictionaryCSV(
		[3]string{"age_yrs", "form_1", "Age"},
		[3]string{"other", "form_2", "Other"},
		[3]string{"aps_index", "form_1", "aps_index"},
		[3]string{"full_name", "form_1", "Name"},
	))

	d, err := LoadDictionary(path, "form_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"record_id", "age_yrs", "aps_index", "full_name"}, d.ColumnOrder)
	assert.Equal(t, VariableMap{"Age": "age_yrs", "Name": "full_name"}, d.Variables)
}

func TestLoadDictionary_ShortRowsAndTooFewRows(t *testing.T) {
	dir := t.TempDir()
	short := writeSource(t, dir, "short.csv", "h\nrecord_id\nage_yrs,form_1\n")
	d, err := LoadDictionary(short, "form_1")
	require.NoError(t, err)
	assert.Equal(t, VariableMap{"": "age_yrs"}, d.Variables)

	tiny := writeSource(t, dir, "tiny.csv", "only a header\n")
	_, err = LoadDictionary(tiny, "form_1")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRemap_RenameAndOrder(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "APS_visit1.csv", visitSource)
	dict := writeSource(t, dir, "dict.csv", dictionaryCSV(
		[3]string{"full_name", "form_1", "Name"},
		[3]string{"age_yrs", "form_1", "Age"},
		[3]string{"aps_index", "form_1", "aps_index"},
	))

	out, err := Remap(context.Background(), RemapRequest{
		Acronym:        "aps",
		SourcePath:     src,
		DictionaryPath: dict,
		FormID:         "form_1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"record_id", "full_name", "age_yrs", "aps_index"}, out.Columns)
	age, _ := out.Column("age_yrs")
	assert.Equal(t, []string{"34", "51", "27"}, age)
	_, hasNotes := out.Column("Notes")
	assert.False(t, hasNotes, "columns outside the order are dropped")

	rid, _ := out.Column("record_id")
	idx, _ := out.Column("aps_index")
	assert.Equal(t, []string{"0", "1", "2"}, rid)
	assert.Equal(t, []string{"0", "1", "2"}, idx)
}

func TestRemap_ReplacesExistingIdentityColumns(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "APS_export.csv", "record_id,aps_index,Age\n900,x,34\n901,y,51\n")
	dict := writeSource(t, dir, "dict.csv", dictionaryCSV(
		[3]string{"age_yrs", "form_1", "Age"},
		[3]string{"aps_index", "form_1", "aps_index"},
	))

	out, err := Remap(context.Background(), RemapRequest{
		Acronym: "aps", SourcePath: src, DictionaryPath: dict, FormID: "form_1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"record_id", "age_yrs", "aps_index"}, out.Columns)
	rid, _ := out.Column("record_id")
	idx, _ := out.Column("aps_index")
	assert.Equal(t, []string{"0", "1"}, rid)
	assert.Equal(t, []string{"0", "1"}, idx)
}

func TestRemap_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", visitSource)
	dict := writeSource(t, dir, "dict.csv", dictionaryCSV(
		[3]string{"age_yrs", "form_1", "Age"},
		[3]string{"weight_kg", "form_1", "Weight"},
	))
	out := filepath.Join(dir, "out.csv")

	_, err := Remap(context.Background(), RemapRequest{
		Acronym: "ms", SourcePath: src, DictionaryPath: dict, OutputPath: out,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingColumn))

	var mc *domain.MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, []string{"weight_kg"}, mc.Columns)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRemap_IgnoresOtherForms(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", visitSource)
	dict := writeSource(t, dir, "dict.csv", dictionaryCSV(
		[3]string{"age_yrs", "form_3", "Age"},
		[3]string{"weight_kg", "form_2", "Weight"},
	))

	out, err := Remap(context.Background(), RemapRequest{
		Acronym: "aps", SourcePath: src, DictionaryPath: dict, FormID: "form_3",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"record_id", "age_yrs"}, out.Columns)
}

func TestRemap_WritesBOMPrefixedCSV(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", visitSource)
	dict := writeSource(t, dir, "dict.csv", dictionaryCSV([3]string{"age_yrs", "form_1", "Age"}))
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(out, []byte("old"), 0o644))

	_, err := Remap(context.Background(), RemapRequest{
		Acronym: "ms", SourcePath: src, DictionaryPath: dict, OutputPath: out,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffrecord_id,age_yrs\n0,34\n1,51\n2,27\n", string(data))
}

func TestRemap_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", visitSource)
	dict := writeSource(t, dir, "dict.csv", dictionaryCSV(
		[3]string{"age_yrs", "form_1", "Age"},
		[3]string{"full_name", "form_1", "Name"},
	))
	req := RemapRequest{Acronym: "aps", SourcePath: src, DictionaryPath: dict}

	first, err := Remap(context.Background(), req)
	require.NoError(t, err)
	second, err := Remap(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type captureDest struct {
	name  string
	table *etl.Table
}

func (c *captureDest) Write(_ context.Context, name string, t *etl.Table) (int, error) {
	c.name, c.table = name, t
	return t.NumRows(), nil
}

func TestRemapWithResult_Exports(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", visitSource)
	dict := writeSource(t, dir, "dict.csv", dictionaryCSV([3]string{"age_yrs", "form_1", "Age"}))

	capture := &captureDest{}
	table, res, err := RemapWithResult(context.Background(), RemapRequest{
		Acronym: "ms", SourcePath: src, DictionaryPath: dict,
		Exports: []etl.Target{{Dest: capture, Name: "src_redcap_processed"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsRead)
	assert.Equal(t, 3, res.RowsWritten)
	assert.Equal(t, "src_redcap_processed", capture.name)
	assert.Equal(t, table, capture.table)
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "APS_visit1_headers.txt", HeaderListFileName("APS_visit1"))
	assert.Equal(t, "APS_visit1_redcap_datadictionary_template.csv", TemplateFileName("APS_visit1"))
	assert.Equal(t, "APS_visit1_redcap_processed.csv", ProcessedFileName("APS_visit1"))
}
