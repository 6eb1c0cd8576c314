package redcap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGenerateTemplate_TextList(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", "\ufeffAge,Name,Visit Date\n34,ann,2023-01-01\n")
	dest := filepath.Join(dir, "headers.txt")

	res, err := GenerateTemplate(context.Background(), src, dest, TemplateOptions{})
	require.NoError(t, err)

	want := []string{"record_id", "Age", "Name", "Visit Date"}
	assert.Equal(t, ModeTextList, res.Mode)
	assert.Equal(t, want, res.Headers)
	assert.Nil(t, res.Dictionary)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "record_id\nAge\nName\nVisit Date\n", string(data))
}

func TestGenerateTemplate_SkeletonPinned(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", "Age,Name\n34,ann\n51,bo\n")
	dest := filepath.Join(dir, "template.csv")

	res, err := GenerateTemplate(context.Background(), src, dest, TemplateOptions{FormID: "form_4"})
	require.NoError(t, err)
	require.NotNil(t, res.Dictionary)

	dict := res.Dictionary
	assert.Equal(t, domain.DictionaryFields, dict.Columns)
	require.Len(t, dict.Rows, 3)

	labels, _ := dict.Column("Field Label")
	types, _ := dict.Column("Field Type")
	forms, _ := dict.Column("Form Name")
	assert.Equal(t, []string{"record_id", "Age", "Name"}, labels)
	assert.Equal(t, []string{"text", "text", "text"}, types)
	assert.Equal(t, []string{"form_1", "form_4", "form_4"}, forms)

	back, err := etl.ReadTable(dest, etl.CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, dict, back)

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "\r\n")
	assert.NotEqual(t, byte(0xEF), raw[0], "template must not carry a BOM")
}

func TestGenerateTemplate_SkeletonRowNumbered(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", "Age,Name\n34,ann\n")
	dest := filepath.Join(dir, "template.csv")

	res, err := GenerateTemplate(context.Background(), src, dest, TemplateOptions{
		FormID:  "form_4",
		Variant: VariantRowNumbered,
	})
	require.NoError(t, err)

	dict := res.Dictionary
	assert.Equal(t, "", dict.Columns[0])
	assert.Equal(t, domain.DictionaryFields, dict.Columns[1:])

	rowNums, _ := dict.Column("")
	forms, _ := dict.Column("Form Name")
	labels, _ := dict.Column("Field Label")
	assert.Equal(t, []string{"0", "1", "2"}, rowNums)
	assert.Equal(t, []string{"form_4", "form_4", "form_4"}, forms)
	assert.Equal(t, []string{"record_id", "Age", "Name"}, labels)
}

func TestGenerateTemplate_ModeInference(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", "Age,Name\n34,ann\n")

	inferred, err := GenerateTemplate(context.Background(), src, filepath.Join(dir, "a.csv"), TemplateOptions{FormID: "form_2"})
	require.NoError(t, err)
	explicit, err := GenerateTemplate(context.Background(), src, filepath.Join(dir, "b.csv"), TemplateOptions{
		FormID: "form_2",
		Mode:   ModeDictionarySkeleton,
	})
	require.NoError(t, err)
	assert.Equal(t, explicit, inferred)

	a, _ := os.ReadFile(filepath.Join(dir, "a.csv"))
	b, _ := os.ReadFile(filepath.Join(dir, "b.csv"))
	assert.Equal(t, string(b), string(a))

	txt, err := GenerateTemplate(context.Background(), src, filepath.Join(dir, "x.TXT"), TemplateOptions{})
	require.NoError(t, err)
	assert.Equal(t, ModeTextList, txt.Mode)

	// an explicit mode wins over the extension
	forced, err := GenerateTemplate(context.Background(), src, filepath.Join(dir, "list.csv"), TemplateOptions{Mode: ModeTextList})
	require.NoError(t, err)
	assert.Equal(t, ModeTextList, forced.Mode)
}

func TestGenerateTemplate_UnresolvableMode(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "src.csv", "Age\n1\n")
	dest := filepath.Join(dir, "x.dat")

	res, err := GenerateTemplate(context.Background(), src, dest, TemplateOptions{})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrUnresolvableMode))
	assert.True(t, errors.Is(err, domain.ErrUnsupported))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "nothing may be written")
}

func TestGenerateTemplate_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := GenerateTemplate(context.Background(), filepath.Join(dir, "nope.csv"), filepath.Join(dir, "o.txt"), TemplateOptions{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantPinned, v)

	v, err = ParseVariant("Row-Numbered")
	require.NoError(t, err)
	assert.Equal(t, VariantRowNumbered, v)

	_, err = ParseVariant("sideways")
	assert.True(t, errors.Is(err, domain.ErrUnsupported))
}

func TestBuildSkeleton_EmptyHeaders(t *testing.T) {
	sk := BuildSkeleton(nil, "form_2", VariantPinned)
	assert.Empty(t, sk.Rows)
	assert.Len(t, sk.Columns, 18)
}
