package etl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redcapprep/internal/domain"
)

func sampleTable() *Table {
	return &Table{
		Columns: []string{"Age", "Name", "Site"},
		Rows: [][]string{
			{"34", "ann", "north"},
			{"51", "bo", "south"},
			{"27", "cy", "east"},
		},
	}
}

func TestIndexTransform_AppendsPositions(t *testing.T) {
	in := sampleTable()
	out, err := (&IndexTransform{Columns: []string{"aps_index", "record_id"}}).Transform(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"Age", "Name", "Site", "aps_index", "record_id"}, out.Columns)
	idx, _ := out.Column("aps_index")
	rid, _ := out.Column("record_id")
	assert.Equal(t, []string{"0", "1", "2"}, idx)
	assert.Equal(t, []string{"0", "1", "2"}, rid)

	// input untouched
	assert.Len(t, in.Columns, 3)
	assert.Len(t, in.Rows[0], 3)
}

func TestIndexTransform_OverwritesExistingColumns(t *testing.T) {
	in := &Table{
		Columns: []string{"record_id", "aps_index", "Age"},
		Rows:    [][]string{{"900", "x", "34"}, {"901", "y", "51"}},
	}
	out, err := (&IndexTransform{Columns: []string{"aps_index", "record_id"}}).Transform(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"record_id", "aps_index", "Age"}, out.Columns)
	assert.Equal(t, [][]string{{"0", "0", "34"}, {"1", "1", "51"}}, out.Rows)
	assert.Equal(t, "900", in.Rows[0][0])
}

func TestRenameTransform_IsSimultaneous(t *testing.T) {
	out, err := (&RenameTransform{Mapping: map[string]string{
		"Age":  "Name",
		"Name": "full_name",
	}}).Transform(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "full_name", "Site"}, out.Columns)
}

func TestSelectTransform_ReordersAndDrops(t *testing.T) {
	out, err := (&SelectTransform{Fields: []string{"Site", "Age"}}).Transform(sampleTable())
	require.NoError(t, err)

	assert.Equal(t, []string{"Site", "Age"}, out.Columns)
	assert.Equal(t, [][]string{{"north", "34"}, {"south", "51"}, {"east", "27"}}, out.Rows)
}

func TestSelectTransform_MissingColumns(t *testing.T) {
	_, err := (&SelectTransform{Fields: []string{"Age", "weight", "height"}}).Transform(sampleTable())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingColumn))

	var mc *domain.MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, []string{"weight", "height"}, mc.Columns)
}

func TestApplyTransformers_StopsOnError(t *testing.T) {
	calls := 0
	counter := TransformerFunc(func(t *Table) (*Table, error) {
		calls++
		return t, nil
	})
	_, err := ApplyTransformers(sampleTable(), []Transformer{
		counter,
		&SelectTransform{Fields: []string{"nope"}},
		counter,
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestHead(t *testing.T) {
	assert.Len(t, Head(sampleTable(), 2).Rows, 2)
	assert.Len(t, Head(sampleTable(), 10).Rows, 3)
}
