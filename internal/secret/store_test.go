package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[string]string

func (m mapStore) Get(key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func TestEnvStore(t *testing.T) {
	t.Setenv("REDCAPPREP_SECRET_STUDY_DB", "s3cret")
	store, err := New("env")
	require.NoError(t, err)

	v, err := store.Get("study-db")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", string(v))

	v, err = store.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("vault")
	assert.Error(t, err)
}

func TestExpandDSN(t *testing.T) {
	store := mapStore{"pg": "p@ss"}

	got, err := ExpandDSN(store, "pg", "postgres://redcap:<password>@db:5432/study")
	require.NoError(t, err)
	assert.Equal(t, "postgres://redcap:p@ss@db:5432/study", got)

	got, err = ExpandDSN(store, "", "file.db")
	require.NoError(t, err)
	assert.Equal(t, "file.db", got)

	_, err = ExpandDSN(store, "absent", "x:<password>")
	assert.Error(t, err)
}
