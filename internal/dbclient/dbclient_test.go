package dbclient

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
)

func processedTable() *etl.Table {
	t := etl.NewTable([]string{"record_id", "age", `odd "name"`})
	t.Rows = [][]string{{"0", "34", "a"}, {"1", "", "b"}}
	return t
}

func TestSQLiteExporter_WriteReplacesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.db")
	exp, err := NewExporter(domain.ExportTarget{Driver: domain.DatabaseDriverSQLite, DSN: path})
	require.NoError(t, err)
	defer exp.Close()
	ctx := context.Background()
	require.NoError(t, exp.TestConnection(ctx))

	n, err := exp.Write(ctx, "APS_visit1_redcap_processed", processedTable())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	smaller := etl.NewTable([]string{"record_id"})
	smaller.Rows = [][]string{{"7"}}
	n, err = exp.Write(ctx, "APS_visit1_redcap_processed", smaller)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT * FROM "APS_visit1_redcap_processed"`)
	require.NoError(t, err)
	defer rows.Close()
	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"record_id"}, cols)

	var got []string
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		got = append(got, v)
	}
	assert.Equal(t, []string{"7"}, got)
}

func TestSQLiteExporter_KeepsValuesAsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.db")
	exp, err := NewExporter(domain.ExportTarget{Driver: domain.DatabaseDriverSQLite, DSN: path})
	require.NoError(t, err)
	defer exp.Close()

	_, err = exp.Write(context.Background(), "t", processedTable())
	require.NoError(t, err)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var age, name string
	require.NoError(t, db.QueryRow(`SELECT "age", "odd ""name""" FROM "t" WHERE "record_id" = '1'`).Scan(&age, &name))
	assert.Equal(t, "", age)
	assert.Equal(t, "b", name)
}

func TestNewExporter_Errors(t *testing.T) {
	_, err := NewExporter(domain.ExportTarget{Driver: "oracle", DSN: "x"})
	assert.True(t, errors.Is(err, domain.ErrUnsupported))

	_, err = NewExporter(domain.ExportTarget{Driver: domain.DatabaseDriverMySQL})
	assert.Error(t, err)
}

func TestDialectStatements(t *testing.T) {
	cols := []string{"record_id", "a`b"}

	my := &sqlExporter{dialect: mysqlDialect}
	assert.Equal(t, "CREATE TABLE `t` (`record_id` TEXT, `a``b` TEXT)", my.createStatement("`t`", cols))
	assert.Equal(t, "INSERT INTO `t` (`record_id`, `a``b`) VALUES (?, ?)", my.insertStatement("`t`", cols))

	pg := &sqlExporter{dialect: postgresDialect}
	assert.Equal(t, `INSERT INTO "t" ("record_id", "a`+"`"+`b") VALUES ($1, $2)`, pg.insertStatement(`"t"`, cols))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "/tmp/x.db?_journal_mode=WAL&_busy_timeout=5000", sqliteDSN("/tmp/x.db"))
	assert.Equal(t, "file:x.db?mode=rwc", sqliteDSN("file:x.db?mode=rwc"))
}

func TestDatabaseFromURI(t *testing.T) {
	tests := map[string]string{
		"mongodb://localhost:27017":                            "test",
		"mongodb://localhost:27017/study":                      "study",
		"mongodb+srv://u:p@cluster.example.net/redcap?w=major": "redcap",
		"mongodb://u:p@host/?authSource=admin":                 "test",
	}
	for uri, want := range tests {
		assert.Equal(t, want, databaseFromURI(uri), uri)
	}
}

func TestDocuments_PreserveColumnOrder(t *testing.T) {
	docs := Documents(processedTable())
	require.Len(t, docs, 2)
	first := docs[0].(bson.D)
	assert.Equal(t, bson.D{
		{Key: "record_id", Value: "0"},
		{Key: "age", Value: "34"},
		{Key: `odd "name"`, Value: "a"},
	}, first)
}
