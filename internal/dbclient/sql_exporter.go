package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"redcapprep/internal/etl"
)

// dialect holds the per-driver SQL differences.
type dialect struct {
	driverName  string
	quote       func(ident string) string
	placeholder func(n int) string // n is 1-based
}

// sqlExporter is the shared implementation for MySQL, Postgres, and SQLite.
type sqlExporter struct {
	dialect dialect
	db      *sql.DB
}

func newSQLExporter(d dialect, dsn string) (*sqlExporter, error) {
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driverName, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlExporter{dialect: d, db: db}, nil
}

func (e *sqlExporter) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.db.PingContext(ctx)
}

// Write drops and recreates table name with one TEXT column per table
// column, then inserts every row in a single transaction.
func (e *sqlExporter) Write(ctx context.Context, name string, t *etl.Table) (int, error) {
	if len(t.Columns) == 0 {
		return 0, fmt.Errorf("export %s: table has no columns", name)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	table := e.dialect.quote(name)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return 0, fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, e.createStatement(table, t.Columns)); err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, e.insertStatement(table, t.Columns))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for i, row := range t.Rows {
		for j := range args {
			if j < len(row) {
				args[j] = row[j]
			} else {
				args[j] = ""
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return t.NumRows(), nil
}

func (e *sqlExporter) createStatement(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = e.dialect.quote(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

func (e *sqlExporter) insertStatement(table string, columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = e.dialect.quote(c)
		marks[i] = e.dialect.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func (e *sqlExporter) Close() error {
	return e.db.Close()
}

func questionMark(int) string { return "?" }

// doubleQuote quotes an identifier the ANSI way.
func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
