// Package dbclient copies processed tables into external databases.
package dbclient

import (
	"context"
	"fmt"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
)

// Exporter is an etl.Destination backed by a database connection.
// Write replaces the named table or collection with the given table.
type Exporter interface {
	etl.Destination

	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Close closes the connection.
	Close() error
}

// NewExporter creates an Exporter for target.
func NewExporter(target domain.ExportTarget) (Exporter, error) {
	if target.DSN == "" {
		return nil, domain.NewParse("export", "", fmt.Sprintf("%s: dsn is required", target.Driver))
	}
	switch target.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLExporter(sqliteDialect, sqliteDSN(target.DSN))
	case domain.DatabaseDriverMySQL:
		return newSQLExporter(mysqlDialect, target.DSN)
	case domain.DatabaseDriverPostgres:
		return newSQLExporter(postgresDialect, target.DSN)
	case domain.DatabaseDriverMongoDB:
		return newMongoExporter(target)
	default:
		return nil, domain.NewUnsupported("export driver", string(target.Driver))
	}
}
