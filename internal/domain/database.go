package domain

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// Valid reports whether d is one of the supported drivers.
func (d DatabaseDriver) Valid() bool {
	switch d {
	case DatabaseDriverMySQL, DatabaseDriverPostgres, DatabaseDriverMongoDB, DatabaseDriverSQLite:
		return true
	}
	return false
}

// ExportTarget is a database that processed tables are copied into after the
// CSV output is written. A <password> placeholder in DSN is filled from the
// secret store entry named by Secret.
type ExportTarget struct {
	Driver   DatabaseDriver `yaml:"driver" json:"driver"`
	DSN      string         `yaml:"dsn" json:"dsn"`           // file path for sqlite, URI for mongodb
	Database string         `yaml:"database" json:"database"` // mongodb database name; optional
	Secret   string         `yaml:"secret" json:"secret,omitempty"`
}
