package dbclient

import (
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// DSN format: user:password@tcp(host:port)/dbname?charset=utf8mb4
var mysqlDialect = dialect{
	driverName: "mysql",
	quote: func(ident string) string {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	},
	placeholder: questionMark,
}
