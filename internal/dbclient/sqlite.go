package dbclient

import (
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	driverName:  "sqlite",
	quote:       doubleQuote,
	placeholder: questionMark,
}

// sqliteDSN opens the file in WAL mode with a busy timeout unless the DSN
// already carries parameters.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}
