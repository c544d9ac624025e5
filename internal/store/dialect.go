package store

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect renders the SQL fragments that differ between databases
type Dialect interface {
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter
	Placeholder(n int) string
	// InList renders "column matches any of values", starting at placeholder n.
	// It returns the fragment and the bind arguments it consumes.
	InList(column string, n int, values []any) (string, []any)
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) InList(column string, n int, values []any) (string, []any) {
	// compare as text so uuid and integer keys match the text[] argument
	return fmt.Sprintf("%s::text = ANY($%d)", pq.QuoteIdentifier(column), n), []any{pq.Array(stringValues(values))}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) InList(column string, _ int, values []any) (string, []any) {
	marks := make([]string, len(values))
	for i := range values {
		marks[i] = "?"
	}
	return fmt.Sprintf("%s IN (%s)", pq.QuoteIdentifier(column), strings.Join(marks, ", ")), values
}

// Postgres is the dialect of the pgx and lib/pq drivers
var Postgres Dialect = postgresDialect{}

// SQLite is the dialect of the sqlite3 and sqlite drivers
var SQLite Dialect = sqliteDialect{}

// DialectFor returns the dialect of a database/sql driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// stringValues converts keys to strings so uuid and text columns compare alike
func stringValues(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = keyOf(v)
	}
	return out
}
