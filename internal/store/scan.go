package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
)

// scanRows scans every row into a record keyed by the table's field names
func scanRows(rows *sql.Rows, table *Table) ([]jsonapi.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fields := make([]string, len(columns))
	for i, col := range columns {
		fields[i] = table.fieldFor(col)
	}

	var results []jsonapi.Record
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(jsonapi.Record, len(columns))
		for i, field := range fields {
			record[field] = normalize(values[i])
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// normalize turns driver values into JSON-friendly ones
func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return val
	}
}

// keyOf renders a key value for grouping
func keyOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
