package relationships

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/record"
)

// maxInParams keeps IN lists below the parameter limits of every dialect (SQL Server allows 2100)
const maxInParams = 1000

// selectIn fetches every row of table whose column matches one of values
func (l *Loader) selectIn(
	ctx context.Context,
	table *codegen.TableDef,
	column string,
	values []interface{},
) ([]record.Record, error) {
	results := []record.Record{}
	if len(values) == 0 {
		return results, nil
	}

	columns := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = l.dialect.QuoteIdentifier(c.Name)
	}
	prefix := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (",
		strings.Join(columns, ", "),
		l.dialect.QuoteIdentifier(table.Name),
		l.dialect.QuoteIdentifier(column),
	)

	for start := 0; start < len(values); start += maxInParams {
		end := start + maxInParams
		if end > len(values) {
			end = len(values)
		}
		chunk := values[start:end]

		placeholders := make([]string, len(chunk))
		for i := range chunk {
			placeholders[i] = l.dialect.Placeholder(i + 1)
		}
		query := prefix + strings.Join(placeholders, ", ") + ")"

		rows, err := l.db.QueryContext(ctx, query, chunk...)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", table.Name, err)
		}
		batch, err := record.ScanRows(rows, table)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table.Name, err)
		}
		results = append(results, batch...)
	}

	return results, nil
}

// collectKeys returns the distinct non-nil values of field, in first-seen order
func collectKeys(records []record.Record, field string) []interface{} {
	seen := make(map[interface{}]bool, len(records))
	var keys []interface{}
	for _, rec := range records {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		k := keyOf(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, v)
	}
	return keys
}

// keyOf turns a scanned value into a comparable map key
func keyOf(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int16:
		return int64(val)
	case int8:
		return int64(val)
	default:
		return v
	}
}
