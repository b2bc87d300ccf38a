// Package record scans query results into property-keyed maps and normalizes driver values.
package record

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// Record is one row keyed by property name
type Record map[string]interface{}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Rows is the subset of *sql.Rows used for scanning
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// ScanAll reads every row, mapping columns of table to property names.
// Columns that belong to no property keep their column name.
func ScanAll(rows Rows, table *codegen.TableDef) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	defs := make([]*codegen.ColumnDef, len(columns))
	keys := make([]string, len(columns))
	for i, name := range columns {
		keys[i] = name
		if c, ok := table.Column(name); ok {
			defs[i] = c
			if c.Property != "" {
				keys[i] = c.Property
			}
		}
	}

	var results []Record
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(Record, len(columns))
		for i := range columns {
			v := values[i]
			if defs[i] != nil {
				v, err = Normalize(defs[i].Type, v)
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", columns[i], err)
				}
			} else if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec[keys[i]] = v
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ScanRows is ScanAll for *sql.Rows; it closes rows
func ScanRows(rows *sql.Rows, table *codegen.TableDef) ([]Record, error) {
	defer rows.Close()
	return ScanAll(rows, table)
}

// Normalize converts a driver value to the canonical Go value of the abstract type:
// string for string, decimal and guid; int64; float64; bool; time.Time; []byte.
func Normalize(spec schema.TypeSpec, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	switch spec.Base {
	case schema.TypeString:
		return asString(v), nil

	case schema.TypeDecimal:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		}
		return asString(v), nil

	case schema.TypeGUID:
		return NormalizeGUID(v)

	case schema.TypeInteger:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		case int:
			return int64(n), nil
		case float64:
			return int64(n), nil
		case bool:
			if n {
				return int64(1), nil
			}
			return int64(0), nil
		}
		return strconv.ParseInt(asString(v), 10, 64)

	case schema.TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return strconv.ParseFloat(asString(v), 64)

	case schema.TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		}
		return strconv.ParseBool(asString(v))

	case schema.TypeDateTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		}
		return parseTime(asString(v))

	case schema.TypeBinary:
		if b, ok := v.([]byte); ok {
			out := make([]byte, len(b))
			copy(out, b)
			return out, nil
		}
		return v, nil
	}

	return v, nil
}

// NormalizeGUID returns the lower-case canonical text form of a GUID value
func NormalizeGUID(v interface{}) (interface{}, error) {
	switch g := v.(type) {
	case uuid.UUID:
		return g.String(), nil
	case [16]byte:
		return uuid.UUID(g).String(), nil
	case mssql.UniqueIdentifier:
		return strings.ToLower(g.String()), nil
	case []byte:
		if len(g) == 16 {
			// SQL Server sends UNIQUEIDENTIFIER in its mixed-endian layout.
			var id mssql.UniqueIdentifier
			if err := id.Scan(g); err != nil {
				return nil, err
			}
			return strings.ToLower(id.String()), nil
		}
		return parseGUID(string(g))
	case string:
		return parseGUID(g)
	}
	return nil, fmt.Errorf("unsupported guid value %T", v)
}

func parseGUID(s string) (interface{}, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid guid %q: %w", s, err)
	}
	return id.String(), nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}
