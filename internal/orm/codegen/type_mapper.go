// Package codegen turns a resolved schema into table definitions and DDL statements.
package codegen

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// Fallback precision and scale for decimals declared without them
const (
	DefaultDecimalPrecision = 18
	DefaultDecimalScale     = 4
)

// TypeMapper maps abstract data types to the column types of one dialect
type TypeMapper struct {
	dialect dialect.Dialect
	types   dialect.TypeNames
}

// NewTypeMapper creates a TypeMapper for the given dialect
func NewTypeMapper(d dialect.Dialect) *TypeMapper {
	return &TypeMapper{
		dialect: d,
		types:   d.Types(),
	}
}

// MapType converts a TypeSpec to a concrete column type
func (tm *TypeMapper) MapType(spec schema.TypeSpec) (string, error) {
	t := tm.types

	switch spec.Base {
	case schema.TypeString:
		if spec.MaxLength != nil && *spec.MaxLength > 0 {
			if t.MaxVarChar > 0 && *spec.MaxLength > t.MaxVarChar {
				return t.Text, nil
			}
			return fmt.Sprintf(t.VarChar, *spec.MaxLength), nil
		}
		return t.Text, nil

	case schema.TypeInteger:
		switch spec.Bits {
		case 8:
			return t.Int8, nil
		case 16:
			return t.Int16, nil
		case 64:
			return t.Int64, nil
		default:
			return t.Int32, nil
		}

	case schema.TypeDecimal:
		precision, scale := DefaultDecimalPrecision, DefaultDecimalScale
		if spec.Precision != nil {
			precision = *spec.Precision
			scale = 0
		}
		if spec.Scale != nil {
			scale = *spec.Scale
		}
		if scale > precision {
			return "", fmt.Errorf("decimal scale %d exceeds precision %d", scale, precision)
		}
		return fmt.Sprintf(t.Decimal, precision, scale), nil

	case schema.TypeFloat:
		if spec.Bits == 32 {
			return t.Float32, nil
		}
		return t.Float64, nil

	case schema.TypeDateTime:
		if spec.WithTimeZone {
			return t.DateTimeTZ, nil
		}
		return t.DateTime, nil

	case schema.TypeBoolean:
		return t.Boolean, nil

	case schema.TypeBinary:
		if spec.MaxLength != nil && *spec.MaxLength > 0 && t.VarBinary != "" {
			return fmt.Sprintf(t.VarBinary, *spec.MaxLength), nil
		}
		return t.Binary, nil

	case schema.TypeGUID:
		return t.GUID, nil

	default:
		return "", fmt.Errorf("unsupported type: %s", spec.Base)
	}
}

// MapKeyType maps a type used in a primary or foreign key.
// Unbounded strings get the dialect's indexable text type.
func (tm *TypeMapper) MapKeyType(spec schema.TypeSpec) (string, error) {
	mapped, err := tm.MapType(spec)
	if err != nil {
		return "", err
	}
	if spec.Base == schema.TypeString && mapped == tm.types.Text {
		return tm.types.KeyText, nil
	}
	return mapped, nil
}

// MapNullability returns the NULL/NOT NULL constraint
func (tm *TypeMapper) MapNullability(nullable bool) string {
	if nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// MapDefault renders a DEFAULT value for a column of the given type, or "" for none
func (tm *TypeMapper) MapDefault(spec schema.TypeSpec, sqlType string, value interface{}) (string, error) {
	if value == nil {
		return "", nil
	}
	// MySQL rejects literal defaults on TEXT and BLOB columns.
	if tm.dialect.Name() == "mysql" && (sqlType == tm.types.Text || sqlType == tm.types.Binary) {
		return "", nil
	}

	switch spec.Base {
	case schema.TypeString:
		str, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected string default, got %T", value)
		}
		return quoteLiteral(str), nil

	case schema.TypeInteger:
		n, err := toInt64(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil

	case schema.TypeDecimal, schema.TypeFloat:
		f, err := toFloat64(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil

	case schema.TypeBoolean:
		switch v := value.(type) {
		case bool:
			return tm.dialect.FormatBool(v), nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return "", fmt.Errorf("invalid boolean default %q", v)
			}
			return tm.dialect.FormatBool(b), nil
		default:
			return "", fmt.Errorf("expected bool default, got %T", value)
		}

	case schema.TypeDateTime:
		str, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected string default for datetime, got %T", value)
		}
		if strings.EqualFold(str, "now()") || strings.EqualFold(str, "CURRENT_TIMESTAMP") {
			return "CURRENT_TIMESTAMP", nil
		}
		return quoteLiteral(str), nil

	case schema.TypeGUID:
		str, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected string default for guid, got %T", value)
		}
		id, err := uuid.Parse(str)
		if err != nil {
			return "", fmt.Errorf("invalid guid default %q: %w", str, err)
		}
		return quoteLiteral(id.String()), nil

	default:
		return "", fmt.Errorf("unsupported default value type: %s", spec.Base)
	}
}

// quoteLiteral escapes single quotes by doubling them
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected integer default, got %v", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("expected integer default, got %T", value)
	}
}

func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("expected numeric default, got %T", value)
	}
}
