package crud

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/conduit-lang/breeze/internal/orm/record"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// Build creates an unsaved instance. Only client-side checks run: unknown
// attributes, value types, max lengths and database-generated keys.
func (m *Model) Build(data map[string]interface{}) (*Instance, error) {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(record.Record, len(data))
	var errs []FieldError
	for _, name := range names {
		prop, ok := m.entity.Property(name)
		if !ok {
			msg := "unknown attribute"
			if _, isNav := m.entity.Navigation(name); isNav {
				msg = "navigation properties cannot be assigned"
			}
			errs = append(errs, FieldError{Field: name, Message: msg})
			continue
		}
		if prop.IsKey && m.entity.HasIdentityKey() && data[name] != nil {
			errs = append(errs, FieldError{Field: name, Message: "is assigned by the database"})
			continue
		}
		v, msg := coerce(prop, data[name])
		if msg != "" {
			errs = append(errs, FieldError{Field: name, Message: msg})
			continue
		}
		values[name] = v
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Model: m.Name(), Errors: errs}
	}

	inst := newInstance(m, values, false)
	for name := range values {
		inst.changed[name] = true
	}
	return inst, nil
}

// prepareInsert fills client-generated keys and checks required properties
func (m *Model) prepareInsert(inst *Instance) error {
	if m.entity.KeyGeneration == schema.KeyClientGenerated {
		for _, k := range m.entity.KeyProperties() {
			if inst.values[k.Name] == nil && k.Type.Base == schema.TypeGUID {
				inst.values[k.Name] = uuid.New().String()
				inst.changed[k.Name] = true
			}
		}
	}

	var errs []FieldError
	for _, p := range m.entity.Properties {
		if p.Nullable || p.Default != nil {
			continue
		}
		if p.IsKey && m.entity.HasIdentityKey() {
			continue
		}
		if inst.values[p.Name] == nil {
			errs = append(errs, FieldError{Field: p.Name, Message: "cannot be null"})
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Model: m.Name(), Errors: errs}
	}
	return nil
}

// coerce converts a caller value to the canonical value of the property type.
// It returns a non-empty message when the value is not acceptable.
func coerce(prop *schema.DataProperty, value interface{}) (interface{}, string) {
	if value == nil {
		return nil, ""
	}

	spec := prop.Type
	switch spec.Base {
	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Sprintf("expected string, got %T", value)
		}
		if spec.MaxLength != nil && *spec.MaxLength > 0 && utf8.RuneCountInString(s) > *spec.MaxLength {
			return nil, fmt.Sprintf("exceeds max length %d", *spec.MaxLength)
		}
		return s, ""

	case schema.TypeInteger:
		if f, ok := value.(float64); ok && f != math.Trunc(f) {
			return nil, fmt.Sprintf("expected integer, got %v", f)
		}
		if n, ok := value.(json.Number); ok {
			value = n.String()
		}
		v, err := record.Normalize(spec, value)
		if err != nil {
			return nil, fmt.Sprintf("expected integer: %v", err)
		}
		if !fitsBits(v.(int64), spec.Bits) {
			return nil, fmt.Sprintf("%d is out of range for a %d-bit integer", v, spec.Bits)
		}
		return v, ""

	case schema.TypeDecimal:
		if n, ok := value.(json.Number); ok {
			value = n.String()
		}
		v, err := record.Normalize(spec, value)
		if err != nil {
			return nil, fmt.Sprintf("expected decimal: %v", err)
		}
		if _, err := strconv.ParseFloat(v.(string), 64); err != nil {
			return nil, fmt.Sprintf("expected decimal, got %q", v)
		}
		return v, ""

	case schema.TypeBinary:
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Sprintf("expected []byte, got %T", value)
		}
		if spec.MaxLength != nil && *spec.MaxLength > 0 && len(b) > *spec.MaxLength {
			return nil, fmt.Sprintf("exceeds max length %d", *spec.MaxLength)
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, ""

	default:
		if n, ok := value.(json.Number); ok {
			value = n.String()
		}
		v, err := record.Normalize(spec, value)
		if err != nil {
			return nil, fmt.Sprintf("invalid %s value: %v", spec.Base, err)
		}
		return v, ""
	}
}

func fitsBits(n int64, bits int) bool {
	switch bits {
	case 8:
		return n >= math.MinInt8 && n <= math.MaxInt8
	case 16:
		return n >= math.MinInt16 && n <= math.MaxInt16
	case 64:
		return true
	default:
		return n >= math.MinInt32 && n <= math.MaxInt32
	}
}
