package crud

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/conduit-lang/breeze/internal/orm/record"
)

// FindOptions selects and shapes the result of Find
type FindOptions struct {
	// Where matches properties by equality. A nil value matches NULL and a
	// slice value matches any of its elements.
	Where map[string]interface{}
	// Include names navigations to eager load; nested paths use dots.
	Include []string
	// OrderBy lists property names; a leading "-" sorts descending.
	OrderBy []string
	Limit   int
	Offset  int
}

// Find returns the instances matching opts
func (m *Model) Find(ctx context.Context, opts FindOptions) ([]*Instance, error) {
	where, args, err := m.whereClause(opts.Where)
	if err != nil {
		return nil, err
	}
	order, err := m.orderClause(opts.OrderBy)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s%s",
		m.selectList(),
		m.quote(m.table.Name),
		where,
		order,
		m.dialect.LimitOffset(opts.Limit, opts.Offset, order != ""),
	)

	conn := m.conn(ctx)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, m.fail(OperationRead, err)
	}
	records, err := record.ScanRows(rows, m.table)
	if err != nil {
		return nil, m.fail(OperationRead, err)
	}

	if len(opts.Include) > 0 {
		if err := m.loader.With(conn).EagerLoad(ctx, m.entity, records, opts.Include); err != nil {
			return nil, m.fail(OperationRead, err)
		}
	}

	instances := make([]*Instance, len(records))
	for n, rec := range records {
		inst, err := m.instanceFromRecord(rec)
		if err != nil {
			return nil, err
		}
		instances[n] = inst
	}
	return instances, nil
}

// FindOne returns the first instance matching opts, or ErrNotFound
func (m *Model) FindOne(ctx context.Context, opts FindOptions) (*Instance, error) {
	opts.Limit = 1
	found, err := m.Find(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", m.Name(), ErrNotFound)
	}
	return found[0], nil
}

// FindByKey returns the instance with the given key. A composite key is passed
// as a map of key property names to values.
func (m *Model) FindByKey(ctx context.Context, key interface{}, include ...string) (*Instance, error) {
	where := make(map[string]interface{})
	keys := m.entity.KeyProperties()
	if composite, ok := key.(map[string]interface{}); ok {
		for _, k := range keys {
			v, ok := composite[k.Name]
			if !ok {
				return nil, fmt.Errorf("%s: missing key property %s", m.Name(), k.Name)
			}
			where[k.Name] = v
		}
	} else {
		if len(keys) != 1 {
			return nil, fmt.Errorf("%s has a composite key; pass a map of key values", m.Name())
		}
		if key == nil {
			return nil, fmt.Errorf("%s: %w", m.Name(), ErrNotFound)
		}
		where[keys[0].Name] = key
	}
	return m.FindOne(ctx, FindOptions{Where: where, Include: include})
}

// Count returns the number of rows matching where
func (m *Model) Count(ctx context.Context, where map[string]interface{}) (int64, error) {
	clause, args, err := m.whereClause(where)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", m.quote(m.table.Name), clause)
	var n int64
	if err := m.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, m.fail(OperationRead, err)
	}
	return n, nil
}

// whereClause renders equality conditions in property-name order
func (m *Model) whereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	names := make([]string, 0, len(where))
	for name := range where {
		names = append(names, name)
	}
	sort.Strings(names)

	var conds []string
	var args []interface{}
	for _, name := range names {
		prop, ok := m.entity.Property(name)
		if !ok {
			return "", nil, m.unknownField(name)
		}
		column := m.quote(prop.ColumnName)
		value := where[name]

		if value == nil {
			conds = append(conds, column+" IS NULL")
			continue
		}

		if list, isList := asList(value); isList {
			if len(list) == 0 {
				conds = append(conds, "1 = 0")
				continue
			}
			placeholders := make([]string, len(list))
			for n, item := range list {
				v, msg := coerce(prop, item)
				if msg != "" {
					return "", nil, &ValidationError{Model: m.Name(), Errors: []FieldError{{Field: name, Message: msg}}}
				}
				args = append(args, v)
				placeholders[n] = m.dialect.Placeholder(len(args))
			}
			conds = append(conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
			continue
		}

		v, msg := coerce(prop, value)
		if msg != "" {
			return "", nil, &ValidationError{Model: m.Name(), Errors: []FieldError{{Field: name, Message: msg}}}
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = %s", column, m.dialect.Placeholder(len(args))))
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (m *Model) orderClause(orderBy []string) (string, error) {
	if len(orderBy) == 0 {
		return "", nil
	}
	parts := make([]string, len(orderBy))
	for n, name := range orderBy {
		dir := "ASC"
		if strings.HasPrefix(name, "-") {
			name, dir = name[1:], "DESC"
		}
		prop, ok := m.entity.Property(name)
		if !ok {
			return "", m.unknownField(name)
		}
		parts[n] = m.quote(prop.ColumnName) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// asList expands slice values other than []byte
func asList(value interface{}) ([]interface{}, bool) {
	if _, isBytes := value.([]byte); isBytes {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for n := range out {
		out[n] = rv.Index(n).Interface()
	}
	return out, true
}
