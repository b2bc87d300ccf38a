package crud

import (
	"context"
	"fmt"
	"strings"
)

// update writes the changed properties of a saved instance
func (i *Instance) update(ctx context.Context) error {
	m := i.model
	if len(i.changed) == 0 {
		return nil
	}

	var sets []string
	var args []interface{}
	for _, col := range m.table.Columns {
		if col.PrimaryKey || !i.changed[col.Property] {
			continue
		}
		args = append(args, i.values[col.Property])
		sets = append(sets, fmt.Sprintf("%s = %s", m.quote(col.Name), m.dialect.Placeholder(len(args))))
	}
	if len(sets) == 0 {
		i.changed = make(map[string]bool)
		return nil
	}

	where, args, err := i.keyPredicate(args)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		m.quote(m.table.Name),
		strings.Join(sets, ", "),
		where,
	)
	if _, err := m.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return m.fail(OperationUpdate, err)
	}

	i.changed = make(map[string]bool)
	return nil
}

// Destroy deletes a saved instance by its key
func (i *Instance) Destroy(ctx context.Context) error {
	m := i.model
	if !i.persisted {
		return fmt.Errorf("destroy %s: %w", m.Name(), ErrNotPersisted)
	}

	where, args, err := i.keyPredicate(nil)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", m.quote(m.table.Name), where)
	res, err := m.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return m.fail(OperationDelete, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("destroy %s: %w", m.Name(), ErrNotFound)
	}

	i.persisted = false
	return nil
}

// keyPredicate appends the key values to args and returns the matching WHERE condition
func (i *Instance) keyPredicate(args []interface{}) (string, []interface{}, error) {
	m := i.model
	var conds []string
	for _, k := range m.entity.KeyProperties() {
		v := i.values[k.Name]
		if v == nil {
			return "", nil, fmt.Errorf("%s.%s: %w", m.Name(), k.Name, ErrNotPersisted)
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = %s", m.quote(k.ColumnName), m.dialect.Placeholder(len(args))))
	}
	return strings.Join(conds, " AND "), args, nil
}
