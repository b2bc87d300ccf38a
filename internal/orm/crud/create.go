package crud

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/record"
	"github.com/conduit-lang/breeze/internal/orm/transaction"
)

// Create builds an instance from data and saves it
func (m *Model) Create(ctx context.Context, data map[string]interface{}) (*Instance, error) {
	inst, err := m.Build(data)
	if err != nil {
		return nil, err
	}
	if err := inst.Save(ctx); err != nil {
		return nil, err
	}
	return inst, nil
}

// Save inserts a new instance or updates the changed properties of a saved one.
// A database-assigned key is read back into the instance after insert.
func (i *Instance) Save(ctx context.Context) error {
	if i.persisted {
		return i.update(ctx)
	}

	m := i.model
	if err := m.prepareInsert(i); err != nil {
		return err
	}

	if err := m.insert(ctx, m.conn(ctx), i); err != nil {
		return m.fail(OperationCreate, err)
	}

	i.persisted = true
	i.changed = make(map[string]bool)
	return nil
}

// insert runs the INSERT for one instance and stores the generated key
func (m *Model) insert(ctx context.Context, conn transaction.Conn, inst *Instance) error {
	var columns, placeholders []string
	var args []interface{}
	for _, col := range m.table.Columns {
		if col.Identity {
			continue
		}
		v, ok := inst.values[col.Property]
		if !ok {
			continue
		}
		columns = append(columns, m.quote(col.Name))
		args = append(args, v)
		placeholders = append(placeholders, m.dialect.Placeholder(len(args)))
	}

	identity := m.table.IdentityColumn()
	table := m.quote(m.table.Name)

	var query strings.Builder
	fmt.Fprintf(&query, "INSERT INTO %s", table)
	if len(columns) > 0 {
		fmt.Fprintf(&query, " (%s)", strings.Join(columns, ", "))
	}
	if identity != nil && m.dialect.KeyRetrieval() == dialect.OutputClause {
		fmt.Fprintf(&query, " OUTPUT INSERTED.%s", m.quote(identity.Name))
	}
	switch {
	case len(columns) > 0:
		fmt.Fprintf(&query, " VALUES (%s)", strings.Join(placeholders, ", "))
	case m.dialect.Name() == "mysql":
		query.WriteString(" () VALUES ()")
	default:
		query.WriteString(" DEFAULT VALUES")
	}
	if identity != nil && m.dialect.KeyRetrieval() == dialect.ReturningClause {
		fmt.Fprintf(&query, " RETURNING %s", m.quote(identity.Name))
	}

	if identity == nil {
		_, err := conn.ExecContext(ctx, query.String(), args...)
		return err
	}

	var generated interface{}
	switch m.dialect.KeyRetrieval() {
	case dialect.LastInsertID:
		res, err := conn.ExecContext(ctx, query.String(), args...)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read generated key: %w", err)
		}
		generated = id
	default:
		if err := conn.QueryRowContext(ctx, query.String(), args...).Scan(&generated); err != nil {
			return err
		}
	}

	key, err := record.Normalize(identity.Type, generated)
	if err != nil {
		return fmt.Errorf("failed to read generated key: %w", err)
	}
	inst.values[identity.Property] = key
	return nil
}
