package crud

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/breeze/internal/orm/codegen"
)

// maxBatchParams keeps one INSERT below the bind-parameter limit of every dialect
const maxBatchParams = 2000

// BulkCreate inserts every record with a multi-row INSERT inside one transaction
// and returns the instances in input order. Keys assigned by the database are not
// read back: identity key values stay nil on the returned instances.
func (m *Model) BulkCreate(ctx context.Context, data []map[string]interface{}) ([]*Instance, error) {
	instances := make([]*Instance, len(data))
	for n, d := range data {
		inst, err := m.Build(d)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		if err := m.prepareInsert(inst); err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		instances[n] = inst
	}
	if len(instances) == 0 {
		return instances, nil
	}

	columns := m.batchColumns(instances)

	err := m.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if len(columns) == 0 {
			for _, inst := range instances {
				if err := m.insert(ctx, m.conn(ctx), inst); err != nil {
					return err
				}
			}
			return nil
		}

		perStatement := maxBatchParams / len(columns)
		if perStatement < 1 {
			perStatement = 1
		}
		for start := 0; start < len(instances); start += perStatement {
			end := start + perStatement
			if end > len(instances) {
				end = len(instances)
			}
			query, args := m.batchInsert(columns, instances[start:end])
			if _, err := m.conn(ctx).ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, m.fail(OperationBulkCreate, err)
	}

	for _, inst := range instances {
		inst.persisted = true
		inst.changed = make(map[string]bool)
	}
	m.logger.Debug("bulk insert", zap.Int("rows", len(instances)))
	return instances, nil
}

// batchColumns returns the non-identity columns set on at least one instance
func (m *Model) batchColumns(instances []*Instance) []*codegen.ColumnDef {
	var columns []*codegen.ColumnDef
	for _, col := range m.table.Columns {
		if col.Identity {
			continue
		}
		for _, inst := range instances {
			if _, ok := inst.values[col.Property]; ok {
				columns = append(columns, col)
				break
			}
		}
	}
	return columns
}

// batchInsert renders one multi-row INSERT. A column missing from a record gets
// the column default when it has one and NULL otherwise.
func (m *Model) batchInsert(columns []*codegen.ColumnDef, instances []*Instance) (string, []interface{}) {
	names := make([]string, len(columns))
	for n, col := range columns {
		names[n] = m.quote(col.Name)
	}

	var args []interface{}
	rows := make([]string, len(instances))
	for r, inst := range instances {
		cells := make([]string, len(columns))
		for c, col := range columns {
			v, ok := inst.values[col.Property]
			if !ok && col.Default != "" {
				cells[c] = col.Default
				continue
			}
			args = append(args, v)
			cells[c] = m.dialect.Placeholder(len(args))
		}
		rows[r] = "(" + strings.Join(cells, ", ") + ")"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		m.quote(m.table.Name),
		strings.Join(names, ", "),
		strings.Join(rows, ", "),
	)
	return query, args
}
