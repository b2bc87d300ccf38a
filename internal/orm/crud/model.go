// Package crud exposes build, save, create, bulk create and find over the models of an imported schema.
package crud

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/relationships"
	"github.com/conduit-lang/breeze/internal/orm/schema"
	"github.com/conduit-lang/breeze/internal/orm/transaction"
)

// Operation represents a CRUD operation type
type Operation int

const (
	// OperationCreate represents a create operation
	OperationCreate Operation = iota
	// OperationBulkCreate represents a multi-row insert
	OperationBulkCreate
	// OperationRead represents a read operation
	OperationRead
	// OperationUpdate represents an update operation
	OperationUpdate
	// OperationDelete represents a delete operation
	OperationDelete
)

// String returns the string representation of the operation
func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "create"
	case OperationBulkCreate:
		return "bulk create"
	case OperationRead:
		return "read"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Model is the realized, registered form of one entity type
type Model struct {
	entity    *schema.EntityType
	table     *codegen.TableDef
	db        *sql.DB
	dialect   dialect.Dialect
	loader    *relationships.Loader
	txManager *transaction.Manager
	registry  *Registry
	logger    *zap.Logger
}

// NewModel creates a model over a built table
func NewModel(
	table *codegen.TableDef,
	db *sql.DB,
	d dialect.Dialect,
	loader *relationships.Loader,
	txManager *transaction.Manager,
	logger *zap.Logger,
) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if txManager == nil {
		txManager = transaction.NewManager(db, logger)
	}
	return &Model{
		entity:    table.Entity,
		table:     table,
		db:        db,
		dialect:   d,
		loader:    loader,
		txManager: txManager,
		logger:    logger.With(zap.String("model", table.Entity.Name)),
	}
}

// Name returns the entity type name
func (m *Model) Name() string {
	return m.entity.Name
}

// Entity returns the entity type
func (m *Model) Entity() *schema.EntityType {
	return m.entity
}

// Table returns the table definition
func (m *Model) Table() *codegen.TableDef {
	return m.table
}

// conn returns the transaction carried by ctx or the pool
func (m *Model) conn(ctx context.Context) transaction.Conn {
	return transaction.ConnFrom(ctx, m.db)
}

// related returns the model registered for an entity type of the same schema
func (m *Model) related(e *schema.EntityType) (*Model, bool) {
	if m.registry == nil {
		return nil, false
	}
	return m.registry.ForEntity(e)
}

func (m *Model) fail(op Operation, err error) error {
	pe := newPersistenceError(m.entity.Name, op, err)
	m.logger.Debug("operation failed",
		zap.String("op", op.String()),
		zap.Error(err),
	)
	return pe
}

func (m *Model) quote(name string) string {
	return m.dialect.QuoteIdentifier(name)
}

func (m *Model) selectList() string {
	cols := make([]string, len(m.table.Columns))
	for i, c := range m.table.Columns {
		cols[i] = m.quote(c.Name)
	}
	return strings.Join(cols, ", ")
}

// targetOf returns the entity type on the far side of a resolved navigation
func targetOf(nav *schema.NavigationProperty) *schema.EntityType {
	a := nav.Association()
	if a == nil {
		return nil
	}
	if a.PrincipalNav == nav {
		return a.Dependent
	}
	return a.Principal
}
