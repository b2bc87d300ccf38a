// Package transaction wraps database/sql transactions and carries them through a context.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrTransactionDone is returned when a finished transaction is committed again
	ErrTransactionDone = errors.New("transaction already finished")
)

// IsolationLevel represents the transaction isolation level
type IsolationLevel int

const (
	// Default leaves the isolation level to the database
	Default IsolationLevel = iota
	// ReadUncommitted allows dirty reads
	ReadUncommitted
	// ReadCommitted prevents dirty reads
	ReadCommitted
	// RepeatableRead prevents non-repeatable reads
	RepeatableRead
	// Serializable provides full isolation
	Serializable
)

// String returns the string representation of the isolation level
func (l IsolationLevel) String() string {
	switch l {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "DEFAULT"
	}
}

// ToSQLOptions converts IsolationLevel to sql.TxOptions
func (l IsolationLevel) ToSQLOptions() *sql.TxOptions {
	var level sql.IsolationLevel
	switch l {
	case ReadUncommitted:
		level = sql.LevelReadUncommitted
	case ReadCommitted:
		level = sql.LevelReadCommitted
	case RepeatableRead:
		level = sql.LevelRepeatableRead
	case Serializable:
		level = sql.LevelSerializable
	default:
		level = sql.LevelDefault
	}
	return &sql.TxOptions{Isolation: level}
}

// Transaction is a top-level database transaction
type Transaction struct {
	tx             *sql.Tx
	ctx            context.Context
	committed      atomic.Bool
	rolledBack     atomic.Bool
	isolationLevel IsolationLevel
}

// Manager manages database transactions
type Manager struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewManager creates a new transaction manager
func NewManager(db *sql.DB, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{db: db, logger: logger}
}

// Begin starts a new transaction with the database's isolation level
func (m *Manager) Begin(ctx context.Context) (*Transaction, error) {
	return m.BeginWithIsolation(ctx, Default)
}

// BeginTx starts a plain sql.Tx
func (m *Manager) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return m.db.BeginTx(ctx, nil)
}

// BeginWithIsolation starts a new transaction with the specified isolation level
func (m *Manager) BeginWithIsolation(ctx context.Context, level IsolationLevel) (*Transaction, error) {
	tx, err := m.db.BeginTx(ctx, level.ToSQLOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &Transaction{
		tx:             tx,
		ctx:            ctx,
		isolationLevel: level,
	}, nil
}

// WithTransaction runs fn with a context carrying a transaction.
// If ctx already carries an open transaction, fn joins it and the outer caller decides the outcome.
// Otherwise the transaction commits when fn returns nil and rolls back on error or panic.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.WithTransactionIsolation(ctx, Default, fn)
}

// WithTransactionIsolation is WithTransaction with an explicit isolation level
func (m *Manager) WithTransactionIsolation(ctx context.Context, level IsolationLevel, fn func(ctx context.Context) error) error {
	if outer, ok := FromContext(ctx); ok && outer.IsActive() {
		return fn(ctx)
	}

	tx, err := m.BeginWithIsolation(ctx, level)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.Context()); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("rollback failed", zap.Error(rbErr))
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Context returns a context with the transaction embedded
func (t *Transaction) Context() context.Context {
	return WithContext(t.ctx, t)
}

// Tx returns the underlying sql.Tx
func (t *Transaction) Tx() *sql.Tx {
	return t.tx
}

// IsolationLevel returns the isolation level of the transaction
func (t *Transaction) IsolationLevel() IsolationLevel {
	return t.isolationLevel
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if t.committed.Load() || t.rolledBack.Load() {
		return ErrTransactionDone
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.committed.Store(true)
	return nil
}

// Rollback rolls back the transaction. Rolling back twice is a no-op.
func (t *Transaction) Rollback() error {
	if t.committed.Load() {
		return ErrTransactionDone
	}
	if t.rolledBack.Load() {
		return nil
	}
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.rolledBack.Store(true)
	return nil
}

// IsActive reports whether the transaction is neither committed nor rolled back
func (t *Transaction) IsActive() bool {
	return !t.committed.Load() && !t.rolledBack.Load()
}

// IsCommitted returns true if the transaction has been committed
func (t *Transaction) IsCommitted() bool {
	return t.committed.Load()
}

// IsRolledBack returns true if the transaction has been rolled back
func (t *Transaction) IsRolledBack() bool {
	return t.rolledBack.Load()
}
