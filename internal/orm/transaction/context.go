package transaction

import (
	"context"
	"database/sql"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// contextKeyTransaction is the key for storing a transaction in context
	contextKeyTransaction contextKey = "breeze:transaction"
)

// Conn is the statement surface shared by *sql.DB and *sql.Tx
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// FromContext retrieves a transaction from the context
// Returns the transaction and true if found, nil and false otherwise
func FromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(contextKeyTransaction).(*Transaction)
	return tx, ok
}

// WithContext returns a new context with the transaction embedded
func WithContext(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, contextKeyTransaction, tx)
}

// ConnFrom returns the open transaction carried by ctx, or db when there is none
func ConnFrom(ctx context.Context, db Conn) Conn {
	if tx, ok := FromContext(ctx); ok && tx.IsActive() {
		return tx.tx
	}
	return db
}
