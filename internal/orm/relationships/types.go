// Package relationships loads navigation properties in batched queries.
package relationships

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// DefaultMaxDepth bounds nested includes such as "orders.details.product"
const DefaultMaxDepth = 10

// Querier is an interface for executing SQL queries, allowing for testing and instrumentation
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Loader loads associations for records of registered tables
type Loader struct {
	db       Querier
	dialect  dialect.Dialect
	byEntity map[*schema.EntityType]*codegen.TableDef
	byJoin   map[*schema.JoinTable]*codegen.TableDef
	maxDepth int

	// serial disables concurrent sibling loads; a transaction runs one statement at a time
	serial bool
}

// NewLoader creates a loader over the built tables
func NewLoader(db Querier, d dialect.Dialect, tables []*codegen.TableDef) *Loader {
	l := &Loader{
		db:       db,
		dialect:  d,
		byEntity: make(map[*schema.EntityType]*codegen.TableDef),
		byJoin:   make(map[*schema.JoinTable]*codegen.TableDef),
		maxDepth: DefaultMaxDepth,
	}
	for _, t := range tables {
		if t.Entity != nil {
			l.byEntity[t.Entity] = t
		}
		if t.JoinTable != nil {
			l.byJoin[t.JoinTable] = t
		}
	}
	return l
}

// With returns a loader that issues its queries through db, such as an open transaction
func (l *Loader) With(db Querier) *Loader {
	clone := *l
	clone.db = db
	_, clone.serial = db.(*sql.Tx)
	return &clone
}

// Table returns the table of an entity type
func (l *Loader) Table(e *schema.EntityType) (*codegen.TableDef, bool) {
	t, ok := l.byEntity[e]
	return t, ok
}

// parseInclude splits "orders.details" into "orders" and "details"
func parseInclude(include string) (string, string) {
	if i := strings.Index(include, "."); i >= 0 {
		return include[:i], include[i+1:]
	}
	return include, ""
}

// LazyRelation loads a navigation on first access and keeps the value
type LazyRelation struct {
	load   func(ctx context.Context) (interface{}, error)
	loaded bool
	value  interface{}
	mu     sync.Mutex
}

// NewLazyRelation creates a lazy relation around a load function
func NewLazyRelation(load func(ctx context.Context) (interface{}, error)) *LazyRelation {
	return &LazyRelation{load: load}
}

// Get loads the value on first access (thread-safe). Failed loads are retried on the next call.
func (lr *LazyRelation) Get(ctx context.Context) (interface{}, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.loaded {
		return lr.value, nil
	}

	value, err := lr.load(ctx)
	if err != nil {
		return nil, err
	}
	lr.value = value
	lr.loaded = true
	return lr.value, nil
}

// Set stores an already loaded value, such as an eager-loaded include
func (lr *LazyRelation) Set(value interface{}) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.value = value
	lr.loaded = true
}

// IsLoaded returns true if the relationship has been loaded
func (lr *LazyRelation) IsLoaded() bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.loaded
}
