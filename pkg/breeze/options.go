package breeze

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// DefaultDialect is used when no WithDialect option is given
const DefaultDialect = "mysql"

// Option configures a Manager
type Option func(*options)

type options struct {
	dialect       string
	logger        *zap.Logger
	db            *sql.DB
	naming        schema.NamingConvention
	disableNaming bool
}

// WithDialect selects the database engine: mysql, postgres, sqlite or sqlserver
func WithDialect(name string) Option {
	return func(o *options) {
		o.dialect = name
	}
}

// WithLogger sets the logger used for synchronization and CRUD diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDB uses an already opened handle instead of opening one from Config.
// The caller keeps ownership: Close does not close it.
func WithDB(db *sql.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

// WithNamingConvention overrides the namingConvention of imported documents
func WithNamingConvention(naming schema.NamingConvention) Option {
	return func(o *options) {
		o.naming = naming
	}
}

// WithoutNaming stores every metadata name unchanged, whatever the document says
func WithoutNaming() Option {
	return func(o *options) {
		o.disableNaming = true
	}
}
