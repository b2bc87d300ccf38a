// Package dialect describes the SQL differences between the supported database engines.
package dialect

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// KeyRetrieval is how an engine hands back a generated key after INSERT
type KeyRetrieval int

const (
	// ReturningClause appends RETURNING <cols> to the INSERT
	ReturningClause KeyRetrieval = iota
	// OutputClause inserts OUTPUT INSERTED.<cols> before VALUES
	OutputClause
	// LastInsertID reads sql.Result.LastInsertId
	LastInsertID
)

// Config holds the connection parameters of a database
type Config struct {
	Host     string
	User     string
	Password string
	DBName   string
}

// TypeNames lists the concrete column types of an engine.
// Entries holding a %d verb take a length or precision argument.
type TypeNames struct {
	VarChar    string
	Text       string
	Int8       string
	Int16      string
	Int32      string
	Int64      string
	Decimal    string
	Float32    string
	Float64    string
	DateTime   string
	DateTimeTZ string
	Boolean    string
	VarBinary  string
	Binary     string
	GUID       string

	// MaxVarChar is the longest bounded string; longer ones map to Text. Zero means no limit.
	MaxVarChar int
	// KeyText replaces Text for unbounded strings used in keys.
	KeyText string
}

// Dialect is the engine-specific part of DDL and DML generation
type Dialect interface {
	// Name is the dialect identifier used in configuration.
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// DSN builds a driver connection string.
	DSN(cfg Config) (string, error)
	// Configure applies pool settings to an opened handle.
	Configure(db *sql.DB)

	QuoteIdentifier(name string) string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	Types() TypeNames
	FormatBool(b bool) string

	// IdentityClause is appended to the column type of an identity key.
	IdentityClause() string
	// InlineIdentityKey is true when the identity column must carry PRIMARY KEY itself.
	InlineIdentityKey() bool
	KeyRetrieval() KeyRetrieval

	// LimitOffset renders the row-limiting suffix of a SELECT. Zero means unset.
	LimitOffset(limit, offset int, ordered bool) string

	CreateTable(table, body string) string
	DropTable(table string) string
	// SupportsAddConstraint reports whether ALTER TABLE ... ADD CONSTRAINT FOREIGN KEY works.
	SupportsAddConstraint() bool
	// DropConstraint removes a foreign key added after creation. Empty when unsupported.
	DropConstraint(table, name string) string
}

// Get returns a dialect by name
func Get(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "sqlserver", "mssql":
		return SQLServer{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

// Names lists the supported dialect names
func Names() []string {
	return []string{"mysql", "postgres", "sqlite", "sqlserver"}
}

// configurePool sets the limits used for network databases
func configurePool(db *sql.DB) {
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
}

func questionPlaceholder(int) string {
	return "?"
}

// limitOffset renders LIMIT/OFFSET; noLimit is the engine's "all rows" value for an offset without a limit
func limitOffset(limit, offset int, noLimit string) string {
	var b strings.Builder
	switch {
	case limit > 0:
		fmt.Fprintf(&b, " LIMIT %d", limit)
	case offset > 0:
		b.WriteString(" LIMIT " + noLimit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}
