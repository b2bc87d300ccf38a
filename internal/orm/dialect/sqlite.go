package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // driver: sqlite3
)

// SQLite targets embedded SQLite databases. Only DBName (a file path or ":memory:") is used.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite3" }

// DSN enables foreign key enforcement on every connection
func (SQLite) DSN(cfg Config) (string, error) {
	if cfg.DBName == "" {
		return "", fmt.Errorf("sqlite: database name is required")
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on", cfg.DBName), nil
}

// Configure pins the pool to one connection so ":memory:" databases are shared
func (SQLite) Configure(db *sql.DB) {
	db.SetMaxOpenConns(1)
}

func (SQLite) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) Placeholder(n int) string { return questionPlaceholder(n) }

func (SQLite) Types() TypeNames {
	return TypeNames{
		VarChar:    "VARCHAR(%d)",
		Text:       "TEXT",
		Int8:       "INTEGER",
		Int16:      "INTEGER",
		Int32:      "INTEGER",
		Int64:      "INTEGER",
		Decimal:    "NUMERIC(%d,%d)",
		Float32:    "REAL",
		Float64:    "REAL",
		DateTime:   "DATETIME",
		DateTimeTZ: "DATETIME",
		Boolean:    "BOOLEAN",
		Binary:     "BLOB",
		GUID:       "CHAR(36)",
		KeyText:    "TEXT",
	}
}

func (SQLite) FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (SQLite) IdentityClause() string { return "PRIMARY KEY AUTOINCREMENT" }
func (SQLite) InlineIdentityKey() bool { return true }
func (SQLite) KeyRetrieval() KeyRetrieval { return ReturningClause }
func (SQLite) SupportsAddConstraint() bool { return false }

func (SQLite) LimitOffset(limit, offset int, _ bool) string {
	return limitOffset(limit, offset, "-1")
}

func (d SQLite) CreateTable(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);", d.QuoteIdentifier(table), body)
}

func (d SQLite) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.QuoteIdentifier(table))
}

// DropConstraint is empty: SQLite keeps every foreign key inline
func (SQLite) DropConstraint(table, name string) string { return "" }
