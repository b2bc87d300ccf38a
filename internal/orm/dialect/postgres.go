package dialect

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"github.com/lib/pq"
)

// Postgres targets PostgreSQL through the pgx stdlib driver
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }
func (Postgres) DriverName() string { return "pgx" }

// DSN builds a postgres:// URL
func (Postgres) DSN(cfg Config) (string, error) {
	if cfg.Host == "" || cfg.DBName == "" {
		return "", fmt.Errorf("postgres: host and database name are required")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     "/" + cfg.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String(), nil
}

func (Postgres) Configure(db *sql.DB) { configurePool(db) }

// QuoteIdentifier uses lib/pq quoting rules
func (Postgres) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (Postgres) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (Postgres) Types() TypeNames {
	return TypeNames{
		VarChar:    "VARCHAR(%d)",
		Text:       "TEXT",
		Int8:       "SMALLINT",
		Int16:      "SMALLINT",
		Int32:      "INTEGER",
		Int64:      "BIGINT",
		Decimal:    "NUMERIC(%d,%d)",
		Float32:    "REAL",
		Float64:    "DOUBLE PRECISION",
		DateTime:   "TIMESTAMP",
		DateTimeTZ: "TIMESTAMP WITH TIME ZONE",
		Boolean:    "BOOLEAN",
		Binary:     "BYTEA",
		GUID:       "UUID",
		KeyText:    "TEXT",
	}
}

func (Postgres) FormatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (Postgres) IdentityClause() string { return "GENERATED BY DEFAULT AS IDENTITY" }
func (Postgres) InlineIdentityKey() bool { return false }
func (Postgres) KeyRetrieval() KeyRetrieval { return ReturningClause }
func (Postgres) SupportsAddConstraint() bool { return true }

func (Postgres) LimitOffset(limit, offset int, _ bool) string {
	return limitOffset(limit, offset, "ALL")
}

func (d Postgres) CreateTable(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);", d.QuoteIdentifier(table), body)
}

func (d Postgres) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", d.QuoteIdentifier(table))
}

func (d Postgres) DropConstraint(table, name string) string {
	return fmt.Sprintf("ALTER TABLE IF EXISTS %s DROP CONSTRAINT IF EXISTS %s;", d.QuoteIdentifier(table), d.QuoteIdentifier(name))
}
