package dialect

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // driver: sqlserver
)

// SQLServer targets Microsoft SQL Server 2016 and later
type SQLServer struct{}

func (SQLServer) Name() string { return "sqlserver" }
func (SQLServer) DriverName() string { return "sqlserver" }

// DSN builds a sqlserver:// URL with the database as a query parameter
func (SQLServer) DSN(cfg Config) (string, error) {
	if cfg.Host == "" || cfg.DBName == "" {
		return "", fmt.Errorf("sqlserver: host and database name are required")
	}
	vals := url.Values{}
	vals.Set("database", cfg.DBName)
	vals.Set("app name", "breeze")
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		RawQuery: vals.Encode(),
	}
	return u.String(), nil
}

func (SQLServer) Configure(db *sql.DB) { configurePool(db) }

// QuoteIdentifier wraps the name in brackets, doubling embedded closing brackets
func (SQLServer) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (SQLServer) Placeholder(n int) string {
	return fmt.Sprintf("@p%d", n)
}

func (SQLServer) Types() TypeNames {
	return TypeNames{
		VarChar:    "NVARCHAR(%d)",
		Text:       "NVARCHAR(MAX)",
		Int8:       "TINYINT",
		Int16:      "SMALLINT",
		Int32:      "INT",
		Int64:      "BIGINT",
		Decimal:    "DECIMAL(%d,%d)",
		Float32:    "REAL",
		Float64:    "FLOAT",
		DateTime:   "DATETIME2",
		DateTimeTZ: "DATETIMEOFFSET",
		Boolean:    "BIT",
		VarBinary:  "VARBINARY(%d)",
		Binary:     "VARBINARY(MAX)",
		GUID:       "UNIQUEIDENTIFIER",
		MaxVarChar: 4000,
		KeyText:    "NVARCHAR(450)",
	}
}

func (SQLServer) FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (SQLServer) IdentityClause() string { return "IDENTITY(1,1)" }
func (SQLServer) InlineIdentityKey() bool { return false }
func (SQLServer) KeyRetrieval() KeyRetrieval { return OutputClause }
func (SQLServer) SupportsAddConstraint() bool { return true }

// LimitOffset uses OFFSET/FETCH, which needs an ORDER BY
func (SQLServer) LimitOffset(limit, offset int, ordered bool) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	var b strings.Builder
	if !ordered {
		b.WriteString(" ORDER BY (SELECT NULL)")
	}
	fmt.Fprintf(&b, " OFFSET %d ROWS", offset)
	if limit > 0 {
		fmt.Fprintf(&b, " FETCH NEXT %d ROWS ONLY", limit)
	}
	return b.String()
}

// CreateTable guards the statement with OBJECT_ID; T-SQL has no IF NOT EXISTS for tables
func (d SQLServer) CreateTable(table, body string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n%s\n);",
		strings.ReplaceAll(table, "'", "''"), d.QuoteIdentifier(table), body)
}

func (d SQLServer) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.QuoteIdentifier(table))
}

// DropConstraint looks the key up by name so a missing table is not an error
func (d SQLServer) DropConstraint(table, name string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'F') IS NOT NULL ALTER TABLE %s DROP CONSTRAINT %s;",
		strings.ReplaceAll(name, "'", "''"), d.QuoteIdentifier(table), d.QuoteIdentifier(name))
}
