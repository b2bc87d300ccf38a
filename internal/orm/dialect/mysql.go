package dialect

import (
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL targets MySQL and MariaDB
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }
func (MySQL) DriverName() string { return "mysql" }

// DSN builds a go-sql-driver DSN with time parsing enabled
func (MySQL) DSN(cfg Config) (string, error) {
	if cfg.Host == "" || cfg.DBName == "" {
		return "", fmt.Errorf("mysql: host and database name are required")
	}
	addr := cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "3306")
	}

	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = addr
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN(), nil
}

func (MySQL) Configure(db *sql.DB) { configurePool(db) }

// QuoteIdentifier wraps the name in backticks, doubling embedded ones
func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) Placeholder(n int) string { return questionPlaceholder(n) }

func (MySQL) Types() TypeNames {
	return TypeNames{
		VarChar:    "VARCHAR(%d)",
		Text:       "LONGTEXT",
		Int8:       "TINYINT",
		Int16:      "SMALLINT",
		Int32:      "INT",
		Int64:      "BIGINT",
		Decimal:    "DECIMAL(%d,%d)",
		Float32:    "FLOAT",
		Float64:    "DOUBLE",
		DateTime:   "DATETIME(3)",
		DateTimeTZ: "DATETIME(3)",
		Boolean:    "TINYINT(1)",
		VarBinary:  "VARBINARY(%d)",
		Binary:     "LONGBLOB",
		GUID:       "CHAR(36)",
		MaxVarChar: 16383,
		KeyText:    "VARCHAR(255)",
	}
}

func (MySQL) FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (MySQL) IdentityClause() string { return "AUTO_INCREMENT" }
func (MySQL) InlineIdentityKey() bool { return false }
func (MySQL) KeyRetrieval() KeyRetrieval { return LastInsertID }
func (MySQL) SupportsAddConstraint() bool { return true }

func (MySQL) LimitOffset(limit, offset int, _ bool) string {
	return limitOffset(limit, offset, "18446744073709551615")
}

func (d MySQL) CreateTable(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);", d.QuoteIdentifier(table), body)
}

func (d MySQL) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.QuoteIdentifier(table))
}

// DropConstraint has no IF EXISTS form; a missing table or key fails with 1146 or 1091
func (d MySQL) DropConstraint(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", d.QuoteIdentifier(table), d.QuoteIdentifier(name))
}
