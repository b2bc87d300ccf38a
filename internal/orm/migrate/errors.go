package migrate

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
)

// SchemaSyncError wraps a database failure raised while creating or dropping a table
type SchemaSyncError struct {
	Table     string
	Statement string
	Err       error
}

// Error implements the error interface
func (e *SchemaSyncError) Error() string {
	return fmt.Sprintf("schema sync failed on table %s: %v", e.Table, e.Err)
}

// Unwrap returns the driver error
func (e *SchemaSyncError) Unwrap() error {
	return e.Err
}

// IsSchemaSyncError returns true if err is or wraps a SchemaSyncError
func IsSchemaSyncError(err error) bool {
	var syncErr *SchemaSyncError
	return errors.As(err, &syncErr)
}

// isDuplicateObject reports whether err says a constraint already exists
func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42710"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1826 || myErr.Number == 1022
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 2714
	}
	return false
}

// isMissingObject reports whether err says the table or constraint to drop does not exist
func isMissingObject(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01" || pgErr.Code == "42704"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1146 || myErr.Number == 1091
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 4902 || msErr.Number == 3728
	}
	return false
}
