package crud

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
)

// Common CRUD error types
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrValidationFailed is returned when client-side validation fails
	ErrValidationFailed = errors.New("validation failed")

	// ErrFieldNotFound is returned when a field does not exist on a model
	ErrFieldNotFound = errors.New("field not found")

	// ErrRelationshipField is returned when a navigation is used where a column is expected
	ErrRelationshipField = errors.New("relationship field cannot be used directly in queries")

	// ErrNotPersisted is returned when an operation needs a saved instance
	ErrNotPersisted = errors.New("instance has not been saved")
)

// ValidationError contains every client-side validation failure of one record
type ValidationError struct {
	Model  string
	Errors []FieldError
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s.%s: %s", ve.Model, ve.Errors[0].Field, ve.Errors[0].Message)
	}
	msgs := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", ve.Model, strings.Join(msgs, "; "))
}

// Is matches ErrValidationFailed
func (ve *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string
	Message string
}

// PersistenceError wraps a database failure during a CRUD operation.
// It unwraps to the driver error and, when recognized, to a classification
// sentinel such as ErrUniqueViolation.
type PersistenceError struct {
	Model string
	Op    Operation
	Kind  error
	Err   error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Model, e.Err)
}

// Unwrap exposes both the classification and the original error
func (e *PersistenceError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

func newPersistenceError(model string, op Operation, err error) *PersistenceError {
	return &PersistenceError{
		Model: model,
		Op:    op,
		Kind:  Classify(err),
		Err:   err,
	}
}

// Classify maps a driver error to one of the CRUD sentinels, or nil when unrecognized
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifySQLState(string(pqErr.Code))
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return ErrUniqueViolation
		case 1216, 1217, 1451, 1452:
			return ErrForeignKeyViolation
		case 1048, 1364:
			return ErrNotNullViolation
		case 3819:
			return ErrCheckViolation
		}
		return nil
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ErrUniqueViolation
		case sqlite3.ErrConstraintForeignKey:
			return ErrForeignKeyViolation
		case sqlite3.ErrConstraintNotNull:
			return ErrNotNullViolation
		case sqlite3.ErrConstraintCheck:
			return ErrCheckViolation
		}
		return nil
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 2601, 2627:
			return ErrUniqueViolation
		case 547:
			return ErrForeignKeyViolation
		case 515:
			return ErrNotNullViolation
		}
	}

	return nil
}

func classifySQLState(code string) error {
	switch code {
	case "23505": // unique_violation
		return ErrUniqueViolation
	case "23503": // foreign_key_violation
		return ErrForeignKeyViolation
	case "23514": // check_violation
		return ErrCheckViolation
	case "23502": // not_null_violation
		return ErrNotNullViolation
	}
	return nil
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if the error is ErrUniqueViolation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation returns true if the error is ErrForeignKeyViolation
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, ErrForeignKeyViolation)
}

// IsValidationFailed returns true if the error is a validation error
func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsPersistenceError returns true if err wraps a *PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
