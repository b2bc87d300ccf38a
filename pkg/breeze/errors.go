package breeze

import (
	"errors"

	"github.com/conduit-lang/breeze/internal/orm/crud"
	"github.com/conduit-lang/breeze/internal/orm/migrate"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

var (
	// ErrInvalidConfig is returned by New when a required connection field is empty
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrModelNotFound is returned when no model is registered under a name
	ErrModelNotFound = errors.New("model not found")

	ErrMalformedMetadata    = schema.ErrMalformedMetadata
	ErrAmbiguousAssociation = schema.ErrAmbiguousAssociation
	ErrNotFound             = crud.ErrNotFound
	ErrValidationFailed     = crud.ErrValidationFailed
	ErrUniqueViolation      = crud.ErrUniqueViolation
	ErrForeignKeyViolation  = crud.ErrForeignKeyViolation
	ErrNotNullViolation     = crud.ErrNotNullViolation
)

type (
	// MalformedMetadataError reports a structural defect in a metadata document
	MalformedMetadataError = schema.MalformedMetadataError
	// AmbiguousAssociationError reports an association whose owning side cannot be determined
	AmbiguousAssociationError = schema.AmbiguousAssociationError
	// SchemaSyncError wraps a database failure during Sync
	SchemaSyncError = migrate.SchemaSyncError
	// PersistenceError wraps a database failure during a CRUD operation
	PersistenceError = crud.PersistenceError
	// ValidationError lists client-side validation failures
	ValidationError = crud.ValidationError
)
