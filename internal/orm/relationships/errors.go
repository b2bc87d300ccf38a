package relationships

import "errors"

var (
	// ErrMaxDepthExceeded is returned when nested includes go deeper than the loader allows
	ErrMaxDepthExceeded = errors.New("maximum relationship depth exceeded")

	// ErrUnknownRelationship is returned when an include names no navigation property
	ErrUnknownRelationship = errors.New("unknown relationship")

	// ErrUnresolvedRelationship is returned when a navigation has no resolved association
	ErrUnresolvedRelationship = errors.New("relationship is not resolved")

	// ErrCompositeKey is returned when eager loading meets a multi-column key
	ErrCompositeKey = errors.New("eager loading over composite keys is not supported")
)
