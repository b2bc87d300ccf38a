package schema

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedMetadata matches every MalformedMetadataError
	ErrMalformedMetadata = errors.New("malformed metadata")

	// ErrAmbiguousAssociation matches every AmbiguousAssociationError
	ErrAmbiguousAssociation = errors.New("ambiguous association")
)

// MalformedMetadataError reports a structural defect in a metadata document
type MalformedMetadataError struct {
	Entity  string
	Member  string
	Message string
	Hint    string
}

// Error implements the error interface
func (e *MalformedMetadataError) Error() string {
	var b strings.Builder
	b.WriteString("malformed metadata: ")
	writeLocation(&b, e.Entity, e.Member)
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString(" (hint: ")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	return b.String()
}

// Is matches ErrMalformedMetadata
func (e *MalformedMetadataError) Is(target error) bool {
	return target == ErrMalformedMetadata
}

// AmbiguousAssociationError reports a navigation whose inverse or owning side cannot be determined
type AmbiguousAssociationError struct {
	Entity     string
	Navigation string
	Message    string
}

// Error implements the error interface
func (e *AmbiguousAssociationError) Error() string {
	var b strings.Builder
	b.WriteString("ambiguous association: ")
	writeLocation(&b, e.Entity, e.Navigation)
	b.WriteString(e.Message)
	return b.String()
}

// Is matches ErrAmbiguousAssociation
func (e *AmbiguousAssociationError) Is(target error) bool {
	return target == ErrAmbiguousAssociation
}

func writeLocation(b *strings.Builder, entity, member string) {
	if entity == "" {
		return
	}
	b.WriteString(entity)
	if member != "" {
		b.WriteString(".")
		b.WriteString(member)
	}
	b.WriteString(": ")
}

// IsMalformedMetadata returns true if err is or wraps a MalformedMetadataError
func IsMalformedMetadata(err error) bool {
	return errors.Is(err, ErrMalformedMetadata)
}

// IsAmbiguousAssociation returns true if err is or wraps an AmbiguousAssociationError
func IsAmbiguousAssociation(err error) bool {
	return errors.Is(err, ErrAmbiguousAssociation)
}
