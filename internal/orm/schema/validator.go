package schema

import (
	"errors"
	"fmt"
)

// Validator checks the structural invariants of a schema before resolution
type Validator struct {
	schema *Schema
	errors []error
}

// NewValidator creates a validator for the given schema
func NewValidator(s *Schema) *Validator {
	return &Validator{schema: s}
}

// Validate runs every check and returns all defects joined into one error
func (v *Validator) Validate() error {
	v.errors = nil

	for _, e := range v.schema.Entities {
		v.validateMembers(e)
		v.validateKeys(e)
		v.validateNavigations(e)
	}

	if len(v.errors) == 0 {
		return nil
	}
	return errors.Join(v.errors...)
}

// Validate checks a schema with a fresh Validator
func Validate(s *Schema) error {
	return NewValidator(s).Validate()
}

func (v *Validator) fail(entity, member, msg, hint string) {
	v.errors = append(v.errors, &MalformedMetadataError{
		Entity:  entity,
		Member:  member,
		Message: msg,
		Hint:    hint,
	})
}

// validateMembers rejects duplicate member names across data and navigation properties
func (v *Validator) validateMembers(e *EntityType) {
	seen := make(map[string]bool)
	for _, p := range e.Properties {
		if p.Name == "" {
			v.fail(e.Name, "", "data property has no name", "")
			continue
		}
		if seen[p.Name] {
			v.fail(e.Name, p.Name, "member is declared more than once", "")
		}
		seen[p.Name] = true
	}
	for _, n := range e.Navigations {
		if seen[n.Name] {
			v.fail(e.Name, n.Name, "member is declared more than once", "")
		}
		seen[n.Name] = true
	}
}

func (v *Validator) validateKeys(e *EntityType) {
	keys := e.KeyProperties()
	if len(keys) == 0 {
		v.fail(e.Name, "", "entity type has no key property", "mark at least one data property with isPartOfKey")
		return
	}

	for _, k := range keys {
		if k.Nullable {
			v.fail(e.Name, k.Name, "key property cannot be nullable", "")
		}
	}

	if e.KeyGeneration == KeyIdentity {
		if len(keys) != 1 {
			v.fail(e.Name, "", fmt.Sprintf("identity key generation needs exactly one key property, found %d", len(keys)), "")
		} else if keys[0].Type.Base != TypeInteger {
			v.fail(e.Name, keys[0].Name, fmt.Sprintf("identity key must be an integer, got %s", keys[0].Type.Base), "")
		}
	}
}

func (v *Validator) validateNavigations(e *EntityType) {
	for _, n := range e.Navigations {
		target, ok := v.schema.Entity(n.Target)
		if !ok {
			v.fail(e.Name, n.Name, fmt.Sprintf("navigation targets unknown entity type %q", n.Target), "")
			continue
		}
		for _, fk := range n.ForeignKeyNames {
			if _, ok := e.Property(fk); !ok {
				v.fail(e.Name, n.Name, fmt.Sprintf("foreign key property %q not found on %s", fk, e.Name), "")
			}
		}
		for _, fk := range n.InverseForeignKeyNames {
			if _, ok := target.Property(fk); !ok {
				v.fail(e.Name, n.Name, fmt.Sprintf("inverse foreign key property %q not found on %s", fk, target.Name), "")
			}
		}
	}
}
