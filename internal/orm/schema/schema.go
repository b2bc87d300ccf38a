package schema

import (
	"fmt"
	"strings"
)

// Schema is the entity model of one metadata document
type Schema struct {
	Entities     []*EntityType
	Associations []*Association
	JoinTables   []*JoinTable
	Naming       NamingConvention

	byName     map[string]*EntityType
	byResource map[string]*EntityType
	resolved   bool
}

// NewSchema creates an empty schema using the given naming convention
func NewSchema(naming NamingConvention) *Schema {
	if naming == nil {
		naming = IdentityNaming
	}
	return &Schema{
		Naming:     naming,
		byName:     make(map[string]*EntityType),
		byResource: make(map[string]*EntityType),
	}
}

// AddEntity appends an entity type, preserving declaration order
func (s *Schema) AddEntity(e *EntityType) error {
	if _, exists := s.byName[e.Name]; exists {
		return &MalformedMetadataError{
			Entity:  e.Name,
			Message: "entity type is declared more than once",
		}
	}
	e.order = len(s.Entities)
	s.Entities = append(s.Entities, e)
	s.byName[e.Name] = e
	if e.ResourceName != "" {
		if err := s.MapResource(e.ResourceName, e.Name); err != nil {
			return err
		}
	}
	return nil
}

// MapResource registers a resource name for an entity type
func (s *Schema) MapResource(resource, entityName string) error {
	e, ok := s.Entity(entityName)
	if !ok {
		return &MalformedMetadataError{
			Entity:  entityName,
			Message: fmt.Sprintf("resource %q maps to an unknown entity type", resource),
		}
	}
	if existing, ok := s.byResource[resource]; ok && existing != e {
		return &MalformedMetadataError{
			Entity:  entityName,
			Message: fmt.Sprintf("resource %q is already mapped to %s", resource, existing.Name),
		}
	}
	s.byResource[resource] = e
	if e.ResourceName == "" {
		e.ResourceName = resource
	}
	return nil
}

// Entity looks up an entity type by short name or by breeze qualified name ("Order:#Ns")
func (s *Schema) Entity(name string) (*EntityType, bool) {
	if e, ok := s.byName[name]; ok {
		return e, true
	}
	if i := strings.Index(name, ":#"); i >= 0 {
		e, ok := s.byName[name[:i]]
		return e, ok
	}
	return nil, false
}

// EntityByResource looks up an entity type by resource name
func (s *Schema) EntityByResource(resource string) (*EntityType, bool) {
	e, ok := s.byResource[resource]
	return e, ok
}

// Resources returns the resource name to entity mapping
func (s *Schema) Resources() map[string]*EntityType {
	out := make(map[string]*EntityType, len(s.byResource))
	for k, v := range s.byResource {
		out[k] = v
	}
	return out
}

// Names returns entity type names in declaration order
func (s *Schema) Names() []string {
	names := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		names[i] = e.Name
	}
	return names
}

// IsResolved reports whether associations have been resolved
func (s *Schema) IsResolved() bool {
	return s.resolved
}

// StorageName applies the naming convention
func (s *Schema) StorageName(name string) string {
	return s.Naming(name)
}

// Order returns the declaration index of an entity type
func (e *EntityType) Order() int {
	return e.order
}
