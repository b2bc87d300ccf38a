// Package schema provides the typed entity model produced by a breeze metadata import.
// It defines entity types, data and navigation properties, and the resolved association
// graph that later stages compile into tables.
package schema

import (
	"fmt"
	"strings"
)

// DataType is the abstract column type of a data property
type DataType int

const (
	TypeString DataType = iota
	TypeInteger
	TypeDecimal
	TypeFloat
	TypeDateTime
	TypeBoolean
	TypeBinary
	TypeGUID
)

// String returns the abstract name of the data type
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeFloat:
		return "float"
	case TypeDateTime:
		return "datetime"
	case TypeBoolean:
		return "boolean"
	case TypeBinary:
		return "binary"
	case TypeGUID:
		return "guid"
	default:
		return "unknown"
	}
}

// TypeSpec is a data type with its size parameters
type TypeSpec struct {
	Base      DataType
	MaxLength *int
	Precision *int
	Scale     *int

	// Bits is the integer width (8, 16, 32, 64) or float width (32, 64).
	Bits int

	// WithTimeZone marks offset-aware date-time values.
	WithTimeZone bool
}

// ParseTypeSpec resolves a metadata type name into a TypeSpec.
// Both breeze names ("Int32", "DateTimeOffset") and abstract names ("integer", "datetime") are accepted.
func ParseTypeSpec(name string) (TypeSpec, error) {
	switch strings.ToLower(strings.TrimPrefix(name, "Edm.")) {
	case "string", "text":
		return TypeSpec{Base: TypeString}, nil
	case "byte", "sbyte":
		return TypeSpec{Base: TypeInteger, Bits: 8}, nil
	case "int16":
		return TypeSpec{Base: TypeInteger, Bits: 16}, nil
	case "int32", "integer", "int":
		return TypeSpec{Base: TypeInteger, Bits: 32}, nil
	case "int64", "bigint":
		return TypeSpec{Base: TypeInteger, Bits: 64}, nil
	case "decimal":
		return TypeSpec{Base: TypeDecimal}, nil
	case "single":
		return TypeSpec{Base: TypeFloat, Bits: 32}, nil
	case "double", "float":
		return TypeSpec{Base: TypeFloat, Bits: 64}, nil
	case "datetime", "date-time", "time":
		return TypeSpec{Base: TypeDateTime}, nil
	case "datetimeoffset":
		return TypeSpec{Base: TypeDateTime, WithTimeZone: true}, nil
	case "boolean", "bool":
		return TypeSpec{Base: TypeBoolean}, nil
	case "binary":
		return TypeSpec{Base: TypeBinary}, nil
	case "guid", "uuid":
		return TypeSpec{Base: TypeGUID}, nil
	default:
		return TypeSpec{}, fmt.Errorf("unknown data type %q", name)
	}
}

// KeyGeneration is the primary key assignment policy of an entity type
type KeyGeneration int

const (
	// KeyNone requires the caller to supply key values
	KeyNone KeyGeneration = iota
	// KeyIdentity lets the database assign an auto-incrementing key
	KeyIdentity
	// KeyClientGenerated generates GUID keys on save when the caller leaves them empty
	KeyClientGenerated
)

// String returns the breeze name of the policy
func (k KeyGeneration) String() string {
	switch k {
	case KeyIdentity:
		return "Identity"
	case KeyClientGenerated:
		return "KeyGenerator"
	default:
		return "None"
	}
}

// ParseKeyGeneration maps a breeze autoGeneratedKeyType to a policy
func ParseKeyGeneration(s string) (KeyGeneration, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return KeyNone, nil
	case "identity":
		return KeyIdentity, nil
	case "keygenerator":
		return KeyClientGenerated, nil
	default:
		return KeyNone, fmt.Errorf("unknown key generation policy %q", s)
	}
}

// Cardinality is the multiplicity of a navigation property
type Cardinality int

const (
	One Cardinality = iota
	Many
)

// String returns "one" or "many"
func (c Cardinality) String() string {
	if c == Many {
		return "many"
	}
	return "one"
}

// DataProperty is a scalar member of an entity type
type DataProperty struct {
	Name       string
	ColumnName string
	Type       TypeSpec
	Nullable   bool
	Default    interface{}
	IsKey      bool

	// Synthesized is set on foreign-key properties created by the association resolver.
	Synthesized bool
}

// NavigationProperty is one endpoint of an association
type NavigationProperty struct {
	Name            string
	Target          string
	Cardinality     Cardinality
	AssociationName string
	Inverse         string

	// ForeignKeyNames are properties on the declaring type referencing the target key.
	ForeignKeyNames []string
	// InverseForeignKeyNames are properties on the target type referencing the declaring key.
	InverseForeignKeyNames []string

	association *Association
}

// Association returns the resolved association, or nil before resolution
func (n *NavigationProperty) Association() *Association {
	return n.association
}

// IsResolved reports whether the navigation has been bound to an association
func (n *NavigationProperty) IsResolved() bool {
	return n.association != nil
}

// EntityType is one record type of the metadata model
type EntityType struct {
	Name          string
	Namespace     string
	ResourceName  string
	TableName     string
	KeyGeneration KeyGeneration
	Properties    []*DataProperty
	Navigations   []*NavigationProperty

	order int
}

// NewEntityType creates an empty entity type
func NewEntityType(name string) *EntityType {
	return &EntityType{Name: name}
}

// Property returns the data property with the given name
func (e *EntityType) Property(name string) (*DataProperty, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// PropertyByColumn returns the data property stored in the given column
func (e *EntityType) PropertyByColumn(column string) (*DataProperty, bool) {
	for _, p := range e.Properties {
		if p.ColumnName == column {
			return p, true
		}
	}
	return nil, false
}

// Navigation returns the navigation property with the given name
func (e *EntityType) Navigation(name string) (*NavigationProperty, bool) {
	for _, n := range e.Navigations {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// KeyProperties returns the key properties in declaration order
func (e *EntityType) KeyProperties() []*DataProperty {
	var keys []*DataProperty
	for _, p := range e.Properties {
		if p.IsKey {
			keys = append(keys, p)
		}
	}
	return keys
}

// HasIdentityKey reports whether the database assigns the key
func (e *EntityType) HasIdentityKey() bool {
	return e.KeyGeneration == KeyIdentity
}

// QualifiedName returns "Name:#Namespace", the breeze type reference form
func (e *EntityType) QualifiedName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Name + ":#" + e.Namespace
}

// AssociationKind classifies a resolved association
type AssociationKind int

const (
	OneToMany AssociationKind = iota
	OneToOne
	ManyToMany
)

// String returns the kind name
func (k AssociationKind) String() string {
	switch k {
	case OneToOne:
		return "one-to-one"
	case ManyToMany:
		return "many-to-many"
	default:
		return "one-to-many"
	}
}

// Association is a resolved edge between two entity types.
// For one-to-many and one-to-one, Dependent owns ForeignKeys referencing Principal's key.
// For many-to-many, Principal and Dependent are the two sides and JoinTable holds the keys.
type Association struct {
	Name           string
	Kind           AssociationKind
	Principal      *EntityType
	Dependent      *EntityType
	PrincipalNav   *NavigationProperty
	DependentNav   *NavigationProperty
	ForeignKeys    []*DataProperty
	JoinTable      *JoinTable
	Unidirectional bool
}

// SelfReferencing reports whether both ends are the same entity type
func (a *Association) SelfReferencing() bool {
	return a.Principal == a.Dependent
}

// JoinColumn is one foreign-key column of a join table
type JoinColumn struct {
	Name      string
	Type      TypeSpec
	Entity    *EntityType
	KeyColumn string
}

// JoinTable is the implicit table backing a many-to-many association
type JoinTable struct {
	Name      string
	TableName string
	Left      *EntityType
	Right     *EntityType
	Columns   []*JoinColumn
}

// ColumnsFor returns the join columns referencing the given entity type.
// For a self-referencing join table the left columns come first.
func (j *JoinTable) ColumnsFor(e *EntityType, left bool) []*JoinColumn {
	var cols []*JoinColumn
	half := len(j.Columns) / 2
	for i, c := range j.Columns {
		if c.Entity != e {
			continue
		}
		if j.Left == j.Right && (i < half) != left {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// lowerFirst lower-cases the first rune of s
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// upperFirst upper-cases the first rune of s
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
