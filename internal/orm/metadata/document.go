// Package metadata reads breeze metadata documents and imports them into a schema.Schema.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the top level of a breeze metadata document
type Document struct {
	MetadataVersion       string            `json:"metadataVersion,omitempty" yaml:"metadataVersion,omitempty"`
	NamingConvention      NamingSetting     `json:"namingConvention,omitempty" yaml:"namingConvention,omitempty"`
	StructuralTypes       []StructuralType  `json:"structuralTypes" yaml:"structuralTypes"`
	ResourceEntityTypeMap map[string]string `json:"resourceEntityTypeMap,omitempty" yaml:"resourceEntityTypeMap,omitempty"`
}

// StructuralType describes one entity or complex type
type StructuralType struct {
	ShortName            string               `json:"shortName" yaml:"shortName"`
	Namespace            string               `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	AutoGeneratedKeyType string               `json:"autoGeneratedKeyType,omitempty" yaml:"autoGeneratedKeyType,omitempty"`
	DefaultResourceName  string               `json:"defaultResourceName,omitempty" yaml:"defaultResourceName,omitempty"`
	IsComplexType        bool                 `json:"isComplexType,omitempty" yaml:"isComplexType,omitempty"`
	DataProperties       []DataProperty       `json:"dataProperties" yaml:"dataProperties"`
	NavigationProperties []NavigationProperty `json:"navigationProperties,omitempty" yaml:"navigationProperties,omitempty"`
}

// DataProperty describes a scalar member
type DataProperty struct {
	Name            string      `json:"name" yaml:"name"`
	NameOnServer    string      `json:"nameOnServer,omitempty" yaml:"nameOnServer,omitempty"`
	DataType        string      `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	ComplexTypeName string      `json:"complexTypeName,omitempty" yaml:"complexTypeName,omitempty"`
	IsNullable      *bool       `json:"isNullable,omitempty" yaml:"isNullable,omitempty"`
	IsPartOfKey     bool        `json:"isPartOfKey,omitempty" yaml:"isPartOfKey,omitempty"`
	IsUnmapped      bool        `json:"isUnmapped,omitempty" yaml:"isUnmapped,omitempty"`
	DefaultValue    interface{} `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	MaxLength       *int        `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Precision       *int        `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale           *int        `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// NavigationProperty describes an association endpoint
type NavigationProperty struct {
	Name               string   `json:"name" yaml:"name"`
	EntityTypeName     string   `json:"entityTypeName" yaml:"entityTypeName"`
	IsScalar           bool     `json:"isScalar" yaml:"isScalar"`
	AssociationName    string   `json:"associationName,omitempty" yaml:"associationName,omitempty"`
	Inverse            string   `json:"inverse,omitempty" yaml:"inverse,omitempty"`
	ForeignKeyNames    []string `json:"foreignKeyNames,omitempty" yaml:"foreignKeyNames,omitempty"`
	InvForeignKeyNames []string `json:"invForeignKeyNames,omitempty" yaml:"invForeignKeyNames,omitempty"`
}

// NamingSetting is the document's namingConvention entry.
// It accepts null, a bare name ("camelCase") or an object with a name field.
type NamingSetting struct {
	Name string
}

// UnmarshalJSON implements json.Unmarshaler
func (n *NamingSetting) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.Name = ""
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("naming convention: %w", err)
		}
		n.Name = obj.Name
		return nil
	}
	if err := json.Unmarshal(data, &n.Name); err != nil {
		return fmt.Errorf("naming convention: %w", err)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (n NamingSetting) MarshalJSON() ([]byte, error) {
	if n.Name == "" {
		return []byte("null"), nil
	}
	return json.Marshal(n.Name)
}

// UnmarshalYAML implements yaml.Unmarshaler
func (n *NamingSetting) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			n.Name = ""
			return nil
		}
		return node.Decode(&n.Name)
	case yaml.MappingNode:
		var obj struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&obj); err != nil {
			return fmt.Errorf("naming convention: %w", err)
		}
		n.Name = obj.Name
		return nil
	default:
		return fmt.Errorf("naming convention: unexpected YAML node at line %d", node.Line)
	}
}

// IsZero lets encoders omit an unset convention
func (n NamingSetting) IsZero() bool {
	return n.Name == ""
}
