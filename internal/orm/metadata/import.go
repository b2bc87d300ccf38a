package metadata

import (
	"fmt"
	"sort"

	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// Options controls how a document is imported
type Options struct {
	// NamingConvention overrides the document's namingConvention when set.
	NamingConvention schema.NamingConvention
	// DisableNaming forces the identity transform regardless of the document.
	DisableNaming bool
}

// Import converts a document into a validated schema. Associations are recorded but not resolved.
func Import(doc *Document, opts Options) (*schema.Schema, error) {
	if doc == nil {
		return nil, malformed("document is nil")
	}

	naming, err := namingFor(doc, opts)
	if err != nil {
		return nil, err
	}

	s := schema.NewSchema(naming)
	tables := make(map[string]string)

	for i := range doc.StructuralTypes {
		st := &doc.StructuralTypes[i]
		if st.IsComplexType {
			continue
		}

		entity, err := importEntity(st, naming)
		if err != nil {
			return nil, err
		}

		if other, exists := tables[entity.TableName]; exists {
			return nil, &schema.MalformedMetadataError{
				Entity:  entity.Name,
				Message: fmt.Sprintf("table %q is already used by %s", entity.TableName, other),
			}
		}
		tables[entity.TableName] = entity.Name

		if err := s.AddEntity(entity); err != nil {
			return nil, err
		}
	}

	resources := make([]string, 0, len(doc.ResourceEntityTypeMap))
	for r := range doc.ResourceEntityTypeMap {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	for _, r := range resources {
		if err := s.MapResource(r, doc.ResourceEntityTypeMap[r]); err != nil {
			return nil, err
		}
	}

	if err := schema.Validate(s); err != nil {
		return nil, err
	}

	return s, nil
}

func namingFor(doc *Document, opts Options) (schema.NamingConvention, error) {
	if opts.DisableNaming {
		return schema.IdentityNaming, nil
	}
	if opts.NamingConvention != nil {
		return opts.NamingConvention, nil
	}
	naming, err := schema.ParseNamingConvention(doc.NamingConvention.Name)
	if err != nil {
		return nil, malformed("%v", err)
	}
	return naming, nil
}

func importEntity(st *StructuralType, naming schema.NamingConvention) (*schema.EntityType, error) {
	if st.ShortName == "" {
		return nil, malformed("structural type has no shortName")
	}

	e := schema.NewEntityType(st.ShortName)
	e.Namespace = st.Namespace
	e.ResourceName = st.DefaultResourceName
	e.TableName = schema.TableNameFor(st.ShortName, st.DefaultResourceName, naming)

	keyGen, err := schema.ParseKeyGeneration(st.AutoGeneratedKeyType)
	if err != nil {
		return nil, &schema.MalformedMetadataError{Entity: e.Name, Message: err.Error()}
	}
	e.KeyGeneration = keyGen

	for i := range st.DataProperties {
		dp := &st.DataProperties[i]
		if dp.IsUnmapped {
			continue
		}
		prop, err := importDataProperty(e.Name, dp, naming)
		if err != nil {
			return nil, err
		}
		e.Properties = append(e.Properties, prop)
	}

	for i := range st.NavigationProperties {
		np := &st.NavigationProperties[i]
		if np.EntityTypeName == "" {
			return nil, &schema.MalformedMetadataError{
				Entity:  e.Name,
				Member:  np.Name,
				Message: "navigation property has no entityTypeName",
			}
		}
		cardinality := schema.Many
		if np.IsScalar {
			cardinality = schema.One
		}
		e.Navigations = append(e.Navigations, &schema.NavigationProperty{
			Name:                   np.Name,
			Target:                 np.EntityTypeName,
			Cardinality:            cardinality,
			AssociationName:        np.AssociationName,
			Inverse:                np.Inverse,
			ForeignKeyNames:        np.ForeignKeyNames,
			InverseForeignKeyNames: np.InvForeignKeyNames,
		})
	}

	return e, nil
}

func importDataProperty(entity string, dp *DataProperty, naming schema.NamingConvention) (*schema.DataProperty, error) {
	if dp.ComplexTypeName != "" {
		return nil, &schema.MalformedMetadataError{
			Entity:  entity,
			Member:  dp.Name,
			Message: fmt.Sprintf("complex property of type %q cannot be stored in a column", dp.ComplexTypeName),
		}
	}

	spec, err := schema.ParseTypeSpec(dp.DataType)
	if err != nil {
		return nil, &schema.MalformedMetadataError{
			Entity:  entity,
			Member:  dp.Name,
			Message: err.Error(),
			Hint:    "use String, Int16, Int32, Int64, Decimal, Double, Single, DateTime, DateTimeOffset, Boolean, Binary or Guid",
		}
	}
	spec.MaxLength = dp.MaxLength
	spec.Precision = dp.Precision
	spec.Scale = dp.Scale

	// Keys default to NOT NULL; only an explicit isNullable: true on a key is rejected.
	nullable := !dp.IsPartOfKey
	if dp.IsNullable != nil {
		nullable = *dp.IsNullable
	}

	return &schema.DataProperty{
		Name:       dp.Name,
		ColumnName: naming(dp.Name),
		Type:       spec,
		Nullable:   nullable,
		Default:    dp.DefaultValue,
		IsKey:      dp.IsPartOfKey,
	}, nil
}
