package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

// ColumnDef is one column of a built table
type ColumnDef struct {
	Name       string
	Property   string
	Type       schema.TypeSpec
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Identity   bool
	Default    string
}

// ForeignKeyDef is a foreign-key constraint of a built table
type ForeignKeyDef struct {
	Name        string
	Columns     []string
	RefTable    string
	RefColumns  []string
	OnDelete    string
	Deferred    bool
	Association *schema.Association
}

// TableDef is the realized definition of an entity table or a join table
type TableDef struct {
	Name        string
	Entity      *schema.EntityType
	JoinTable   *schema.JoinTable
	Columns     []*ColumnDef
	PrimaryKey  []string
	ForeignKeys []*ForeignKeyDef
}

// Column returns the column with the given storage name
func (t *TableDef) Column(name string) (*ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnFor returns the column storing the given property
func (t *TableDef) ColumnFor(property string) (*ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Property == property {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns column names in table order
func (t *TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// IdentityColumn returns the database-assigned key column, if any
func (t *TableDef) IdentityColumn() *ColumnDef {
	for _, c := range t.Columns {
		if c.Identity {
			return c
		}
	}
	return nil
}

// Builder compiles a resolved schema into table definitions
type Builder struct {
	dialect    dialect.Dialect
	typeMapper *TypeMapper
}

// NewBuilder creates a Builder for the given dialect
func NewBuilder(d dialect.Dialect) *Builder {
	return &Builder{
		dialect:    d,
		typeMapper: NewTypeMapper(d),
	}
}

// Build returns entity tables in dependency order followed by join tables.
// Columns follow declaration order, with synthesized foreign keys last.
func (b *Builder) Build(s *schema.Schema) ([]*TableDef, error) {
	if !s.IsResolved() {
		return nil, fmt.Errorf("schema associations must be resolved before build")
	}

	order := schema.NewDependencyGraph(s).TopologicalSort()
	tables := make([]*TableDef, 0, len(s.Entities)+len(s.JoinTables))

	for _, e := range order.Entities {
		t, err := b.buildEntityTable(s, e, order)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
		tables = append(tables, t)
	}

	for _, jt := range s.JoinTables {
		t, err := b.buildJoinTable(jt)
		if err != nil {
			return nil, fmt.Errorf("join table %s: %w", jt.Name, err)
		}
		tables = append(tables, t)
	}

	return tables, nil
}

func (b *Builder) buildEntityTable(s *schema.Schema, e *schema.EntityType, order *schema.CreationOrder) (*TableDef, error) {
	t := &TableDef{
		Name:   e.TableName,
		Entity: e,
	}

	fkProps := make(map[*schema.DataProperty]bool)
	for _, a := range s.Associations {
		if a.Dependent == e && a.Kind != schema.ManyToMany {
			for _, fk := range a.ForeignKeys {
				fkProps[fk] = true
			}
		}
	}

	for _, p := range e.Properties {
		col := &ColumnDef{
			Name:       p.ColumnName,
			Property:   p.Name,
			Type:       p.Type,
			Nullable:   p.Nullable,
			PrimaryKey: p.IsKey,
			Identity:   p.IsKey && e.HasIdentityKey(),
		}

		var err error
		if p.IsKey || fkProps[p] {
			col.SQLType, err = b.typeMapper.MapKeyType(p.Type)
		} else {
			col.SQLType, err = b.typeMapper.MapType(p.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.Name, err)
		}

		if !col.Identity {
			col.Default, err = b.typeMapper.MapDefault(p.Type, col.SQLType, p.Default)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", p.Name, err)
			}
		}

		t.Columns = append(t.Columns, col)
		if p.IsKey {
			t.PrimaryKey = append(t.PrimaryKey, col.Name)
		}
	}

	for _, a := range s.Associations {
		if a.Dependent != e || a.Kind == schema.ManyToMany {
			continue
		}
		fk := &ForeignKeyDef{
			RefTable:    a.Principal.TableName,
			Deferred:    order.IsDeferred(a),
			Association: a,
		}
		for _, p := range a.ForeignKeys {
			fk.Columns = append(fk.Columns, p.ColumnName)
		}
		for _, k := range a.Principal.KeyProperties() {
			fk.RefColumns = append(fk.RefColumns, k.ColumnName)
		}
		fk.Name = constraintName(t.Name, fk.Columns)
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}

	return t, nil
}

func (b *Builder) buildJoinTable(jt *schema.JoinTable) (*TableDef, error) {
	t := &TableDef{
		Name:      jt.TableName,
		JoinTable: jt,
	}

	byEntity := func(e *schema.EntityType, left bool) (*ForeignKeyDef, error) {
		fk := &ForeignKeyDef{
			RefTable: e.TableName,
			OnDelete: "CASCADE",
		}
		for _, jc := range jt.ColumnsFor(e, left) {
			sqlType, err := b.typeMapper.MapKeyType(jc.Type)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", jc.Name, err)
			}
			t.Columns = append(t.Columns, &ColumnDef{
				Name:       jc.Name,
				Type:       jc.Type,
				SQLType:    sqlType,
				PrimaryKey: true,
			})
			t.PrimaryKey = append(t.PrimaryKey, jc.Name)
			fk.Columns = append(fk.Columns, jc.Name)
			fk.RefColumns = append(fk.RefColumns, jc.KeyColumn)
		}
		fk.Name = constraintName(t.Name, fk.Columns)
		return fk, nil
	}

	left, err := byEntity(jt.Left, true)
	if err != nil {
		return nil, err
	}
	right, err := byEntity(jt.Right, false)
	if err != nil {
		return nil, err
	}
	t.ForeignKeys = append(t.ForeignKeys, left, right)

	return t, nil
}

// constraintName follows the <table>_<columns>_fkey convention
func constraintName(table string, columns []string) string {
	return fmt.Sprintf("%s_%s_fkey", table, strings.Join(columns, "_"))
}
