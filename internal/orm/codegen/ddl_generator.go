package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/breeze/internal/orm/dialect"
)

// DDLGenerator renders CREATE and DROP statements for built tables
type DDLGenerator struct {
	dialect     dialect.Dialect
	constraints *ConstraintGenerator
}

// NewDDLGenerator creates a new DDL generator
func NewDDLGenerator(d dialect.Dialect) *DDLGenerator {
	return &DDLGenerator{
		dialect:     d,
		constraints: NewConstraintGenerator(d),
	}
}

// GenerateCreateTable generates a CREATE TABLE IF NOT EXISTS statement.
// Deferred foreign keys are left out; see ConstraintGenerator.
func (g *DDLGenerator) GenerateCreateTable(t *TableDef) (string, error) {
	if t == nil {
		return "", fmt.Errorf("table cannot be nil")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", t.Name)
	}

	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	inlineKey := false
	for _, c := range t.Columns {
		lines = append(lines, "  "+g.generateColumnDefinition(c))
		if c.Identity && g.dialect.InlineIdentityKey() {
			inlineKey = true
		}
	}

	if len(t.PrimaryKey) > 0 && !inlineKey {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", g.quoteList(t.PrimaryKey)))
	}

	for _, fk := range t.ForeignKeys {
		if fk.Deferred {
			continue
		}
		lines = append(lines, "  "+g.constraints.foreignKeyClause(fk))
	}

	return g.dialect.CreateTable(t.Name, strings.Join(lines, ",\n")), nil
}

// generateColumnDefinition renders name, type, identity, nullability and default
func (g *DDLGenerator) generateColumnDefinition(c *ColumnDef) string {
	parts := []string{g.dialect.QuoteIdentifier(c.Name), c.SQLType}

	if c.Identity {
		parts = append(parts, g.dialect.IdentityClause())
	}

	if c.Nullable && !c.PrimaryKey {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}

	if c.Default != "" {
		parts = append(parts, "DEFAULT "+c.Default)
	}

	return strings.Join(parts, " ")
}

// GenerateDropTable generates a DROP TABLE IF EXISTS statement
func (g *DDLGenerator) GenerateDropTable(t *TableDef) string {
	return g.dialect.DropTable(t.Name)
}

// GenerateDeferredConstraints returns ALTER TABLE statements for deferred foreign keys
func (g *DDLGenerator) GenerateDeferredConstraints(tables []*TableDef) []string {
	return g.constraints.GenerateDeferredForeignKeys(tables)
}

// GenerateDropDeferredConstraints returns the statements removing deferred foreign keys
func (g *DDLGenerator) GenerateDropDeferredConstraints(tables []*TableDef) []string {
	return g.constraints.GenerateDropDeferredForeignKeys(tables)
}

func (g *DDLGenerator) quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = g.dialect.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
