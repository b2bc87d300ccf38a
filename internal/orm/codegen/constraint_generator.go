package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/breeze/internal/orm/dialect"
)

// ConstraintGenerator renders foreign-key constraints
type ConstraintGenerator struct {
	dialect dialect.Dialect
}

// NewConstraintGenerator creates a new constraint generator
func NewConstraintGenerator(d dialect.Dialect) *ConstraintGenerator {
	return &ConstraintGenerator{dialect: d}
}

// foreignKeyClause renders CONSTRAINT ... FOREIGN KEY ... REFERENCES ...
func (g *ConstraintGenerator) foreignKeyClause(fk *ForeignKeyDef) string {
	q := g.dialect.QuoteIdentifier
	cols := make([]string, len(fk.Columns))
	for i, c := range fk.Columns {
		cols[i] = q(c)
	}
	refs := make([]string, len(fk.RefColumns))
	for i, c := range fk.RefColumns {
		refs[i] = q(c)
	}

	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		q(fk.Name), strings.Join(cols, ", "), q(fk.RefTable), strings.Join(refs, ", "))
	if fk.OnDelete != "" {
		clause += " ON DELETE " + fk.OnDelete
	}
	return clause
}

// GenerateDeferredForeignKeys emits ALTER TABLE ... ADD CONSTRAINT for foreign keys that
// close a dependency cycle. Dialects without ADD CONSTRAINT support get none.
func (g *ConstraintGenerator) GenerateDeferredForeignKeys(tables []*TableDef) []string {
	if !g.dialect.SupportsAddConstraint() {
		return nil
	}

	var statements []string
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if !fk.Deferred {
				continue
			}
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD %s;",
				g.dialect.QuoteIdentifier(t.Name), g.foreignKeyClause(fk)))
		}
	}
	return statements
}

// GenerateDropDeferredForeignKeys removes the cycle-closing foreign keys so the tables
// can be dropped in reverse dependency order
func (g *ConstraintGenerator) GenerateDropDeferredForeignKeys(tables []*TableDef) []string {
	if !g.dialect.SupportsAddConstraint() {
		return nil
	}

	var statements []string
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if fk.Deferred {
				statements = append(statements, g.dialect.DropConstraint(t.Name, fk.Name))
			}
		}
	}
	return statements
}
