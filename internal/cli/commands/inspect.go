package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/breeze/internal/cli/ui"
	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

func newInspectCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [model]",
		Short: "Show the models and tables compiled from the metadata document",
		Long: `Without arguments, list every model with its table and key.
With a model or resource name, show its columns and relationships.`,
		Example: `  breeze inspect
  breeze inspect Order
  breeze inspect Orders --dialect sqlserver`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			defer p.close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				renderModels(out, p, flags.noColor)
				return nil
			}

			entity, ok := p.schema.Entity(args[0])
			if !ok {
				entity, ok = p.schema.EntityByResource(args[0])
			}
			if !ok {
				ui.ModelNotFound(args[0], ui.Suggest(args[0], modelNames(p.schema), 3), flags.noColor).
					Write(cmd.ErrOrStderr())
				return &reportedError{err: fmt.Errorf("model %q not found", args[0])}
			}

			renderModel(out, p, entity, flags.noColor)
			return nil
		},
	}
}

// modelNames returns entity and resource names for suggestions
func modelNames(s *schema.Schema) []string {
	names := s.Names()
	for resource := range s.Resources() {
		names = append(names, resource)
	}
	sort.Strings(names[len(s.Entities):])
	return names
}

func renderModels(w io.Writer, p *project, noColor bool) {
	ui.Header(w, fmt.Sprintf("Models (%s)", p.dialect.Name()), noColor)

	models := ui.NewTable(w, noColor, "Model", "Table", "Resource", "Key", "Key generation", "Columns")
	var joins []*codegen.TableDef
	for _, t := range p.tables {
		if t.Entity == nil {
			joins = append(joins, t)
			continue
		}
		models.AddRow(
			t.Entity.Name,
			t.Name,
			t.Entity.ResourceName,
			strings.Join(t.PrimaryKey, ", "),
			t.Entity.KeyGeneration.String(),
			strconv.Itoa(len(t.Columns)),
		)
	}
	models.Render()

	if len(joins) == 0 {
		return
	}
	fmt.Fprintln(w)
	ui.Header(w, "Join tables", noColor)
	table := ui.NewTable(w, noColor, "Table", "Left", "Right", "Columns")
	for _, t := range joins {
		table.AddRow(t.Name, t.JoinTable.Left.Name, t.JoinTable.Right.Name, strings.Join(t.ColumnNames(), ", "))
	}
	table.Render()
}

func renderModel(w io.Writer, p *project, e *schema.EntityType, noColor bool) {
	var def *codegen.TableDef
	for _, t := range p.tables {
		if t.Entity == e {
			def = t
			break
		}
	}

	ui.Header(w, e.QualifiedName(), noColor)
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Table", def.Name)
	kv.AddRow("Resource", e.ResourceName)
	kv.AddRow("Key generation", e.KeyGeneration.String())
	kv.AddRow("Dialect", p.dialect.Name())
	kv.Render()

	fmt.Fprintln(w)
	columns := ui.NewTable(w, noColor, "Column", "Property", "Type", "Null", "Key", "Default")
	for _, c := range def.Columns {
		columns.AddRow(c.Name, c.Property, c.SQLType, yesNo(c.Nullable), keyMarker(c), c.Default)
	}
	columns.Render()

	if len(e.Navigations) == 0 {
		return
	}
	fmt.Fprintln(w)
	rels := ui.NewTable(w, noColor, "Navigation", "Target", "Kind", "Foreign key")
	for _, nav := range e.Navigations {
		a := nav.Association()
		if a == nil {
			rels.AddRow(nav.Name, nav.Target, "unresolved", "")
			continue
		}
		target := a.Principal
		if nav == a.PrincipalNav {
			target = a.Dependent
		}
		rels.AddRow(nav.Name, target.Name, a.Kind.String(), storageOf(a))
	}
	rels.Render()
}

// storageOf names the columns or join table backing an association
func storageOf(a *schema.Association) string {
	if a.JoinTable != nil {
		return a.JoinTable.TableName
	}
	cols := make([]string, len(a.ForeignKeys))
	for i, fk := range a.ForeignKeys {
		cols[i] = a.Dependent.Name + "." + fk.ColumnName
	}
	return strings.Join(cols, ", ")
}

func keyMarker(c *codegen.ColumnDef) string {
	switch {
	case c.Identity:
		return "PK (identity)"
	case c.PrimaryKey:
		return "PK"
	default:
		return ""
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
