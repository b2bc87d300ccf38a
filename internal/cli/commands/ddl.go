package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/breeze/internal/orm/migrate"
)

func newDDLCommand(flags *globalFlags) *cobra.Command {
	var drop bool
	var output string

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the statements sync would run",
		Long: `Print the CREATE TABLE statements for the metadata document in the
order sync runs them. No database connection is made, so only the
dialect needs to be configured.`,
		Example: `  breeze ddl --dialect postgres
  breeze ddl --drop -o schema.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			defer p.close()

			steps, err := migrate.NewSynchronizer(nil, p.dialect, p.tables, p.logger).Plan(drop)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			stmts := make([]string, len(steps))
			for i, step := range steps {
				stmts[i] = step.SQL
			}
			_, err = fmt.Fprintln(w, strings.Join(stmts, "\n\n"))
			return err
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "include DROP TABLE statements")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}
