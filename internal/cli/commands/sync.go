package commands

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/breeze/internal/cli/ui"
	"github.com/conduit-lang/breeze/internal/orm/migrate"
)

// confirm asks a yes/no question on the terminal
var confirm = func(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func newSyncCommand(flags *globalFlags) *cobra.Command {
	var drop, yes bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create the tables of the metadata document",
		Long: `Create every table described by the metadata document, referenced
tables first. Existing tables are left untouched unless --drop is given,
in which case they are dropped and recreated with all rows deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags, drop, yes)
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "drop existing tables first (deletes every row)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before dropping tables")

	return cmd
}

func runSync(cmd *cobra.Command, flags *globalFlags, drop, yes bool) error {
	p, err := loadProject(flags)
	if err != nil {
		return err
	}
	defer p.close()

	out := cmd.OutOrStdout()

	if drop && !yes {
		ui.DropWarning(len(p.tables), flags.noColor).Write(cmd.ErrOrStderr())
		ok, err := confirm("Drop and recreate every table?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	m, err := p.manager()
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := cmd.Context()
	message := fmt.Sprintf("Synchronizing %d tables (%s)", len(p.tables), p.dialect.Name())
	err = ui.WithSpinner(out, message, flags.noColor, func() error {
		return m.Sync(ctx, drop)
	})

	var syncErr *migrate.SchemaSyncError
	if errors.As(err, &syncErr) {
		ui.SyncFailed(syncErr.Table, syncErr.Err, flags.noColor).Write(cmd.ErrOrStderr())
		return &reportedError{err: err}
	}
	return err
}
