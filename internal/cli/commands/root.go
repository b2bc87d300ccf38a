// Package commands implements the breeze command line.
package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand
type globalFlags struct {
	configPath   string
	metadataPath string
	dialect      string
	noColor      bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "breeze",
		Short: "Compile breeze entity metadata into relational tables",
		Long: color.CyanString(`Breeze - metadata driven relational schemas

Breeze reads a breeze metadata document (JSON or YAML), resolves its
associations and creates the matching tables in MySQL, PostgreSQL,
SQLite or SQL Server.

Configuration comes from breeze.yaml, a .env file and BREEZE_*
environment variables, in increasing precedence.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default ./breeze.yaml)")
	pf.StringVarP(&flags.metadataPath, "metadata", "m", "", "metadata document, overrides metadata.path")
	pf.StringVar(&flags.dialect, "dialect", "", "database dialect, overrides database.dialect")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newSyncCommand(flags))
	rootCmd.AddCommand(newDDLCommand(flags))
	rootCmd.AddCommand(newInspectCommand(flags))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the breeze version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "Breeze version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
