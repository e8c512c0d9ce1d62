// Package commands provides the CLI command implementations for inkwell.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell/cli/styles"
	"github.com/inkwell-notes/inkwell/cli/ui"
)

// Version information (set at build time)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// NewRootCommand creates the root command for the inkwell CLI.
func NewRootCommand() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Event-sourced persistence for your notes",
		Long: ui.Banner() + `

Inkwell stores every change to your notes as an event and derives the
views you read from the event log.

` + styles.Title.Render("Quick Start:") + `

  ` + styles.Code.Render("inkwell init") + `       Create the config and database schema
  ` + styles.Code.Render("inkwell migrate") + `    Import notes from a legacy database
  ` + styles.Code.Render("inkwell status") + `     Show log position and projection health
  ` + styles.Code.Render("inkwell rebuild") + `    Rebuild read models from the event log
  ` + styles.Code.Render("inkwell diagnose") + `   Check your setup`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				styles.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewRebuildCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewDiagnoseCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(styles.FormatError(err.Error()))
		return err
	}

	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(styles.FormatKeyValue("Version", Version))
			fmt.Println(styles.FormatKeyValue("Commit", Commit))
			fmt.Println(styles.FormatKeyValue("Built", BuildDate))
		},
	}
}
