package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell/cli/styles"
	"github.com/inkwell-notes/inkwell/cli/ui"
	"github.com/inkwell-notes/inkwell/migration"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	var (
		from      string
		noAutoTag bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import notes from a legacy database",
		Long: `Import folders and notes from a legacy notes database into the event log.

The import is resumable: notebooks and notes that already have a stream are
skipped, so a failed run can simply be rerun.

Examples:
  inkwell migrate --from ~/old-notes/notes.db
  inkwell migrate                  # Use migration.legacy_path from inkwell.yaml
  inkwell migrate --no-auto-tag    # Skip #hashtag extraction`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			legacyPath := from
			if legacyPath == "" {
				legacyPath = env.Config.Migration.LegacyPath
			}
			if legacyPath == "" {
				return fmt.Errorf("no legacy database given: use --from or set migration.legacy_path")
			}
			if _, err := os.Stat(legacyPath); err != nil {
				return fmt.Errorf("legacy database not found at %s", legacyPath)
			}

			reader, err := migration.NewSQLiteReader(legacyPath)
			if err != nil {
				return fmt.Errorf("failed to open legacy database: %w", err)
			}
			defer reader.Close()

			orch, err := newOrchestrator(ctx, env)
			if err != nil {
				return err
			}

			autoTag := env.Config.Migration.AutoTag && !noAutoTag
			pipeline := migration.NewPipeline(env.Store,
				migration.WithOrchestrator(orch),
				migration.WithAutoTag(autoTag),
			)

			fmt.Println()

			var result *migration.Result
			runErr := ui.RunWithSpinner("Importing from "+legacyPath, func() (string, error) {
				var err error
				result, err = pipeline.Run(ctx, reader)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Imported %d notebooks and %d notes",
					result.NotebooksImported, result.NotesImported), nil
			})

			if result != nil {
				fmt.Println()
				printMigrationSummary(result)
			}

			if runErr != nil {
				return fmt.Errorf("migration failed: %w", runErr)
			}

			fmt.Println()
			fmt.Println(styles.FormatSuccess("Migration complete - run 'inkwell status' to inspect the result"))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Path to the legacy notes database")
	cmd.Flags().BoolVar(&noAutoTag, "no-auto-tag", false, "Do not extract #hashtags from note content")

	return cmd
}

func printMigrationSummary(result *migration.Result) {
	table := ui.NewTable("", "Found", "Imported")
	table.AddRow("Notebooks", fmt.Sprintf("%d", result.NotebooksFound), fmt.Sprintf("%d", result.NotebooksImported))
	table.AddRow("Notes", fmt.Sprintf("%d", result.NotesFound), fmt.Sprintf("%d", result.NotesImported))

	fmt.Println(table.Render())
	fmt.Println()
	fmt.Println("  " + styles.FormatKeyValue("Events written", fmt.Sprintf("%d", result.EventsGenerated)))
	fmt.Println("  " + styles.FormatKeyValue("Tags extracted", fmt.Sprintf("%d", result.TagsGenerated)))
	if result.Skipped > 0 {
		fmt.Println("  " + styles.FormatKeyValue("Already imported", fmt.Sprintf("%d", result.Skipped)))
	}
}
