package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell/cli/styles"
	"github.com/inkwell-notes/inkwell/cli/ui"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show event log position and projection health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			head, err := env.Adapter.GetCurrentPosition(ctx)
			if err != nil {
				return fmt.Errorf("failed to read stream position: %w", err)
			}

			fmt.Println()
			fmt.Println(styles.Title.Render(styles.IconStream + " Event Store"))
			fmt.Println("  " + styles.FormatKeyValue("Driver", env.Config.Database.Driver))
			fmt.Println("  " + styles.FormatKeyValue("Stream position", fmt.Sprintf("%d", head)))

			metas, err := env.Adapter.ListProjectionMeta(ctx)
			if err != nil {
				return fmt.Errorf("failed to list projections: %w", err)
			}

			fmt.Println()
			fmt.Println(styles.Title.Render(styles.IconList + " Projections"))

			if len(metas) == 0 {
				fmt.Println(styles.FormatInfo("No projections have run yet - try 'inkwell rebuild'"))
				return nil
			}

			table := ui.NewTable("Name", "Status", "Checkpoint", "Lag", "Last Rebuilt")
			for _, m := range metas {
				lag := uint64(0)
				if head > m.LastProcessedPosition {
					lag = head - m.LastProcessedPosition
				}

				rebuilt := "never"
				if m.LastRebuiltAt != nil {
					rebuilt = m.LastRebuiltAt.Local().Format(time.DateTime)
				}

				table.AddRow(
					m.ProjectionName,
					ui.StatusBadge(string(m.Status)),
					fmt.Sprintf("%d", m.LastProcessedPosition),
					fmt.Sprintf("%d", lag),
					rebuilt,
				)
			}

			fmt.Println(table.Render())

			for _, m := range metas {
				if m.LastError != "" {
					fmt.Println()
					fmt.Println(styles.FormatError(fmt.Sprintf("%s: %s", m.ProjectionName, m.LastError)))
					fmt.Println(styles.FormatInfo(fmt.Sprintf("Run 'inkwell rebuild %s' to recover", m.ProjectionName)))
				}
			}

			return nil
		},
	}
}
