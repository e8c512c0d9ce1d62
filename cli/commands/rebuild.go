package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/cli/styles"
	"github.com/inkwell-notes/inkwell/cli/ui"
)

// NewRebuildCommand creates the rebuild command.
func NewRebuildCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rebuild [projection]",
		Short: "Rebuild read models from the event log",
		Long: `Rebuild one projection, or all of them, by replaying the event log
through a freshly reset read model.

Examples:
  inkwell rebuild              # Rebuild every projection
  inkwell rebuild note_tree    # Rebuild a single projection
  inkwell rebuild --force      # Skip the confirmation prompt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			orch, err := newOrchestrator(ctx, env)
			if err != nil {
				return err
			}

			target := "all projections"
			if len(args) > 0 {
				target = "projection '" + args[0] + "'"
			}

			if !force {
				var confirmed bool
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewConfirm().
							Title(fmt.Sprintf("Rebuild %s?", target)).
							Description("This deletes the derived data and replays every event from the beginning. The event log itself is not touched.").
							Value(&confirmed),
					),
				)

				if err := form.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Println(styles.FormatInfo("Cancelled"))
					return nil
				}
			}

			fmt.Println()

			bar := ui.NewProgressBar("replaying events")
			opts := inkwell.RebuildOptions{
				ProgressCallback: func(p inkwell.RebuildProgress) {
					ratio := 1.0
					if p.TotalPositions > 0 {
						ratio = float64(p.CurrentPosition) / float64(p.TotalPositions)
					}
					fmt.Printf("\r%s %s", styles.Muted.Render(p.ProjectionName), bar.Frame(ratio))
					if p.Completed {
						fmt.Println()
					}
				},
			}

			var rebuildErr error
			if len(args) > 0 {
				rebuildErr = orch.Rebuild(ctx, args[0], opts)
			} else {
				rebuildErr = orch.RebuildAll(ctx, opts)
			}

			fmt.Println()
			printRebuildSummary(cmd, orch)

			if rebuildErr != nil {
				return fmt.Errorf("rebuild finished with errors: %w", rebuildErr)
			}

			fmt.Println(styles.FormatSuccess("Rebuild complete"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func printRebuildSummary(cmd *cobra.Command, orch *inkwell.Orchestrator) {
	statuses, err := orch.StatusAll(cmd.Context())
	if err != nil {
		fmt.Println(styles.FormatWarning("Could not read projection status: " + err.Error()))
		return
	}

	table := ui.NewTable("Name", "Status", "Checkpoint", "Events")
	for _, s := range statuses {
		table.AddRow(
			s.Name,
			ui.StatusBadge(string(s.State)),
			fmt.Sprintf("%d", s.LastProcessedPosition),
			fmt.Sprintf("%d", s.EventCount),
		)
	}

	fmt.Println(table.Render())

	var failing []string
	for _, s := range statuses {
		if s.Error != "" {
			failing = append(failing, s.Name+": "+s.Error)
		}
	}
	if len(failing) > 0 {
		fmt.Println()
		fmt.Println(styles.FormatError(strings.Join(failing, "; ")))
	}
}
