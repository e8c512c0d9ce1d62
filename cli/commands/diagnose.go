package commands

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/inkwell-notes/inkwell/cli/config"
	"github.com/inkwell-notes/inkwell/cli/styles"
	"github.com/inkwell-notes/inkwell/cli/ui"
	"github.com/inkwell-notes/inkwell/middleware/tracing"
)

// NewDiagnoseCommand creates the diagnose command.
func NewDiagnoseCommand() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run diagnostic checks",
		Long: `Run diagnostic checks on your inkwell setup.

This command verifies:
  • Configuration file validity
  • Database connectivity
  • Event store schema
  • Projection health`,
		Aliases: []string{"diag", "doctor"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.Context(), trace)
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "Emit an OpenTelemetry trace of the probe reads to stdout")

	return cmd
}

// CheckStatus represents the outcome of a diagnostic check.
type CheckStatus int

const (
	StatusOK CheckStatus = iota
	StatusWarning
	StatusError
)

// CheckResult represents the result of a diagnostic check.
type CheckResult struct {
	Name           string
	Status         CheckStatus
	Message        string
	Recommendation string
}

func runDiagnose(ctx context.Context, trace bool) error {
	fmt.Println()
	fmt.Println(ui.Banner())
	fmt.Println()
	fmt.Println(styles.Title.Render(styles.IconInfo + " Running Diagnostics"))
	fmt.Println()

	checks := []struct {
		Name  string
		Check func(ctx context.Context) CheckResult
	}{
		{"Go Runtime", checkGoRuntime},
		{"Configuration", checkConfiguration},
		{"Database Connection", checkDatabaseConnection},
		{"Event Store Schema", checkEventStoreSchema(trace)},
		{"Projections", checkProjections},
	}

	results := make([]CheckResult, 0, len(checks))
	allPassed := true

	for _, check := range checks {
		fmt.Printf("  %s Checking %s... ", styles.IconPending, check.Name)

		result := check.Check(ctx)
		results = append(results, result)

		switch result.Status {
		case StatusOK:
			fmt.Println(styles.SuccessStyle.Render("OK"))
		case StatusWarning:
			fmt.Println(styles.WarningStyle.Render("WARNING"))
			allPassed = false
		default:
			fmt.Println(styles.ErrorStyle.Render("FAILED"))
			allPassed = false
		}

		if result.Message != "" {
			fmt.Printf("    %s\n", styles.Muted.Render(result.Message))
		}
	}

	fmt.Println()
	fmt.Println(ui.Divider(50))
	fmt.Println()

	if allPassed {
		fmt.Println(styles.FormatSuccess("All checks passed. Your inkwell setup is healthy."))
		return nil
	}

	fmt.Println(styles.FormatWarning("Some checks failed or have warnings."))
	fmt.Println()
	fmt.Println(styles.Subtitle.Render("Recommendations:"))
	for _, r := range results {
		if r.Recommendation != "" {
			fmt.Printf("  %s %s\n", styles.IconArrow, r.Recommendation)
		}
	}

	return nil
}

func checkGoRuntime(ctx context.Context) CheckResult {
	return CheckResult{
		Name:    "Go Runtime",
		Status:  StatusOK,
		Message: fmt.Sprintf("%s on %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

func checkConfiguration(ctx context.Context) CheckResult {
	cwd, err := os.Getwd()
	if err != nil {
		return CheckResult{Name: "Configuration", Status: StatusError, Message: err.Error()}
	}

	dir, cfg, err := config.FindConfig(cwd)
	if err != nil {
		return CheckResult{
			Name:           "Configuration",
			Status:         StatusError,
			Message:        "no " + config.ConfigFileName + " found",
			Recommendation: "Run 'inkwell init' to create one",
		}
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		return CheckResult{
			Name:           "Configuration",
			Status:         StatusError,
			Message:        problems[0],
			Recommendation: "Fix " + config.ConfigFileName + " in " + dir,
		}
	}

	return CheckResult{
		Name:    "Configuration",
		Status:  StatusOK,
		Message: "driver: " + cfg.Database.Driver,
	}
}

func checkDatabaseConnection(ctx context.Context) CheckResult {
	env, err := loadEnv(ctx)
	if err != nil {
		return CheckResult{
			Name:           "Database Connection",
			Status:         StatusError,
			Message:        err.Error(),
			Recommendation: "Check the database settings in " + config.ConfigFileName,
		}
	}
	defer env.Close()

	return CheckResult{Name: "Database Connection", Status: StatusOK}
}

// checkEventStoreSchema probes the stream position counter; it only exists
// once Initialize has run, so a failed read means the schema is missing.
// With trace enabled the probe runs through the tracing middleware and the
// span is written to stdout.
func checkEventStoreSchema(trace bool) func(ctx context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		env, err := loadEnv(ctx)
		if err != nil {
			return CheckResult{Name: "Event Store Schema", Status: StatusError, Message: err.Error()}
		}
		defer env.Close()

		probe := func(ctx context.Context) (uint64, error) {
			return env.Adapter.GetCurrentPosition(ctx)
		}

		if trace {
			exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
			if err != nil {
				return CheckResult{Name: "Event Store Schema", Status: StatusError, Message: err.Error()}
			}

			provider := sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(exporter),
			)
			defer func() { _ = provider.Shutdown(ctx) }()

			traced := tracing.New(tracing.WithTracerProvider(provider)).WrapAdapter(env.Adapter)
			probe = func(ctx context.Context) (uint64, error) {
				return traced.GetCurrentPosition(ctx)
			}
		}

		head, err := probe(ctx)
		if err != nil {
			return CheckResult{
				Name:           "Event Store Schema",
				Status:         StatusError,
				Message:        err.Error(),
				Recommendation: "Run 'inkwell init' to create the schema",
			}
		}

		return CheckResult{
			Name:    "Event Store Schema",
			Status:  StatusOK,
			Message: fmt.Sprintf("stream position at %d", head),
		}
	}
}

func checkProjections(ctx context.Context) CheckResult {
	env, err := loadEnv(ctx)
	if err != nil {
		return CheckResult{Name: "Projections", Status: StatusError, Message: err.Error()}
	}
	defer env.Close()

	metas, err := env.Adapter.ListProjectionMeta(ctx)
	if err != nil {
		return CheckResult{Name: "Projections", Status: StatusError, Message: err.Error()}
	}

	if len(metas) == 0 {
		return CheckResult{
			Name:           "Projections",
			Status:         StatusWarning,
			Message:        "no projections have run yet",
			Recommendation: "Run 'inkwell rebuild' to build the read models",
		}
	}

	for _, m := range metas {
		if m.LastError != "" {
			return CheckResult{
				Name:           "Projections",
				Status:         StatusError,
				Message:        m.ProjectionName + ": " + m.LastError,
				Recommendation: fmt.Sprintf("Run 'inkwell rebuild %s' to recover", m.ProjectionName),
			}
		}
	}

	return CheckResult{
		Name:    "Projections",
		Status:  StatusOK,
		Message: fmt.Sprintf("%d projections healthy", len(metas)),
	}
}
