package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/adapters"
	"github.com/inkwell-notes/inkwell/adapters/memory"
	"github.com/inkwell-notes/inkwell/adapters/postgres"
	"github.com/inkwell-notes/inkwell/adapters/sqlite"
	"github.com/inkwell-notes/inkwell/cli/config"
	"github.com/inkwell-notes/inkwell/domain"
	"github.com/inkwell-notes/inkwell/projections"
)

// CLIAdapter combines the adapter interfaces the CLI commands need.
type CLIAdapter interface {
	adapters.EventStoreAdapter
	adapters.SnapshotAdapter
	adapters.ProjectionMetadataAdapter
}

// relationalAdapter is implemented by adapters backed by database/sql;
// SQL projections attach their read models to the same handle.
type relationalAdapter interface {
	DB() *sql.DB
}

// Env holds everything a command needs to talk to the event store.
type Env struct {
	Config  *config.Config
	Cwd     string
	Adapter CLIAdapter
	Store   *inkwell.EventStore

	cleanup func()
}

// Close releases the Env's resources.
func (e *Env) Close() {
	if e.cleanup != nil {
		e.cleanup()
	}
}

// newAdapter creates the adapter named by the config's database driver.
// For postgres the connection is validated with a short ping so invalid
// URLs fail fast.
func newAdapter(ctx context.Context, cfg *config.Config) (CLIAdapter, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		adapter, err := sqlite.NewAdapter(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return adapter, nil

	case "postgres", "postgresql":
		url := os.ExpandEnv(cfg.Database.URL)
		if url == "" || url == "${INKWELL_DB_URL}" {
			return nil, fmt.Errorf("INKWELL_DB_URL environment variable is not set")
		}

		var opts []postgres.Option
		if cfg.Database.Schema != "" {
			opts = append(opts, postgres.WithSchema(cfg.Database.Schema))
		}

		adapter, err := postgres.NewAdapter(url, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres adapter: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := adapter.Ping(pingCtx); err != nil {
			_ = adapter.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}

		return adapter, nil

	case "memory":
		return memory.NewAdapter(), nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// loadEnv loads the config from the working directory and opens the
// configured backend. The returned Env must be closed by the caller.
func loadEnv(ctx context.Context) (*Env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	_, cfg, err := config.FindConfig(cwd)
	if err != nil {
		return nil, fmt.Errorf("no %s found (run 'inkwell init' first): %w", config.ConfigFileName, err)
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", problems[0])
	}

	adapter, err := newAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := inkwell.New(adapter)
	domain.RegisterEvents(store)

	return &Env{
		Config:  cfg,
		Cwd:     cwd,
		Adapter: adapter,
		Store:   store,
		cleanup: func() { _ = adapter.Close() },
	}, nil
}

// newOrchestrator builds an orchestrator with the standard read models
// registered. SQL-backed projections are attached to relational adapters
// only; the in-memory recent list is always registered.
func newOrchestrator(ctx context.Context, env *Env) (*inkwell.Orchestrator, error) {
	var opts []inkwell.OrchestratorOption
	if env.Config.Store.BatchSize > 0 {
		opts = append(opts, inkwell.WithOrchestratorBatchSize(env.Config.Store.BatchSize))
	}

	orch := inkwell.NewOrchestrator(env.Store, env.Adapter, opts...)

	if rel, ok := env.Adapter.(relationalAdapter); ok {
		noteTree := projections.NewNoteTreeProjection(rel.DB())
		if err := noteTree.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize note tree tables: %w", err)
		}
		if err := orch.Register(noteTree); err != nil {
			return nil, err
		}

		todoStats := projections.NewTodoStatsProjection(rel.DB())
		if err := todoStats.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize todo stats tables: %w", err)
		}
		if err := orch.Register(todoStats); err != nil {
			return nil, err
		}
	}

	if err := orch.Register(projections.NewRecentNotesProjection(0)); err != nil {
		return nil, err
	}

	return orch, nil
}
