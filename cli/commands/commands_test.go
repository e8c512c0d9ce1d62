package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell/cli/config"
	"github.com/inkwell-notes/inkwell/domain"
)

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

// initWorkspace runs 'inkwell init' into a fresh temp directory and chdirs
// into it for the rest of the test.
func initWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, runCommand(t, "init", "--non-interactive"))
	return dir
}

func TestInitCommand(t *testing.T) {
	t.Run("creates config and schema", func(t *testing.T) {
		dir := initWorkspace(t)

		assert.True(t, config.Exists(dir))
		assert.FileExists(t, filepath.Join(dir, "inkwell.db"))

		cfg, err := config.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
	})

	t.Run("running twice is harmless", func(t *testing.T) {
		initWorkspace(t)

		assert.NoError(t, runCommand(t, "init", "--non-interactive"))
	})

	t.Run("rejects an unknown driver", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		err := runCommand(t, "init", "--non-interactive", "--driver", "oracle")

		require.Error(t, err)
		assert.False(t, config.Exists(dir))
	})

	t.Run("memory driver skips schema creation", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		require.NoError(t, runCommand(t, "init", "--non-interactive", "--driver", "memory"))

		assert.True(t, config.Exists(dir))
		assert.NoFileExists(t, filepath.Join(dir, "inkwell.db"))
	})
}

func TestStatusCommand(t *testing.T) {
	t.Run("fails without a config", func(t *testing.T) {
		t.Chdir(t.TempDir())

		assert.Error(t, runCommand(t, "status"))
	})

	t.Run("reports a fresh store", func(t *testing.T) {
		initWorkspace(t)

		assert.NoError(t, runCommand(t, "status"))
	})
}

func TestRebuildCommand(t *testing.T) {
	t.Run("rebuilds projections over appended events", func(t *testing.T) {
		initWorkspace(t)
		ctx := context.Background()

		// Write a couple of events through the store the commands will read.
		env, err := loadEnv(ctx)
		require.NoError(t, err)
		note := domain.NewNote(domain.NewNoteID())
		require.NoError(t, note.Create(domain.NewNotebookID(), "groceries"))
		require.NoError(t, note.EditContent("milk and #errands"))
		require.NoError(t, env.Store.Save(ctx, note))
		env.Close()

		require.NoError(t, runCommand(t, "rebuild", "--force"))

		// Projection metadata is persisted and visible to status.
		env, err = loadEnv(ctx)
		require.NoError(t, err)
		defer env.Close()

		metas, err := env.Adapter.ListProjectionMeta(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, metas)
		for _, m := range metas {
			assert.Equal(t, uint64(2), m.LastProcessedPosition, m.ProjectionName)
			assert.Empty(t, m.LastError)
		}
	})

	t.Run("single projection rebuild", func(t *testing.T) {
		initWorkspace(t)

		require.NoError(t, runCommand(t, "rebuild", "note_tree", "--force"))
	})

	t.Run("unknown projection fails", func(t *testing.T) {
		initWorkspace(t)

		assert.Error(t, runCommand(t, "rebuild", "ghost", "--force"))
	})
}

func TestMigrateCommand(t *testing.T) {
	t.Run("requires a legacy path", func(t *testing.T) {
		initWorkspace(t)

		err := runCommand(t, "migrate")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "legacy")
	})

	t.Run("rejects a missing legacy file", func(t *testing.T) {
		initWorkspace(t)

		err := runCommand(t, "migrate", "--from", "does-not-exist.db")

		require.Error(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	assert.NoError(t, runCommand(t, "version"))
}

func TestLoadEnvValidation(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := config.DefaultConfig()
	cfg.Database.Driver = "postgres"
	cfg.Database.URL = ""
	require.NoError(t, cfg.Save(dir))

	_, err := loadEnv(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestNewAdapterUnsupportedDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "oracle"

	_, err := newAdapter(context.Background(), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDiagnoseChecks(t *testing.T) {
	t.Run("missing config is reported", func(t *testing.T) {
		t.Chdir(t.TempDir())

		result := checkConfiguration(context.Background())

		assert.Equal(t, StatusError, result.Status)
		assert.NotEmpty(t, result.Recommendation)
	})

	t.Run("healthy workspace passes", func(t *testing.T) {
		initWorkspace(t)
		ctx := context.Background()

		assert.Equal(t, StatusOK, checkConfiguration(ctx).Status)
		assert.Equal(t, StatusOK, checkDatabaseConnection(ctx).Status)
		assert.Equal(t, StatusOK, checkEventStoreSchema(false)(ctx).Status)

		// No projections have run yet.
		assert.Equal(t, StatusWarning, checkProjections(ctx).Status)

		require.NoError(t, runCommand(t, "rebuild", "--force"))
		assert.Equal(t, StatusOK, checkProjections(ctx).Status)
	})
}
