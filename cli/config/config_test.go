package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "inkwell.db", cfg.Database.Path)
	assert.Equal(t, 100, cfg.Store.BatchSize)
	assert.True(t, cfg.Migration.AutoTag)
	assert.Empty(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Database.Path = "notes.db"
	cfg.Migration.LegacyPath = "/old/notes.sqlite"
	require.NoError(t, cfg.Save(dir))

	assert.True(t, Exists(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "notes.db", loaded.Database.Path)
	assert.Equal(t, "/old/notes.sqlite", loaded.Migration.LegacyPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.True(t, os.IsNotExist(err))
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, DefaultConfig().Save(dir))

	t.Setenv("INKWELL_DB_DRIVER", "postgres")
	t.Setenv("INKWELL_DB_URL", "postgres://localhost/inkwell")
	t.Setenv("INKWELL_BATCH_SIZE", "25")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/inkwell", cfg.Database.URL)
	assert.Equal(t, 25, cfg.Store.BatchSize)
}

func TestFindConfig(t *testing.T) {
	t.Run("walks up to the parent directory", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, DefaultConfig().Save(root))

		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0755))

		found, cfg, err := FindConfig(nested)
		require.NoError(t, err)
		assert.Equal(t, root, found)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := FindConfig(t.TempDir())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{
			name:    "missing driver",
			mutate:  func(c *Config) { c.Database.Driver = "" },
			problem: "database.driver is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mongodb" },
			problem: "database.driver must be 'sqlite', 'postgres' or 'memory'",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Database.Driver = "sqlite"
				c.Database.Path = ""
			},
			problem: "database.path is required for the sqlite driver",
		},
		{
			name: "postgres without url",
			mutate: func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.URL = ""
			},
			problem: "database.url is required for the postgres driver",
		},
		{
			name:    "negative batch size",
			mutate:  func(c *Config) { c.Store.BatchSize = -1 },
			problem: "store.batch_size must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Contains(t, cfg.Validate(), tt.problem)
		})
	}

	t.Run("memory driver needs nothing else", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Database.Driver = "memory"
		cfg.Database.Path = ""
		assert.Empty(t, cfg.Validate())
	})
}

func TestGenerateYAML(t *testing.T) {
	out := GenerateYAML(DefaultConfig())

	assert.Contains(t, out, `driver: "sqlite"`)
	assert.Contains(t, out, "batch_size: 100")
	assert.Contains(t, out, "auto_tag: true")
	assert.Contains(t, out, "${INKWELL_DB_URL}")
}
