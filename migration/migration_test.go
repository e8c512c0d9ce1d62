package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/adapters/memory"
	"github.com/inkwell-notes/inkwell/domain"
)

type fakeReader struct {
	folders []LegacyFolder
	notes   []LegacyNote
}

func (r *fakeReader) Folders(ctx context.Context) ([]LegacyFolder, error) {
	return r.folders, nil
}

func (r *fakeReader) Notes(ctx context.Context) ([]LegacyNote, error) {
	return r.notes, nil
}

func newTestStore(t *testing.T) *inkwell.EventStore {
	t.Helper()

	store := inkwell.New(memory.NewAdapter())
	domain.RegisterEvents(store)
	return store
}

func TestPipeline_Run(t *testing.T) {
	t.Run("parents import before children, notes last", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		// Child folder listed before its parent on purpose.
		reader := &fakeReader{
			folders: []LegacyFolder{
				{ID: "B", ParentID: "A", Name: "Child"},
				{ID: "A", ParentID: "", Name: "Root"},
			},
			notes: []LegacyNote{
				{ID: "N", FolderID: "B", Title: "nested note"},
			},
		}

		result, err := NewPipeline(store, WithAutoTag(false)).Run(ctx, reader)

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.NotebooksImported)
		assert.Equal(t, 1, result.NotesImported)
		assert.Equal(t, 3, result.EventsGenerated)

		events, err := store.AllEvents(ctx, 100)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "Notebook-A", events[0].StreamID)
		assert.Equal(t, "Notebook-B", events[1].StreamID)
		assert.Equal(t, "Note-N", events[2].StreamID)
	})

	t.Run("terminal state becomes extra mutations before the save", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		reader := &fakeReader{
			notes: []LegacyNote{
				{ID: "N", FolderID: "", Title: "pinned note", Content: "body", Pinned: true},
			},
		}

		result, err := NewPipeline(store, WithAutoTag(false)).Run(ctx, reader)

		require.NoError(t, err)
		assert.Equal(t, 3, result.EventsGenerated)

		note := domain.NewNote("N")
		require.NoError(t, store.Load(ctx, note))
		assert.Equal(t, "body", note.Content)
		assert.True(t, note.Pinned)
	})

	t.Run("rerun skips already-imported aggregates", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		reader := &fakeReader{
			folders: []LegacyFolder{{ID: "A", Name: "Root"}},
			notes:   []LegacyNote{{ID: "N", FolderID: "A", Title: "note"}},
		}
		pipeline := NewPipeline(store, WithAutoTag(false))

		first, err := pipeline.Run(ctx, reader)
		require.NoError(t, err)
		require.Equal(t, 2, first.EventsGenerated)

		second, err := pipeline.Run(ctx, reader)

		require.NoError(t, err)
		assert.Equal(t, 2, second.Skipped)
		assert.Zero(t, second.NotebooksImported)
		assert.Zero(t, second.NotesImported)
		assert.Zero(t, second.EventsGenerated)

		events, err := store.AllEvents(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("auto-tag extracts hashtags from content", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		reader := &fakeReader{
			notes: []LegacyNote{
				{ID: "N", Title: "note", Content: "remember #work and #home, also #work again"},
			},
		}

		result, err := NewPipeline(store).Run(ctx, reader)

		require.NoError(t, err)
		assert.Equal(t, 2, result.TagsGenerated)

		note := domain.NewNote("N")
		require.NoError(t, store.Load(ctx, note))
		assert.ElementsMatch(t, []string{"work", "home"}, note.Tags)
	})

	t.Run("folder cycle fails in the order stage", func(t *testing.T) {
		store := newTestStore(t)

		reader := &fakeReader{
			folders: []LegacyFolder{
				{ID: "A", ParentID: "B", Name: "a"},
				{ID: "B", ParentID: "A", Name: "b"},
			},
		}

		result, err := NewPipeline(store, WithAutoTag(false)).Run(context.Background(), reader)

		require.Error(t, err)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)

		var migErr *inkwell.MigrationError
		require.ErrorAs(t, err, &migErr)
		assert.Equal(t, "order", migErr.Stage)
	})
}

func TestSQLiteReader(t *testing.T) {
	t.Run("reads the legacy schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "legacy.db")
		db, err := sql.Open("sqlite3", path)
		require.NoError(t, err)

		_, err = db.Exec(`
			CREATE TABLE folders (id TEXT PRIMARY KEY, name TEXT NOT NULL, parent_id TEXT);
			CREATE TABLE notes (id TEXT PRIMARY KEY, folder_id TEXT, title TEXT NOT NULL, content TEXT, pinned INTEGER);
			INSERT INTO folders VALUES ('A', 'Root', NULL), ('B', 'Child', 'A');
			INSERT INTO notes VALUES ('N', 'B', 'nested', 'body', 1);
		`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		reader, err := NewSQLiteReader(path)
		require.NoError(t, err)
		defer reader.Close()

		ctx := context.Background()

		folders, err := reader.Folders(ctx)
		require.NoError(t, err)
		require.Len(t, folders, 2)
		assert.Equal(t, "", folders[0].ParentID)
		assert.Equal(t, "A", folders[1].ParentID)

		notes, err := reader.Notes(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "nested", notes[0].Title)
		assert.Equal(t, "body", notes[0].Content)
		assert.True(t, notes[0].Pinned)
	})
}

func TestOrderByDepth(t *testing.T) {
	t.Run("missing parent is treated as root", func(t *testing.T) {
		ordered, err := orderByDepth([]LegacyFolder{
			{ID: "B", ParentID: "missing", Name: "orphan"},
			{ID: "A", ParentID: "", Name: "root"},
		})

		require.NoError(t, err)
		assert.Len(t, ordered, 2)
	})
}

func TestExtractHashtags(t *testing.T) {
	assert.Nil(t, extractHashtags("no tags here"))
	assert.Equal(t, []string{"a", "b"}, extractHashtags("#a #b #a"))
}
