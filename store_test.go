package inkwell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/adapters"
	"github.com/inkwell-notes/inkwell/adapters/memory"
	"github.com/inkwell-notes/inkwell/domain"
)

// loadSpy records the fromVersion of every stream load, so tests can assert
// how much of the log a rehydration actually read.
type loadSpy struct {
	*memory.MemoryAdapter
	loadedFrom []int64
}

func (s *loadSpy) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	s.loadedFrom = append(s.loadedFrom, fromVersion)
	return s.MemoryAdapter.Load(ctx, streamID, fromVersion)
}

func newTestStore(t *testing.T) *inkwell.EventStore {
	t.Helper()

	store := inkwell.New(memory.NewAdapter())
	domain.RegisterEvents(store)
	return store
}

func TestEventStore_SaveAndLoad(t *testing.T) {
	t.Run("save then load reproduces state", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		note := domain.NewNote(domain.NewNoteID())
		require.NoError(t, note.Create(domain.NewNotebookID(), "groceries"))
		require.NoError(t, note.EditContent("milk, eggs"))
		require.NoError(t, note.Pin())

		require.NoError(t, store.Save(ctx, note))
		assert.Equal(t, int64(3), note.Version())
		assert.False(t, note.HasUncommittedEvents())

		loaded := domain.NewNote(note.ID())
		require.NoError(t, store.Load(ctx, loaded))

		assert.Equal(t, note.Title, loaded.Title)
		assert.Equal(t, note.Content, loaded.Content)
		assert.Equal(t, note.Pinned, loaded.Pinned)
		assert.Equal(t, int64(3), loaded.Version())
	})

	t.Run("loading a missing aggregate fails, not defaults", func(t *testing.T) {
		store := newTestStore(t)

		err := store.Load(context.Background(), domain.NewNote(domain.NewNoteID()))

		require.Error(t, err)
		assert.True(t, errors.Is(err, inkwell.ErrAggregateNotFound))
	})

	t.Run("save with no uncommitted events is a no-op", func(t *testing.T) {
		store := newTestStore(t)

		note := domain.NewNote(domain.NewNoteID())

		assert.NoError(t, store.Save(context.Background(), note))
	})

	t.Run("unregistered event type aborts the load", func(t *testing.T) {
		adapter := memory.NewAdapter()
		store := inkwell.New(adapter)
		// Deliberately no RegisterEvents.
		ctx := context.Background()

		_, err := adapter.Append(ctx, "Note-x", []adapters.EventRecord{
			{Type: "NoteCreated", Data: []byte(`{"noteId":"x","title":"t"}`)},
		}, adapters.NoStream)
		require.NoError(t, err)

		err = store.Load(ctx, domain.NewNote("x"))

		require.Error(t, err)
		assert.True(t, errors.Is(err, inkwell.ErrEventTypeNotRegistered))
	})
}

func TestEventStore_ConcurrencyGuard(t *testing.T) {
	newNoteAtV3 := func(t *testing.T, store *inkwell.EventStore) *domain.Note {
		t.Helper()
		note := domain.NewNote(domain.NewNoteID())
		require.NoError(t, note.Create(domain.NewNotebookID(), "v1"))
		require.NoError(t, note.Rename("v2"))
		require.NoError(t, note.EditContent("v3"))
		require.NoError(t, store.Save(context.Background(), note))
		require.Equal(t, int64(3), note.Version())
		return note
	}

	t.Run("stale expected version appends nothing", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		note := newNoteAtV3(t, store)

		require.NoError(t, note.Pin())
		err := store.Save(ctx, note, inkwell.ExpectVersion(2))

		require.Error(t, err)
		assert.True(t, errors.Is(err, inkwell.ErrConcurrencyConflict))

		events, err := store.EventsRaw(ctx, note.StreamID().String(), 0)
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("matching expected version advances to v4", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		note := newNoteAtV3(t, store)

		require.NoError(t, note.Pin())
		err := store.Save(ctx, note, inkwell.ExpectVersion(3))

		require.NoError(t, err)
		assert.Equal(t, int64(4), note.Version())
	})

	t.Run("unchecked save tracks the stored version", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		note := newNoteAtV3(t, store)

		require.NoError(t, note.Pin())
		require.NoError(t, store.Save(ctx, note, inkwell.ExpectVersion(inkwell.AnyVersion)))
		assert.Equal(t, int64(4), note.Version())

		// The aggregate must be usable for a default-checked save afterwards.
		require.NoError(t, note.Rename("v5"))
		require.NoError(t, store.Save(ctx, note))
		assert.Equal(t, int64(5), note.Version())
	})

	t.Run("two writers of the same stream cannot both win", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		note := newNoteAtV3(t, store)

		// Both copies loaded at version 3.
		first := domain.NewNote(note.ID())
		require.NoError(t, store.Load(ctx, first))
		second := domain.NewNote(note.ID())
		require.NoError(t, store.Load(ctx, second))

		require.NoError(t, first.Pin())
		require.NoError(t, store.Save(ctx, first))

		require.NoError(t, second.Rename("other edit"))
		err := store.Save(ctx, second)

		assert.True(t, errors.Is(err, inkwell.ErrConcurrencyConflict))
	})
}

func TestEventStore_Snapshots(t *testing.T) {
	t.Run("load reads the snapshot plus only newer events", func(t *testing.T) {
		spy := &loadSpy{MemoryAdapter: memory.NewAdapter()}
		store := inkwell.New(spy)
		domain.RegisterEvents(store)
		ctx := context.Background()

		note := domain.NewNote(domain.NewNoteID())
		require.NoError(t, note.Create(domain.NewNotebookID(), "v1"))
		require.NoError(t, note.Rename("v2"))
		require.NoError(t, note.Rename("v3"))
		require.NoError(t, note.Rename("v4"))
		require.NoError(t, note.Rename("v5"))
		require.NoError(t, store.Save(ctx, note))
		require.Equal(t, int64(5), note.Version())

		require.NoError(t, store.SaveSnapshot(ctx, note))

		require.NoError(t, note.Rename("v6"))
		require.NoError(t, note.EditContent("v7"))
		require.NoError(t, store.Save(ctx, note))

		loaded := domain.NewNote(note.ID())
		spy.loadedFrom = nil
		require.NoError(t, store.Load(ctx, loaded))

		// Replay started after the snapshot version, not at zero.
		require.Equal(t, []int64{5}, spy.loadedFrom)
		assert.Equal(t, "v6", loaded.Title)
		assert.Equal(t, "v7", loaded.Content)
		assert.Equal(t, int64(7), loaded.Version())
	})

	t.Run("snapshot alone restores an aggregate with no newer events", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		note := domain.NewNote(domain.NewNoteID())
		require.NoError(t, note.Create(domain.NewNotebookID(), "title"))
		require.NoError(t, store.Save(ctx, note))
		require.NoError(t, store.SaveSnapshot(ctx, note))

		loaded := domain.NewNote(note.ID())
		require.NoError(t, store.Load(ctx, loaded))

		assert.Equal(t, "title", loaded.Title)
		assert.Equal(t, int64(1), loaded.Version())
	})

	t.Run("the store never snapshots on its own", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		note := domain.NewNote(domain.NewNoteID())
		require.NoError(t, note.Create(domain.NewNotebookID(), "title"))
		require.NoError(t, store.Save(ctx, note))

		snap, err := store.LoadSnapshot(ctx, note.StreamID().String())

		require.NoError(t, err)
		assert.Nil(t, snap)
	})
}

func TestEventStore_GlobalReads(t *testing.T) {
	t.Run("paged reads visit every event exactly once", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		for i := 0; i < 7; i++ {
			note := domain.NewNote(domain.NewNoteID())
			require.NoError(t, note.Create(domain.NewNotebookID(), "n"))
			require.NoError(t, store.Save(ctx, note))
		}

		for _, batchSize := range []int{1, 2, 3, 7, 100} {
			seen := make(map[uint64]bool)
			var from uint64
			for {
				batch, err := store.EventsSincePosition(ctx, from, batchSize)
				require.NoError(t, err)
				if len(batch) == 0 {
					break
				}
				for _, event := range batch {
					assert.False(t, seen[event.StreamPosition], "batchSize %d revisited position %d", batchSize, event.StreamPosition)
					seen[event.StreamPosition] = true
				}
				from = batch[len(batch)-1].StreamPosition
			}
			assert.Len(t, seen, 7, "batchSize %d", batchSize)
		}
	})

	t.Run("current stream position matches appended count", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		note := domain.NewNote(domain.NewNoteID())
		require.NoError(t, note.Create(domain.NewNotebookID(), "n"))
		require.NoError(t, note.Rename("m"))
		require.NoError(t, store.Save(ctx, note))

		pos, err := store.CurrentStreamPosition(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), pos)
	})
}
