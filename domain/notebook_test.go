package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotebook_Create(t *testing.T) {
	t.Run("creates at root with empty parent", func(t *testing.T) {
		nb := NewNotebook(NewNotebookID())

		err := nb.Create("", "Work")

		require.NoError(t, err)
		assert.Equal(t, "Work", nb.Name)
		assert.True(t, nb.ParentID.IsEmpty())
		require.Len(t, nb.UncommittedEvents(), 1)
	})

	t.Run("creates under a parent", func(t *testing.T) {
		parentID := NewNotebookID()
		nb := NewNotebook(NewNotebookID())

		require.NoError(t, nb.Create(parentID, "Projects"))

		assert.Equal(t, parentID, nb.ParentID)
	})

	t.Run("rejects self as parent", func(t *testing.T) {
		id := NewNotebookID()
		nb := NewNotebook(id)

		assert.ErrorIs(t, nb.Create(id, "Loop"), ErrNotebookOwnParent)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		nb := NewNotebook(NewNotebookID())

		assert.ErrorIs(t, nb.Create("", ""), ErrEmptyName)
	})
}

func TestNotebook_Mutations(t *testing.T) {
	newCreated := func(t *testing.T) *Notebook {
		t.Helper()
		nb := NewNotebook(NewNotebookID())
		require.NoError(t, nb.Create("", "Work"))
		return nb
	}

	t.Run("rename", func(t *testing.T) {
		nb := newCreated(t)

		require.NoError(t, nb.Rename("Archive"))

		assert.Equal(t, "Archive", nb.Name)
	})

	t.Run("move rejects self-parenting", func(t *testing.T) {
		nb := newCreated(t)

		assert.ErrorIs(t, nb.MoveTo(nb.ID()), ErrNotebookOwnParent)
	})

	t.Run("move to new parent", func(t *testing.T) {
		nb := newCreated(t)
		parentID := NewNotebookID()

		require.NoError(t, nb.MoveTo(parentID))

		assert.Equal(t, parentID, nb.ParentID)
	})

	t.Run("mutations rejected after delete", func(t *testing.T) {
		nb := newCreated(t)
		require.NoError(t, nb.Delete())

		assert.ErrorIs(t, nb.Rename("x"), ErrNotebookDeleted)
	})
}

func TestNotebook_ReplayEquivalence(t *testing.T) {
	original := NewNotebook(NewNotebookID())
	require.NoError(t, original.Create("", "Work"))
	require.NoError(t, original.Rename("Archive"))
	require.NoError(t, original.MoveTo(NewNotebookID()))

	replayed := NewNotebook(original.ID())
	for _, event := range original.UncommittedEvents() {
		require.NoError(t, replayed.ApplyEvent(event))
	}

	assert.Equal(t, original.Name, replayed.Name)
	assert.Equal(t, original.ParentID, replayed.ParentID)
	assert.Equal(t, original.Deleted, replayed.Deleted)
}
