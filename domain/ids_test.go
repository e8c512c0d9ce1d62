package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteID_JSON(t *testing.T) {
	t.Run("marshals as a bare string", func(t *testing.T) {
		data, err := json.Marshal(NoteID("abc-123"))

		require.NoError(t, err)
		assert.Equal(t, `"abc-123"`, string(data))
	})

	t.Run("unmarshals a bare string", func(t *testing.T) {
		var id NoteID
		err := json.Unmarshal([]byte(`"abc-123"`), &id)

		require.NoError(t, err)
		assert.Equal(t, NoteID("abc-123"), id)
	})

	t.Run("unmarshals the legacy object form", func(t *testing.T) {
		var id NoteID
		err := json.Unmarshal([]byte(`{"value":"abc-123"}`), &id)

		require.NoError(t, err)
		assert.Equal(t, NoteID("abc-123"), id)
	})

	t.Run("legacy form with upper-case key", func(t *testing.T) {
		var id NoteID
		err := json.Unmarshal([]byte(`{"Value":"abc-123"}`), &id)

		require.NoError(t, err)
		assert.Equal(t, NoteID("abc-123"), id)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		var id NoteID
		err := json.Unmarshal([]byte(`42`), &id)

		assert.Error(t, err)
	})
}

func TestNotebookID_JSON(t *testing.T) {
	t.Run("round-trips inside an event payload", func(t *testing.T) {
		event := NoteCreated{
			NoteID:     NewNoteID(),
			NotebookID: NewNotebookID(),
			Title:      "groceries",
		}

		data, err := json.Marshal(event)
		require.NoError(t, err)

		var decoded NoteCreated
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, event.NoteID, decoded.NoteID)
		assert.Equal(t, event.NotebookID, decoded.NotebookID)
	})

	t.Run("decodes a payload written in the legacy format", func(t *testing.T) {
		payload := []byte(`{"noteId":{"value":"n1"},"notebookId":{"value":"b1"},"title":"old note"}`)

		var decoded NoteCreated
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Equal(t, NoteID("n1"), decoded.NoteID)
		assert.Equal(t, NotebookID("b1"), decoded.NotebookID)
	})
}
