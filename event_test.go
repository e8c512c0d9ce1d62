package inkwell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamID(t *testing.T) {
	t.Run("string round trip", func(t *testing.T) {
		id := NewStreamID("Note", "8f14e45f")

		parsed, err := ParseStreamID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("instance IDs containing hyphens split on the first one", func(t *testing.T) {
		parsed, err := ParseStreamID("Note-8f14e45f-ceea-4673")

		require.NoError(t, err)
		assert.Equal(t, "Note", parsed.Category)
		assert.Equal(t, "8f14e45f-ceea-4673", parsed.ID)
	})

	t.Run("invalid formats", func(t *testing.T) {
		for _, s := range []string{"", "NoHyphen", "-id", "Note-"} {
			_, err := ParseStreamID(s)
			assert.Error(t, err, s)
		}
	})

	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, NewStreamID("Note", "1").Validate())
		assert.Error(t, NewStreamID("", "1").Validate())
		assert.Error(t, NewStreamID("Note", "").Validate())
		assert.True(t, StreamID{}.IsZero())
	})
}

func TestMetadataBuilders(t *testing.T) {
	m := Metadata{}.
		WithCorrelationID("corr-1").
		WithCausationID("cause-2").
		WithUserID("local").
		WithCustom("source", "import")

	assert.Equal(t, "corr-1", m.CorrelationID)
	assert.Equal(t, "cause-2", m.CausationID)
	assert.Equal(t, "local", m.UserID)
	assert.Equal(t, "import", m.Custom["source"])
	assert.False(t, m.IsEmpty())

	t.Run("builders copy rather than mutate", func(t *testing.T) {
		base := Metadata{}.WithCustom("k", "v")
		derived := base.WithCustom("k2", "v2")

		assert.NotContains(t, base.Custom, "k2")
		assert.Contains(t, derived.Custom, "k")
	})

	t.Run("zero value is empty", func(t *testing.T) {
		assert.True(t, Metadata{}.IsEmpty())
	})
}

func TestEventDataValidate(t *testing.T) {
	valid := NewEventData("NoteCreated", []byte(`{}`))
	assert.NoError(t, valid.Validate())

	assert.Error(t, NewEventData("", []byte(`{}`)).Validate())
	assert.Error(t, NewEventData("NoteCreated", nil).Validate())
}

func TestEventFromStored(t *testing.T) {
	stored := StoredEvent{
		ID:             "evt-1",
		StreamID:       "Note-1",
		Type:           "NoteCreated",
		SequenceNumber: 3,
		StreamPosition: 7,
	}

	event := EventFromStored(stored, map[string]string{"title": "t"})

	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, "NoteCreated", event.Type)
	assert.Equal(t, int64(3), event.SequenceNumber)
	assert.Equal(t, uint64(7), event.StreamPosition)
	assert.Equal(t, map[string]string{"title": "t"}, event.Data)
}
