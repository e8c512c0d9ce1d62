package inkwell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateBase(t *testing.T) {
	t.Run("identity and version", func(t *testing.T) {
		base := NewAggregateBase("note-1", "Note")

		assert.Equal(t, "note-1", base.AggregateID())
		assert.Equal(t, "Note", base.AggregateType())
		assert.Zero(t, base.Version())
		assert.Equal(t, NewStreamID("Note", "note-1"), base.StreamID())

		base.IncrementVersion()
		base.IncrementVersion()
		assert.Equal(t, int64(2), base.Version())

		base.SetVersion(9)
		assert.Equal(t, int64(9), base.Version())
	})

	t.Run("uncommitted event tracking", func(t *testing.T) {
		base := NewAggregateBase("note-1", "Note")
		assert.False(t, base.HasUncommittedEvents())

		base.Apply("first")
		base.Apply("second")

		assert.True(t, base.HasUncommittedEvents())
		assert.Equal(t, []interface{}{"first", "second"}, base.UncommittedEvents())

		base.ClearUncommittedEvents()
		assert.False(t, base.HasUncommittedEvents())
		assert.Empty(t, base.UncommittedEvents())
	})
}
