package inkwell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPing struct {
	Target string `json:"target"`
}

func (testPing) EventType() string { return "TestPing" }

type testPong struct {
	Reply string `json:"reply"`
}

func (testPong) EventType() string { return "TestPong" }

func TestEventRegistry(t *testing.T) {
	t.Run("register and lookup", func(t *testing.T) {
		registry := NewEventRegistry()
		registry.Register("TestPing", JSONDecoder[testPing]())

		decode, ok := registry.Lookup("TestPing")
		assert.True(t, ok)
		assert.NotNil(t, decode)

		_, ok = registry.Lookup("TestPong")
		assert.False(t, ok)
	})

	t.Run("re-registering replaces the decoder", func(t *testing.T) {
		registry := NewEventRegistry()
		registry.Register("TestPing", JSONDecoder[testPing]())
		registry.Register("TestPing", JSONDecoder[testPong]())

		decode, ok := registry.Lookup("TestPing")
		require.True(t, ok)

		event, err := decode([]byte(`{"reply":"hi"}`))
		require.NoError(t, err)
		assert.Equal(t, testPong{Reply: "hi"}, event)
		assert.Equal(t, 1, registry.Count())
	})

	t.Run("registered types", func(t *testing.T) {
		registry := NewEventRegistry()
		registry.Register("TestPing", JSONDecoder[testPing]())
		registry.Register("TestPong", JSONDecoder[testPong]())

		assert.ElementsMatch(t, []string{"TestPing", "TestPong"}, registry.RegisteredTypes())
		assert.Equal(t, 2, registry.Count())
	})
}

func TestJSONSerializer_Serialize(t *testing.T) {
	s := NewJSONSerializer()

	t.Run("round trip", func(t *testing.T) {
		s.Register("TestPing", JSONDecoder[testPing]())

		data, err := s.Serialize(testPing{Target: "east"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"target":"east"}`, string(data))

		event, err := s.Deserialize(data, "TestPing")
		require.NoError(t, err)
		assert.Equal(t, testPing{Target: "east"}, event)
	})

	t.Run("nil event is rejected", func(t *testing.T) {
		_, err := s.Serialize(nil)

		assert.True(t, errors.Is(err, ErrSerializationFailed))
	})
}

func TestJSONSerializer_Deserialize(t *testing.T) {
	s := NewJSONSerializer()
	s.Register("TestPing", JSONDecoder[testPing]())

	t.Run("unregistered type is a hard error", func(t *testing.T) {
		_, err := s.Deserialize([]byte(`{"target":"east"}`), "Unknown")

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEventTypeNotRegistered))

		var notRegistered *EventTypeNotRegisteredError
		require.ErrorAs(t, err, &notRegistered)
		assert.Equal(t, "Unknown", notRegistered.EventType)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := s.Deserialize([]byte(`{"target":`), "TestPing")

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSerializationFailed))

		var serErr *SerializationError
		require.ErrorAs(t, err, &serErr)
		assert.Equal(t, "TestPing", serErr.EventType)
		assert.Equal(t, "deserialize", serErr.Operation)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := s.Deserialize(nil, "TestPing")

		assert.True(t, errors.Is(err, ErrSerializationFailed))
	})

	t.Run("unknown fields are tolerated", func(t *testing.T) {
		event, err := s.Deserialize([]byte(`{"target":"east","extra":true}`), "TestPing")

		require.NoError(t, err)
		assert.Equal(t, testPing{Target: "east"}, event)
	})

	t.Run("missing fields keep zero values", func(t *testing.T) {
		event, err := s.Deserialize([]byte(`{}`), "TestPing")

		require.NoError(t, err)
		assert.Equal(t, testPing{}, event)
	})
}

func TestEventTypeOf(t *testing.T) {
	assert.Equal(t, "TestPing", EventTypeOf(testPing{}))
	assert.Equal(t, "", EventTypeOf("not an event"))
	assert.Equal(t, "", EventTypeOf(nil))
}

func TestSerializeEvent(t *testing.T) {
	s := NewJSONSerializer()

	t.Run("wraps payload with type and metadata", func(t *testing.T) {
		meta := Metadata{}.WithUserID("local").WithCustom("source", "test")
		data, err := SerializeEvent(s, testPing{Target: "east"}, meta)

		require.NoError(t, err)
		assert.Equal(t, "TestPing", data.Type)
		assert.JSONEq(t, `{"target":"east"}`, string(data.Data))
		assert.Equal(t, "local", data.Metadata.UserID)
		assert.Equal(t, "test", data.Metadata.Custom["source"])
	})

	t.Run("untyped event is rejected", func(t *testing.T) {
		_, err := SerializeEvent(s, struct{ X int }{X: 1}, Metadata{})

		assert.True(t, errors.Is(err, ErrSerializationFailed))
	})
}
