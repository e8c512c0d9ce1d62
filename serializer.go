package inkwell

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Serializer handles event payload serialization and deserialization.
type Serializer interface {
	// Serialize converts an event to bytes.
	Serialize(event interface{}) ([]byte, error)

	// Deserialize converts bytes back to an event.
	// The eventType selects the registered decoder.
	Deserialize(data []byte, eventType string) (interface{}, error)
}

// TypedEvent is implemented by event payloads to declare their type name.
// The declared name is what gets written to the event_type column and what
// the registry keys decoders by, so it must stay stable across releases.
type TypedEvent interface {
	EventType() string
}

// DecoderFunc decodes a serialized payload into its concrete event value.
type DecoderFunc func(data []byte) (interface{}, error)

// EventRegistry is a closed mapping from event type names to decoder
// functions. Every decodable event type is registered explicitly at startup;
// an unregistered type is a hard error on deserialization, never a fallback
// to an untyped value.
type EventRegistry struct {
	mu       sync.RWMutex
	decoders map[string]DecoderFunc
}

// NewEventRegistry creates a new empty EventRegistry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{
		decoders: make(map[string]DecoderFunc),
	}
}

// Register adds a decoder for the given event type name.
// Registering the same name twice replaces the previous decoder.
func (r *EventRegistry) Register(eventType string, decode DecoderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[eventType] = decode
}

// Lookup returns the decoder for the given event type name.
func (r *EventRegistry) Lookup(eventType string) (DecoderFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[eventType]
	return d, ok
}

// RegisteredTypes returns a slice of all registered event type names.
func (r *EventRegistry) RegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.decoders))
	for t := range r.decoders {
		types = append(types, t)
	}
	return types
}

// Count returns the number of registered event types.
func (r *EventRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decoders)
}

// JSONDecoder returns a DecoderFunc that unmarshals into T.
// Unknown fields in the payload are tolerated; missing fields keep their
// zero values.
func JSONDecoder[T any]() DecoderFunc {
	return func(data []byte) (interface{}, error) {
		var event T
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	}
}

// JSONSerializer is the default Serializer implementation using JSON encoding
// and a closed decoder registry.
type JSONSerializer struct {
	registry *EventRegistry
}

// NewJSONSerializer creates a new JSONSerializer with an empty registry.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{
		registry: NewEventRegistry(),
	}
}

// NewJSONSerializerWithRegistry creates a new JSONSerializer with the given registry.
func NewJSONSerializerWithRegistry(registry *EventRegistry) *JSONSerializer {
	if registry == nil {
		registry = NewEventRegistry()
	}
	return &JSONSerializer{
		registry: registry,
	}
}

// Register adds a decoder to the serializer's registry.
func (s *JSONSerializer) Register(eventType string, decode DecoderFunc) {
	s.registry.Register(eventType, decode)
}

// Registry returns the underlying EventRegistry.
func (s *JSONSerializer) Registry() *EventRegistry {
	return s.registry
}

// Serialize converts an event to JSON bytes.
func (s *JSONSerializer) Serialize(event interface{}) ([]byte, error) {
	if event == nil {
		return nil, NewSerializationError("nil", "serialize", fmt.Errorf("event cannot be nil"))
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, NewSerializationError(EventTypeOf(event), "serialize", err)
	}

	return data, nil
}

// Deserialize converts JSON bytes back to an event using the registered
// decoder. An unregistered event type returns EventTypeNotRegisteredError.
func (s *JSONSerializer) Deserialize(data []byte, eventType string) (interface{}, error) {
	if len(data) == 0 {
		return nil, NewSerializationError(eventType, "deserialize", fmt.Errorf("data cannot be empty"))
	}

	decode, ok := s.registry.Lookup(eventType)
	if !ok {
		return nil, NewEventTypeNotRegisteredError(eventType)
	}

	event, err := decode(data)
	if err != nil {
		return nil, NewSerializationError(eventType, "deserialize", err)
	}
	return event, nil
}

// EventTypeOf returns the declared type name for the given event, or ""
// if the event does not implement TypedEvent.
func EventTypeOf(event interface{}) string {
	if typed, ok := event.(TypedEvent); ok {
		return typed.EventType()
	}
	return ""
}

// SerializeEvent is a convenience function that serializes an event and returns EventData.
func SerializeEvent(serializer Serializer, event interface{}, metadata Metadata) (EventData, error) {
	eventType := EventTypeOf(event)
	if eventType == "" {
		return EventData{}, NewSerializationError("", "serialize", fmt.Errorf("event does not declare a type name"))
	}

	data, err := serializer.Serialize(event)
	if err != nil {
		return EventData{}, err
	}

	return EventData{
		Type:     eventType,
		Data:     data,
		Metadata: metadata,
	}, nil
}

// DeserializeEvent is a convenience function that deserializes a StoredEvent to an Event.
func DeserializeEvent(serializer Serializer, stored StoredEvent) (Event, error) {
	data, err := serializer.Deserialize(stored.Data, stored.Type)
	if err != nil {
		return Event{}, err
	}

	return EventFromStored(stored, data), nil
}
