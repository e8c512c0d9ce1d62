package inkwell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-notes/inkwell/adapters"
)

// ErrSnapshotNotSupported indicates the adapter does not implement SnapshotAdapter.
var ErrSnapshotNotSupported = errors.New("inkwell: adapter does not support snapshots")

// DefaultBatchSize is the page size used when reading the global log.
const DefaultBatchSize = 1000

// EventStore is the main entry point for persistence operations.
// It provides methods for appending events, loading aggregates, managing
// snapshots, and reading the global event log in order.
type EventStore struct {
	adapter       adapters.EventStoreAdapter
	serializer    Serializer
	snapshotCodec SnapshotCodec
	logger        Logger
}

// Logger defines the logging interface for the event store.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// noopLogger is a no-op logger implementation.
type noopLogger struct{}

func (l *noopLogger) Debug(msg string, args ...interface{}) {}
func (l *noopLogger) Info(msg string, args ...interface{})  {}
func (l *noopLogger) Warn(msg string, args ...interface{})  {}
func (l *noopLogger) Error(msg string, args ...interface{}) {}

// NoopLogger returns a Logger that discards everything.
func NoopLogger() Logger {
	return &noopLogger{}
}

// VersionSetter is implemented by aggregates whose version can be set after
// load or save. AggregateBase implements it.
type VersionSetter interface {
	SetVersion(v int64)
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithSerializer sets a custom event serializer.
func WithSerializer(s Serializer) Option {
	return func(es *EventStore) {
		es.serializer = s
	}
}

// WithSnapshotCodec sets a custom snapshot state codec.
func WithSnapshotCodec(c SnapshotCodec) Option {
	return func(es *EventStore) {
		es.snapshotCodec = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(l Logger) Option {
	return func(es *EventStore) {
		es.logger = l
	}
}

// New creates a new EventStore with the given adapter and options.
func New(adapter adapters.EventStoreAdapter, opts ...Option) *EventStore {
	es := &EventStore{
		adapter:       adapter,
		serializer:    NewJSONSerializer(),
		snapshotCodec: NewMsgpackSnapshotCodec(),
		logger:        &noopLogger{},
	}

	for _, opt := range opts {
		opt(es)
	}

	return es
}

// Serializer returns the event store's serializer.
func (s *EventStore) Serializer() Serializer {
	return s.serializer
}

// Adapter returns the underlying adapter.
func (s *EventStore) Adapter() adapters.EventStoreAdapter {
	return s.adapter
}

// RegisterEvent registers a decoder for an event type with the serializer.
func (s *EventStore) RegisterEvent(eventType string, decode DecoderFunc) {
	if js, ok := s.serializer.(*JSONSerializer); ok {
		js.Register(eventType, decode)
	}
}

// AppendOption configures an append or save operation.
type AppendOption func(*appendConfig)

type appendConfig struct {
	metadata           Metadata
	expectedVersion    int64
	hasExpectedVersion bool
}

// ExpectVersion sets the expected stream version for optimistic concurrency.
// For Save this overrides the default of the aggregate's loaded version.
func ExpectVersion(v int64) AppendOption {
	return func(c *appendConfig) {
		c.expectedVersion = v
		c.hasExpectedVersion = true
	}
}

// WithAppendMetadata sets metadata for all events in the operation.
func WithAppendMetadata(m Metadata) AppendOption {
	return func(c *appendConfig) {
		c.metadata = m
	}
}

// Append stores events to the specified stream.
// Events are serialized using the configured serializer; each must declare
// its type name via TypedEvent.
func (s *EventStore) Append(ctx context.Context, streamID string, events []interface{}, opts ...AppendOption) error {
	if streamID == "" {
		return ErrEmptyStreamID
	}

	if len(events) == 0 {
		return ErrNoEvents
	}

	config := &appendConfig{
		expectedVersion: AnyVersion,
	}

	for _, opt := range opts {
		opt(config)
	}

	records, err := s.serializeAll(events, config.metadata)
	if err != nil {
		return err
	}

	_, err = s.adapter.Append(ctx, streamID, records, config.expectedVersion)
	return err
}

// Save persists the aggregate's uncommitted events. The expected version
// defaults to the aggregate's loaded version; ExpectVersion overrides it.
// On a concurrency conflict nothing is written, the aggregate keeps its
// uncommitted events, and the caller decides whether to reload and retry.
func (s *EventStore) Save(ctx context.Context, agg Aggregate, opts ...AppendOption) error {
	if agg == nil {
		return ErrNilAggregate
	}

	events := agg.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	config := &appendConfig{}
	for _, opt := range opts {
		opt(config)
	}

	expectedVersion := agg.Version()
	if config.hasExpectedVersion {
		expectedVersion = config.expectedVersion
	}

	streamID := NewStreamID(agg.AggregateType(), agg.AggregateID()).String()

	records, err := s.serializeAll(events, config.metadata)
	if err != nil {
		return err
	}

	stored, err := s.adapter.Append(ctx, streamID, records, expectedVersion)
	if err != nil {
		return err
	}

	// The adapter assigns the sequence numbers, so the last stored event
	// carries the new version even when a sentinel expected version
	// (AnyVersion, StreamExists) was used.
	newVersion := stored[len(stored)-1].SequenceNumber

	s.logger.Debug("saved aggregate", "stream", streamID, "events", len(events), "version", newVersion)

	if setter, ok := agg.(VersionSetter); ok {
		setter.SetVersion(newVersion)
	}
	agg.ClearUncommittedEvents()

	return nil
}

// Load rehydrates an aggregate: the highest-version snapshot (if the
// aggregate supports snapshots and one exists) plus every event with a
// sequence number greater than the snapshot version. Returns
// ErrAggregateNotFound when neither a snapshot nor events exist.
func (s *EventStore) Load(ctx context.Context, agg Aggregate) error {
	if agg == nil {
		return ErrNilAggregate
	}

	streamID := NewStreamID(agg.AggregateType(), agg.AggregateID()).String()

	var fromVersion int64
	restored := false

	if snapshotter, ok := agg.(Snapshotter); ok {
		if snapAdapter, ok := s.adapter.(adapters.SnapshotAdapter); ok {
			record, err := snapAdapter.LoadSnapshot(ctx, streamID)
			if err != nil {
				return err
			}
			if record != nil {
				state := snapshotter.SnapshotState()
				if err := s.snapshotCodec.Unmarshal(record.State, state); err != nil {
					return err
				}
				if err := snapshotter.RestoreSnapshot(state); err != nil {
					return fmt.Errorf("inkwell: failed to restore snapshot for %q: %w", streamID, err)
				}
				if setter, ok := agg.(VersionSetter); ok {
					setter.SetVersion(record.Version)
				}
				fromVersion = record.Version
				restored = true
			}
		}
	}

	storedEvents, err := s.adapter.Load(ctx, streamID, fromVersion)
	if err != nil {
		return err
	}

	if len(storedEvents) == 0 && !restored {
		return NewAggregateNotFoundError(streamID)
	}

	lastVersion := fromVersion
	for i, stored := range storedEvents {
		data, err := s.serializer.Deserialize(stored.Data, stored.Type)
		if err != nil {
			return fmt.Errorf("inkwell: failed to deserialize event %d: %w", i, err)
		}

		if err := agg.ApplyEvent(data); err != nil {
			return fmt.Errorf("inkwell: failed to apply event %d: %w", i, err)
		}

		lastVersion = stored.SequenceNumber
	}

	if setter, ok := agg.(VersionSetter); ok {
		setter.SetVersion(lastVersion)
	}

	return nil
}

// SaveSnapshot captures the aggregate's current state as an explicit
// snapshot. Snapshots are only ever written through this call; they are a
// performance optimization and the event log stays authoritative.
func (s *EventStore) SaveSnapshot(ctx context.Context, agg Aggregate) error {
	if agg == nil {
		return ErrNilAggregate
	}

	snapshotter, ok := agg.(Snapshotter)
	if !ok {
		return ErrSnapshotUnsupported
	}

	snapAdapter, ok := s.adapter.(adapters.SnapshotAdapter)
	if !ok {
		return ErrSnapshotNotSupported
	}

	state, err := s.snapshotCodec.Marshal(snapshotter.SnapshotState())
	if err != nil {
		return err
	}

	streamID := NewStreamID(agg.AggregateType(), agg.AggregateID()).String()
	record := adapters.SnapshotRecord{
		StreamID:      streamID,
		AggregateType: agg.AggregateType(),
		Version:       agg.Version(),
		State:         state,
		CreatedAt:     time.Now().UTC(),
	}

	if err := snapAdapter.SaveSnapshot(ctx, record); err != nil {
		return err
	}

	s.logger.Debug("saved snapshot", "stream", streamID, "version", record.Version)
	return nil
}

// LoadSnapshot returns the highest-version snapshot for a stream, or nil if
// none exists.
func (s *EventStore) LoadSnapshot(ctx context.Context, streamID string) (*Snapshot, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	snapAdapter, ok := s.adapter.(adapters.SnapshotAdapter)
	if !ok {
		return nil, ErrSnapshotNotSupported
	}

	record, err := snapAdapter.LoadSnapshot(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	return &Snapshot{
		AggregateID:   record.StreamID,
		AggregateType: record.AggregateType,
		Version:       record.Version,
		State:         record.State,
		CreatedAt:     record.CreatedAt,
	}, nil
}

// Events retrieves all events from a stream, deserialized, in sequence order.
func (s *EventStore) Events(ctx context.Context, streamID string) ([]Event, error) {
	return s.EventsSince(ctx, streamID, 0)
}

// EventsSince retrieves events from a stream with sequence number greater
// than fromVersion, deserialized, in sequence order.
func (s *EventStore) EventsSince(ctx context.Context, streamID string, fromVersion int64) ([]Event, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	storedEvents, err := s.adapter.Load(ctx, streamID, fromVersion)
	if err != nil {
		return nil, err
	}

	events := make([]Event, len(storedEvents))
	for i, stored := range storedEvents {
		event, err := DeserializeEvent(s.serializer, convertStoredEventFromAdapter(stored))
		if err != nil {
			return nil, fmt.Errorf("inkwell: failed to deserialize event %d: %w", i, err)
		}
		events[i] = event
	}

	return events, nil
}

// EventsRaw retrieves raw (non-deserialized) events from a stream.
func (s *EventStore) EventsRaw(ctx context.Context, streamID string, fromVersion int64) ([]StoredEvent, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	storedEvents, err := s.adapter.Load(ctx, streamID, fromVersion)
	if err != nil {
		return nil, err
	}

	result := make([]StoredEvent, len(storedEvents))
	for i, stored := range storedEvents {
		result[i] = convertStoredEventFromAdapter(stored)
	}
	return result, nil
}

// EventsSincePosition loads raw events across all streams with stream
// position greater than fromPosition, in global order, up to batchSize
// events. Advancing fromPosition to the last returned position pages through
// the log without gaps or duplicates.
func (s *EventStore) EventsSincePosition(ctx context.Context, fromPosition uint64, batchSize int) ([]StoredEvent, error) {
	events, err := s.adapter.LoadFromPosition(ctx, fromPosition, batchSize)
	if err != nil {
		return nil, err
	}

	result := make([]StoredEvent, len(events))
	for i, e := range events {
		result[i] = convertStoredEventFromAdapter(e)
	}
	return result, nil
}

// AllEvents loads the entire global log in order, paging internally with the
// given batch size (DefaultBatchSize when <= 0). Intended for exports and
// small single-user stores; projections should page with EventsSincePosition.
func (s *EventStore) AllEvents(ctx context.Context, batchSize int) ([]StoredEvent, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var all []StoredEvent
	var position uint64
	for {
		batch, err := s.EventsSincePosition(ctx, position, batchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return all, nil
		}
		all = append(all, batch...)
		position = batch[len(batch)-1].StreamPosition
	}
}

// GetStreamInfo returns metadata about a stream.
func (s *EventStore) GetStreamInfo(ctx context.Context, streamID string) (*StreamInfo, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	info, err := s.adapter.GetStreamInfo(ctx, streamID)
	if err != nil {
		return nil, err
	}

	return &StreamInfo{
		StreamID:   info.StreamID,
		Category:   info.Category,
		Version:    info.Version,
		EventCount: info.EventCount,
		CreatedAt:  info.CreatedAt,
		UpdatedAt:  info.UpdatedAt,
	}, nil
}

// CurrentStreamPosition returns the current value of the global position
// counter, 0 when no events have ever been stored.
func (s *EventStore) CurrentStreamPosition(ctx context.Context) (uint64, error) {
	return s.adapter.GetCurrentPosition(ctx)
}

// Initialize sets up the required storage schema.
func (s *EventStore) Initialize(ctx context.Context) error {
	return s.adapter.Initialize(ctx)
}

// Close releases resources held by the event store.
func (s *EventStore) Close() error {
	return s.adapter.Close()
}

func (s *EventStore) serializeAll(events []interface{}, metadata Metadata) ([]adapters.EventRecord, error) {
	records := make([]adapters.EventRecord, len(events))
	for i, event := range events {
		eventData, err := SerializeEvent(s.serializer, event, metadata)
		if err != nil {
			return nil, fmt.Errorf("inkwell: failed to serialize event %d: %w", i, err)
		}

		records[i] = adapters.EventRecord{
			Type:     eventData.Type,
			Data:     eventData.Data,
			Metadata: convertMetadataToAdapter(eventData.Metadata),
		}
	}
	return records, nil
}

// Conversion helper functions

func convertMetadataToAdapter(m Metadata) adapters.Metadata {
	return adapters.Metadata{
		CorrelationID: m.CorrelationID,
		CausationID:   m.CausationID,
		UserID:        m.UserID,
		Custom:        m.Custom,
	}
}

func convertMetadataFromAdapter(m adapters.Metadata) Metadata {
	return Metadata{
		CorrelationID: m.CorrelationID,
		CausationID:   m.CausationID,
		UserID:        m.UserID,
		Custom:        m.Custom,
	}
}

func convertStoredEventFromAdapter(s adapters.StoredEvent) StoredEvent {
	return StoredEvent{
		ID:             s.ID,
		StreamID:       s.StreamID,
		Type:           s.Type,
		Data:           s.Data,
		Metadata:       convertMetadataFromAdapter(s.Metadata),
		SequenceNumber: s.SequenceNumber,
		StreamPosition: s.StreamPosition,
		Timestamp:      s.Timestamp,
	}
}
