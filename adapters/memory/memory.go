// Package memory provides an in-memory implementation of the event store
// adapter. It is primarily intended for testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-notes/inkwell/adapters"
)

// Version constants for optimistic concurrency control.
// These are re-exported from the adapters package for convenience.
const (
	AnyVersion   = adapters.AnyVersion
	NoStream     = adapters.NoStream
	StreamExists = adapters.StreamExists
)

// Ensure MemoryAdapter implements all required interfaces.
var (
	_ adapters.EventStoreAdapter         = (*MemoryAdapter)(nil)
	_ adapters.SnapshotAdapter           = (*MemoryAdapter)(nil)
	_ adapters.ProjectionMetadataAdapter = (*MemoryAdapter)(nil)
	_ adapters.HealthChecker             = (*MemoryAdapter)(nil)
)

// MemoryAdapter is an in-memory implementation of EventStoreAdapter.
// It is thread-safe and suitable for unit testing. The global stream
// position is a single counter advanced under the same lock as the append,
// mirroring the single-row counter the durable adapters use.
type MemoryAdapter struct {
	mu             sync.RWMutex
	streams        map[string]*streamData
	globalEvents   []adapters.StoredEvent
	streamPosition uint64
	snapshots      map[string][]adapters.SnapshotRecord
	projectionMeta map[string]adapters.ProjectionMetaRecord
	closed         bool
}

type streamData struct {
	info   adapters.StreamInfo
	events []adapters.StoredEvent
}

// Option configures a MemoryAdapter.
type Option func(*MemoryAdapter)

// NewAdapter creates a new in-memory event store adapter.
func NewAdapter(opts ...Option) *MemoryAdapter {
	adapter := &MemoryAdapter{
		streams:        make(map[string]*streamData),
		globalEvents:   make([]adapters.StoredEvent, 0),
		snapshots:      make(map[string][]adapters.SnapshotRecord),
		projectionMeta: make(map[string]adapters.ProjectionMetaRecord),
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// Initialize is a no-op for the memory adapter.
func (a *MemoryAdapter) Initialize(ctx context.Context) error {
	return nil
}

// Append stores events to the specified stream with optimistic concurrency control.
func (a *MemoryAdapter) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	if streamID == "" {
		return nil, adapters.ErrEmptyStreamID
	}

	if len(events) == 0 {
		return nil, adapters.ErrNoEvents
	}

	stream, exists := a.streams[streamID]
	currentVersion := int64(0)
	if exists {
		currentVersion = stream.info.Version
	}

	if err := adapters.CheckVersion(streamID, expectedVersion, currentVersion, exists); err != nil {
		return nil, err
	}

	if !exists {
		category := adapters.ExtractCategory(streamID)
		stream = &streamData{
			info: adapters.StreamInfo{
				StreamID:  streamID,
				Category:  category,
				Version:   0,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
			events: make([]adapters.StoredEvent, 0),
		}
		a.streams[streamID] = stream
	}

	now := time.Now()
	storedEvents := make([]adapters.StoredEvent, len(events))

	for i, event := range events {
		a.streamPosition++
		currentVersion++

		stored := adapters.StoredEvent{
			ID:             uuid.New().String(),
			StreamID:       streamID,
			Type:           event.Type,
			Data:           event.Data,
			Metadata:       event.Metadata,
			SequenceNumber: currentVersion,
			StreamPosition: a.streamPosition,
			Timestamp:      now,
		}

		stream.events = append(stream.events, stored)
		a.globalEvents = append(a.globalEvents, stored)
		storedEvents[i] = stored
	}

	stream.info.Version = currentVersion
	stream.info.EventCount = int64(len(stream.events))
	stream.info.UpdatedAt = now

	return storedEvents, nil
}

// Load retrieves events from a stream with sequence number greater than fromVersion.
func (a *MemoryAdapter) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	if streamID == "" {
		return nil, adapters.ErrEmptyStreamID
	}

	stream, exists := a.streams[streamID]
	if !exists {
		return []adapters.StoredEvent{}, nil
	}

	events := make([]adapters.StoredEvent, 0)
	for _, event := range stream.events {
		if event.SequenceNumber > fromVersion {
			events = append(events, event)
		}
	}

	return events, nil
}

// LoadFromPosition loads events across all streams with stream position
// greater than fromPosition, in global order, up to limit events.
func (a *MemoryAdapter) LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	limit = adapters.DefaultLimit(limit, 1000)

	events := make([]adapters.StoredEvent, 0)
	for _, event := range a.globalEvents {
		if event.StreamPosition > fromPosition {
			events = append(events, event)
			if len(events) >= limit {
				break
			}
		}
	}

	return events, nil
}

// GetStreamInfo returns metadata about a stream.
func (a *MemoryAdapter) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	stream, exists := a.streams[streamID]
	if !exists {
		return nil, adapters.NewStreamNotFoundError(streamID)
	}

	// Return a copy to prevent mutation
	info := stream.info
	return &info, nil
}

// GetCurrentPosition returns the current value of the global position counter.
func (a *MemoryAdapter) GetCurrentPosition(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return 0, adapters.ErrAdapterClosed
	}

	return a.streamPosition, nil
}

// SaveSnapshot stores a snapshot. Existing snapshots at other versions are
// kept; saving the same version again replaces that version.
func (a *MemoryAdapter) SaveSnapshot(ctx context.Context, record adapters.SnapshotRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return adapters.ErrAdapterClosed
	}

	if record.StreamID == "" {
		return adapters.ErrEmptyStreamID
	}

	snaps := a.snapshots[record.StreamID]
	for i, existing := range snaps {
		if existing.Version == record.Version {
			snaps[i] = record
			a.snapshots[record.StreamID] = snaps
			return nil
		}
	}

	snaps = append(snaps, record)
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Version < snaps[j].Version })
	a.snapshots[record.StreamID] = snaps
	return nil
}

// LoadSnapshot retrieves the highest-version snapshot for the given stream.
// Returns nil, nil if no snapshot exists.
func (a *MemoryAdapter) LoadSnapshot(ctx context.Context, streamID string) (*adapters.SnapshotRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	snaps := a.snapshots[streamID]
	if len(snaps) == 0 {
		return nil, nil
	}

	record := snaps[len(snaps)-1]
	return &record, nil
}

// DeleteSnapshots removes all snapshots for the given stream.
func (a *MemoryAdapter) DeleteSnapshots(ctx context.Context, streamID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return adapters.ErrAdapterClosed
	}

	delete(a.snapshots, streamID)
	return nil
}

// GetProjectionMeta returns the metadata row for a projection.
func (a *MemoryAdapter) GetProjectionMeta(ctx context.Context, projectionName string) (*adapters.ProjectionMetaRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	record, ok := a.projectionMeta[projectionName]
	if !ok {
		return nil, adapters.ErrProjectionMetaNotFound
	}
	return &record, nil
}

// SaveProjectionMeta inserts or updates the metadata row for a projection.
func (a *MemoryAdapter) SaveProjectionMeta(ctx context.Context, record adapters.ProjectionMetaRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return adapters.ErrAdapterClosed
	}

	a.projectionMeta[record.ProjectionName] = record
	return nil
}

// ListProjectionMeta returns the metadata rows for all known projections,
// sorted by name.
func (a *MemoryAdapter) ListProjectionMeta(ctx context.Context) ([]adapters.ProjectionMetaRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	records := make([]adapters.ProjectionMetaRecord, 0, len(a.projectionMeta))
	for _, record := range a.projectionMeta {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ProjectionName < records[j].ProjectionName })
	return records, nil
}

// Ping checks if the adapter is usable.
func (a *MemoryAdapter) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return adapters.ErrAdapterClosed
	}
	return nil
}

// Close marks the adapter as closed.
func (a *MemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	return nil
}

// Reset clears all stored data. Useful between tests.
func (a *MemoryAdapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.streams = make(map[string]*streamData)
	a.globalEvents = make([]adapters.StoredEvent, 0)
	a.streamPosition = 0
	a.snapshots = make(map[string][]adapters.SnapshotRecord)
	a.projectionMeta = make(map[string]adapters.ProjectionMetaRecord)
}

// EventCount returns the total number of stored events.
func (a *MemoryAdapter) EventCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.globalEvents)
}

// StreamCount returns the number of streams.
func (a *MemoryAdapter) StreamCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.streams)
}
