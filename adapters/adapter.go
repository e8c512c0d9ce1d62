// Package adapters provides interfaces for event store backends.
package adapters

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for adapter implementations.
// Adapters should return these (or errors that match via errors.Is)
// to enable consistent error handling across different backends.
var (
	// ErrConcurrencyConflict is returned when optimistic concurrency check fails.
	ErrConcurrencyConflict = errors.New("inkwell: concurrency conflict")

	// ErrStreamNotFound is returned when a stream does not exist.
	ErrStreamNotFound = errors.New("inkwell: stream not found")

	// ErrEmptyStreamID is returned when an empty stream ID is provided.
	ErrEmptyStreamID = errors.New("inkwell: stream ID is required")

	// ErrNoEvents is returned when attempting to append zero events.
	ErrNoEvents = errors.New("inkwell: no events to append")

	// ErrInvalidVersion is returned when an invalid version is specified.
	ErrInvalidVersion = errors.New("inkwell: invalid version")

	// ErrAdapterClosed is returned when operations are attempted on a closed adapter.
	ErrAdapterClosed = errors.New("inkwell: adapter is closed")

	// ErrStorageFailure is returned when the backing store fails at the I/O level.
	ErrStorageFailure = errors.New("inkwell: storage failure")

	// ErrProjectionMetaNotFound is returned when no metadata row exists for a projection.
	ErrProjectionMetaNotFound = errors.New("inkwell: projection metadata not found")
)

// Metadata contains event context preserved across serialization.
type Metadata struct {
	// CorrelationID links the events produced by one user action.
	CorrelationID string `json:"correlationId,omitempty"`

	// CausationID identifies the event that caused this event.
	CausationID string `json:"causationId,omitempty"`

	// UserID identifies who triggered this event.
	UserID string `json:"userId,omitempty"`

	// Custom holds any additional metadata.
	Custom map[string]string `json:"custom,omitempty"`
}

// StoredEvent represents a persisted event with its storage metadata.
// This is returned when loading events from the store.
type StoredEvent struct {
	// ID is the unique event identifier.
	ID string

	// StreamID is the stream this event belongs to.
	StreamID string

	// Type is the event type identifier.
	Type string

	// Data is the serialized event payload.
	Data []byte

	// Metadata contains contextual information.
	Metadata Metadata

	// SequenceNumber is the 1-based, gapless position within the stream.
	SequenceNumber int64

	// StreamPosition is the global ordering position across all streams.
	StreamPosition uint64

	// Timestamp is when the event was stored.
	Timestamp time.Time
}

// StreamInfo contains metadata about an event stream.
type StreamInfo struct {
	// StreamID is the stream identifier.
	StreamID string

	// Category is the aggregate type (first part of stream ID).
	Category string

	// Version is the current stream version.
	Version int64

	// EventCount is the number of events in the stream.
	EventCount int64

	// CreatedAt is when the first event was stored.
	CreatedAt time.Time

	// UpdatedAt is when the last event was stored.
	UpdatedAt time.Time
}

// EventRecord represents an event to be appended to a stream.
// This is the adapter-level representation of an event.
type EventRecord struct {
	// Type is the event type identifier.
	Type string

	// Data is the serialized event payload.
	Data []byte

	// Metadata contains optional contextual information.
	Metadata Metadata
}

// EventStoreAdapter is the interface that database adapters must implement.
// It provides the low-level operations for persisting and retrieving events.
//
// Implementations assign stream positions from a single counter updated in
// the same transaction as the event inserts, so the global order has no gaps
// and no duplicates.
type EventStoreAdapter interface {
	// Append stores events to the specified stream with optimistic concurrency control.
	// expectedVersion specifies the expected current version of the stream:
	//   - AnyVersion (-1): Skip version check
	//   - NoStream (0): Stream must not exist
	//   - StreamExists (-2): Stream must exist
	//   - Any positive number: Stream must be at this exact version
	// On a version mismatch the append writes nothing and returns a
	// concurrency error. Returns the stored events with their assigned
	// sequence numbers and stream positions.
	Append(ctx context.Context, streamID string, events []EventRecord, expectedVersion int64) ([]StoredEvent, error)

	// Load retrieves all events from a stream with sequence number greater
	// than fromVersion, in sequence order. Use fromVersion=0 for all events.
	Load(ctx context.Context, streamID string, fromVersion int64) ([]StoredEvent, error)

	// LoadFromPosition loads events across all streams with stream position
	// greater than fromPosition, in global order, up to limit events.
	// Repeated calls advancing fromPosition paginate the full log without
	// gaps or duplicates.
	LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]StoredEvent, error)

	// GetStreamInfo returns metadata about a stream.
	// Returns ErrStreamNotFound if the stream does not exist.
	GetStreamInfo(ctx context.Context, streamID string) (*StreamInfo, error)

	// GetCurrentPosition returns the current value of the global stream
	// position counter. Returns 0 if no events have ever been stored.
	GetCurrentPosition(ctx context.Context) (uint64, error)

	// Initialize sets up the required database schema.
	// This should be called once during application startup.
	Initialize(ctx context.Context) error

	// Close releases any resources held by the adapter.
	Close() error
}

// SnapshotAdapter stores aggregate snapshots for faster loading.
// Snapshots are multi-version: saving never overwrites an older version,
// and loading returns the one with the highest version.
type SnapshotAdapter interface {
	// SaveSnapshot stores a snapshot for the given stream at the given version.
	SaveSnapshot(ctx context.Context, record SnapshotRecord) error

	// LoadSnapshot retrieves the highest-version snapshot for the given stream.
	// Returns nil, nil if no snapshot exists.
	LoadSnapshot(ctx context.Context, streamID string) (*SnapshotRecord, error)

	// DeleteSnapshots removes all snapshots for the given stream.
	DeleteSnapshots(ctx context.Context, streamID string) error
}

// SnapshotRecord represents a stored aggregate snapshot.
type SnapshotRecord struct {
	// StreamID is the stream identifier.
	StreamID string

	// AggregateType is the aggregate category.
	AggregateType string

	// Version is the sequence number of the last event folded into the state.
	Version int64

	// State is the encoded snapshot payload.
	State []byte

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time
}

// ProjectionState is the persisted lifecycle state of a projection.
type ProjectionState string

const (
	// ProjectionReady means the projection is consistent up to its checkpoint.
	ProjectionReady ProjectionState = "ready"

	// ProjectionRebuilding means a full rebuild is in progress.
	ProjectionRebuilding ProjectionState = "rebuilding"

	// ProjectionError means a fold failed; the checkpoint is frozen at the
	// last successful position until an operator rebuilds the projection.
	ProjectionError ProjectionState = "error"
)

// ProjectionMetaRecord mirrors one row of the projection metadata table.
type ProjectionMetaRecord struct {
	// ProjectionName is the unique projection identifier.
	ProjectionName string

	// LastProcessedPosition is the stream position checkpoint.
	LastProcessedPosition uint64

	// LastRebuiltAt is when the last full rebuild completed.
	LastRebuiltAt *time.Time

	// LastUpdatedAt is when the row was last written.
	LastUpdatedAt time.Time

	// EventCount is the number of events folded since the last rebuild.
	EventCount int64

	// Status is the projection lifecycle state.
	Status ProjectionState

	// LastError holds the most recent fold error message, if any.
	LastError string
}

// ProjectionMetadataAdapter persists projection checkpoints and status.
type ProjectionMetadataAdapter interface {
	// GetProjectionMeta returns the metadata row for a projection.
	// Returns ErrProjectionMetaNotFound if no row exists.
	GetProjectionMeta(ctx context.Context, projectionName string) (*ProjectionMetaRecord, error)

	// SaveProjectionMeta inserts or updates the metadata row for a projection.
	SaveProjectionMeta(ctx context.Context, record ProjectionMetaRecord) error

	// ListProjectionMeta returns the metadata rows for all known projections.
	ListProjectionMeta(ctx context.Context) ([]ProjectionMetaRecord, error)
}

// HealthChecker provides health check capabilities.
type HealthChecker interface {
	// Ping checks if the adapter can connect to its backend.
	Ping(ctx context.Context) error
}
