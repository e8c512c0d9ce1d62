// Package inkwell provides the event-sourced persistence core for the Inkwell
// note-taking application: an append-only event store with optimistic
// concurrency, explicit snapshots, and a projection orchestrator that keeps
// read models in sync with the event log.
package inkwell

import (
	"errors"
	"fmt"

	"github.com/inkwell-notes/inkwell/adapters"
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these errors.
// Storage-level sentinels are aliases to the adapters package errors.
var (
	// ErrStreamNotFound indicates the requested stream does not exist.
	ErrStreamNotFound = adapters.ErrStreamNotFound

	// ErrConcurrencyConflict indicates an optimistic concurrency violation.
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict

	// ErrAggregateNotFound indicates neither events nor a snapshot exist for an aggregate.
	ErrAggregateNotFound = errors.New("inkwell: aggregate not found")

	// ErrSerializationFailed indicates event serialization/deserialization failed.
	ErrSerializationFailed = errors.New("inkwell: serialization failed")

	// ErrEventTypeNotRegistered indicates an unknown event type was encountered.
	ErrEventTypeNotRegistered = errors.New("inkwell: event type not registered")

	// ErrStorageFailure indicates the backing store failed at the I/O level.
	ErrStorageFailure = adapters.ErrStorageFailure

	// ErrProjectionFold indicates a projection failed to fold an event.
	ErrProjectionFold = errors.New("inkwell: projection fold failed")

	// ErrProjectionNotFound indicates no projection is registered under a name.
	ErrProjectionNotFound = errors.New("inkwell: projection not found")

	// ErrMigrationFailed indicates the legacy import pipeline failed.
	ErrMigrationFailed = errors.New("inkwell: migration failed")

	// ErrNilAggregate indicates a nil aggregate was passed.
	ErrNilAggregate = errors.New("inkwell: nil aggregate")

	// ErrSnapshotUnsupported indicates the aggregate does not implement Snapshotter.
	ErrSnapshotUnsupported = errors.New("inkwell: aggregate does not support snapshots")

	// ErrEmptyStreamID indicates an empty stream ID was provided.
	ErrEmptyStreamID = adapters.ErrEmptyStreamID

	// ErrNoEvents indicates no events were provided for append.
	ErrNoEvents = adapters.ErrNoEvents

	// ErrInvalidVersion indicates an invalid version number was provided.
	ErrInvalidVersion = adapters.ErrInvalidVersion

	// ErrAdapterClosed indicates the adapter has been closed.
	ErrAdapterClosed = adapters.ErrAdapterClosed
)

// ConcurrencyError provides detailed information about a concurrency conflict.
type ConcurrencyError struct {
	StreamID        string
	ExpectedVersion int64
	ActualVersion   int64
}

// Error returns the error message.
func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("inkwell: concurrency conflict on stream %q: expected version %d, actual version %d",
		e.StreamID, e.ExpectedVersion, e.ActualVersion)
}

// Is reports whether this error matches the target error.
func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrencyConflict || target == adapters.ErrConcurrencyConflict
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *ConcurrencyError) Unwrap() error {
	return ErrConcurrencyConflict
}

// NewConcurrencyError creates a new ConcurrencyError.
func NewConcurrencyError(streamID string, expected, actual int64) *ConcurrencyError {
	return &ConcurrencyError{
		StreamID:        streamID,
		ExpectedVersion: expected,
		ActualVersion:   actual,
	}
}

// StreamNotFoundError provides detailed information about a missing stream.
type StreamNotFoundError struct {
	StreamID string
}

// Error returns the error message.
func (e *StreamNotFoundError) Error() string {
	return fmt.Sprintf("inkwell: stream %q not found", e.StreamID)
}

// Is reports whether this error matches the target error.
func (e *StreamNotFoundError) Is(target error) bool {
	return target == ErrStreamNotFound || target == adapters.ErrStreamNotFound
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *StreamNotFoundError) Unwrap() error {
	return ErrStreamNotFound
}

// NewStreamNotFoundError creates a new StreamNotFoundError.
func NewStreamNotFoundError(streamID string) *StreamNotFoundError {
	return &StreamNotFoundError{StreamID: streamID}
}

// SerializationError provides detailed information about a serialization failure.
type SerializationError struct {
	EventType string
	Operation string // "serialize" or "deserialize"
	Cause     error
}

// Error returns the error message.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("inkwell: failed to %s event type %q: %v",
		e.Operation, e.EventType, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *SerializationError) Is(target error) bool {
	return target == ErrSerializationFailed
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// NewSerializationError creates a new SerializationError.
func NewSerializationError(eventType, operation string, cause error) *SerializationError {
	return &SerializationError{
		EventType: eventType,
		Operation: operation,
		Cause:     cause,
	}
}

// EventTypeNotRegisteredError provides detailed information about an unregistered event type.
type EventTypeNotRegisteredError struct {
	EventType string
}

// Error returns the error message.
func (e *EventTypeNotRegisteredError) Error() string {
	return fmt.Sprintf("inkwell: event type %q not registered", e.EventType)
}

// Is reports whether this error matches the target error.
func (e *EventTypeNotRegisteredError) Is(target error) bool {
	return target == ErrEventTypeNotRegistered
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *EventTypeNotRegisteredError) Unwrap() error {
	return ErrEventTypeNotRegistered
}

// NewEventTypeNotRegisteredError creates a new EventTypeNotRegisteredError.
func NewEventTypeNotRegisteredError(eventType string) *EventTypeNotRegisteredError {
	return &EventTypeNotRegisteredError{EventType: eventType}
}

// StorageError wraps a backing-store I/O failure with the operation that hit it.
type StorageError struct {
	Operation string
	Cause     error
}

// Error returns the error message.
func (e *StorageError) Error() string {
	return fmt.Sprintf("inkwell: storage failure during %s: %v", e.Operation, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(operation string, cause error) *StorageError {
	return &StorageError{Operation: operation, Cause: cause}
}

// ProjectionFoldError reports a projection that failed to apply an event.
// The event's position is never checkpointed past a fold failure.
type ProjectionFoldError struct {
	Projection     string
	EventType      string
	StreamPosition uint64
	Cause          error
}

// Error returns the error message.
func (e *ProjectionFoldError) Error() string {
	return fmt.Sprintf("inkwell: projection %q failed to fold event %q at position %d: %v",
		e.Projection, e.EventType, e.StreamPosition, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *ProjectionFoldError) Is(target error) bool {
	return target == ErrProjectionFold
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *ProjectionFoldError) Unwrap() error {
	return e.Cause
}

// NewProjectionFoldError creates a new ProjectionFoldError.
func NewProjectionFoldError(projection, eventType string, position uint64, cause error) *ProjectionFoldError {
	return &ProjectionFoldError{
		Projection:     projection,
		EventType:      eventType,
		StreamPosition: position,
		Cause:          cause,
	}
}

// MigrationError reports a failure in the legacy import pipeline.
type MigrationError struct {
	Stage string
	Cause error
}

// Error returns the error message.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("inkwell: migration failed during %s: %v", e.Stage, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationFailed
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *MigrationError) Unwrap() error {
	return e.Cause
}

// NewMigrationError creates a new MigrationError.
func NewMigrationError(stage string, cause error) *MigrationError {
	return &MigrationError{Stage: stage, Cause: cause}
}

// AggregateNotFoundError reports a load for an aggregate with no events and no snapshot.
type AggregateNotFoundError struct {
	StreamID string
}

// Error returns the error message.
func (e *AggregateNotFoundError) Error() string {
	return fmt.Sprintf("inkwell: aggregate %q not found", e.StreamID)
}

// Is reports whether this error matches the target error.
func (e *AggregateNotFoundError) Is(target error) bool {
	return target == ErrAggregateNotFound
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *AggregateNotFoundError) Unwrap() error {
	return ErrAggregateNotFound
}

// NewAggregateNotFoundError creates a new AggregateNotFoundError.
func NewAggregateNotFoundError(streamID string) *AggregateNotFoundError {
	return &AggregateNotFoundError{StreamID: streamID}
}
