package inkwell

import (
	"context"
	"time"

	"github.com/inkwell-notes/inkwell/adapters"
)

// Projection transforms events into an optimized read model. A projection
// must be a pure fold over the log: applying the same events in the same
// order always produces the same read model.
type Projection interface {
	// Name returns the unique identifier for this projection.
	// This name keys the projection's checkpoint and status row.
	Name() string

	// HandledEvents returns the list of event types this projection handles.
	// An empty list means the projection handles all event types.
	HandledEvents() []string

	// Apply folds a single event into the read model.
	// Events arrive in global order. An error stops the run for this
	// projection; the event's position is never checkpointed.
	Apply(ctx context.Context, event StoredEvent) error

	// Reset clears the read model back to empty, before a full rebuild.
	Reset(ctx context.Context) error
}

// ProjectionState is the persisted lifecycle state of a projection.
// Re-exported from the adapters package for convenience.
type ProjectionState = adapters.ProjectionState

const (
	// ProjectionReady means the projection is consistent up to its checkpoint.
	ProjectionReady = adapters.ProjectionReady

	// ProjectionRebuilding means a full rebuild is in progress.
	ProjectionRebuilding = adapters.ProjectionRebuilding

	// ProjectionError means a fold failed and an operator rebuild is needed.
	ProjectionError = adapters.ProjectionError
)

// ProjectionStatus describes a projection's persisted state.
type ProjectionStatus struct {
	// Name is the projection name.
	Name string

	// State is the current lifecycle state.
	State ProjectionState

	// LastProcessedPosition is the stream position checkpoint.
	LastProcessedPosition uint64

	// EventCount is the number of events folded since the last rebuild.
	EventCount int64

	// LastRebuiltAt is when the last full rebuild completed, nil if never.
	LastRebuiltAt *time.Time

	// LastUpdatedAt is when the status row was last written.
	LastUpdatedAt time.Time

	// Error contains the fold error message if State is ProjectionError.
	Error string

	// Lag is the number of positions behind the head of the event store.
	Lag uint64
}

// ProjectionMetrics collects metrics about projection processing.
type ProjectionMetrics interface {
	// RecordEventProcessed records that an event was folded.
	RecordEventProcessed(projectionName, eventType string, duration time.Duration, success bool)

	// RecordBatchProcessed records that a batch of events was folded.
	RecordBatchProcessed(projectionName string, count int, duration time.Duration, success bool)

	// RecordCheckpoint records a checkpoint update.
	RecordCheckpoint(projectionName string, position uint64)

	// RecordRebuild records a completed rebuild with its duration.
	RecordRebuild(projectionName string, duration time.Duration, success bool)
}

// noopProjectionMetrics is a no-op implementation of ProjectionMetrics.
type noopProjectionMetrics struct{}

func (m *noopProjectionMetrics) RecordEventProcessed(projectionName, eventType string, duration time.Duration, success bool) {
}

func (m *noopProjectionMetrics) RecordBatchProcessed(projectionName string, count int, duration time.Duration, success bool) {
}

func (m *noopProjectionMetrics) RecordCheckpoint(projectionName string, position uint64) {
}

func (m *noopProjectionMetrics) RecordRebuild(projectionName string, duration time.Duration, success bool) {
}

// NoopProjectionMetrics returns a ProjectionMetrics that discards everything.
func NoopProjectionMetrics() ProjectionMetrics {
	return &noopProjectionMetrics{}
}

// ProjectionBase provides a default partial implementation of Projection.
// Embed this struct in projection types to get common functionality.
type ProjectionBase struct {
	name          string
	handledEvents []string
}

// NewProjectionBase creates a new ProjectionBase.
func NewProjectionBase(name string, handledEvents ...string) ProjectionBase {
	return ProjectionBase{
		name:          name,
		handledEvents: handledEvents,
	}
}

// Name returns the projection name.
func (p *ProjectionBase) Name() string {
	return p.name
}

// HandledEvents returns the list of event types this projection handles.
func (p *ProjectionBase) HandledEvents() []string {
	return p.handledEvents
}

// HandlesEvent returns true if this projection handles the given event type.
func (p *ProjectionBase) HandlesEvent(eventType string) bool {
	if len(p.handledEvents) == 0 {
		return true
	}
	for _, et := range p.handledEvents {
		if et == eventType {
			return true
		}
	}
	return false
}
