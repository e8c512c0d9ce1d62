package inkwell

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/inkwell-notes/inkwell/adapters"
)

// Orchestrator coordinates a set of projections against the event store.
// It owns the per-projection checkpoint and status rows: full rebuilds replay
// the whole log through a freshly reset read model, and catch-up folds only
// the events after the checkpoint. Fold errors freeze the checkpoint and park
// the projection in the error state until an operator rebuilds it.
type Orchestrator struct {
	store       *EventStore
	metaStore   adapters.ProjectionMetadataAdapter
	projections map[string]Projection
	order       []string
	logger      Logger
	metrics     ProjectionMetrics
	batchSize   int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorBatchSize sets the batch size for log reads.
func WithOrchestratorBatchSize(size int) OrchestratorOption {
	return func(o *Orchestrator) {
		if size > 0 {
			o.batchSize = size
		}
	}
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithOrchestratorMetrics sets the metrics collector.
func WithOrchestratorMetrics(metrics ProjectionMetrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = metrics
	}
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(store *EventStore, metaStore adapters.ProjectionMetadataAdapter, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		metaStore:   metaStore,
		projections: make(map[string]Projection),
		logger:      &noopLogger{},
		metrics:     &noopProjectionMetrics{},
		batchSize:   DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Register adds a projection. Registration order is the order projections
// are rebuilt and caught up in.
func (o *Orchestrator) Register(p Projection) error {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("inkwell: projection name is required")
	}
	if _, exists := o.projections[name]; exists {
		return fmt.Errorf("inkwell: projection %q already registered", name)
	}
	o.projections[name] = p
	o.order = append(o.order, name)
	return nil
}

// ProjectionNames returns the registered projection names in registration order.
func (o *Orchestrator) ProjectionNames() []string {
	names := make([]string, len(o.order))
	copy(names, o.order)
	return names
}

// RebuildProgress tracks the progress of a projection rebuild.
type RebuildProgress struct {
	// ProjectionName is the projection being rebuilt.
	ProjectionName string

	// TotalPositions is the head position of the log when the rebuild started.
	TotalPositions uint64

	// ProcessedEvents is the number of events seen so far.
	ProcessedEvents uint64

	// CurrentPosition is the last processed stream position.
	CurrentPosition uint64

	// StartedAt is when the rebuild started.
	StartedAt time.Time

	// Completed indicates the rebuild finished.
	Completed bool
}

// ProgressCallback is called after each batch during rebuild.
type ProgressCallback func(progress RebuildProgress)

// RebuildOptions configures a projection rebuild.
type RebuildOptions struct {
	// ProgressCallback is called after each processed batch.
	ProgressCallback ProgressCallback
}

// Status returns the persisted status of a projection, with its lag against
// the current head of the log.
func (o *Orchestrator) Status(ctx context.Context, name string) (*ProjectionStatus, error) {
	if _, ok := o.projections[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrProjectionNotFound, name)
	}

	head, err := o.store.CurrentStreamPosition(ctx)
	if err != nil {
		return nil, err
	}

	meta, err := o.metaStore.GetProjectionMeta(ctx, name)
	if errors.Is(err, adapters.ErrProjectionMetaNotFound) {
		return &ProjectionStatus{Name: name, State: ProjectionReady, Lag: head}, nil
	}
	if err != nil {
		return nil, err
	}

	status := statusFromMeta(*meta)
	if head > meta.LastProcessedPosition {
		status.Lag = head - meta.LastProcessedPosition
	}
	return status, nil
}

// StatusAll returns the status of every registered projection in
// registration order.
func (o *Orchestrator) StatusAll(ctx context.Context) ([]ProjectionStatus, error) {
	statuses := make([]ProjectionStatus, 0, len(o.order))
	for _, name := range o.order {
		status, err := o.Status(ctx, name)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}
	return statuses, nil
}

// Rebuild resets a projection's read model and replays the entire log
// through it. The projection passes through the rebuilding state and ends
// ready, or error if a fold fails. Rebuilding an empty log is valid and
// leaves the checkpoint at 0.
func (o *Orchestrator) Rebuild(ctx context.Context, name string, opts ...RebuildOptions) error {
	p, ok := o.projections[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrProjectionNotFound, name)
	}

	var options RebuildOptions
	if len(opts) > 0 {
		options = opts[0]
	}

	o.logger.Info("starting projection rebuild", "projection", name)
	startedAt := time.Now()

	head, err := o.store.CurrentStreamPosition(ctx)
	if err != nil {
		return err
	}

	if err := o.saveMeta(ctx, adapters.ProjectionMetaRecord{
		ProjectionName: name,
		Status:         adapters.ProjectionRebuilding,
	}); err != nil {
		return err
	}

	if err := p.Reset(ctx); err != nil {
		o.markError(ctx, name, 0, 0, err)
		o.metrics.RecordRebuild(name, time.Since(startedAt), false)
		return fmt.Errorf("inkwell: failed to reset projection %q: %w", name, err)
	}

	var position uint64
	var folded int64
	var seen uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := o.store.EventsSincePosition(ctx, position, o.batchSize)
		if err != nil {
			return fmt.Errorf("inkwell: failed to load events for rebuild of %q: %w", name, err)
		}
		if len(batch) == 0 {
			break
		}

		applied, lastGood, foldErr := o.foldBatch(ctx, p, batch)
		folded += applied
		if foldErr != nil {
			o.markError(ctx, name, max(lastGood, position), folded, foldErr)
			o.metrics.RecordRebuild(name, time.Since(startedAt), false)
			return foldErr
		}

		position = batch[len(batch)-1].StreamPosition
		seen += uint64(len(batch))

		if options.ProgressCallback != nil {
			options.ProgressCallback(RebuildProgress{
				ProjectionName:  name,
				TotalPositions:  head,
				ProcessedEvents: seen,
				CurrentPosition: position,
				StartedAt:       startedAt,
			})
		}
	}

	now := time.Now().UTC()
	if err := o.saveMeta(ctx, adapters.ProjectionMetaRecord{
		ProjectionName:        name,
		LastProcessedPosition: position,
		LastRebuiltAt:         &now,
		EventCount:            folded,
		Status:                adapters.ProjectionReady,
	}); err != nil {
		return err
	}
	o.metrics.RecordCheckpoint(name, position)
	o.metrics.RecordRebuild(name, time.Since(startedAt), true)

	if options.ProgressCallback != nil {
		options.ProgressCallback(RebuildProgress{
			ProjectionName:  name,
			TotalPositions:  head,
			ProcessedEvents: seen,
			CurrentPosition: position,
			StartedAt:       startedAt,
			Completed:       true,
		})
	}

	o.logger.Info("projection rebuild completed",
		"projection", name,
		"events", folded,
		"duration", time.Since(startedAt))

	return nil
}

// RebuildAll rebuilds every registered projection in registration order.
// A failing projection is left in the error state and the remaining
// projections are still rebuilt; the joined errors are returned.
func (o *Orchestrator) RebuildAll(ctx context.Context, opts ...RebuildOptions) error {
	var errs []error
	for _, name := range o.order {
		if err := o.Rebuild(ctx, name, opts...); err != nil {
			if ctx.Err() != nil {
				errs = append(errs, err)
				break
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CatchUp folds the events after each projection's checkpoint, in
// registration order. Projections in the error or rebuilding state are
// skipped; recovery from error is an operator-initiated rebuild.
func (o *Orchestrator) CatchUp(ctx context.Context) error {
	var errs []error
	for _, name := range o.order {
		if err := o.CatchUpProjection(ctx, name); err != nil {
			if ctx.Err() != nil {
				errs = append(errs, err)
				break
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CatchUpProjection folds the events after one projection's checkpoint.
// Re-delivered events below the checkpoint are never folded twice, so
// catch-up is idempotent.
func (o *Orchestrator) CatchUpProjection(ctx context.Context, name string) error {
	p, ok := o.projections[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrProjectionNotFound, name)
	}

	meta, err := o.metaStore.GetProjectionMeta(ctx, name)
	if errors.Is(err, adapters.ErrProjectionMetaNotFound) {
		meta = &adapters.ProjectionMetaRecord{
			ProjectionName: name,
			Status:         adapters.ProjectionReady,
		}
	} else if err != nil {
		return err
	}

	if meta.Status != adapters.ProjectionReady {
		o.logger.Debug("skipping catch-up", "projection", name, "status", meta.Status)
		return nil
	}

	position := meta.LastProcessedPosition
	folded := meta.EventCount

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := o.store.EventsSincePosition(ctx, position, o.batchSize)
		if err != nil {
			return fmt.Errorf("inkwell: failed to load events for catch-up of %q: %w", name, err)
		}
		if len(batch) == 0 {
			break
		}

		applied, lastGood, foldErr := o.foldBatch(ctx, p, batch)
		folded += applied
		if foldErr != nil {
			o.markError(ctx, name, max(lastGood, position), folded, foldErr)
			return foldErr
		}

		position = batch[len(batch)-1].StreamPosition
		start := time.Now()
		if err := o.saveMeta(ctx, adapters.ProjectionMetaRecord{
			ProjectionName:        name,
			LastProcessedPosition: position,
			LastRebuiltAt:         meta.LastRebuiltAt,
			EventCount:            folded,
			Status:                adapters.ProjectionReady,
		}); err != nil {
			return err
		}
		o.metrics.RecordCheckpoint(name, position)
		o.metrics.RecordBatchProcessed(name, len(batch), time.Since(start), true)
	}

	if position == meta.LastProcessedPosition {
		// Nothing new; still make sure a status row exists.
		return o.saveMeta(ctx, *meta)
	}
	return nil
}

// foldBatch applies the handled events of a batch to a projection. It
// returns the count of folded events, the position of the last event the
// projection accepted, and the fold error if one occurred.
func (o *Orchestrator) foldBatch(ctx context.Context, p Projection, batch []StoredEvent) (int64, uint64, error) {
	handled := p.HandledEvents()

	var folded int64
	var lastGood uint64

	for _, event := range batch {
		if len(handled) > 0 && !slices.Contains(handled, event.Type) {
			lastGood = event.StreamPosition
			continue
		}

		start := time.Now()
		if err := p.Apply(ctx, event); err != nil {
			o.metrics.RecordEventProcessed(p.Name(), event.Type, time.Since(start), false)
			return folded, lastGood, NewProjectionFoldError(p.Name(), event.Type, event.StreamPosition, err)
		}
		o.metrics.RecordEventProcessed(p.Name(), event.Type, time.Since(start), true)

		folded++
		lastGood = event.StreamPosition
	}

	return folded, lastGood, nil
}

// markError parks a projection in the error state with its checkpoint frozen
// at the last successfully folded position.
func (o *Orchestrator) markError(ctx context.Context, name string, position uint64, folded int64, cause error) {
	o.logger.Error("projection fold failed", "projection", name, "position", position, "error", cause)

	record := adapters.ProjectionMetaRecord{
		ProjectionName:        name,
		LastProcessedPosition: position,
		EventCount:            folded,
		Status:                adapters.ProjectionError,
		LastError:             cause.Error(),
	}
	if err := o.saveMeta(ctx, record); err != nil {
		o.logger.Error("failed to persist projection error state", "projection", name, "error", err)
	}
}

func (o *Orchestrator) saveMeta(ctx context.Context, record adapters.ProjectionMetaRecord) error {
	record.LastUpdatedAt = time.Now().UTC()
	return o.metaStore.SaveProjectionMeta(ctx, record)
}

func statusFromMeta(meta adapters.ProjectionMetaRecord) *ProjectionStatus {
	return &ProjectionStatus{
		Name:                  meta.ProjectionName,
		State:                 meta.Status,
		LastProcessedPosition: meta.LastProcessedPosition,
		EventCount:            meta.EventCount,
		LastRebuiltAt:         meta.LastRebuiltAt,
		LastUpdatedAt:         meta.LastUpdatedAt,
		Error:                 meta.LastError,
	}
}
