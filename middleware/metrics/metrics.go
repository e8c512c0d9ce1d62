// Package metrics provides Prometheus metrics for the Inkwell persistence
// core: event store operation counters and durations, and an implementation
// of the projection metrics hooks.
//
// Basic usage:
//
//	m := metrics.New(metrics.WithNamespace("inkwell"))
//	prometheus.MustRegister(m.Collectors()...)
//
//	store := inkwell.New(m.WrapAdapter(adapter))
//	orch := inkwell.NewOrchestrator(store, metaStore,
//		inkwell.WithOrchestratorMetrics(m))
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/adapters"
)

// Metric labels.
const (
	LabelOperation      = "operation"
	LabelStatus         = "status"
	LabelProjectionName = "projection_name"
	LabelEventType      = "event_type"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the Prometheus collectors for the persistence core.
type Metrics struct {
	namespace string
	subsystem string

	storeOperationsTotal   *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec
	eventsAppendedTotal    prometheus.Counter
	eventsLoadedTotal      prometheus.Counter

	projectionEventsTotal *prometheus.CounterVec
	projectionBatchTotal  *prometheus.CounterVec
	projectionDuration    *prometheus.HistogramVec
	projectionCheckpoint  *prometheus.GaugeVec
	rebuildDuration       *prometheus.HistogramVec
}

var _ inkwell.ProjectionMetrics = (*Metrics)(nil)

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithNamespace sets the Prometheus namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(m *Metrics) {
		m.namespace = namespace
	}
}

// WithSubsystem sets the Prometheus subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(m *Metrics) {
		m.subsystem = subsystem
	}
}

// New creates a Metrics instance. Collectors are created but not registered;
// call Collectors and register them with your registry.
func New(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		namespace: "inkwell",
	}
	for _, opt := range opts {
		opt(m)
	}

	m.storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_operations_total",
			Help:      "Total number of event store operations.",
		},
		[]string{LabelOperation, LabelStatus},
	)

	m.storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of event store operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelOperation},
	)

	m.eventsAppendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_appended_total",
			Help:      "Total number of events appended to the log.",
		},
	)

	m.eventsLoadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_loaded_total",
			Help:      "Total number of events read from the log.",
		},
	)

	m.projectionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "projection_events_total",
			Help:      "Total number of events folded into projections.",
		},
		[]string{LabelProjectionName, LabelEventType, LabelStatus},
	)

	m.projectionBatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "projection_batches_total",
			Help:      "Total number of projection batches processed.",
		},
		[]string{LabelProjectionName, LabelStatus},
	)

	m.projectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "projection_batch_duration_seconds",
			Help:      "Duration of projection batch processing in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelProjectionName},
	)

	m.projectionCheckpoint = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "projection_checkpoint_position",
			Help:      "Last processed stream position per projection.",
		},
		[]string{LabelProjectionName},
	)

	m.rebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "projection_rebuild_duration_seconds",
			Help:      "Duration of full projection rebuilds in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{LabelProjectionName, LabelStatus},
	)

	return m
}

// Collectors returns all collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.storeOperationsTotal,
		m.storeOperationDuration,
		m.eventsAppendedTotal,
		m.eventsLoadedTotal,
		m.projectionEventsTotal,
		m.projectionBatchTotal,
		m.projectionDuration,
		m.projectionCheckpoint,
		m.rebuildDuration,
	}
}

// RecordEventProcessed implements inkwell.ProjectionMetrics.
func (m *Metrics) RecordEventProcessed(projectionName, eventType string, duration time.Duration, success bool) {
	m.projectionEventsTotal.WithLabelValues(projectionName, eventType, statusLabel(success)).Inc()
}

// RecordBatchProcessed implements inkwell.ProjectionMetrics.
func (m *Metrics) RecordBatchProcessed(projectionName string, count int, duration time.Duration, success bool) {
	m.projectionBatchTotal.WithLabelValues(projectionName, statusLabel(success)).Inc()
	m.projectionDuration.WithLabelValues(projectionName).Observe(duration.Seconds())
}

// RecordCheckpoint implements inkwell.ProjectionMetrics.
func (m *Metrics) RecordCheckpoint(projectionName string, position uint64) {
	m.projectionCheckpoint.WithLabelValues(projectionName).Set(float64(position))
}

// RecordRebuild implements inkwell.ProjectionMetrics.
func (m *Metrics) RecordRebuild(projectionName string, duration time.Duration, success bool) {
	m.rebuildDuration.WithLabelValues(projectionName, statusLabel(success)).Observe(duration.Seconds())
}

func statusLabel(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusError
}

// instrumentedAdapter wraps an EventStoreAdapter with operation metrics.
type instrumentedAdapter struct {
	adapters.EventStoreAdapter
	metrics *Metrics
}

// WrapAdapter wraps an event store adapter so that appends and loads are
// counted and timed. Snapshot and projection-metadata interfaces of the
// wrapped adapter are not re-exposed; pass the raw adapter where those are
// needed.
func (m *Metrics) WrapAdapter(adapter adapters.EventStoreAdapter) adapters.EventStoreAdapter {
	return &instrumentedAdapter{EventStoreAdapter: adapter, metrics: m}
}

func (a *instrumentedAdapter) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	start := time.Now()
	stored, err := a.EventStoreAdapter.Append(ctx, streamID, events, expectedVersion)
	a.record("append", start, err)
	if err == nil {
		a.metrics.eventsAppendedTotal.Add(float64(len(stored)))
	}
	return stored, err
}

func (a *instrumentedAdapter) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	start := time.Now()
	events, err := a.EventStoreAdapter.Load(ctx, streamID, fromVersion)
	a.record("load", start, err)
	if err == nil {
		a.metrics.eventsLoadedTotal.Add(float64(len(events)))
	}
	return events, err
}

func (a *instrumentedAdapter) LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]adapters.StoredEvent, error) {
	start := time.Now()
	events, err := a.EventStoreAdapter.LoadFromPosition(ctx, fromPosition, limit)
	a.record("load_from_position", start, err)
	if err == nil {
		a.metrics.eventsLoadedTotal.Add(float64(len(events)))
	}
	return events, err
}

func (a *instrumentedAdapter) record(operation string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	a.metrics.storeOperationsTotal.WithLabelValues(operation, status).Inc()
	a.metrics.storeOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
