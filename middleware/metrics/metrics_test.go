package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell/adapters"
	"github.com/inkwell-notes/inkwell/adapters/memory"
)

func TestMetrics_Collectors(t *testing.T) {
	t.Run("all collectors register cleanly", func(t *testing.T) {
		m := New()
		registry := prometheus.NewRegistry()

		for _, c := range m.Collectors() {
			require.NoError(t, registry.Register(c))
		}
	})

	t.Run("custom namespace", func(t *testing.T) {
		m := New(WithNamespace("notesapp"), WithSubsystem("core"))
		registry := prometheus.NewRegistry()

		for _, c := range m.Collectors() {
			require.NoError(t, registry.Register(c))
		}
	})
}

func TestMetrics_WrapAdapter(t *testing.T) {
	t.Run("counts appended and loaded events", func(t *testing.T) {
		m := New()
		wrapped := m.WrapAdapter(memory.NewAdapter())
		ctx := context.Background()

		_, err := wrapped.Append(ctx, "Note-abc", []adapters.EventRecord{
			{Type: "NoteCreated", Data: []byte(`{}`)},
			{Type: "NoteRenamed", Data: []byte(`{}`)},
		}, adapters.NoStream)
		require.NoError(t, err)

		_, err = wrapped.Load(ctx, "Note-abc", 0)
		require.NoError(t, err)

		assert.Equal(t, float64(2), testutil.ToFloat64(m.eventsAppendedTotal))
		assert.Equal(t, float64(2), testutil.ToFloat64(m.eventsLoadedTotal))
		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.storeOperationsTotal.WithLabelValues("append", StatusSuccess)))
	})

	t.Run("failed operations are counted as errors", func(t *testing.T) {
		m := New()
		wrapped := m.WrapAdapter(memory.NewAdapter())

		_, err := wrapped.Append(context.Background(), "", nil, adapters.NoStream)
		require.Error(t, err)

		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.storeOperationsTotal.WithLabelValues("append", StatusError)))
	})
}

func TestMetrics_ProjectionHooks(t *testing.T) {
	m := New()

	m.RecordEventProcessed("note_tree", "NoteCreated", time.Millisecond, true)
	m.RecordBatchProcessed("note_tree", 10, time.Millisecond, true)
	m.RecordCheckpoint("note_tree", 42)
	m.RecordRebuild("note_tree", time.Second, true)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.projectionEventsTotal.WithLabelValues("note_tree", "NoteCreated", StatusSuccess)))
	assert.Equal(t, float64(42), testutil.ToFloat64(
		m.projectionCheckpoint.WithLabelValues("note_tree")))
}
