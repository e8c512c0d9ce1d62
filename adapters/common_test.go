package adapters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionConstants(t *testing.T) {
	assert.Equal(t, int64(-1), AnyVersion)
	assert.Equal(t, int64(0), NoStream)
	assert.Equal(t, int64(-2), StreamExists)
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		name     string
		streamID string
		expected string
	}{
		{"standard format", "Note-123", "Note"},
		{"uuid instance ID keeps only the category", "Note-8f14e45f-ceea-4673-9c5d-123456789abc", "Note"},
		{"no hyphen returns the whole ID", "Inbox", "Inbox"},
		{"empty string", "", ""},
		{"leading hyphen yields empty category", "-orphan", ""},
		{"trailing hyphen", "Notebook-", "Notebook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractCategory(tt.streamID))
		})
	}
}

func TestConcurrencyError(t *testing.T) {
	t.Run("carries stream and versions", func(t *testing.T) {
		err := NewConcurrencyError("Note-123", 5, 3)

		assert.Equal(t, "Note-123", err.StreamID)
		assert.Equal(t, int64(5), err.ExpectedVersion)
		assert.Equal(t, int64(3), err.ActualVersion)
		assert.Equal(t, `inkwell: concurrency conflict on stream "Note-123": expected version 5, got 3`, err.Error())
	})

	t.Run("matches the sentinel", func(t *testing.T) {
		err := NewConcurrencyError("Note-123", 5, 3)

		assert.True(t, errors.Is(err, ErrConcurrencyConflict))
		assert.False(t, errors.Is(err, ErrStreamNotFound))
	})
}

func TestStreamNotFoundError(t *testing.T) {
	err := NewStreamNotFoundError("Note-123")

	assert.Equal(t, "Note-123", err.StreamID)
	assert.Equal(t, `inkwell: stream "Note-123" not found`, err.Error())
	assert.True(t, errors.Is(err, ErrStreamNotFound))
	assert.False(t, errors.Is(err, ErrConcurrencyConflict))
}

func TestCheckVersion(t *testing.T) {
	t.Run("AnyVersion always passes", func(t *testing.T) {
		assert.NoError(t, CheckVersion("Note-1", AnyVersion, 0, false))
		assert.NoError(t, CheckVersion("Note-1", AnyVersion, 7, true))
	})

	t.Run("NoStream requires absence", func(t *testing.T) {
		assert.NoError(t, CheckVersion("Note-1", NoStream, 0, false))

		err := CheckVersion("Note-1", NoStream, 5, true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConcurrencyConflict))

		var concErr *ConcurrencyError
		require.ErrorAs(t, err, &concErr)
		assert.Equal(t, NoStream, concErr.ExpectedVersion)
		assert.Equal(t, int64(5), concErr.ActualVersion)
	})

	t.Run("StreamExists requires presence", func(t *testing.T) {
		assert.NoError(t, CheckVersion("Note-1", StreamExists, 5, true))

		err := CheckVersion("Note-1", StreamExists, 0, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStreamNotFound))
	})

	t.Run("exact version must match", func(t *testing.T) {
		assert.NoError(t, CheckVersion("Note-1", 5, 5, true))

		err := CheckVersion("Note-1", 5, 3, true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConcurrencyConflict))
	})

	t.Run("other negative versions are invalid", func(t *testing.T) {
		for _, v := range []int64{-3, -4, -100} {
			err := CheckVersion("Note-1", v, 5, true)
			assert.True(t, errors.Is(err, ErrInvalidVersion))
		}
	})
}

func TestDefaultLimit(t *testing.T) {
	assert.Equal(t, 100, DefaultLimit(0, 100))
	assert.Equal(t, 100, DefaultLimit(-1, 100))
	assert.Equal(t, 50, DefaultLimit(50, 100))
}
