package adapters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrConcurrencyConflict", ErrConcurrencyConflict},
		{"ErrStreamNotFound", ErrStreamNotFound},
		{"ErrEmptyStreamID", ErrEmptyStreamID},
		{"ErrNoEvents", ErrNoEvents},
		{"ErrInvalidVersion", ErrInvalidVersion},
		{"ErrAdapterClosed", ErrAdapterClosed},
		{"ErrStorageFailure", ErrStorageFailure},
		{"ErrProjectionMetaNotFound", ErrProjectionMetaNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name+" has inkwell prefix", func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), "inkwell:")
		})

		t.Run(tt.name+" is distinct", func(t *testing.T) {
			for _, other := range tests {
				if tt.name != other.name {
					assert.False(t, errors.Is(tt.err, other.err),
						"%s should not match %s", tt.name, other.name)
				}
			}
		})
	}
}

func TestProjectionStates(t *testing.T) {
	assert.Equal(t, ProjectionState("ready"), ProjectionReady)
	assert.Equal(t, ProjectionState("rebuilding"), ProjectionRebuilding)
	assert.Equal(t, ProjectionState("error"), ProjectionError)
}
