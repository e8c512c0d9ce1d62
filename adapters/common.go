package adapters

import (
	"fmt"
	"strings"
)

// Sentinel expected versions for Append. Any non-negative value demands
// the stream be at exactly that version.
const (
	// AnyVersion appends without a concurrency check.
	AnyVersion int64 = -1

	// NoStream demands the stream does not exist yet.
	NoStream int64 = 0

	// StreamExists demands the stream already exists, at whatever version.
	StreamExists int64 = -2
)

// ExtractCategory returns the portion of a "Category-ID" stream identifier
// before the first hyphen. An ID without a hyphen is its own category, and
// an empty ID yields an empty category.
func ExtractCategory(streamID string) string {
	if streamID == "" {
		return ""
	}
	parts := strings.SplitN(streamID, "-", 2)
	return parts[0]
}

// ConcurrencyError reports a failed optimistic concurrency check: the
// stream was not at the expected version and nothing was appended.
type ConcurrencyError struct {
	StreamID        string
	ExpectedVersion int64
	ActualVersion   int64
}

// NewConcurrencyError creates a new ConcurrencyError.
func NewConcurrencyError(streamID string, expected, actual int64) *ConcurrencyError {
	return &ConcurrencyError{
		StreamID:        streamID,
		ExpectedVersion: expected,
		ActualVersion:   actual,
	}
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("inkwell: concurrency conflict on stream %q: expected version %d, got %d",
		e.StreamID, e.ExpectedVersion, e.ActualVersion)
}

// Is matches ErrConcurrencyConflict.
func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

// StreamNotFoundError reports an operation that required an existing
// stream, such as an append with StreamExists.
type StreamNotFoundError struct {
	StreamID string
}

// NewStreamNotFoundError creates a new StreamNotFoundError.
func NewStreamNotFoundError(streamID string) *StreamNotFoundError {
	return &StreamNotFoundError{StreamID: streamID}
}

func (e *StreamNotFoundError) Error() string {
	return fmt.Sprintf("inkwell: stream %q not found", e.StreamID)
}

// Is matches ErrStreamNotFound.
func (e *StreamNotFoundError) Is(target error) bool {
	return target == ErrStreamNotFound
}

// CheckVersion is the version-check shared by every adapter's Append: it
// resolves the sentinel expected versions against the stream's current
// state and rejects unknown negative values with ErrInvalidVersion.
func CheckVersion(streamID string, expected, current int64, exists bool) error {
	switch expected {
	case AnyVersion:
		return nil
	case NoStream:
		if exists {
			return NewConcurrencyError(streamID, expected, current)
		}
		return nil
	case StreamExists:
		if !exists {
			return NewStreamNotFoundError(streamID)
		}
		return nil
	default:
		if expected < 0 {
			return ErrInvalidVersion
		}
		if current != expected {
			return NewConcurrencyError(streamID, expected, current)
		}
		return nil
	}
}

// DefaultLimit substitutes defaultValue for a zero or negative page limit.
func DefaultLimit(limit, defaultValue int) int {
	if limit <= 0 {
		return defaultValue
	}
	return limit
}
