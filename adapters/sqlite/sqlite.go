// Package sqlite provides a SQLite implementation of the event store adapter.
// It is the primary backend for desktop profiles: the whole store lives in a
// single database file alongside the user's data.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/inkwell-notes/inkwell/adapters"
)

// Version constants for optimistic concurrency control.
const (
	AnyVersion   int64 = -1
	NoStream     int64 = 0
	StreamExists int64 = -2
)

// Sentinel errors for the sqlite adapter.
// These are aliases to the adapters package errors for compatibility with errors.Is().
var (
	ErrAdapterClosed       = adapters.ErrAdapterClosed
	ErrEmptyStreamID       = adapters.ErrEmptyStreamID
	ErrNoEvents            = adapters.ErrNoEvents
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict
	ErrStreamNotFound      = adapters.ErrStreamNotFound
	ErrInvalidVersion      = adapters.ErrInvalidVersion
)

// Ensure SQLiteAdapter implements required interfaces.
var (
	_ adapters.EventStoreAdapter         = (*SQLiteAdapter)(nil)
	_ adapters.SnapshotAdapter           = (*SQLiteAdapter)(nil)
	_ adapters.ProjectionMetadataAdapter = (*SQLiteAdapter)(nil)
	_ adapters.HealthChecker             = (*SQLiteAdapter)(nil)
)

// SQLiteAdapter is a SQLite implementation of EventStoreAdapter.
//
// The global order comes from the single-row stream_position table: the
// counter is advanced in the same transaction as the event inserts, so
// positions are gapless, duplicate-free, and never reassigned. A single
// writer at a time is an accepted consequence; the busy timeout makes a
// second writer queue instead of fail.
type SQLiteAdapter struct {
	db     *sql.DB
	closed bool
}

// Option configures a SQLiteAdapter.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
	foreignKeys bool
}

// WithBusyTimeout sets how long a writer waits on the database lock.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// WithForeignKeys enables foreign key enforcement.
func WithForeignKeys(enabled bool) Option {
	return func(o *options) {
		o.foreignKeys = enabled
	}
}

// NewAdapter opens (or creates) the database file at path.
func NewAdapter(path string, opts ...Option) (*SQLiteAdapter, error) {
	o := &options{
		busyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", path, o.busyTimeout.Milliseconds())
	if o.foreignKeys {
		dsn += "&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to open database: %w", err)
	}

	// SQLite serializes writes; a single connection avoids lock churn from
	// the pool.
	db.SetMaxOpenConns(1)

	return &SQLiteAdapter{db: db}, nil
}

// NewAdapterWithDB creates a new adapter with an existing database connection.
func NewAdapterWithDB(db *sql.DB) *SQLiteAdapter {
	return &SQLiteAdapter{db: db}
}

// Initialize creates the required tables and indexes, and seeds the global
// position counter at zero. Safe to call on every startup.
func (a *SQLiteAdapter) Initialize(ctx context.Context) error {
	if a.closed {
		return ErrAdapterClosed
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id        TEXT PRIMARY KEY,
			aggregate_id    TEXT NOT NULL,
			aggregate_type  TEXT NOT NULL,
			event_type      TEXT NOT NULL,
			event_data      BLOB NOT NULL,
			metadata        BLOB,
			sequence_number INTEGER NOT NULL,
			stream_position INTEGER NOT NULL UNIQUE,
			created_at      TIMESTAMP NOT NULL,
			UNIQUE(aggregate_id, aggregate_type, sequence_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_aggregate ON events(aggregate_id, sequence_number)`,
		`CREATE INDEX IF NOT EXISTS idx_events_position ON events(stream_position)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			aggregate_id    TEXT NOT NULL,
			aggregate_type  TEXT NOT NULL,
			version         INTEGER NOT NULL,
			state           BLOB NOT NULL,
			created_at      TIMESTAMP NOT NULL,
			PRIMARY KEY (aggregate_id, aggregate_type, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_version ON snapshots(aggregate_id, version DESC)`,
		`CREATE TABLE IF NOT EXISTS stream_position (
			id               INTEGER PRIMARY KEY CHECK (id = 1),
			current_position INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO stream_position (id, current_position) VALUES (1, 0)`,
		`CREATE TABLE IF NOT EXISTS projection_metadata (
			projection_name         TEXT PRIMARY KEY,
			last_processed_position INTEGER NOT NULL DEFAULT 0,
			last_rebuilt_at         TIMESTAMP,
			last_updated_at         TIMESTAMP NOT NULL,
			event_count             INTEGER NOT NULL DEFAULT 0,
			status                  TEXT NOT NULL,
			last_error              TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("inkwell/sqlite: failed to initialize schema: %w", err)
		}
	}

	return nil
}

// Append stores events to the specified stream with optimistic concurrency
// control. The version check, the counter advance, and the inserts commit
// atomically; on any failure nothing is written.
func (a *SQLiteAdapter) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Current version is the highest sequence number in the stream.
	var currentVersion int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence_number), 0) FROM events
		WHERE aggregate_id = ? AND aggregate_type = ?`,
		aggregateID, aggregateType).Scan(&currentVersion)
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to get stream version: %w", err)
	}
	streamExists := currentVersion > 0

	if err := adapters.CheckVersion(streamID, expectedVersion, currentVersion, streamExists); err != nil {
		return nil, err
	}

	// Advance the global counter by the batch size; positions are assigned
	// from the reserved range in order.
	var newPosition uint64
	err = tx.QueryRowContext(ctx, `
		UPDATE stream_position
		SET current_position = current_position + ?
		WHERE id = 1
		RETURNING current_position`, len(events)).Scan(&newPosition)
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to advance stream position: %w", err)
	}
	firstPosition := newPosition - uint64(len(events)) + 1

	now := time.Now().UTC()
	storedEvents := make([]adapters.StoredEvent, len(events))

	for i, event := range events {
		currentVersion++
		position := firstPosition + uint64(i)
		eventID := uuid.New().String()

		metadataJSON, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, fmt.Errorf("inkwell/sqlite: failed to marshal metadata: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (event_id, aggregate_id, aggregate_type, event_type, event_data, metadata, sequence_number, stream_position, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			eventID, aggregateID, aggregateType, event.Type, event.Data, metadataJSON, currentVersion, position, now)
		if err != nil {
			return nil, fmt.Errorf("inkwell/sqlite: failed to insert event: %w", err)
		}

		storedEvents[i] = adapters.StoredEvent{
			ID:             eventID,
			StreamID:       streamID,
			Type:           event.Type,
			Data:           event.Data,
			Metadata:       event.Metadata,
			SequenceNumber: currentVersion,
			StreamPosition: position,
			Timestamp:      now,
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to commit transaction: %w", err)
	}

	return storedEvents, nil
}

// Load retrieves events from a stream with sequence number greater than
// fromVersion, in sequence order.
func (a *SQLiteAdapter) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	rows, err := a.db.QueryContext(ctx, `
		SELECT event_id, aggregate_id, aggregate_type, event_type, event_data, metadata, sequence_number, stream_position, created_at
		FROM events
		WHERE aggregate_id = ? AND aggregate_type = ? AND sequence_number > ?
		ORDER BY sequence_number`,
		aggregateID, aggregateType, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to load events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LoadFromPosition loads events across all streams with stream position
// greater than fromPosition, in global order, up to limit events.
func (a *SQLiteAdapter) LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]adapters.StoredEvent, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	limit = adapters.DefaultLimit(limit, 1000)

	rows, err := a.db.QueryContext(ctx, `
		SELECT event_id, aggregate_id, aggregate_type, event_type, event_data, metadata, sequence_number, stream_position, created_at
		FROM events
		WHERE stream_position > ?
		ORDER BY stream_position
		LIMIT ?`,
		fromPosition, limit)
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to load events from position: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetStreamInfo returns metadata about a stream, derived from its events.
func (a *SQLiteAdapter) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	var info adapters.StreamInfo
	var count int64
	var version sql.NullInt64
	var createdAt, updatedAt sql.NullTime

	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(sequence_number), MIN(created_at), MAX(created_at)
		FROM events
		WHERE aggregate_id = ? AND aggregate_type = ?`,
		aggregateID, aggregateType).Scan(&count, &version, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to get stream info: %w", err)
	}

	if count == 0 {
		return nil, adapters.NewStreamNotFoundError(streamID)
	}

	info.StreamID = streamID
	info.Category = aggregateType
	info.Version = version.Int64
	info.EventCount = count
	info.CreatedAt = createdAt.Time
	info.UpdatedAt = updatedAt.Time
	return &info, nil
}

// GetCurrentPosition returns the current value of the global position counter.
func (a *SQLiteAdapter) GetCurrentPosition(ctx context.Context) (uint64, error) {
	if a.closed {
		return 0, ErrAdapterClosed
	}

	var pos uint64
	err := a.db.QueryRowContext(ctx, `SELECT current_position FROM stream_position WHERE id = 1`).Scan(&pos)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inkwell/sqlite: failed to get current position: %w", err)
	}
	return pos, nil
}

// SaveSnapshot stores a snapshot at the record's version. Older snapshot
// versions are kept; re-saving the same version replaces it.
func (a *SQLiteAdapter) SaveSnapshot(ctx context.Context, record adapters.SnapshotRecord) error {
	if a.closed {
		return ErrAdapterClosed
	}

	if record.StreamID == "" {
		return ErrEmptyStreamID
	}

	aggregateID, aggregateType := splitStreamID(record.StreamID)
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO snapshots (aggregate_id, aggregate_type, version, state, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (aggregate_id, aggregate_type, version) DO UPDATE SET
			state = excluded.state,
			created_at = excluded.created_at`,
		aggregateID, aggregateType, record.Version, record.State, createdAt)
	if err != nil {
		return fmt.Errorf("inkwell/sqlite: failed to save snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot retrieves the highest-version snapshot for the given stream.
// Returns nil, nil if no snapshot exists.
func (a *SQLiteAdapter) LoadSnapshot(ctx context.Context, streamID string) (*adapters.SnapshotRecord, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	var record adapters.SnapshotRecord
	err := a.db.QueryRowContext(ctx, `
		SELECT version, state, created_at
		FROM snapshots
		WHERE aggregate_id = ? AND aggregate_type = ?
		ORDER BY version DESC
		LIMIT 1`,
		aggregateID, aggregateType).Scan(&record.Version, &record.State, &record.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to load snapshot: %w", err)
	}

	record.StreamID = streamID
	record.AggregateType = aggregateType
	return &record, nil
}

// DeleteSnapshots removes all snapshots for the given stream.
func (a *SQLiteAdapter) DeleteSnapshots(ctx context.Context, streamID string) error {
	if a.closed {
		return ErrAdapterClosed
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	_, err := a.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE aggregate_id = ? AND aggregate_type = ?`,
		aggregateID, aggregateType)
	if err != nil {
		return fmt.Errorf("inkwell/sqlite: failed to delete snapshots: %w", err)
	}

	return nil
}

// GetProjectionMeta returns the metadata row for a projection.
func (a *SQLiteAdapter) GetProjectionMeta(ctx context.Context, projectionName string) (*adapters.ProjectionMetaRecord, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	var record adapters.ProjectionMetaRecord
	var rebuiltAt sql.NullTime

	err := a.db.QueryRowContext(ctx, `
		SELECT projection_name, last_processed_position, last_rebuilt_at, last_updated_at, event_count, status, last_error
		FROM projection_metadata
		WHERE projection_name = ?`, projectionName).Scan(
		&record.ProjectionName,
		&record.LastProcessedPosition,
		&rebuiltAt,
		&record.LastUpdatedAt,
		&record.EventCount,
		&record.Status,
		&record.LastError,
	)

	if err == sql.ErrNoRows {
		return nil, adapters.ErrProjectionMetaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to get projection metadata: %w", err)
	}

	if rebuiltAt.Valid {
		t := rebuiltAt.Time
		record.LastRebuiltAt = &t
	}
	return &record, nil
}

// SaveProjectionMeta inserts or updates the metadata row for a projection.
func (a *SQLiteAdapter) SaveProjectionMeta(ctx context.Context, record adapters.ProjectionMetaRecord) error {
	if a.closed {
		return ErrAdapterClosed
	}

	var rebuiltAt interface{}
	if record.LastRebuiltAt != nil {
		rebuiltAt = *record.LastRebuiltAt
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO projection_metadata (projection_name, last_processed_position, last_rebuilt_at, last_updated_at, event_count, status, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (projection_name) DO UPDATE SET
			last_processed_position = excluded.last_processed_position,
			last_rebuilt_at = excluded.last_rebuilt_at,
			last_updated_at = excluded.last_updated_at,
			event_count = excluded.event_count,
			status = excluded.status,
			last_error = excluded.last_error`,
		record.ProjectionName, record.LastProcessedPosition, rebuiltAt, record.LastUpdatedAt,
		record.EventCount, record.Status, record.LastError)
	if err != nil {
		return fmt.Errorf("inkwell/sqlite: failed to save projection metadata: %w", err)
	}

	return nil
}

// ListProjectionMeta returns the metadata rows for all known projections.
func (a *SQLiteAdapter) ListProjectionMeta(ctx context.Context) ([]adapters.ProjectionMetaRecord, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT projection_name, last_processed_position, last_rebuilt_at, last_updated_at, event_count, status, last_error
		FROM projection_metadata
		ORDER BY projection_name`)
	if err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: failed to list projection metadata: %w", err)
	}
	defer rows.Close()

	records := make([]adapters.ProjectionMetaRecord, 0)
	for rows.Next() {
		var record adapters.ProjectionMetaRecord
		var rebuiltAt sql.NullTime

		err := rows.Scan(
			&record.ProjectionName,
			&record.LastProcessedPosition,
			&rebuiltAt,
			&record.LastUpdatedAt,
			&record.EventCount,
			&record.Status,
			&record.LastError,
		)
		if err != nil {
			return nil, fmt.Errorf("inkwell/sqlite: failed to scan projection metadata: %w", err)
		}

		if rebuiltAt.Valid {
			t := rebuiltAt.Time
			record.LastRebuiltAt = &t
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: error iterating projection metadata: %w", err)
	}

	return records, nil
}

// Ping checks database connectivity.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	if a.closed {
		return ErrAdapterClosed
	}
	return a.db.PingContext(ctx)
}

// DB returns the underlying database connection. Projections that share the
// database file use it to keep their read-model tables in the same place.
func (a *SQLiteAdapter) DB() *sql.DB {
	return a.db
}

// Close releases the database connection.
func (a *SQLiteAdapter) Close() error {
	a.closed = true
	return a.db.Close()
}

// splitStreamID separates a "Category-ID" stream ID into its ID and category
// parts. A stream ID without a hyphen is its own category.
func splitStreamID(streamID string) (aggregateID, aggregateType string) {
	aggregateType = adapters.ExtractCategory(streamID)
	if len(aggregateType) < len(streamID) {
		aggregateID = streamID[len(aggregateType)+1:]
	} else {
		aggregateID = streamID
	}
	return aggregateID, aggregateType
}

func joinStreamID(aggregateID, aggregateType string) string {
	if aggregateID == aggregateType {
		return aggregateID
	}
	return aggregateType + "-" + aggregateID
}

func scanEvents(rows *sql.Rows) ([]adapters.StoredEvent, error) {
	events := make([]adapters.StoredEvent, 0)
	for rows.Next() {
		var event adapters.StoredEvent
		var aggregateID, aggregateType string
		var metadataJSON []byte

		err := rows.Scan(
			&event.ID,
			&aggregateID,
			&aggregateType,
			&event.Type,
			&event.Data,
			&metadataJSON,
			&event.SequenceNumber,
			&event.StreamPosition,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("inkwell/sqlite: failed to scan event: %w", err)
		}

		event.StreamID = joinStreamID(aggregateID, aggregateType)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("inkwell/sqlite: failed to unmarshal metadata: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inkwell/sqlite: error iterating events: %w", err)
	}

	return events, nil
}
