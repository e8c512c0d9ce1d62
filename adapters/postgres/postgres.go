// Package postgres provides a PostgreSQL implementation of the event store
// adapter. It targets sync/server profiles where the note database lives in a
// shared PostgreSQL instance rather than a local file.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/inkwell-notes/inkwell/adapters"
)

// Version constants for optimistic concurrency control.
const (
	AnyVersion   int64 = -1
	NoStream     int64 = 0
	StreamExists int64 = -2
)

// Sentinel errors for the postgres adapter.
// These are aliases to the adapters package errors for compatibility with errors.Is().
var (
	ErrAdapterClosed       = adapters.ErrAdapterClosed
	ErrEmptyStreamID       = adapters.ErrEmptyStreamID
	ErrNoEvents            = adapters.ErrNoEvents
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict
	ErrStreamNotFound      = adapters.ErrStreamNotFound
	ErrInvalidVersion      = adapters.ErrInvalidVersion
)

// Ensure PostgresAdapter implements required interfaces.
var (
	_ adapters.EventStoreAdapter         = (*PostgresAdapter)(nil)
	_ adapters.SnapshotAdapter           = (*PostgresAdapter)(nil)
	_ adapters.ProjectionMetadataAdapter = (*PostgresAdapter)(nil)
	_ adapters.HealthChecker             = (*PostgresAdapter)(nil)
)

// PostgresAdapter is a PostgreSQL implementation of EventStoreAdapter.
//
// Global order uses the same single-row counter as the sqlite adapter: the
// stream_position row is locked with SELECT ... FOR UPDATE inside the append
// transaction, so concurrent writers queue on the row and positions come out
// gapless and strictly increasing.
type PostgresAdapter struct {
	db     *sql.DB
	schema string
	closed bool
}

// Option configures a PostgresAdapter.
type Option func(*options)

type options struct {
	schema          string
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

// WithSchema sets the database schema to use (default "public").
func WithSchema(schema string) Option {
	return func(o *options) {
		o.schema = schema
	}
}

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		o.maxOpenConns = n
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(o *options) {
		o.maxIdleConns = n
	}
}

// WithConnMaxLifetime sets the maximum connection lifetime.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) {
		o.connMaxLifetime = d
	}
}

// NewAdapter creates a new PostgreSQL adapter from a connection string.
func NewAdapter(connString string, opts ...Option) (*PostgresAdapter, error) {
	o := &options{
		schema:          "public",
		maxOpenConns:    25,
		maxIdleConns:    5,
		connMaxLifetime: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}

	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(o.maxIdleConns)
	db.SetConnMaxLifetime(o.connMaxLifetime)

	return &PostgresAdapter{db: db, schema: o.schema}, nil
}

// NewAdapterWithDB creates a new adapter with an existing database connection.
func NewAdapterWithDB(db *sql.DB, opts ...Option) *PostgresAdapter {
	o := &options{schema: "public"}
	for _, opt := range opts {
		opt(o)
	}
	return &PostgresAdapter{db: db, schema: o.schema}
}

// Initialize creates the required tables and indexes, and seeds the global
// position counter at zero. Safe to call on every startup.
func (a *PostgresAdapter) Initialize(ctx context.Context) error {
	if a.closed {
		return ErrAdapterClosed
	}

	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, a.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.events (
			event_id        UUID PRIMARY KEY,
			aggregate_id    TEXT NOT NULL,
			aggregate_type  TEXT NOT NULL,
			event_type      TEXT NOT NULL,
			event_data      JSONB NOT NULL,
			metadata        JSONB,
			sequence_number BIGINT NOT NULL,
			stream_position BIGINT NOT NULL UNIQUE,
			created_at      TIMESTAMPTZ NOT NULL,
			UNIQUE(aggregate_id, aggregate_type, sequence_number)
		)`, a.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_events_aggregate ON %s.events(aggregate_id, sequence_number)`, a.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_events_position ON %s.events(stream_position)`, a.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.snapshots (
			aggregate_id    TEXT NOT NULL,
			aggregate_type  TEXT NOT NULL,
			version         BIGINT NOT NULL,
			state           BYTEA NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (aggregate_id, aggregate_type, version)
		)`, a.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_snapshots_version ON %s.snapshots(aggregate_id, version DESC)`, a.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.stream_position (
			id               INT PRIMARY KEY CHECK (id = 1),
			current_position BIGINT NOT NULL
		)`, a.schema),
		fmt.Sprintf(`INSERT INTO %s.stream_position (id, current_position) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`, a.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.projection_metadata (
			projection_name         TEXT PRIMARY KEY,
			last_processed_position BIGINT NOT NULL DEFAULT 0,
			last_rebuilt_at         TIMESTAMPTZ,
			last_updated_at         TIMESTAMPTZ NOT NULL,
			event_count             BIGINT NOT NULL DEFAULT 0,
			status                  TEXT NOT NULL,
			last_error              TEXT NOT NULL DEFAULT ''
		)`, a.schema),
	}

	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("inkwell/postgres: failed to initialize schema: %w", err)
		}
	}

	return nil
}

// Append stores events to the specified stream with optimistic concurrency
// control. The version check, the counter advance, and the inserts commit
// atomically.
func (a *PostgresAdapter) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
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
		return nil, fmt.Errorf("inkwell/postgres: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the counter row first. This serializes appends, which doubles as
	// the lock for the version check below.
	var position uint64
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT current_position FROM %s.stream_position WHERE id = 1 FOR UPDATE`, a.schema)).Scan(&position)
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to lock stream position: %w", err)
	}

	var currentVersion int64
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(MAX(sequence_number), 0) FROM %s.events
		WHERE aggregate_id = $1 AND aggregate_type = $2`, a.schema),
		aggregateID, aggregateType).Scan(&currentVersion)
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to get stream version: %w", err)
	}
	streamExists := currentVersion > 0

	if err := adapters.CheckVersion(streamID, expectedVersion, currentVersion, streamExists); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	storedEvents := make([]adapters.StoredEvent, len(events))

	for i, event := range events {
		currentVersion++
		position++
		eventID := uuid.New().String()

		metadataJSON, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, fmt.Errorf("inkwell/postgres: failed to marshal metadata: %w", err)
		}

		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s.events (event_id, aggregate_id, aggregate_type, event_type, event_data, metadata, sequence_number, stream_position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, a.schema),
			eventID, aggregateID, aggregateType, event.Type, event.Data, metadataJSON, currentVersion, position, now)
		if err != nil {
			return nil, fmt.Errorf("inkwell/postgres: failed to insert event: %w", err)
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

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s.stream_position SET current_position = $1 WHERE id = 1`, a.schema), position)
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to advance stream position: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to commit transaction: %w", err)
	}

	return storedEvents, nil
}

// Load retrieves events from a stream with sequence number greater than
// fromVersion, in sequence order.
func (a *PostgresAdapter) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT event_id, aggregate_id, aggregate_type, event_type, event_data, metadata, sequence_number, stream_position, created_at
		FROM %s.events
		WHERE aggregate_id = $1 AND aggregate_type = $2 AND sequence_number > $3
		ORDER BY sequence_number`, a.schema),
		aggregateID, aggregateType, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to load events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LoadFromPosition loads events across all streams with stream position
// greater than fromPosition, in global order, up to limit events.
func (a *PostgresAdapter) LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]adapters.StoredEvent, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	limit = adapters.DefaultLimit(limit, 1000)

	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT event_id, aggregate_id, aggregate_type, event_type, event_data, metadata, sequence_number, stream_position, created_at
		FROM %s.events
		WHERE stream_position > $1
		ORDER BY stream_position
		LIMIT $2`, a.schema),
		fromPosition, limit)
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to load events from position: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetStreamInfo returns metadata about a stream, derived from its events.
func (a *PostgresAdapter) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	var info adapters.StreamInfo
	var count int64
	var version sql.NullInt64
	var createdAt, updatedAt sql.NullTime

	err := a.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*), MAX(sequence_number), MIN(created_at), MAX(created_at)
		FROM %s.events
		WHERE aggregate_id = $1 AND aggregate_type = $2`, a.schema),
		aggregateID, aggregateType).Scan(&count, &version, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to get stream info: %w", err)
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
func (a *PostgresAdapter) GetCurrentPosition(ctx context.Context) (uint64, error) {
	if a.closed {
		return 0, ErrAdapterClosed
	}

	var pos uint64
	err := a.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT current_position FROM %s.stream_position WHERE id = 1`, a.schema)).Scan(&pos)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inkwell/postgres: failed to get current position: %w", err)
	}
	return pos, nil
}

// SaveSnapshot stores a snapshot at the record's version. Older snapshot
// versions are kept; re-saving the same version replaces it.
func (a *PostgresAdapter) SaveSnapshot(ctx context.Context, record adapters.SnapshotRecord) error {
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

	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.snapshots (aggregate_id, aggregate_type, version, state, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (aggregate_id, aggregate_type, version) DO UPDATE SET
			state = EXCLUDED.state,
			created_at = EXCLUDED.created_at`, a.schema),
		aggregateID, aggregateType, record.Version, record.State, createdAt)
	if err != nil {
		return fmt.Errorf("inkwell/postgres: failed to save snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot retrieves the highest-version snapshot for the given stream.
// Returns nil, nil if no snapshot exists.
func (a *PostgresAdapter) LoadSnapshot(ctx context.Context, streamID string) (*adapters.SnapshotRecord, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	var record adapters.SnapshotRecord
	err := a.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT version, state, created_at
		FROM %s.snapshots
		WHERE aggregate_id = $1 AND aggregate_type = $2
		ORDER BY version DESC
		LIMIT 1`, a.schema),
		aggregateID, aggregateType).Scan(&record.Version, &record.State, &record.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to load snapshot: %w", err)
	}

	record.StreamID = streamID
	record.AggregateType = aggregateType
	return &record, nil
}

// DeleteSnapshots removes all snapshots for the given stream.
func (a *PostgresAdapter) DeleteSnapshots(ctx context.Context, streamID string) error {
	if a.closed {
		return ErrAdapterClosed
	}

	aggregateID, aggregateType := splitStreamID(streamID)

	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s.snapshots WHERE aggregate_id = $1 AND aggregate_type = $2`, a.schema),
		aggregateID, aggregateType)
	if err != nil {
		return fmt.Errorf("inkwell/postgres: failed to delete snapshots: %w", err)
	}

	return nil
}

// GetProjectionMeta returns the metadata row for a projection.
func (a *PostgresAdapter) GetProjectionMeta(ctx context.Context, projectionName string) (*adapters.ProjectionMetaRecord, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	var record adapters.ProjectionMetaRecord
	var rebuiltAt sql.NullTime

	err := a.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT projection_name, last_processed_position, last_rebuilt_at, last_updated_at, event_count, status, last_error
		FROM %s.projection_metadata
		WHERE projection_name = $1`, a.schema), projectionName).Scan(
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
		return nil, fmt.Errorf("inkwell/postgres: failed to get projection metadata: %w", err)
	}

	if rebuiltAt.Valid {
		t := rebuiltAt.Time
		record.LastRebuiltAt = &t
	}
	return &record, nil
}

// SaveProjectionMeta inserts or updates the metadata row for a projection.
func (a *PostgresAdapter) SaveProjectionMeta(ctx context.Context, record adapters.ProjectionMetaRecord) error {
	if a.closed {
		return ErrAdapterClosed
	}

	var rebuiltAt interface{}
	if record.LastRebuiltAt != nil {
		rebuiltAt = *record.LastRebuiltAt
	}

	_, err := a.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.projection_metadata (projection_name, last_processed_position, last_rebuilt_at, last_updated_at, event_count, status, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (projection_name) DO UPDATE SET
			last_processed_position = EXCLUDED.last_processed_position,
			last_rebuilt_at = EXCLUDED.last_rebuilt_at,
			last_updated_at = EXCLUDED.last_updated_at,
			event_count = EXCLUDED.event_count,
			status = EXCLUDED.status,
			last_error = EXCLUDED.last_error`, a.schema),
		record.ProjectionName, record.LastProcessedPosition, rebuiltAt, record.LastUpdatedAt,
		record.EventCount, record.Status, record.LastError)
	if err != nil {
		return fmt.Errorf("inkwell/postgres: failed to save projection metadata: %w", err)
	}

	return nil
}

// ListProjectionMeta returns the metadata rows for all known projections.
func (a *PostgresAdapter) ListProjectionMeta(ctx context.Context) ([]adapters.ProjectionMetaRecord, error) {
	if a.closed {
		return nil, ErrAdapterClosed
	}

	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT projection_name, last_processed_position, last_rebuilt_at, last_updated_at, event_count, status, last_error
		FROM %s.projection_metadata
		ORDER BY projection_name`, a.schema))
	if err != nil {
		return nil, fmt.Errorf("inkwell/postgres: failed to list projection metadata: %w", err)
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
			return nil, fmt.Errorf("inkwell/postgres: failed to scan projection metadata: %w", err)
		}

		if rebuiltAt.Valid {
			t := rebuiltAt.Time
			record.LastRebuiltAt = &t
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inkwell/postgres: error iterating projection metadata: %w", err)
	}

	return records, nil
}

// Ping checks database connectivity.
func (a *PostgresAdapter) Ping(ctx context.Context) error {
	if a.closed {
		return ErrAdapterClosed
	}
	return a.db.PingContext(ctx)
}

// DB returns the underlying database connection.
func (a *PostgresAdapter) DB() *sql.DB {
	return a.db
}

// Schema returns the configured database schema.
func (a *PostgresAdapter) Schema() string {
	return a.schema
}

// Close releases the database connection.
func (a *PostgresAdapter) Close() error {
	a.closed = true
	return a.db.Close()
}

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
			return nil, fmt.Errorf("inkwell/postgres: failed to scan event: %w", err)
		}

		event.StreamID = joinStreamID(aggregateID, aggregateType)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("inkwell/postgres: failed to unmarshal metadata: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inkwell/postgres: error iterating events: %w", err)
	}

	return events, nil
}
