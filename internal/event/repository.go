package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for event persistence.
type Repository interface {
	// Create inserts a new event. The store assigns ID and CreatedAt and
	// writes them back into the passed event.
	Create(ctx context.Context, e *Event) error

	// LastMotionByZone retrieves the most recent motion event for a zone.
	// Returns ErrEventNotFound when the zone has no motion history.
	LastMotionByZone(ctx context.Context, zoneID int64) (*Event, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// createdAtLayout pads fractional seconds to a fixed nine digits. RFC3339Nano
// trims trailing zeros, which breaks lexicographic ordering of the stored
// text within a second ("...:05Z" sorts after "...:05.9Z").
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Create inserts a new event.
func (r *SQLiteRepository) Create(ctx context.Context, e *Event) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling event payload: %w", err)
	}

	createdAt := time.Now().UTC()

	query := `
		INSERT INTO events (device_id, zone_id, event_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		e.DeviceID,
		nullableInt64(e.ZoneID),
		string(e.EventType),
		string(payloadJSON),
		createdAt.Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event id: %w", err)
	}

	e.ID = id
	e.CreatedAt = createdAt
	return nil
}

// LastMotionByZone retrieves the most recent motion event for a zone.
func (r *SQLiteRepository) LastMotionByZone(ctx context.Context, zoneID int64) (*Event, error) {
	query := `
		SELECT event_id, device_id, zone_id, event_type, payload, created_at
		FROM events
		WHERE zone_id = ? AND event_type = ?
		ORDER BY created_at DESC, event_id DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, zoneID, string(TypeMotion))

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("querying last motion event: %w", err)
	}
	return e, nil
}

// scanEvent scans a single event row.
func scanEvent(row *sql.Row) (*Event, error) {
	var (
		e           Event
		zoneID      sql.NullInt64
		payloadJSON string
		createdAt   string
	)

	if err := row.Scan(&e.ID, &e.DeviceID, &zoneID, &e.EventType, &payloadJSON, &createdAt); err != nil {
		return nil, err
	}

	if zoneID.Valid {
		e.ZoneID = &zoneID.Int64
	}
	if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
		return nil, fmt.Errorf("unmarshalling event payload: %w", err)
	}

	// RFC3339Nano parses both second and sub-second precision.
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing event timestamp: %w", err)
	}
	e.CreatedAt = ts

	return &e, nil
}

// nullableInt64 converts *int64 to a driver-friendly nullable value.
func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
