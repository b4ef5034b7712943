package measurement

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository defines the interface for measurement persistence.
type Repository interface {
	// Create inserts a new measurement. The store assigns ID and writes it
	// back into the passed measurement.
	Create(ctx context.Context, m *Measurement) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new measurement.
func (r *SQLiteRepository) Create(ctx context.Context, m *Measurement) error {
	data := m.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshalling measurement data: %w", err)
	}

	query := `
		INSERT INTO measurements (device_id, recorded_at, data)
		VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		m.DeviceID,
		m.RecordedAt.UTC().Format(time.RFC3339Nano),
		string(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting measurement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading measurement id: %w", err)
	}

	m.ID = id
	return nil
}
