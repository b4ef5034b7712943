package evidence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository defines the interface for evidence row persistence.
type Repository interface {
	// Create inserts a new evidence row. The store assigns ID and CreatedAt
	// and writes them back into the passed evidence.
	Create(ctx context.Context, e *Evidence) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new evidence row.
func (r *SQLiteRepository) Create(ctx context.Context, e *Evidence) error {
	createdAt := time.Now().UTC()

	query := `
		INSERT INTO evidences (device_id, zone_id, event_id, file_path, detection_metadata, created_at)
		VALUES (?, ?, ?, ?, NULL, ?)`

	result, err := r.db.ExecContext(ctx, query,
		e.DeviceID,
		nullableInt64(e.ZoneID),
		e.EventID,
		e.FilePath,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting evidence: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading evidence id: %w", err)
	}

	e.ID = id
	e.CreatedAt = createdAt
	return nil
}

// nullableInt64 converts *int64 to a driver-friendly nullable value.
func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
