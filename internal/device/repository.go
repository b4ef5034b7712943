package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for device lookup and status updates.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier, with the owning
	// zone joined in. Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id int64) (*Device, error)

	// ListActiveByZone retrieves all active devices of the given category in
	// a zone. Returns an empty slice (not an error) when none match.
	ListActiveByZone(ctx context.Context, zoneID int64, category Category) ([]Device, error)

	// UpdateActive sets a device's active flag.
	// Returns ErrDeviceNotFound if the device does not exist.
	UpdateActive(ctx context.Context, id int64, active bool) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Device, error) {
	query := `
		SELECT d.device_id, d.zone_id, z.name, d.name, d.category, d.active, d.updated_at
		FROM devices d
		LEFT JOIN zones z ON d.zone_id = z.zone_id
		WHERE d.device_id = ?`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// ListActiveByZone retrieves all active devices of a category in a zone.
func (r *SQLiteRepository) ListActiveByZone(ctx context.Context, zoneID int64, category Category) ([]Device, error) {
	query := `
		SELECT d.device_id, d.zone_id, z.name, d.name, d.category, d.active, d.updated_at
		FROM devices d
		LEFT JOIN zones z ON d.zone_id = z.zone_id
		WHERE d.zone_id = ? AND d.category = ? AND d.active = 1
		ORDER BY d.device_id`

	rows, err := r.db.QueryContext(ctx, query, zoneID, string(category))
	if err != nil {
		return nil, fmt.Errorf("querying devices by zone: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		device, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// UpdateActive sets a device's active flag.
func (r *SQLiteRepository) UpdateActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE devices SET active = ?, updated_at = ? WHERE device_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		boolToInt(active),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning logic.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a single-row query result into a Device.
func scanDevice(row *sql.Row) (*Device, error) {
	return scanDeviceRow(row)
}

// scanDeviceRow scans one device row from any scanner.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var (
		d         Device
		zoneID    sql.NullInt64
		zoneName  sql.NullString
		active    int
		updatedAt string
	)

	if err := scanner.Scan(&d.ID, &zoneID, &zoneName, &d.Name, &d.Category, &active, &updatedAt); err != nil {
		return nil, err
	}

	if zoneID.Valid {
		d.ZoneID = &zoneID.Int64
	}
	if zoneName.Valid {
		d.ZoneName = &zoneName.String
	}
	d.Active = active != 0
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled

	return &d, nil
}

// boolToInt converts a bool to SQLite's 0/1 integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
