package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the zones and
// devices tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE zones (
			zone_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
		CREATE TABLE devices (
			device_id INTEGER PRIMARY KEY,
			zone_id INTEGER REFERENCES zones (zone_id),
			name TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'other',
			active INTEGER NOT NULL DEFAULT 1,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	seed := `
		INSERT INTO zones (zone_id, name) VALUES (1, 'entrance'), (2, 'garage');
		INSERT INTO devices (device_id, zone_id, name, category, active) VALUES
			(1, 1, 'pir-entrance', 'sensor', 1),
			(10, 1, 'light-entrance', 'relay', 1),
			(11, 1, 'light-porch', 'relay', 0),
			(20, 1, 'cam-entrance', 'camera', 1),
			(30, 2, 'light-garage', 'relay', 1),
			(40, NULL, 'spare-sensor', 'sensor', 1);
	`
	if _, err := db.Exec(seed); err != nil {
		db.Close()
		t.Fatalf("failed to seed test data: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("device with zone", func(t *testing.T) {
		d, err := repo.GetByID(ctx, 1)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if d.ID != 1 {
			t.Errorf("ID = %d, want 1", d.ID)
		}
		if d.ZoneID == nil || *d.ZoneID != 1 {
			t.Errorf("ZoneID = %v, want 1", d.ZoneID)
		}
		if d.ZoneName == nil || *d.ZoneName != "entrance" {
			t.Errorf("ZoneName = %v, want entrance", d.ZoneName)
		}
		if d.Category != CategorySensor {
			t.Errorf("Category = %q, want sensor", d.Category)
		}
		if !d.Active {
			t.Error("Active = false, want true")
		}
	})

	t.Run("device without zone", func(t *testing.T) {
		d, err := repo.GetByID(ctx, 40)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if d.ZoneID != nil {
			t.Errorf("ZoneID = %v, want nil", d.ZoneID)
		}
		if d.ZoneName != nil {
			t.Errorf("ZoneName = %v, want nil", d.ZoneName)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestListActiveByZone(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("active relays only", func(t *testing.T) {
		relays, err := repo.ListActiveByZone(ctx, 1, CategoryRelay)
		if err != nil {
			t.Fatalf("ListActiveByZone() error = %v", err)
		}
		// Relay 11 is inactive and must be excluded.
		if len(relays) != 1 {
			t.Fatalf("got %d relays, want 1", len(relays))
		}
		if relays[0].ID != 10 {
			t.Errorf("relay ID = %d, want 10", relays[0].ID)
		}
	})

	t.Run("cameras", func(t *testing.T) {
		cameras, err := repo.ListActiveByZone(ctx, 1, CategoryCamera)
		if err != nil {
			t.Fatalf("ListActiveByZone() error = %v", err)
		}
		if len(cameras) != 1 || cameras[0].ID != 20 {
			t.Errorf("got %v, want camera 20", cameras)
		}
	})

	t.Run("empty zone is not an error", func(t *testing.T) {
		cameras, err := repo.ListActiveByZone(ctx, 2, CategoryCamera)
		if err != nil {
			t.Fatalf("ListActiveByZone() error = %v", err)
		}
		if len(cameras) != 0 {
			t.Errorf("got %d cameras, want 0", len(cameras))
		}
	})
}

func TestUpdateActive(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("deactivate", func(t *testing.T) {
		if err := repo.UpdateActive(ctx, 10, false); err != nil {
			t.Fatalf("UpdateActive() error = %v", err)
		}
		d, err := repo.GetByID(ctx, 10)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if d.Active {
			t.Error("Active = true after deactivation")
		}
	})

	t.Run("reactivate", func(t *testing.T) {
		if err := repo.UpdateActive(ctx, 11, true); err != nil {
			t.Fatalf("UpdateActive() error = %v", err)
		}
		d, err := repo.GetByID(ctx, 11)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !d.Active {
			t.Error("Active = false after activation")
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		err := repo.UpdateActive(ctx, 999, false)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("UpdateActive() error = %v, want ErrDeviceNotFound", err)
		}
	})
}
