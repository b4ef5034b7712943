package device

import "time"

// Category classifies what a device does, which drives fan-out targeting.
type Category string

// Device categories.
const (
	CategoryRelay  Category = "relay"
	CategoryCamera Category = "camera"
	CategorySensor Category = "sensor"
	CategoryOther  Category = "other"
)

// Device is a field device registered by the CRUD backend.
//
// The worker never creates devices; it looks them up by id, lists them by
// zone and category for fan-out, and flips the active flag from status
// messages.
type Device struct {
	// ID is the numeric device identifier (also the wildcard segment in
	// devices/{id}/... topics).
	ID int64

	// ZoneID is the owning zone, nil for unassigned devices.
	ZoneID *int64

	// ZoneName is the owning zone's name, joined in on lookup (nil when
	// the device has no zone).
	ZoneName *string

	// Name is the human-readable device name.
	Name string

	// Category is the device category (relay, camera, sensor, other).
	Category Category

	// Active reports whether the device is considered operational.
	// Inactive devices are excluded from fan-out.
	Active bool

	// UpdatedAt is the last time the row changed.
	UpdatedAt time.Time
}
