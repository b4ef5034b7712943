package event

import "time"

// Type identifies what kind of event a row records.
type Type string

// Event types created by the worker.
const (
	TypeMotion  Type = "motion"
	TypeRelayOn Type = "relay_on"
	TypeCapture Type = "capture"
	TypeError   Type = "error"
)

// Event is an immutable domain record. Rows are created by the motion rule
// engine, the capture pipeline and the status ingestor, and never updated.
type Event struct {
	// ID is assigned by the store on creation.
	ID int64

	// DeviceID is the device the event concerns.
	DeviceID int64

	// ZoneID is the zone the event occurred in, nil when the device has none.
	ZoneID *int64

	// EventType is the event kind (motion, relay_on, capture, error, ...).
	EventType Type

	// Payload is the structured event payload, serialized to JSON on insert.
	Payload map[string]any

	// CreatedAt is assigned by the store on creation (UTC).
	CreatedAt time.Time
}
