package measurement

import "time"

// Measurement is one append-only telemetry reading for a device.
type Measurement struct {
	// ID is assigned by the store on creation.
	ID int64

	// DeviceID is the reporting device.
	DeviceID int64

	// RecordedAt is when the reading was taken (from the payload, or receipt
	// time when absent).
	RecordedAt time.Time

	// Data holds every payload field except the timestamp, serialized to
	// JSON on insert.
	Data map[string]any
}
