package evidence

import "time"

// Evidence references a stored media file produced by a capture event.
//
// DetectionMetadata stays nil here: it is populated later by the external
// detection service through the CRUD backend, never by this worker.
type Evidence struct {
	// ID is assigned by the store on creation.
	ID int64

	// DeviceID is the camera that produced the frame.
	DeviceID int64

	// ZoneID is the zone the frame belongs to, nil when unresolvable.
	ZoneID *int64

	// EventID is the motion or capture event the frame correlates to.
	EventID int64

	// FilePath is the stored frame's path relative to the evidence root.
	FilePath string

	// DetectionMetadata is the detection service's out-of-band analysis
	// result (JSON), nil until the collaborator writes it.
	DetectionMetadata map[string]any

	// CreatedAt is assigned by the store on creation (UTC).
	CreatedAt time.Time
}
