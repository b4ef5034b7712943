package device

import "errors"

// ErrDeviceNotFound is returned when a device lookup matches no row.
// Handlers treat this as a dropped message, not a failure.
var ErrDeviceNotFound = errors.New("device: not found")
