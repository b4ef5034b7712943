package event

import "errors"

// ErrEventNotFound is returned when an event lookup matches no row.
var ErrEventNotFound = errors.New("event: not found")
