package evidence

import "errors"

var (
	// ErrEmptyFrame is returned when a frame payload decodes to zero bytes.
	ErrEmptyFrame = errors.New("evidence: empty frame")

	// ErrStoreFailed is returned when a frame cannot be written to disk.
	ErrStoreFailed = errors.New("evidence: frame store failed")
)
