package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when the mirror is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("influxdb: connection failed")
)
