// Package measurement persists append-only telemetry readings.
// One row per telemetry message; the payload's sensor fields land in a
// single JSON data column.
package measurement
