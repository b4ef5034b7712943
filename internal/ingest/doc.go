// Package ingest applies device status and telemetry messages to the store.
//
// Status messages (devices/{id}/status) flip the device's active flag based
// on the status token, with error tokens additionally persisted as error
// events. Telemetry messages (devices/{id}/telemetry) become append-only
// measurement rows, with the payload's own timestamp extracted when present
// and numeric fields optionally mirrored to a time-series store.
package ingest
