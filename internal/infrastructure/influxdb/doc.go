// Package influxdb provides an optional time-series mirror for telemetry.
//
// When enabled, every persisted measurement's numeric fields are also written
// to InfluxDB through the SDK's non-blocking batched write API. The mirror is
// best-effort: write failures surface through an error callback and never
// affect the relational measurement row.
package influxdb
