package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oakwatch/sentinel-core/internal/measurement"
)

// MeasurementStore is the interface the telemetry ingestor needs from the
// measurement package.
type MeasurementStore interface {
	Create(ctx context.Context, m *measurement.Measurement) error
}

// TelemetryMirror receives numeric telemetry fields for time-series
// mirroring. The influxdb client satisfies this.
type TelemetryMirror interface {
	WriteTelemetry(deviceID int64, field string, value float64, recordedAt time.Time)
}

// telemetryTimestampKeys are checked in order for the reading's own
// timestamp; the matched key is removed from the stored data.
var telemetryTimestampKeys = []string{"timestamp", "recorded_at"}

// TelemetryIngestor persists device telemetry readings.
type TelemetryIngestor struct {
	measurements MeasurementStore
	mirror       TelemetryMirror
	logger       Logger

	clock func() time.Time
}

// NewTelemetryIngestor creates a telemetry ingestor. mirror may be nil when
// no time-series store is configured.
func NewTelemetryIngestor(measurements MeasurementStore, mirror TelemetryMirror, logger Logger) *TelemetryIngestor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &TelemetryIngestor{
		measurements: measurements,
		mirror:       mirror,
		logger:       logger,
		clock:        time.Now,
	}
}

// HandleTelemetry processes one message from devices/{id}/telemetry.
//
// The payload's timestamp (or recorded_at) field becomes the reading time and
// is removed from the stored data; absent or unparseable timestamps fall back
// to receipt time. A payload that is empty after timestamp extraction is a
// no-op. Numeric fields are mirrored to the time-series store when one is
// configured; mirroring never affects the relational write.
func (i *TelemetryIngestor) HandleTelemetry(ctx context.Context, deviceID int64, payload []byte) error {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		i.logger.Warn("telemetry payload is not JSON", "device_id", deviceID, "error", err)
		return nil
	}

	recordedAt := i.extractTimestamp(body)

	if len(body) == 0 {
		i.logger.Debug("telemetry payload empty after timestamp extraction", "device_id", deviceID)
		return nil
	}

	m := &measurement.Measurement{
		DeviceID:   deviceID,
		RecordedAt: recordedAt,
		Data:       body,
	}
	if err := i.measurements.Create(ctx, m); err != nil {
		return fmt.Errorf("persisting measurement: %w", err)
	}
	i.logger.Debug("measurement persisted",
		"measurement_id", m.ID, "device_id", deviceID, "fields", len(body))

	i.mirrorNumericFields(deviceID, body, recordedAt)
	return nil
}

// extractTimestamp pops the reading timestamp out of the payload, falling
// back to receipt time.
func (i *TelemetryIngestor) extractTimestamp(body map[string]any) time.Time {
	for _, key := range telemetryTimestampKeys {
		raw, ok := body[key]
		if !ok {
			continue
		}
		delete(body, key)

		if s, ok := raw.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts.UTC()
			}
		}
		// Present but unparseable: still consumed, fall back to receipt time.
		return i.clock().UTC()
	}
	return i.clock().UTC()
}

// mirrorNumericFields forwards numeric telemetry values to the time-series
// store.
func (i *TelemetryIngestor) mirrorNumericFields(deviceID int64, body map[string]any, recordedAt time.Time) {
	if i.mirror == nil {
		return
	}
	for field, raw := range body {
		if value, ok := raw.(float64); ok {
			i.mirror.WriteTelemetry(deviceID, field, value, recordedAt)
		}
	}
}
