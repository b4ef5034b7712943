package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oakwatch/sentinel-core/internal/device"
	"github.com/oakwatch/sentinel-core/internal/event"
)

// DeviceStore is the interface the status ingestor needs from the device
// package.
type DeviceStore interface {
	GetByID(ctx context.Context, id int64) (*device.Device, error)
	UpdateActive(ctx context.Context, id int64, active bool) error
}

// EventStore is the interface the status ingestor needs from the event
// package.
type EventStore interface {
	Create(ctx context.Context, e *event.Event) error
}

// Logger is the minimal logging interface used by the ingestors.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// statusErrorToken is the status value that additionally raises an error
// event.
const statusErrorToken = "error"

// activeStatusTokens are the status values that mark a device operational.
// Anything else deactivates it.
var activeStatusTokens = map[string]bool{
	"online": true,
	"active": true,
	"ok":     true,
}

// StatusIngestor applies device status reports to the device registry.
type StatusIngestor struct {
	devices DeviceStore
	events  EventStore
	logger  Logger

	clock func() time.Time
}

// NewStatusIngestor creates a status ingestor.
func NewStatusIngestor(devices DeviceStore, events EventStore, logger Logger) *StatusIngestor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StatusIngestor{
		devices: devices,
		events:  events,
		logger:  logger,
		clock:   time.Now,
	}
}

// HandleStatus processes one message from devices/{id}/status.
//
// The status token flips the device's active flag: online, active and ok mean
// operational, anything else deactivates. An "error" token additionally
// persists an error event carrying the token and any info the payload
// included. Unknown devices and malformed payloads are dropped with a
// warning.
func (i *StatusIngestor) HandleStatus(ctx context.Context, deviceID int64, payload []byte) error {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		i.logger.Warn("status payload is not JSON", "device_id", deviceID, "error", err)
		return nil
	}

	token, ok := body["status"].(string)
	if !ok || token == "" {
		i.logger.Warn("status payload missing status field", "device_id", deviceID)
		return nil
	}
	token = strings.ToLower(strings.TrimSpace(token))

	active := activeStatusTokens[token]
	if err := i.devices.UpdateActive(ctx, deviceID, active); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			i.logger.Warn("status from unknown device", "device_id", deviceID)
			return nil
		}
		return fmt.Errorf("updating device active flag: %w", err)
	}
	i.logger.Debug("device status applied", "device_id", deviceID, "status", token, "active", active)

	if token == statusErrorToken {
		if err := i.recordErrorEvent(ctx, deviceID, body); err != nil {
			return err
		}
	}
	return nil
}

// recordErrorEvent persists an error event for a device reporting an error
// status.
func (i *StatusIngestor) recordErrorEvent(ctx context.Context, deviceID int64, body map[string]any) error {
	var zoneID *int64
	if dev, err := i.devices.GetByID(ctx, deviceID); err == nil {
		zoneID = dev.ZoneID
	}

	// The device's own timestamp wins; receipt time is the fallback.
	timestamp := any(i.clock().UTC().Format(time.RFC3339Nano))
	if ts, ok := body["timestamp"]; ok {
		timestamp = ts
	}

	errPayload := map[string]any{
		"error_status": statusErrorToken,
		"timestamp":    timestamp,
	}
	if info, ok := body["info"]; ok {
		errPayload["info"] = info
	}

	errEvent := &event.Event{
		DeviceID:  deviceID,
		ZoneID:    zoneID,
		EventType: event.TypeError,
		Payload:   errPayload,
	}
	if err := i.events.Create(ctx, errEvent); err != nil {
		return fmt.Errorf("persisting error event: %w", err)
	}
	i.logger.Info("device error recorded", "device_id", deviceID, "event_id", errEvent.ID)
	return nil
}
