package rules

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oakwatch/sentinel-core/internal/device"
	"github.com/oakwatch/sentinel-core/internal/event"
)

// DeviceDirectory is the interface the engine needs from the device package.
type DeviceDirectory interface {
	// GetByID retrieves a device with its zone joined in.
	GetByID(ctx context.Context, id int64) (*device.Device, error)

	// ListActiveByZone retrieves active devices of a category in a zone.
	ListActiveByZone(ctx context.Context, zoneID int64, category device.Category) ([]device.Device, error)
}

// EventStore is the interface the engine needs from the event package.
type EventStore interface {
	// Create inserts a new event and assigns its id.
	Create(ctx context.Context, e *event.Event) error

	// LastMotionByZone retrieves the most recent motion event for a zone.
	LastMotionByZone(ctx context.Context, zoneID int64) (*event.Event, error)
}

// Commander is the interface for issuing outbound actuation commands.
type Commander interface {
	// RelayOn commands a relay to switch on for duration seconds.
	RelayOn(relayID, zoneID int64, duration int) error

	// RequestCapture commands a camera to capture frames for an event.
	RequestCapture(cameraID, zoneID, eventID int64, frames int) error
}

// Logger is the minimal logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds the motion rule parameters.
type Config struct {
	// Cooldown is the minimum time between accepted motion events per zone.
	Cooldown time.Duration

	// AutoLightsDuration is the relay on-duration in seconds.
	AutoLightsDuration int

	// CaptureFrames is the frame count requested from cameras.
	CaptureFrames int
}

// MotionSignal is a validated motion payload.
type MotionSignal struct {
	// DeviceID is the reporting sensor (required).
	DeviceID int64

	// Timestamp is the sensor's report time, defaulted to receipt time by
	// the router when absent.
	Timestamp time.Time

	// Payload is the full original payload, persisted with the motion event.
	Payload map[string]any
}

// Engine turns motion signals into persisted events and relay/camera fan-out.
//
// The cooldown check-then-persist sequence is not atomic at the store level,
// so the engine serializes motion handling per zone: concurrent deliveries
// for the same zone queue on an in-memory mutex, which upholds the cooldown
// invariant within this process. Different zones proceed in parallel.
//
// Thread Safety: HandleMotion is safe for concurrent use.
type Engine struct {
	devices  DeviceDirectory
	events   EventStore
	commands Commander
	cfg      Config
	logger   Logger

	// clock is the time source, replaceable in tests.
	clock func() time.Time

	// zoneLocks serializes motion handling per zone.
	zoneLocks map[int64]*sync.Mutex
	mu        sync.Mutex
}

// NewEngine creates a motion rule engine.
func NewEngine(devices DeviceDirectory, events EventStore, commands Commander, cfg Config, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		devices:   devices,
		events:    events,
		commands:  commands,
		cfg:       cfg,
		logger:    logger,
		clock:     time.Now,
		zoneLocks: make(map[int64]*sync.Mutex),
	}
}

// HandleMotion processes one motion signal.
//
// Algorithm:
//  1. Resolve device to zone; unknown or unzoned devices are dropped with
//     a warning (no event, no fan-out).
//  2. Cooldown gate: if the zone's last motion event is closer than the
//     cooldown window, drop silently (flood suppression).
//  3. Persist a motion event carrying the full original payload.
//  4. Fan out: command every active relay in the zone on (persisting a
//     relay_on event per relay), then command every active camera to
//     capture, carrying the new event id for correlation.
//
// Per-device failures inside fan-out never abort the remaining devices.
// Dropped signals return nil; only store failures surface as errors.
func (e *Engine) HandleMotion(ctx context.Context, sig MotionSignal) error {
	dev, err := e.devices.GetByID(ctx, sig.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			e.logger.Warn("motion from unknown device", "device_id", sig.DeviceID)
			return nil
		}
		return fmt.Errorf("resolving motion device: %w", err)
	}
	if dev.ZoneID == nil {
		e.logger.Warn("motion device has no zone", "device_id", sig.DeviceID)
		return nil
	}
	zoneID := *dev.ZoneID

	// Serialize the check-then-persist sequence per zone.
	lock := e.zoneLock(zoneID)
	lock.Lock()
	defer lock.Unlock()

	inCooldown, err := e.inCooldown(ctx, zoneID)
	if err != nil {
		return fmt.Errorf("checking cooldown: %w", err)
	}
	if inCooldown {
		e.logger.Debug("zone in cooldown, dropping motion", "zone_id", zoneID, "device_id", sig.DeviceID)
		return nil
	}

	motionEvent := &event.Event{
		DeviceID:  sig.DeviceID,
		ZoneID:    &zoneID,
		EventType: event.TypeMotion,
		Payload:   sig.Payload,
	}
	if err := e.events.Create(ctx, motionEvent); err != nil {
		return fmt.Errorf("persisting motion event: %w", err)
	}
	e.logger.Info("motion event persisted", "event_id", motionEvent.ID, "zone_id", zoneID, "device_id", sig.DeviceID)

	e.activateZoneRelays(ctx, zoneID)
	e.triggerZoneCameras(ctx, zoneID, motionEvent.ID)

	return nil
}

// inCooldown reports whether the zone's last motion event is within the
// cooldown window.
func (e *Engine) inCooldown(ctx context.Context, zoneID int64) (bool, error) {
	last, err := e.events.LastMotionByZone(ctx, zoneID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.clock().Sub(last.CreatedAt) < e.cfg.Cooldown, nil
}

// activateZoneRelays commands every active relay in the zone on and persists
// a relay_on event per relay. No relays in the zone is not an error.
func (e *Engine) activateZoneRelays(ctx context.Context, zoneID int64) {
	relays, err := e.devices.ListActiveByZone(ctx, zoneID, device.CategoryRelay)
	if err != nil {
		e.logger.Warn("listing zone relays failed", "zone_id", zoneID, "error", err)
		return
	}
	if len(relays) == 0 {
		e.logger.Debug("no relays in zone", "zone_id", zoneID)
		return
	}

	for _, relay := range relays {
		if err := e.commands.RelayOn(relay.ID, zoneID, e.cfg.AutoLightsDuration); err != nil {
			e.logger.Warn("relay command failed", "relay_id", relay.ID, "zone_id", zoneID, "error", err)
			continue
		}
		e.logger.Info("relay commanded on", "relay_id", relay.ID, "zone_id", zoneID)

		relayEvent := &event.Event{
			DeviceID:  relay.ID,
			ZoneID:    &zoneID,
			EventType: event.TypeRelayOn,
			Payload: map[string]any{
				"trigger":  "motion",
				"duration": e.cfg.AutoLightsDuration,
			},
		}
		if err := e.events.Create(ctx, relayEvent); err != nil {
			e.logger.Warn("persisting relay_on event failed", "relay_id", relay.ID, "error", err)
		}
	}
}

// triggerZoneCameras commands every active camera in the zone to capture,
// carrying the motion event id. No cameras in the zone is not an error.
func (e *Engine) triggerZoneCameras(ctx context.Context, zoneID, eventID int64) {
	cameras, err := e.devices.ListActiveByZone(ctx, zoneID, device.CategoryCamera)
	if err != nil {
		e.logger.Warn("listing zone cameras failed", "zone_id", zoneID, "error", err)
		return
	}
	if len(cameras) == 0 {
		e.logger.Debug("no cameras in zone", "zone_id", zoneID)
		return
	}

	for _, camera := range cameras {
		if err := e.commands.RequestCapture(camera.ID, zoneID, eventID, e.cfg.CaptureFrames); err != nil {
			e.logger.Warn("camera command failed", "camera_id", camera.ID, "zone_id", zoneID, "error", err)
			continue
		}
		e.logger.Info("camera capture requested", "camera_id", camera.ID, "zone_id", zoneID, "event_id", eventID)
	}
}

// zoneLock returns the mutex for a zone, creating it on first use.
func (e *Engine) zoneLock(zoneID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.zoneLocks[zoneID]
	if !ok {
		lock = &sync.Mutex{}
		e.zoneLocks[zoneID] = lock
	}
	return lock
}
