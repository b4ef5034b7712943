package router

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/oakwatch/sentinel-core/internal/infrastructure/mqtt"
	"github.com/oakwatch/sentinel-core/internal/rules"
)

// MotionHandler consumes validated motion signals.
type MotionHandler interface {
	HandleMotion(ctx context.Context, sig rules.MotionSignal) error
}

// StatusHandler consumes device status messages.
type StatusHandler interface {
	HandleStatus(ctx context.Context, deviceID int64, payload []byte) error
}

// TelemetryHandler consumes device telemetry messages.
type TelemetryHandler interface {
	HandleTelemetry(ctx context.Context, deviceID int64, payload []byte) error
}

// FrameHandler consumes camera frame messages.
type FrameHandler interface {
	HandleFrame(ctx context.Context, cameraID int64, payload []byte) error
}

// Logger is the minimal logging interface used by the router.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// truncatedPayloadLen caps payload bytes in receipt logs. Frames can be
// megabytes.
const truncatedPayloadLen = 100

// Router classifies inbound MQTT messages and dispatches them to the right
// handler.
//
// Topic grammar:
//
//	events/motion            -> motion rule engine (exact match)
//	devices/{id}/status      -> status ingestor
//	devices/{id}/telemetry   -> telemetry ingestor
//	cameras/{id}/frame       -> capture pipeline
//
// Numeric {id} segments only; anything else is dropped with a warning.
// Unknown topics are dropped at debug level. Handler errors are returned to
// the session wrapper, which logs them; no failure propagates past the
// router.
type Router struct {
	ctx       context.Context
	motion    MotionHandler
	status    StatusHandler
	telemetry TelemetryHandler
	frames    FrameHandler
	logger    Logger

	clock func() time.Time
}

// New creates a router. ctx bounds handler execution and is normally the
// process lifetime context.
func New(ctx context.Context, motion MotionHandler, status StatusHandler, telemetry TelemetryHandler, frames FrameHandler, logger Logger) *Router {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Router{
		ctx:       ctx,
		motion:    motion,
		status:    status,
		telemetry: telemetry,
		frames:    frames,
		logger:    logger,
		clock:     time.Now,
	}
}

// Route is the single MQTT message entry point. Its signature matches
// mqtt.MessageHandler so it can be subscribed directly.
func (r *Router) Route(topic string, payload []byte) error {
	r.logger.Debug("message received",
		"topic", topic, "bytes", len(payload), "payload", truncatePayload(payload))

	if topic == mqtt.TopicMotion {
		return r.routeMotion(payload)
	}

	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		r.logger.Debug("unhandled topic", "topic", topic)
		return nil
	}

	prefix, idSegment, suffix := parts[0], parts[1], parts[2]

	id, err := strconv.ParseInt(idSegment, 10, 64)
	if err != nil {
		r.logger.Warn("non-numeric device id in topic", "topic", topic, "segment", idSegment)
		return nil
	}

	switch {
	case prefix == mqtt.TopicPrefixDevices && suffix == "status":
		return r.status.HandleStatus(r.ctx, id, payload)
	case prefix == mqtt.TopicPrefixDevices && suffix == "telemetry":
		return r.telemetry.HandleTelemetry(r.ctx, id, payload)
	case prefix == mqtt.TopicPrefixCameras && suffix == "frame":
		return r.frames.HandleFrame(r.ctx, id, payload)
	}

	r.logger.Debug("unhandled topic", "topic", topic)
	return nil
}

// motionPayload is the expected shape of an events/motion message.
type motionPayload struct {
	DeviceID  *int64 `json:"device_id"`
	Timestamp string `json:"timestamp"`
}

// routeMotion validates a motion payload and hands it to the rule engine.
// The full payload map travels with the signal so the persisted motion event
// keeps every field the sensor sent.
func (r *Router) routeMotion(payload []byte) error {
	var parsed motionPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		r.logger.Warn("motion payload is not JSON", "error", err)
		return nil
	}
	if parsed.DeviceID == nil {
		r.logger.Warn("motion payload missing device_id")
		return nil
	}

	ts := r.clock().UTC()
	if parsed.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, parsed.Timestamp); err == nil {
			ts = t.UTC()
		}
	}

	var full map[string]any
	if err := json.Unmarshal(payload, &full); err != nil {
		full = map[string]any{}
	}

	return r.motion.HandleMotion(r.ctx, rules.MotionSignal{
		DeviceID:  *parsed.DeviceID,
		Timestamp: ts,
		Payload:   full,
	})
}

// truncatePayload returns at most truncatedPayloadLen bytes for logging.
func truncatePayload(payload []byte) string {
	if len(payload) > truncatedPayloadLen {
		return string(payload[:truncatedPayloadLen]) + "..."
	}
	return string(payload)
}
