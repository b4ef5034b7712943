package command

import (
	"encoding/json"
	"fmt"

	"github.com/oakwatch/sentinel-core/internal/infrastructure/mqtt"
)

// reasonMotion is the reason carried by motion-triggered commands.
const reasonMotion = "motion_detected"

// commandQoS is the delivery level for actuation commands: deliver with
// acknowledgment, at least once.
const commandQoS byte = 1

// MQTTClient is the interface the publisher needs from the bus session.
type MQTTClient interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the minimal logging interface used by the publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// relaySetCommand is the payload published to commands/relays/{id}.
type relaySetCommand struct {
	Command  string `json:"command"`
	State    string `json:"state"`
	Duration int    `json:"duration"`
	Reason   string `json:"reason"`
	ZoneID   int64  `json:"zone_id"`
}

// cameraCaptureCommand is the payload published to commands/cameras/{id}.
type cameraCaptureCommand struct {
	Command string `json:"command"`
	Frames  int    `json:"frames"`
	EventID int64  `json:"event_id"`
	ZoneID  int64  `json:"zone_id"`
	Reason  string `json:"reason"`
}

// Publisher builds and emits outbound actuation commands.
//
// A failed publish is logged as a warning and returned so the caller's
// fan-out loop can continue with the remaining devices; nothing is retried.
type Publisher struct {
	mqtt   MQTTClient
	topics mqtt.Topics
	logger Logger
}

// NewPublisher creates a command publisher over the given bus client.
func NewPublisher(client MQTTClient, logger Logger) *Publisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Publisher{
		mqtt:   client,
		logger: logger,
	}
}

// RelayOn publishes a set-on command to a relay.
//
// Topic: commands/relays/{id}
// Payload: {"command":"set","state":"on","duration":D,"reason":"motion_detected","zone_id":Z}
func (p *Publisher) RelayOn(relayID, zoneID int64, duration int) error {
	topic := p.topics.RelayCommand(relayID)
	return p.publish(topic, relaySetCommand{
		Command:  "set",
		State:    "on",
		Duration: duration,
		Reason:   reasonMotion,
		ZoneID:   zoneID,
	})
}

// RequestCapture publishes a capture command to a camera, carrying the motion
// event id so resulting evidence can be correlated back to it.
//
// Topic: commands/cameras/{id}
// Payload: {"command":"capture","frames":F,"event_id":E,"zone_id":Z,"reason":"motion_detected"}
func (p *Publisher) RequestCapture(cameraID, zoneID, eventID int64, frames int) error {
	topic := p.topics.CameraCommand(cameraID)
	return p.publish(topic, cameraCaptureCommand{
		Command: "capture",
		Frames:  frames,
		EventID: eventID,
		ZoneID:  zoneID,
		Reason:  reasonMotion,
	})
}

// publish serializes the payload and publishes at QoS 1, non-retained.
func (p *Publisher) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling command payload: %w", err)
	}

	if err := p.mqtt.Publish(topic, data, commandQoS, false); err != nil {
		p.logger.Warn("command publish failed", "topic", topic, "error", err)
		return fmt.Errorf("publishing command: %w", err)
	}

	p.logger.Debug("command published", "topic", topic)
	return nil
}
