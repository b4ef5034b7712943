package mqtt

import "fmt"

// Topic roots for the security event worker.
//
// Inbound topics carry field-device events; outbound topics carry actuation
// commands. The worker's own liveness is published under TopicPrefixWorker.
const (
	// TopicMotion is the single motion-event topic (exact match, no wildcard).
	TopicMotion = "events/motion"

	// TopicPrefixDevices is the base for per-device status/telemetry topics.
	TopicPrefixDevices = "devices"

	// TopicPrefixCameras is the base for per-camera frame topics.
	TopicPrefixCameras = "cameras"

	// TopicPrefixCommands is the base for outbound actuation commands.
	TopicPrefixCommands = "commands"

	// TopicPrefixWorker is the base for worker liveness topics.
	TopicPrefixWorker = "sentinel/worker"
)

// Topics provides builders for the worker's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// =============================================================================
// Inbound subscription patterns
// =============================================================================

// Motion returns the motion event topic.
//
// Topic: events/motion
func (Topics) Motion() string {
	return TopicMotion
}

// DeviceStatusPattern returns a pattern matching all device status topics.
//
// Pattern: devices/+/status
func (Topics) DeviceStatusPattern() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixDevices)
}

// DeviceTelemetryPattern returns a pattern matching all device telemetry topics.
//
// Pattern: devices/+/telemetry
func (Topics) DeviceTelemetryPattern() string {
	return fmt.Sprintf("%s/+/telemetry", TopicPrefixDevices)
}

// CameraFramePattern returns a pattern matching all camera frame topics.
//
// Pattern: cameras/+/frame
func (Topics) CameraFramePattern() string {
	return fmt.Sprintf("%s/+/frame", TopicPrefixCameras)
}

// =============================================================================
// Outbound command topics
// =============================================================================

// RelayCommand returns the command topic for a relay device.
//
// Example: commands/relays/10
func (Topics) RelayCommand(relayID int64) string {
	return fmt.Sprintf("%s/relays/%d", TopicPrefixCommands, relayID)
}

// CameraCommand returns the command topic for a camera device.
//
// Example: commands/cameras/20
func (Topics) CameraCommand(cameraID int64) string {
	return fmt.Sprintf("%s/cameras/%d", TopicPrefixCommands, cameraID)
}

// =============================================================================
// Worker topics
// =============================================================================

// WorkerStatus returns the worker liveness topic (retained online/offline).
//
// Topic: sentinel/worker/status
func (Topics) WorkerStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixWorker)
}
