package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oakwatch/sentinel-core/internal/detection"
	"github.com/oakwatch/sentinel-core/internal/device"
	"github.com/oakwatch/sentinel-core/internal/event"
	"github.com/oakwatch/sentinel-core/internal/evidence"
)

// CameraDirectory is the interface the pipeline needs from the device package.
type CameraDirectory interface {
	GetByID(ctx context.Context, id int64) (*device.Device, error)
}

// EventStore is the interface the pipeline needs from the event package.
type EventStore interface {
	Create(ctx context.Context, e *event.Event) error
}

// EvidenceStore is the interface the pipeline needs for evidence rows.
type EvidenceStore interface {
	Create(ctx context.Context, e *evidence.Evidence) error
}

// FrameSaver is the interface the pipeline needs from the frame store.
type FrameSaver interface {
	Save(deviceID int64, zoneID *int64, ts time.Time, format string, data []byte) (string, error)
}

// Logger is the minimal logging interface used by the pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// framePayload is the structured variant of a camera frame message.
// Cameras may instead publish the raw frame bytes with no JSON envelope.
type framePayload struct {
	Frame     string `json:"frame"`
	Format    string `json:"format"`
	ZoneID    *int64 `json:"zone_id"`
	EventID   *int64 `json:"event_id"`
	Timestamp string `json:"timestamp"`
}

// Pipeline turns camera frame messages into stored files and evidence rows.
//
// Each frame is decoded, written to the frame store, correlated to an event
// (the payload's event_id, or a fresh capture event when absent), recorded as
// an evidence row and finally submitted to the detection service. The
// detection call is fire-and-forget: its failure is logged and swallowed,
// the evidence row stands either way.
type Pipeline struct {
	cameras   CameraDirectory
	events    EventStore
	evidences EvidenceStore
	frames    FrameSaver
	detector  detection.Submitter
	logger    Logger

	clock func() time.Time
}

// NewPipeline creates an evidence capture pipeline. detector may be nil when
// no detection service is configured.
func NewPipeline(cameras CameraDirectory, events EventStore, evidences EvidenceStore, frames FrameSaver, detector detection.Submitter, logger Logger) *Pipeline {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Pipeline{
		cameras:   cameras,
		events:    events,
		evidences: evidences,
		frames:    frames,
		detector:  detector,
		logger:    logger,
		clock:     time.Now,
	}
}

// HandleFrame processes one frame message from cameras/{id}/frame.
//
// The payload is either a JSON envelope with a base64 frame_data field or the
// raw frame bytes. Unknown cameras and undecodable frames are dropped with a
// warning. Only store failures surface as errors.
func (p *Pipeline) HandleFrame(ctx context.Context, cameraID int64, payload []byte) error {
	cam, err := p.cameras.GetByID(ctx, cameraID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			p.logger.Warn("frame from unknown camera", "camera_id", cameraID)
			return nil
		}
		return fmt.Errorf("resolving camera: %w", err)
	}

	frame, ok := p.decodeFrame(cameraID, payload)
	if !ok {
		return nil
	}

	// Payload zone wins over the camera's registered zone.
	zoneID := cam.ZoneID
	if frame.zoneID != nil {
		zoneID = frame.zoneID
	}

	relPath, err := p.frames.Save(cameraID, zoneID, frame.timestamp, frame.format, frame.data)
	if err != nil {
		return fmt.Errorf("storing frame: %w", err)
	}

	eventID, err := p.resolveEventID(ctx, cameraID, zoneID, frame)
	if err != nil {
		return err
	}

	ev := &evidence.Evidence{
		DeviceID: cameraID,
		ZoneID:   zoneID,
		EventID:  eventID,
		FilePath: relPath,
	}
	if err := p.evidences.Create(ctx, ev); err != nil {
		return fmt.Errorf("persisting evidence: %w", err)
	}
	p.logger.Info("evidence stored",
		"evidence_id", ev.ID, "camera_id", cameraID, "event_id", eventID, "path", relPath)

	p.submitForDetection(ctx, ev.ID, relPath)
	return nil
}

// decodedFrame is a frame message after payload decoding.
type decodedFrame struct {
	data      []byte
	format    string
	zoneID    *int64
	eventID   *int64
	timestamp time.Time
}

// decodeFrame extracts frame bytes and metadata from the payload. A JSON
// object is the structured variant and must carry a base64 frame field;
// anything that is not a JSON object is treated as raw frame bytes.
func (p *Pipeline) decodeFrame(cameraID int64, payload []byte) (decodedFrame, bool) {
	frame := decodedFrame{timestamp: p.clock().UTC()}

	var structured framePayload
	if err := json.Unmarshal(payload, &structured); err == nil {
		if structured.Frame == "" {
			p.logger.Warn("structured frame payload has no frame", "camera_id", cameraID)
			return decodedFrame{}, false
		}
		data, err := base64.StdEncoding.DecodeString(structured.Frame)
		if err != nil {
			p.logger.Warn("frame is not valid base64", "camera_id", cameraID, "error", err)
			return decodedFrame{}, false
		}
		frame.data = data
		frame.format = structured.Format
		frame.zoneID = structured.ZoneID
		frame.eventID = structured.EventID
		if ts, err := time.Parse(time.RFC3339Nano, structured.Timestamp); err == nil {
			frame.timestamp = ts.UTC()
		}
		return frame, true
	}

	if len(payload) == 0 {
		p.logger.Warn("empty frame payload", "camera_id", cameraID)
		return decodedFrame{}, false
	}
	frame.data = payload
	return frame, true
}

// resolveEventID returns the payload's event id, or creates a capture event
// to anchor evidence that arrived without a motion correlation.
func (p *Pipeline) resolveEventID(ctx context.Context, cameraID int64, zoneID *int64, frame decodedFrame) (int64, error) {
	if frame.eventID != nil {
		return *frame.eventID, nil
	}

	captureEvent := &event.Event{
		DeviceID:  cameraID,
		ZoneID:    zoneID,
		EventType: event.TypeCapture,
		Payload: map[string]any{
			"source":    "camera_frame",
			"timestamp": frame.timestamp.Format(time.RFC3339Nano),
		},
	}
	if err := p.events.Create(ctx, captureEvent); err != nil {
		return 0, fmt.Errorf("persisting capture event: %w", err)
	}
	p.logger.Debug("capture event created", "event_id", captureEvent.ID, "camera_id", cameraID)
	return captureEvent.ID, nil
}

// submitForDetection hands the stored frame to the detection service. The
// evidence row is already committed; failures here are logged and dropped.
func (p *Pipeline) submitForDetection(ctx context.Context, evidenceID int64, relPath string) {
	if p.detector == nil {
		return
	}
	if err := p.detector.Submit(ctx, evidenceID, relPath); err != nil {
		p.logger.Debug("detection submit failed", "evidence_id", evidenceID, "error", err)
		return
	}
	p.logger.Debug("frame submitted for detection", "evidence_id", evidenceID)
}
