package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oakwatch/sentinel-core/internal/device"
	"github.com/oakwatch/sentinel-core/internal/event"
	"github.com/oakwatch/sentinel-core/internal/evidence"
)

type mockCameras struct {
	mu      sync.Mutex
	devices map[int64]*device.Device
}

func (m *mockCameras) GetByID(_ context.Context, id int64) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	copied := *d
	return &copied, nil
}

type mockEventStore struct {
	mu     sync.Mutex
	events []*event.Event
	nextID int64
}

func (m *mockEventStore) Create(_ context.Context, e *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now().UTC()
	copied := *e
	m.events = append(m.events, &copied)
	return nil
}

type mockEvidenceStore struct {
	mu        sync.Mutex
	rows      []*evidence.Evidence
	nextID    int64
	createErr error
}

func (m *mockEvidenceStore) Create(_ context.Context, e *evidence.Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now().UTC()
	copied := *e
	m.rows = append(m.rows, &copied)
	return nil
}

type mockDetector struct {
	mu        sync.Mutex
	submits   []submitCall
	submitErr error
}

type submitCall struct {
	evidenceID int64
	filePath   string
}

func (m *mockDetector) Submit(_ context.Context, evidenceID int64, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, submitCall{evidenceID, filePath})
	return m.submitErr
}

func int64Ptr(v int64) *int64 { return &v }

func testPipeline(t *testing.T) (*Pipeline, *mockEventStore, *mockEvidenceStore, *mockDetector, string) {
	t.Helper()

	root := t.TempDir()
	cameras := &mockCameras{devices: map[int64]*device.Device{
		20: {ID: 20, ZoneID: int64Ptr(1), Category: device.CategoryCamera, Active: true},
		21: {ID: 21, Category: device.CategoryCamera, Active: true},
	}}
	events := &mockEventStore{}
	evidences := &mockEvidenceStore{}
	detector := &mockDetector{}
	frames := evidence.NewFrameStore(root)

	p := NewPipeline(cameras, events, evidences, frames, detector, nil)
	p.clock = func() time.Time {
		return time.Date(2026, 8, 30, 14, 30, 5, 123456000, time.UTC)
	}
	return p, events, evidences, detector, root
}

func TestHandleFrameStructuredPayload(t *testing.T) {
	p, events, evidences, detector, root := testPipeline(t)

	frameBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	payload, err := json.Marshal(map[string]any{
		"frame":     base64.StdEncoding.EncodeToString(frameBytes),
		"format":    "jpg",
		"event_id":  42,
		"zone_id":   1,
		"timestamp": "2026-08-30T14:30:05.123456Z",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.HandleFrame(context.Background(), 20, payload); err != nil {
		t.Fatalf("HandleFrame() error = %v", err)
	}

	if len(evidences.rows) != 1 {
		t.Fatalf("evidence rows = %d, want 1", len(evidences.rows))
	}
	row := evidences.rows[0]
	if row.EventID != 42 {
		t.Errorf("EventID = %d, want 42 from payload", row.EventID)
	}
	if row.DeviceID != 20 {
		t.Errorf("DeviceID = %d, want 20", row.DeviceID)
	}

	// No standalone capture event when the payload carries an event_id.
	if len(events.events) != 0 {
		t.Errorf("events created = %d, want 0", len(events.events))
	}

	// Stored file path follows {date}/zone_{id}/cam{id}_{HHMMSS}_{micros}.jpg
	// and the bytes round-trip through base64 untouched.
	wantPath := filepath.Join("2026-08-30", "zone_1", "cam20_143005_123456.jpg")
	if row.FilePath != wantPath {
		t.Errorf("FilePath = %q, want %q", row.FilePath, wantPath)
	}
	stored, err := os.ReadFile(filepath.Join(root, row.FilePath))
	if err != nil {
		t.Fatalf("reading stored frame: %v", err)
	}
	if string(stored) != string(frameBytes) {
		t.Errorf("stored bytes differ from original frame")
	}

	if len(detector.submits) != 1 {
		t.Fatalf("detection submits = %d, want 1", len(detector.submits))
	}
	if detector.submits[0].evidenceID != row.ID || detector.submits[0].filePath != row.FilePath {
		t.Errorf("detection submit = %+v, want evidence %d at %q",
			detector.submits[0], row.ID, row.FilePath)
	}
}

func TestHandleFrameRawPayloadCreatesCaptureEvent(t *testing.T) {
	p, events, evidences, _, _ := testPipeline(t)

	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	if err := p.HandleFrame(context.Background(), 20, raw); err != nil {
		t.Fatalf("HandleFrame() error = %v", err)
	}

	if len(events.events) != 1 {
		t.Fatalf("events created = %d, want 1 capture event", len(events.events))
	}
	capEvent := events.events[0]
	if capEvent.EventType != event.TypeCapture {
		t.Errorf("EventType = %q, want capture", capEvent.EventType)
	}
	if capEvent.Payload["source"] != "camera_frame" {
		t.Errorf("capture payload source = %v, want camera_frame", capEvent.Payload["source"])
	}
	if _, ok := capEvent.Payload["timestamp"]; !ok {
		t.Error("capture payload missing timestamp")
	}

	if len(evidences.rows) != 1 {
		t.Fatalf("evidence rows = %d, want 1", len(evidences.rows))
	}
	if evidences.rows[0].EventID != capEvent.ID {
		t.Errorf("evidence EventID = %d, want capture event id %d",
			evidences.rows[0].EventID, capEvent.ID)
	}
	// Raw frames default to jpg.
	if !strings.HasSuffix(evidences.rows[0].FilePath, ".jpg") {
		t.Errorf("FilePath = %q, want .jpg default", evidences.rows[0].FilePath)
	}
}

func TestHandleFrameUnzonedCameraUsesNoZoneDir(t *testing.T) {
	p, _, evidences, _, _ := testPipeline(t)

	if err := p.HandleFrame(context.Background(), 21, []byte{0x01}); err != nil {
		t.Fatalf("HandleFrame() error = %v", err)
	}
	if len(evidences.rows) != 1 {
		t.Fatalf("evidence rows = %d, want 1", len(evidences.rows))
	}
	if !strings.Contains(evidences.rows[0].FilePath, "no_zone") {
		t.Errorf("FilePath = %q, want no_zone directory", evidences.rows[0].FilePath)
	}
	if evidences.rows[0].ZoneID != nil {
		t.Errorf("ZoneID = %v, want nil", evidences.rows[0].ZoneID)
	}
}

func TestHandleFramePayloadZoneOverridesDeviceZone(t *testing.T) {
	p, _, evidences, _, _ := testPipeline(t)

	payload, _ := json.Marshal(map[string]any{
		"frame":    base64.StdEncoding.EncodeToString([]byte{0x01}),
		"zone_id":  7,
		"event_id": 1,
	})
	if err := p.HandleFrame(context.Background(), 20, payload); err != nil {
		t.Fatalf("HandleFrame() error = %v", err)
	}
	row := evidences.rows[0]
	if row.ZoneID == nil || *row.ZoneID != 7 {
		t.Errorf("ZoneID = %v, want payload zone 7 over device zone 1", row.ZoneID)
	}
	if !strings.Contains(row.FilePath, "zone_7") {
		t.Errorf("FilePath = %q, want zone_7 directory", row.FilePath)
	}
}

func TestHandleFrameUnknownCameraDropped(t *testing.T) {
	p, _, evidences, detector, _ := testPipeline(t)

	if err := p.HandleFrame(context.Background(), 999, []byte{0x01}); err != nil {
		t.Fatalf("HandleFrame() error = %v, unknown camera must be a silent drop", err)
	}
	if len(evidences.rows) != 0 {
		t.Errorf("evidence rows = %d, want 0", len(evidences.rows))
	}
	if len(detector.submits) != 0 {
		t.Errorf("detection submits = %d, want 0", len(detector.submits))
	}
}

func TestHandleFrameInvalidBase64Dropped(t *testing.T) {
	p, _, evidences, _, _ := testPipeline(t)

	payload, _ := json.Marshal(map[string]any{"frame": "!!not base64!!"})
	if err := p.HandleFrame(context.Background(), 20, payload); err != nil {
		t.Fatalf("HandleFrame() error = %v, bad base64 must be a silent drop", err)
	}
	if len(evidences.rows) != 0 {
		t.Errorf("evidence rows = %d, want 0", len(evidences.rows))
	}
}

func TestHandleFrameJSONWithoutFrameDropped(t *testing.T) {
	p, events, evidences, _, root := testPipeline(t)

	// A JSON object that carries metadata but no frame bytes is not a raw
	// image; storing its literal text would poison the evidence store.
	payload, _ := json.Marshal(map[string]any{
		"event_id":  42,
		"zone_id":   1,
		"format":    "jpeg",
		"timestamp": "2026-08-30T14:30:05Z",
	})
	if err := p.HandleFrame(context.Background(), 20, payload); err != nil {
		t.Fatalf("HandleFrame() error = %v, frameless envelope must be a silent drop", err)
	}
	if len(evidences.rows) != 0 {
		t.Errorf("evidence rows = %d, want 0", len(evidences.rows))
	}
	if len(events.events) != 0 {
		t.Errorf("events created = %d, want 0 (no spurious capture event)", len(events.events))
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("files stored = %d, want 0", len(entries))
	}
}

func TestHandleFrameEmptyPayloadDropped(t *testing.T) {
	p, _, evidences, _, _ := testPipeline(t)

	if err := p.HandleFrame(context.Background(), 20, nil); err != nil {
		t.Fatalf("HandleFrame() error = %v, empty payload must be a silent drop", err)
	}
	if len(evidences.rows) != 0 {
		t.Errorf("evidence rows = %d, want 0", len(evidences.rows))
	}
}

func TestHandleFrameDetectionFailureSwallowed(t *testing.T) {
	p, _, evidences, detector, _ := testPipeline(t)
	detector.submitErr = errors.New("connection refused")

	if err := p.HandleFrame(context.Background(), 20, []byte{0x01}); err != nil {
		t.Fatalf("HandleFrame() error = %v, detection failure must not surface", err)
	}
	if len(evidences.rows) != 1 {
		t.Errorf("evidence rows = %d, want 1 despite detection failure", len(evidences.rows))
	}
}

func TestHandleFrameNilDetector(t *testing.T) {
	p, _, evidences, _, _ := testPipeline(t)
	p.detector = nil

	if err := p.HandleFrame(context.Background(), 20, []byte{0x01}); err != nil {
		t.Fatalf("HandleFrame() error = %v", err)
	}
	if len(evidences.rows) != 1 {
		t.Errorf("evidence rows = %d, want 1", len(evidences.rows))
	}
}

func TestHandleFrameEvidenceCreateFailureSurfaced(t *testing.T) {
	p, _, evidences, detector, _ := testPipeline(t)
	evidences.createErr = errors.New("disk full")

	err := p.HandleFrame(context.Background(), 20, []byte{0x01})
	if err == nil {
		t.Fatal("HandleFrame() error = nil, want store failure surfaced")
	}
	if len(detector.submits) != 0 {
		t.Errorf("detection submits = %d, want 0 when evidence row failed", len(detector.submits))
	}
}
