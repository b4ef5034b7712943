package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oakwatch/sentinel-core/internal/rules"
)

type mockHandlers struct {
	mu         sync.Mutex
	motions    []rules.MotionSignal
	statuses   []idPayload
	telemetry  []idPayload
	frames     []idPayload
	handlerErr error
}

type idPayload struct {
	id      int64
	payload []byte
}

func (m *mockHandlers) HandleMotion(_ context.Context, sig rules.MotionSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.motions = append(m.motions, sig)
	return m.handlerErr
}

func (m *mockHandlers) HandleStatus(_ context.Context, deviceID int64, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, idPayload{deviceID, payload})
	return m.handlerErr
}

func (m *mockHandlers) HandleTelemetry(_ context.Context, deviceID int64, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.telemetry = append(m.telemetry, idPayload{deviceID, payload})
	return m.handlerErr
}

func (m *mockHandlers) HandleFrame(_ context.Context, cameraID int64, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, idPayload{cameraID, payload})
	return m.handlerErr
}

func testRouter(t *testing.T) (*Router, *mockHandlers) {
	t.Helper()
	h := &mockHandlers{}
	r := New(context.Background(), h, h, h, h, nil)
	r.clock = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}
	return r, h
}

func TestRouteMotionTopic(t *testing.T) {
	r, h := testRouter(t)

	payload := []byte(`{"device_id": 7, "timestamp": "2026-08-30T11:59:00Z", "confidence": 0.8}`)
	if err := r.Route("events/motion", payload); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	if len(h.motions) != 1 {
		t.Fatalf("motions = %d, want 1", len(h.motions))
	}
	sig := h.motions[0]
	if sig.DeviceID != 7 {
		t.Errorf("DeviceID = %d, want 7", sig.DeviceID)
	}
	want := time.Date(2026, 8, 30, 11, 59, 0, 0, time.UTC)
	if !sig.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", sig.Timestamp, want)
	}
	if sig.Payload["confidence"] != 0.8 {
		t.Errorf("Payload = %v, want full original payload preserved", sig.Payload)
	}
}

func TestRouteMotionDefaultsTimestampToReceipt(t *testing.T) {
	r, h := testRouter(t)

	if err := r.Route("events/motion", []byte(`{"device_id": 7}`)); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if !h.motions[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want receipt time %v", h.motions[0].Timestamp, want)
	}
}

func TestRouteMotionInvalidPayloadDropped(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "garbage"},
		{"missing device_id", `{"confidence": 0.5}`},
		{"device_id not numeric", `{"device_id": "seven"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, h := testRouter(t)

			if err := r.Route("events/motion", []byte(tt.payload)); err != nil {
				t.Fatalf("Route() error = %v, invalid motion payload must be a silent drop", err)
			}
			if len(h.motions) != 0 {
				t.Errorf("motions = %d, want 0", len(h.motions))
			}
		})
	}
}

func TestRouteDeviceTopics(t *testing.T) {
	r, h := testRouter(t)

	if err := r.Route("devices/5/status", []byte(`{"status":"online"}`)); err != nil {
		t.Fatalf("Route(status) error = %v", err)
	}
	if err := r.Route("devices/6/telemetry", []byte(`{"temperature":20}`)); err != nil {
		t.Fatalf("Route(telemetry) error = %v", err)
	}
	if err := r.Route("cameras/20/frame", []byte{0xFF, 0xD8}); err != nil {
		t.Fatalf("Route(frame) error = %v", err)
	}

	if len(h.statuses) != 1 || h.statuses[0].id != 5 {
		t.Errorf("statuses = %+v, want device 5", h.statuses)
	}
	if len(h.telemetry) != 1 || h.telemetry[0].id != 6 {
		t.Errorf("telemetry = %+v, want device 6", h.telemetry)
	}
	if len(h.frames) != 1 || h.frames[0].id != 20 {
		t.Errorf("frames = %+v, want camera 20", h.frames)
	}
	if string(h.frames[0].payload) != string([]byte{0xFF, 0xD8}) {
		t.Error("frame payload must pass through untouched")
	}
}

func TestRouteNonNumericIDDropped(t *testing.T) {
	r, h := testRouter(t)

	for _, topic := range []string{
		"devices/abc/status",
		"devices/1.5/telemetry",
		"cameras/x/frame",
	} {
		if err := r.Route(topic, []byte(`{}`)); err != nil {
			t.Fatalf("Route(%q) error = %v, non-numeric id must be a silent drop", topic, err)
		}
	}
	if len(h.statuses)+len(h.telemetry)+len(h.frames) != 0 {
		t.Error("non-numeric ids must not reach handlers")
	}
}

func TestRouteUnknownTopicsDropped(t *testing.T) {
	r, h := testRouter(t)

	for _, topic := range []string{
		"events/other",
		"devices/5/unknown",
		"devices/5/status/extra",
		"other/5/status",
		"devices/5",
		"",
	} {
		if err := r.Route(topic, []byte(`{}`)); err != nil {
			t.Fatalf("Route(%q) error = %v, unknown topic must be a silent drop", topic, err)
		}
	}
	if len(h.motions)+len(h.statuses)+len(h.telemetry)+len(h.frames) != 0 {
		t.Error("unknown topics must not reach handlers")
	}
}

func TestRouteSurfacesHandlerErrors(t *testing.T) {
	r, h := testRouter(t)
	h.handlerErr = context.DeadlineExceeded

	if err := r.Route("devices/5/status", []byte(`{"status":"online"}`)); err == nil {
		t.Error("Route() error = nil, want handler error surfaced to the session wrapper")
	}
}
