package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/oakwatch/sentinel-core/internal/measurement"
)

type mockMeasurementStore struct {
	mu     sync.Mutex
	rows   []*measurement.Measurement
	nextID int64
}

func (m *mockMeasurementStore) Create(_ context.Context, row *measurement.Measurement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	row.ID = m.nextID
	copied := *row
	m.rows = append(m.rows, &copied)
	return nil
}

type mockMirror struct {
	mu     sync.Mutex
	points []mirrorPoint
}

type mirrorPoint struct {
	deviceID   int64
	field      string
	value      float64
	recordedAt time.Time
}

func (m *mockMirror) WriteTelemetry(deviceID int64, field string, value float64, recordedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, mirrorPoint{deviceID, field, value, recordedAt})
}

func testTelemetryIngestor(t *testing.T) (*TelemetryIngestor, *mockMeasurementStore, *mockMirror, time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 30, 16, 0, 0, 0, time.UTC)
	store := &mockMeasurementStore{}
	mirror := &mockMirror{}
	ingestor := NewTelemetryIngestor(store, mirror, nil)
	ingestor.clock = func() time.Time { return now }
	return ingestor, store, mirror, now
}

func telemetryPayload(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleTelemetryExtractsTimestamp(t *testing.T) {
	ingestor, store, _, _ := testTelemetryIngestor(t)

	err := ingestor.HandleTelemetry(context.Background(), 3, telemetryPayload(t, map[string]any{
		"timestamp":   "2026-08-30T15:45:00Z",
		"temperature": 21.5,
		"humidity":    40.0,
	}))
	if err != nil {
		t.Fatalf("HandleTelemetry() error = %v", err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.DeviceID != 3 {
		t.Errorf("DeviceID = %d, want 3", row.DeviceID)
	}
	want := time.Date(2026, 8, 30, 15, 45, 0, 0, time.UTC)
	if !row.RecordedAt.Equal(want) {
		t.Errorf("RecordedAt = %v, want %v", row.RecordedAt, want)
	}
	if _, ok := row.Data["timestamp"]; ok {
		t.Error("timestamp must be removed from stored data")
	}
	if row.Data["temperature"] != 21.5 || row.Data["humidity"] != 40.0 {
		t.Errorf("Data = %v, want temperature and humidity preserved", row.Data)
	}
}

func TestHandleTelemetryRecordedAtFallbackKey(t *testing.T) {
	ingestor, store, _, _ := testTelemetryIngestor(t)

	err := ingestor.HandleTelemetry(context.Background(), 3, telemetryPayload(t, map[string]any{
		"recorded_at": "2026-08-30T15:45:00Z",
		"voltage":     3.3,
	}))
	if err != nil {
		t.Fatalf("HandleTelemetry() error = %v", err)
	}

	row := store.rows[0]
	want := time.Date(2026, 8, 30, 15, 45, 0, 0, time.UTC)
	if !row.RecordedAt.Equal(want) {
		t.Errorf("RecordedAt = %v, want %v", row.RecordedAt, want)
	}
	if _, ok := row.Data["recorded_at"]; ok {
		t.Error("recorded_at must be removed from stored data")
	}
}

func TestHandleTelemetryMissingTimestampUsesReceiptTime(t *testing.T) {
	ingestor, store, _, now := testTelemetryIngestor(t)

	err := ingestor.HandleTelemetry(context.Background(), 3,
		telemetryPayload(t, map[string]any{"temperature": 20.0}))
	if err != nil {
		t.Fatalf("HandleTelemetry() error = %v", err)
	}
	if !store.rows[0].RecordedAt.Equal(now) {
		t.Errorf("RecordedAt = %v, want receipt time %v", store.rows[0].RecordedAt, now)
	}
}

func TestHandleTelemetryUnparseableTimestampUsesReceiptTime(t *testing.T) {
	ingestor, store, _, now := testTelemetryIngestor(t)

	err := ingestor.HandleTelemetry(context.Background(), 3, telemetryPayload(t, map[string]any{
		"timestamp":   "yesterday",
		"temperature": 20.0,
	}))
	if err != nil {
		t.Fatalf("HandleTelemetry() error = %v", err)
	}
	row := store.rows[0]
	if !row.RecordedAt.Equal(now) {
		t.Errorf("RecordedAt = %v, want receipt time %v", row.RecordedAt, now)
	}
	if _, ok := row.Data["timestamp"]; ok {
		t.Error("unparseable timestamp is still consumed, not stored")
	}
}

func TestHandleTelemetryEmptyAfterExtractionIsNoop(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"only timestamp", map[string]any{"timestamp": "2026-08-30T15:45:00Z"}},
		{"empty object", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingestor, store, mirror, _ := testTelemetryIngestor(t)

			if err := ingestor.HandleTelemetry(context.Background(), 3, telemetryPayload(t, tt.fields)); err != nil {
				t.Fatalf("HandleTelemetry() error = %v", err)
			}
			if len(store.rows) != 0 {
				t.Errorf("rows = %d, want 0", len(store.rows))
			}
			if len(mirror.points) != 0 {
				t.Errorf("mirror points = %d, want 0", len(mirror.points))
			}
		})
	}
}

func TestHandleTelemetryNonJSONDropped(t *testing.T) {
	ingestor, store, _, _ := testTelemetryIngestor(t)

	if err := ingestor.HandleTelemetry(context.Background(), 3, []byte("garbage")); err != nil {
		t.Fatalf("HandleTelemetry() error = %v, non-JSON must be a silent drop", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("rows = %d, want 0", len(store.rows))
	}
}

func TestHandleTelemetryMirrorsNumericFields(t *testing.T) {
	ingestor, _, mirror, _ := testTelemetryIngestor(t)

	err := ingestor.HandleTelemetry(context.Background(), 3, telemetryPayload(t, map[string]any{
		"timestamp":   "2026-08-30T15:45:00Z",
		"temperature": 21.5,
		"humidity":    40.0,
		"firmware":    "v2.1.0",
	}))
	if err != nil {
		t.Fatalf("HandleTelemetry() error = %v", err)
	}

	if len(mirror.points) != 2 {
		t.Fatalf("mirror points = %d, want 2 numeric fields only", len(mirror.points))
	}
	byField := make(map[string]mirrorPoint)
	for _, p := range mirror.points {
		byField[p.field] = p
	}
	if p, ok := byField["temperature"]; !ok || p.value != 21.5 || p.deviceID != 3 {
		t.Errorf("temperature point = %+v", byField["temperature"])
	}
	if _, ok := byField["firmware"]; ok {
		t.Error("non-numeric field must not be mirrored")
	}
	want := time.Date(2026, 8, 30, 15, 45, 0, 0, time.UTC)
	for _, p := range mirror.points {
		if !p.recordedAt.Equal(want) {
			t.Errorf("mirror recordedAt = %v, want %v", p.recordedAt, want)
		}
	}
}

func TestHandleTelemetryNilMirror(t *testing.T) {
	store := &mockMeasurementStore{}
	ingestor := NewTelemetryIngestor(store, nil, nil)

	err := ingestor.HandleTelemetry(context.Background(), 3,
		telemetryPayload(t, map[string]any{"temperature": 20.0}))
	if err != nil {
		t.Fatalf("HandleTelemetry() error = %v", err)
	}
	if len(store.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(store.rows))
	}
}
