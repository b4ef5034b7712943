package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTelemetry writes a single numeric telemetry field to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously. Called
// by the telemetry ingestor once per numeric field in a measurement.
//
// Example:
//
//	client.WriteTelemetry(7, "temperature", 25.5, recordedAt)
//	client.WriteTelemetry(7, "humidity", 60, recordedAt)
func (c *Client) WriteTelemetry(deviceID int64, field string, value float64, recordedAt time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"telemetry",
		map[string]string{
			"device_id": strconv.FormatInt(deviceID, 10),
			"field":     field,
		},
		map[string]interface{}{
			"value": value,
		},
		recordedAt,
	)

	c.writeAPI.WritePoint(point)
}
