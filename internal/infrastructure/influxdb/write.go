package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRenderEvent records one overlay render outcome.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - cameraID: the camera whose overlay was written
//   - overlayID: the overlay slot
//   - ok: whether the sink write succeeded
func (c *Client) WriteRenderEvent(cameraID, overlayID string, ok bool) {
	if !c.IsConnected() {
		return
	}

	result := "ok"
	if !ok {
		result = "failed"
	}

	point := write.NewPoint(
		"overlay_renders",
		map[string]string{
			"camera_id":  cameraID,
			"overlay_id": overlayID,
			"result":     result,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceMetric records a numeric sensor reading as it flows through
// the state stream. Used for ambient telemetry alongside render metrics.
func (c *Client) WriteDeviceMetric(deviceID, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_metrics",
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// RenderRecorder adapts the client to the overlay engine's recorder port.
// A nil receiver is a no-op, so callers can pass it unconditionally.
type RenderRecorder struct {
	client *Client
}

// NewRenderRecorder wraps a client. The client may be nil when InfluxDB
// is disabled.
func NewRenderRecorder(client *Client) *RenderRecorder {
	return &RenderRecorder{client: client}
}

// RecordRender forwards one render outcome.
func (r *RenderRecorder) RecordRender(cameraID, overlayID string, ok bool) {
	if r == nil || r.client == nil {
		return
	}
	r.client.WriteRenderEvent(cameraID, overlayID, ok)
}
