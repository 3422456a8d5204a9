// Package influxdb provides InfluxDB connectivity for Gray Logic OSD.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Overlay render outcomes (success/failure per camera and slot)
//   - Sensor telemetry flowing through the state stream
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "graylogic",
//	    Bucket: "osd",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteRenderEvent("cam-01", "1", true)
//
// RenderRecorder adapts the client to the overlay engine's recorder port
// and tolerates a nil client, so wiring stays unconditional whether or not
// the integration is enabled.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors surface via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
