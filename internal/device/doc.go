// Package device implements the device directory for Gray Logic OSD.
//
// A device is either a camera (carrying writable text overlay slots) or a
// source device (supplying measurements: thermometers, locks, entry
// sensors, multi-sensors). The directory is the authority on which devices
// exist, what they can do, and what they last reported.
//
// # Architecture
//
// The package follows a Repository + Registry split:
//
//   - Repository: persistence interface with a SQLite implementation.
//     Devices are stored in the devices table with JSON-encoded
//     capability, sensor, overlay slot and state columns.
//
//   - Registry: thread-safe cached wrapper over a Repository. All reads
//     served to the overlay engine come from the in-memory cache; every
//     returned device is a deep copy so callers can never mutate cached
//     entries.
//
//   - Stream: MQTT consumer on osd/state/+ that applies incoming state
//     events to the registry and fans them out to per-device subscribers.
//     The overlay reconciliation loops attach and detach handlers here.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	stream := device.NewStream(mqttClient, registry)
//	if err := stream.Start(ctx); err != nil {
//	    return err
//	}
//
//	sub := stream.Subscribe("sensor-garden", func(ev device.StateEvent) {
//	    // react to new measurement
//	})
//	defer sub.Cancel()
package device
