// Package mqtt provides MQTT client connectivity for Gray Logic OSD.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT is the device transport for the OSD service: device bridges publish
// measurement/state events on osd/state/{device_id}, and the overlay engine
// publishes text writes to osd/command/{camera_id}.
//
//	Device bridges → MQTT Broker → OSD engine → MQTT Broker → Cameras
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceStates(), 1,
//	    func(topic string, payload []byte) error {
//	        // decode state event
//	        return nil
//	    })
//
// TLS should be enabled for production deployments; anonymous access is for
// local development only.
package mqtt
