package mqtt

import "fmt"

// Topic prefixes for the OSD MQTT namespace.
//
// Device-facing topics use a flat scheme: osd/{category}/{device_id}.
const (
	// TopicPrefix is the base for all OSD topics.
	TopicPrefix = "osd"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "osd/system"
)

// Topics provides builders for OSD MQTT topics. Using these helpers keeps
// topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("sensor-garden")
//	// Returns: "osd/state/sensor-garden"
type Topics struct{}

// DeviceState returns the topic a device publishes measurement and state
// events on.
//
// Example: osd/state/sensor-garden
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// CameraCommand returns the topic overlay writes for a camera are published
// to. The payload carries the overlay id and the set_text/clear action.
//
// Example: osd/command/cam-front-door
func (Topics) CameraCommand(cameraID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, cameraID)
}

// RenderEvent returns the topic rendered overlay text is echoed on for
// observers (UI, debugging).
//
// Example: osd/render/cam-front-door
func (Topics) RenderEvent(cameraID string) string {
	return fmt.Sprintf("%s/render/%s", TopicPrefix, cameraID)
}

// SystemStatus returns the service status topic (online/offline, LWT).
//
// Example: osd/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: osd/state/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// DeviceIDFromStateTopic extracts the device id from a state topic.
// Returns "" if the topic is not a state topic.
func (Topics) DeviceIDFromStateTopic(topic string) string {
	prefix := TopicPrefix + "/state/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	return topic[len(prefix):]
}
