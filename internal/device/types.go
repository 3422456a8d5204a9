package device

import "time"

// Device represents a managed entity in the OSD directory: a camera that
// carries text overlays, or a source device that supplies measurements for
// them. This matches the devices table in the initial schema migration.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Classification
	Kind DeviceKind `json:"kind"`

	// Capabilities the device exposes.
	Capabilities []Capability `json:"capabilities"`

	// Sensors lists the sub-measurements of a multi-sensor device.
	// Empty for single-measurement devices.
	Sensors []Sensor `json:"sensors,omitempty"`

	// OverlaySlots is the ordered list of overlay ids the device reports.
	// Only meaningful for cameras; it is the authority on which overlay
	// ids exist.
	OverlaySlots []string `json:"overlay_slots,omitempty"`

	// State holds the current measurements as a JSON map.
	//
	// Examples:
	//   - Thermometer: {"temperature": 21.5}
	//   - Multi-sensor: {"t1": 21.5, "h1": 55}
	//   - Lock: {"lock": "locked"}
	State State `json:"state"`

	// Sleeping marks a camera that is suspended; overlay renders are
	// suppressed while set.
	Sleeping bool `json:"sleeping"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	cpy.State = deepCopyMap(d.State)

	if d.Capabilities != nil {
		cpy.Capabilities = make([]Capability, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}
	if d.Sensors != nil {
		cpy.Sensors = make([]Sensor, len(d.Sensors))
		copy(cpy.Sensors, d.Sensors)
	}
	if d.OverlaySlots != nil {
		cpy.OverlaySlots = make([]string, len(d.OverlaySlots))
		copy(cpy.OverlaySlots, d.OverlaySlots)
	}

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives are safe to copy by value.
		return v
	}
}

// HasCapability reports whether the device exposes the given capability.
func (d *Device) HasCapability(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// SensorByID returns the sensor with the given id, or nil.
func (d *Device) SensorByID(id string) *Sensor {
	for i := range d.Sensors {
		if d.Sensors[i].ID == id {
			return &d.Sensors[i]
		}
	}
	return nil
}

// Sensor describes one sub-measurement of a multi-sensor device.
type Sensor struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Unit is the native unit the sensor reports in (e.g. "c", "percent").
	Unit string `json:"unit,omitempty"`
}

// State holds the current device measurements as a JSON map keyed by
// measurement name (or sensor id for multi-sensor devices).
type State map[string]any

// DeviceKind classifies a directory entry.
type DeviceKind string //nolint:revive // device.DeviceKind is clearer than device.Kind in calling code

// DeviceKind constants.
const (
	KindCamera DeviceKind = "camera"
	KindSensor DeviceKind = "sensor"
)

// AllDeviceKinds returns all valid kind values.
func AllDeviceKinds() []DeviceKind {
	return []DeviceKind{KindCamera, KindSensor}
}

// Capability represents what a device can do or report.
type Capability string

// Capability constants.
const (
	// CapTextOverlays marks a camera exposing writable text overlay slots.
	CapTextOverlays Capability = "text_overlays"

	// CapObjectDetect marks a camera exposing face/object detection events.
	CapObjectDetect Capability = "object_detect"

	// CapBattery marks a device reporting battery level.
	CapBattery Capability = "battery"

	// CapThermometer marks a single-measurement temperature source.
	CapThermometer Capability = "thermometer"

	// CapHumidity marks a single-measurement humidity source.
	CapHumidity Capability = "humidity"

	// CapLock marks a lock reporting locked/unlocked/jammed.
	CapLock Capability = "lock"

	// CapEntry marks a contact/entry sensor reporting open/closed.
	CapEntry Capability = "entry"

	// CapBinary marks a generic binary state source.
	CapBinary Capability = "binary"

	// CapSensors marks a multi-sensor device with selectable sub-measurements.
	CapSensors Capability = "sensors"
)

// AllCapabilities returns all valid capability values.
func AllCapabilities() []Capability {
	return []Capability{
		CapTextOverlays, CapObjectDetect, CapBattery,
		CapThermometer, CapHumidity, CapLock, CapEntry, CapBinary, CapSensors,
	}
}

// Measurement names used as State keys and event measurement fields for
// single-measurement capabilities.
const (
	MeasurementTemperature = "temperature"
	MeasurementHumidity    = "humidity"
	MeasurementLock        = "lock"
	MeasurementEntry       = "entry"
	MeasurementBinary      = "binary"
	MeasurementBattery     = "battery"
	MeasurementDetection   = "detection"
	MeasurementSleeping    = "sleeping"
)
