package overlay

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-osd/internal/device"
)

// Kind classifies what an overlay slot displays.
type Kind string

// Overlay kinds.
const (
	// KindDisabled clears the slot on the device.
	KindDisabled Kind = "disabled"

	// KindStaticText renders a fixed string once per reconciliation.
	KindStaticText Kind = "static_text"

	// KindDeviceBound renders live measurements from another device.
	KindDeviceBound Kind = "device_bound"

	// KindTemplate renders a shared multi-device template on a timer.
	KindTemplate Kind = "template"

	// KindFaceDetection renders the owning camera's detection events.
	KindFaceDetection Kind = "face_detection"

	// KindBatteryLevel renders the owning camera's battery level.
	KindBatteryLevel Kind = "battery_level"
)

// AllKinds returns all valid overlay kinds.
func AllKinds() []Kind {
	return []Kind{
		KindDisabled, KindStaticText, KindDeviceBound,
		KindTemplate, KindFaceDetection, KindBatteryLevel,
	}
}

// Overlay is the configuration of one on-screen text slot on a camera.
//
// Exactly one of {StaticText, SourceDeviceID, TemplateID} is meaningful
// depending on Kind; fields belonging to other kinds are carried but
// ignored, never validated away.
type Overlay struct {
	// ID is the slot identifier as reported by the camera. Unique within
	// a camera; the camera's reported slot list is the authority on which
	// ids exist.
	ID string `json:"id"`

	Kind Kind `json:"kind"`

	// StaticText is the literal text for KindStaticText.
	StaticText string `json:"static_text,omitempty"`

	// SourceDeviceID names the device supplying data for KindDeviceBound.
	SourceDeviceID string `json:"source_device_id,omitempty"`

	// SensorID selects a sub-measurement on a multi-sensor source.
	SensorID   string `json:"sensor_id,omitempty"`
	SensorName string `json:"sensor_name,omitempty"`

	// FormatExpression is substituted at render time: ${value} with the
	// formatted reading, ${unit} with the display unit label.
	FormatExpression string `json:"format_expression,omitempty"`

	// MaxDecimals bounds numeric precision. Rounding truncates toward
	// zero. Default 1.
	MaxDecimals int `json:"max_decimals"`

	// MaxCharacters caps rendered length; longer text is truncated with
	// an ellipsis. Zero means no truncation.
	MaxCharacters int `json:"max_characters,omitempty"`

	// Unit is the display unit for numeric sources (e.g. "f" to show a
	// Celsius thermometer in Fahrenheit). Empty means the plugin default
	// for temperature, or the source's native unit otherwise.
	Unit string `json:"unit,omitempty"`

	// TemplateID references a Template for KindTemplate.
	TemplateID string `json:"template_id,omitempty"`

	// CurrentText is the last successfully rendered value. Read-only;
	// overwritten on every successful render.
	CurrentText string `json:"current_text,omitempty"`
}

// Template is a reusable multi-device text generator, plugin-scoped and
// referenced by zero or more overlays. Deleting one orphans referencing
// overlays; they simply stop rendering.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// SourceDevices is the ordered set of devices the parser draws from.
	SourceDevices []string `json:"source_devices"`

	// SelectedSensors maps a multi-sensor device id to the sensor ids the
	// parser may reference.
	SelectedSensors map[string][]string `json:"selected_sensors,omitempty"`

	// ParserString is free text with {deviceId.sensorId} placeholders.
	ParserString string `json:"parser_string"`

	// RefreshIntervalSeconds is the poll cadence. Zero falls back to the
	// plugin default; values below one second are raised to one.
	RefreshIntervalSeconds int `json:"refresh_interval_seconds"`
}

// ListenerKind is the update mechanism chosen for an overlay.
type ListenerKind string

// Listener kinds.
const (
	ListenerNone        ListenerKind = "none"
	ListenerSensors     ListenerKind = "sensors"
	ListenerTemperature ListenerKind = "temperature"
	ListenerHumidity    ListenerKind = "humidity"
	ListenerLock        ListenerKind = "lock"
	ListenerEntry       ListenerKind = "entry"
	ListenerBinary      ListenerKind = "binary"
	ListenerFace        ListenerKind = "face"
	ListenerBattery     ListenerKind = "battery"
	ListenerInterval    ListenerKind = "interval"
)

// IsEvent reports whether the listener kind subscribes to a device's
// event stream (as opposed to polling or rendering synthetically).
func (k ListenerKind) IsEvent() bool {
	switch k {
	case ListenerSensors, ListenerTemperature, ListenerHumidity,
		ListenerLock, ListenerEntry, ListenerBinary, ListenerFace, ListenerBattery:
		return true
	default:
		return false
	}
}

// ListenerPlan is the Overlay Resolver's decision for one overlay: which
// mechanism to listen with, on which device, and for which measurement.
type ListenerPlan struct {
	Kind ListenerKind

	// DeviceID is the device to listen to: the bound source for
	// device-bound overlays, the owning camera for face/battery.
	DeviceID string

	// Measurement is the state key carrying the value: a sensor id for
	// multi-sensor sources, a measurement name otherwise.
	Measurement string

	// Unit is the native unit the measurement is reported in.
	Unit string

	// Interval is the poll cadence for ListenerInterval.
	Interval time.Duration

	// Template is the resolved template for ListenerInterval.
	Template *Template
}

// Directory is the slice of the device registry the engine reads:
// capability and state lookups plus the sleep flag.
type Directory interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	IsSleeping(id string) bool
}

// EventSource provides cancellable per-device event subscriptions.
// Implemented by device.Stream.
type EventSource interface {
	Subscribe(deviceID string, handler device.EventHandler) *device.Subscription
}
