package overlay

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-osd/internal/device"
)

// Resolver decides how an overlay gets its data: which listening
// mechanism applies, bound to which device and measurement.
type Resolver struct {
	devices Directory
	logger  Logger

	// defaultRefresh is the template poll cadence when a template does
	// not set one.
	defaultRefresh time.Duration
}

// NewResolver creates an overlay resolver over the device directory.
func NewResolver(devices Directory, defaultRefresh time.Duration) *Resolver {
	if defaultRefresh <= 0 {
		defaultRefresh = 5 * time.Second
	}
	return &Resolver{
		devices:        devices,
		logger:         noopLogger{},
		defaultRefresh: defaultRefresh,
	}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// Resolve maps one overlay configuration to a ListenerPlan given the
// owning camera and the currently known templates.
//
// A plan of ListenerNone means no subscription: static and disabled
// overlays render synthetically, unresolvable ones are left alone (the
// overlay keeps its last text, it is never erased by a lookup failure).
func (r *Resolver) Resolve(ctx context.Context, owner *device.Device, o Overlay, templates map[string]Template) ListenerPlan {
	switch o.Kind {
	case KindDisabled, KindStaticText:
		return ListenerPlan{Kind: ListenerNone}

	case KindDeviceBound:
		return r.resolveDeviceBound(ctx, owner, o)

	case KindFaceDetection:
		if !owner.HasCapability(device.CapObjectDetect) {
			r.logger.Warn("overlay wants detection but camera lacks capability",
				"camera_id", owner.ID, "overlay_id", o.ID)
			return ListenerPlan{Kind: ListenerNone}
		}
		return ListenerPlan{
			Kind:        ListenerFace,
			DeviceID:    owner.ID,
			Measurement: device.MeasurementDetection,
		}

	case KindBatteryLevel:
		if !owner.HasCapability(device.CapBattery) {
			r.logger.Warn("overlay wants battery but camera lacks capability",
				"camera_id", owner.ID, "overlay_id", o.ID)
			return ListenerPlan{Kind: ListenerNone}
		}
		return ListenerPlan{
			Kind:        ListenerBattery,
			DeviceID:    owner.ID,
			Measurement: device.MeasurementBattery,
			Unit:        UnitPercent,
		}

	case KindTemplate:
		tmpl, ok := templates[o.TemplateID]
		if !ok {
			// Orphaned reference: the template was deleted. The overlay
			// simply stops rendering.
			r.logger.Warn("overlay references missing template",
				"camera_id", owner.ID, "overlay_id", o.ID, "template_id", o.TemplateID)
			return ListenerPlan{Kind: ListenerNone}
		}
		return ListenerPlan{
			Kind:     ListenerInterval,
			DeviceID: owner.ID,
			Interval: r.templateInterval(tmpl),
			Template: &tmpl,
		}

	default:
		return ListenerPlan{Kind: ListenerNone}
	}
}

// resolveDeviceBound applies the capability decision table, first match
// wins: selected sensor on a multi-sensor source, then thermometer,
// humidity, lock, entry, binary.
func (r *Resolver) resolveDeviceBound(ctx context.Context, owner *device.Device, o Overlay) ListenerPlan {
	if o.SourceDeviceID == "" {
		return ListenerPlan{Kind: ListenerNone}
	}

	src, err := r.devices.GetDevice(ctx, o.SourceDeviceID)
	if err != nil {
		r.logger.Warn("overlay source device not found",
			"camera_id", owner.ID, "overlay_id", o.ID,
			"source_device_id", o.SourceDeviceID, "error", err)
		return ListenerPlan{Kind: ListenerNone}
	}

	switch {
	case src.HasCapability(device.CapSensors) && o.SensorID != "":
		unit := ""
		if s := src.SensorByID(o.SensorID); s != nil {
			unit = s.Unit
		}
		return ListenerPlan{
			Kind:        ListenerSensors,
			DeviceID:    src.ID,
			Measurement: o.SensorID,
			Unit:        unit,
		}

	case src.HasCapability(device.CapThermometer):
		return ListenerPlan{
			Kind:        ListenerTemperature,
			DeviceID:    src.ID,
			Measurement: device.MeasurementTemperature,
			Unit:        UnitCelsius,
		}

	case src.HasCapability(device.CapHumidity):
		return ListenerPlan{
			Kind:        ListenerHumidity,
			DeviceID:    src.ID,
			Measurement: device.MeasurementHumidity,
			Unit:        UnitPercent,
		}

	case src.HasCapability(device.CapLock):
		return ListenerPlan{
			Kind:        ListenerLock,
			DeviceID:    src.ID,
			Measurement: device.MeasurementLock,
		}

	case src.HasCapability(device.CapEntry):
		return ListenerPlan{
			Kind:        ListenerEntry,
			DeviceID:    src.ID,
			Measurement: device.MeasurementEntry,
		}

	case src.HasCapability(device.CapBinary):
		return ListenerPlan{
			Kind:        ListenerBinary,
			DeviceID:    src.ID,
			Measurement: device.MeasurementBinary,
		}

	default:
		r.logger.Warn("overlay source device has no usable capability",
			"camera_id", owner.ID, "overlay_id", o.ID, "source_device_id", src.ID)
		return ListenerPlan{Kind: ListenerNone}
	}
}

// templateInterval returns the template's poll cadence, floored at one
// second, falling back to the plugin default.
func (r *Resolver) templateInterval(tmpl Template) time.Duration {
	if tmpl.RefreshIntervalSeconds <= 0 {
		return r.defaultRefresh
	}
	d := time.Duration(tmpl.RefreshIntervalSeconds) * time.Second
	if d < time.Second {
		d = time.Second
	}
	return d
}
