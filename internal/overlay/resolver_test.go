package overlay

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-osd/internal/device"
)

func testOwner() *device.Device {
	return &device.Device{
		ID:           "cam-01",
		Name:         "Front Door",
		Kind:         device.KindCamera,
		Capabilities: []device.Capability{device.CapTextOverlays, device.CapObjectDetect, device.CapBattery},
		OverlaySlots: []string{"1", "2"},
		State:        device.State{},
	}
}

func TestResolver_StaticAndDisabled(t *testing.T) {
	r := NewResolver(newFakeDirectory(), 0)
	owner := testOwner()

	for _, kind := range []Kind{KindDisabled, KindStaticText} {
		plan := r.Resolve(context.Background(), owner, Overlay{ID: "1", Kind: kind}, nil)
		if plan.Kind != ListenerNone {
			t.Errorf("Resolve(%s) = %s, want none", kind, plan.Kind)
		}
	}
}

func TestResolver_DeviceBoundDecisionTable(t *testing.T) {
	tests := []struct {
		name            string
		caps            []device.Capability
		sensors         []device.Sensor
		sensorID        string
		wantKind        ListenerKind
		wantMeasurement string
		wantUnit        string
	}{
		{
			name:            "multi-sensor with selection wins over everything",
			caps:            []device.Capability{device.CapSensors, device.CapThermometer},
			sensors:         []device.Sensor{{ID: "t1", Name: "Temp", Unit: "c"}},
			sensorID:        "t1",
			wantKind:        ListenerSensors,
			wantMeasurement: "t1",
			wantUnit:        "c",
		},
		{
			name:            "multi-sensor without selection falls to thermometer",
			caps:            []device.Capability{device.CapSensors, device.CapThermometer},
			wantKind:        ListenerTemperature,
			wantMeasurement: device.MeasurementTemperature,
			wantUnit:        UnitCelsius,
		},
		{
			name:            "thermometer beats humidity",
			caps:            []device.Capability{device.CapHumidity, device.CapThermometer},
			wantKind:        ListenerTemperature,
			wantMeasurement: device.MeasurementTemperature,
		},
		{
			name:            "humidity",
			caps:            []device.Capability{device.CapHumidity},
			wantKind:        ListenerHumidity,
			wantMeasurement: device.MeasurementHumidity,
			wantUnit:        UnitPercent,
		},
		{
			name:            "lock",
			caps:            []device.Capability{device.CapLock},
			wantKind:        ListenerLock,
			wantMeasurement: device.MeasurementLock,
		},
		{
			name:            "entry beats binary",
			caps:            []device.Capability{device.CapBinary, device.CapEntry},
			wantKind:        ListenerEntry,
			wantMeasurement: device.MeasurementEntry,
		},
		{
			name:            "binary",
			caps:            []device.Capability{device.CapBinary},
			wantKind:        ListenerBinary,
			wantMeasurement: device.MeasurementBinary,
		},
		{
			name:     "no usable capability",
			caps:     []device.Capability{device.CapBattery},
			wantKind: ListenerNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &device.Device{
				ID:           "src-01",
				Name:         "Source",
				Kind:         device.KindSensor,
				Capabilities: tt.caps,
				Sensors:      tt.sensors,
				State:        device.State{},
			}
			r := NewResolver(newFakeDirectory(src), 0)

			o := Overlay{ID: "1", Kind: KindDeviceBound, SourceDeviceID: "src-01", SensorID: tt.sensorID}
			plan := r.Resolve(context.Background(), testOwner(), o, nil)

			if plan.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s", plan.Kind, tt.wantKind)
			}
			if plan.Kind == ListenerNone {
				return
			}
			if plan.DeviceID != "src-01" {
				t.Errorf("DeviceID = %q, want src-01", plan.DeviceID)
			}
			if plan.Measurement != tt.wantMeasurement {
				t.Errorf("Measurement = %q, want %q", plan.Measurement, tt.wantMeasurement)
			}
			if tt.wantUnit != "" && plan.Unit != tt.wantUnit {
				t.Errorf("Unit = %q, want %q", plan.Unit, tt.wantUnit)
			}
		})
	}
}

func TestResolver_MissingSourceDevice(t *testing.T) {
	r := NewResolver(newFakeDirectory(), 0)

	o := Overlay{ID: "1", Kind: KindDeviceBound, SourceDeviceID: "gone"}
	plan := r.Resolve(context.Background(), testOwner(), o, nil)
	if plan.Kind != ListenerNone {
		t.Errorf("Resolve(missing source) = %s, want none (overlay left unrendered, not erased)", plan.Kind)
	}
}

func TestResolver_FaceAndBattery(t *testing.T) {
	r := NewResolver(newFakeDirectory(), 0)
	owner := testOwner()

	plan := r.Resolve(context.Background(), owner, Overlay{ID: "1", Kind: KindFaceDetection}, nil)
	if plan.Kind != ListenerFace || plan.DeviceID != owner.ID {
		t.Errorf("face plan = %+v, want face on owning camera", plan)
	}

	plan = r.Resolve(context.Background(), owner, Overlay{ID: "1", Kind: KindBatteryLevel}, nil)
	if plan.Kind != ListenerBattery || plan.DeviceID != owner.ID {
		t.Errorf("battery plan = %+v, want battery on owning camera", plan)
	}

	// Capabilities the camera lacks resolve to none.
	bare := &device.Device{ID: "cam-02", Name: "Bare", Kind: device.KindCamera,
		Capabilities: []device.Capability{device.CapTextOverlays}}
	plan = r.Resolve(context.Background(), bare, Overlay{ID: "1", Kind: KindFaceDetection}, nil)
	if plan.Kind != ListenerNone {
		t.Errorf("face plan on camera without detection = %s, want none", plan.Kind)
	}
}

func TestResolver_Template(t *testing.T) {
	r := NewResolver(newFakeDirectory(), 5*time.Second)
	owner := testOwner()
	templates := map[string]Template{
		"tpl-a": {ID: "tpl-a", ParserString: "x", RefreshIntervalSeconds: 30},
		"tpl-b": {ID: "tpl-b", ParserString: "y"},
	}

	plan := r.Resolve(context.Background(), owner, Overlay{ID: "1", Kind: KindTemplate, TemplateID: "tpl-a"}, templates)
	if plan.Kind != ListenerInterval {
		t.Fatalf("Kind = %s, want interval", plan.Kind)
	}
	if plan.Interval != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", plan.Interval)
	}
	if plan.Template == nil || plan.Template.ID != "tpl-a" {
		t.Errorf("Template = %+v, want tpl-a", plan.Template)
	}

	// Unset cadence falls back to the default.
	plan = r.Resolve(context.Background(), owner, Overlay{ID: "1", Kind: KindTemplate, TemplateID: "tpl-b"}, templates)
	if plan.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want default 5s", plan.Interval)
	}

	// Orphaned reference stops rendering.
	plan = r.Resolve(context.Background(), owner, Overlay{ID: "1", Kind: KindTemplate, TemplateID: "deleted"}, templates)
	if plan.Kind != ListenerNone {
		t.Errorf("Resolve(orphaned template) = %s, want none", plan.Kind)
	}
}
