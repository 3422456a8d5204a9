package overlay

import (
	"context"
	"strings"

	"github.com/nerrad567/gray-logic-osd/internal/device"
)

// TemplateResolver substitutes {deviceId.sensorId} placeholders in a
// template's parser string with formatted current values.
type TemplateResolver struct {
	devices Directory
	phrases StateTexts
	logger  Logger

	// temperatureUnit is the plugin-scoped display unit for temperature
	// values inside templates.
	temperatureUnit string
}

// NewTemplateResolver creates a template resolver over the device
// directory using the plugin's configured phrases and temperature unit.
func NewTemplateResolver(devices Directory, phrases StateTexts, temperatureUnit string) *TemplateResolver {
	if temperatureUnit == "" {
		temperatureUnit = UnitCelsius
	}
	return &TemplateResolver{
		devices:         devices,
		phrases:         phrases,
		logger:          noopLogger{},
		temperatureUnit: temperatureUnit,
	}
}

// SetLogger sets the logger for the template resolver.
func (tr *TemplateResolver) SetLogger(logger Logger) {
	tr.logger = logger
}

// Render resolves every placeholder the template's source devices can
// supply and substitutes them into the parser string.
//
// Missing devices are skipped with a warning; their placeholders remain
// literal. A template render never fails partially — whatever resolved
// is substituted, the rest passes through unchanged.
func (tr *TemplateResolver) Render(ctx context.Context, tmpl Template) string {
	out := tmpl.ParserString

	for _, deviceID := range tmpl.SourceDevices {
		src, err := tr.devices.GetDevice(ctx, deviceID)
		if err != nil {
			tr.logger.Warn("template source device not found",
				"template_id", tmpl.ID, "device_id", deviceID, "error", err)
			continue
		}

		if src.HasCapability(device.CapSensors) {
			out = tr.substituteSensors(out, src, tmpl.SelectedSensors[deviceID])
			continue
		}
		out = tr.substituteSingle(out, src)
	}

	return out
}

// substituteSensors replaces {deviceId.sensorId} for every selected
// sensor of a multi-sensor device. Sensors with no current reading are
// skipped; their placeholders stay literal.
func (tr *TemplateResolver) substituteSensors(text string, src *device.Device, selected []string) string {
	for _, sensorID := range selected {
		raw, ok := src.State[sensorID]
		if !ok {
			continue
		}

		unit := ""
		if s := src.SensorByID(sensorID); s != nil {
			unit = s.Unit
		}

		value, ok := tr.formatValue(raw, unit)
		if !ok {
			continue
		}
		text = replacePlaceholder(text, src.ID, sensorID, value)
	}
	return text
}

// substituteSingle replaces {deviceId.<measurement>} for a
// single-measurement device, choosing the measurement from its
// capabilities in the same priority order the overlay resolver uses.
func (tr *TemplateResolver) substituteSingle(text string, src *device.Device) string {
	measurement, unit := singleMeasurement(src)
	if measurement == "" {
		return text
	}

	raw, ok := src.State[measurement]
	if !ok {
		return text
	}

	value, ok := tr.formatValue(raw, unit)
	if !ok {
		return text
	}
	return replacePlaceholder(text, src.ID, measurement, value)
}

// formatValue renders a raw state value for substitution: numerics are
// unit-converted and rounded, lock and binary states map to their
// configured phrases, strings pass through.
func (tr *TemplateResolver) formatValue(raw any, unit string) (string, bool) {
	switch v := raw.(type) {
	case bool:
		return tr.phrases.BinaryText(v), true
	case string:
		// Lock states map to phrases; other textual readings pass through.
		return tr.phrases.LockText(v), true
	default:
		f, ok := toFloat(raw)
		if !ok {
			return "", false
		}
		display := unit
		if isTemperature(NormalizeUnit(unit)) {
			display = tr.temperatureUnit
		}
		return FormatNumber(Convert(f, unit, display), defaultMaxDecimals), true
	}
}

// singleMeasurement maps a single-measurement device's capability to the
// state key and native unit it reports.
func singleMeasurement(src *device.Device) (measurement, unit string) {
	switch {
	case src.HasCapability(device.CapThermometer):
		return device.MeasurementTemperature, UnitCelsius
	case src.HasCapability(device.CapHumidity):
		return device.MeasurementHumidity, UnitPercent
	case src.HasCapability(device.CapLock):
		return device.MeasurementLock, ""
	case src.HasCapability(device.CapEntry):
		return device.MeasurementEntry, ""
	case src.HasCapability(device.CapBinary):
		return device.MeasurementBinary, ""
	case src.HasCapability(device.CapBattery):
		return device.MeasurementBattery, UnitPercent
	default:
		return "", ""
	}
}

// replacePlaceholder substitutes every literal occurrence of
// {deviceID.key} in the text.
func replacePlaceholder(text, deviceID, key, value string) string {
	return strings.ReplaceAll(text, "{"+deviceID+"."+key+"}", value)
}

// toFloat coerces the numeric types JSON decoding produces.
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
