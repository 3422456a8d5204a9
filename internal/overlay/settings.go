package overlay

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-osd/internal/device"
)

// Settings are persisted as structured key-value strings:
//
//	overlay:<overlayId>:<field>   per-camera overlay configuration
//	template:<templateId>:<field> plugin-scoped template configuration
//
// Absent keys decode to defaults; unknown keys are ignored.

// Defaults for absent overlay settings.
const (
	defaultMaxDecimals      = 1
	defaultFormatExpression = "${value}${unit}"
)

// Overlay setting fields.
const (
	fieldKind          = "kind"
	fieldStaticText    = "static_text"
	fieldSourceDevice  = "source_device"
	fieldSensorID      = "sensor_id"
	fieldSensorName    = "sensor_name"
	fieldFormat        = "format"
	fieldMaxDecimals   = "max_decimals"
	fieldMaxCharacters = "max_characters"
	fieldUnit          = "unit"
	fieldTemplateID    = "template_id"
	fieldCurrentText   = "current_text"
)

// Template setting fields.
const (
	fieldTemplateName    = "name"
	fieldSourceDevices   = "source_devices"
	fieldSelectedSensors = "selected_sensors"
	fieldParser          = "parser"
	fieldRefreshSeconds  = "refresh_seconds"
)

// OverlayKey builds the settings key for one overlay field.
func OverlayKey(overlayID, field string) string {
	return "overlay:" + overlayID + ":" + field
}

// OverlayKeyPrefix is the key prefix covering every field of an overlay.
func OverlayKeyPrefix(overlayID string) string {
	return "overlay:" + overlayID + ":"
}

// TemplateKey builds the settings key for one template field.
func TemplateKey(templateID, field string) string {
	return "template:" + templateID + ":" + field
}

// TemplateKeyPrefix is the key prefix covering every field of a template.
func TemplateKeyPrefix(templateID string) string {
	return "template:" + templateID + ":"
}

// ParseOverlayKey splits an overlay settings key into overlay id and
// field. Returns ok=false for keys of any other shape.
func ParseOverlayKey(key string) (overlayID, field string, ok bool) {
	return parseKey(key, "overlay:")
}

// ParseTemplateKey splits a template settings key into template id and
// field. Returns ok=false for keys of any other shape.
func ParseTemplateKey(key string) (templateID, field string, ok bool) {
	return parseKey(key, "template:")
}

func parseKey(key, prefix string) (id, field string, ok bool) {
	rest, found := strings.CutPrefix(key, prefix)
	if !found {
		return "", "", false
	}
	id, field, found = strings.Cut(rest, ":")
	if !found || id == "" || field == "" {
		return "", "", false
	}
	return id, field, true
}

// NewTemplateID generates a short prefixed template id.
func NewTemplateID() string {
	return "tpl-" + uuid.NewString()[:16]
}

// DecodeOverlay builds one overlay's configuration from the camera's
// settings map. Every absent field takes its default; a slot never
// configured decodes to a disabled overlay.
func DecodeOverlay(overlayID string, settings map[string]string) Overlay {
	get := func(field string) string { return settings[OverlayKey(overlayID, field)] }

	o := Overlay{
		ID:               overlayID,
		Kind:             KindDisabled,
		StaticText:       get(fieldStaticText),
		SourceDeviceID:   get(fieldSourceDevice),
		SensorID:         get(fieldSensorID),
		SensorName:       get(fieldSensorName),
		FormatExpression: defaultFormatExpression,
		MaxDecimals:      defaultMaxDecimals,
		Unit:             get(fieldUnit),
		TemplateID:       get(fieldTemplateID),
		CurrentText:      get(fieldCurrentText),
	}

	if v := get(fieldKind); v != "" {
		o.Kind = Kind(v)
	}
	if v := get(fieldFormat); v != "" {
		o.FormatExpression = v
	}
	if v := get(fieldMaxDecimals); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			o.MaxDecimals = n
		}
	}
	if v := get(fieldMaxCharacters); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			o.MaxCharacters = n
		}
	}

	return o
}

// EncodeOverlay flattens an overlay into its settings keys.
func EncodeOverlay(o Overlay) map[string]string {
	return map[string]string{
		OverlayKey(o.ID, fieldKind):          string(o.Kind),
		OverlayKey(o.ID, fieldStaticText):    o.StaticText,
		OverlayKey(o.ID, fieldSourceDevice):  o.SourceDeviceID,
		OverlayKey(o.ID, fieldSensorID):      o.SensorID,
		OverlayKey(o.ID, fieldSensorName):    o.SensorName,
		OverlayKey(o.ID, fieldFormat):        o.FormatExpression,
		OverlayKey(o.ID, fieldMaxDecimals):   strconv.Itoa(o.MaxDecimals),
		OverlayKey(o.ID, fieldMaxCharacters): strconv.Itoa(o.MaxCharacters),
		OverlayKey(o.ID, fieldUnit):          o.Unit,
		OverlayKey(o.ID, fieldTemplateID):    o.TemplateID,
	}
}

// ValidateOverlayField checks one overlay settings write.
func ValidateOverlayField(field, value string) error {
	switch field {
	case fieldKind:
		for _, k := range AllKinds() {
			if Kind(value) == k {
				return nil
			}
		}
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSetting, value)
	case fieldMaxDecimals, fieldMaxCharacters:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidSetting, field)
		}
		return nil
	case fieldStaticText, fieldSourceDevice, fieldSensorID, fieldSensorName,
		fieldFormat, fieldUnit, fieldTemplateID:
		return nil
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidSetting, field)
	}
}

// DecodeTemplates builds all templates from the plugin settings map.
func DecodeTemplates(settings map[string]string) map[string]Template {
	ids := make(map[string]struct{})
	for key := range settings {
		if id, _, ok := ParseTemplateKey(key); ok {
			ids[id] = struct{}{}
		}
	}

	templates := make(map[string]Template, len(ids))
	for id := range ids {
		templates[id] = DecodeTemplate(id, settings)
	}
	return templates
}

// DecodeTemplate builds one template from the plugin settings map.
func DecodeTemplate(templateID string, settings map[string]string) Template {
	get := func(field string) string { return settings[TemplateKey(templateID, field)] }

	t := Template{
		ID:           templateID,
		Name:         get(fieldTemplateName),
		ParserString: get(fieldParser),
	}

	if v := get(fieldSourceDevices); v != "" {
		// Tolerate corrupt JSON: the template decodes with no sources.
		_ = json.Unmarshal([]byte(v), &t.SourceDevices)
	}
	if v := get(fieldSelectedSensors); v != "" {
		_ = json.Unmarshal([]byte(v), &t.SelectedSensors)
	}
	if v := get(fieldRefreshSeconds); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			t.RefreshIntervalSeconds = n
		}
	}

	return t
}

// EncodeTemplate flattens a template into its settings keys.
func EncodeTemplate(t Template) (map[string]string, error) {
	devicesJSON, err := json.Marshal(t.SourceDevices)
	if err != nil {
		return nil, fmt.Errorf("marshalling source devices: %w", err)
	}
	sensorsJSON, err := json.Marshal(t.SelectedSensors)
	if err != nil {
		return nil, fmt.Errorf("marshalling selected sensors: %w", err)
	}

	return map[string]string{
		TemplateKey(t.ID, fieldTemplateName):    t.Name,
		TemplateKey(t.ID, fieldSourceDevices):   string(devicesJSON),
		TemplateKey(t.ID, fieldSelectedSensors): string(sensorsJSON),
		TemplateKey(t.ID, fieldParser):          t.ParserString,
		TemplateKey(t.ID, fieldRefreshSeconds):  strconv.Itoa(t.RefreshIntervalSeconds),
	}, nil
}

// SettingDescriptor describes one visible settings field for the UI
// layer: which field to show, how to edit it, and its current value.
type SettingDescriptor struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Type    string   `json:"type"` // "select", "text", "number"
	Choices []Choice `json:"choices,omitempty"`
	Value   string   `json:"value"`
}

// Choice is one option of a select descriptor.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

/// DescribeOverlay computes the settings schema for one overlay: which
// fields are visible given its kind and the bound device's capabilities.
// Pure; recomputed on demand, never mutated in place.
func DescribeOverlay(o Overlay, source *device.Device, templates map[string]Template) []SettingDescriptor {
	kindChoices := make([]Choice, 0, len(AllKinds()))
	for _, k := range AllKinds() {
		kindChoices = append(kindChoices, Choice{Value: string(k), Label: kindLabel(k)})
	}

	descriptors := []SettingDescriptor{{
		Key:     fieldKind,
		Label:   "Overlay kind",
		Type:    "select",
		Choices: kindChoices,
		Value:   string(o.Kind),
	}}

	switch o.Kind {
	case KindStaticText:
		descriptors = append(descriptors, SettingDescriptor{
			Key: fieldStaticText, Label: "Text", Type: "text", Value: o.StaticText,
		})

	case KindDeviceBound:
		descriptors = append(descriptors, SettingDescriptor{
			Key: fieldSourceDevice, Label: "Source device", Type: "text", Value: o.SourceDeviceID,
		})
		if source != nil && source.HasCapability(device.CapSensors) {
			choices := make([]Choice, 0, len(source.Sensors))
			for _, s := range source.Sensors {
				choices = append(choices, Choice{Value: s.ID, Label: s.Name})
			}
			descriptors = append(descriptors, SettingDescriptor{
				Key: fieldSensorID, Label: "Sensor", Type: "select",
				Choices: choices, Value: o.SensorID,
			})
		}
		descriptors = append(descriptors, numericDescriptors(o)...)
		if source != nil && source.HasCapability(device.CapThermometer) {
			descriptors = append(descriptors, SettingDescriptor{
				Key: fieldUnit, Label: "Display unit", Type: "select",
				Choices: []Choice{
					{Value: UnitCelsius, Label: "°C"},
					{Value: UnitFahrenheit, Label: "°F"},
					{Value: UnitKelvin, Label: "K"},
				},
				Value: o.Unit,
			})
		}

	case KindTemplate:
		choices := make([]Choice, 0, len(templates))
		for _, t := range templates {
			choices = append(choices, Choice{Value: t.ID, Label: t.Name})
		}
		sort.Slice(choices, func(i, j int) bool { return choices[i].Label < choices[j].Label })
		descriptors = append(descriptors,
			SettingDescriptor{
				Key: fieldTemplateID, Label: "Template", Type: "select",
				Choices: choices, Value: o.TemplateID,
			},
			SettingDescriptor{
				Key: fieldMaxCharacters, Label: "Max characters", Type: "number",
				Value: strconv.Itoa(o.MaxCharacters),
			},
		)

	case KindFaceDetection, KindBatteryLevel:
		descriptors = append(descriptors, numericDescriptors(o)...)

	case KindDisabled:
		// Kind selector only.
	}

	return descriptors
}

func numericDescriptors(o Overlay) []SettingDescriptor {
	return []SettingDescriptor{
		{Key: fieldFormat, Label: "Format", Type: "text", Value: o.FormatExpression},
		{Key: fieldMaxDecimals, Label: "Max decimals", Type: "number", Value: strconv.Itoa(o.MaxDecimals)},
		{Key: fieldMaxCharacters, Label: "Max characters", Type: "number", Value: strconv.Itoa(o.MaxCharacters)},
	}
}

func kindLabel(k Kind) string {
	switch k {
	case KindDisabled:
		return "Disabled"
	case KindStaticText:
		return "Static text"
	case KindDeviceBound:
		return "Device"
	case KindTemplate:
		return "Template"
	case KindFaceDetection:
		return "Face detection"
	case KindBatteryLevel:
		return "Battery level"
	default:
		return string(k)
	}
}
