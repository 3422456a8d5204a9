package overlay

import "strings"

// Unit conversion for the measurement families overlays display.
// All functions are pure; unknown units or cross-family pairs pass the
// value through unchanged.

// Temperature units.
const (
	UnitCelsius    = "c"
	UnitFahrenheit = "f"
	UnitKelvin     = "k"
)

// Humidity units.
const (
	UnitPercent = "percent"
	UnitRatio   = "ratio"
)

// NormalizeUnit canonicalises a unit string: lowercase, degree signs and
// surrounding whitespace stripped, common aliases folded.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimPrefix(u, "°")
	switch u {
	case "celsius", "c":
		return UnitCelsius
	case "fahrenheit", "f":
		return UnitFahrenheit
	case "kelvin", "k":
		return UnitKelvin
	case "%", "percent":
		return UnitPercent
	case "ratio":
		return UnitRatio
	default:
		return u
	}
}

// Convert converts a value between two units of the same family.
// Unknown units and cross-family pairs return the value unchanged.
func Convert(value float64, from, to string) float64 {
	from = NormalizeUnit(from)
	to = NormalizeUnit(to)
	if from == to {
		return value
	}

	if isTemperature(from) && isTemperature(to) {
		return fromCelsius(toCelsius(value, from), to)
	}
	if isHumidity(from) && isHumidity(to) {
		return convertHumidity(value, from, to)
	}
	return value
}

func isTemperature(u string) bool {
	return u == UnitCelsius || u == UnitFahrenheit || u == UnitKelvin
}

func isHumidity(u string) bool {
	return u == UnitPercent || u == UnitRatio
}

// toCelsius converts a temperature into the Celsius pivot.
func toCelsius(value float64, from string) float64 {
	switch from {
	case UnitFahrenheit:
		return (value - 32) * 5 / 9
	case UnitKelvin:
		return value - 273.15
	default:
		return value
	}
}

// fromCelsius converts out of the Celsius pivot.
func fromCelsius(value float64, to string) float64 {
	switch to {
	case UnitFahrenheit:
		return value*9/5 + 32
	case UnitKelvin:
		return value + 273.15
	default:
		return value
	}
}

func convertHumidity(value float64, from, to string) float64 {
	if from == UnitRatio && to == UnitPercent {
		return value * 100
	}
	if from == UnitPercent && to == UnitRatio {
		return value / 100
	}
	return value
}

// UnitLabel returns the display form of a unit for ${unit} substitution.
// Unknown units are shown as-is.
func UnitLabel(unit string) string {
	switch NormalizeUnit(unit) {
	case UnitCelsius:
		return "°C"
	case UnitFahrenheit:
		return "°F"
	case UnitKelvin:
		return "K"
	case UnitPercent:
		return "%"
	case UnitRatio:
		return ""
	default:
		return unit
	}
}
