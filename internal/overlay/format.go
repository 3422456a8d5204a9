package overlay

import (
	"math"
	"strconv"
	"strings"
)

// Value formatting: numeric rounding, text truncation and state-to-label
// mapping. Pure functions, no state.

const ellipsis = "..."

// RoundDecimals bounds a value to maxDecimals by truncating toward zero:
// floor(value * 10^n) / 10^n for positive values, symmetric for negative.
// Deliberately not round-to-nearest: 2.999 at two decimals is 2.99.
func RoundDecimals(value float64, maxDecimals int) float64 {
	if maxDecimals < 0 {
		maxDecimals = 0
	}
	pow := math.Pow(10, float64(maxDecimals))
	return math.Trunc(value*pow) / pow
}

// FormatNumber renders a value at the given precision with trailing zeros
// trimmed: 21.50 at one decimal is "21.5", 55.0 is "55".
func FormatNumber(value float64, maxDecimals int) string {
	return strconv.FormatFloat(RoundDecimals(value, maxDecimals), 'f', -1, 64)
}

// Truncate caps text at maxChars runes. Longer text keeps its head and is
// suffixed with an ellipsis. Zero or negative maxChars disables truncation.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	keep := maxChars - 2
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + ellipsis
}

// StateTexts holds the configured phrases state values map to.
// Plugin-scoped; loaded from configuration.
type StateTexts struct {
	Lock   string
	Unlock string
	Jammed string
	Open   string
	Closed string
}

// LockText maps a lock state string to its configured phrase.
// Unrecognised states pass through as reported.
func (s StateTexts) LockText(state string) string {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "locked":
		return s.Lock
	case "unlocked":
		return s.Unlock
	case "jammed":
		return s.Jammed
	default:
		return state
	}
}

// BinaryText maps a boolean entry/binary state to its configured phrase:
// true is open, false is closed. Both entry and binary listeners use this
// single polarity.
func (s StateTexts) BinaryText(open bool) string {
	if open {
		return s.Open
	}
	return s.Closed
}

// SubstituteFormat applies a format expression: ${value} is replaced with
// the rendered value, ${unit} with the display unit label. An empty
// expression renders the bare value.
func SubstituteFormat(expr, value, unit string) string {
	if expr == "" {
		return value
	}
	out := strings.ReplaceAll(expr, "${value}", value)
	return strings.ReplaceAll(out, "${unit}", unit)
}
