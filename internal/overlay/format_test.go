package overlay

import "testing"

func TestRoundDecimals_TruncatesTowardZero(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		want     float64
	}{
		{2.999, 2, 2.99}, // not round-to-nearest
		{21.56, 1, 21.5},
		{21.54, 1, 21.5},
		{55.0, 1, 55.0},
		{2.999, 0, 2.0},
		{-2.999, 2, -2.99}, // symmetric toward zero
		{0.0, 2, 0.0},
		{3.14159, -1, 3.0}, // negative precision clamps to 0
	}

	for _, tt := range tests {
		if got := RoundDecimals(tt.value, tt.decimals); got != tt.want {
			t.Errorf("RoundDecimals(%v, %d) = %v, want %v", tt.value, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatNumber_TrimsTrailingZeros(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		want     string
	}{
		{21.5, 1, "21.5"},
		{55.0, 1, "55"},
		{2.999, 2, "2.99"},
		{21.3, 1, "21.3"},
		{-3.75, 1, "-3.7"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.value, tt.decimals); got != tt.want {
			t.Errorf("FormatNumber(%v, %d) = %q, want %q", tt.value, tt.decimals, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"long text gets ellipsis", "Temperature: 21.5C", 10, "Temperat..."},
		{"exact fit untouched", "0123456789", 10, "0123456789"},
		{"short text untouched", "hi", 10, "hi"},
		{"zero disables truncation", "Temperature: 21.5C", 0, "Temperature: 21.5C"},
		{"negative disables truncation", "abc", -1, "abc"},
		{"tiny cap", "abcdef", 2, "..."},
		{"multibyte runes counted as one", "température extérieure", 10, "températ..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestStateTexts_LockText(t *testing.T) {
	phrases := StateTexts{Lock: "Secured", Unlock: "Open", Jammed: "Fault"}

	tests := []struct {
		state string
		want  string
	}{
		{"locked", "Secured"},
		{"Locked", "Secured"},
		{"unlocked", "Open"},
		{"jammed", "Fault"},
		{"unknown-state", "unknown-state"}, // passes through
	}

	for _, tt := range tests {
		if got := phrases.LockText(tt.state); got != tt.want {
			t.Errorf("LockText(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStateTexts_BinaryText(t *testing.T) {
	phrases := StateTexts{Open: "Open", Closed: "Closed"}

	if got := phrases.BinaryText(true); got != "Open" {
		t.Errorf("BinaryText(true) = %q, want Open", got)
	}
	if got := phrases.BinaryText(false); got != "Closed" {
		t.Errorf("BinaryText(false) = %q, want Closed", got)
	}
}

func TestSubstituteFormat(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		value string
		unit  string
		want  string
	}{
		{"value and unit", "Temp: ${value}${unit}", "21.5", "°C", "Temp: 21.5°C"},
		{"repeated placeholders", "${value} (${value}${unit})", "5", "%", "5 (5%)"},
		{"empty expression renders bare value", "", "21.5", "°C", "21.5"},
		{"no placeholders passes through", "static", "21.5", "°C", "static"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubstituteFormat(tt.expr, tt.value, tt.unit); got != tt.want {
				t.Errorf("SubstituteFormat(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}
