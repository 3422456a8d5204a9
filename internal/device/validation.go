package device

import (
	"fmt"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100

	// Size limits for JSON fields to keep pathological payloads out of the
	// settings database.
	maxStateKeys    = 100
	maxCapabilities = 16
	maxSensors      = 64
	maxOverlaySlots = 16
)

// Pre-computed validation sets for O(1) lookups.
var (
	validKinds        map[DeviceKind]struct{}
	validCapabilities map[Capability]struct{}
)

func init() {
	validKinds = make(map[DeviceKind]struct{}, len(AllDeviceKinds()))
	for _, k := range AllDeviceKinds() {
		validKinds[k] = struct{}{}
	}

	validCapabilities = make(map[Capability]struct{}, len(AllCapabilities()))
	for _, c := range AllCapabilities() {
		validCapabilities[c] = struct{}{}
	}
}

// ValidateDevice performs validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if d.Name == "" || len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidName, maxNameLength)
	}

	if _, ok := validKinds[d.Kind]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}

	if len(d.Capabilities) > maxCapabilities {
		return fmt.Errorf("%w: too many capabilities (%d)", ErrInvalidDevice, len(d.Capabilities))
	}
	for _, c := range d.Capabilities {
		if _, ok := validCapabilities[c]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidCapability, c)
		}
	}

	if len(d.Sensors) > maxSensors {
		return fmt.Errorf("%w: too many sensors (%d)", ErrInvalidDevice, len(d.Sensors))
	}
	for _, s := range d.Sensors {
		if s.ID == "" {
			return fmt.Errorf("%w: sensor id cannot be empty", ErrInvalidDevice)
		}
	}

	if len(d.OverlaySlots) > maxOverlaySlots {
		return fmt.Errorf("%w: too many overlay slots (%d)", ErrInvalidDevice, len(d.OverlaySlots))
	}

	if len(d.State) > maxStateKeys {
		return fmt.Errorf("%w: too many state keys (%d)", ErrInvalidDevice, len(d.State))
	}

	return nil
}

// GenerateID creates a new unique device id.
func GenerateID() string {
	return "dev-" + uuid.NewString()[:16]
}
