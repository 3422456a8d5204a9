package overlay

import "errors"

// Domain errors for the overlay package, checked via errors.Is().
var (
	// ErrCameraNotFound is returned when no loop exists for a camera id.
	ErrCameraNotFound = errors.New("overlay: camera not found")

	// ErrNotCamera is returned when the target device carries no text
	// overlay capability.
	ErrNotCamera = errors.New("overlay: device has no text overlays")

	// ErrOverlayNotFound is returned when an overlay id is not among the
	// camera's reported slots.
	ErrOverlayNotFound = errors.New("overlay: not found")

	// ErrTemplateNotFound is returned when a template id does not exist.
	ErrTemplateNotFound = errors.New("overlay: template not found")

	// ErrInvalidSetting is returned when a settings write fails validation.
	ErrInvalidSetting = errors.New("overlay: invalid setting")

	// ErrLoopClosed is returned when operating on a released loop.
	ErrLoopClosed = errors.New("overlay: loop closed")
)
