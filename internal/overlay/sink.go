package overlay

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/mqtt"
)

// Sink is the write side: it pushes rendered text (or a clear signal) to
// a camera's overlay slot. Writes are fire-and-forget from the caller's
// perspective; each overlay's write succeeds or fails independently.
type Sink interface {
	// SetText writes the final string to one overlay slot.
	SetText(cameraID, overlayID, text string) error

	// Clear disables the slot, a distinct signal from setting empty text.
	Clear(cameraID, overlayID string) error
}

// publisher is the slice of the MQTT client the sink needs.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// overlayCommand is the wire format published to osd/command/{camera_id}.
type overlayCommand struct {
	OverlayID string `json:"overlay_id"`
	Action    string `json:"action"` // "set_text" or "clear"
	Text      string `json:"text,omitempty"`
}

// MQTTSink publishes overlay writes to the camera's command topic.
// Cameras (or their bridges) apply last-value-wins; delivery is
// at-least-once at QoS 1.
type MQTTSink struct {
	bus    publisher
	topics mqtt.Topics
	logger Logger
}

// NewMQTTSink creates a sink over the MQTT client.
func NewMQTTSink(bus publisher) *MQTTSink {
	return &MQTTSink{bus: bus, logger: noopLogger{}}
}

// SetLogger sets the logger for the sink.
func (s *MQTTSink) SetLogger(logger Logger) {
	s.logger = logger
}

// SetText writes the final string to one overlay slot.
func (s *MQTTSink) SetText(cameraID, overlayID, text string) error {
	return s.publish(cameraID, overlayCommand{
		OverlayID: overlayID,
		Action:    "set_text",
		Text:      text,
	})
}

// Clear disables the slot.
func (s *MQTTSink) Clear(cameraID, overlayID string) error {
	return s.publish(cameraID, overlayCommand{
		OverlayID: overlayID,
		Action:    "clear",
	})
}

func (s *MQTTSink) publish(cameraID string, cmd overlayCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding overlay command: %w", err)
	}

	if err := s.bus.Publish(s.topics.CameraCommand(cameraID), payload, 1, false); err != nil {
		return fmt.Errorf("publishing overlay command: %w", err)
	}

	s.logger.Debug("overlay command published",
		"camera_id", cameraID, "overlay_id", cmd.OverlayID, "action", cmd.Action)
	return nil
}
