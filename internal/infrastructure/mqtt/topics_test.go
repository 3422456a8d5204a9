package mqtt

import "testing"

func TestTopics_Builders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"device state", topics.DeviceState("sensor-garden"), "osd/state/sensor-garden"},
		{"camera command", topics.CameraCommand("cam-front-door"), "osd/command/cam-front-door"},
		{"render event", topics.RenderEvent("cam-front-door"), "osd/render/cam-front-door"},
		{"system status", topics.SystemStatus(), "osd/system/status"},
		{"all device states", topics.AllDeviceStates(), "osd/state/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTopics_DeviceIDFromStateTopic(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		topic string
		want  string
	}{
		{"osd/state/sensor-garden", "sensor-garden"},
		{"osd/state/", ""},
		{"osd/command/cam-01", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := topics.DeviceIDFromStateTopic(tt.topic); got != tt.want {
			t.Errorf("DeviceIDFromStateTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestPublish_Validation(t *testing.T) {
	// A zero client is never connected; validation errors must surface
	// before any broker interaction.
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("Publish(empty topic) = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("osd/state/x", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("Publish(qos 3) = %v, want ErrInvalidQoS", err)
	}
	if err := c.Publish("osd/state/x", []byte("x"), 1, false); err != ErrNotConnected {
		t.Errorf("Publish(disconnected) = %v, want ErrNotConnected", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); err != ErrInvalidTopic {
		t.Errorf("Subscribe(empty topic) = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("osd/state/+", 1, nil); err == nil {
		t.Error("Subscribe(nil handler) expected error")
	}
	if err := c.Subscribe("osd/state/+", 1, handler); err != ErrNotConnected {
		t.Errorf("Subscribe(disconnected) = %v, want ErrNotConnected", err)
	}
	if got := c.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0 after failed subscribes", got)
	}
}
