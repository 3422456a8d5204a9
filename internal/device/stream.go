package device

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/mqtt"
)

// StateEvent is a single measurement report from a device bridge,
// published on osd/state/{device_id}.
//
// Examples:
//
//	{"measurement": "temperature", "value": 21.5, "unit": "c"}
//	{"measurement": "lock", "value": "locked"}
//	{"measurement": "t1", "value": 21.5, "unit": "c"}
type StateEvent struct {
	// DeviceID is filled in from the topic, never from the payload.
	DeviceID string `json:"-"`

	// Measurement names the reported value: a measurement constant for
	// single-measurement devices, or a sensor id for multi-sensor devices.
	Measurement string `json:"measurement"`

	// Value is the reported reading (number, string or bool).
	Value any `json:"value"`

	// Unit is the native unit of the value, when the bridge reports one.
	Unit string `json:"unit,omitempty"`
}

// EventHandler receives state events for a subscribed device.
// Handlers are called synchronously from the stream's message path and
// must not block.
type EventHandler func(ev StateEvent)

// Subscription is a cancellable handle on a device's event feed.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// NewSubscription wraps a cancel function in a Subscription handle.
// Intended for alternative event source implementations and tests.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// messageBus is the slice of the MQTT client the stream needs.
type messageBus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Stream consumes device state events from the broker, keeps the registry
// current, and fans events out to per-device subscribers.
//
// A single broker subscription on osd/state/+ serves every consumer; the
// overlay engine attaches and detaches handlers per device as its
// reconciliation passes rebuild listener sets.
type Stream struct {
	bus      messageBus
	registry *Registry
	topics   mqtt.Topics
	logger   Logger

	mu       sync.RWMutex
	handlers map[string]map[uint64]EventHandler // device id → handler set
	nextID   uint64

	ctx context.Context
}

// NewStream creates a state event stream over the given bus and registry.
func NewStream(bus messageBus, registry *Registry) *Stream {
	return &Stream{
		bus:      bus,
		registry: registry,
		logger:   noopLogger{},
		handlers: make(map[string]map[uint64]EventHandler),
		ctx:      context.Background(),
	}
}

// SetLogger sets the logger for the stream.
func (s *Stream) SetLogger(logger Logger) {
	s.logger = logger
}

// Start subscribes to the device state topic tree. The context is used for
// registry writes triggered by incoming events.
func (s *Stream) Start(ctx context.Context) error {
	s.ctx = ctx

	if err := s.bus.Subscribe(s.topics.AllDeviceStates(), 1, s.handleMessage); err != nil {
		return fmt.Errorf("subscribing to device states: %w", err)
	}

	s.logger.Info("device state stream started", "topic", s.topics.AllDeviceStates())
	return nil
}

// Stop unsubscribes from the device state topic tree.
func (s *Stream) Stop() error {
	if err := s.bus.Unsubscribe(s.topics.AllDeviceStates()); err != nil {
		return fmt.Errorf("unsubscribing from device states: %w", err)
	}
	return nil
}

// Subscribe attaches a handler to a device's event feed and returns a
// cancellable handle. Multiple subscriptions per device are independent.
func (s *Stream) Subscribe(deviceID string, handler EventHandler) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	if s.handlers[deviceID] == nil {
		s.handlers[deviceID] = make(map[uint64]EventHandler)
	}
	s.handlers[deviceID][id] = handler

	return &Subscription{
		cancel: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.handlers[deviceID], id)
			if len(s.handlers[deviceID]) == 0 {
				delete(s.handlers, deviceID)
			}
		},
	}
}

// SubscriberCount returns the number of active handlers for a device.
func (s *Stream) SubscriberCount(deviceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers[deviceID])
}

// handleMessage decodes one state event, applies it to the registry, and
// fans it out. Errors are returned for the bus to log; a bad payload from
// one device never stops the stream.
func (s *Stream) handleMessage(topic string, payload []byte) error {
	deviceID := s.topics.DeviceIDFromStateTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("state event on unexpected topic %q", topic)
	}

	var ev StateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decoding state event for %s: %w", deviceID, err)
	}
	if ev.Measurement == "" {
		return fmt.Errorf("state event for %s missing measurement", deviceID)
	}
	ev.DeviceID = deviceID

	s.applyToRegistry(ev)
	s.fanout(ev)
	return nil
}

// applyToRegistry persists the event into the device directory. Events for
// unknown devices are dropped with a debug log; bridges may announce state
// before the device is registered.
func (s *Stream) applyToRegistry(ev StateEvent) {
	var err error
	if ev.Measurement == MeasurementSleeping {
		sleeping, ok := ev.Value.(bool)
		if !ok {
			s.logger.Warn("sleeping event with non-bool value",
				"device_id", ev.DeviceID, "value", ev.Value)
			return
		}
		err = s.registry.SetSleeping(s.ctx, ev.DeviceID, sleeping)
	} else {
		err = s.registry.SetDeviceState(s.ctx, ev.DeviceID, State{ev.Measurement: ev.Value})
	}

	if err != nil {
		s.logger.Debug("state event not applied",
			"device_id", ev.DeviceID, "measurement", ev.Measurement, "error", err)
	}
}

// fanout delivers the event to all handlers subscribed to its device.
func (s *Stream) fanout(ev StateEvent) {
	s.mu.RLock()
	handlers := make([]EventHandler, 0, len(s.handlers[ev.DeviceID]))
	for _, h := range s.handlers[ev.DeviceID] {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
