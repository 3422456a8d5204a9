// Package overlay implements the overlay reconciliation and rendering
// engine: it maps each camera overlay slot's declarative configuration to
// zero or one live data source, listens with the right mechanism (event
// push or timed pull), formats raw values into display text, and pushes
// the result to the camera.
//
// # Components
//
//   - Resolver: decides an overlay's ListenerPlan from its kind and the
//     bound device's capabilities (first-match decision table).
//   - Loop: per-camera reconciliation. Every trigger tears down all
//     active subscriptions and rebuilds them from current configuration,
//     pushing an immediate render for every overlay. Triggers are
//     coalesced; teardown is unconditional and idempotent.
//   - Manager: owns one Loop per camera and backs the settings API.
//   - TemplateResolver: substitutes {deviceId.sensorId} placeholders in
//     shared templates; unresolved placeholders stay literal.
//   - Value formatting: truncate-toward-zero rounding, rune-aware
//     ellipsis truncation, configured lock/entry/binary phrases, and
//     temperature/humidity unit conversion.
//   - Sink: publishes set-text/clear commands to the camera over MQTT.
//
// # Guarantees
//
// At-least-once, last-value-wins delivery to the display surface. A
// single overlay's failure never affects sibling overlays or other
// cameras. Renders to a sleeping camera are suppressed, not queued;
// the next natural trigger after waking refreshes the slot. Nothing in
// this package is fatal to the host process.
package overlay
