package overlay

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-osd/internal/device"
)

// Logger defines the logging interface used by the overlay engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// LoopState is the lifecycle state of a reconciliation loop.
type LoopState string

// Loop states.
const (
	StateIdle        LoopState = "idle"
	StateReconciling LoopState = "reconciling"
	StateRunning     LoopState = "running"
	StateStopped     LoopState = "stopped"
)

// activeSubscription is the runtime record per overlay: the chosen
// listener and its cancellable resources. Never persisted; rebuilt from
// configuration on every reconciliation pass.
type activeSubscription struct {
	kind     ListenerKind
	deviceID string
	sub      *device.Subscription // event listeners
	stop     chan struct{}        // interval listeners
}

func (a *activeSubscription) release() {
	if a.sub != nil {
		a.sub.Cancel()
	}
	if a.stop != nil {
		close(a.stop)
	}
}

// LoopDeps carries the collaborators a reconciliation loop composes.
type LoopDeps struct {
	CameraID  string
	Devices   Directory
	Events    EventSource
	Sink      Sink
	Store     SettingsStore
	Resolver  *Resolver
	Templates *TemplateResolver

	// Recorder and OnRender are optional observers of render outcomes.
	Recorder RenderRecorder
	OnRender RenderHook

	Logger Logger
}

// Loop reconciles one camera's overlays: on every trigger it rebuilds the
// set of active subscriptions from current configuration and pushes a
// fresh render for every overlay.
//
// Triggers are coalesced: only one pass runs at a time, and a trigger
// arriving mid-pass schedules exactly one follow-up pass regardless of
// how many triggers arrived.
type Loop struct {
	cameraID     string
	devices      Directory
	events       EventSource
	sink         Sink
	store        SettingsStore
	resolver     *Resolver
	tmplResolver *TemplateResolver
	recorder     RenderRecorder
	onRender     RenderHook
	logger       Logger

	ctx context.Context

	mu          sync.Mutex
	state       LoopState
	reconciling bool
	pending     bool
	closed      bool
	active      map[string]*activeSubscription // overlay id → subscription
}

// NewLoop creates a reconciliation loop for one camera.
func NewLoop(deps LoopDeps) *Loop {
	l := &Loop{
		cameraID:     deps.CameraID,
		devices:      deps.Devices,
		events:       deps.Events,
		sink:         deps.Sink,
		store:        deps.Store,
		resolver:     deps.Resolver,
		tmplResolver: deps.Templates,
		recorder:     deps.Recorder,
		onRender:     deps.OnRender,
		logger:       deps.Logger,
		ctx:          context.Background(),
		state:        StateIdle,
		active:       make(map[string]*activeSubscription),
	}
	if l.recorder == nil {
		l.recorder = noopRecorder{}
	}
	if l.logger == nil {
		l.logger = noopLogger{}
	}
	return l
}

// Start runs the initial reconciliation pass. The context bounds the
// loop's reads and writes for its whole lifetime.
func (l *Loop) Start(ctx context.Context) {
	l.ctx = ctx
	l.Trigger()
}

// Trigger requests a reconciliation pass. Safe to call from any
// goroutine; triggers arriving while a pass is in flight are coalesced
// into a single follow-up pass.
func (l *Loop) Trigger() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if l.reconciling {
		l.pending = true
		l.mu.Unlock()
		return
	}
	l.reconciling = true
	l.mu.Unlock()

	go l.run()
}

func (l *Loop) run() {
	for {
		l.reconcile()

		l.mu.Lock()
		if l.pending && !l.closed {
			l.pending = false
			l.mu.Unlock()
			continue
		}
		l.reconciling = false
		l.mu.Unlock()
		return
	}
}

// reconcile performs one pass: re-read the camera's reported slots,
// prune settings for vanished slots, tear down every active subscription
// unconditionally, then rebuild listeners and push an immediate render
// for every overlay.
func (l *Loop) reconcile() {
	l.setState(StateReconciling)
	ctx := l.ctx

	owner, err := l.devices.GetDevice(ctx, l.cameraID)
	if err != nil {
		l.logger.Warn("camera not found, overlays released", "camera_id", l.cameraID, "error", err)
		l.teardown()
		l.setState(StateIdle)
		return
	}

	settings, err := l.store.GetCameraSettings(ctx, l.cameraID)
	if err != nil {
		l.logger.Error("reading camera settings failed", "camera_id", l.cameraID, "error", err)
		l.teardown()
		l.setState(StateIdle)
		return
	}

	plugin, err := l.store.GetPluginSettings(ctx)
	if err != nil {
		l.logger.Error("reading plugin settings failed", "camera_id", l.cameraID, "error", err)
		l.teardown()
		l.setState(StateIdle)
		return
	}
	templates := DecodeTemplates(plugin)

	l.pruneVanished(ctx, owner.OverlaySlots, settings)

	// Tear down everything and rebuild. Simpler and safer than
	// incremental diffing: no stale listener can survive a pass, at the
	// cost of a brief gap.
	l.teardown()

	for _, overlayID := range owner.OverlaySlots {
		o := DecodeOverlay(overlayID, settings)
		plan := l.resolver.Resolve(ctx, owner, o, templates)
		l.apply(o, plan)
	}

	l.setState(StateRunning)
	l.logger.Debug("reconciled", "camera_id", l.cameraID, "overlays", len(owner.OverlaySlots))
}

// pruneVanished deletes settings of overlay ids the camera no longer
// reports. The camera's slot list is the authority on which ids exist.
func (l *Loop) pruneVanished(ctx context.Context, slots []string, settings map[string]string) {
	reported := make(map[string]struct{}, len(slots))
	for _, id := range slots {
		reported[id] = struct{}{}
	}

	stale := make(map[string]struct{})
	for key := range settings {
		id, _, ok := ParseOverlayKey(key)
		if !ok {
			continue
		}
		if _, exists := reported[id]; !exists {
			stale[id] = struct{}{}
		}
	}

	for id := range stale {
		if err := l.store.DeleteCameraSettings(ctx, l.cameraID, OverlayKeyPrefix(id)); err != nil {
			l.logger.Warn("pruning vanished overlay failed",
				"camera_id", l.cameraID, "overlay_id", id, "error", err)
			continue
		}
		for key := range settings {
			if strings.HasPrefix(key, OverlayKeyPrefix(id)) {
				delete(settings, key)
			}
		}
		l.logger.Info("vanished overlay pruned", "camera_id", l.cameraID, "overlay_id", id)
	}
}

// apply installs the listener a plan calls for and pushes the immediate
// first render. A failure on one overlay never affects its siblings.
func (l *Loop) apply(o Overlay, plan ListenerPlan) {
	switch {
	case plan.Kind == ListenerNone:
		// Synthetic render for static/disabled; unresolvable overlays
		// keep their last text.
		switch o.Kind {
		case KindDisabled:
			l.clear(o)
		case KindStaticText:
			l.render(o, o.StaticText)
		}

	case plan.Kind == ListenerInterval:
		stop := make(chan struct{})
		if !l.register(o.ID, &activeSubscription{kind: plan.Kind, deviceID: plan.DeviceID, stop: stop}) {
			return
		}
		go l.intervalLoop(o, plan, stop)

	case plan.Kind.IsEvent():
		handler := func(ev device.StateEvent) {
			if ev.Measurement != plan.Measurement {
				return
			}
			l.renderRaw(o, plan, ev.Value)
		}
		sub := l.events.Subscribe(plan.DeviceID, handler)
		if !l.register(o.ID, &activeSubscription{kind: plan.Kind, deviceID: plan.DeviceID, sub: sub}) {
			return
		}
		// Fetch-and-render the current value so the overlay is never
		// blank while waiting for the next event.
		l.renderCurrent(o, plan)
	}
}

// register records an active subscription. Returns false (after
// releasing the subscription) if the loop closed mid-pass.
func (l *Loop) register(overlayID string, a *activeSubscription) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		a.release()
		return false
	}
	l.active[overlayID] = a
	l.mu.Unlock()
	return true
}

// intervalLoop renders a template overlay immediately and then on every
// tick until stopped.
func (l *Loop) intervalLoop(o Overlay, plan ListenerPlan, stop <-chan struct{}) {
	l.renderTemplate(o, *plan.Template)

	ticker := time.NewTicker(plan.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.renderTemplate(o, *plan.Template)
		}
	}
}

func (l *Loop) renderTemplate(o Overlay, tmpl Template) {
	l.render(o, l.tmplResolver.Render(l.ctx, tmpl))
}

// renderCurrent reads the listener's current value from the directory
// and renders it. Overlays whose source has no reading yet stay as-is.
func (l *Loop) renderCurrent(o Overlay, plan ListenerPlan) {
	src, err := l.devices.GetDevice(l.ctx, plan.DeviceID)
	if err != nil {
		l.logger.Warn("current value fetch failed",
			"camera_id", l.cameraID, "overlay_id", o.ID, "device_id", plan.DeviceID, "error", err)
		return
	}
	raw, ok := src.State[plan.Measurement]
	if !ok {
		return
	}
	l.renderRaw(o, plan, raw)
}

// renderRaw formats one raw source value per the overlay's configuration
// and pushes it to the sink.
func (l *Loop) renderRaw(o Overlay, plan ListenerPlan, raw any) {
	text, ok := l.formatRaw(o, plan, raw)
	if !ok {
		l.logger.Debug("unrenderable value",
			"camera_id", l.cameraID, "overlay_id", o.ID, "listener", plan.Kind)
		return
	}
	l.render(o, text)
}

// formatRaw turns a raw state value into display text for the overlay.
func (l *Loop) formatRaw(o Overlay, plan ListenerPlan, raw any) (string, bool) {
	switch plan.Kind {
	case ListenerLock:
		s, ok := raw.(string)
		if !ok {
			return "", false
		}
		return SubstituteFormat(o.FormatExpression, l.tmplResolver.phrases.LockText(s), ""), true

	case ListenerEntry, ListenerBinary:
		b, ok := coerceBool(raw)
		if !ok {
			return "", false
		}
		return SubstituteFormat(o.FormatExpression, l.tmplResolver.phrases.BinaryText(b), ""), true

	case ListenerFace:
		s, ok := raw.(string)
		if !ok {
			return "", false
		}
		return SubstituteFormat(o.FormatExpression, s, ""), true

	default:
		// Numeric listeners: sensors, temperature, humidity, battery.
		f, ok := toFloat(raw)
		if !ok {
			return "", false
		}
		display := l.displayUnit(o, plan)
		value := FormatNumber(Convert(f, plan.Unit, display), o.MaxDecimals)
		return SubstituteFormat(o.FormatExpression, value, UnitLabel(display)), true
	}
}

// displayUnit picks the unit a numeric value is shown in: the overlay's
// configured unit, else the plugin temperature default for temperature
// sources, else the source's native unit.
func (l *Loop) displayUnit(o Overlay, plan ListenerPlan) string {
	if o.Unit != "" {
		return o.Unit
	}
	if isTemperature(NormalizeUnit(plan.Unit)) {
		return l.tmplResolver.temperatureUnit
	}
	return plan.Unit
}

// render truncates and writes final text to the sink, unless the camera
// is sleeping. Sink failures are logged and retried only on the next
// natural trigger.
func (l *Loop) render(o Overlay, text string) {
	if l.devices.IsSleeping(l.cameraID) {
		l.logger.Debug("render suppressed, camera sleeping",
			"camera_id", l.cameraID, "overlay_id", o.ID)
		return
	}

	final := Truncate(text, o.MaxCharacters)
	if err := l.sink.SetText(l.cameraID, o.ID, final); err != nil {
		l.logger.Warn("overlay write failed",
			"camera_id", l.cameraID, "overlay_id", o.ID, "error", err)
		l.recorder.RecordRender(l.cameraID, o.ID, false)
		return
	}
	l.recorder.RecordRender(l.cameraID, o.ID, true)

	if err := l.store.SetCameraSetting(l.ctx, l.cameraID, OverlayKey(o.ID, fieldCurrentText), final); err != nil {
		l.logger.Warn("persisting current text failed",
			"camera_id", l.cameraID, "overlay_id", o.ID, "error", err)
	}
	if l.onRender != nil {
		l.onRender(l.cameraID, o.ID, final)
	}
}

// clear writes the disable signal for an explicitly disabled overlay.
func (l *Loop) clear(o Overlay) {
	if l.devices.IsSleeping(l.cameraID) {
		l.logger.Debug("clear suppressed, camera sleeping",
			"camera_id", l.cameraID, "overlay_id", o.ID)
		return
	}

	if err := l.sink.Clear(l.cameraID, o.ID); err != nil {
		l.logger.Warn("overlay clear failed",
			"camera_id", l.cameraID, "overlay_id", o.ID, "error", err)
		l.recorder.RecordRender(l.cameraID, o.ID, false)
		return
	}
	l.recorder.RecordRender(l.cameraID, o.ID, true)
}

// teardown releases every active subscription. Idempotent.
func (l *Loop) teardown() {
	l.mu.Lock()
	active := l.active
	l.active = make(map[string]*activeSubscription)
	l.mu.Unlock()

	for _, a := range active {
		a.release()
	}
}

// Close releases the loop: every subscription cancelled, every timer
// stopped. Idempotent; a closed loop ignores further triggers.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.teardown()
	l.setState(StateStopped)
	l.logger.Info("overlay loop closed", "camera_id", l.cameraID)
}

// State returns the loop's lifecycle state.
func (l *Loop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ActiveCount returns the number of active subscriptions.
func (l *Loop) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

func (l *Loop) setState(s LoopState) {
	l.mu.Lock()
	if !l.closed || s == StateStopped {
		l.state = s
	}
	l.mu.Unlock()
}

// coerceBool interprets the value shapes bridges report binary states in.
func coerceBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "open", "true", "on", "1":
			return true, true
		case "closed", "false", "off", "0":
			return false, true
		default:
			return false, false
		}
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	default:
		return false, false
	}
}
