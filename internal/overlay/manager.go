package overlay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-osd/internal/device"
)

// CameraDirectory extends Directory with camera enumeration.
// Implemented by device.Registry.
type CameraDirectory interface {
	Directory
	ListCameras(ctx context.Context) ([]device.Device, error)
}

// ManagerConfig carries the collaborators and plugin-scoped settings the
// manager hands to every loop.
type ManagerConfig struct {
	Devices CameraDirectory
	Events  EventSource
	Sink    Sink
	Store   SettingsStore

	// Phrases are the configured state-to-text mappings.
	Phrases StateTexts

	// TemperatureUnit is the plugin default display unit for temperature.
	TemperatureUnit string

	// DefaultRefresh is the template poll cadence when a template does
	// not set one.
	DefaultRefresh time.Duration

	Recorder RenderRecorder
	OnRender RenderHook
	Logger   Logger
}

// Manager owns one reconciliation loop per camera: it creates loops for
// cameras exposing text overlays, routes settings mutations and refresh
// actions to the right loop, and releases loops for cameras that go away.
type Manager struct {
	devices  CameraDirectory
	events   EventSource
	sink     Sink
	store    SettingsStore
	resolver *Resolver
	tmpl     *TemplateResolver
	recorder RenderRecorder
	onRender RenderHook
	logger   Logger

	ctx context.Context

	mu    sync.Mutex
	loops map[string]*Loop
}

// NewManager creates an overlay manager.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	resolver := NewResolver(cfg.Devices, cfg.DefaultRefresh)
	resolver.SetLogger(logger)

	tmpl := NewTemplateResolver(cfg.Devices, cfg.Phrases, cfg.TemperatureUnit)
	tmpl.SetLogger(logger)

	return &Manager{
		devices:  cfg.Devices,
		events:   cfg.Events,
		sink:     cfg.Sink,
		store:    cfg.Store,
		resolver: resolver,
		tmpl:     tmpl,
		recorder: cfg.Recorder,
		onRender: cfg.OnRender,
		logger:   logger,
		ctx:      context.Background(),
		loops:    make(map[string]*Loop),
	}
}

// Start creates and starts a loop for every camera in the directory.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx = ctx
	if err := m.Sync(ctx); err != nil {
		return fmt.Errorf("starting overlay loops: %w", err)
	}
	return nil
}

// Sync aligns running loops with the directory: new cameras with the
// text-overlay capability get a loop, loops of removed cameras are
// released. Existing loops are left running.
func (m *Manager) Sync(ctx context.Context) error {
	cameras, err := m.devices.ListCameras(ctx)
	if err != nil {
		return fmt.Errorf("listing cameras: %w", err)
	}

	current := make(map[string]struct{}, len(cameras))
	for i := range cameras {
		cam := cameras[i]
		if !cam.HasCapability(device.CapTextOverlays) {
			continue
		}
		current[cam.ID] = struct{}{}

		m.mu.Lock()
		_, exists := m.loops[cam.ID]
		if !exists {
			loop := NewLoop(LoopDeps{
				CameraID:  cam.ID,
				Devices:   m.devices,
				Events:    m.events,
				Sink:      m.sink,
				Store:     m.store,
				Resolver:  m.resolver,
				Templates: m.tmpl,
				Recorder:  m.recorder,
				OnRender:  m.onRender,
				Logger:    m.logger,
			})
			m.loops[cam.ID] = loop
			m.mu.Unlock()

			loop.Start(m.ctx)
			m.logger.Info("overlay loop started", "camera_id", cam.ID)
			continue
		}
		m.mu.Unlock()
	}

	// Release loops of cameras no longer in the directory.
	m.mu.Lock()
	var gone []*Loop
	for id, loop := range m.loops {
		if _, ok := current[id]; !ok {
			gone = append(gone, loop)
			delete(m.loops, id)
		}
	}
	m.mu.Unlock()

	for _, loop := range gone {
		loop.Close()
	}

	return nil
}

// Refresh triggers a reconciliation pass for one camera.
func (m *Manager) Refresh(cameraID string) error {
	m.mu.Lock()
	loop, ok := m.loops[cameraID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	loop.Trigger()
	return nil
}

// RefreshAll triggers every loop. Used after plugin-scoped mutations
// (template edits) that may affect any camera.
func (m *Manager) RefreshAll() {
	m.mu.Lock()
	loops := make([]*Loop, 0, len(m.loops))
	for _, loop := range m.loops {
		loops = append(loops, loop)
	}
	m.mu.Unlock()

	for _, loop := range loops {
		loop.Trigger()
	}
}

// Close releases every loop. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	loops := m.loops
	m.loops = make(map[string]*Loop)
	m.mu.Unlock()

	for _, loop := range loops {
		loop.Close()
	}
}

// LoopCount returns the number of running loops.
func (m *Manager) LoopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loops)
}

// ─── Settings surface ───────────────────────────────────────────────────────
//
// These operations back the HTTP API: they read and mutate the settings
// store and trigger the affected loops.

// Overlays returns the decoded overlay configuration for every slot the
// camera reports, in slot order.
func (m *Manager) Overlays(ctx context.Context, cameraID string) ([]Overlay, error) {
	cam, err := m.camera(ctx, cameraID)
	if err != nil {
		return nil, err
	}

	settings, err := m.store.GetCameraSettings(ctx, cameraID)
	if err != nil {
		return nil, fmt.Errorf("reading camera settings: %w", err)
	}

	overlays := make([]Overlay, 0, len(cam.OverlaySlots))
	for _, id := range cam.OverlaySlots {
		overlays = append(overlays, DecodeOverlay(id, settings))
	}
	return overlays, nil
}

// SetOverlaySettings validates and writes overlay fields, then triggers
// the camera's loop once.
func (m *Manager) SetOverlaySettings(ctx context.Context, cameraID, overlayID string, fields map[string]string) error {
	cam, err := m.camera(ctx, cameraID)
	if err != nil {
		return err
	}
	if !slotExists(cam.OverlaySlots, overlayID) {
		return fmt.Errorf("%w: %s", ErrOverlayNotFound, overlayID)
	}

	for field, value := range fields {
		if err := ValidateOverlayField(field, value); err != nil {
			return err
		}
	}
	for field, value := range fields {
		if err := m.store.SetCameraSetting(ctx, cameraID, OverlayKey(overlayID, field), value); err != nil {
			return fmt.Errorf("writing overlay setting: %w", err)
		}
	}

	return m.Refresh(cameraID)
}

// Descriptors computes the settings schema for one overlay.
func (m *Manager) Descriptors(ctx context.Context, cameraID, overlayID string) ([]SettingDescriptor, error) {
	cam, err := m.camera(ctx, cameraID)
	if err != nil {
		return nil, err
	}
	if !slotExists(cam.OverlaySlots, overlayID) {
		return nil, fmt.Errorf("%w: %s", ErrOverlayNotFound, overlayID)
	}

	settings, err := m.store.GetCameraSettings(ctx, cameraID)
	if err != nil {
		return nil, fmt.Errorf("reading camera settings: %w", err)
	}
	o := DecodeOverlay(overlayID, settings)

	var source *device.Device
	if o.Kind == KindDeviceBound && o.SourceDeviceID != "" {
		// A missing source just narrows the schema; not an error.
		source, _ = m.devices.GetDevice(ctx, o.SourceDeviceID)
	}

	templates, err := m.Templates(ctx)
	if err != nil {
		return nil, err
	}

	return DescribeOverlay(o, source, templates), nil
}

// Templates returns every template from the plugin settings.
func (m *Manager) Templates(ctx context.Context) (map[string]Template, error) {
	plugin, err := m.store.GetPluginSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading plugin settings: %w", err)
	}
	return DecodeTemplates(plugin), nil
}

// GetTemplate returns one template.
func (m *Manager) GetTemplate(ctx context.Context, templateID string) (Template, error) {
	templates, err := m.Templates(ctx)
	if err != nil {
		return Template{}, err
	}
	t, ok := templates[templateID]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}
	return t, nil
}

// SaveTemplate creates or updates a template and retriggers every loop.
// A template without an id gets one generated.
func (m *Manager) SaveTemplate(ctx context.Context, t Template) (Template, error) {
	if t.ID == "" {
		t.ID = NewTemplateID()
	}

	fields, err := EncodeTemplate(t)
	if err != nil {
		return Template{}, err
	}
	for key, value := range fields {
		if err := m.store.SetPluginSetting(ctx, key, value); err != nil {
			return Template{}, fmt.Errorf("writing template setting: %w", err)
		}
	}

	m.RefreshAll()
	return t, nil
}

// DeleteTemplate removes a template and retriggers every loop.
// Referencing overlays are orphaned and simply stop rendering.
func (m *Manager) DeleteTemplate(ctx context.Context, templateID string) error {
	if _, err := m.GetTemplate(ctx, templateID); err != nil {
		return err
	}
	if err := m.store.DeletePluginSettings(ctx, TemplateKeyPrefix(templateID)); err != nil {
		return fmt.Errorf("deleting template settings: %w", err)
	}

	m.RefreshAll()
	return nil
}

// camera fetches a device and checks it carries text overlays.
func (m *Manager) camera(ctx context.Context, cameraID string) (*device.Device, error) {
	cam, err := m.devices.GetDevice(ctx, cameraID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	if !cam.HasCapability(device.CapTextOverlays) {
		return nil, fmt.Errorf("%w: %s", ErrNotCamera, cameraID)
	}
	return cam, nil
}

func slotExists(slots []string, id string) bool {
	for _, s := range slots {
		if s == id {
			return true
		}
	}
	return false
}
