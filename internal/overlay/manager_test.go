package overlay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-osd/internal/device"
)

type managerFixture struct {
	manager *Manager
	dir     *fakeDirectory
	events  *fakeEvents
	sink    *fakeSink
	store   *memStore
}

func newManagerFixture(devs ...*device.Device) *managerFixture {
	dir := newFakeDirectory(devs...)
	events := newFakeEvents()
	sink := newFakeSink()
	store := newMemStore()

	manager := NewManager(ManagerConfig{
		Devices:         dir,
		Events:          events,
		Sink:            sink,
		Store:           store,
		Phrases:         testPhrases(),
		TemperatureUnit: "c",
		DefaultRefresh:  5 * time.Second,
	})

	return &managerFixture{manager: manager, dir: dir, events: events, sink: sink, store: store}
}

// ─── Loop lifecycle ─────────────────────────────────────────────────────────

func TestManager_SyncCreatesAndReleasesLoops(t *testing.T) {
	overlayCam := defaultCamera()
	plainCam := &device.Device{
		ID:   "cam-02",
		Name: "No Overlays",
		Kind: device.KindCamera,
		// A camera without the text-overlay capability gets no loop.
		Capabilities: []device.Capability{device.CapObjectDetect},
	}
	sensor := &device.Device{
		ID:           "thermo",
		Name:         "Outside",
		Kind:         device.KindSensor,
		Capabilities: []device.Capability{device.CapThermometer},
	}

	fx := newManagerFixture(overlayCam, plainCam, sensor)
	ctx := context.Background()

	if err := fx.manager.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer fx.manager.Close()

	if got := fx.manager.LoopCount(); got != 1 {
		t.Fatalf("LoopCount() = %d, want 1 (only overlay-capable cameras)", got)
	}

	// A newly paired camera picks up a loop on the next sync.
	fx.dir.add(&device.Device{
		ID:           "cam-03",
		Name:         "Back Door",
		Kind:         device.KindCamera,
		Capabilities: []device.Capability{device.CapTextOverlays},
		OverlaySlots: []string{"1"},
	})
	if err := fx.manager.Sync(ctx); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if got := fx.manager.LoopCount(); got != 2 {
		t.Errorf("LoopCount() after pairing = %d, want 2", got)
	}

	// A removed camera's loop is released.
	fx.dir.remove("cam-01")
	if err := fx.manager.Sync(ctx); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if got := fx.manager.LoopCount(); got != 1 {
		t.Errorf("LoopCount() after removal = %d, want 1", got)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	fx := newManagerFixture(defaultCamera())
	if err := fx.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	fx.manager.Close()
	fx.manager.Close()

	if got := fx.manager.LoopCount(); got != 0 {
		t.Errorf("LoopCount() after Close = %d, want 0", got)
	}
}

func TestManager_RefreshUnknownCamera(t *testing.T) {
	fx := newManagerFixture(defaultCamera())

	if err := fx.manager.Refresh("nope"); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("Refresh(unknown) = %v, want ErrCameraNotFound", err)
	}
}

// ─── Settings surface ───────────────────────────────────────────────────────

func TestManager_Overlays(t *testing.T) {
	fx := newManagerFixture(defaultCamera(), &device.Device{
		ID:           "thermo",
		Name:         "Outside",
		Kind:         device.KindSensor,
		Capabilities: []device.Capability{device.CapThermometer},
	})
	fx.store.seedCamera("cam-01", map[string]string{
		"overlay:1:kind":        "static_text",
		"overlay:1:static_text": "Hello",
	})
	ctx := context.Background()

	overlays, err := fx.manager.Overlays(ctx, "cam-01")
	if err != nil {
		t.Fatalf("Overlays() error: %v", err)
	}
	if len(overlays) != 2 {
		t.Fatalf("Overlays() returned %d, want one per reported slot", len(overlays))
	}
	if overlays[0].Kind != KindStaticText || overlays[0].StaticText != "Hello" {
		t.Errorf("slot 1 = %+v", overlays[0])
	}
	if overlays[1].Kind != KindDisabled {
		t.Errorf("slot 2 kind = %s, want disabled for unconfigured slot", overlays[1].Kind)
	}

	if _, err := fx.manager.Overlays(ctx, "gone"); !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("Overlays(unknown) = %v, want ErrCameraNotFound", err)
	}
	if _, err := fx.manager.Overlays(ctx, "thermo"); !errors.Is(err, ErrNotCamera) {
		t.Errorf("Overlays(sensor) = %v, want ErrNotCamera", err)
	}
}

func TestManager_SetOverlaySettings(t *testing.T) {
	fx := newManagerFixture(defaultCamera())
	ctx := context.Background()
	if err := fx.manager.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer fx.manager.Close()

	err := fx.manager.SetOverlaySettings(ctx, "cam-01", "1", map[string]string{
		"kind":        "static_text",
		"static_text": "Hi",
	})
	if err != nil {
		t.Fatalf("SetOverlaySettings() error: %v", err)
	}

	// The write triggers a reconciliation pass that renders the new text.
	waitFor(t, time.Second, func() bool { return fx.sink.text("cam-01", "1") == "Hi" },
		"render after settings write")

	if got := fx.store.cameraSetting("cam-01", "overlay:1:kind"); got != "static_text" {
		t.Errorf("persisted kind = %q", got)
	}
}

func TestManager_SetOverlaySettings_ValidatesBeforeWriting(t *testing.T) {
	fx := newManagerFixture(defaultCamera())
	ctx := context.Background()

	err := fx.manager.SetOverlaySettings(ctx, "cam-01", "1", map[string]string{
		"kind": "bogus",
	})
	if !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("SetOverlaySettings(bad kind) = %v, want ErrInvalidSetting", err)
	}
	if got := fx.store.cameraSetting("cam-01", "overlay:1:kind"); got != "" {
		t.Errorf("rejected write still persisted: %q", got)
	}
}

func TestManager_SetOverlaySettings_UnknownSlot(t *testing.T) {
	fx := newManagerFixture(defaultCamera())

	err := fx.manager.SetOverlaySettings(context.Background(), "cam-01", "99", map[string]string{
		"kind": "disabled",
	})
	if !errors.Is(err, ErrOverlayNotFound) {
		t.Errorf("SetOverlaySettings(unknown slot) = %v, want ErrOverlayNotFound", err)
	}
}

func TestManager_Descriptors(t *testing.T) {
	fx := newManagerFixture(defaultCamera())
	ctx := context.Background()

	ds, err := fx.manager.Descriptors(ctx, "cam-01", "1")
	if err != nil {
		t.Fatalf("Descriptors() error: %v", err)
	}
	if len(ds) == 0 || ds[0].Key != "kind" {
		t.Errorf("descriptors = %v, want kind first", descriptorKeys(ds))
	}

	if _, err := fx.manager.Descriptors(ctx, "cam-01", "99"); !errors.Is(err, ErrOverlayNotFound) {
		t.Errorf("Descriptors(unknown slot) = %v, want ErrOverlayNotFound", err)
	}
}

// ─── Templates ──────────────────────────────────────────────────────────────

func TestManager_TemplateLifecycle(t *testing.T) {
	fx := newManagerFixture(defaultCamera())
	ctx := context.Background()

	saved, err := fx.manager.SaveTemplate(ctx, Template{
		Name:          "Weather",
		SourceDevices: []string{"thermo"},
		ParserString:  "T:{thermo.temperature}",
	})
	if err != nil {
		t.Fatalf("SaveTemplate() error: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("SaveTemplate() did not generate an id")
	}

	got, err := fx.manager.GetTemplate(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetTemplate() error: %v", err)
	}
	if got.Name != "Weather" || got.ParserString != "T:{thermo.temperature}" {
		t.Errorf("GetTemplate() = %+v", got)
	}

	// Updates keep the id.
	saved.Name = "Weather v2"
	updated, err := fx.manager.SaveTemplate(ctx, saved)
	if err != nil {
		t.Fatalf("SaveTemplate(update) error: %v", err)
	}
	if updated.ID != saved.ID {
		t.Errorf("update changed id: %q → %q", saved.ID, updated.ID)
	}

	if err := fx.manager.DeleteTemplate(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteTemplate() error: %v", err)
	}
	if _, err := fx.manager.GetTemplate(ctx, saved.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("GetTemplate(deleted) = %v, want ErrTemplateNotFound", err)
	}
	if err := fx.manager.DeleteTemplate(ctx, saved.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("DeleteTemplate(deleted) = %v, want ErrTemplateNotFound", err)
	}
}

func TestManager_TemplateEditRetriggersLoops(t *testing.T) {
	fx := newManagerFixture(defaultCamera())
	ctx := context.Background()
	if err := fx.manager.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer fx.manager.Close()

	saved, err := fx.manager.SaveTemplate(ctx, Template{Name: "Banner", ParserString: "hello"})
	if err != nil {
		t.Fatalf("SaveTemplate() error: %v", err)
	}
	err = fx.manager.SetOverlaySettings(ctx, "cam-01", "1", map[string]string{
		"kind":        "template",
		"template_id": saved.ID,
	})
	if err != nil {
		t.Fatalf("SetOverlaySettings() error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return fx.sink.text("cam-01", "1") == "hello" },
		"template render")

	saved.ParserString = "goodbye"
	if _, err := fx.manager.SaveTemplate(ctx, saved); err != nil {
		t.Fatalf("SaveTemplate(update) error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return fx.sink.text("cam-01", "1") == "goodbye" },
		"re-render after template edit")
}
