package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/gray-logic-osd/internal/device"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-osd/internal/overlay"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type fakeRegistry struct {
	devices map[string]*device.Device
}

func newFakeRegistry(devs ...*device.Device) *fakeRegistry {
	f := &fakeRegistry{devices: make(map[string]*device.Device)}
	for _, d := range devs {
		f.devices[d.ID] = d
	}
	return f
}

func (f *fakeRegistry) GetDevice(_ context.Context, id string) (*device.Device, error) {
	if d, ok := f.devices[id]; ok {
		return d.DeepCopy(), nil
	}
	return nil, device.ErrDeviceNotFound
}

func (f *fakeRegistry) ListDevices(_ context.Context) ([]device.Device, error) {
	out := make([]device.Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, *d.DeepCopy())
	}
	return out, nil
}

func (f *fakeRegistry) ListCameras(_ context.Context) ([]device.Device, error) {
	var out []device.Device
	for _, d := range f.devices {
		if d.Kind == device.KindCamera {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

type fakeOverlayService struct {
	overlays    map[string][]overlay.Overlay // camera id → slots
	templates   map[string]overlay.Template
	refreshed   []string
	setCalls    int
	setErr      error
	descriptors []overlay.SettingDescriptor
}

func newFakeOverlayService() *fakeOverlayService {
	return &fakeOverlayService{
		overlays:  make(map[string][]overlay.Overlay),
		templates: make(map[string]overlay.Template),
	}
}

func (f *fakeOverlayService) Overlays(_ context.Context, cameraID string) ([]overlay.Overlay, error) {
	overlays, ok := f.overlays[cameraID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", overlay.ErrCameraNotFound, cameraID)
	}
	return overlays, nil
}

func (f *fakeOverlayService) SetOverlaySettings(_ context.Context, cameraID, overlayID string, fields map[string]string) error {
	if f.setErr != nil {
		return f.setErr
	}
	slots, ok := f.overlays[cameraID]
	if !ok {
		return fmt.Errorf("%w: %s", overlay.ErrCameraNotFound, cameraID)
	}
	for i := range slots {
		if slots[i].ID == overlayID {
			if text, ok := fields["static_text"]; ok {
				slots[i].StaticText = text
			}
			f.setCalls++
			return nil
		}
	}
	return fmt.Errorf("%w: %s", overlay.ErrOverlayNotFound, overlayID)
}

func (f *fakeOverlayService) Descriptors(_ context.Context, cameraID, overlayID string) ([]overlay.SettingDescriptor, error) {
	slots, ok := f.overlays[cameraID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", overlay.ErrCameraNotFound, cameraID)
	}
	for _, o := range slots {
		if o.ID == overlayID {
			return f.descriptors, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", overlay.ErrOverlayNotFound, overlayID)
}

func (f *fakeOverlayService) Refresh(cameraID string) error {
	if _, ok := f.overlays[cameraID]; !ok {
		return fmt.Errorf("%w: %s", overlay.ErrCameraNotFound, cameraID)
	}
	f.refreshed = append(f.refreshed, cameraID)
	return nil
}

func (f *fakeOverlayService) Templates(_ context.Context) (map[string]overlay.Template, error) {
	return f.templates, nil
}

func (f *fakeOverlayService) GetTemplate(_ context.Context, id string) (overlay.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return overlay.Template{}, fmt.Errorf("%w: %s", overlay.ErrTemplateNotFound, id)
	}
	return t, nil
}

func (f *fakeOverlayService) SaveTemplate(_ context.Context, t overlay.Template) (overlay.Template, error) {
	if t.ID == "" {
		t.ID = overlay.NewTemplateID()
	}
	f.templates[t.ID] = t
	return t, nil
}

func (f *fakeOverlayService) DeleteTemplate(_ context.Context, id string) error {
	if _, ok := f.templates[id]; !ok {
		return fmt.Errorf("%w: %s", overlay.ErrTemplateNotFound, id)
	}
	delete(f.templates, id)
	return nil
}

func (f *fakeOverlayService) LoopCount() int { return len(f.overlays) }

// ─── Fixture ────────────────────────────────────────────────────────────────

type apiFixture struct {
	router   http.Handler
	registry *fakeRegistry
	overlays *fakeOverlayService
}

func newAPIFixture(t *testing.T, devs ...*device.Device) *apiFixture {
	t.Helper()

	registry := newFakeRegistry(devs...)
	overlays := newFakeOverlayService()

	server, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:       config.WebSocketConfig{MaxMessageSize: 4096, PingInterval: 30, PongTimeout: 10},
		Logger:   logging.Default(),
		Registry: registry,
		Overlays: overlays,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	server.hub = NewHub(server.wsCfg, server.logger)

	return &apiFixture{
		router:   server.buildRouter(),
		registry: registry,
		overlays: overlays,
	}
}

func (fx *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func testAPICamera() *device.Device {
	return &device.Device{
		ID:           "cam-01",
		Name:         "Front Door",
		Kind:         device.KindCamera,
		Capabilities: []device.Capability{device.CapTextOverlays},
		OverlaySlots: []string{"1", "2"},
	}
}

// ─── Health and devices ─────────────────────────────────────────────────────

func TestHandleHealth(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health body = %v", body)
	}
}

func TestHandleListDevices(t *testing.T) {
	fx := newAPIFixture(t, testAPICamera(), &device.Device{
		ID: "thermo", Name: "Outside", Kind: device.KindSensor,
		Capabilities: []device.Capability{device.CapThermometer},
	})

	rec := fx.do(t, http.MethodGet, "/api/v1/devices", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /devices = %d, want 200", rec.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}

func TestHandleGetDevice_NotFound(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/devices/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /devices/nope = %d, want 404", rec.Code)
	}
}

func TestHandleListCameras(t *testing.T) {
	fx := newAPIFixture(t, testAPICamera(), &device.Device{
		ID: "thermo", Name: "Outside", Kind: device.KindSensor,
	})

	rec := fx.do(t, http.MethodGet, "/api/v1/cameras", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /cameras = %d, want 200", rec.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 1 {
		t.Errorf("count = %d, want 1 (sensors are not cameras)", body.Count)
	}
}

// ─── Overlays ───────────────────────────────────────────────────────────────

func TestHandleListOverlays(t *testing.T) {
	fx := newAPIFixture(t, testAPICamera())
	fx.overlays.overlays["cam-01"] = []overlay.Overlay{
		{ID: "1", Kind: overlay.KindStaticText, StaticText: "Hello"},
		{ID: "2", Kind: overlay.KindDisabled},
	}

	rec := fx.do(t, http.MethodGet, "/api/v1/cameras/cam-01/overlays", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET overlays = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Overlays []overlay.Overlay `json:"overlays"`
	}
	decodeBody(t, rec, &body)
	if len(body.Overlays) != 2 || body.Overlays[0].StaticText != "Hello" {
		t.Errorf("overlays = %+v", body.Overlays)
	}
}

func TestHandleListOverlays_UnknownCamera(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/cameras/nope/overlays", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET overlays (unknown camera) = %d, want 404", rec.Code)
	}
}

func TestHandleSetOverlay(t *testing.T) {
	fx := newAPIFixture(t, testAPICamera())
	fx.overlays.overlays["cam-01"] = []overlay.Overlay{
		{ID: "1", Kind: overlay.KindStaticText},
	}

	rec := fx.do(t, http.MethodPatch, "/api/v1/cameras/cam-01/overlays/1",
		map[string]string{"static_text": "Updated"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH overlay = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var o overlay.Overlay
	decodeBody(t, rec, &o)
	if o.StaticText != "Updated" {
		t.Errorf("returned overlay = %+v, want applied settings", o)
	}
	if fx.overlays.setCalls != 1 {
		t.Errorf("setCalls = %d, want 1", fx.overlays.setCalls)
	}
}

func TestHandleSetOverlay_Validation(t *testing.T) {
	fx := newAPIFixture(t, testAPICamera())
	fx.overlays.overlays["cam-01"] = []overlay.Overlay{{ID: "1"}}
	fx.overlays.setErr = fmt.Errorf("%w: kind", overlay.ErrInvalidSetting)

	rec := fx.do(t, http.MethodPatch, "/api/v1/cameras/cam-01/overlays/1",
		map[string]string{"kind": "bogus"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("PATCH overlay (invalid) = %d, want 422", rec.Code)
	}
}

func TestHandleSetOverlay_BadBody(t *testing.T) {
	fx := newAPIFixture(t, testAPICamera())
	fx.overlays.overlays["cam-01"] = []overlay.Overlay{{ID: "1"}}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cameras/cam-01/overlays/1",
		bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PATCH overlay (bad body) = %d, want 400", rec.Code)
	}

	rec = fx.do(t, http.MethodPatch, "/api/v1/cameras/cam-01/overlays/1", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PATCH overlay (empty fields) = %d, want 400", rec.Code)
	}
}

func TestHandleOverlayDescriptors(t *testing.T) {
	fx := newAPIFixture(t, testAPICamera())
	fx.overlays.overlays["cam-01"] = []overlay.Overlay{{ID: "1", Kind: overlay.KindDisabled}}
	fx.overlays.descriptors = []overlay.SettingDescriptor{{Key: "kind", Type: "select"}}

	rec := fx.do(t, http.MethodGet, "/api/v1/cameras/cam-01/overlays/1/descriptors", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET descriptors = %d, want 200", rec.Code)
	}

	var body struct {
		Descriptors []overlay.SettingDescriptor `json:"descriptors"`
	}
	decodeBody(t, rec, &body)
	if len(body.Descriptors) != 1 || body.Descriptors[0].Key != "kind" {
		t.Errorf("descriptors = %+v", body.Descriptors)
	}
}

func TestHandleRefreshCamera(t *testing.T) {
	fx := newAPIFixture(t, testAPICamera())
	fx.overlays.overlays["cam-01"] = nil

	rec := fx.do(t, http.MethodPost, "/api/v1/cameras/cam-01/refresh", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST refresh = %d, want 202", rec.Code)
	}
	if len(fx.overlays.refreshed) != 1 || fx.overlays.refreshed[0] != "cam-01" {
		t.Errorf("refreshed = %v", fx.overlays.refreshed)
	}

	rec = fx.do(t, http.MethodPost, "/api/v1/cameras/nope/refresh", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("POST refresh (unknown) = %d, want 404", rec.Code)
	}
}

// ─── Templates ──────────────────────────────────────────────────────────────

func TestTemplateEndpoints(t *testing.T) {
	fx := newAPIFixture(t)

	// Create generates an id.
	rec := fx.do(t, http.MethodPost, "/api/v1/templates", overlay.Template{
		Name:         "Weather",
		ParserString: "T:{thermo.temperature}",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /templates = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created overlay.Template
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatal("created template has no id")
	}

	// Get returns it.
	rec = fx.do(t, http.MethodGet, "/api/v1/templates/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /templates/{id} = %d, want 200", rec.Code)
	}

	// Update keeps the path id.
	created.Name = "Weather v2"
	rec = fx.do(t, http.MethodPut, "/api/v1/templates/"+created.ID, created)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /templates/{id} = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var updated overlay.Template
	decodeBody(t, rec, &updated)
	if updated.ID != created.ID || updated.Name != "Weather v2" {
		t.Errorf("updated = %+v", updated)
	}

	// List is sorted and counts.
	rec = fx.do(t, http.MethodGet, "/api/v1/templates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /templates = %d, want 200", rec.Code)
	}
	var list struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &list)
	if list.Count != 1 {
		t.Errorf("count = %d, want 1", list.Count)
	}

	// Delete removes it; a second delete is a 404.
	rec = fx.do(t, http.MethodDelete, "/api/v1/templates/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /templates/{id} = %d, want 200", rec.Code)
	}
	rec = fx.do(t, http.MethodDelete, "/api/v1/templates/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("DELETE (gone) = %d, want 404", rec.Code)
	}
}

func TestUpdateTemplate_UnknownIs404(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodPut, "/api/v1/templates/tpl-nope", overlay.Template{Name: "X"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("PUT unknown template = %d, want 404 (no upsert)", rec.Code)
	}
}
