package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device
	// For testing error paths
	createErr      error
	updateErr      error
	deleteErr      error
	updateStateErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices: make(map[string]*Device),
	}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.devices[id]; ok {
		cpy := *d
		return &cpy, nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d)
	}
	return devices, nil
}

func (m *MockRepository) ListByKind(_ context.Context, kind DeviceKind) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var devices []Device
	for _, d := range m.devices {
		if d.Kind == kind {
			devices = append(devices, *d)
		}
	}
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, device *Device) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[device.ID]; exists {
		return ErrDeviceExists
	}

	cpy := *device
	m.devices[device.ID] = &cpy
	return nil
}

func (m *MockRepository) Update(_ context.Context, device *Device) error {
	if m.updateErr != nil {
		return m.updateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[device.ID]; !exists {
		return ErrDeviceNotFound
	}

	cpy := *device
	m.devices[device.ID] = &cpy
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[id]; !exists {
		return ErrDeviceNotFound
	}

	delete(m.devices, id)
	return nil
}

func (m *MockRepository) UpdateState(_ context.Context, id string, state State) error {
	if m.updateStateErr != nil {
		return m.updateStateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, exists := m.devices[id]
	if !exists {
		return ErrDeviceNotFound
	}

	if d.State == nil {
		d.State = State{}
	}
	for k, v := range state {
		d.State[k] = v
	}
	return nil
}

func (m *MockRepository) UpdateSleeping(_ context.Context, id string, sleeping bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, exists := m.devices[id]
	if !exists {
		return ErrDeviceNotFound
	}

	d.Sleeping = sleeping
	return nil
}

// ─── Test Helpers ───────────────────────────────────────────────────────────

func testCamera(id, name string) *Device {
	return &Device{
		ID:           id,
		Name:         name,
		Kind:         KindCamera,
		Capabilities: []Capability{CapTextOverlays},
		OverlaySlots: []string{"1", "2"},
		State:        State{},
	}
}

func testSensor(id, name string) *Device {
	return &Device{
		ID:           id,
		Name:         name,
		Kind:         KindSensor,
		Capabilities: []Capability{CapThermometer},
		State:        State{MeasurementTemperature: 21.5},
	}
}

// ─── Registry Tests ─────────────────────────────────────────────────────────

func TestRegistry_CreateAndGet(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	cam := testCamera("cam-01", "Front Door")
	if err := registry.CreateDevice(ctx, cam); err != nil {
		t.Fatalf("CreateDevice() error: %v", err)
	}

	got, err := registry.GetDevice(ctx, "cam-01")
	if err != nil {
		t.Fatalf("GetDevice() error: %v", err)
	}
	if got.Name != "Front Door" {
		t.Errorf("Name = %q, want %q", got.Name, "Front Door")
	}
	if got.Kind != KindCamera {
		t.Errorf("Kind = %q, want %q", got.Kind, KindCamera)
	}
}

func TestRegistry_CreateGeneratesID(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)

	d := testSensor("", "Garden Sensor")
	if err := registry.CreateDevice(context.Background(), d); err != nil {
		t.Fatalf("CreateDevice() error: %v", err)
	}
	if d.ID == "" {
		t.Error("CreateDevice() did not generate an ID")
	}
}

func TestRegistry_CreateInvalid(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)

	d := testSensor("s-01", "")
	err := registry.CreateDevice(context.Background(), d)
	if !errors.Is(err, ErrInvalidName) {
		t.Errorf("CreateDevice(empty name) = %v, want ErrInvalidName", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)

	_, err := registry.GetDevice(context.Background(), "nope")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice(missing) = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_CacheIsolation(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	cam := testCamera("cam-01", "Front Door")
	if err := registry.CreateDevice(ctx, cam); err != nil {
		t.Fatalf("CreateDevice() error: %v", err)
	}

	// Mutating a returned device must not affect subsequent reads.
	first, _ := registry.GetDevice(ctx, "cam-01")
	first.Name = "Mutated"
	first.OverlaySlots[0] = "99"
	first.State["injected"] = true

	second, _ := registry.GetDevice(ctx, "cam-01")
	if second.Name != "Front Door" {
		t.Errorf("cache leaked name mutation: %q", second.Name)
	}
	if second.OverlaySlots[0] != "1" {
		t.Errorf("cache leaked slot mutation: %q", second.OverlaySlots[0])
	}
	if _, ok := second.State["injected"]; ok {
		t.Error("cache leaked state mutation")
	}
}

func TestRegistry_ListCameras(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	_ = registry.CreateDevice(ctx, testCamera("cam-01", "Front Door"))
	_ = registry.CreateDevice(ctx, testCamera("cam-02", "Back Garden"))
	_ = registry.CreateDevice(ctx, testSensor("s-01", "Garden Sensor"))

	cameras, err := registry.ListCameras(ctx)
	if err != nil {
		t.Fatalf("ListCameras() error: %v", err)
	}
	if len(cameras) != 2 {
		t.Errorf("ListCameras() returned %d devices, want 2", len(cameras))
	}
}

func TestRegistry_GetDevicesByCapability(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	_ = registry.CreateDevice(ctx, testCamera("cam-01", "Front Door"))
	_ = registry.CreateDevice(ctx, testSensor("s-01", "Garden Sensor"))

	thermos, err := registry.GetDevicesByCapability(ctx, CapThermometer)
	if err != nil {
		t.Fatalf("GetDevicesByCapability() error: %v", err)
	}
	if len(thermos) != 1 || thermos[0].ID != "s-01" {
		t.Errorf("GetDevicesByCapability(thermometer) = %v, want [s-01]", thermos)
	}
}

func TestRegistry_SetDeviceState(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	sensor := testSensor("s-01", "Garden Sensor")
	_ = registry.CreateDevice(ctx, sensor)

	if err := registry.SetDeviceState(ctx, "s-01", State{MeasurementTemperature: 22.1}); err != nil {
		t.Fatalf("SetDeviceState() error: %v", err)
	}

	got, _ := registry.GetDevice(ctx, "s-01")
	if got.State[MeasurementTemperature] != 22.1 {
		t.Errorf("temperature = %v, want 22.1", got.State[MeasurementTemperature])
	}
}

func TestRegistry_SetDeviceStateMerges(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	multi := &Device{
		ID:           "ms-01",
		Name:         "Greenhouse",
		Kind:         KindSensor,
		Capabilities: []Capability{CapSensors},
		Sensors:      []Sensor{{ID: "t1", Name: "Temp", Unit: "c"}, {ID: "h1", Name: "Humidity"}},
		State:        State{"t1": 20.0, "h1": 55.0},
	}
	_ = registry.CreateDevice(ctx, multi)

	if err := registry.SetDeviceState(ctx, "ms-01", State{"t1": 21.0}); err != nil {
		t.Fatalf("SetDeviceState() error: %v", err)
	}

	got, _ := registry.GetDevice(ctx, "ms-01")
	if got.State["t1"] != 21.0 {
		t.Errorf("t1 = %v, want 21.0", got.State["t1"])
	}
	if got.State["h1"] != 55.0 {
		t.Errorf("h1 = %v, want 55.0 (merge must preserve other keys)", got.State["h1"])
	}
}

func TestRegistry_SetSleeping(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	_ = registry.CreateDevice(ctx, testCamera("cam-01", "Front Door"))

	if registry.IsSleeping("cam-01") {
		t.Error("new camera reported sleeping")
	}

	if err := registry.SetSleeping(ctx, "cam-01", true); err != nil {
		t.Fatalf("SetSleeping() error: %v", err)
	}
	if !registry.IsSleeping("cam-01") {
		t.Error("camera not reported sleeping after SetSleeping(true)")
	}

	// Unknown devices default to awake.
	if registry.IsSleeping("missing") {
		t.Error("unknown device reported sleeping")
	}
}

func TestRegistry_DeleteDevice(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	_ = registry.CreateDevice(ctx, testCamera("cam-01", "Front Door"))

	if err := registry.DeleteDevice(ctx, "cam-01"); err != nil {
		t.Fatalf("DeleteDevice() error: %v", err)
	}

	if _, err := registry.GetDevice(ctx, "cam-01"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice(deleted) = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()

	// Seed the repository directly, bypassing the registry.
	_ = repo.Create(ctx, testCamera("cam-01", "Front Door"))
	_ = repo.Create(ctx, testSensor("s-01", "Garden Sensor"))

	registry := NewRegistry(repo)
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error: %v", err)
	}

	if got := registry.GetDeviceCount(); got != 2 {
		t.Errorf("GetDeviceCount() = %d, want 2", got)
	}
}
