// Package api provides the HTTP REST API and WebSocket server for Gray Logic OSD.
//
// It exposes camera and overlay configuration operations, template management,
// and real-time render/state events to user interfaces (camera plugin pages,
// web admin).
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-osd/internal/device"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-osd/internal/overlay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceReader is the slice of the device registry the API reads from.
type DeviceReader interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	ListDevices(ctx context.Context) ([]device.Device, error)
	ListCameras(ctx context.Context) ([]device.Device, error)
}

// OverlayService is the overlay manager surface the API routes to.
// Implemented by *overlay.Manager.
type OverlayService interface {
	Overlays(ctx context.Context, cameraID string) ([]overlay.Overlay, error)
	SetOverlaySettings(ctx context.Context, cameraID, overlayID string, fields map[string]string) error
	Descriptors(ctx context.Context, cameraID, overlayID string) ([]overlay.SettingDescriptor, error)
	Refresh(cameraID string) error
	Templates(ctx context.Context) (map[string]overlay.Template, error)
	GetTemplate(ctx context.Context, templateID string) (overlay.Template, error)
	SaveTemplate(ctx context.Context, t overlay.Template) (overlay.Template, error)
	DeleteTemplate(ctx context.Context, templateID string) error
	LoopCount() int
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry DeviceReader
	Overlays OverlayService
	MQTT     *mqtt.Client // optional: enables device state relay to WebSocket clients
	Version  string

	// ExternalHub lets main share one hub between the server and the
	// overlay render hook. If unset, the server creates its own.
	ExternalHub *Hub
}

// Server is the HTTP API server for Gray Logic OSD.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	registry DeviceReader
	overlays OverlayService
	mqtt     *mqtt.Client
	version  string

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Overlays == nil {
		return nil, fmt.Errorf("overlay service is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		registry: deps.Registry,
		overlays: deps.Overlays,
		mqtt:     deps.MQTT,
		version:  deps.Version,
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to MQTT state
// topics for real-time WebSocket relay, and launches the HTTP listener in a
// background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	if err := s.subscribeStateUpdates(); err != nil {
		s.logger.Warn("failed to subscribe to state updates for WebSocket", "error", err)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Hub returns the WebSocket hub, creating it on first use. Lets main wire
// the overlay render hook before Start().
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
