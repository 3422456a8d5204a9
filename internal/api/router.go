package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Device endpoints (read-only; devices are managed over MQTT)
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{id}", s.handleGetDevice)
		})

		// Camera and overlay endpoints
		r.Route("/cameras", func(r chi.Router) {
			r.Get("/", s.handleListCameras)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCamera)
				r.Post("/refresh", s.handleRefreshCamera)

				r.Route("/overlays", func(r chi.Router) {
					r.Get("/", s.handleListOverlays)
					r.Patch("/{overlayID}", s.handleSetOverlay)
					r.Get("/{overlayID}/descriptors", s.handleOverlayDescriptors)
				})
			})
		})

		// Template endpoints
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTemplate)
				r.Put("/", s.handleUpdateTemplate)
				r.Delete("/", s.handleDeleteTemplate)
			})
		})

		// WebSocket for render and state events
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"loops":   s.overlays.LoopCount(),
	})
}
