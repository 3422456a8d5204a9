package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListDevices returns every device in the registry.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one device by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleListCameras returns every camera device.
func (s *Server) handleListCameras(w http.ResponseWriter, r *http.Request) {
	cameras, err := s.registry.ListCameras(r.Context())
	if err != nil {
		s.logger.Error("listing cameras failed", "error", err)
		writeInternalError(w, "failed to list cameras")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cameras": cameras,
		"count":   len(cameras),
	})
}

// handleGetCamera returns one camera with its decoded overlay configuration.
func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	cam, err := s.registry.GetDevice(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	overlays, err := s.overlays.Overlays(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"camera":   cam,
		"overlays": overlays,
	})
}

// handleRefreshCamera triggers a reconciliation pass for one camera.
func (s *Server) handleRefreshCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.overlays.Refresh(id); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"camera_id": id,
		"status":    "refresh triggered",
	})
}
