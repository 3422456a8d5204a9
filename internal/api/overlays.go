package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListOverlays returns the decoded overlay configuration for every
// slot the camera reports, in slot order.
func (s *Server) handleListOverlays(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "id")

	overlays, err := s.overlays.Overlays(r.Context(), cameraID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"camera_id": cameraID,
		"overlays":  overlays,
	})
}

// handleSetOverlay validates and writes overlay settings, then returns the
// resulting configuration. The write triggers a reconciliation pass.
func (s *Server) handleSetOverlay(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "id")
	overlayID := chi.URLParam(r, "overlayID")

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(fields) == 0 {
		writeBadRequest(w, "no settings provided")
		return
	}

	ctx := r.Context()
	if err := s.overlays.SetOverlaySettings(ctx, cameraID, overlayID, fields); err != nil {
		writeDomainError(w, err)
		return
	}

	// Return the full decoded slot so the UI reflects applied defaults.
	overlays, err := s.overlays.Overlays(ctx, cameraID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	for _, o := range overlays {
		if o.ID == overlayID {
			writeJSON(w, http.StatusOK, o)
			return
		}
	}
	writeNotFound(w, "overlay not found")
}

// handleOverlayDescriptors returns the settings schema for one overlay.
// The schema narrows to the fields relevant to the overlay's current kind
// and source device.
func (s *Server) handleOverlayDescriptors(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "id")
	overlayID := chi.URLParam(r, "overlayID")

	descriptors, err := s.overlays.Descriptors(r.Context(), cameraID, overlayID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"camera_id":   cameraID,
		"overlay_id":  overlayID,
		"descriptors": descriptors,
	})
}
