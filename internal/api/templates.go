package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-osd/internal/overlay"
)

// handleListTemplates returns every template, sorted by name for stable
// UI listings.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.overlays.Templates(r.Context())
	if err != nil {
		s.logger.Error("listing templates failed", "error", err)
		writeInternalError(w, "failed to list templates")
		return
	}

	list := make([]overlay.Template, 0, len(templates))
	for _, t := range templates {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"templates": list,
		"count":     len(list),
	})
}

// handleCreateTemplate creates a template. The id is always generated
// server-side.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t overlay.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	t.ID = ""

	saved, err := s.overlays.SaveTemplate(r.Context(), t)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// handleGetTemplate returns one template.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.overlays.GetTemplate(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTemplate replaces a template. The path id wins over any id
// in the body.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	// Updating a template that does not exist is a 404, not an upsert.
	if _, err := s.overlays.GetTemplate(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}

	var t overlay.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	t.ID = id

	saved, err := s.overlays.SaveTemplate(ctx, t)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

// handleDeleteTemplate removes a template. Overlays referencing it are
// orphaned and simply stop rendering.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.overlays.DeleteTemplate(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"template_id": id,
		"status":      "deleted",
	})
}
