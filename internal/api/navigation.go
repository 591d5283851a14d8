package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/emailchamp/internal/surface"
)

// PreviewResponse is the response for GET /preview
type PreviewResponse struct {
	Open     bool          `json:"open"`
	Campaign *CampaignView `json:"campaign,omitempty"`
}

// handleSurface handles GET /api/v1/surface?tab=&description=
func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, surface.Resolve(r.URL.Query()))
}

// handleOpenPreview handles POST /api/v1/preview/{id}
func (s *Server) handleOpenPreview(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}
	view := viewOf(c)
	s.sendJSON(w, http.StatusOK, PreviewResponse{Open: true, Campaign: &view})
}

// handleGetPreview handles GET /api/v1/preview
func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	c := s.manager.Previewing(r.Context())
	if c == nil {
		s.sendJSON(w, http.StatusOK, PreviewResponse{})
		return
	}
	view := viewOf(c)
	s.sendJSON(w, http.StatusOK, PreviewResponse{Open: true, Campaign: &view})
}

// handleClosePreview handles DELETE /api/v1/preview
func (s *Server) handleClosePreview(w http.ResponseWriter, r *http.Request) {
	s.manager.ClosePreview()
	w.WriteHeader(http.StatusNoContent)
}
