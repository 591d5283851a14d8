package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/emailchamp/internal/template"
)

// TemplateRequest is the request body for creating or updating a template
type TemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	HTML        string `json:"html"`
}

// TemplateResponse is a stored template with its placeholder report
type TemplateResponse struct {
	*template.Template
	Report template.Report `json:"report"`
}

// TemplateListResponse is the response for GET /templates
type TemplateListResponse struct {
	Templates []*template.Template `json:"templates"`
	Total     int                  `json:"total"`
}

// handleListTemplates handles GET /api/v1/templates
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := template.ListFilter{Search: q.Get("search")}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}

	list, err := s.templates.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list templates", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}
	s.sendJSON(w, http.StatusOK, TemplateListResponse{Templates: list, Total: len(list)})
}

// handleCreateTemplate handles POST /api/v1/templates
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl := &template.Template{Name: req.Name, Description: req.Description, HTML: req.HTML}
	if err := s.templates.Create(r.Context(), tmpl); err != nil {
		s.sendTemplateError(w, err)
		return
	}

	s.logger.Info("template created", "id", tmpl.ID, "name", tmpl.Name)
	s.sendJSON(w, http.StatusCreated, TemplateResponse{Template: tmpl, Report: template.Inspect(tmpl.HTML)})
}

// handleInspectTemplate handles POST /api/v1/templates/inspect
func (s *Server) handleInspectTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, template.Inspect(req.HTML))
}

// handleGetTemplate handles GET /api/v1/templates/{id}
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendTemplateError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, TemplateResponse{Template: tmpl, Report: template.Inspect(tmpl.HTML)})
}

// handleUpdateTemplate handles PUT /api/v1/templates/{id}
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl := &template.Template{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
		HTML:        req.HTML,
	}
	if err := s.templates.Update(r.Context(), tmpl); err != nil {
		s.sendTemplateError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, TemplateResponse{Template: tmpl, Report: template.Inspect(tmpl.HTML)})
}

// handleDeleteTemplate handles DELETE /api/v1/templates/{id}
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.sendTemplateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sendTemplateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, template.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "Template not found")
	case errors.Is(err, template.ErrDuplicateName):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, template.ErrInvalid):
		s.sendError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("template storage failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Template storage failed")
	}
}
