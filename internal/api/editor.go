package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/emailchamp/internal/editor"
	"github.com/foxzi/emailchamp/internal/manager"
)

// EditorResponse describes the open editor session
type EditorResponse struct {
	CampaignID string             `json:"campaignId"`
	State      editor.State       `json:"state"`
	Components []editor.Component `json:"components"`
	Selected   string             `json:"selected,omitempty"`
	LastSaved  *time.Time         `json:"lastSaved,omitempty"`
}

// InsertComponentRequest is the request body for POST /editor/components.
// The position is Index when set, else computed from DropY and Boxes,
// else the end of the list.
type InsertComponentRequest struct {
	Type  editor.Kind    `json:"type"`
	Props map[string]any `json:"props,omitempty"`
	Index *int           `json:"index,omitempty"`
	DropY *float64       `json:"dropY,omitempty"`
	Boxes []editor.Box   `json:"boxes,omitempty"`
}

// SelectRequest is the request body for PUT /editor/selection
type SelectRequest struct {
	ID string `json:"id"`
}

// EditorHTMLResponse is the response for GET /editor/html
type EditorHTMLResponse struct {
	HTML string `json:"html"`
}

func editorView(s *editor.Session) EditorResponse {
	resp := EditorResponse{
		CampaignID: s.ID(),
		State:      s.State(),
		Components: s.Components(),
		Selected:   s.Selected(),
	}
	if saved := s.LastSaved(); !saved.IsZero() {
		resp.LastSaved = &saved
	}
	return resp
}

// handleOpenEditor handles POST /api/v1/editor/{id}
func (s *Server) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.Edit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, manager.ErrNotFound) {
			s.sendError(w, http.StatusNotFound, "Campaign not found")
			return
		}
		s.logger.Error("failed to open editor", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to open editor")
		return
	}
	s.sendJSON(w, http.StatusOK, editorView(session))
}

// handleEditorState handles GET /api/v1/editor
func (s *Server) handleEditorState(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession(w)
	if !ok {
		return
	}
	s.sendJSON(w, http.StatusOK, editorView(session))
}

// handleCloseEditor handles DELETE /api/v1/editor
func (s *Server) handleCloseEditor(w http.ResponseWriter, r *http.Request) {
	s.manager.CloseEditor()
	w.WriteHeader(http.StatusNoContent)
}

// handleInsertComponent handles POST /api/v1/editor/components
func (s *Server) handleInsertComponent(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession(w)
	if !ok {
		return
	}

	var req InsertComponentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	props, err := editor.NewProps(req.Type, req.Props)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	at := session.Len()
	switch {
	case req.Index != nil:
		at = *req.Index
	case req.DropY != nil:
		at = editor.DropIndex(*req.DropY, req.Boxes)
	}

	c, err := session.Insert(props, at)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sendJSON(w, http.StatusCreated, c)
}

// handleUpdateComponent handles PATCH /api/v1/editor/components/{cid}
func (s *Server) handleUpdateComponent(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession(w)
	if !ok {
		return
	}

	cid := chi.URLParam(r, "cid")
	if _, found := session.Get(cid); !found {
		s.sendError(w, http.StatusNotFound, "Component not found")
		return
	}

	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := session.Update(cid, fields); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, _ := session.Get(cid)
	s.sendJSON(w, http.StatusOK, c)
}

// handleDeleteComponent handles DELETE /api/v1/editor/components/{cid}
func (s *Server) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession(w)
	if !ok {
		return
	}
	session.Delete(chi.URLParam(r, "cid"))
	w.WriteHeader(http.StatusNoContent)
}

// handleEditorSelect handles PUT /api/v1/editor/selection
func (s *Server) handleEditorSelect(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession(w)
	if !ok {
		return
	}

	var req SelectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	session.Select(req.ID)
	s.sendJSON(w, http.StatusOK, editorView(session))
}

// handleEditorSave handles POST /api/v1/editor/save
func (s *Server) handleEditorSave(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession(w)
	if !ok {
		return
	}
	if err := session.Save(r.Context()); err != nil {
		s.logger.Error("failed to save campaign content", "id", session.ID(), "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to save campaign")
		return
	}
	s.sendJSON(w, http.StatusOK, viewOf(session.Campaign()))
}

// handleEditorHTML handles GET /api/v1/editor/html
func (s *Server) handleEditorHTML(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession(w)
	if !ok {
		return
	}
	html, err := session.HTML()
	if err != nil {
		s.logger.Error("failed to render editor html", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to render email")
		return
	}
	s.sendJSON(w, http.StatusOK, EditorHTMLResponse{HTML: html})
}

// currentSession returns the open session or writes a 409
func (s *Server) currentSession(w http.ResponseWriter) (*editor.Session, bool) {
	session, err := s.manager.Session()
	if err != nil {
		s.sendError(w, http.StatusConflict, err.Error())
		return nil, false
	}
	return session, true
}
