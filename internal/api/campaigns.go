package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/generator"
	"github.com/foxzi/emailchamp/internal/manager"
	"github.com/foxzi/emailchamp/internal/surface"
)

// CampaignView is a stored campaign with its resolved type
type CampaignView struct {
	*campaign.Campaign
	Type campaign.Type `json:"type"`
}

// CampaignListResponse is the response for GET /campaigns
type CampaignListResponse struct {
	Campaigns []CampaignView `json:"campaigns"`
	Total     int            `json:"total"`
}

// HandoffResponse is the response for GET /campaigns/{id}/handoff
type HandoffResponse struct {
	Description string `json:"description"`
	URL         string `json:"url"`
}

// RegenerateRequest is the optional body of POST /campaigns/{id}/regenerate
type RegenerateRequest struct {
	CampaignGoal string `json:"campaignGoal"`
}

func viewOf(c *campaign.Campaign) CampaignView {
	return CampaignView{Campaign: c, Type: campaign.Classify(c)}
}

// handleListCampaigns handles GET /api/v1/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	views := viewsOf(s.manager.List(r.Context(), r.URL.Query().Get("search")))
	s.sendJSON(w, http.StatusOK, CampaignListResponse{Campaigns: views, Total: len(views)})
}

// handleCampaignStats handles GET /api/v1/campaigns/stats
func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.manager.Stats(r.Context()))
}

// handleGetCampaign handles GET /api/v1/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCampaign(w, r)
	if !ok {
		return
	}
	s.sendJSON(w, http.StatusOK, viewOf(c))
}

// handleCreateCampaign handles POST /api/v1/campaigns
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var c campaign.Campaign
	if err := decodeJSON(r, &c); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	} else if _, err := s.manager.Get(r.Context(), c.ID); err == nil {
		s.sendError(w, http.StatusConflict, "campaign already exists")
		return
	}

	if err := s.manager.Save(r.Context(), &c); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("campaign created via API", "id", c.ID)
	s.sendJSON(w, http.StatusCreated, viewOf(&c))
}

// handleUpdateCampaign handles PUT /api/v1/campaigns/{id}
func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c campaign.Campaign
	if err := decodeJSON(r, &c); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if c.ID != "" && c.ID != id {
		s.sendError(w, http.StatusBadRequest, "id in body does not match path")
		return
	}
	c.ID = id

	if err := s.manager.Save(r.Context(), &c); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, viewOf(&c))
}

// handleDeleteCampaign handles DELETE /api/v1/campaigns/{id}
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	s.manager.Delete(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleRegenerate handles POST /api/v1/campaigns/{id}/regenerate
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if !s.requireGenerator(w) {
		return
	}
	c, ok := s.lookupCampaign(w, r)
	if !ok {
		return
	}

	var req RegenerateRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.CampaignGoal == "" {
		req.CampaignGoal = c.Purpose
	}

	info := generator.InfoFromCampaign(c, req.CampaignGoal)
	if err := info.Validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.generator.Regenerate(r.Context(), info, c)
	if err != nil {
		s.sendGenerationError(w, err)
		return
	}
	if err := s.manager.Save(r.Context(), updated); err != nil {
		s.logger.Error("regenerated campaign failed validation", "id", c.ID, "error", err)
		s.sendError(w, http.StatusBadGateway, generator.ErrSequenceGeneration.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, viewOf(updated))
}

// handleHandoff handles GET /api/v1/campaigns/{id}/handoff
func (s *Server) handleHandoff(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCampaign(w, r)
	if !ok {
		return
	}

	goal := r.URL.Query().Get("goal")
	if goal == "" {
		goal = c.Purpose
	}
	desc := generator.HandoffDescription(generator.InfoFromCampaign(c, goal), c)
	s.sendJSON(w, http.StatusOK, HandoffResponse{
		Description: desc,
		URL:         surface.HandoffURL(desc),
	})
}

// lookupCampaign loads the {id} campaign or writes a 404
func (s *Server) lookupCampaign(w http.ResponseWriter, r *http.Request) (*campaign.Campaign, bool) {
	c, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, manager.ErrNotFound) {
			s.sendError(w, http.StatusNotFound, "Campaign not found")
		} else {
			s.sendError(w, http.StatusInternalServerError, "Failed to load campaign")
		}
		return nil, false
	}
	return c, true
}
