package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/generator"
	"github.com/foxzi/emailchamp/internal/quota"
	"github.com/foxzi/emailchamp/internal/template"
)

// GenerateEmailRequest is the request body for POST /generate/email
type GenerateEmailRequest struct {
	generator.BusinessInfo
	// Template overrides the canonical layout
	Template string `json:"template,omitempty"`
	// TemplateID selects a stored custom layout
	TemplateID string `json:"templateId,omitempty"`
}

// GenerateEmailResponse is the response for POST /generate/email
type GenerateEmailResponse struct {
	HTML string `json:"html"`
}

// GenerateSequenceResponse is the response for POST /generate/sequence
type GenerateSequenceResponse struct {
	Campaigns []CampaignView `json:"campaigns"`
}

// handleGenerateEmail handles POST /api/v1/generate/email
func (s *Server) handleGenerateEmail(w http.ResponseWriter, r *http.Request) {
	if !s.requireGenerator(w) {
		return
	}

	var req GenerateEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl := req.Template
	if tmpl == "" && req.TemplateID != "" {
		if s.templates == nil {
			s.sendError(w, http.StatusBadRequest, "custom templates are not enabled")
			return
		}
		resolved, err := s.templates.Resolve(r.Context(), req.TemplateID)
		if err != nil {
			if errors.Is(err, template.ErrNotFound) {
				s.sendError(w, http.StatusNotFound, "Template not found")
				return
			}
			s.sendError(w, http.StatusInternalServerError, "Failed to load template")
			return
		}
		tmpl = resolved
	}

	html, err := s.generator.GenerateEmail(r.Context(), req.BusinessInfo, tmpl)
	if err != nil {
		s.sendGenerationError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, GenerateEmailResponse{HTML: html})
}

// handleGenerateSequence handles POST /api/v1/generate/sequence. The
// generated campaigns are stored before they are returned.
func (s *Server) handleGenerateSequence(w http.ResponseWriter, r *http.Request) {
	if !s.requireGenerator(w) {
		return
	}

	var info generator.CampaignInfo
	if err := decodeJSON(r, &info); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := info.Validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	campaigns, err := s.generator.GenerateSequence(r.Context(), info)
	if err != nil {
		s.sendGenerationError(w, err)
		return
	}
	if err := s.manager.SaveSequence(r.Context(), campaigns); err != nil {
		s.logger.Error("generated sequence failed validation", "error", err)
		s.sendError(w, http.StatusBadGateway, generator.ErrSequenceGeneration.Error())
		return
	}

	s.sendJSON(w, http.StatusCreated, GenerateSequenceResponse{Campaigns: viewsOf(campaigns)})
}

// requireGenerator writes 503 when no language model is configured
func (s *Server) requireGenerator(w http.ResponseWriter) bool {
	if s.generator == nil {
		s.sendError(w, http.StatusServiceUnavailable, "content generation is not configured")
		return false
	}
	return true
}

// sendGenerationError maps generator failures to HTTP statuses. Callers
// only ever see the generic message; the cause is logged.
func (s *Server) sendGenerationError(w http.ResponseWriter, err error) {
	var exceeded *quota.ExceededError
	switch {
	case errors.As(err, &exceeded):
		if secs := int(exceeded.RetryAfter.Seconds()); secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		s.sendError(w, http.StatusTooManyRequests, exceeded.Error())
	case errors.Is(err, generator.ErrSequenceGeneration):
		s.logger.Error("sequence generation failed", "error", err)
		s.sendError(w, http.StatusBadGateway, generator.ErrSequenceGeneration.Error())
	case errors.Is(err, generator.ErrEmailGeneration):
		s.logger.Error("email generation failed", "error", err)
		s.sendError(w, http.StatusBadGateway, generator.ErrEmailGeneration.Error())
	default:
		s.logger.Error("generation failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "generation failed")
	}
}

func viewsOf(list []*campaign.Campaign) []CampaignView {
	views := make([]CampaignView, 0, len(list))
	for _, c := range list {
		views = append(views, viewOf(c))
	}
	return views
}
