package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/generator"
	"github.com/foxzi/emailchamp/internal/quota"
)

func TestGenerateEmail(t *testing.T) {
	e := newTestEnv(t, nil, true)
	e.gen.email = "<!DOCTYPE html><html><body>Hi</body></html>"

	rec := e.do(t, http.MethodPost, "/api/v1/generate/email", map[string]any{
		"name":        "Acme",
		"description": "We sell anvils",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, e.gen.email, decode[GenerateEmailResponse](t, rec).HTML)
	assert.Empty(t, e.gen.gotTemplate, "default layout is chosen by the generator")
}

func TestGenerateEmailWithStoredTemplate(t *testing.T) {
	e := newTestEnv(t, nil, true)
	e.gen.email = "<p>ok</p>"

	layout := "<html><body>{{welcomeMessage}}</body></html>"
	rec := e.do(t, http.MethodPost, "/api/v1/templates", TemplateRequest{Name: "bare", HTML: layout})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[TemplateResponse](t, rec)

	rec = e.do(t, http.MethodPost, "/api/v1/generate/email", map[string]any{
		"description": "We sell anvils",
		"templateId":  created.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, layout, e.gen.gotTemplate)

	rec = e.do(t, http.MethodPost, "/api/v1/generate/email", map[string]any{
		"description": "We sell anvils",
		"templateId":  "missing",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateWithoutGenerator(t *testing.T) {
	e := newTestEnv(t, nil, false)
	seed(t, e, "a")

	for _, path := range []string{
		"/api/v1/generate/email",
		"/api/v1/generate/sequence",
		"/api/v1/campaigns/a/regenerate",
	} {
		rec := e.do(t, http.MethodPost, path, map[string]any{})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestGenerateSequenceStoresCampaigns(t *testing.T) {
	e := newTestEnv(t, nil, true)
	for i := 1; i <= 3; i++ {
		e.gen.sequence = append(e.gen.sequence, &campaign.Campaign{
			ID:           fmt.Sprintf("seq-%d", i),
			Subject:      fmt.Sprintf("Email %d", i),
			SendDay:      i,
			Content:      sampleContent,
			BusinessName: "Acme",
		})
	}

	info := generator.CampaignInfo{
		BusinessName: "Acme",
		CampaignGoal: "Onboard new users",
		EmailCount:   3,
	}
	rec := e.do(t, http.MethodPost, "/api/v1/generate/sequence", info)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[GenerateSequenceResponse](t, rec)
	require.Len(t, resp.Campaigns, 3)
	assert.Equal(t, 3, e.gen.gotInfo.EmailCount)

	list := decode[CampaignListResponse](t, e.do(t, http.MethodGet, "/api/v1/campaigns", nil))
	assert.Equal(t, 3, list.Total)
}

func TestGenerateSequenceValidation(t *testing.T) {
	e := newTestEnv(t, nil, true)

	tests := []struct {
		name string
		info generator.CampaignInfo
	}{
		{"missing business", generator.CampaignInfo{CampaignGoal: "g", EmailCount: 1}},
		{"missing goal", generator.CampaignInfo{BusinessName: "Acme", EmailCount: 1}},
		{"zero emails", generator.CampaignInfo{BusinessName: "Acme", CampaignGoal: "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/v1/generate/sequence", tt.info)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGenerateSequenceRejectsInvalidModelOutput(t *testing.T) {
	e := newTestEnv(t, nil, true)
	e.gen.sequence = []*campaign.Campaign{
		{ID: "ok", SendDay: 1},
		{ID: "bad", SendDay: 0},
	}

	rec := e.do(t, http.MethodPost, "/api/v1/generate/sequence", generator.CampaignInfo{
		BusinessName: "Acme", CampaignGoal: "g", EmailCount: 2,
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	list := decode[CampaignListResponse](t, e.do(t, http.MethodGet, "/api/v1/campaigns", nil))
	assert.Zero(t, list.Total, "nothing is stored when any email is invalid")
}

func TestGenerationErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		retryAfter string
	}{
		{
			name:       "quota",
			err:        &quota.ExceededError{Scope: quota.ScopeGlobal, Key: "global", Window: "hour", RetryAfter: 90 * time.Second},
			wantStatus: http.StatusTooManyRequests,
			wantBody:   "quota exceeded",
			retryAfter: "90",
		},
		{
			name:       "upstream",
			err:        fmt.Errorf("%w: %w", generator.ErrEmailGeneration, errors.New("dial tcp: refused")),
			wantStatus: http.StatusBadGateway,
			wantBody:   generator.ErrEmailGeneration.Error(),
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "generation failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, nil, true)
			e.gen.err = tt.err

			rec := e.do(t, http.MethodPost, "/api/v1/generate/email", map[string]any{"description": "x"})
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "dial tcp")
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))
		})
	}
}

func TestRegenerateKeepsID(t *testing.T) {
	e := newTestEnv(t, nil, true)
	seed(t, e, "a")

	rec := e.do(t, http.MethodPost, "/api/v1/campaigns/a/regenerate", RegenerateRequest{CampaignGoal: "Win back users"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[CampaignView](t, rec)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "Fresh subject", got.Subject)
	assert.Equal(t, "Win back users", e.gen.gotInfo.CampaignGoal)

	stored := decode[CampaignView](t, e.do(t, http.MethodGet, "/api/v1/campaigns/a", nil))
	assert.Equal(t, "Fresh subject", stored.Subject)

	rec = e.do(t, http.MethodPost, "/api/v1/campaigns/missing/regenerate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
