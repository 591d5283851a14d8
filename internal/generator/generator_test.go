package generator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/llm"
	"github.com/foxzi/emailchamp/internal/quota"
)

type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

type denyLimiter struct {
	got []quota.Request
}

func (d *denyLimiter) Allow(ctx context.Context, req quota.Request) error {
	d.got = append(d.got, req)
	return &quota.ExceededError{Scope: quota.ScopeGlobal, Key: "all", Window: "hour", RetryAfter: time.Minute}
}

func newTestGenerator(t *testing.T, f *fakeCompleter, opts ...Option) *Generator {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	opts = append([]Option{WithClock(clock)}, opts...)
	g, err := New(f, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	require.NoError(t, err)
	return g
}

func TestSubstituteReplacesEveryOccurrence(t *testing.T) {
	tokens := []string{
		PlaceholderBackgroundURL, PlaceholderLogoURL, PlaceholderName,
		PlaceholderWelcomeMessage, PlaceholderAddress, PlaceholderPhone, PlaceholderYear,
	}
	tmpl := strings.Join(tokens, "|") + "#" + strings.Join(tokens, "|")

	out := Substitute(tmpl, Values{
		BackgroundURL:  "bg.jpg",
		LogoURL:        "logo.png",
		Name:           "Acme",
		WelcomeMessage: "<p>Hi</p>",
		Address:        "1 Main St",
		Phone:          "555",
		Year:           2024,
	})

	assert.NotContains(t, out, "{{")
	assert.Equal(t, "bg.jpg|logo.png|Acme|<p>Hi</p>|1 Main St|555|2024#bg.jpg|logo.png|Acme|<p>Hi</p>|1 Main St|555|2024", out)
}

func TestSubstituteDoesNotRescanValues(t *testing.T) {
	out := Substitute("{{welcomeMessage}} {{name}}", Values{WelcomeMessage: "literal {{name}}", Name: "Acme", Year: 2024})
	assert.Equal(t, "literal {{name}} Acme", out)
}

func TestGenerateEmailWrapsFragment(t *testing.T) {
	f := &fakeCompleter{reply: "<p>Welcome to Acme!</p>"}
	g := newTestGenerator(t, f)

	out, err := g.GenerateEmail(context.Background(), BusinessInfo{
		Name:        "Acme",
		Description: "We sell anvils",
		Address:     "1 Main St",
		Phone:       "555-0100",
	}, "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<p>Acme</p>")
	assert.Contains(t, out, "<p>1 Main St</p>")
	assert.Contains(t, out, "<p>555-0100</p>")
	assert.Contains(t, out, "&copy; 2024 All rights reserved.")
	assert.Contains(t, out, "<p>Welcome to Acme!</p>")
	assert.Contains(t, out, DefaultBackgroundURL)
	assert.NotContains(t, out, "{{")

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, 3000, req.MaxTokens)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Contains(t, req.Prompt, PlaceholderWelcomeMessage, "template reaches the model verbatim")
	assert.Contains(t, req.Prompt, "We sell anvils")
	assert.Contains(t, req.Prompt, "Address: 1 Main St")
	assert.Contains(t, req.Prompt, "Phone: 555-0100")
	assert.NotContains(t, req.Prompt, "Logo URL:")
}

func TestGenerateEmailFullDocumentKeepsBody(t *testing.T) {
	f := &fakeCompleter{reply: "<!DOCTYPE html><html><body><h1>{{name}}</h1>{{welcomeMessage}}<footer>{{year}}</footer></body></html>"}
	g := newTestGenerator(t, f)

	out, err := g.GenerateEmail(context.Background(), BusinessInfo{Description: "Business Name: Zen Yoga\nPhone: 123"}, "")
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Zen Yoga</h1>")
	assert.Contains(t, out, "{{welcomeMessage}}")
	assert.Contains(t, out, "<footer>2024</footer>")
}

func TestGenerateEmailFailure(t *testing.T) {
	f := &fakeCompleter{err: errors.New("connection refused")}
	g := newTestGenerator(t, f)

	_, err := g.GenerateEmail(context.Background(), BusinessInfo{Description: "x"}, "")
	assert.ErrorIs(t, err, ErrEmailGeneration)
	assert.NotErrorIs(t, err, ErrInvalidResponse)

	_, err = g.GenerateEmail(context.Background(), BusinessInfo{}, "")
	assert.ErrorIs(t, err, ErrEmailGeneration)
}

const sequenceReply = `Here is your sequence:
[
  {"id": "email-1", "subject": "Welcome to Acme", "purpose": "Introduce", "reasoning": "First touch", "sendDay": 1, "delay": 0, "preferredTime": "10:00 AM", "content": "<p>Hello!</p>"},
  {"subject": "Our anvils", "purpose": "Educate", "reasoning": "Build trust", "sendDay": 3, "delay": 2, "preferredTime": "2:00 PM", "content": "<p>Anvils 101</p>"},
  {"id": "email-3", "subject": "Special offer", "purpose": "Convert", "reasoning": "Close", "sendDay": 7, "delay": 4, "preferredTime": "9:00 AM", "content": "<p>20% off</p>"}
]
Let me know if you need changes.`

func acmeInfo() CampaignInfo {
	return CampaignInfo{
		BusinessName:       "Acme",
		Industry:           "Hardware",
		ProductDescription: "Anvils",
		TargetAudience:     "Coyotes",
		CampaignGoal:       "Sell anvils",
		EmailCount:         3,
	}
}

func TestGenerateSequence(t *testing.T) {
	f := &fakeCompleter{reply: sequenceReply}
	g := newTestGenerator(t, f)

	campaigns, err := g.GenerateSequence(context.Background(), acmeInfo())
	require.NoError(t, err)
	require.Len(t, campaigns, 3)

	ids := map[string]bool{}
	for i, c := range campaigns {
		assert.NotEmpty(t, c.ID, "email %d", i)
		ids[c.ID] = true
		assert.Equal(t, "Acme", c.BusinessName)
		assert.Equal(t, "Hardware", c.Industry)
		assert.Equal(t, "Anvils", c.ProductDescription)
		assert.Equal(t, "Coyotes", c.TargetAudience)
		assert.True(t, strings.HasPrefix(c.Content, "<!DOCTYPE html>"))
		assert.Contains(t, c.Content, DefaultBackgroundURL)
		assert.Contains(t, c.Content, "<p>Acme</p>")
		assert.NotContains(t, c.Content, "{{")
		assert.NoError(t, c.Validate())
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, "email-1", campaigns[0].ID)
	assert.Contains(t, campaigns[1].Content, "<p>Anvils 101</p>")
	assert.Equal(t, 7, campaigns[2].SendDay)

	require.Len(t, f.requests, 1)
	assert.Equal(t, 2500, f.requests[0].MaxTokens)
	assert.Contains(t, f.requests[0].Prompt, "sequence with 3 emails")
	assert.Contains(t, f.requests[0].Prompt, "Target Audience: Coyotes")
}

func TestGenerateSequenceInvalidResponse(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no array", "Sorry, I cannot help with that."},
		{"broken json", `[{"subject": "x",]`},
		{"empty array", `[]`},
		{"bad send day", `[{"subject": "x", "sendDay": 0, "content": "y"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, &fakeCompleter{reply: tt.reply})
			campaigns, err := g.GenerateSequence(context.Background(), acmeInfo())
			assert.Nil(t, campaigns)
			assert.ErrorIs(t, err, ErrSequenceGeneration)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestGenerateSequenceValidatesInfo(t *testing.T) {
	f := &fakeCompleter{reply: sequenceReply}
	g := newTestGenerator(t, f)

	info := acmeInfo()
	info.EmailCount = 0
	_, err := g.GenerateSequence(context.Background(), info)
	assert.ErrorIs(t, err, ErrSequenceGeneration)
	assert.Empty(t, f.requests)
}

func TestRegenerateKeepsID(t *testing.T) {
	f := &fakeCompleter{reply: `[{"id": "new-id", "subject": "Fresh", "purpose": "p", "reasoning": "r", "sendDay": 2, "delay": 1, "preferredTime": "8:00 AM", "content": "<p>New</p>"}]`}
	g := newTestGenerator(t, f)

	existing := &campaign.Campaign{
		ID:           "keep-me",
		Subject:      "Old",
		SendDay:      5,
		Content:      "<html>old</html>",
		CampaignType: campaign.TypePromotional,
	}

	updated, err := g.Regenerate(context.Background(), acmeInfo(), existing)
	require.NoError(t, err)

	assert.Equal(t, "keep-me", updated.ID)
	assert.Equal(t, "Fresh", updated.Subject)
	assert.Equal(t, 2, updated.SendDay)
	assert.Contains(t, updated.Content, "<p>New</p>")
	assert.Equal(t, campaign.TypePromotional, updated.CampaignType)
	assert.Equal(t, "Acme", updated.BusinessName)
	assert.Equal(t, "Old", existing.Subject, "input is not mutated")
	assert.Contains(t, f.requests[0].Prompt, "sequence with 1 emails")
}

func TestQuotaDenialSkipsModel(t *testing.T) {
	f := &fakeCompleter{reply: "<p>x</p>"}
	limiter := &denyLimiter{}
	g := newTestGenerator(t, f, WithLimiter(limiter))

	ctx := quota.WithClient(context.Background(), "key-1")
	_, err := g.GenerateEmail(ctx, BusinessInfo{Description: "x"}, "")
	assert.ErrorIs(t, err, quota.ErrExceeded)
	assert.NotErrorIs(t, err, ErrEmailGeneration)
	assert.Empty(t, f.requests)

	require.Len(t, limiter.got, 1)
	assert.Equal(t, quota.Request{Kind: KindEmail, Client: "key-1"}, limiter.got[0])
}
