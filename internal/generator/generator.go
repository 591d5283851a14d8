// Package generator turns business and campaign details into email HTML
// through an LLM.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/llm"
	"github.com/foxzi/emailchamp/internal/metrics"
	"github.com/foxzi/emailchamp/internal/quota"
)

var (
	ErrEmailGeneration    = errors.New("failed to generate email content")
	ErrSequenceGeneration = errors.New("failed to generate campaign sequence")
	ErrInvalidResponse    = errors.New("invalid response format")
)

const (
	KindEmail    = "email"
	KindSequence = "sequence"

	emailMaxTokens    = 3000
	sequenceMaxTokens = 2500
	temperature       = 0.7
	documentMarker    = "<!DOCTYPE html>"
)

var jsonArray = regexp.MustCompile(`\[[\s\S]*\]`)

// Limiter gates generation calls
type Limiter interface {
	Allow(ctx context.Context, req quota.Request) error
}

// Generator builds prompts, calls the model and post-processes replies
type Generator struct {
	completer llm.Completer
	limiter   Limiter
	prompts   *prompts
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Generator
type Option func(*Generator)

// WithLimiter enforces a generation quota
func WithLimiter(l Limiter) Option {
	return func(g *Generator) {
		g.limiter = l
	}
}

// WithClock overrides the clock used for the copyright year
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a generator backed by completer
func New(completer llm.Completer, logger *slog.Logger, opts ...Option) (*Generator, error) {
	p, err := newPrompts()
	if err != nil {
		return nil, err
	}

	g := &Generator{
		completer: completer,
		prompts:   p,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateEmail produces a complete HTML email for info. A reply without a
// document declaration is treated as the body fragment and wrapped in tmpl;
// a full document has its own placeholders filled, except the body.
func (g *Generator) GenerateEmail(ctx context.Context, info BusinessInfo, tmpl string) (string, error) {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	info = info.Resolve()
	if strings.TrimSpace(info.Description) == "" {
		return "", fmt.Errorf("%w: description is required", ErrEmailGeneration)
	}

	if err := g.allow(ctx, KindEmail); err != nil {
		return "", err
	}

	prompt, err := g.prompts.Email(info, tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEmailGeneration, err)
	}

	reply, err := g.complete(ctx, KindEmail, prompt, emailMaxTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEmailGeneration, err)
	}

	values := Values{
		BackgroundURL: info.BackgroundURL,
		LogoURL:       info.LogoURL,
		Name:          info.Name,
		Address:       info.Address,
		Phone:         info.Phone,
		Year:          g.now().Year(),
	}

	if !strings.Contains(reply, documentMarker) {
		values.WelcomeMessage = reply
		return Substitute(tmpl, values), nil
	}
	return substituteChrome(reply, values), nil
}

// sequenceEmail is one entry of the model's JSON array
type sequenceEmail struct {
	ID            string `json:"id"`
	Subject       string `json:"subject"`
	Purpose       string `json:"purpose"`
	Reasoning     string `json:"reasoning"`
	SendDay       int    `json:"sendDay"`
	Delay         int    `json:"delay"`
	PreferredTime string `json:"preferredTime"`
	Content       string `json:"content"`
}

// GenerateSequence asks for info.EmailCount emails and returns them as
// campaigns with their bodies wrapped in the default template. Either every
// email is returned or none.
func (g *Generator) GenerateSequence(ctx context.Context, info CampaignInfo) ([]*campaign.Campaign, error) {
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSequenceGeneration, err)
	}

	if err := g.allow(ctx, KindSequence); err != nil {
		return nil, err
	}

	prompt, err := g.prompts.Sequence(info)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSequenceGeneration, err)
	}

	reply, err := g.complete(ctx, KindSequence, prompt, sequenceMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSequenceGeneration, err)
	}

	emails, err := parseSequence(reply)
	if err != nil {
		g.logger.Warn("unusable sequence reply", "error", err, "reply_len", len(reply))
		return nil, fmt.Errorf("%w: %w", ErrSequenceGeneration, err)
	}

	year := g.now().Year()
	campaigns := make([]*campaign.Campaign, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for i, e := range emails {
		id := strings.TrimSpace(e.ID)
		if id == "" || seen[id] {
			id = g.newID()
		}
		seen[id] = true

		c := &campaign.Campaign{
			ID:            id,
			Subject:       e.Subject,
			Purpose:       e.Purpose,
			Reasoning:     e.Reasoning,
			SendDay:       e.SendDay,
			Delay:         e.Delay,
			PreferredTime: e.PreferredTime,
			Content: Substitute(DefaultTemplate, Values{
				BackgroundURL:  DefaultBackgroundURL,
				Name:           info.BusinessName,
				WelcomeMessage: e.Content,
				Year:           year,
			}),
			BackgroundURL: DefaultBackgroundURL,
		}
		applyCampaignInfo(c, info)

		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w: email %d: %w", ErrSequenceGeneration, ErrInvalidResponse, i+1, err)
		}
		campaigns = append(campaigns, c)
	}

	g.logger.Info("campaign sequence generated", "business", info.BusinessName, "emails", len(campaigns))
	return campaigns, nil
}

// Regenerate replaces the generated fields of c with a fresh single-email
// sequence. The id and any fields the model does not produce are kept.
func (g *Generator) Regenerate(ctx context.Context, info CampaignInfo, c *campaign.Campaign) (*campaign.Campaign, error) {
	info.EmailCount = 1
	fresh, err := g.GenerateSequence(ctx, info)
	if err != nil {
		return nil, err
	}

	next := fresh[0]
	updated := c.Clone()
	updated.Subject = next.Subject
	updated.Purpose = next.Purpose
	updated.Reasoning = next.Reasoning
	updated.SendDay = next.SendDay
	updated.Delay = next.Delay
	updated.PreferredTime = next.PreferredTime
	updated.Content = next.Content
	updated.BackgroundURL = next.BackgroundURL
	applyCampaignInfo(updated, info)
	return updated, nil
}

// HandoffDescription builds the free-text description used to open the
// single-email generator for one email of a sequence
func HandoffDescription(info CampaignInfo, c *campaign.Campaign) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business Name: %s\n", info.BusinessName)
	if info.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n\n", info.Industry)
	}
	if info.ProductDescription != "" {
		fmt.Fprintf(&b, "Business Description:\n%s\n\n", info.ProductDescription)
	}
	if info.TargetAudience != "" {
		fmt.Fprintf(&b, "Target Audience:\n%s\n\n", info.TargetAudience)
	}
	fmt.Fprintf(&b, "Campaign Goal:\n%s\n\n", info.CampaignGoal)
	fmt.Fprintf(&b, "Email Purpose:\n%s\n\n", c.Purpose)
	fmt.Fprintf(&b, "Email Content:\n%s", c.Content)
	return b.String()
}

// InfoFromCampaign recovers the campaign details denormalized onto c
func InfoFromCampaign(c *campaign.Campaign, goal string) CampaignInfo {
	return CampaignInfo{
		BusinessName:       c.BusinessName,
		Industry:           c.Industry,
		ProductDescription: c.ProductDescription,
		TargetAudience:     c.TargetAudience,
		CampaignGoal:       goal,
		EmailCount:         1,
	}
}

func applyCampaignInfo(c *campaign.Campaign, info CampaignInfo) {
	c.BusinessName = info.BusinessName
	c.Industry = info.Industry
	c.ProductDescription = info.ProductDescription
	c.TargetAudience = info.TargetAudience
}

func parseSequence(reply string) ([]sequenceEmail, error) {
	raw := jsonArray.FindString(reply)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON array in reply", ErrInvalidResponse)
	}

	var emails []sequenceEmail
	if err := json.Unmarshal([]byte(raw), &emails); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrInvalidResponse)
	}
	return emails, nil
}

func (g *Generator) allow(ctx context.Context, kind string) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Allow(ctx, quota.Request{Kind: kind, Client: quota.ClientFrom(ctx)})
}

func (g *Generator) complete(ctx context.Context, kind, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	reply, err := g.completer.Complete(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	metrics.ObserveGeneration(kind, time.Since(start), err)
	if err != nil {
		g.logger.Error("completion failed", "kind", kind, "error", err)
		return "", err
	}
	return reply, nil
}
