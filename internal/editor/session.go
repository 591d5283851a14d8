package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/foxzi/emailchamp/internal/autosave"
	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/metrics"
)

// ErrCampaignNotFound is returned when opening an editor on an unknown campaign
var ErrCampaignNotFound = errors.New("campaign not found")

// CampaignStore is the subset of the campaign store a session needs
type CampaignStore interface {
	Get(ctx context.Context, id string) *campaign.Campaign
	Save(ctx context.Context, c *campaign.Campaign)
}

// SessionOptions tunes autosave behaviour
type SessionOptions struct {
	Delay     time.Duration
	Scheduler autosave.Scheduler
	Logger    *slog.Logger
}

// Session binds an Editor to one campaign. Edits are autosaved as drafts;
// Save writes the rendered HTML back to the campaign.
type Session struct {
	*Editor

	id       string
	store    CampaignStore
	drafts   *DraftStore
	autosave *autosave.Debouncer
	logger   *slog.Logger

	mu        sync.Mutex
	campaign  *campaign.Campaign
	closeOnce sync.Once
}

// Open starts an editing session for campaign id. The stored draft is
// preferred; without one the campaign HTML is parsed.
func Open(ctx context.Context, store CampaignStore, drafts *DraftStore, id string, opts SessionOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("campaign_id", id)

	c := store.Get(ctx, id)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}

	components, ok, err := drafts.Load(ctx, id)
	if err != nil {
		logger.Warn("ignoring unreadable draft", "error", err)
		ok = false
	}
	if !ok {
		components = Deserialize(c.Content)
	}

	s := &Session{
		Editor:   New(components...),
		id:       id,
		store:    store,
		drafts:   drafts,
		logger:   logger,
		campaign: c,
	}

	debounceOpts := []autosave.Option{autosave.WithDelay(opts.Delay)}
	if opts.Scheduler != nil {
		debounceOpts = append(debounceOpts, autosave.WithScheduler(opts.Scheduler))
	}
	s.autosave = autosave.New(s.saveDraft, logger, debounceOpts...)

	metrics.EditorSessionOpened()
	logger.Info("editor session opened", "components", len(components), "from_draft", ok)
	return s, nil
}

// ID returns the campaign id being edited
func (s *Session) ID() string {
	return s.id
}

// Campaign returns a copy of the campaign as last loaded or saved
func (s *Session) Campaign() *campaign.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaign.Clone()
}

// Insert adds a component and schedules an autosave
func (s *Session) Insert(props Props, at int) (Component, error) {
	c, err := s.Editor.Insert(props, at)
	if err != nil {
		return c, err
	}
	s.autosave.Touch()
	return c, nil
}

// Update edits a component and schedules an autosave
func (s *Session) Update(id string, fields map[string]any) error {
	if err := s.Editor.Update(id, fields); err != nil {
		return err
	}
	s.autosave.Touch()
	return nil
}

// Delete removes a component and schedules an autosave
func (s *Session) Delete(id string) {
	s.Editor.Delete(id)
	s.autosave.Touch()
}

// LastSaved returns the time of the most recent draft write
func (s *Session) LastSaved() time.Time {
	return s.autosave.LastSaved()
}

// Chrome returns the header and footer values taken from the campaign
func (s *Session) Chrome() Chrome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChromeFor(s.campaign)
}

// HTML renders the current components inside the campaign chrome
func (s *Session) HTML() (string, error) {
	return s.Serialize(s.Chrome())
}

// Save flushes the draft and writes the rendered document to the campaign
func (s *Session) Save(ctx context.Context) error {
	if err := s.autosave.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	content, err := s.HTML()
	if err != nil {
		return err
	}

	s.mu.Lock()
	updated := s.campaign.Clone()
	updated.Content = content
	s.campaign = updated
	s.mu.Unlock()

	s.store.Save(ctx, updated)
	s.logger.Info("campaign content saved", "components", s.Len())
	return nil
}

// Close stops autosave. Unsaved edits remain only in the last draft.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.autosave.Stop()
		metrics.EditorSessionClosed()
		s.logger.Info("editor session closed")
	})
}

func (s *Session) saveDraft(ctx context.Context) error {
	return s.drafts.Save(ctx, s.id, s.Components())
}

// ChromeFor builds the document chrome from a campaign's business fields
func ChromeFor(c *campaign.Campaign) Chrome {
	return Chrome{
		Title:         c.Subject,
		BusinessName:  c.BusinessName,
		LogoURL:       c.LogoURL,
		BackgroundURL: c.BackgroundURL,
		Address:       c.Address,
		Phone:         c.Phone,
	}
}
