// Package manager coordinates the campaign list with the preview and the
// editor session of the single local user.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/editor"
)

// ErrNotFound is returned for an unknown campaign id
var ErrNotFound = errors.New("campaign not found")

// ErrNoSession is returned when no editor session is open
var ErrNoSession = errors.New("no editor session open")

// Manager owns at most one preview and one editor session at a time
type Manager struct {
	store       *campaign.Store
	drafts      *editor.DraftStore
	sessionOpts editor.SessionOptions
	logger      *slog.Logger

	mu        sync.Mutex
	previewID string
	session   *editor.Session
}

// New creates a manager
func New(store *campaign.Store, drafts *editor.DraftStore, sessionOpts editor.SessionOptions, logger *slog.Logger) *Manager {
	if sessionOpts.Logger == nil {
		sessionOpts.Logger = logger
	}
	return &Manager{
		store:       store,
		drafts:      drafts,
		sessionOpts: sessionOpts,
		logger:      logger,
	}
}

// List returns campaigns matching search, in stored order
func (m *Manager) List(ctx context.Context, search string) []*campaign.Campaign {
	return m.store.Search(ctx, search)
}

// Stats returns the collection summary
func (m *Manager) Stats(ctx context.Context) *campaign.Stats {
	return m.store.Stats(ctx)
}

// Get returns one campaign
func (m *Manager) Get(ctx context.Context, id string) (*campaign.Campaign, error) {
	c := m.store.Get(ctx, id)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Save validates and upserts a campaign
func (m *Manager) Save(ctx context.Context, c *campaign.Campaign) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.replace(ctx, c)
	return nil
}

// replace stores c. An editor open on it is closed so its cached campaign
// cannot be written back, and a draft is dropped once the content it was
// built from is gone.
func (m *Manager) replace(ctx context.Context, c *campaign.Campaign) {
	prev := m.store.Get(ctx, c.ID)
	m.closeEditorOn(c.ID)

	m.store.Save(ctx, c)
	if prev != nil && prev.Content == c.Content {
		return
	}
	if err := m.drafts.Delete(ctx, c.ID); err != nil {
		m.logger.Warn("failed to delete stale draft", "id", c.ID, "error", err)
	}
}

// closeEditorOn closes the editor session if it edits campaign id
func (m *Manager) closeEditorOn(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.ID() == id {
		m.session.Close()
		m.session = nil
		m.logger.Info("editor session closed, campaign replaced", "id", id)
	}
}

// SaveSequence stores every generated campaign of a sequence
func (m *Manager) SaveSequence(ctx context.Context, campaigns []*campaign.Campaign) error {
	for _, c := range campaigns {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("campaign %s: %w", c.ID, err)
		}
	}
	for _, c := range campaigns {
		m.replace(ctx, c)
	}
	m.logger.Info("sequence saved", "emails", len(campaigns))
	return nil
}

// Preview opens the preview on campaign id
func (m *Manager) Preview(ctx context.Context, id string) (*campaign.Campaign, error) {
	c, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.previewID = id
	m.mu.Unlock()
	return c, nil
}

// ClosePreview closes the preview if one is open
func (m *Manager) ClosePreview() {
	m.mu.Lock()
	m.previewID = ""
	m.mu.Unlock()
}

// Previewing returns the campaign shown in the preview, or nil
func (m *Manager) Previewing(ctx context.Context) *campaign.Campaign {
	m.mu.Lock()
	id := m.previewID
	m.mu.Unlock()

	if id == "" {
		return nil
	}
	return m.store.Get(ctx, id)
}

// Delete removes a campaign with its draft and closes any preview or
// editor session showing it
func (m *Manager) Delete(ctx context.Context, id string) {
	m.mu.Lock()
	if m.previewID == id {
		m.previewID = ""
	}
	m.mu.Unlock()
	m.closeEditorOn(id)

	m.store.Delete(ctx, id)
	if err := m.drafts.Delete(ctx, id); err != nil {
		m.logger.Warn("failed to delete draft", "id", id, "error", err)
	}
	m.logger.Info("campaign deleted", "id", id)
}

// Edit opens an editor session on campaign id, closing any previous one
func (m *Manager) Edit(ctx context.Context, id string) (*editor.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		if m.session.ID() == id {
			return m.session, nil
		}
		m.session.Close()
		m.session = nil
	}

	s, err := editor.Open(ctx, m.store, m.drafts, id, m.sessionOpts)
	if err != nil {
		if errors.Is(err, editor.ErrCampaignNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	m.session = s
	return s, nil
}

// Session returns the open editor session
func (m *Manager) Session() (*editor.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrNoSession
	}
	return m.session, nil
}

// CloseEditor closes the open editor session, if any
func (m *Manager) CloseEditor() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
}

// Close releases the editor session
func (m *Manager) Close() {
	m.CloseEditor()
}
