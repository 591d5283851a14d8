package editor

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/emailchamp/internal/storage"
)

var bucketDrafts = []byte("drafts")

// DraftStore persists the typed component list of each campaign under
// email_<id>, so reopening an email does not depend on parsing its HTML.
type DraftStore struct {
	db *bolt.DB
}

// NewDraftStore creates the drafts bucket if needed
func NewDraftStore(db *bolt.DB) (*DraftStore, error) {
	if err := storage.EnsureBuckets(db, bucketDrafts); err != nil {
		return nil, err
	}
	return &DraftStore{db: db}, nil
}

// DraftKey returns the storage key for campaign id
func DraftKey(id string) string {
	return "email_" + id
}

// Save writes the component list for campaign id
func (s *DraftStore) Save(ctx context.Context, id string, components []Component) error {
	if components == nil {
		components = []Component{}
	}
	data, err := json.Marshal(components)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDrafts).Put([]byte(DraftKey(id)), data)
	})
}

// Load returns the draft for campaign id. ok is false when none is stored.
func (s *DraftStore) Load(ctx context.Context, id string) (components []Component, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDrafts).Get([]byte(DraftKey(id)))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &components); err != nil {
			return fmt.Errorf("failed to decode draft %s: %w", id, err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return components, ok, nil
}

// Delete removes the draft for campaign id
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDrafts).Delete([]byte(DraftKey(id)))
	})
}
