package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/emailchamp/internal/metrics"
	"github.com/foxzi/emailchamp/internal/storage"
)

var (
	bucketCampaigns = []byte("campaigns")
	keyCampaigns    = []byte("emailchamp_campaigns")
)

// Store keeps every campaign in one JSON array under a single key.
// Each mutation rewrites the whole collection; storage errors are logged
// and never returned to callers.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
}

// NewStore creates the campaign bucket if needed
func NewStore(db *bolt.DB, logger *slog.Logger) (*Store, error) {
	if err := storage.EnsureBuckets(db, bucketCampaigns); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// LoadAll returns every stored campaign. A missing or corrupt collection
// yields an empty slice.
func (s *Store) LoadAll(ctx context.Context) []*Campaign {
	var campaigns []*Campaign

	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		campaigns, err = readCollection(tx)
		return err
	})
	if err != nil {
		s.logger.Error("failed to load campaigns", "error", err)
		return []*Campaign{}
	}
	return campaigns
}

// Get returns the campaign with the given id, or nil
func (s *Store) Get(ctx context.Context, id string) *Campaign {
	for _, c := range s.LoadAll(ctx) {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Search returns campaigns whose business name or subject contains term
func (s *Store) Search(ctx context.Context, term string) []*Campaign {
	all := s.LoadAll(ctx)
	result := make([]*Campaign, 0, len(all))
	for _, c := range all {
		if matches(c, term) {
			result = append(result, c)
		}
	}
	return result
}

// Stats counts campaigns in total and per classified type
func (s *Store) Stats(ctx context.Context) *Stats {
	stats := &Stats{ByType: make(map[Type]int)}
	for _, c := range s.LoadAll(ctx) {
		stats.Total++
		stats.ByType[Classify(c)]++
	}
	return stats
}

// Save upserts the campaign by id. An existing record is replaced in place;
// a new one is appended.
func (s *Store) Save(ctx context.Context, c *Campaign) {
	if c == nil {
		s.logger.Error("refusing to save nil campaign")
		return
	}

	var size int
	err := s.db.Update(func(tx *bolt.Tx) error {
		campaigns := s.readForUpdate(tx)

		replaced := false
		for i, existing := range campaigns {
			if existing.ID == c.ID {
				campaigns[i] = c.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			campaigns = append(campaigns, c.Clone())
		}

		size = len(campaigns)
		return writeCollection(tx, campaigns)
	})
	metrics.ObserveStoreWrite("save", size, err)
	if err != nil {
		s.logger.Error("failed to save campaign", "id", c.ID, "error", err)
		return
	}
	s.logger.Debug("campaign saved", "id", c.ID, "total", size)
}

// Delete removes the campaign with the given id; unknown ids are a no-op
func (s *Store) Delete(ctx context.Context, id string) {
	var size int
	err := s.db.Update(func(tx *bolt.Tx) error {
		campaigns := s.readForUpdate(tx)

		filtered := campaigns[:0]
		for _, c := range campaigns {
			if c.ID != id {
				filtered = append(filtered, c)
			}
		}

		size = len(filtered)
		return writeCollection(tx, filtered)
	})
	metrics.ObserveStoreWrite("delete", size, err)
	if err != nil {
		s.logger.Error("failed to delete campaign", "id", id, "error", err)
		return
	}
	s.logger.Debug("campaign deleted", "id", id, "total", size)
}

// readForUpdate treats an unreadable collection as empty so the next write
// replaces it
func (s *Store) readForUpdate(tx *bolt.Tx) []*Campaign {
	campaigns, err := readCollection(tx)
	if err != nil {
		s.logger.Warn("discarding unreadable campaign collection", "error", err)
		return nil
	}
	return campaigns
}

func readCollection(tx *bolt.Tx) ([]*Campaign, error) {
	bucket := tx.Bucket(bucketCampaigns)
	if bucket == nil {
		return []*Campaign{}, nil
	}
	data := bucket.Get(keyCampaigns)
	if data == nil {
		return []*Campaign{}, nil
	}

	var campaigns []*Campaign
	if err := json.Unmarshal(data, &campaigns); err != nil {
		return nil, fmt.Errorf("failed to decode campaigns: %w", err)
	}
	if campaigns == nil {
		campaigns = []*Campaign{}
	}
	return campaigns, nil
}

func writeCollection(tx *bolt.Tx, campaigns []*Campaign) error {
	if campaigns == nil {
		campaigns = []*Campaign{}
	}
	data, err := json.Marshal(campaigns)
	if err != nil {
		return fmt.Errorf("failed to encode campaigns: %w", err)
	}
	bucket, err := tx.CreateBucketIfNotExists(bucketCampaigns)
	if err != nil {
		return err
	}
	return bucket.Put(keyCampaigns, data)
}
