// Package storage opens the bbolt database shared by the campaign store,
// editor drafts and the generation quota.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Open opens the database at path, creating the parent directory if needed
func Open(path string) (*bolt.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}

// EnsureBuckets creates the named buckets if they do not exist yet
func EnsureBuckets(db *bolt.DB, buckets ...[]byte) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// FileSize returns the size of the database file in bytes, or 0 if unknown
func FileSize(db *bolt.DB) int64 {
	info, err := os.Stat(db.Path())
	if err != nil {
		return 0
	}
	return info.Size()
}
