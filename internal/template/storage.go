package template

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/emailchamp/internal/generator"
	"github.com/foxzi/emailchamp/internal/metrics"
)

var (
	bucketTemplates     = []byte("templates")
	bucketTemplateNames = []byte("template_names")
)

// Storage provides template storage operations
type Storage struct {
	db *bolt.DB
}

// NewStorage creates a new template storage
func NewStorage(db *bolt.DB) (*Storage, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTemplates); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketTemplateNames)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create template buckets: %w", err)
	}
	return &Storage{db: db}, nil
}

// Create stores a new template and assigns its id
func (s *Storage) Create(ctx context.Context, tmpl *Template) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}

	var size int
	err := s.db.Update(func(tx *bolt.Tx) error {
		templates := tx.Bucket(bucketTemplates)
		names := tx.Bucket(bucketTemplateNames)

		if names.Get([]byte(tmpl.Name)) != nil {
			return fmt.Errorf("%w: %q", ErrDuplicateName, tmpl.Name)
		}

		tmpl.ID = uuid.New().String()
		tmpl.Version = 1
		tmpl.CreatedAt = time.Now()
		tmpl.UpdatedAt = tmpl.CreatedAt

		data, err := json.Marshal(tmpl)
		if err != nil {
			return fmt.Errorf("failed to marshal template: %w", err)
		}
		size = len(data)

		if err := templates.Put([]byte(tmpl.ID), data); err != nil {
			return err
		}
		return names.Put([]byte(tmpl.Name), []byte(tmpl.ID))
	})
	metrics.ObserveStoreWrite("template_create", size, err)
	return err
}

// Get retrieves a template by ID
func (s *Storage) Get(ctx context.Context, id string) (*Template, error) {
	var tmpl *Template

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTemplates).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		tmpl = &Template{}
		return json.Unmarshal(data, tmpl)
	})
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

// GetByName retrieves a template by name
func (s *Storage) GetByName(ctx context.Context, name string) (*Template, error) {
	var tmpl *Template

	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketTemplateNames).Get([]byte(name))
		if id == nil {
			return ErrNotFound
		}
		data := tx.Bucket(bucketTemplates).Get(id)
		if data == nil {
			return ErrNotFound
		}
		tmpl = &Template{}
		return json.Unmarshal(data, tmpl)
	})
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

// List returns templates matching the filter. Entries that fail to decode
// are skipped.
func (s *Storage) List(ctx context.Context, filter ListFilter) ([]*Template, error) {
	templates := []*Template{}
	search := strings.ToLower(filter.Search)

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTemplates).Cursor()
		skipped := 0

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var tmpl Template
			if err := json.Unmarshal(v, &tmpl); err != nil {
				continue
			}

			if search != "" &&
				!strings.Contains(strings.ToLower(tmpl.Name), search) &&
				!strings.Contains(strings.ToLower(tmpl.Description), search) {
				continue
			}

			if skipped < filter.Offset {
				skipped++
				continue
			}

			templates = append(templates, &tmpl)
			if filter.Limit > 0 && len(templates) >= filter.Limit {
				break
			}
		}
		return nil
	})

	return templates, err
}

// Update replaces an existing template and bumps its version
func (s *Storage) Update(ctx context.Context, tmpl *Template) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}

	var size int
	err := s.db.Update(func(tx *bolt.Tx) error {
		templates := tx.Bucket(bucketTemplates)
		names := tx.Bucket(bucketTemplateNames)

		existingData := templates.Get([]byte(tmpl.ID))
		if existingData == nil {
			return ErrNotFound
		}

		var existing Template
		if err := json.Unmarshal(existingData, &existing); err != nil {
			return err
		}

		if existing.Name != tmpl.Name {
			if names.Get([]byte(tmpl.Name)) != nil {
				return fmt.Errorf("%w: %q", ErrDuplicateName, tmpl.Name)
			}
			if err := names.Delete([]byte(existing.Name)); err != nil {
				return err
			}
			if err := names.Put([]byte(tmpl.Name), []byte(tmpl.ID)); err != nil {
				return err
			}
		}

		tmpl.Version = existing.Version + 1
		tmpl.CreatedAt = existing.CreatedAt
		tmpl.UpdatedAt = time.Now()

		data, err := json.Marshal(tmpl)
		if err != nil {
			return fmt.Errorf("failed to marshal template: %w", err)
		}
		size = len(data)
		return templates.Put([]byte(tmpl.ID), data)
	})
	metrics.ObserveStoreWrite("template_update", size, err)
	return err
}

// Delete removes a template by ID. Deleting a missing template is not an error.
func (s *Storage) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		templates := tx.Bucket(bucketTemplates)
		names := tx.Bucket(bucketTemplateNames)

		data := templates.Get([]byte(id))
		if data == nil {
			return nil
		}

		var tmpl Template
		if err := json.Unmarshal(data, &tmpl); err != nil {
			return err
		}
		if err := names.Delete([]byte(tmpl.Name)); err != nil {
			return err
		}
		return templates.Delete([]byte(id))
	})
	metrics.ObserveStoreWrite("template_delete", 0, err)
	return err
}

// Resolve returns the layout to generate with: the stored template when id
// is set, otherwise the canonical layout.
func (s *Storage) Resolve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return generator.DefaultTemplate, nil
	}
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return tmpl.HTML, nil
}
