// Package template keeps user supplied email layouts that replace the
// canonical template during single-email generation.
package template

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxzi/emailchamp/internal/generator"
)

var (
	// ErrNotFound is returned when no template has the requested id
	ErrNotFound = errors.New("template not found")
	// ErrDuplicateName is returned when another template already uses the name
	ErrDuplicateName = errors.New("template name already exists")
	// ErrInvalid is returned when a template fails validation
	ErrInvalid = errors.New("invalid template")
)

// Template is a named custom email layout
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	HTML        string    `json:"html"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListFilter contains filters for listing templates
type ListFilter struct {
	Limit  int
	Offset int
	Search string
}

// Validate checks that the template can be handed to the generator
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(t.HTML) == "" {
		return fmt.Errorf("%w: html is required", ErrInvalid)
	}
	return nil
}

// knownPlaceholders in the order they are reported
var knownPlaceholders = []string{
	generator.PlaceholderBackgroundURL,
	generator.PlaceholderLogoURL,
	generator.PlaceholderName,
	generator.PlaceholderWelcomeMessage,
	generator.PlaceholderAddress,
	generator.PlaceholderPhone,
	generator.PlaceholderYear,
}

// Report describes which placeholders a layout uses
type Report struct {
	Placeholders []string `json:"placeholders"`
	Missing      []string `json:"missing"`
	// Fillable is true when the layout has a slot for the generated body
	Fillable bool `json:"fillable"`
}

// Inspect reports the placeholders found in html
func Inspect(html string) Report {
	r := Report{Placeholders: []string{}, Missing: []string{}}
	for _, p := range knownPlaceholders {
		if strings.Contains(html, p) {
			r.Placeholders = append(r.Placeholders, p)
		} else {
			r.Missing = append(r.Missing, p)
		}
	}
	r.Fillable = strings.Contains(html, generator.PlaceholderWelcomeMessage)
	return r
}
