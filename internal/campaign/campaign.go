// Package campaign holds the campaign record and its persistent store.
package campaign

import (
	"fmt"
	"strings"
)

// Type classifies the intent of a campaign email
type Type string

const (
	TypeWelcome       Type = "welcome"
	TypePromotional   Type = "promotional"
	TypeEducational   Type = "educational"
	TypeNewsletter    Type = "newsletter"
	TypeSeasonal      Type = "seasonal"
	TypeReengagement  Type = "reengagement"
	TypeTransactional Type = "transactional"
	TypeInformational Type = "informational"
)

// Types lists every campaign type in display order
var Types = []Type{
	TypeWelcome,
	TypePromotional,
	TypeEducational,
	TypeNewsletter,
	TypeSeasonal,
	TypeReengagement,
	TypeTransactional,
	TypeInformational,
}

// Valid reports whether t is one of the known campaign types
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Campaign is one email of a campaign sequence.
// Content is always a complete standalone HTML document.
type Campaign struct {
	ID            string `json:"id"`
	Subject       string `json:"subject"`
	Purpose       string `json:"purpose"`
	Reasoning     string `json:"reasoning"`
	SendDay       int    `json:"sendDay"`
	Delay         int    `json:"delay"`
	PreferredTime string `json:"preferredTime"`
	Content       string `json:"content"`

	BusinessName       string `json:"businessName,omitempty"`
	Industry           string `json:"industry,omitempty"`
	ProductDescription string `json:"productDescription,omitempty"`
	TargetAudience     string `json:"targetAudience,omitempty"`
	CampaignType       Type   `json:"campaignType,omitempty"`

	// Header/footer chrome used when the block editor re-renders the email
	LogoURL       string `json:"logoUrl,omitempty"`
	BackgroundURL string `json:"backgroundUrl,omitempty"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// Validate checks field constraints
func (c *Campaign) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if c.SendDay < 1 {
		return fmt.Errorf("sendDay must be at least 1, got %d", c.SendDay)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %d", c.Delay)
	}
	if c.CampaignType != "" && !c.CampaignType.Valid() {
		return fmt.Errorf("unknown campaignType %q", c.CampaignType)
	}
	return nil
}

// Clone returns a copy of the campaign
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// classifyRules are checked in order against subject and content
var classifyRules = []struct {
	keyword string
	typ     Type
}{
	{"welcome", TypeWelcome},
	{"season", TypeSeasonal},
	{"learn", TypeEducational},
	{"offer", TypePromotional},
	{"update", TypeNewsletter},
}

// Classify returns the campaign's explicit type, or guesses one from
// keywords in the subject and content when none was recorded.
func Classify(c *Campaign) Type {
	if c.CampaignType != "" {
		return c.CampaignType
	}

	subject := strings.ToLower(c.Subject)
	content := strings.ToLower(c.Content)
	for _, rule := range classifyRules {
		if strings.Contains(subject, rule.keyword) || strings.Contains(content, rule.keyword) {
			return rule.typ
		}
	}
	return TypeInformational
}

// Stats summarizes the stored campaigns
type Stats struct {
	Total  int          `json:"total"`
	ByType map[Type]int `json:"by_type"`
}

// matches reports whether the campaign matches a manager search term
func matches(c *Campaign, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(c.BusinessName), term) ||
		strings.Contains(strings.ToLower(c.Subject), term)
}
