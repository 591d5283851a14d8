package generator

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultBusinessName  = "Business Name"
	DefaultBackgroundURL = "https://images.unsplash.com/photo-1557683316-973673baf926"
)

// BusinessInfo is the input of single-email generation
type BusinessInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	BackgroundURL string `json:"backgroundUrl"`
	LogoURL       string `json:"logoUrl"`
}

// Resolve fills empty name, address and phone from labelled lines in the
// description, then applies defaults.
func (b BusinessInfo) Resolve() BusinessInfo {
	parsed := ParseDescription(b.Description)
	if b.Name == "" {
		b.Name = parsed.Name
	}
	if b.Address == "" {
		b.Address = parsed.Address
	}
	if b.Phone == "" {
		b.Phone = parsed.Phone
	}
	if b.Name == "" {
		b.Name = DefaultBusinessName
	}
	if b.BackgroundURL == "" {
		b.BackgroundURL = DefaultBackgroundURL
	}
	return b
}

// CampaignInfo is the input of sequence generation
type CampaignInfo struct {
	BusinessName       string `json:"businessName"`
	Industry           string `json:"industry"`
	ProductDescription string `json:"productDescription"`
	TargetAudience     string `json:"targetAudience"`
	CampaignGoal       string `json:"campaignGoal"`
	EmailCount         int    `json:"emailCount"`
}

// Validate checks required fields
func (c CampaignInfo) Validate() error {
	if strings.TrimSpace(c.BusinessName) == "" {
		return fmt.Errorf("businessName is required")
	}
	if strings.TrimSpace(c.CampaignGoal) == "" {
		return fmt.Errorf("campaignGoal is required")
	}
	if c.EmailCount < 1 {
		return fmt.Errorf("emailCount must be at least 1, got %d", c.EmailCount)
	}
	return nil
}

// Prefill is the single-email form state derived from a description
type Prefill struct {
	Description string `json:"description"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

var (
	nameLine    = regexp.MustCompile(`Business Name: (.*?)(?:\n|$)`)
	addressLine = regexp.MustCompile(`Address: (.*?)(?:\n|$)`)
	phoneLine   = regexp.MustCompile(`Phone: (.*?)(?:\n|$)`)
)

// ParseDescription extracts the first "Business Name:", "Address:" and
// "Phone:" lines of desc
func ParseDescription(desc string) Prefill {
	return Prefill{
		Description: desc,
		Name:        firstMatch(nameLine, desc),
		Address:     firstMatch(addressLine, desc),
		Phone:       firstMatch(phoneLine, desc),
	}
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
