package generator

import (
	"fmt"

	"github.com/osteele/liquid"
)

const emailPromptSource = `Generate an email in the exact format, structure and code on the template provided below:

{{ template }}

Please ensure the email matches EXACTLY the HTML structure and visual design of the template above. The email should appear as visually identical to the template as possible.Create only the email dont write comments before or after that.

Here's all the information to use:

{{ description }}

Additional details (if provided):
{% if address != "" %}Address: {{ address }}{% endif %}
{% if phone != "" %}Phone: {{ phone }}{% endif %}
{% if background_url != "" %}Background Image: {{ background_url }}{% endif %}
{% if logo_url != "" %}Logo URL: {{ logo_url }}{% endif %}

Important:
- Maintain the exact HTML structure
- Keep all CSS styles unchanged
- Extract and use any URLs mentioned in the description for images
- Create a matching footer like mailchimp
- Use all provided information to create a comprehensive email`

const sequencePromptSource = `Create an email campaign sequence with {{ email_count }} emails for:

Business: {{ business_name }}
Industry: {{ industry }}
Product/Service: {{ product_description }}
Target Audience: {{ target_audience }}
Campaign Goal: {{ campaign_goal }}

For each email, provide:
1. Subject line (compelling and specific)
2. Purpose (clear objective of this email)
3. Reasoning (why this email is important in the sequence)
4. Send day (numbered from 1)
5. Delay after previous email (in days)
6. Preferred send time (e.g., "10:00 AM", "2:00 PM")
7. Email content (professional, engaging, and formatted)

Format as JSON array with objects:
{
  id: "unique-string",
  subject: "string",
  purpose: "string",
  reasoning: "string",
  sendDay: number,
  delay: number,
  preferredTime: "string",
  content: "string"
}

Make each email unique and focused on a specific aspect of the campaign goal.`

// prompts holds the parsed prompt templates
type prompts struct {
	email    *liquid.Template
	sequence *liquid.Template
}

func newPrompts() (*prompts, error) {
	engine := liquid.NewEngine()

	email, err := engine.ParseString(emailPromptSource)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email prompt: %w", err)
	}
	sequence, err := engine.ParseString(sequencePromptSource)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sequence prompt: %w", err)
	}
	return &prompts{email: email, sequence: sequence}, nil
}

// Email renders the single-email prompt. The template is passed as a
// binding so its placeholders reach the model untouched.
func (p *prompts) Email(info BusinessInfo, tmpl string) (string, error) {
	out, err := p.email.RenderString(map[string]any{
		"template":       tmpl,
		"description":    info.Description,
		"address":        info.Address,
		"phone":          info.Phone,
		"background_url": info.BackgroundURL,
		"logo_url":       info.LogoURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render email prompt: %w", err)
	}
	return out, nil
}

// Sequence renders the campaign sequence prompt
func (p *prompts) Sequence(info CampaignInfo) (string, error) {
	out, err := p.sequence.RenderString(map[string]any{
		"email_count":         info.EmailCount,
		"business_name":       info.BusinessName,
		"industry":            info.Industry,
		"product_description": info.ProductDescription,
		"target_audience":     info.TargetAudience,
		"campaign_goal":       info.CampaignGoal,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render sequence prompt: %w", err)
	}
	return out, nil
}
