package generator

import (
	"strconv"
	"strings"
)

// Placeholders recognized in email templates
const (
	PlaceholderBackgroundURL  = "{{backgroundUrl}}"
	PlaceholderLogoURL        = "{{logoUrl}}"
	PlaceholderName           = "{{name}}"
	PlaceholderWelcomeMessage = "{{welcomeMessage}}"
	PlaceholderAddress        = "{{address}}"
	PlaceholderPhone          = "{{phone}}"
	PlaceholderYear           = "{{year}}"
)

// DefaultTemplate is the canonical single-email layout
const DefaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome Email</title>
    <style>
        body { margin: 0; padding: 0; font-family: Arial, sans-serif; }
        .container { max-width: 600px; margin: 0 auto; }
        .header { background-image: url('{{backgroundUrl}}'); background-size: cover; padding: 40px 20px; text-align: center; }
        .logo { max-width: 150px; height: auto; }
        .content { padding: 40px 20px; background: #ffffff; }
        .footer { background: #f8f9fa; padding: 20px; text-align: center; font-size: 12px; color: #6c757d; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <img src="{{logoUrl}}" alt="{{name}}" class="logo">
        </div>
        <div class="content">
            {{welcomeMessage}}
        </div>
        <div class="footer">
            <p>{{name}}</p>
            <p>{{address}}</p>
            <p>{{phone}}</p>
            <p>&copy; {{year}} All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

// Values fills the template placeholders
type Values struct {
	BackgroundURL  string
	LogoURL        string
	Name           string
	WelcomeMessage string
	Address        string
	Phone          string
	Year           int
}

// Substitute replaces every occurrence of every placeholder. Values are
// inserted verbatim, and inserted text is not scanned for placeholders again.
func Substitute(tmpl string, v Values) string {
	return replacer(v, true).Replace(tmpl)
}

// substituteChrome is Substitute without touching {{welcomeMessage}}
func substituteChrome(tmpl string, v Values) string {
	return replacer(v, false).Replace(tmpl)
}

func replacer(v Values, welcome bool) *strings.Replacer {
	pairs := []string{
		PlaceholderBackgroundURL, v.BackgroundURL,
		PlaceholderLogoURL, v.LogoURL,
		PlaceholderName, v.Name,
		PlaceholderAddress, v.Address,
		PlaceholderPhone, v.Phone,
		PlaceholderYear, strconv.Itoa(v.Year),
	}
	if welcome {
		pairs = append(pairs, PlaceholderWelcomeMessage, v.WelcomeMessage)
	}
	return strings.NewReplacer(pairs...)
}
