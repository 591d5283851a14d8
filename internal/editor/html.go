package editor

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Chrome is the header and footer wrapped around the component region
type Chrome struct {
	Title         string
	BusinessName  string
	LogoURL       string
	BackgroundURL string
	Address       string
	Phone         string
	// Year printed in the copyright line; zero means the current year
	Year int
}

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Chrome.Title}}</title>
    <style>
        body { margin: 0; padding: 0; font-family: Arial, sans-serif; }
        .container { max-width: 600px; margin: 0 auto; }
        .header { {{.Background}} background-size: cover; padding: 40px 20px; text-align: center; }
        .logo { max-width: 200px; height: auto; }
        .content { padding: 40px 20px; background: #ffffff; }
        .footer { background: #f8f9fa; padding: 20px; text-align: center; font-size: 12px; color: #6c757d; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            {{- if .Chrome.LogoURL}}
            <img {{.Logo}} alt="{{.Chrome.BusinessName}}" class="logo">
            {{- end}}
        </div>
        <div class="content">
            {{- range .Blocks}}
            {{.}}
            {{- end}}
        </div>
        <div class="footer">
            <p>{{.Chrome.BusinessName}}</p>
            {{- if .Chrome.Address}}
            <p>{{.Chrome.Address}}</p>
            {{- end}}
            {{- if .Chrome.Phone}}
            <p>{{.Chrome.Phone}}</p>
            {{- end}}
            <p>&copy; {{.Year}} All rights reserved.</p>
        </div>
    </div>
</body>
</html>
`

const blockTemplates = `
{{define "heading"}}
{{- if eq .Level "h2"}}<h2>{{.Text}}</h2>
{{- else if eq .Level "h3"}}<h3>{{.Text}}</h3>
{{- else if eq .Level "h4"}}<h4>{{.Text}}</h4>
{{- else if eq .Level "h5"}}<h5>{{.Text}}</h5>
{{- else if eq .Level "h6"}}<h6>{{.Text}}</h6>
{{- else}}<h1>{{.Text}}</h1>
{{- end}}
{{- end}}
{{define "paragraph"}}<div>{{.Markup}}</div>{{end}}
{{define "image"}}<img {{.Src}} alt="{{.Alt}}" style="max-width: 100%; height: auto;">{{end}}
{{define "button"}}<a {{.Href}} style="display: inline-block; background: #4F46E5; color: #ffffff; padding: 12px 24px; border-radius: 4px; text-decoration: none;">{{.Text}}</a>{{end}}
{{define "divider"}}<hr style="border: none; border-top: 1px solid #e5e7eb; margin: 16px 0;">{{end}}
{{define "spacer"}}<div style="height: {{.Height}}px;"></div>{{end}}
{{define "columns"}}<table role="presentation" width="100%"><tr>{{range .Cells}}<td style="padding: 8px; vertical-align: top;"></td>{{end}}</tr></table>{{end}}
`

var (
	documentTmpl = template.Must(template.New("document").Parse(documentTemplate))
	blockTmpl    = template.Must(template.New("blocks").Parse(blockTemplates))
)

type blockView struct {
	Level  string
	Text   string
	Markup template.HTML
	Src    template.HTMLAttr
	Alt    string
	Href   template.HTMLAttr
	Height int
	Cells  []struct{}
}

// Serialize renders components into a standalone HTML document.
// Paragraph text is emitted as markup; every other value is escaped.
func Serialize(components []Component, chrome Chrome) (string, error) {
	blocks := make([]template.HTML, 0, len(components))
	for _, c := range components {
		fragment, err := renderBlock(c)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, fragment)
	}

	year := chrome.Year
	if year == 0 {
		year = time.Now().Year()
	}

	var buf bytes.Buffer
	err := documentTmpl.Execute(&buf, struct {
		Chrome     Chrome
		Logo       template.HTMLAttr
		Background template.CSS
		Blocks     []template.HTML
		Year       int
	}{chrome, rawAttr("src", chrome.LogoURL), backgroundCSS(chrome.BackgroundURL), blocks, year})
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

func renderBlock(c Component) (template.HTML, error) {
	var view blockView
	switch p := c.Props.(type) {
	case *HeadingProps:
		view.Level, view.Text = p.Level, p.Text
	case *ParagraphProps:
		view.Markup = template.HTML(p.Text)
	case *ImageProps:
		view.Src, view.Alt = rawAttr("src", p.Src), p.Alt
	case *ButtonProps:
		view.Text, view.Href = p.Text, rawAttr("href", p.URL)
	case *DividerProps:
	case *SpacerProps:
		view.Height = p.Height
	case *ColumnsProps:
		view.Cells = make([]struct{}, p.Columns)
	default:
		return "", fmt.Errorf("%w: component %s", ErrUnknownKind, c.ID)
	}

	var buf bytes.Buffer
	if err := blockTmpl.ExecuteTemplate(&buf, string(c.Type()), view); err != nil {
		return "", fmt.Errorf("failed to render %s %s: %w", c.Type(), c.ID, err)
	}
	return template.HTML(buf.String()), nil
}

// rawAttr renders name="value" with HTML escaping only. URL filtering
// would rewrite blob: and data: sources and percent-encode the rest, and
// image sources must read back exactly as written.
func rawAttr(name, value string) template.HTMLAttr {
	return template.HTMLAttr(name + `="` + html.EscapeString(value) + `"`)
}

var cssStringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\a `,
	"\r", `\d `,
	"<", `\3c `,
)

// backgroundCSS is the header background declaration, or nothing when
// no image is set
func backgroundCSS(url string) template.CSS {
	if url == "" {
		return ""
	}
	return template.CSS("background-image: url('" + cssStringEscaper.Replace(url) + "');")
}

// Deserialize converts the children of the element with class "content"
// into components: img elements become images, everything else becomes a
// paragraph holding the child's inner markup. A document without a content
// region yields an empty slice.
func Deserialize(doc string) []Component {
	components := []Component{}

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return components
	}
	region := findByClass(root, "content")
	if region == nil {
		return components
	}

	for child := region.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if child.DataAtom == atom.Img {
			components = append(components, Component{
				ID:    uuid.NewString(),
				Props: &ImageProps{Src: attr(child, "src"), Alt: attr(child, "alt")},
			})
			continue
		}
		components = append(components, Component{
			ID:    uuid.NewString(),
			Props: &ParagraphProps{Text: innerHTML(child)},
		})
	}
	return components
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return n
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findByClass(child, class); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return buf.String()
		}
	}
	return strings.TrimSpace(buf.String())
}
