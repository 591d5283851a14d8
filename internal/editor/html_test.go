package editor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countImages(components []Component) []string {
	var srcs []string
	for _, c := range components {
		if img, ok := c.Props.(*ImageProps); ok {
			srcs = append(srcs, img.Src)
		}
	}
	return srcs
}

func TestSerializeDocument(t *testing.T) {
	components := []Component{
		{ID: "1", Props: &HeadingProps{Level: "h2", Text: "Fish & Chips"}},
		{ID: "2", Props: &ParagraphProps{Text: "Hello <strong>friend</strong>"}},
		{ID: "3", Props: &ImageProps{Src: "https://cdn.example.com/a.png", Alt: "A \"quoted\" alt"}},
		{ID: "4", Props: &ButtonProps{Text: "Shop now", URL: "https://example.com/shop"}},
		{ID: "5", Props: &DividerProps{}},
		{ID: "6", Props: &SpacerProps{Height: 32}},
		{ID: "7", Props: &ColumnsProps{Columns: 3}},
	}
	chrome := Chrome{
		Title:         "Spring sale",
		BusinessName:  "Acme",
		LogoURL:       "https://cdn.example.com/logo.png",
		BackgroundURL: "https://cdn.example.com/bg.jpg",
		Address:       "1 Main St",
		Phone:         "555",
		Year:          2024,
	}

	doc, err := Serialize(components, chrome)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<title>Spring sale</title>")
	assert.Contains(t, doc, `class="logo"`)
	assert.Contains(t, doc, "<h2>Fish &amp; Chips</h2>")
	assert.Contains(t, doc, "<div>Hello <strong>friend</strong></div>")
	assert.Contains(t, doc, `alt="A &#34;quoted&#34; alt"`)
	assert.Contains(t, doc, `href="https://example.com/shop"`)
	assert.Contains(t, doc, "<hr")
	assert.Contains(t, doc, "height: 32px")
	assert.Equal(t, 3, strings.Count(doc, "<td "))
	assert.Contains(t, doc, "<p>Acme</p>")
	assert.Contains(t, doc, "<p>1 Main St</p>")
	assert.Contains(t, doc, "<p>555</p>")
	assert.Contains(t, doc, "&copy; 2024 All rights reserved.")
}

func TestSerializeOmitsEmptyChrome(t *testing.T) {
	doc, err := Serialize(nil, Chrome{BusinessName: "Solo", Year: 2030})
	require.NoError(t, err)

	assert.NotContains(t, doc, `class="logo"`)
	assert.Equal(t, 2, strings.Count(doc, "<p>"), "only the business name and copyright lines")
	assert.Contains(t, doc, "2030")
}

func TestDeserialize(t *testing.T) {
	doc := `<!DOCTYPE html><html><body>
<div class="container">
  <div class="header"><img src="logo.png" class="logo"></div>
  <div class="content">
    <h1>Welcome</h1>
    <p>Thanks for <em>joining</em></p>
    <img src="https://cdn.example.com/hero.png" alt="Hero">
    text outside elements
  </div>
</div></body></html>`

	components := Deserialize(doc)
	require.Len(t, components, 3)

	assert.Equal(t, &ParagraphProps{Text: "Welcome"}, components[0].Props)
	assert.Equal(t, &ParagraphProps{Text: "Thanks for <em>joining</em>"}, components[1].Props)
	assert.Equal(t, &ImageProps{Src: "https://cdn.example.com/hero.png", Alt: "Hero"}, components[2].Props)
	for _, c := range components {
		assert.NotEmpty(t, c.ID)
	}
}

func TestDeserializeWithoutContentRegion(t *testing.T) {
	for _, doc := range []string{"", "<html><body><p>nothing</p></body></html>", "<<<not html"} {
		got := Deserialize(doc)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestRoundTripPreservesImages(t *testing.T) {
	components := []Component{
		{ID: "1", Props: &HeadingProps{Level: "h1", Text: "Title"}},
		{ID: "2", Props: &ImageProps{Src: "https://cdn.example.com/one.png"}},
		{ID: "3", Props: &ParagraphProps{Text: "Body"}},
		{ID: "4", Props: &ImageProps{Src: "https://cdn.example.com/two.png", Alt: "two"}},
		{ID: "5", Props: &SpacerProps{Height: 10}},
	}

	doc, err := Serialize(components, Chrome{BusinessName: "Acme", LogoURL: "https://cdn.example.com/logo.png"})
	require.NoError(t, err)

	parsed := Deserialize(doc)
	assert.Equal(t, countImages(components), countImages(parsed))
	assert.Len(t, parsed, len(components))

	paragraph := parsed[2].Props.(*ParagraphProps)
	assert.Equal(t, "Body", paragraph.Text)
}

func TestRoundTripKeepsImageSources(t *testing.T) {
	sources := []string{
		"https://cdn.example.com/one.png",
		"blob:http://localhost:5173/1b2c-3d4e",
		"data:image/png;base64,iVBORw0KGgo=",
		"https://example.com/my photo.png",
		"https://example.com/café.png",
		"https://example.com/img?w=600&h=400",
		`https://example.com/"quoted".png`,
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			doc, err := Serialize([]Component{{ID: "1", Props: &ImageProps{Src: src, Alt: "pic"}}}, Chrome{})
			require.NoError(t, err)

			parsed := Deserialize(doc)
			require.Len(t, parsed, 1)
			assert.Equal(t, &ImageProps{Src: src, Alt: "pic"}, parsed[0].Props)
		})
	}
}

func TestSerializeKeepsChromeAndButtonURLs(t *testing.T) {
	components := []Component{
		{ID: "1", Props: &ButtonProps{Text: "Go", URL: "https://example.com/a b?x=1&y=2"}},
	}
	chrome := Chrome{
		BusinessName:  "Acme",
		LogoURL:       "data:image/svg+xml;base64,PHN2Zz4=",
		BackgroundURL: "blob:http://localhost:5173/bg-1",
		Year:          2024,
	}

	doc, err := Serialize(components, chrome)
	require.NoError(t, err)

	assert.Contains(t, doc, `src="data:image/svg+xml;base64,PHN2Zz4="`)
	assert.Contains(t, doc, `href="https://example.com/a b?x=1&amp;y=2"`)
	assert.Contains(t, doc, `background-image: url('blob:http://localhost:5173/bg-1');`)
	assert.NotContains(t, doc, "ZgotmplZ")
}

func TestBackgroundCSSEscapesQuotes(t *testing.T) {
	assert.Empty(t, string(backgroundCSS("")))
	assert.Equal(t, `background-image: url('a\'b\3c /style>');`, string(backgroundCSS("a'b</style>")))
}
