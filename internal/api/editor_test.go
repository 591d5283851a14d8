package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/emailchamp/internal/editor"
)

func TestEditorRequiresSession(t *testing.T) {
	e := newTestEnv(t, nil, false)

	rec := e.do(t, http.MethodGet, "/api/v1/editor", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/editor/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditorFlow(t *testing.T) {
	e := newTestEnv(t, nil, false)
	seed(t, e, "a")

	rec := e.do(t, http.MethodPost, "/api/v1/editor/a", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[EditorResponse](t, rec)
	assert.Equal(t, "a", state.CampaignID)
	assert.Equal(t, editor.StatePopulated, state.State)
	require.Len(t, state.Components, 2)
	assert.Equal(t, editor.KindImage, state.Components[0].Type())
	assert.Equal(t, editor.KindParagraph, state.Components[1].Type())

	// insert a heading at the top
	rec = e.do(t, http.MethodPost, "/api/v1/editor/components", map[string]any{
		"type":  "heading",
		"props": map[string]any{"text": "Big news"},
		"index": 0,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	heading := decode[editor.Component](t, rec)
	assert.Equal(t, editor.KindHeading, heading.Type())

	rec = e.do(t, http.MethodPatch, "/api/v1/editor/components/"+heading.ID, map[string]any{
		"level": "h2",
		"text":  "Bigger news",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[editor.Component](t, rec)
	assert.Equal(t, &editor.HeadingProps{Level: "h2", Text: "Bigger news"}, patched.Props)

	rec = e.do(t, http.MethodPut, "/api/v1/editor/selection", SelectRequest{ID: heading.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, heading.ID, decode[EditorResponse](t, rec).Selected)

	rec = e.do(t, http.MethodGet, "/api/v1/editor/html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[EditorHTMLResponse](t, rec).HTML, "<h2>Bigger news</h2>")

	rec = e.do(t, http.MethodPost, "/api/v1/editor/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode[CampaignView](t, rec).Content, "<h2>Bigger news</h2>")

	stored := decode[CampaignView](t, e.do(t, http.MethodGet, "/api/v1/campaigns/a", nil))
	assert.Contains(t, stored.Content, "<h2>Bigger news</h2>")

	// deleting the selected component clears the selection
	rec = e.do(t, http.MethodDelete, "/api/v1/editor/components/"+heading.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	state = decode[EditorResponse](t, e.do(t, http.MethodGet, "/api/v1/editor", nil))
	assert.Len(t, state.Components, 2)
	assert.Empty(t, state.Selected)

	rec = e.do(t, http.MethodDelete, "/api/v1/editor", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/v1/editor", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEditorInsertAtDropPosition(t *testing.T) {
	e := newTestEnv(t, nil, false)
	seed(t, e, "a")
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/editor/a", nil).Code)

	// drop below the first block's bottom edge, above the second's
	rec := e.do(t, http.MethodPost, "/api/v1/editor/components", map[string]any{
		"type":  "divider",
		"dropY": 150,
		"boxes": []editor.Box{{Top: 0, Bottom: 100}, {Top: 100, Bottom: 200}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	state := decode[EditorResponse](t, e.do(t, http.MethodGet, "/api/v1/editor", nil))
	require.Len(t, state.Components, 3)
	assert.Equal(t, editor.KindDivider, state.Components[1].Type())

	// no position appends
	rec = e.do(t, http.MethodPost, "/api/v1/editor/components", map[string]any{"type": "spacer"})
	require.Equal(t, http.StatusCreated, rec.Code)
	state = decode[EditorResponse](t, e.do(t, http.MethodGet, "/api/v1/editor", nil))
	assert.Equal(t, editor.KindSpacer, state.Components[3].Type())
}

func TestEditorRejectsBadInput(t *testing.T) {
	e := newTestEnv(t, nil, false)
	seed(t, e, "a")
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/editor/a", nil).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown kind", http.MethodPost, "/api/v1/editor/components", map[string]any{"type": "video"}, http.StatusBadRequest},
		{"foreign field", http.MethodPost, "/api/v1/editor/components", map[string]any{"type": "divider", "props": map[string]any{"text": "x"}}, http.StatusBadRequest},
		{"bad level", http.MethodPost, "/api/v1/editor/components", map[string]any{"type": "heading", "props": map[string]any{"level": "h9"}}, http.StatusBadRequest},
		{"unknown component", http.MethodPatch, "/api/v1/editor/components/nope", map[string]any{"text": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	state := decode[EditorResponse](t, e.do(t, http.MethodGet, "/api/v1/editor", nil))
	assert.Len(t, state.Components, 2, "rejected inserts leave the editor unchanged")
}

func TestCampaignUpdateClosesEditor(t *testing.T) {
	e := newTestEnv(t, nil, false)
	seed(t, e, "a")

	rec := e.do(t, http.MethodPost, "/api/v1/editor/a", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/api/v1/editor/components", map[string]any{
		"type":  "heading",
		"props": map[string]any{"text": "Stale"},
		"index": 0,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/editor/save", nil).Code)

	rec = e.do(t, http.MethodPut, "/api/v1/campaigns/a", map[string]any{
		"id":      "a",
		"subject": "Rewritten",
		"sendDay": 1,
		"content": `<html><body><div class="content"><p>Fresh copy</p></div></body></html>`,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodGet, "/api/v1/editor", nil).Code)

	rec = e.do(t, http.MethodPost, "/api/v1/editor/a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[EditorResponse](t, rec)
	require.Len(t, state.Components, 1)
	assert.Equal(t, &editor.ParagraphProps{Text: "Fresh copy"}, state.Components[0].Props)
}
