// Package surface maps entry-point query parameters to the view the client
// should show.
package surface

import (
	"net/url"

	"github.com/foxzi/emailchamp/internal/generator"
)

// Tab is a top-level view
type Tab string

const (
	TabHome      Tab = "home"
	TabGenerator Tab = "generator"
	TabCampaign  Tab = "campaign"
	TabManager   Tab = "manager"
)

// View is the resolved navigation state
type View struct {
	Tab Tab `json:"tab"`
	// Prefill is set when a description was handed over to the generator
	Prefill *generator.Prefill `json:"prefill,omitempty"`
}

// Resolve reads "tab" and "description". Unknown tabs fall back to home;
// a description opens the single-email generator pre-filled.
func Resolve(query url.Values) View {
	view := View{Tab: TabHome}

	switch Tab(query.Get("tab")) {
	case TabManager:
		view.Tab = TabManager
	case TabGenerator:
		view.Tab = TabGenerator
	case TabCampaign:
		view.Tab = TabCampaign
	}

	if desc := query.Get("description"); desc != "" {
		prefill := generator.ParseDescription(desc)
		view.Prefill = &prefill
		if view.Tab == TabHome {
			view.Tab = TabGenerator
		}
	}
	return view
}

// HandoffURL builds the relative link that opens the generator with desc
func HandoffURL(desc string) string {
	return "/?" + url.Values{"description": {desc}}.Encode()
}
