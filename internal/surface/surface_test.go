package surface

import (
	"net/url"
	"testing"
)

func TestResolveTab(t *testing.T) {
	tests := []struct {
		query string
		want  Tab
	}{
		{"", TabHome},
		{"tab=manager", TabManager},
		{"tab=generator", TabGenerator},
		{"tab=campaign", TabCampaign},
		{"tab=settings", TabHome},
		{"tab=MANAGER", TabHome},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery() error = %v", err)
			}
			view := Resolve(q)
			if view.Tab != tt.want {
				t.Errorf("Resolve(%q).Tab = %v, want %v", tt.query, view.Tab, tt.want)
			}
			if view.Prefill != nil {
				t.Errorf("Resolve(%q).Prefill = %+v, want nil", tt.query, view.Prefill)
			}
		})
	}
}

func TestResolveDescription(t *testing.T) {
	desc := "Business Name: Acme\nAddress: 1 Main St\nPhone: 555"

	u, err := url.Parse(HandoffURL(desc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	view := Resolve(u.Query())

	if view.Tab != TabGenerator {
		t.Errorf("Tab = %v, want generator", view.Tab)
	}
	if view.Prefill == nil {
		t.Fatal("Prefill is nil")
	}
	if view.Prefill.Description != desc {
		t.Errorf("Description = %q, want %q", view.Prefill.Description, desc)
	}
	if view.Prefill.Name != "Acme" || view.Prefill.Address != "1 Main St" || view.Prefill.Phone != "555" {
		t.Errorf("Prefill = %+v", view.Prefill)
	}

	// An explicit tab wins over the description default
	q := u.Query()
	q.Set("tab", "manager")
	if got := Resolve(q).Tab; got != TabManager {
		t.Errorf("Tab with explicit manager = %v", got)
	}
}
