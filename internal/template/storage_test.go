package template

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/emailchamp/internal/generator"
)

const customLayout = `<!DOCTYPE html><html><body><h1>{{name}}</h1><div class="content">{{welcomeMessage}}</div></body></html>`

func setupTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "template.db"), 0600, nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := NewStorage(setupTestDB(t))
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	return storage
}

func TestStorage_Create(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	tmpl := &Template{Name: "minimal", HTML: customLayout}
	if err := storage.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if tmpl.ID == "" {
		t.Error("Create() did not set ID")
	}
	if tmpl.Version != 1 {
		t.Errorf("Create() version = %d, want 1", tmpl.Version)
	}
	if tmpl.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}
}

func TestStorage_CreateValidation(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tmpl Template
	}{
		{"missing name", Template{HTML: customLayout}},
		{"missing html", Template{Name: "empty"}},
		{"blank html", Template{Name: "blank", HTML: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := tt.tmpl
			if err := storage.Create(ctx, &tmpl); !errors.Is(err, ErrInvalid) {
				t.Errorf("Create() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestStorage_CreateDuplicateName(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if err := storage.Create(ctx, &Template{Name: "minimal", HTML: customLayout}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := storage.Create(ctx, &Template{Name: "minimal", HTML: "<p>other</p>"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Create() error = %v, want ErrDuplicateName", err)
	}
}

func TestStorage_GetAndGetByName(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	tmpl := &Template{Name: "minimal", HTML: customLayout}
	if err := storage.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := storage.Get(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.HTML != customLayout {
		t.Errorf("Get() html = %q", got.HTML)
	}

	byName, err := storage.GetByName(ctx, "minimal")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if byName.ID != tmpl.ID {
		t.Errorf("GetByName() id = %v, want %v", byName.ID, tmpl.ID)
	}

	if _, err := storage.Get(ctx, "non-existent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := storage.GetByName(ctx, "non-existent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByName() error = %v, want ErrNotFound", err)
	}
}

func TestStorage_List(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	for _, name := range []string{"welcome", "goodbye", "newsletter"} {
		tmpl := &Template{Name: name, Description: name + " layout", HTML: customLayout}
		if err := storage.Create(ctx, tmpl); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   int
	}{
		{"all", ListFilter{}, 3},
		{"limit", ListFilter{Limit: 2}, 2},
		{"offset", ListFilter{Offset: 2}, 1},
		{"search", ListFilter{Search: "NEWS"}, 1},
		{"no match", ListFilter{Search: "invoice"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := storage.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != tt.want {
				t.Errorf("List() len = %d, want %d", len(list), tt.want)
			}
		})
	}
}

func TestStorage_Update(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	tmpl := &Template{Name: "minimal", HTML: customLayout}
	if err := storage.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	other := &Template{Name: "other", HTML: customLayout}
	if err := storage.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tmpl.Name = "renamed"
	tmpl.HTML = "<p>{{welcomeMessage}}</p>"
	if err := storage.Update(ctx, tmpl); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if tmpl.Version != 2 {
		t.Errorf("Update() version = %d, want 2", tmpl.Version)
	}

	if _, err := storage.GetByName(ctx, "minimal"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old name still indexed: %v", err)
	}
	got, err := storage.GetByName(ctx, "renamed")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.HTML != "<p>{{welcomeMessage}}</p>" {
		t.Errorf("html = %q", got.HTML)
	}

	tmpl.Name = "other"
	if err := storage.Update(ctx, tmpl); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Update() error = %v, want ErrDuplicateName", err)
	}

	missing := &Template{ID: "missing", Name: "x", HTML: "<p></p>"}
	if err := storage.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestStorage_Delete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	tmpl := &Template{Name: "minimal", HTML: customLayout}
	if err := storage.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := storage.Delete(ctx, tmpl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := storage.Get(ctx, tmpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	if err := storage.Delete(ctx, tmpl.ID); err != nil {
		t.Errorf("Delete() of missing template error = %v", err)
	}

	// the name is free again
	if err := storage.Create(ctx, &Template{Name: "minimal", HTML: customLayout}); err != nil {
		t.Errorf("Create() after delete error = %v", err)
	}
}

func TestStorage_Resolve(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	got, err := storage.Resolve(ctx, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != generator.DefaultTemplate {
		t.Error("Resolve(\"\") should return the default layout")
	}

	tmpl := &Template{Name: "minimal", HTML: customLayout}
	if err := storage.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err = storage.Resolve(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != customLayout {
		t.Errorf("Resolve() = %q", got)
	}

	if _, err := storage.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestInspect(t *testing.T) {
	r := Inspect(customLayout)
	if !r.Fillable {
		t.Error("Fillable = false, want true")
	}
	if len(r.Placeholders) != 2 {
		t.Errorf("Placeholders = %v, want name and welcomeMessage", r.Placeholders)
	}
	if len(r.Missing) != 5 {
		t.Errorf("Missing = %v, want 5 entries", r.Missing)
	}

	full := Inspect(generator.DefaultTemplate)
	if len(full.Missing) != 0 {
		t.Errorf("default layout missing %v", full.Missing)
	}

	plain := Inspect("<p>hello</p>")
	if plain.Fillable {
		t.Error("Fillable = true for layout without body slot")
	}
}
