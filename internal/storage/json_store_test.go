package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestJSONStore(t *testing.T) PageStore {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), ".pages"))
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	return store
}

func TestJSONStore(t *testing.T) {
	testPageStore(t, newTestJSONStore)
}

func TestNewJSONStore(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), ".test_pages")

	store, err := NewJSONStore(basePath)
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		t.Errorf("NewJSONStore() did not create the base directory: %s", basePath)
	}
	if store.GetBasePath() != basePath {
		t.Errorf("GetBasePath() returned %q, want %q", store.GetBasePath(), basePath)
	}
}

func TestJSONStoreLayout(t *testing.T) {
	basePath := t.TempDir()
	store, err := NewJSONStore(basePath)
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	ctx := context.Background()
	page := samplePage(t, "about", "About", time.Now())
	if _, err := store.Save(ctx, page); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := store.Save(ctx, page); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	for _, p := range []string{
		filepath.Join(basePath, "about.json"),
		filepath.Join(basePath, historyDir, "about", "1.json"),
		filepath.Join(basePath, historyDir, "about", "2.json"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected file %s: %v", p, err)
		}
	}

	// Stray files are not pages.
	os.WriteFile(filepath.Join(basePath, "notes.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(basePath, "_draft.json"), []byte("{}"), 0644)
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "about" {
		t.Errorf("List() = %+v, want only about", list)
	}
}

func TestJSONStoreCorruptPage(t *testing.T) {
	basePath := t.TempDir()
	store, err := NewJSONStore(basePath)
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	os.WriteFile(filepath.Join(basePath, "broken.json"), []byte("{not json"), 0644)

	if _, err := store.Load(context.Background(), "broken"); err == nil {
		t.Error("Load() of a corrupt page returned no error")
	}
	if _, err := store.List(context.Background()); err == nil {
		t.Error("List() with a corrupt page returned no error")
	}
}
