package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-page-builder/internal/component"
	"go-page-builder/internal/model"
)

// samplePage builds a page with a header and a text block.
func samplePage(t *testing.T, id, title string, updated time.Time) *model.Snapshot {
	t.Helper()
	header, err := component.Create(component.TypeHeader)
	if err != nil {
		t.Fatalf("Create(header) failed: %v", err)
	}
	header.Properties.(*component.HeaderProps).Title = title
	text, err := component.Create(component.TypeText)
	if err != nil {
		t.Fatalf("Create(text) failed: %v", err)
	}
	meta := model.DefaultMetadata(updated.Add(-time.Hour))
	meta.Title = title
	meta.Author = "tester"
	meta.UpdatedAt = updated
	return &model.Snapshot{
		PageID:     id,
		Metadata:   meta,
		Components: []*component.Component{header, text},
	}
}

// testPageStore exercises the PageStore contract against a fresh store.
func testPageStore(t *testing.T, newStore func(t *testing.T) PageStore) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("SaveLoad", func(t *testing.T) {
		store := newStore(t)
		page := samplePage(t, "landing", "Landing", base)

		rev, err := store.Save(ctx, page)
		if err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if rev.Number != 1 || rev.PageID != "landing" || rev.Title != "Landing" {
			t.Errorf("Save() revision = %+v", rev)
		}

		got, err := store.Load(ctx, "landing")
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if got.PageID != "landing" || got.Metadata.Title != "Landing" || got.Metadata.Author != "tester" {
			t.Errorf("Load() metadata = %+v", got.Metadata)
		}
		if !got.Metadata.UpdatedAt.Equal(base) {
			t.Errorf("UpdatedAt = %v, want %v", got.Metadata.UpdatedAt, base)
		}
		if len(got.Components) != 2 {
			t.Fatalf("Load() returned %d components, want 2", len(got.Components))
		}
		if got.Components[0].ID != page.Components[0].ID || got.Components[0].Type != component.TypeHeader {
			t.Errorf("first component = %s/%s", got.Components[0].ID, got.Components[0].Type)
		}
		if title := got.Components[0].Properties.(*component.HeaderProps).Title; title != "Landing" {
			t.Errorf("header title = %q", title)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrPageNotFound) {
			t.Errorf("Load(missing) error = %v, want ErrPageNotFound", err)
		}
		if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrPageNotFound) {
			t.Errorf("Delete(missing) error = %v, want ErrPageNotFound", err)
		}
		if _, err := store.ListRevisions(ctx, "missing"); !errors.Is(err, ErrPageNotFound) {
			t.Errorf("ListRevisions(missing) error = %v, want ErrPageNotFound", err)
		}
	})

	t.Run("InvalidID", func(t *testing.T) {
		store := newStore(t)
		for _, id := range []string{"", "../escape", "a/b", "-lead"} {
			if _, err := store.Load(ctx, id); !errors.Is(err, ErrInvalidPageID) {
				t.Errorf("Load(%q) error = %v, want ErrInvalidPageID", id, err)
			}
			if _, err := store.Save(ctx, samplePage(t, id, "x", base)); !errors.Is(err, ErrInvalidPageID) {
				t.Errorf("Save(%q) error = %v, want ErrInvalidPageID", id, err)
			}
		}
	})

	t.Run("Revisions", func(t *testing.T) {
		store := newStore(t)
		for i, title := range []string{"First", "Second", "Third"} {
			rev, err := store.Save(ctx, samplePage(t, "blog", title, base.Add(time.Duration(i)*time.Minute)))
			if err != nil {
				t.Fatalf("Save(%s) failed: %v", title, err)
			}
			if rev.Number != i+1 {
				t.Errorf("Save(%s) revision = %d, want %d", title, rev.Number, i+1)
			}
		}

		revs, err := store.ListRevisions(ctx, "blog")
		if err != nil {
			t.Fatalf("ListRevisions() failed: %v", err)
		}
		if len(revs) != 3 {
			t.Fatalf("ListRevisions() returned %d, want 3", len(revs))
		}
		for i, want := range []string{"First", "Second", "Third"} {
			if revs[i].Number != i+1 || revs[i].Title != want {
				t.Errorf("revision %d = %+v, want number %d title %s", i, revs[i], i+1, want)
			}
		}

		second, err := store.LoadRevision(ctx, "blog", 2)
		if err != nil {
			t.Fatalf("LoadRevision(2) failed: %v", err)
		}
		if second.Metadata.Title != "Second" {
			t.Errorf("LoadRevision(2) title = %q", second.Metadata.Title)
		}
		latest, err := store.Load(ctx, "blog")
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if latest.Metadata.Title != "Third" {
			t.Errorf("Load() title = %q, want latest", latest.Metadata.Title)
		}
		if _, err := store.LoadRevision(ctx, "blog", 9); !errors.Is(err, ErrRevisionNotFound) {
			t.Errorf("LoadRevision(9) error = %v, want ErrRevisionNotFound", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t)
		empty, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List() on empty store failed: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("List() on empty store returned %d entries", len(empty))
		}

		store.Save(ctx, samplePage(t, "old", "Old", base))
		store.Save(ctx, samplePage(t, "new", "New", base.Add(time.Hour)))
		store.Save(ctx, samplePage(t, "new", "Newer", base.Add(2*time.Hour)))

		list, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List() failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("List() returned %d entries, want 2", len(list))
		}
		if list[0].ID != "new" || list[1].ID != "old" {
			t.Errorf("List() order = %s, %s; want new, old", list[0].ID, list[1].ID)
		}
		if list[0].Title != "Newer" || list[0].Revisions != 2 || list[0].Components != 2 {
			t.Errorf("List()[0] = %+v", list[0])
		}
		if list[1].Revisions != 1 || list[1].Author != "tester" {
			t.Errorf("List()[1] = %+v", list[1])
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		store.Save(ctx, samplePage(t, "gone", "Gone", base))
		store.Save(ctx, samplePage(t, "gone", "Gone again", base))

		if err := store.Delete(ctx, "gone"); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := store.Load(ctx, "gone"); !errors.Is(err, ErrPageNotFound) {
			t.Errorf("Load() after Delete error = %v", err)
		}
		if _, err := store.LoadRevision(ctx, "gone", 1); !errors.Is(err, ErrRevisionNotFound) {
			t.Errorf("LoadRevision() after Delete error = %v", err)
		}

		rev, err := store.Save(ctx, samplePage(t, "gone", "Back", base))
		if err != nil {
			t.Fatalf("Save() after Delete failed: %v", err)
		}
		if rev.Number != 1 {
			t.Errorf("revision numbering did not restart: got %d", rev.Number)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		store := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := store.Save(cctx, samplePage(t, "p", "P", base)); !errors.Is(err, context.Canceled) {
			t.Errorf("Save() with canceled context error = %v", err)
		}
	})
}

func TestValidPageID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"landing", true},
		{"3f2b8c1e-0a4d-4c55-9b1d-2a7e7c1f0b11", true},
		{"my_page-2", true},
		{"", false},
		{"_hidden", false},
		{".history", false},
		{"a b", false},
		{"../x", false},
	}
	for _, tt := range tests {
		if got := ValidPageID(tt.id); got != tt.want {
			t.Errorf("ValidPageID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestEncodeSnapshotNil(t *testing.T) {
	if _, err := encodeSnapshot(nil); err == nil {
		t.Error("encodeSnapshot(nil) returned no error")
	}
}
