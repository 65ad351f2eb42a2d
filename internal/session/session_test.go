package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go-page-builder/internal/component"
	"go-page-builder/internal/model"
	"go-page-builder/internal/storage"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	s := New(store)
	t.Cleanup(s.Close)
	return s
}

func TestDirtyTracking(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	if s.Dirty() {
		t.Fatal("fresh session is dirty")
	}
	if _, err := s.Page().Add(component.TypeHeader); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if !s.Dirty() {
		t.Fatal("session not dirty after Add")
	}

	rev, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if s.Dirty() {
		t.Error("session dirty after Save")
	}
	if rev.Number != 1 || rev.PageID != s.Page().PageID() {
		t.Errorf("Save() revision = %+v", rev)
	}
	if last, ok := s.LastRevision(); !ok || last.Number != 1 {
		t.Errorf("LastRevision() = %+v, %v", last, ok)
	}

	s.Page().SetMetadata("Renamed", "", "")
	if !s.Dirty() {
		t.Error("session not dirty after SetMetadata")
	}
}

func TestUnsavedChangesGuard(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	s.Page().Add(component.TypeText)
	saved, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	s.Page().Add(component.TypeFooter)

	if err := s.NewPage(false); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("NewPage(false) error = %v, want ErrUnsavedChanges", err)
	}
	if err := s.Open(ctx, saved.PageID, false); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("Open(false) error = %v, want ErrUnsavedChanges", err)
	}
	if s.Page().Len() != 2 {
		t.Fatalf("guarded operations changed the page: %d components", s.Page().Len())
	}

	if err := s.Open(ctx, saved.PageID, true); err != nil {
		t.Fatalf("Open(force) failed: %v", err)
	}
	if s.Page().Len() != 1 || s.Dirty() {
		t.Errorf("after Open: len=%d dirty=%v", s.Page().Len(), s.Dirty())
	}

	oldID := s.Page().PageID()
	if err := s.NewPage(false); err != nil {
		t.Fatalf("NewPage() on a clean session failed: %v", err)
	}
	if s.Page().PageID() == oldID || s.Page().Len() != 0 {
		t.Errorf("NewPage() did not reset the page")
	}
	if _, ok := s.LastRevision(); ok {
		t.Error("LastRevision() set after NewPage")
	}
}

// slowStore holds every Save until release is closed.
type slowStore struct {
	storage.PageStore
	saving  chan struct{}
	release chan struct{}
}

func (s *slowStore) Save(ctx context.Context, snap *model.Snapshot) (model.Revision, error) {
	close(s.saving)
	<-s.release
	return s.PageStore.Save(ctx, snap)
}

func TestEditDuringSaveStaysDirty(t *testing.T) {
	base, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}
	store := &slowStore{PageStore: base, saving: make(chan struct{}), release: make(chan struct{})}
	s := New(store)
	t.Cleanup(s.Close)

	type result struct {
		rev model.Revision
		err error
	}
	done := make(chan result, 1)
	go func() {
		rev, err := s.Save(context.Background())
		done <- result{rev, err}
	}()

	<-store.saving
	if _, err := s.Page().Add(component.TypeHeader); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	close(store.release)
	res := <-done
	if res.err != nil {
		t.Fatalf("Save() failed: %v", res.err)
	}

	saved, err := base.Load(context.Background(), res.rev.PageID)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(saved.Components) != 0 {
		t.Fatalf("saved %d components, want the pre-edit snapshot", len(saved.Components))
	}
	if !s.Dirty() {
		t.Fatal("edit made during Save was marked saved")
	}
	if last, ok := s.LastRevision(); !ok || last.Number != res.rev.Number {
		t.Errorf("LastRevision() = %+v, %v", last, ok)
	}
	if err := s.NewPage(false); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("NewPage(false) error = %v, want ErrUnsavedChanges", err)
	}
	if s.Page().Len() != 1 {
		t.Errorf("page has %d components, want 1", s.Page().Len())
	}
}

func TestOpenMissing(t *testing.T) {
	s := newTestSession(t)
	if err := s.Open(context.Background(), "nope", false); !errors.Is(err, storage.ErrPageNotFound) {
		t.Errorf("Open(nope) error = %v, want ErrPageNotFound", err)
	}
}

func TestSelectionFollowsPage(t *testing.T) {
	s := newTestSession(t)
	c, _ := s.Page().Add(component.TypeButton)
	if !s.Selection().Select(c.ID) {
		t.Fatal("Select() failed for an existing component")
	}
	s.Page().Remove(c.ID)
	if got := s.Selection().Selected(); got != "" {
		t.Errorf("selection %q survived removal", got)
	}

	c2, _ := s.Page().Add(component.TypeButton)
	s.Selection().Select(c2.ID)
	if err := s.NewPage(true); err != nil {
		t.Fatalf("NewPage() failed: %v", err)
	}
	if got := s.Selection().Selected(); got != "" {
		t.Errorf("selection %q survived NewPage", got)
	}
}

func TestHistoryRestoreAndDiff(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	h, _ := s.Page().Add(component.TypeHeader)
	s.Page().Update(h.ID, map[string]any{"title": "Version one"})
	s.Save(ctx)
	s.Page().Update(h.ID, map[string]any{"title": "Version two"})
	s.Save(ctx)

	revs, err := s.History(ctx, "")
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("History() returned %d revisions, want 2", len(revs))
	}

	d, err := s.Diff(ctx, "", 1, 2)
	if err != nil {
		t.Fatalf("Diff(1, 2) failed: %v", err)
	}
	if d.Equal || d.Added == 0 || d.Removed == 0 {
		t.Errorf("Diff(1, 2) = %+v, want changes", d)
	}
	same, err := s.Diff(ctx, "", 2, 0)
	if err != nil {
		t.Fatalf("Diff(2, current) failed: %v", err)
	}
	if !same.Equal {
		t.Errorf("latest revision differs from the saved page: %+v", same.Changes)
	}
	if _, err := s.Diff(ctx, "", 1, 7); !errors.Is(err, storage.ErrRevisionNotFound) {
		t.Errorf("Diff with a missing revision error = %v", err)
	}

	if err := s.Restore(ctx, s.Page().PageID(), 1, false); err != nil {
		t.Fatalf("Restore(1) failed: %v", err)
	}
	got, _ := s.Page().Component(h.ID)
	if title := got.Properties.(*component.HeaderProps).Title; title != "Version one" {
		t.Errorf("restored title = %q", title)
	}
	if !s.Dirty() {
		t.Error("restored page is not dirty")
	}
	rev, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("Save() after Restore failed: %v", err)
	}
	if rev.Number != 3 {
		t.Errorf("revision after restore = %d, want 3", rev.Number)
	}
}

func TestExport(t *testing.T) {
	s := newTestSession(t)
	s.Page().Add(component.TypeHeader)
	s.Page().Add(component.TypeTable)
	s.Page().Add(component.TypeForm)

	dir := filepath.Join(t.TempDir(), "site")
	written, err := s.Export(dir, "")
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if len(written) != 3 {
		t.Errorf("Export() wrote %d files, want 3: %v", len(written), written)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		t.Errorf("index.html missing: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	s.Page().Add(component.TypeText)
	rev, _ := s.Save(ctx)
	s.Page().Add(component.TypeText)

	if err := s.Delete(ctx, rev.PageID, false); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("Delete() of the dirty current page error = %v", err)
	}
	if err := s.Delete(ctx, rev.PageID, true); err != nil {
		t.Fatalf("Delete(force) failed: %v", err)
	}
	if s.Page().PageID() == rev.PageID || s.Page().Len() != 0 {
		t.Error("deleting the current page did not reset the session")
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List() after Delete = %+v", list)
	}
}

func TestImport(t *testing.T) {
	s := newTestSession(t)
	data := []byte(`{"pageId":"imported","components":[{"id":"h1","type":"header","properties":{"title":"Hi"}}]}`)

	if err := s.Import(data, false); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if s.Page().PageID() != "imported" || s.Page().Len() != 1 {
		t.Errorf("Import() page = %s with %d components", s.Page().PageID(), s.Page().Len())
	}
	if !s.Dirty() {
		t.Error("imported page is not dirty")
	}
	if err := s.Import([]byte(`{"components":[]}`), false); !errors.Is(err, ErrUnsavedChanges) {
		t.Errorf("Import() over unsaved changes error = %v", err)
	}
	if err := s.Import([]byte(`[]`), true); err == nil {
		t.Error("Import() of a malformed snapshot returned no error")
	}
	if s.Page().PageID() != "imported" {
		t.Error("failed Import() changed the page")
	}
}
