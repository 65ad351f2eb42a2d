// Package session ties one editable page to a page store. It tracks unsaved
// work so a caller never silently discards edits when switching pages.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-page-builder/internal/generator"
	"go-page-builder/internal/model"
	"go-page-builder/internal/pagemodel"
	"go-page-builder/internal/storage"

	"go.uber.org/zap"
)

// ErrUnsavedChanges is returned when an operation would discard edits that
// were never saved and force was not set.
var ErrUnsavedChanges = errors.New("page has unsaved changes")

// Session is the editing context: the page being edited, its selection, and
// the store it is saved to.
type Session struct {
	page      *pagemodel.Manager
	selection *pagemodel.Selection
	store     storage.PageStore
	gen       *generator.Generator
	logger    *zap.Logger

	mu    sync.Mutex
	dirty bool
	edits uint64          // Counts edits; Save only clears dirty if none landed meanwhile
	last  *model.Revision // Latest revision saved or opened in this session

	stop []func()
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGenerator sets the generator used for documents and exports.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Session) {
		if g != nil {
			s.gen = g
		}
	}
}

// WithPage edits an existing page model instead of a fresh one.
func WithPage(m *pagemodel.Manager) Option {
	return func(s *Session) {
		if m != nil {
			s.page = m
		}
	}
}

// New starts a session on an empty page saved to store.
func New(store storage.PageStore, opts ...Option) *Session {
	s := &Session{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.page == nil {
		s.page = pagemodel.New(pagemodel.WithLogger(s.logger))
	}
	if s.gen == nil {
		s.gen = generator.New(nil, s.logger)
	}
	s.selection = pagemodel.NewSelection(s.page)
	s.stop = append(s.stop, s.selection.Track(), s.page.OnChange(s.track))
	return s
}

// track marks the page dirty after edits. Loads and resets are driven by
// the session itself, which sets the flag afterwards.
func (s *Session) track(ev pagemodel.Event) {
	if ev.Kind == pagemodel.EventLoaded || ev.Kind == pagemodel.EventReset {
		return
	}
	s.mu.Lock()
	s.dirty = true
	s.edits++
	s.mu.Unlock()
}

func (s *Session) setClean(rev *model.Revision) {
	s.mu.Lock()
	s.dirty = false
	s.last = rev
	s.mu.Unlock()
}

func (s *Session) editCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edits
}

// setSaved records rev and clears dirty unless the page was edited after
// the edit count seen was taken.
func (s *Session) setSaved(rev *model.Revision, seen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = rev
	if s.edits != seen {
		return false
	}
	s.dirty = false
	return true
}

// Page returns the page model being edited.
func (s *Session) Page() *pagemodel.Manager { return s.page }

// Selection returns the selection over the page.
func (s *Session) Selection() *pagemodel.Selection { return s.selection }

// Store returns the backing page store.
func (s *Session) Store() storage.PageStore { return s.store }

// Generator returns the document generator.
func (s *Session) Generator() *generator.Generator { return s.gen }

// Dirty reports whether the page changed since it was last saved or opened.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LastRevision returns the revision the page was last saved as or opened
// from, and false for a page never stored.
func (s *Session) LastRevision() (model.Revision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return model.Revision{}, false
	}
	return *s.last, true
}

func (s *Session) guard(force bool) error {
	if !force && s.Dirty() {
		return ErrUnsavedChanges
	}
	return nil
}

// NewPage replaces the page with an empty one.
func (s *Session) NewPage(force bool) error {
	if err := s.guard(force); err != nil {
		return err
	}
	s.page.Reset()
	s.selection.Clear()
	s.setClean(nil)
	s.logger.Info("new page", zap.String("pageId", s.page.PageID()))
	return nil
}

// Open loads the latest stored version of pageID into the session.
func (s *Session) Open(ctx context.Context, pageID string, force bool) error {
	if err := s.guard(force); err != nil {
		return err
	}
	snap, err := s.store.Load(ctx, pageID)
	if err != nil {
		return err
	}
	if err := s.page.LoadSnapshot(snap); err != nil {
		return fmt.Errorf("stored page %s is unusable: %w", pageID, err)
	}
	var last *model.Revision
	if revs, err := s.store.ListRevisions(ctx, pageID); err == nil && len(revs) > 0 {
		last = &revs[len(revs)-1]
	}
	s.selection.Clear()
	s.setClean(last)
	s.logger.Info("page opened", zap.String("pageId", pageID), zap.Int("components", s.page.Len()))
	return nil
}

// Restore loads an earlier revision into the session. The page stays
// dirty until it is saved again as a new revision.
func (s *Session) Restore(ctx context.Context, pageID string, number int, force bool) error {
	if err := s.guard(force); err != nil {
		return err
	}
	snap, err := s.store.LoadRevision(ctx, pageID, number)
	if err != nil {
		return err
	}
	if err := s.page.LoadSnapshot(snap); err != nil {
		return fmt.Errorf("revision %d of page %s is unusable: %w", number, pageID, err)
	}
	s.selection.Clear()
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	s.logger.Info("revision restored", zap.String("pageId", pageID), zap.Int("revision", number))
	return nil
}

// Import replaces the page with a snapshot read from outside the store.
// The result is unsaved.
func (s *Session) Import(data []byte, force bool) error {
	if err := s.guard(force); err != nil {
		return err
	}
	if err := s.page.Load(data); err != nil {
		return err
	}
	s.selection.Clear()
	s.mu.Lock()
	s.dirty = true
	s.last = nil
	s.mu.Unlock()
	s.logger.Info("page imported", zap.String("pageId", s.page.PageID()), zap.Int("components", s.page.Len()))
	return nil
}

// Save stores the page as a new revision.
// Edits that land while the store write is in flight keep the page dirty.
func (s *Session) Save(ctx context.Context) (model.Revision, error) {
	seen := s.editCount()
	rev, err := s.store.Save(ctx, s.page.Snapshot())
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to save page %s: %w", s.page.PageID(), err)
	}
	clean := s.setSaved(&rev, seen)
	s.logger.Info("page saved",
		zap.String("pageId", rev.PageID),
		zap.Int("revision", rev.Number),
		zap.Bool("dirty", !clean),
	)
	return rev, nil
}

// Document generates the current page.
func (s *Session) Document() (*generator.Document, error) {
	return s.gen.Document(s.page)
}

// Export generates the current page into dir and returns the written paths.
func (s *Session) Export(dir, assetsDir string) ([]string, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	written, err := generator.Export(doc, dir, assetsDir)
	if err != nil {
		return nil, err
	}
	for _, w := range doc.Warnings {
		s.logger.Warn("exported with warning", zap.String("pageId", s.page.PageID()), zap.String("warning", w))
	}
	s.logger.Info("page exported", zap.String("pageId", s.page.PageID()), zap.String("dir", dir), zap.Int("files", len(written)))
	return written, nil
}

// List returns the stored pages.
func (s *Session) List(ctx context.Context) ([]model.PageSummary, error) {
	return s.store.List(ctx)
}

// Delete removes a stored page. Deleting the page being edited also resets
// the session, which needs force when there are unsaved changes.
func (s *Session) Delete(ctx context.Context, pageID string, force bool) error {
	current := pageID == s.page.PageID()
	if current {
		if err := s.guard(force); err != nil {
			return err
		}
	}
	if err := s.store.Delete(ctx, pageID); err != nil {
		return err
	}
	if current {
		s.page.Reset()
		s.selection.Clear()
		s.setClean(nil)
	}
	s.logger.Info("page deleted", zap.String("pageId", pageID))
	return nil
}

// History lists the revisions of pageID, or of the current page when
// pageID is empty.
func (s *Session) History(ctx context.Context, pageID string) ([]model.Revision, error) {
	if pageID == "" {
		pageID = s.page.PageID()
	}
	return s.store.ListRevisions(ctx, pageID)
}

// Diff compares the generated documents of two revisions of pageID. A
// revision number of 0 stands for the page as currently edited, which
// requires pageID to be the current page.
func (s *Session) Diff(ctx context.Context, pageID string, from, to int) (*generator.DiffResult, error) {
	if pageID == "" {
		pageID = s.page.PageID()
	}
	a, err := s.revisionMarkup(ctx, pageID, from)
	if err != nil {
		return nil, err
	}
	b, err := s.revisionMarkup(ctx, pageID, to)
	if err != nil {
		return nil, err
	}
	return generator.Diff(a, b), nil
}

func (s *Session) revisionMarkup(ctx context.Context, pageID string, number int) (string, error) {
	var snap *model.Snapshot
	if number <= 0 {
		if pageID != s.page.PageID() {
			return "", fmt.Errorf("page %s is not open: %w", pageID, storage.ErrRevisionNotFound)
		}
		snap = s.page.Snapshot()
	} else {
		var err error
		if snap, err = s.store.LoadRevision(ctx, pageID, number); err != nil {
			return "", err
		}
	}
	doc, err := s.gen.Build(snap)
	if err != nil {
		return "", err
	}
	return doc.Markup, nil
}

// Close detaches the session from its page. The store is left open.
func (s *Session) Close() {
	for _, stop := range s.stop {
		stop()
	}
	s.stop = nil
}
