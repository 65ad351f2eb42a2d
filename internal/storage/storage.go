// Package storage persists page snapshots. Every save appends a revision,
// so earlier versions of a page can be listed, loaded and compared.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"go-page-builder/internal/model"
)

var (
	// ErrPageNotFound is returned when no page has the requested id.
	ErrPageNotFound = errors.New("page not found")
	// ErrRevisionNotFound is returned when a page has no such revision.
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrInvalidPageID is returned for ids that cannot be stored safely.
	ErrInvalidPageID = errors.New("invalid page id")
)

// PageStore persists pages. Implementations are safe for concurrent use.
type PageStore interface {
	// Save stores s as the latest version of its page and records it as a
	// new revision, returning that revision.
	Save(ctx context.Context, s *model.Snapshot) (model.Revision, error)

	// Load returns the latest version of a page.
	Load(ctx context.Context, pageID string) (*model.Snapshot, error)

	// List returns a summary of every stored page, most recently updated first.
	List(ctx context.Context) ([]model.PageSummary, error)

	// Delete removes a page and its revisions.
	Delete(ctx context.Context, pageID string) error

	// ListRevisions returns a page's revisions, oldest first.
	ListRevisions(ctx context.Context, pageID string) ([]model.Revision, error)

	// LoadRevision returns one saved version of a page.
	LoadRevision(ctx context.Context, pageID string, number int) (*model.Snapshot, error)

	// Close releases the backend's resources.
	Close() error
}

var pageIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidPageID reports whether id is usable as a page id by every backend.
func ValidPageID(id string) bool {
	return pageIDPattern.MatchString(id)
}

func checkPageID(id string) error {
	if !ValidPageID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPageID, id)
	}
	return nil
}

func encodeSnapshot(s *model.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("snapshot cannot be nil")
	}
	if err := checkPageID(s.PageID); err != nil {
		return nil, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page %s: %w", s.PageID, err)
	}
	return data, nil
}

func decodeSnapshot(pageID string, data []byte) (*model.Snapshot, error) {
	var s model.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page %s: %w", pageID, err)
	}
	return &s, nil
}
