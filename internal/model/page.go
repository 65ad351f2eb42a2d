package model

import (
	"time"

	"go-page-builder/internal/component"

	"github.com/google/uuid"
)

// DefaultTitle is given to pages that are created or loaded without one.
const DefaultTitle = "Untitled Page"

// Metadata describes a page as a whole.
type Metadata struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"` // Bumped on every mutation
}

// DefaultMetadata returns metadata for a page created at now.
func DefaultMetadata(now time.Time) Metadata {
	return Metadata{Title: DefaultTitle, CreatedAt: now, UpdatedAt: now}
}

// Snapshot is the persisted form of a page: the complete state, saved and
// loaded as one JSON document.
type Snapshot struct {
	PageID     string                 `json:"pageId"`
	Metadata   Metadata               `json:"metadata"`
	Components []*component.Component `json:"components"` // Rendering order
}

// NewPageID returns a fresh page identifier.
func NewPageID() string {
	return uuid.New().String()
}

// PageSummary is the listing entry a store keeps for each saved page.
type PageSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	Components int       `json:"components"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Revisions  int       `json:"revisions"`
}

// Revision identifies one saved version of a page.
type Revision struct {
	PageID  string    `json:"pageId"`
	Number  int       `json:"number"` // Starts at 1 and increases with each save
	Title   string    `json:"title"`
	SavedAt time.Time `json:"savedAt"`
}

// Summarize builds the listing entry for s.
func Summarize(s *Snapshot, revisions int) PageSummary {
	return PageSummary{
		ID:         s.PageID,
		Title:      s.Metadata.Title,
		Author:     s.Metadata.Author,
		Components: len(s.Components),
		UpdatedAt:  s.Metadata.UpdatedAt,
		Revisions:  revisions,
	}
}
