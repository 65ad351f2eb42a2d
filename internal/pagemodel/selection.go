package pagemodel

import "sync"

// Selection is the transient "selected component" view state kept beside a
// page. It survives re-renders by id and clears itself when the selected
// component disappears.
type Selection struct {
	mu sync.Mutex
	m  *Manager
	id string
}

// NewSelection returns an empty selection over m.
func NewSelection(m *Manager) *Selection {
	return &Selection{m: m}
}

// Select marks id as selected. It reports false, leaving the selection
// unchanged, if the page has no such component.
func (s *Selection) Select(id string) bool {
	if s.m.IndexOf(id) < 0 {
		return false
	}
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return true
}

// Selected returns the selected id, or "" when nothing is selected.
func (s *Selection) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Clear drops the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.id = ""
	s.mu.Unlock()
}

// Reconcile clears the selection if its component no longer exists and
// returns the resulting selected id.
func (s *Selection) Reconcile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != "" && s.m.IndexOf(s.id) < 0 {
		s.id = ""
	}
	return s.id
}

// Track reconciles the selection after every page mutation until the
// returned function is called.
func (s *Selection) Track() (stop func()) {
	return s.m.OnChange(func(Event) { s.Reconcile() })
}
