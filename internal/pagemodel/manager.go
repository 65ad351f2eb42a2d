// Package pagemodel owns the ordered component sequence of one page and
// mediates every mutation so the page invariants hold.
package pagemodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-page-builder/internal/component"
	"go-page-builder/internal/model"

	"go.uber.org/zap"
)

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventAdded    EventKind = "added"
	EventRemoved  EventKind = "removed"
	EventUpdated  EventKind = "updated"
	EventMoved    EventKind = "moved"
	EventCleared  EventKind = "cleared"
	EventLoaded   EventKind = "loaded"
	EventReset    EventKind = "reset"
	EventMetadata EventKind = "metadata"
)

// Event describes one completed mutation.
type Event struct {
	Kind        EventKind `json:"kind"`
	PageID      string    `json:"pageId"`
	ComponentID string    `json:"componentId,omitempty"`
	Index       int       `json:"index"` // Position after the mutation, -1 when not applicable
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Listener receives change notifications. Listeners run synchronously on the
// mutating goroutine and may read the manager but must not mutate it.
type Listener func(Event)

// Manager holds one page: its id, metadata and ordered components.
//
// Readers take mu shared. Writers additionally hold writeMu for the
// mutation and its notification, so listeners observe events in the order
// the mutations were applied.
type Manager struct {
	writeMu sync.Mutex
	mu      sync.RWMutex

	pageID     string
	meta       model.Metadata
	components []*component.Component

	listenerMu   sync.Mutex
	listeners    map[int]Listener
	nextListener int

	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for mutation tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns an empty page with a fresh id and default metadata.
func New(opts ...Option) *Manager {
	m := &Manager{
		listeners: make(map[int]Listener),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.pageID = model.NewPageID()
	m.meta = model.DefaultMetadata(m.timestamp())
	m.components = []*component.Component{}
	return m
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

// touch bumps UpdatedAt so it strictly increases on every mutation.
// Callers hold mu for writing.
func (m *Manager) touch() time.Time {
	t := m.timestamp()
	if !t.After(m.meta.UpdatedAt) {
		t = m.meta.UpdatedAt.Add(time.Millisecond)
	}
	m.meta.UpdatedAt = t
	return t
}

// OnChange registers fn to be called once after every mutation. The
// returned function removes the registration.
func (m *Manager) OnChange(fn Listener) (unsubscribe func()) {
	m.listenerMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenerMu.Lock()
			delete(m.listeners, id)
			m.listenerMu.Unlock()
		})
	}
}

// notify runs listeners in registration order. Callers hold writeMu but not mu.
func (m *Manager) notify(ev Event) {
	m.listenerMu.Lock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.listenerMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Manager) indexOf(id string) int {
	for i, c := range m.components {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Add appends a new component of type t.
func (m *Manager) Add(t component.Type) (*component.Component, error) {
	return m.Insert(t, -1)
}

// Insert creates a component of type t and places it at position. A
// negative position appends; a position past the end is clamped to it.
// The returned component is a copy.
func (m *Manager) Insert(t component.Type, position int) (*component.Component, error) {
	c, err := component.Create(t)
	if err != nil {
		return nil, err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	n := len(m.components)
	if position < 0 || position > n {
		position = n
	}
	m.components = append(m.components, nil)
	copy(m.components[position+1:], m.components[position:])
	m.components[position] = c
	ev := Event{Kind: EventAdded, PageID: m.pageID, ComponentID: c.ID, Index: position, UpdatedAt: m.touch()}
	out := c.Clone()
	m.mu.Unlock()

	m.logger.Debug("component added", zap.String("id", c.ID), zap.String("type", string(t)), zap.Int("index", position))
	m.notify(ev)
	return out, nil
}

// Remove deletes the component with the given id. It reports whether
// anything was removed; an absent id is not an error.
func (m *Manager) Remove(id string) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	m.components = append(m.components[:i], m.components[i+1:]...)
	ev := Event{Kind: EventRemoved, PageID: m.pageID, ComponentID: id, Index: i, UpdatedAt: m.touch()}
	m.mu.Unlock()

	m.logger.Debug("component removed", zap.String("id", id), zap.Int("index", i))
	m.notify(ev)
	return true
}

// Update merges patch into the properties of component id. Nested objects
// such as style merge key by key, lists are replaced and a null value
// restores the type default. It returns false with a nil error when id is
// absent, and false with a *component.ValidationError when the patched
// properties would be invalid; the component is unchanged in both cases.
func (m *Manager) Update(id string, patch map[string]any) (bool, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return false, nil
	}
	next, err := component.ApplyPatch(m.components[i], patch)
	if err != nil {
		m.mu.Unlock()
		m.logger.Debug("component update rejected", zap.String("id", id), zap.Error(err))
		return false, err
	}
	m.components[i].Properties = next
	ev := Event{Kind: EventUpdated, PageID: m.pageID, ComponentID: id, Index: i, UpdatedAt: m.touch()}
	m.mu.Unlock()

	m.logger.Debug("component updated", zap.String("id", id), zap.Int("keys", len(patch)))
	m.notify(ev)
	return true, nil
}

// Move places component id at newIndex, clamped to the valid range, keeping
// the relative order of every other component. It returns false when id is
// absent or the component is already there.
func (m *Manager) Move(id string, newIndex int) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	last := len(m.components) - 1
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > last {
		newIndex = last
	}
	if newIndex == i {
		m.mu.Unlock()
		return false
	}
	c := m.components[i]
	m.components = append(m.components[:i], m.components[i+1:]...)
	m.components = append(m.components, nil)
	copy(m.components[newIndex+1:], m.components[newIndex:])
	m.components[newIndex] = c
	ev := Event{Kind: EventMoved, PageID: m.pageID, ComponentID: id, Index: newIndex, UpdatedAt: m.touch()}
	m.mu.Unlock()

	m.logger.Debug("component moved", zap.String("id", id), zap.Int("from", i), zap.Int("to", newIndex))
	m.notify(ev)
	return true
}

// Components returns deep copies of the components in rendering order.
func (m *Manager) Components() []*component.Component {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*component.Component, len(m.components))
	for i, c := range m.components {
		out[i] = c.Clone()
	}
	return out
}

// Component returns a copy of the component with the given id.
func (m *Manager) Component(id string) (*component.Component, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return m.components[i].Clone(), true
}

// IndexOf returns the position of component id, or -1.
func (m *Manager) IndexOf(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexOf(id)
}

// Len returns the number of components.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.components)
}

// PageID returns the page identifier.
func (m *Manager) PageID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageID
}

// Metadata returns the page metadata.
func (m *Manager) Metadata() model.Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta
}

// SetMetadata replaces the descriptive metadata. An empty title falls back
// to the default title.
func (m *Manager) SetMetadata(title, description, author string) {
	if title == "" {
		title = model.DefaultTitle
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.meta.Title = title
	m.meta.Description = description
	m.meta.Author = author
	ev := Event{Kind: EventMetadata, PageID: m.pageID, Index: -1, UpdatedAt: m.touch()}
	m.mu.Unlock()

	m.logger.Debug("metadata updated", zap.String("title", title))
	m.notify(ev)
}

// Snapshot returns a deep copy of the complete page state.
func (m *Manager) Snapshot() *model.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := &model.Snapshot{
		PageID:     m.pageID,
		Metadata:   m.meta,
		Components: make([]*component.Component, len(m.components)),
	}
	for i, c := range m.components {
		s.Components[i] = c.Clone()
	}
	return s
}

// Save serializes the complete page state as JSON.
func (m *Manager) Save(pretty bool) ([]byte, error) {
	s := m.Snapshot()
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = json.Marshal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode page %s: %w", s.PageID, err)
	}
	return data, nil
}

// Load replaces the whole page with the snapshot in data. The input must be
// a JSON object with a components array; pageId and metadata are optional
// and get fresh defaults when missing. Each component is rebuilt from its
// type defaults with the stored properties laid over them. On any failure a
// *SnapshotError is returned and the page is left unchanged.
func (m *Manager) Load(data []byte) error {
	s, err := ParseSnapshot(data, m.timestamp())
	if err != nil {
		return err
	}
	return m.replace(s, EventLoaded)
}

// LoadSnapshot replaces the whole page with s after checking it the same
// way Load does.
func (m *Manager) LoadSnapshot(s *model.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return &SnapshotError{Reason: "snapshot cannot be encoded", Err: err}
	}
	return m.Load(data)
}

func (m *Manager) replace(s *model.Snapshot, kind EventKind) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.pageID = s.PageID
	m.meta = s.Metadata
	m.components = s.Components
	ev := Event{Kind: kind, PageID: m.pageID, Index: -1, UpdatedAt: m.meta.UpdatedAt}
	m.mu.Unlock()

	m.logger.Debug("page replaced", zap.String("kind", string(kind)), zap.String("pageId", s.PageID), zap.Int("components", len(s.Components)))
	m.notify(ev)
	return nil
}

// Clear removes every component, keeping the page id.
func (m *Manager) Clear() {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	n := len(m.components)
	m.components = []*component.Component{}
	ev := Event{Kind: EventCleared, PageID: m.pageID, Index: -1, UpdatedAt: m.touch()}
	m.mu.Unlock()

	m.logger.Debug("page cleared", zap.Int("removed", n))
	m.notify(ev)
}

// Reset starts a new page: fresh id, default metadata, no components.
func (m *Manager) Reset() {
	now := m.timestamp()
	_ = m.replace(&model.Snapshot{
		PageID:     model.NewPageID(),
		Metadata:   model.DefaultMetadata(now),
		Components: []*component.Component{},
	}, EventReset)
}

// ParseSnapshot decodes and checks a persisted page. Missing pageId and
// metadata are filled in using now. Components without an id get one.
func ParseSnapshot(data []byte, now time.Time) (*model.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &SnapshotError{Reason: "input is not a JSON object"}
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, &SnapshotError{Reason: "input is not a JSON object", Err: err}
	}
	rawComponents, ok := top["components"]
	if !ok {
		return nil, &SnapshotError{Reason: "components field is missing"}
	}
	rawComponents = bytes.TrimSpace(rawComponents)
	if len(rawComponents) == 0 || rawComponents[0] != '[' {
		return nil, &SnapshotError{Reason: "components field is not an array"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawComponents, &items); err != nil {
		return nil, &SnapshotError{Reason: "components field is not an array", Err: err}
	}

	s := &model.Snapshot{Components: make([]*component.Component, 0, len(items))}
	if raw, ok := top["pageId"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &s.PageID); err != nil {
			return nil, &SnapshotError{Reason: "pageId is not a string", Err: err}
		}
	}
	if s.PageID == "" {
		s.PageID = model.NewPageID()
	}

	s.Metadata = model.DefaultMetadata(now)
	if raw, ok := top["metadata"]; ok && !isNull(raw) {
		var meta model.Metadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, &SnapshotError{Reason: "metadata is not an object", Err: err}
		}
		if meta.Title == "" {
			meta.Title = model.DefaultTitle
		}
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = now
		}
		if meta.UpdatedAt.IsZero() {
			meta.UpdatedAt = meta.CreatedAt
		}
		s.Metadata = meta
	}

	seen := make(map[string]bool, len(items))
	for i, raw := range items {
		c := &component.Component{}
		if err := json.Unmarshal(raw, c); err != nil {
			return nil, &SnapshotError{Reason: fmt.Sprintf("component %d", i), Err: err}
		}
		// Older snapshots carry ids such as bare timestamps that are not
		// usable as element ids; those get a fresh one.
		if !component.ValidID(c.ID) {
			c.ID = component.NewID()
		}
		if err := component.CheckStructure(c); err != nil {
			return nil, &SnapshotError{Reason: fmt.Sprintf("component %d", i), Err: err}
		}
		if seen[c.ID] {
			return nil, &SnapshotError{Reason: fmt.Sprintf("duplicate component id %q", c.ID)}
		}
		seen[c.ID] = true
		s.Components = append(s.Components, c)
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
