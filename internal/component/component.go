package component

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// Component is one placed instance of a catalog type. Type never changes
// after creation and Properties always holds the full shape for that type.
type Component struct {
	ID         string
	Type       Type
	Properties Properties
}

var idCounter atomic.Uint64

// NewID returns a component id built from the current time and a
// process-wide monotonically increasing counter.
func NewID() string {
	return fmt.Sprintf("cmp-%d-%d", time.Now().UnixMilli(), idCounter.Add(1))
}

// Create instantiates t with its default properties and a fresh id.
func Create(t Type) (*Component, error) {
	props, err := Defaults(t)
	if err != nil {
		return nil, err
	}
	return &Component{ID: NewID(), Type: t, Properties: props}, nil
}

// Clone returns a deep copy of c.
func (c *Component) Clone() *Component {
	return &Component{ID: c.ID, Type: c.Type, Properties: cloneProperties(c.Type, c.Properties)}
}

func cloneProperties(t Type, p Properties) Properties {
	data, err := json.Marshal(p)
	if err != nil {
		panic(fmt.Sprintf("component: marshal %s properties: %v", t, err))
	}
	out := zeroOf(p)
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("component: copy %s properties: %v", t, err))
	}
	out.normalize()
	return out
}

type wireComponent struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// MarshalJSON writes the persisted {id, type, properties} form.
func (c *Component) MarshalJSON() ([]byte, error) {
	props, err := json.Marshal(c.Properties)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireComponent{ID: c.ID, Type: c.Type, Properties: props})
}

// UnmarshalJSON rebuilds a component from its persisted form: the type's
// defaults are created first and the stored properties are laid over them,
// so keys missing from older snapshots keep their default values.
func (c *Component) UnmarshalJSON(data []byte) error {
	var w wireComponent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t, err := ParseType(string(w.Type))
	if err != nil {
		return err
	}
	props, err := Defaults(t)
	if err != nil {
		return err
	}
	raw := bytes.TrimSpace(w.Properties)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		stored := map[string]any{}
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("component %s properties: %w", w.ID, err)
		}
		if props, err = overlay(t, props, stored, false); err != nil {
			return fmt.Errorf("component %s properties: %w", w.ID, err)
		}
	}
	c.ID = w.ID
	c.Type = t
	c.Properties = props
	return nil
}
