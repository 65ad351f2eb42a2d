package component

import "strings"

// Descriptor describes a catalog entry for palettes and API clients.
type Descriptor struct {
	Type       Type           `json:"type"`
	Label      string         `json:"label"`
	Properties []PropertySpec `json:"properties"`
	Defaults   Properties     `json:"defaults"`
}

// Catalog lists every instantiable type in a stable order.
func Catalog() []Descriptor {
	out := make([]Descriptor, 0, len(definitions))
	for _, t := range Types() {
		d := definitions[t]
		defaults, _ := Defaults(t)
		specs := make([]PropertySpec, len(d.editable))
		copy(specs, d.editable)
		out = append(out, Descriptor{Type: t, Label: d.label, Properties: specs, Defaults: defaults})
	}
	return out
}

// Editable is one editable property of a component with its current value.
type Editable struct {
	Key     string   `json:"key"`
	Kind    Kind     `json:"kind"`
	Value   any      `json:"value"`
	Choices []string `json:"choices,omitempty"`
}

// EditableProperties lists c's editable keys in catalog order. A key whose
// value is missing reports the type default.
func EditableProperties(c *Component) []Editable {
	d, ok := definitions[c.Type]
	if !ok {
		return nil
	}
	out := make([]Editable, 0, len(d.editable))
	for _, spec := range d.editable {
		v, _ := Property(c, spec.Key)
		out = append(out, Editable{Key: spec.Key, Kind: spec.Kind, Value: v, Choices: spec.Choices})
	}
	return out
}

// Property reads a single, possibly dotted, property key. Missing values
// fall back to the type default; ok is false only for keys the type does
// not have.
func Property(c *Component, key string) (any, bool) {
	if c.Properties != nil {
		if m, err := toMap(c.Properties); err == nil {
			if v, ok := lookup(m, key); ok && v != nil {
				return v, true
			}
		}
	}
	def, err := Defaults(c.Type)
	if err != nil {
		return nil, false
	}
	m, err := toMap(def)
	if err != nil {
		return nil, false
	}
	return lookup(m, key)
}

func lookup(m map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = m
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
