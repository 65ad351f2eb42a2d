package component

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// toMap flattens a property record into its JSON object form.
func toMap(p Properties) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// zeroOf returns a new, empty record of the same concrete type as p.
func zeroOf(p Properties) Properties {
	return reflect.New(reflect.TypeOf(p).Elem()).Interface().(Properties)
}

// deepMerge lays src over dst. Nested objects merge key by key, every other
// value (lists included) replaces what was there. A null in src restores the
// value from def.
func deepMerge(dst, src, def map[string]any) {
	for k, v := range src {
		if v == nil {
			if dv, ok := def[k]; ok {
				dst[k] = dv
			}
			continue
		}
		sm, srcIsMap := v.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			nested, _ := def[k].(map[string]any)
			deepMerge(dm, sm, nested)
			continue
		}
		dst[k] = v
	}
}

// overlay merges patch into base and decodes the result into a fresh record.
// With strict set, keys that are not part of the type's shape are rejected.
func overlay(t Type, base Properties, patch map[string]any, strict bool) (Properties, error) {
	def, err := Defaults(t)
	if err != nil {
		return nil, err
	}
	defMap, err := toMap(def)
	if err != nil {
		return nil, err
	}
	merged, err := toMap(base)
	if err != nil {
		return nil, err
	}
	deepMerge(merged, patch, defMap)

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged %s properties: %w", t, err)
	}
	out := zeroOf(def)
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(out); err != nil {
		return nil, err
	}
	out.normalize()
	return out, nil
}

// ApplyPatch returns c's properties with patch merged in. c is not modified.
// Unknown keys, mistyped values and structurally invalid results are
// reported as a *ValidationError.
func ApplyPatch(c *Component, patch map[string]any) (Properties, error) {
	next, err := overlay(c.Type, c.Properties, patch, true)
	if err != nil {
		var ps problems
		ps.add("properties", "%v", err)
		return nil, ps.err(c.ID)
	}
	if err := checkStructure(c.ID, c.Type, next); err != nil {
		return nil, err
	}
	return next, nil
}
