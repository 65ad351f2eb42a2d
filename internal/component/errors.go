package component

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is matched by every *UnknownTypeError via errors.Is.
var ErrUnknownType = errors.New("unknown component type")

// UnknownTypeError is returned when a type tag is not in the catalog.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown component type %q", e.Type)
}

func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

// ErrInvalid is matched by every *ValidationError via errors.Is.
var ErrInvalid = errors.New("invalid component properties")

// Problem is a single validation failure. Path is a dotted property path
// such as "fields.2.validation.pattern".
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError collects every problem found on one component.
type ValidationError struct {
	ComponentID string
	Problems    []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Path+": "+p.Message)
	}
	if e.ComponentID != "" {
		return fmt.Sprintf("component %s: %s", e.ComponentID, strings.Join(parts, "; "))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// problems accumulates Problems and converts them into an error.
type problems []Problem

func (ps *problems) add(path, format string, args ...any) {
	*ps = append(*ps, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (ps problems) err(componentID string) error {
	if len(ps) == 0 {
		return nil
	}
	return &ValidationError{ComponentID: componentID, Problems: ps}
}
