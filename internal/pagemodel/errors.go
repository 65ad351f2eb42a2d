package pagemodel

import (
	"errors"
	"fmt"
)

// ErrMalformedSnapshot is matched by every *SnapshotError via errors.Is.
var ErrMalformedSnapshot = errors.New("malformed page snapshot")

// SnapshotError reports why a snapshot could not be loaded. The model is
// left untouched when it is returned.
type SnapshotError struct {
	Reason string
	Err    error
}

func (e *SnapshotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed page snapshot: %s: %v", e.Reason, e.Err)
	}
	return "malformed page snapshot: " + e.Reason
}

func (e *SnapshotError) Unwrap() error { return e.Err }

func (e *SnapshotError) Is(target error) bool {
	return target == ErrMalformedSnapshot
}
