package generator

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Change is one inserted or removed run of text.
type Change struct {
	Type string `json:"type"` // "added" or "removed"
	Text string `json:"text"`
}

// DiffResult compares two generated documents.
type DiffResult struct {
	Equal   bool     `json:"equal"`
	Added   int      `json:"added"`   // Characters inserted
	Removed int      `json:"removed"` // Characters deleted
	Changes []Change `json:"changes"`
	Patch   string   `json:"patch"` // Unified-style patch text turning a into b
}

// Diff computes a character-level diff from a to b, cleaned up for
// readability. Whitespace-only changes are counted but not listed.
func Diff(a, b string) *DiffResult {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	res := &DiffResult{Equal: a == b, Changes: []Change{}}
	for _, d := range diffs {
		var kind string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = "added"
			res.Added += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			kind = "removed"
			res.Removed += len([]rune(d.Text))
		case diffmatchpatch.DiffEqual:
			continue
		}
		if strings.TrimSpace(d.Text) != "" {
			res.Changes = append(res.Changes, Change{Type: kind, Text: d.Text})
		}
	}
	if !res.Equal {
		res.Patch = dmp.PatchToText(dmp.PatchMake(a, diffs))
	}
	return res
}
