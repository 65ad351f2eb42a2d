package templating

import (
	"strings"

	"go-page-builder/internal/component"
)

const baseStylesheet = `.pb-page { padding: 0; }
.pb-page > * + * { margin-top: 1rem; }
.invalid-feedback { display: none; }`

var typeStylesheets = map[component.Type]string{
	component.TypeHeader: `.pb-header { padding: 2rem 1rem; }
.pb-header .lead { margin-bottom: 0; }`,
	component.TypeNavbar: `.pb-page > nav.navbar { margin-top: 0; }`,
	component.TypeTable: `.pb-table { padding: 0 1rem; }
.pb-table table { width: 100%; }`,
	component.TypeForm: `.pb-form { padding: 0 1rem; }`,
	component.TypeFooter: `.pb-footer { padding: 1.5rem 1rem; }
.pb-footer p { margin: 0; }`,
	component.TypeButton: `.pb-button { padding: 0 1rem; }`,
	component.TypeText: `.pb-text { padding: 0 1rem; }
.pb-text img { max-width: 100%; }`,
}

// Stylesheet returns the base rules plus the rules of every type in
// present, each type once, in catalog order.
func Stylesheet(present map[component.Type]bool) string {
	parts := []string{baseStylesheet}
	for _, t := range component.Types() {
		if css, ok := typeStylesheets[t]; ok && present[t] {
			parts = append(parts, css)
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}
