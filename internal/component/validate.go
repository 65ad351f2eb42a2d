package component

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	idPattern      = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	hexColor       = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColor      = regexp.MustCompile(`^(?:rgb|rgba|hsl|hsla)\(\s*[0-9.%]+\s*(?:,\s*[0-9.%]+\s*){2,3}\)$`)
	namedColor     = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
	spacingPattern = regexp.MustCompile(`^(?:0|auto|-?[0-9]+(?:\.[0-9]+)?(?:px|em|rem|%|vh|vw))(?:\s+(?:0|auto|-?[0-9]+(?:\.[0-9]+)?(?:px|em|rem|%|vh|vw))){0,3}$`)
)

// ValidID reports whether id can be used as an element id and a CSS selector.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ValidColor reports whether v is an accepted CSS color. Empty means unset.
func ValidColor(v string) bool {
	return v == "" || hexColor.MatchString(v) || funcColor.MatchString(v) || namedColor.MatchString(v)
}

// ValidSpacing reports whether v is an accepted padding/margin value. Empty means unset.
func ValidSpacing(v string) bool {
	return v == "" || spacingPattern.MatchString(v)
}

func oneOf(v string, choices []string) bool {
	for _, c := range choices {
		if v == c {
			return true
		}
	}
	return false
}

func checkStyle(s Style, ps *problems) {
	if !ValidColor(s.Color) {
		ps.add("style.color", "invalid color %q", s.Color)
	}
	if !ValidColor(s.BackgroundColor) {
		ps.add("style.backgroundColor", "invalid color %q", s.BackgroundColor)
	}
	if !ValidSpacing(s.Padding) {
		ps.add("style.padding", "invalid spacing %q", s.Padding)
	}
	if !ValidSpacing(s.Margin) {
		ps.add("style.margin", "invalid spacing %q", s.Margin)
	}
}

// checkStructure applies the rules every stored component must satisfy:
// valid ids, enum values, CSS values and compilable validation patterns.
// An incomplete choice field is allowed here; see Validate.
func checkStructure(id string, t Type, p Properties) error {
	var ps problems
	if !ValidID(id) {
		ps.add("id", "invalid component id %q", id)
	}
	d, ok := definitions[t]
	if !ok {
		return &UnknownTypeError{Type: string(t)}
	}
	checkStyle(*p.styleRef(), &ps)
	d.validate(p, &ps)
	return ps.err(id)
}

// CheckStructure reports structural problems with c. Loaded and patched
// components must pass it.
func CheckStructure(c *Component) error {
	return checkStructure(c.ID, c.Type, c.Properties)
}

// Validate runs the structural checks plus completeness rules: choice
// fields need at least one option and no option may be entirely blank.
// It is the pre-save check a field editor runs.
func Validate(c *Component) error {
	if err := CheckStructure(c); err != nil {
		return err
	}
	var ps problems
	switch p := c.Properties.(type) {
	case *FormProps:
		for i, f := range p.Fields {
			completeField(fmt.Sprintf("fields.%d", i), f, &ps)
		}
	case *NavbarProps:
		for i, l := range p.Links {
			if strings.TrimSpace(l.Value) == "" && strings.TrimSpace(l.Text) == "" {
				ps.add(fmt.Sprintf("links.%d", i), "link has neither href nor text")
			}
		}
	}
	return ps.err(c.ID)
}

// ValidateField checks a single field as a field editor would before saving it.
func ValidateField(f Field) error {
	var ps problems
	checkField("field", f, &ps)
	completeField("field", f, &ps)
	return ps.err("")
}

func checkField(path string, f Field, ps *problems) {
	if !ValidID(f.ID) {
		ps.add(path+".id", "invalid field id %q", f.ID)
	}
	if !fieldTypes[f.Type] {
		ps.add(path+".type", "unknown field type %q", f.Type)
	}
	if f.Validation != nil && f.Validation.Pattern != "" {
		if err := CheckPattern(f.Validation.Pattern); err != nil {
			ps.add(path+".validation.pattern", "unusable pattern: %v", err)
		}
	}
}

func completeField(path string, f Field, ps *problems) {
	if !f.Type.IsChoice() {
		return
	}
	if len(f.Options) == 0 {
		ps.add(path+".options", "%s field %q has no options", f.Type, f.ID)
		return
	}
	for i, o := range f.Options {
		if strings.TrimSpace(o.Value) == "" && strings.TrimSpace(o.Text) == "" {
			ps.add(fmt.Sprintf("%s.options.%d", path, i), "option has neither value nor text")
		}
	}
}

func validateHeader(p Properties, ps *problems) {
	h := p.(*HeaderProps)
	if !oneOf(h.Align, alignChoices) {
		ps.add("align", "must be one of %v", alignChoices)
	}
	if !oneOf(h.Level, levelChoices) {
		ps.add("level", "must be one of %v", levelChoices)
	}
}

func validateNavbar(Properties, *problems) {}

func validateTable(p Properties, ps *problems) {
	tb := p.(*TableProps)
	if len(tb.Columns) == 0 {
		ps.add("columns", "a table needs at least one column")
	}
	for i, row := range tb.Rows {
		if len(row) > len(tb.Columns) {
			ps.add(fmt.Sprintf("rows.%d", i), "row has %d cells but the table has %d columns", len(row), len(tb.Columns))
		}
	}
}

func validateForm(p Properties, ps *problems) {
	f := p.(*FormProps)
	seen := make(map[string]bool, len(f.Fields))
	for i, field := range f.Fields {
		path := fmt.Sprintf("fields.%d", i)
		checkField(path, field, ps)
		if seen[field.ID] {
			ps.add(path+".id", "duplicate field id %q", field.ID)
		}
		seen[field.ID] = true
	}
}

func validateFooter(p Properties, ps *problems) {
	f := p.(*FooterProps)
	if !ValidColor(f.TextColor) {
		ps.add("textColor", "invalid color %q", f.TextColor)
	}
	if !ValidColor(f.BackgroundColor) {
		ps.add("backgroundColor", "invalid color %q", f.BackgroundColor)
	}
	if !oneOf(f.Align, alignChoices) {
		ps.add("align", "must be one of %v", alignChoices)
	}
}

func validateButton(p Properties, ps *problems) {
	b := p.(*ButtonProps)
	if !oneOf(b.Variant, variantChoices) {
		ps.add("variant", "must be one of %v", variantChoices)
	}
}
