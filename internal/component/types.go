// Package component is the catalog of placeable page components: the closed
// set of types, their default property records, markup rendering and the
// descriptors that drive a properties panel.
package component

import "strings"

// Type is the tag of a catalog entry. The set is closed; see Types.
type Type string

const (
	TypeHeader Type = "header"
	TypeNavbar Type = "navbar"
	TypeTable  Type = "table"
	TypeForm   Type = "form"
	TypeFooter Type = "footer"
	TypeButton Type = "button"
	TypeText   Type = "text"
)

// typeAliases maps names used by older builder projects to canonical tags.
var typeAliases = map[string]Type{
	"navigation": TypeNavbar,
	"nav":        TypeNavbar,
	"modal":      TypeForm,
	"formmodal":  TypeForm,
	"form-modal": TypeForm,
	"paragraph":  TypeText,
}

// Types returns every catalog type in palette order.
func Types() []Type {
	return []Type{TypeHeader, TypeNavbar, TypeTable, TypeForm, TypeFooter, TypeButton, TypeText}
}

// ParseType resolves a user-supplied name (case-insensitive, aliases allowed)
// to a catalog type.
func ParseType(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := typeAliases[n]; ok {
		return alias, nil
	}
	t := Type(n)
	if _, ok := definitions[t]; !ok {
		return "", &UnknownTypeError{Type: name}
	}
	return t, nil
}

// Valid reports whether t is in the catalog.
func (t Type) Valid() bool {
	_, ok := definitions[t]
	return ok
}

// Label returns the palette label for t.
func (t Type) Label() string {
	if d, ok := definitions[t]; ok {
		return d.label
	}
	return string(t)
}

// Style holds the overrides every component type accepts.
type Style struct {
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	Padding         string `json:"padding"`
	Margin          string `json:"margin"`
}

// IsZero reports whether no override is set.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Option is an ordered {value, text} pair used by choice fields and nav links.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Validation is a user-authored check attached to a form field.
type Validation struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// FieldType enumerates the inputs a form component can hold.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldTel      FieldType = "tel"
	FieldDate     FieldType = "date"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
)

var fieldTypes = map[FieldType]bool{
	FieldText: true, FieldEmail: true, FieldNumber: true, FieldTel: true, FieldDate: true,
	FieldTextarea: true, FieldSelect: true, FieldRadio: true, FieldCheckbox: true,
}

// IsChoice reports whether the field type needs an options list.
func (ft FieldType) IsChoice() bool {
	return ft == FieldSelect || ft == FieldRadio || ft == FieldCheckbox
}

// Field is one input inside a form component.
type Field struct {
	ID          string      `json:"id"`
	Type        FieldType   `json:"type"`
	Label       string      `json:"label"`
	Placeholder string      `json:"placeholder"`
	Required    bool        `json:"required"`
	Validation  *Validation `json:"validation,omitempty"`
	Options     []Option    `json:"options"`
}

// Properties is the per-type property record carried by a Component.
// Implementations live in this package only.
type Properties interface {
	styleRef() *Style
	normalize()
}

// HeaderProps is the property record of a header.
type HeaderProps struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Align    string `json:"align"`
	Level    string `json:"level"`
	Style    Style  `json:"style"`
}

// NavbarProps is the property record of a navigation bar. Link values are hrefs.
type NavbarProps struct {
	Brand  string   `json:"brand"`
	Links  []Option `json:"links"`
	Sticky bool     `json:"sticky"`
	Style  Style    `json:"style"`
}

// TableProps is the property record of a data table.
type TableProps struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Striped bool       `json:"striped"`
	Style   Style      `json:"style"`
}

// FormProps is the property record of a form shown in a modal dialog.
type FormProps struct {
	Title        string  `json:"title"`
	TriggerLabel string  `json:"triggerLabel"`
	SubmitLabel  string  `json:"submitLabel"`
	Fields       []Field `json:"fields"`
	Style        Style   `json:"style"`
}

// FooterProps is the property record of a page footer.
type FooterProps struct {
	Text            string `json:"text"`
	TextColor       string `json:"textColor"`
	BackgroundColor string `json:"backgroundColor"`
	Align           string `json:"align"`
	Style           Style  `json:"style"`
}

// ButtonProps is the property record of a link button.
type ButtonProps struct {
	Label   string `json:"label"`
	Href    string `json:"href"`
	Variant string `json:"variant"`
	Style   Style  `json:"style"`
}

// TextProps is the property record of a rich text block.
type TextProps struct {
	Content string `json:"content"`
	Style   Style  `json:"style"`
}

func (p *HeaderProps) styleRef() *Style { return &p.Style }
func (p *NavbarProps) styleRef() *Style { return &p.Style }
func (p *TableProps) styleRef() *Style  { return &p.Style }
func (p *FormProps) styleRef() *Style   { return &p.Style }
func (p *FooterProps) styleRef() *Style { return &p.Style }
func (p *ButtonProps) styleRef() *Style { return &p.Style }
func (p *TextProps) styleRef() *Style   { return &p.Style }

func (p *HeaderProps) normalize() {}
func (p *FooterProps) normalize() {}
func (p *ButtonProps) normalize() {}
func (p *TextProps) normalize()   {}

func (p *NavbarProps) normalize() {
	if p.Links == nil {
		p.Links = []Option{}
	}
}

func (p *TableProps) normalize() {
	if p.Columns == nil {
		p.Columns = []string{}
	}
	if p.Rows == nil {
		p.Rows = [][]string{}
	}
	for i := range p.Rows {
		if p.Rows[i] == nil {
			p.Rows[i] = []string{}
		}
	}
}

func (p *FormProps) normalize() {
	if p.Fields == nil {
		p.Fields = []Field{}
	}
	for i := range p.Fields {
		if p.Fields[i].Options == nil {
			p.Fields[i].Options = []Option{}
		}
	}
}
