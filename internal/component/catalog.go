package component

// Kind is the primitive editor kind of an editable property.
type Kind string

const (
	KindText       Kind = "text"
	KindRichText   Kind = "richtext"
	KindColor      Kind = "color"
	KindSpacing    Kind = "spacing"
	KindBoolean    Kind = "boolean"
	KindEnum       Kind = "enum"
	KindStringList Kind = "list-of-strings"
	KindOptionList Kind = "list-of-options"
	KindRowList    Kind = "list-of-rows"
	KindFieldList  Kind = "list-of-fields"
)

// PropertySpec documents one editable key of a type. Nested keys are
// dotted, as in "style.color".
type PropertySpec struct {
	Key     string   `json:"key"`
	Kind    Kind     `json:"kind"`
	Choices []string `json:"choices,omitempty"`
}

// definition is one row of the catalog dispatch table.
type definition struct {
	label    string
	defaults func() Properties
	editable []PropertySpec
	// view builds the data handed to the type's template.
	view func(id string, p Properties) (any, error)
	// validate checks type-specific structural rules.
	validate func(p Properties, ps *problems)
}

var (
	alignChoices   = []string{"left", "center", "right"}
	levelChoices   = []string{"h1", "h2", "h3"}
	variantChoices = []string{"primary", "secondary", "success", "danger", "link"}
)

var styleSpecs = []PropertySpec{
	{Key: "style.color", Kind: KindColor},
	{Key: "style.backgroundColor", Kind: KindColor},
	{Key: "style.padding", Kind: KindSpacing},
	{Key: "style.margin", Kind: KindSpacing},
}

func withStyle(specs ...PropertySpec) []PropertySpec {
	return append(specs, styleSpecs...)
}

var definitions = map[Type]definition{
	TypeHeader: {
		label: "Header",
		defaults: func() Properties {
			return &HeaderProps{Title: "Page Title", Subtitle: "", Align: "center", Level: "h1"}
		},
		editable: withStyle(
			PropertySpec{Key: "title", Kind: KindText},
			PropertySpec{Key: "subtitle", Kind: KindText},
			PropertySpec{Key: "align", Kind: KindEnum, Choices: alignChoices},
			PropertySpec{Key: "level", Kind: KindEnum, Choices: levelChoices},
		),
		view:     headerView,
		validate: validateHeader,
	},
	TypeNavbar: {
		label: "Navigation",
		defaults: func() Properties {
			return &NavbarProps{
				Brand: "Brand",
				Links: []Option{
					{Value: "#home", Text: "Home"},
					{Value: "#about", Text: "About"},
					{Value: "#contact", Text: "Contact"},
				},
			}
		},
		editable: withStyle(
			PropertySpec{Key: "brand", Kind: KindText},
			PropertySpec{Key: "links", Kind: KindOptionList},
			PropertySpec{Key: "sticky", Kind: KindBoolean},
		),
		view:     navbarView,
		validate: validateNavbar,
	},
	TypeTable: {
		label: "Table",
		defaults: func() Properties {
			return &TableProps{
				Title:   "Records",
				Columns: []string{"Name", "Email", "Phone"},
				Rows:    [][]string{},
				Striped: true,
			}
		},
		editable: withStyle(
			PropertySpec{Key: "title", Kind: KindText},
			PropertySpec{Key: "columns", Kind: KindStringList},
			PropertySpec{Key: "rows", Kind: KindRowList},
			PropertySpec{Key: "striped", Kind: KindBoolean},
		),
		view:     tableView,
		validate: validateTable,
	},
	TypeForm: {
		label: "Form Modal",
		defaults: func() Properties {
			return &FormProps{
				Title:        "Add Record",
				TriggerLabel: "Open Form",
				SubmitLabel:  "Submit",
				Fields: []Field{
					{ID: "name", Type: FieldText, Label: "Name", Required: true, Options: []Option{}},
					{ID: "email", Type: FieldEmail, Label: "Email", Required: true, Options: []Option{}},
				},
			}
		},
		editable: withStyle(
			PropertySpec{Key: "title", Kind: KindText},
			PropertySpec{Key: "triggerLabel", Kind: KindText},
			PropertySpec{Key: "submitLabel", Kind: KindText},
			PropertySpec{Key: "fields", Kind: KindFieldList},
		),
		view:     formView,
		validate: validateForm,
	},
	TypeFooter: {
		label: "Footer",
		defaults: func() Properties {
			return &FooterProps{
				Text:            "© All rights reserved.",
				TextColor:       "#ffffff",
				BackgroundColor: "#212529",
				Align:           "center",
			}
		},
		editable: withStyle(
			PropertySpec{Key: "text", Kind: KindText},
			PropertySpec{Key: "textColor", Kind: KindColor},
			PropertySpec{Key: "backgroundColor", Kind: KindColor},
			PropertySpec{Key: "align", Kind: KindEnum, Choices: alignChoices},
		),
		view:     footerView,
		validate: validateFooter,
	},
	TypeButton: {
		label: "Button",
		defaults: func() Properties {
			return &ButtonProps{Label: "Click me", Href: "#", Variant: "primary"}
		},
		editable: withStyle(
			PropertySpec{Key: "label", Kind: KindText},
			PropertySpec{Key: "href", Kind: KindText},
			PropertySpec{Key: "variant", Kind: KindEnum, Choices: variantChoices},
		),
		view:     buttonView,
		validate: validateButton,
	},
	TypeText: {
		label: "Text Block",
		defaults: func() Properties {
			return &TextProps{Content: "Write something here."}
		},
		editable: withStyle(
			PropertySpec{Key: "content", Kind: KindRichText},
		),
		view:     textView,
		validate: func(Properties, *problems) {},
	},
}

// Defaults returns a fresh default property record for t.
func Defaults(t Type) (Properties, error) {
	d, ok := definitions[t]
	if !ok {
		return nil, &UnknownTypeError{Type: string(t)}
	}
	p := d.defaults()
	p.normalize()
	return p, nil
}
