package component

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Every user-supplied value reaches markup through html/template, which
// escapes it for the context it lands in. Rich text goes through bluemonday.
const componentTemplates = `
{{define "header"}}<header id="{{.ID}}" class="pb-header text-{{.P.Align}}"{{with .Style}} style="{{.}}"{{end}}>{{if eq .P.Level "h1"}}<h1>{{.P.Title}}</h1>{{else if eq .P.Level "h2"}}<h2>{{.P.Title}}</h2>{{else}}<h3>{{.P.Title}}</h3>{{end}}{{with .P.Subtitle}}<p class="lead">{{.}}</p>{{end}}</header>{{end}}

{{define "navbar"}}<nav id="{{.ID}}" class="navbar navbar-expand-lg navbar-light bg-light{{if .P.Sticky}} sticky-top{{end}}"{{with .Style}} style="{{.}}"{{end}}><div class="container-fluid"><a class="navbar-brand" href="#">{{.P.Brand}}</a><ul class="navbar-nav">{{range .Links}}<li class="nav-item"><a class="nav-link" href="{{.Value}}">{{.Text}}</a></li>{{end}}</ul></div></nav>{{end}}

{{define "table"}}<section id="{{.ID}}" class="pb-table"{{with .Style}} style="{{.}}"{{end}}>{{with .P.Title}}<h2>{{.}}</h2>{{end}}<table class="table{{if .P.Striped}} table-striped{{end}}"><thead><tr>{{range .P.Columns}}<th scope="col">{{.}}</th>{{end}}</tr></thead><tbody id="{{.BodyID}}">{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table></section>{{end}}

{{define "field"}}<div class="mb-3" data-field="{{.Name}}">{{if eq .Type "select"}}<label class="form-label" for="{{.DomID}}">{{.Label}}</label><select class="form-select" id="{{.DomID}}" name="{{.Name}}"{{if .Required}} required{{end}}>{{range .Options}}<option value="{{.Value}}">{{.Text}}</option>{{end}}</select>{{else if eq .Type "radio" "checkbox"}}<span class="form-label">{{.Label}}</span>{{range $i, $o := .Options}}<div class="form-check"><input class="form-check-input" type="{{$.Type}}" id="{{$.DomID}}-{{$i}}" name="{{$.Name}}" value="{{$o.Value}}"><label class="form-check-label" for="{{$.DomID}}-{{$i}}">{{$o.Text}}</label></div>{{end}}{{else if eq .Type "textarea"}}<label class="form-label" for="{{.DomID}}">{{.Label}}</label><textarea class="form-control" id="{{.DomID}}" name="{{.Name}}" placeholder="{{.Placeholder}}"{{if .Required}} required{{end}}></textarea>{{else}}<label class="form-label" for="{{.DomID}}">{{.Label}}</label><input class="form-control" type="{{.Type}}" id="{{.DomID}}" name="{{.Name}}" placeholder="{{.Placeholder}}"{{if .Required}} required{{end}}>{{end}}<div class="invalid-feedback" id="{{.DomID}}-error"></div></div>{{end}}

{{define "form"}}<section id="{{.ID}}" class="pb-form"{{with .Style}} style="{{.}}"{{end}}><button type="button" class="btn btn-primary" data-bs-toggle="modal" data-bs-target="#{{.ModalID}}">{{.P.TriggerLabel}}</button><div class="modal fade" id="{{.ModalID}}" tabindex="-1" aria-hidden="true"><div class="modal-dialog"><div class="modal-content"><form id="{{.FormID}}" novalidate><div class="modal-header"><h5 class="modal-title">{{.P.Title}}</h5><button type="button" class="btn-close" data-bs-dismiss="modal" aria-label="Close"></button></div><div class="modal-body">{{range .Fields}}{{template "field" .}}{{end}}</div><div class="modal-footer"><button type="submit" class="btn btn-primary">{{.P.SubmitLabel}}</button></div></form></div></div></div></section>{{end}}

{{define "footer"}}<footer id="{{.ID}}" class="pb-footer text-{{.P.Align}}"{{with .Style}} style="{{.}}"{{end}}><p>{{.P.Text}}</p></footer>{{end}}

{{define "button"}}<div id="{{.ID}}" class="pb-button"{{with .Style}} style="{{.}}"{{end}}><a class="btn btn-{{.P.Variant}}" href="{{.Href}}" role="button">{{.P.Label}}</a></div>{{end}}

{{define "text"}}<div id="{{.ID}}" class="pb-text"{{with .Style}} style="{{.}}"{{end}}>{{.Content}}</div>{{end}}
`

var renderSet = template.Must(template.New("components").Parse(componentTemplates))

var (
	richTextPolicy     *bluemonday.Policy
	richTextPolicyOnce sync.Once
)

func richText() *bluemonday.Policy {
	richTextPolicyOnce.Do(func() {
		richTextPolicy = bluemonday.UGCPolicy()
		richTextPolicy.AllowElements("u", "s", "sub", "sup", "mark")
	})
	return richTextPolicy
}

// SanitizeRichText returns content as markup safe to embed in a page. Plain
// text is escaped and its line breaks kept; markup is sanitized.
func SanitizeRichText(content string) template.HTML {
	if content == "" {
		return ""
	}
	if !strings.Contains(content, "<") || !strings.Contains(content, ">") {
		escaped := template.HTMLEscapeString(content)
		return template.HTML("<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>")
	}
	return template.HTML(richText().Sanitize(content))
}

// FieldDomID is the element id of a form field inside component componentID.
func FieldDomID(componentID, fieldID string) string {
	return componentID + "-" + fieldID
}

// FormID is the element id of the <form> inside a form component.
func FormID(componentID string) string { return componentID + "-form" }

// ModalID is the element id of the dialog wrapping a form component.
func ModalID(componentID string) string { return componentID + "-modal" }

// TableBodyID is the element id of a table component's <tbody>.
func TableBodyID(componentID string) string { return componentID + "-body" }

// Render produces the markup for c. It is a pure function of c's id and
// properties. A choice field without options, or an option with neither
// value nor text, is reported as a *ValidationError instead of rendered.
func Render(c *Component) (string, error) {
	d, ok := definitions[c.Type]
	if !ok {
		return "", &UnknownTypeError{Type: string(c.Type)}
	}
	data, err := d.view(c.ID, c.Properties)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := renderSet.ExecuteTemplate(&buf, string(c.Type), data); err != nil {
		return "", fmt.Errorf("render %s %s: %w", c.Type, c.ID, err)
	}
	return buf.String(), nil
}

// base carries what every component template needs on its outer element.
type base struct {
	ID    string
	Style template.CSS
}

// newBase builds the inline style for a component. pairs are extra
// property/value declarations emitted before the common style. Values that
// fail the color or spacing rules are left out.
func newBase(id string, s Style, pairs ...string) base {
	var decls []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" && ValidColor(pairs[i+1]) {
			decls = append(decls, pairs[i]+": "+pairs[i+1])
		}
	}
	if s.Color != "" && ValidColor(s.Color) {
		decls = append(decls, "color: "+s.Color)
	}
	if s.BackgroundColor != "" && ValidColor(s.BackgroundColor) {
		decls = append(decls, "background-color: "+s.BackgroundColor)
	}
	if s.Padding != "" && ValidSpacing(s.Padding) {
		decls = append(decls, "padding: "+s.Padding)
	}
	if s.Margin != "" && ValidSpacing(s.Margin) {
		decls = append(decls, "margin: "+s.Margin)
	}
	if len(decls) == 0 {
		return base{ID: id}
	}
	return base{ID: id, Style: template.CSS(strings.Join(decls, "; "))}
}

func headerView(id string, p Properties) (any, error) {
	h := p.(*HeaderProps)
	return struct {
		base
		P *HeaderProps
	}{newBase(id, h.Style), h}, nil
}

func navbarView(id string, p Properties) (any, error) {
	n := p.(*NavbarProps)
	links := make([]Option, 0, len(n.Links))
	var ps problems
	for i, l := range n.Links {
		switch {
		case strings.TrimSpace(l.Value) == "" && strings.TrimSpace(l.Text) == "":
			ps.add(fmt.Sprintf("links.%d", i), "link has neither href nor text")
		case l.Value == "":
			links = append(links, Option{Value: "#", Text: l.Text})
		case l.Text == "":
			links = append(links, Option{Value: l.Value, Text: l.Value})
		default:
			links = append(links, l)
		}
	}
	if err := ps.err(id); err != nil {
		return nil, err
	}
	return struct {
		base
		P     *NavbarProps
		Links []Option
	}{newBase(id, n.Style), n, links}, nil
}

func tableView(id string, p Properties) (any, error) {
	tb := p.(*TableProps)
	rows := make([][]string, 0, len(tb.Rows))
	for _, r := range tb.Rows {
		row := make([]string, len(tb.Columns))
		copy(row, r)
		rows = append(rows, row)
	}
	return struct {
		base
		BodyID string
		P      *TableProps
		Rows   [][]string
	}{newBase(id, tb.Style), TableBodyID(id), tb, rows}, nil
}

type fieldView struct {
	DomID       string
	Name        string
	Type        FieldType
	Label       string
	Placeholder string
	Required    bool
	Options     []Option
}

// NormalizeOptions fills a missing value from the text and a missing text
// from the value. An option with neither is an error; none is dropped.
func NormalizeOptions(path string, opts []Option) ([]Option, error) {
	out := make([]Option, 0, len(opts))
	var ps problems
	for i, o := range opts {
		switch {
		case strings.TrimSpace(o.Value) == "" && strings.TrimSpace(o.Text) == "":
			ps.add(fmt.Sprintf("%s.%d", path, i), "option has neither value nor text")
		case o.Value == "":
			out = append(out, Option{Value: o.Text, Text: o.Text})
		case o.Text == "":
			out = append(out, Option{Value: o.Value, Text: o.Value})
		default:
			out = append(out, o)
		}
	}
	if err := ps.err(""); err != nil {
		return nil, err
	}
	return out, nil
}

func formView(id string, p Properties) (any, error) {
	f := p.(*FormProps)
	var ps problems
	fields := make([]fieldView, 0, len(f.Fields))
	for i, field := range f.Fields {
		path := fmt.Sprintf("fields.%d", i)
		fv := fieldView{
			DomID:       FieldDomID(id, field.ID),
			Name:        field.ID,
			Type:        field.Type,
			Label:       field.Label,
			Placeholder: field.Placeholder,
			Required:    field.Required,
		}
		if field.Type.IsChoice() {
			if len(field.Options) == 0 {
				ps.add(path+".options", "%s field %q has no options", field.Type, field.ID)
				continue
			}
			opts, err := NormalizeOptions(path+".options", field.Options)
			if err != nil {
				ps = append(ps, err.(*ValidationError).Problems...)
				continue
			}
			fv.Options = opts
		}
		fields = append(fields, fv)
	}
	if err := ps.err(id); err != nil {
		return nil, err
	}
	return struct {
		base
		FormID  string
		ModalID string
		P       *FormProps
		Fields  []fieldView
	}{newBase(id, f.Style), FormID(id), ModalID(id), f, fields}, nil
}

func footerView(id string, p Properties) (any, error) {
	f := p.(*FooterProps)
	return struct {
		base
		P *FooterProps
	}{newBase(id, f.Style, "color", f.TextColor, "background-color", f.BackgroundColor), f}, nil
}

func buttonView(id string, p Properties) (any, error) {
	b := p.(*ButtonProps)
	href := b.Href
	if href == "" {
		href = "#"
	}
	return struct {
		base
		Href string
		P    *ButtonProps
	}{newBase(id, b.Style), href, b}, nil
}

func textView(id string, p Properties) (any, error) {
	t := p.(*TextProps)
	return struct {
		base
		Content template.HTML
	}{newBase(id, t.Style), SanitizeRichText(t.Content)}, nil
}
