package generator

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Outline summarizes the structure of a generated document.
type Outline struct {
	Title      string         `json:"title"`
	Components []string       `json:"components"` // Ids of top-level component elements in order
	Headings   []Heading      `json:"headings"`
	Forms      []FormOutline  `json:"forms"`
	Tables     []TableOutline `json:"tables"`
	Links      []Link         `json:"links"`
	Scripts    int            `json:"scripts"`
}

// Heading is one h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// FormOutline is one form and its inputs.
type FormOutline struct {
	ID     string         `json:"id"`
	Inputs []InputOutline `json:"inputs"`
}

// InputOutline is one named input, textarea or select.
type InputOutline struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Options  int    `json:"options,omitempty"`
}

// TableOutline is one table with its header cells.
type TableOutline struct {
	BodyID  string   `json:"bodyId"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// Link is one anchor.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Inspect parses markup and reports its outline.
func Inspect(markup string) (*Outline, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	out := &Outline{
		Title:      strings.TrimSpace(doc.Find("title").First().Text()),
		Components: []string{},
		Headings:   []Heading{},
		Forms:      []FormOutline{},
		Tables:     []TableOutline{},
		Links:      []Link{},
	}

	doc.Find("main.pb-page").Children().Each(func(_ int, s *goquery.Selection) {
		if id := getAttr(s, "id"); id != "" {
			out.Components = append(out.Components, id)
		}
	})

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := int(goquery.NodeName(s)[1] - '0')
		out.Headings = append(out.Headings, Heading{Level: level, Text: strings.TrimSpace(s.Text())})
	})

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		f := FormOutline{ID: getAttr(form, "id"), Inputs: []InputOutline{}}
		seen := make(map[string]bool)
		form.Find("input, textarea, select").Each(func(_ int, input *goquery.Selection) {
			name := getAttr(input, "name")
			if name == "" || seen[name] {
				return
			}
			seen[name] = true
			inputType := goquery.NodeName(input)
			if inputType == "input" {
				inputType = getAttr(input, "type")
				if inputType == "" {
					inputType = "text"
				}
			}
			_, required := input.Attr("required")
			in := InputOutline{Name: name, Type: inputType, Required: required}
			switch inputType {
			case "select":
				in.Options = input.Find("option").Length()
			case "radio", "checkbox":
				in.Options = form.Find(fmt.Sprintf("input[name=%q]", name)).Length()
			}
			f.Inputs = append(f.Inputs, in)
		})
		out.Forms = append(out.Forms, f)
	})

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		t := TableOutline{Columns: []string{}}
		table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
			t.Columns = append(t.Columns, strings.TrimSpace(th.Text()))
		})
		body := table.Find("tbody").First()
		t.BodyID = getAttr(body, "id")
		t.Rows = body.Find("tr").Length()
		out.Tables = append(out.Tables, t)
	})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		out.Links = append(out.Links, Link{Href: getAttr(a, "href"), Text: strings.TrimSpace(a.Text())})
	})

	out.Scripts = doc.Find("script").Length()
	return out, nil
}

func getAttr(sel *goquery.Selection, name string) string {
	v, _ := sel.Attr(name)
	return v
}
