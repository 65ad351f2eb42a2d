// Package generator turns a page into its two artifacts: the JSON snapshot
// used for persistence and the static document used for preview and export.
package generator

import (
	"fmt"
	"html/template"
	"strings"

	"go-page-builder/internal/component"
	"go-page-builder/internal/model"
	"go-page-builder/internal/pagemodel"
	"go-page-builder/internal/templating"

	"go.uber.org/zap"
)

// Document is a generated static page. Markup is the complete HTML
// document with Styles and Script embedded; they are also returned
// separately for export.
type Document struct {
	Markup   string   `json:"markup"`
	Styles   string   `json:"styles"`
	Script   string   `json:"script"`
	Warnings []string `json:"warnings,omitempty"` // Components that could not be rendered
}

// Generator builds documents with one templating engine.
type Generator struct {
	engine *templating.Engine
	logger *zap.Logger
}

// New returns a Generator. A nil engine uses the built-in skeleton and a nil
// logger discards output.
func New(engine *templating.Engine, logger *zap.Logger) *Generator {
	if engine == nil {
		engine = templating.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{engine: engine, logger: logger}
}

var defaultGenerator = New(nil, nil)

// ToSnapshotJSON returns the persisted form of m, as read back by
// pagemodel.Manager.Load.
func ToSnapshotJSON(m *pagemodel.Manager, pretty bool) ([]byte, error) {
	return m.Save(pretty)
}

// ToDocument generates the static document for m with the built-in skeleton.
func ToDocument(m *pagemodel.Manager) (*Document, error) {
	return defaultGenerator.Build(m.Snapshot())
}

// Document generates the static document for m.
func (g *Generator) Document(m *pagemodel.Manager) (*Document, error) {
	return g.Build(m.Snapshot())
}

// Build generates the document for s. s is not modified. A component that
// fails to render is replaced by a comment and reported in Warnings; the
// features that depend on missing components (form wiring without a form,
// row append without a table) are left out. An error is returned only if
// the skeleton itself cannot be executed.
func (g *Generator) Build(s *model.Snapshot) (*Document, error) {
	doc := &Document{}
	present := make(map[component.Type]bool)
	var body strings.Builder

	for _, c := range s.Components {
		present[c.Type] = true
		markup, err := component.Render(c)
		if err != nil {
			g.logger.Warn("component skipped in document", zap.String("id", c.ID), zap.String("type", string(c.Type)), zap.Error(err))
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s %s: %v", c.Type, c.ID, err))
			body.WriteString("<!-- " + commentSafe(fmt.Sprintf("%s %s could not be rendered", c.Type, c.ID)) + " -->\n")
			continue
		}
		body.WriteString(markup)
		body.WriteString("\n")
	}

	script, err := templating.RenderScript(scriptConfig(s.Components))
	if err != nil {
		return nil, err
	}
	doc.Script = script
	doc.Styles = templating.Stylesheet(present)

	page, err := g.engine.RenderPage(templating.PageData{
		Title:       s.Metadata.Title,
		Description: s.Metadata.Description,
		Author:      s.Metadata.Author,
		Body:        template.HTML(body.String()),
		Styles:      template.CSS(doc.Styles),
		Script:      template.JS(doc.Script),
		Inline:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render page %s: %w", s.PageID, err)
	}
	doc.Markup = page
	g.logger.Debug("document generated", zap.String("pageId", s.PageID), zap.Int("components", len(s.Components)), zap.Int("warnings", len(doc.Warnings)))
	return doc, nil
}

// commentSafe keeps text from closing the HTML comment it is placed in.
func commentSafe(s string) string {
	return strings.ReplaceAll(s, "--", "- -")
}

// scriptConfig collects the form wiring for every renderable form.
func scriptConfig(cs []*component.Component) templating.ScriptConfig {
	var cfg templating.ScriptConfig
	for i, c := range cs {
		form, ok := c.Properties.(*component.FormProps)
		if !ok {
			continue
		}
		if _, err := component.Render(c); err != nil {
			continue
		}
		binding := templating.FormBinding{
			ComponentID: c.ID,
			FormID:      component.FormID(c.ID),
			ModalID:     component.ModalID(c.ID),
			Fields:      make([]templating.FieldRule, 0, len(form.Fields)),
		}
		for _, f := range form.Fields {
			rule := templating.FieldRule{
				Name:     f.ID,
				DomID:    component.FieldDomID(c.ID, f.ID),
				Label:    f.Label,
				Type:     string(f.Type),
				Required: f.Required,
			}
			if f.Validation != nil {
				rule.Pattern = f.Validation.Pattern
				rule.Message = f.Validation.Message
			}
			binding.Fields = append(binding.Fields, rule)
		}
		if j := NearestTable(cs, i); j >= 0 {
			table := cs[j].Properties.(*component.TableProps)
			binding.TableBodyID = component.TableBodyID(cs[j].ID)
			binding.Columns = columnFields(table.Columns, form.Fields)
		}
		cfg.Forms = append(cfg.Forms, binding)
	}
	return cfg
}

// NearestTable returns the index of the table closest to position i, or -1.
// Of two tables at the same distance the one after i wins.
func NearestTable(cs []*component.Component, i int) int {
	for d := 1; d < len(cs); d++ {
		if j := i + d; j < len(cs) && cs[j].Type == component.TypeTable {
			return j
		}
		if j := i - d; j >= 0 && cs[j].Type == component.TypeTable {
			return j
		}
	}
	return -1
}

// columnFields maps each table column to the field that fills it. A column
// takes the field whose label or id matches its header, ignoring case;
// the remaining columns take the unmatched fields in order.
func columnFields(columns []string, fields []component.Field) []string {
	out := make([]string, len(columns))
	used := make(map[string]bool, len(fields))
	for ci, col := range columns {
		key := strings.TrimSpace(col)
		for _, f := range fields {
			if used[f.ID] {
				continue
			}
			if strings.EqualFold(key, f.Label) || strings.EqualFold(key, f.ID) {
				out[ci] = f.ID
				used[f.ID] = true
				break
			}
		}
	}
	next := 0
	for ci := range out {
		if out[ci] != "" {
			continue
		}
		for next < len(fields) && used[fields[next].ID] {
			next++
		}
		if next == len(fields) {
			break
		}
		out[ci] = fields[next].ID
		used[fields[next].ID] = true
	}
	return out
}
