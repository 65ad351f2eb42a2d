// Package templating holds the document skeleton and the script bundle that
// wrap rendered components into a complete static page.
package templating

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
)

const defaultPageTemplate = `{{ define "page" }}<!DOCTYPE html>
<html lang="{{ .Lang }}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="generator" content="go-page-builder">
{{- with .Description }}
<meta name="description" content="{{ . }}">
{{- end }}
{{- with .Author }}
<meta name="author" content="{{ . }}">
{{- end }}
<title>{{ .Title }}</title>
<link rel="stylesheet" href="{{ .BootstrapCSS }}">
{{- if .Inline }}
<style>
{{ .Styles }}
</style>
{{- else }}
<link rel="stylesheet" href="styles.css">
{{- end }}
</head>
<body>
<main class="pb-page container-fluid">
{{ .Body }}
</main>
<script src="{{ .BootstrapJS }}"></script>
{{- if .Inline }}
<script>
{{ .Script }}
</script>
{{- else }}
<script src="script.js"></script>
{{- end }}
</body>
</html>
{{ end }}`

const (
	bootstrapCSS = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css"
	bootstrapJS  = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/js/bootstrap.bundle.min.js"
)

// PageData is what the "page" template is executed with.
type PageData struct {
	Title        string
	Description  string
	Author       string
	Lang         string
	Body         template.HTML // Concatenated component markup
	Styles       template.CSS
	Script       template.JS
	Inline       bool // Embed styles and script instead of linking styles.css and script.js
	BootstrapCSS string
	BootstrapJS  string
}

// Engine executes the document skeleton.
type Engine struct {
	pages *template.Template
}

// NewEngine returns an engine using the built-in skeleton.
func NewEngine() *Engine {
	return &Engine{pages: template.Must(template.New("document").Parse(defaultPageTemplate))}
}

// NewEngineFromDir returns an engine whose skeleton is overridden by the
// *.html and *.tmpl files in dir. One of them must define "page". An empty
// dir or one with no template files yields the built-in skeleton.
func NewEngineFromDir(dir string) (*Engine, error) {
	e := NewEngine()
	if dir == "" {
		return e, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.[th][mt][lm]l"))
	if err != nil {
		return nil, fmt.Errorf("error finding layout files in %s: %w", dir, err)
	}
	if len(files) == 0 {
		return e, nil
	}
	set, err := template.New("document").Parse(defaultPageTemplate)
	if err != nil {
		return nil, err
	}
	if set, err = set.ParseFiles(files...); err != nil {
		return nil, fmt.Errorf("failed to parse layouts from %s: %w", dir, err)
	}
	e.pages = set
	return e, nil
}

// RenderPage executes the "page" template with data, filling in defaults
// for the language and the Bootstrap locations.
func (e *Engine) RenderPage(data PageData) (string, error) {
	if data.Lang == "" {
		data.Lang = "en"
	}
	if data.BootstrapCSS == "" {
		data.BootstrapCSS = bootstrapCSS
	}
	if data.BootstrapJS == "" {
		data.BootstrapJS = bootstrapJS
	}
	var buf bytes.Buffer
	if err := e.pages.ExecuteTemplate(&buf, "page", data); err != nil {
		if strings.Contains(err.Error(), `no such template "page"`) {
			return "", fmt.Errorf("failed to execute page template: a layout must contain '{{ define \"page\" }} ... {{ end }}'")
		}
		return "", fmt.Errorf("failed to execute page template: %w", err)
	}
	return buf.String(), nil
}
