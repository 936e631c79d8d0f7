package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateEngine holds the parsed page and fragment templates.
type TemplateEngine struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

// NewTemplateEngine parses every embedded template. Each page is parsed
// together with the layout so the layout wraps it.
func NewTemplateEngine() (*TemplateEngine, error) {
	engine := &TemplateEngine{pages: make(map[string]*template.Template)}

	for _, page := range []string{"index.html"} {
		t, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.pages[page] = t
	}

	fragments, err := template.New("fragments.html").ParseFS(templateFS, "templates/fragments.html")
	if err != nil {
		return nil, fmt.Errorf("parsing fragments: %w", err)
	}
	engine.fragments = fragments

	return engine, nil
}

// Render writes the named page as text/html.
func (e *TemplateEngine) Render(w http.ResponseWriter, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := e.RenderTo(&buf, name, data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// RenderTo writes the named page to an arbitrary writer.
func (e *TemplateEngine) RenderTo(w io.Writer, name string, data interface{}) error {
	t, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// Fragment renders one named fragment to an HTML string.
func (e *TemplateEngine) Fragment(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering fragment %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
