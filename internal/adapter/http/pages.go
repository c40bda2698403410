package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	IndexPage    = "index.html"
	ChancePage   = "chance.html"
	NoChancePage = "noChance.html"
)

var pageNames = []string{IndexPage, ChancePage, NoChancePage}

// Field describes one form input on the index page.
type Field struct {
	Name    string
	Numeric bool
	Options []string
}

// indexData is passed to index.html.
type indexData struct {
	Fields []Field
}

// resultData is passed to chance.html and noChance.html.
type resultData struct {
	Location        string
	FallbackColumns []string
}

// Pages holds the parsed page templates.
type Pages struct {
	templates map[string]*template.Template
}

// NewPages parses the three page templates from dir, or the embedded
// defaults when dir is empty. Every page must be present.
func NewPages(dir string) (*Pages, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	p := &Pages{templates: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("pages: parse %s: %w", name, err)
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

// Render executes a page into w. Output is buffered so a failed render
// writes nothing.
func (p *Pages) Render(w io.Writer, name string, data any) error {
	tmpl, ok := p.templates[name]
	if !ok {
		return fmt.Errorf("pages: unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("pages: render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// formFields lists the index page inputs in training order.
func formFields(options map[string][]string) []Field {
	fields := make([]Field, len(domain.Columns))
	for i, c := range domain.Columns {
		fields[i] = Field{Name: c.Name, Numeric: c.Kind == domain.Numeric, Options: options[c.Name]}
	}
	return fields
}
