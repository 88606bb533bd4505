package web

import (
	_ "embed"
	"fmt"
	"io"

	"github.com/flosch/pongo2/v6"
	"github.com/labstack/echo/v4"
)

//go:embed templates/index.html
var indexTemplate string

// templateIndex is the name of the clock page.
const templateIndex = "index"

// renderer renders pongo2 templates for echo.
type renderer struct {
	templates map[string]*pongo2.Template
}

var _ echo.Renderer = (*renderer)(nil)

func newRenderer() (*renderer, error) {
	index, err := pongo2.FromString(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", templateIndex, err)
	}

	return &renderer{
		templates: map[string]*pongo2.Template{
			templateIndex: index,
		},
	}, nil
}

// Render executes the named template with a pongo2.Context.
func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	tpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}

	ctx, ok := data.(pongo2.Context)
	if !ok {
		return fmt.Errorf("template %q needs a pongo2.Context, got %T", name, data)
	}

	return tpl.ExecuteWriter(ctx, w)
}
