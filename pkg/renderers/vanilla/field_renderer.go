package vanilla

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/render/template"
	"github.com/goliatone/go-stepform/pkg/renderers/vanilla/components"
)

// componentRenderer draws bound fields through the component registry and
// remembers which components a page used.
type componentRenderer struct {
	templates template.TemplateRenderer
	registry  *components.Registry
	overrides map[string]string
	config    map[string]map[string]any

	usedComponents map[string]struct{}
}

func newComponentRenderer(templates template.TemplateRenderer, registry *components.Registry, overrides map[string]string, config map[string]map[string]any) *componentRenderer {
	if registry == nil {
		registry = components.NewDefaultRegistry()
	}
	return &componentRenderer{
		templates:      templates,
		registry:       registry,
		overrides:      overrides,
		config:         config,
		usedComponents: make(map[string]struct{}),
	}
}

func (r *componentRenderer) render(field render.FieldView) (string, error) {
	name := strings.TrimSpace(r.overrides[field.ID])
	if name == "" {
		name = string(field.Control)
	}

	descriptor, ok := r.registry.Descriptor(name)
	if !ok {
		return "", fmt.Errorf("component %q not registered for field %q", name, field.ID)
	}

	var buf bytes.Buffer
	data := components.ComponentData{
		Template: r.templates,
		Config:   r.config[field.ID],
	}
	if err := descriptor.Renderer(&buf, field, data); err != nil {
		return "", fmt.Errorf("render field %q: %w", field.ID, err)
	}
	r.usedComponents[descriptor.Name] = struct{}{}
	return buf.String(), nil
}

func (r *componentRenderer) renderAll(fields []render.FieldView) ([]string, error) {
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		html, err := r.render(field)
		if err != nil {
			return nil, err
		}
		out = append(out, html)
	}
	return out, nil
}

func (r *componentRenderer) stylesheets() []string {
	names := make([]string, 0, len(r.usedComponents))
	for name := range r.usedComponents {
		names = append(names, name)
	}
	slices.Sort(names)
	return r.registry.Stylesheets(names)
}
