package components

import (
	"bytes"
	"fmt"

	"github.com/goliatone/go-stepform/pkg/render"
)

const templatePrefix = "templates/components/"

// NewDefaultRegistry returns a registry with one template-backed component
// per control kind.
func NewDefaultRegistry() *Registry {
	registry := New()

	registry.MustRegister(NameInput, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "input.tmpl"),
	})
	registry.MustRegister(NameTextarea, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "textarea.tmpl"),
	})
	registry.MustRegister(NameSelect, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "select.tmpl"),
	})
	registry.MustRegister(NameRadio, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "radio.tmpl"),
	})
	registry.MustRegister(NameCheckbox, Descriptor{
		Renderer: TemplateRenderer(templatePrefix + "checkbox.tmpl"),
	})

	return registry
}

// TemplateRenderer renders a field through the named template. The template
// receives "field" (the bound render.FieldView) and "config".
func TemplateRenderer(templateName string) Renderer {
	return func(buf *bytes.Buffer, field render.FieldView, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}

		payload := map[string]any{
			"field":  field,
			"config": data.Config,
		}
		rendered, err := data.Template.RenderTemplate(templateName, payload)
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", templateName, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}
