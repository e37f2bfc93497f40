// Package vanilla renders session pages as server-side HTML using embedded
// pongo2 templates. Field markup comes from a component registry keyed by
// control kind; section descriptions pass through a bluemonday policy and
// everything else is escaped by the template engine.
package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-stepform/pkg/render"
	rendertemplate "github.com/goliatone/go-stepform/pkg/render/template"
	gotemplate "github.com/goliatone/go-stepform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-stepform/pkg/renderers/vanilla/components"
)

// Routes are the form actions the pages post to.
type Routes struct {
	Login  string
	Form   string
	Retry  string
	Logout string
}

// DefaultRoutes matches the routes served by the stepform HTTP server.
func DefaultRoutes() Routes {
	return Routes{Login: "/login", Form: "/form", Retry: "/form/retry", Logout: "/logout"}
}

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	registry         *components.Registry
	overrides        map[string]string
	componentConfig  map[string]map[string]any
	sanitizer        *bluemonday.Policy
	classes          ChromeClasses
	routes           Routes
	stylesheetHref   string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponentRegistry replaces the default component registry.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithComponentOverride draws the field with the named component instead of
// the one matching its control.
func WithComponentOverride(fieldID, component string) Option {
	return func(cfg *config) {
		if cfg.overrides == nil {
			cfg.overrides = make(map[string]string)
		}
		cfg.overrides[strings.TrimSpace(fieldID)] = component
	}
}

// WithComponentConfig passes extra template data to a field's component as
// "config".
func WithComponentConfig(fieldID string, data map[string]any) Option {
	return func(cfg *config) {
		if cfg.componentConfig == nil {
			cfg.componentConfig = make(map[string]map[string]any)
		}
		cfg.componentConfig[strings.TrimSpace(fieldID)] = data
	}
}

// WithSanitizer replaces the bluemonday UGC policy applied to section
// descriptions.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.sanitizer = policy
		}
	}
}

// WithChromeClasses appends caller classes to the page chrome.
func WithChromeClasses(classes ChromeClasses) Option {
	return func(cfg *config) {
		cfg.classes = classes
	}
}

// WithRoutes overrides the form actions.
func WithRoutes(routes Routes) Option {
	return func(cfg *config) {
		defaults := DefaultRoutes()
		cfg.routes = Routes{
			Login:  firstNonEmpty(routes.Login, defaults.Login),
			Form:   firstNonEmpty(routes.Form, defaults.Form),
			Retry:  firstNonEmpty(routes.Retry, defaults.Retry),
			Logout: firstNonEmpty(routes.Logout, defaults.Logout),
		}
	}
}

// WithStylesheetHref links the stylesheet at href instead of inlining the
// bundled one.
func WithStylesheetHref(href string) Option {
	return func(cfg *config) {
		cfg.stylesheetHref = strings.TrimSpace(href)
	}
}

// Renderer is the HTML implementation of render.Renderer.
type Renderer struct {
	templates      rendertemplate.TemplateRenderer
	registry       *components.Registry
	overrides      map[string]string
	config         map[string]map[string]any
	sanitizer      *bluemonday.Policy
	classes        ChromeClasses
	routes         Routes
	stylesheet     string
	stylesheetHref string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		routes:     DefaultRoutes(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	templates := cfg.templateRenderer
	if templates == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		templates = engine
	}
	if cfg.registry == nil {
		cfg.registry = components.NewDefaultRegistry()
	}
	if cfg.sanitizer == nil {
		cfg.sanitizer = bluemonday.UGCPolicy()
	}

	r := &Renderer{
		templates:      templates,
		registry:       cfg.registry,
		overrides:      cfg.overrides,
		config:         cfg.componentConfig,
		sanitizer:      cfg.sanitizer,
		classes:        DefaultChromeClasses().merge(cfg.classes),
		routes:         cfg.routes,
		stylesheetHref: cfg.stylesheetHref,
	}
	if r.stylesheetHref == "" {
		r.stylesheet = defaultStylesheet()
	}
	return r, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render draws the page body for page.Kind and wraps it in the layout.
func (r *Renderer) Render(_ context.Context, page render.Page) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}

	routes := r.routes
	if page.Action != "" {
		routes.Form = page.Action
	}

	data := map[string]any{
		"page":    page,
		"routes":  routesContext(routes),
		"classes": r.classes.context(),
	}

	fields := newComponentRenderer(r.templates, r.registry, r.overrides, r.config)
	switch page.Kind {
	case render.PageSection:
		if page.Section == nil {
			return nil, fmt.Errorf("vanilla renderer: section page without a section")
		}
		rendered, err := fields.renderAll(page.Section.Fields)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: %w", err)
		}
		data["fields"] = rendered
		data["description"] = r.sanitizer.Sanitize(page.Section.Description)
	case render.PageDone:
		data["summary"] = summarize(page.Submitted)
	case render.PageLogin, render.PageLoading, render.PageFailed:
	default:
		return nil, fmt.Errorf("vanilla renderer: unknown page kind %q", page.Kind)
	}

	body, err := r.templates.RenderTemplate("templates/"+string(page.Kind)+".tmpl", data)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render %s: %w", page.Kind, err)
	}

	result, err := r.templates.RenderTemplate("templates/layout.tmpl", map[string]any{
		"title":          pageTitle(page),
		"body":           body,
		"refresh":        page.Kind == render.PageLoading,
		"stylesheet":     r.stylesheet,
		"stylesheetHref": r.stylesheetHref,
		"stylesheets":    fields.stylesheets(),
		"classes":        r.classes.context(),
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render layout: %w", err)
	}
	return []byte(result), nil
}

func pageTitle(page render.Page) string {
	switch {
	case page.Kind == render.PageLogin:
		return "Sign in"
	case page.FormTitle != "":
		return page.FormTitle
	default:
		return "Form"
	}
}

func routesContext(routes Routes) map[string]any {
	return map[string]any{
		"login":  routes.Login,
		"form":   routes.Form,
		"retry":  routes.Retry,
		"logout": routes.Logout,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
