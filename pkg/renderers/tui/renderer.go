// Package tui walks a form session through terminal prompts. Each section is
// asked field by field, answers flow through the session, and the chosen
// control (back, next, submit) drives navigation until the form is submitted.
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/session"
)

// Labels of the navigation choices offered after each section.
const (
	ActionBack   = "Back"
	ActionNext   = "Next"
	ActionSubmit = "Submit"
)

// Renderer implements render.Renderer for terminal sessions. Render produces a
// plain text snapshot; Run drives the interactive walkthrough.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	logger            *zap.Logger
	plain             *bluemonday.Policy
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		logger:       zap.NewNop(),
		plain:        bluemonday.StrictPolicy(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}

	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Run.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render writes a plain text snapshot of the page without prompting.
func (r *Renderer) Render(ctx context.Context, page render.Page) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var b strings.Builder
	switch page.Kind {
	case render.PageLogin:
		b.WriteString("Sign in with your roll number and name.\n")
		if page.Message != "" {
			b.WriteString(r.theme.ErrorPrefix + page.Message + "\n")
		}
	case render.PageLoading:
		fmt.Fprintf(&b, "Loading the form for %s...\n", page.Identifier)
	case render.PageFailed:
		b.WriteString(r.theme.ErrorPrefix + page.Message + "\n")
	case render.PageSection:
		r.writeSection(&b, page)
	case render.PageDone:
		fmt.Fprintf(&b, "%s submitted. Thank you, %s.\n", page.FormTitle, page.Name)
	default:
		return nil, fmt.Errorf("tui: unknown page kind %q", page.Kind)
	}
	return []byte(b.String()), nil
}

func (r *Renderer) writeSection(b *strings.Builder, page render.Page) {
	if page.Section == nil {
		return
	}
	fmt.Fprintf(b, "%s (step %d of %d)\n", page.FormTitle, page.Step, page.Total)
	fmt.Fprintf(b, "== %s ==\n", page.Section.Title)
	if desc := r.plainText(page.Section.Description); desc != "" {
		b.WriteString(desc + "\n")
	}
	for _, msg := range page.FormErrors {
		b.WriteString(r.theme.ErrorPrefix + msg + "\n")
	}
	for _, field := range page.Section.Fields {
		fmt.Fprintf(b, "%s: %s\n", fieldLabel(field), viewValue(field))
		if field.Error != "" {
			b.WriteString("  " + r.theme.ErrorPrefix + field.Error + "\n")
		}
	}
}

// Login asks for the roll number and name that open a session.
func (r *Renderer) Login(ctx context.Context) (session.Identity, error) {
	required := func(label string) func(string) error {
		return func(v string) error {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		}
	}
	identifier, err := r.driver.Input(ctx, InputConfig{Message: "Roll number", Validator: required("Roll number")})
	if err != nil {
		return session.Identity{}, err
	}
	name, err := r.driver.Input(ctx, InputConfig{Message: "Name", Validator: required("Name")})
	if err != nil {
		return session.Identity{}, err
	}
	return session.NewIdentity(identifier, name)
}

// Run loads the schema with fetcher when the session has none yet, walks the
// sections until the form is submitted and returns the serialized values.
// A nil fetcher is allowed for sessions that are already ready.
func (r *Renderer) Run(ctx context.Context, s *session.Session, fetcher session.Fetcher) ([]byte, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	if err := r.load(ctx, s, fetcher); err != nil {
		return nil, err
	}

	for s.State() == session.StateReady {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := s.Page()
		if err := r.info(ctx, strings.TrimRight(r.renderText(page), "\n")); err != nil {
			return nil, err
		}
		if err := r.promptSection(ctx, s, page); err != nil {
			return nil, err
		}
		if err := r.activate(ctx, s); err != nil {
			return nil, err
		}
	}

	submission, ok := s.Submission()
	if !ok {
		return nil, fmt.Errorf("tui: session ended in state %s", s.State())
	}
	values := submission.Values
	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	schema, _ := s.Schema()
	return r.serialize(values, schema)
}

func (r *Renderer) load(ctx context.Context, s *session.Session, fetcher session.Fetcher) error {
	for s.CanLoad() {
		if err := r.info(ctx, fmt.Sprintf("Loading the form for %s...", s.Identity().Identifier)); err != nil {
			return err
		}
		err := s.Load(ctx, fetcher)
		if err == nil {
			return nil
		}
		if errors.Is(err, session.ErrNilFetcher) {
			return fmt.Errorf("tui: %w", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.logger.Warn("form load failed", zap.Error(err))
		if err := r.info(ctx, r.theme.ErrorPrefix+session.FailedMessage); err != nil {
			return err
		}
		retry, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
		if err != nil {
			return err
		}
		if !retry {
			return fmt.Errorf("%w: %w", ErrLoadAbandoned, s.Err())
		}
	}
	return nil
}

func (r *Renderer) promptSection(ctx context.Context, s *session.Session, page render.Page) error {
	if page.Section == nil {
		return fmt.Errorf("tui: ready session without a section")
	}
	for _, field := range page.Section.Fields {
		value, err := r.promptField(ctx, field)
		if err != nil {
			return err
		}
		if err := s.SetValue(field.ID, value); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
	}
	return nil
}

func (r *Renderer) promptField(ctx context.Context, field render.FieldView) (any, error) {
	label := fieldLabel(field)
	help := field.Error
	if help == "" {
		help = field.Placeholder
	}

	switch field.Control {
	case render.ControlCheckbox:
		return r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: field.Checked, Help: help})
	case render.ControlSelect, render.ControlRadio:
		options := make([]string, len(field.Options))
		selected := -1
		for i, opt := range field.Options {
			options[i] = opt.Label
			if opt.Selected {
				selected = i
			}
		}
		if len(options) == 0 {
			return "", nil
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      options,
			DefaultIndex: selected,
			Help:         help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return nil, fmt.Errorf("tui: choice %d out of range for %q", idx, field.ID)
		}
		return field.Options[idx].Value, nil
	case render.ControlTextarea:
		return r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: field.Value, Help: help})
	default:
		return r.driver.Input(ctx, InputConfig{Message: label, Default: field.Value, Help: help})
	}
}

// activate asks which control to use and applies it. Validation failures and
// rejected submissions are printed; the loop in Run shows the section again.
func (r *Renderer) activate(ctx context.Context, s *session.Session) error {
	controls := s.Controls()
	var actions []string
	if controls.Back {
		actions = append(actions, ActionBack)
	}
	if controls.Next {
		actions = append(actions, ActionNext)
	}
	if controls.Submit {
		actions = append(actions, ActionSubmit)
	}

	idx, err := r.driver.Select(ctx, SelectConfig{Message: "Continue", Options: actions, DefaultIndex: len(actions) - 1})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(actions) {
		return fmt.Errorf("tui: action %d out of range", idx)
	}

	switch actions[idx] {
	case ActionBack:
		_, err = s.Prev()
		return err
	case ActionNext:
		moved, err := s.Next()
		if err != nil {
			return err
		}
		if !moved {
			return r.reportErrors(ctx, s)
		}
		return nil
	default:
		submitted, err := s.Submit(ctx)
		if err != nil {
			if s.State() != session.StateReady {
				return err
			}
			r.logger.Warn("submission failed", zap.Error(err))
			if infoErr := r.info(ctx, r.theme.ErrorPrefix+"Submission failed: "+err.Error()); infoErr != nil {
				return infoErr
			}
			return r.reportErrors(ctx, s)
		}
		if !submitted {
			return r.reportErrors(ctx, s)
		}
		return r.info(ctx, r.theme.InfoPrefix+"Form submitted.")
	}
}

func (r *Renderer) reportErrors(ctx context.Context, s *session.Session) error {
	fields, err := s.Fields()
	if err != nil {
		return err
	}
	for _, field := range fields {
		if msg := s.ErrorFor(field.ID); msg != "" {
			if err := r.info(ctx, r.theme.ErrorPrefix+field.DisplayLabel()+": "+msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) renderText(page render.Page) string {
	var b strings.Builder
	r.writeSection(&b, page)
	return b.String()
}

func (r *Renderer) plainText(html string) string {
	if html == "" {
		return ""
	}
	return strings.TrimSpace(r.plain.Sanitize(html))
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	if msg == "" {
		return nil
	}
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Renderer) serialize(values model.Values, schema model.FormSchema) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(encodeForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values, schema)), nil
	default:
		out, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("tui: encode json: %w", err)
		}
		return out, nil
	}
}

func fieldLabel(field render.FieldView) string {
	if field.Required {
		return field.Label + " *"
	}
	return field.Label
}

func viewValue(field render.FieldView) string {
	switch field.Control {
	case render.ControlCheckbox:
		return formatValue(field.Checked)
	case render.ControlSelect, render.ControlRadio:
		for _, opt := range field.Options {
			if opt.Selected && opt.Value != "" {
				return opt.Label
			}
		}
		return ""
	default:
		return field.Value
	}
}

func encodeForm(values model.Values) string {
	form := url.Values{}
	for id, value := range values {
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				form.Add(id, item)
			}
		case bool:
			form.Set(id, strconv.FormatBool(v))
		default:
			form.Set(id, fmt.Sprint(v))
		}
	}
	return form.Encode()
}

// prettyPrint lists values in schema order, followed by any values the schema
// does not declare.
func prettyPrint(values model.Values, schema model.FormSchema) string {
	var b strings.Builder
	seen := make(map[string]struct{}, len(values))
	for _, section := range schema.Sections {
		for _, field := range section.Fields {
			value, ok := values[field.ID]
			if !ok {
				continue
			}
			seen[field.ID] = struct{}{}
			fmt.Fprintf(&b, "%s: %s\n", field.DisplayLabel(), formatValue(value))
		}
	}
	var rest []string
	for id := range values {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	for _, id := range rest {
		fmt.Fprintf(&b, "%s: %s\n", model.DefaultLabeler(id), formatValue(values[id]))
	}
	return b.String()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []string:
		return strings.Join(v, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
