// Package interactive renders a form session as a full-screen bubbletea
// program. The schema is fetched by a command while a spinner runs, fields are
// edited in place and every change is written through the session.
package interactive

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/session"
)

// schemaMsg carries the outcome of a schema fetch back to Update.
type schemaMsg struct {
	schema model.FormSchema
	err    error
}

// Option configures the model.
type Option func(*Model)

// WithStyles replaces the default styles.
func WithStyles(styles Styles) Option {
	return func(m *Model) {
		m.styles = styles
	}
}

// WithLogger sets the logger used for load and submission failures.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Model is the bubbletea model driving one session.
type Model struct {
	ctx     context.Context
	session *session.Session
	fetcher session.Fetcher
	styles  Styles
	logger  *zap.Logger
	plain   *bluemonday.Policy

	spinner  spinner.Model
	fetching bool

	section int
	focus   int
	inputs  map[string]textinput.Model
	areas   map[string]textarea.Model

	status   string
	quitting bool
}

var _ tea.Model = Model{}

// New builds a model for s. fetcher is used by Init and by retries; it may be
// nil when the session is already ready.
func New(ctx context.Context, s *session.Session, fetcher session.Fetcher, opts ...Option) Model {
	m := Model{
		ctx:     ctx,
		session: s,
		fetcher: fetcher,
		styles:  DefaultStyles(),
		logger:  zap.NewNop(),
		plain:   bluemonday.StrictPolicy(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		section: -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.fetching = s.CanLoad() && fetcher != nil
	m.syncSection()
	return m
}

// Session returns the session the model drives.
func (m Model) Session() *session.Session { return m.session }

// Init starts the schema fetch when the session still needs one.
func (m Model) Init() tea.Cmd {
	if !m.fetching {
		return textinput.Blink
	}
	return tea.Batch(m.fetch(), m.spinner.Tick)
}

// fetch returns a command performing the request outside the update loop. It
// only touches the fetcher; the session is updated when schemaMsg arrives.
func (m Model) fetch() tea.Cmd {
	ctx, fetcher, identifier := m.ctx, m.fetcher, m.session.Identity().Identifier
	return func() tea.Msg {
		schema, err := fetcher.FetchSchema(ctx, identifier)
		return schemaMsg{schema: schema, err: err}
	}
}

// Update handles key presses and load results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case schemaMsg:
		return m.resolve(msg)
	case spinner.TickMsg:
		if !m.fetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.session.State() {
		case session.StateReady:
			return m.updateReady(msg)
		case session.StateFailed:
			return m.updateFailed(msg)
		case session.StateSubmitted:
			if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc || isRune(msg, 'q') {
				m.quitting = true
				return m, tea.Quit
			}
		default:
			if !m.fetching {
				return m.updateFailed(msg)
			}
			if msg.Type == tea.KeyEsc {
				m.quitting = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// Fetching reports whether a schema request is in flight.
func (m Model) Fetching() bool { return m.fetching }

func (m Model) resolve(msg schemaMsg) (tea.Model, tea.Cmd) {
	m.fetching = false
	if err := m.session.Resolve(msg.schema, msg.err); err != nil {
		m.logger.Warn("form load failed", zap.Error(err))
		m.status = session.FailedMessage
		return m, nil
	}
	m.status = ""
	return m, m.syncSection()
}

// updateFailed offers retry and quit once a fetch has failed. Sessions using
// legacy loading stay in the loading state after a failure and land here too.
func (m Model) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case isRune(msg, 'r') && !m.fetching && m.fetcher != nil:
		m.fetching = true
		m.status = ""
		return m, tea.Batch(m.fetch(), m.spinner.Tick)
	case msg.Type == tea.KeyEsc || isRune(msg, 'q'):
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateReady(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := m.views()
	switch msg.Type {
	case tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyTab:
		return m, m.moveFocus(1, len(fields))
	case tea.KeyShiftTab:
		return m, m.moveFocus(-1, len(fields))
	case tea.KeyCtrlN:
		return m.navigate(m.session.Next, "Please fix the highlighted fields.")
	case tea.KeyCtrlP:
		return m.navigate(m.session.Prev, "")
	case tea.KeyCtrlS:
		return m.submit()
	}

	if m.focus < 0 || m.focus >= len(fields) {
		return m, nil
	}
	field := fields[m.focus]

	switch field.Control {
	case render.ControlSelect, render.ControlRadio:
		switch msg.Type {
		case tea.KeyLeft:
			m.setValue(field.ID, cycle(field.Options, -1))
		case tea.KeyRight:
			m.setValue(field.ID, cycle(field.Options, 1))
		case tea.KeyEnter:
			return m, m.moveFocus(1, len(fields))
		}
		return m, nil
	case render.ControlCheckbox:
		switch {
		case msg.Type == tea.KeySpace || isRune(msg, ' '):
			m.setValue(field.ID, !field.Checked)
		case msg.Type == tea.KeyEnter:
			return m, m.moveFocus(1, len(fields))
		}
		return m, nil
	case render.ControlTextarea:
		area, ok := m.areas[field.ID]
		if !ok {
			return m, nil
		}
		var cmd tea.Cmd
		area, cmd = area.Update(msg)
		m.areas[field.ID] = area
		if area.Value() != field.Value {
			m.setValue(field.ID, area.Value())
		}
		return m, cmd
	default:
		if msg.Type == tea.KeyEnter {
			return m, m.moveFocus(1, len(fields))
		}
		input, ok := m.inputs[field.ID]
		if !ok {
			return m, nil
		}
		var cmd tea.Cmd
		input, cmd = input.Update(msg)
		m.inputs[field.ID] = input
		if input.Value() != field.Value {
			m.setValue(field.ID, input.Value())
		}
		return m, cmd
	}
}

func (m *Model) setValue(id string, value any) {
	if err := m.session.SetValue(id, value); err != nil {
		m.logger.Debug("value rejected", zap.String("field", id), zap.Error(err))
		m.status = err.Error()
		return
	}
	m.status = ""
}

// navigate applies Next or Prev. stuck is shown when the step did not move.
func (m Model) navigate(step func() (bool, error), stuck string) (tea.Model, tea.Cmd) {
	moved, err := step()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if !moved {
		m.status = stuck
		return m, nil
	}
	m.status = ""
	return m, m.syncSection()
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.session.Controls().Submit {
		m.status = "Submit is available on the last section."
		return m, nil
	}
	ok, err := m.session.Submit(m.ctx)
	switch {
	case err != nil:
		m.logger.Warn("submission failed", zap.Error(err))
		m.status = "Submission failed: " + err.Error()
	case !ok:
		m.status = "Please fix the highlighted fields."
	default:
		m.status = ""
	}
	return m, nil
}

// syncSection rebuilds the editing widgets when the visible section changed.
func (m *Model) syncSection() tea.Cmd {
	idx, err := m.session.Index()
	if err != nil || idx == m.section {
		return nil
	}
	m.section = idx
	m.focus = 0
	m.inputs = make(map[string]textinput.Model)
	m.areas = make(map[string]textarea.Model)

	for _, field := range m.views() {
		switch field.Control {
		case render.ControlInput:
			input := textinput.New()
			input.Placeholder = field.Placeholder
			if field.MaxLength != nil {
				input.CharLimit = *field.MaxLength
			}
			input.SetValue(field.Value)
			m.inputs[field.ID] = input
		case render.ControlTextarea:
			area := textarea.New()
			area.Placeholder = field.Placeholder
			area.ShowLineNumbers = false
			area.SetWidth(60)
			area.SetHeight(4)
			if field.MaxLength != nil {
				area.CharLimit = *field.MaxLength
			}
			area.SetValue(field.Value)
			m.areas[field.ID] = area
		}
	}
	return m.applyFocus()
}

func (m *Model) moveFocus(delta, count int) tea.Cmd {
	if count == 0 {
		return nil
	}
	m.focus = ((m.focus+delta)%count + count) % count
	return m.applyFocus()
}

func (m *Model) applyFocus() tea.Cmd {
	fields := m.views()
	var cmds []tea.Cmd
	for i, field := range fields {
		if input, ok := m.inputs[field.ID]; ok {
			if i == m.focus {
				cmds = append(cmds, input.Focus())
			} else {
				input.Blur()
			}
			m.inputs[field.ID] = input
		}
		if area, ok := m.areas[field.ID]; ok {
			if i == m.focus {
				cmds = append(cmds, area.Focus())
			} else {
				area.Blur()
			}
			m.areas[field.ID] = area
		}
	}
	return tea.Batch(cmds...)
}

// views binds the visible section with the session's current values.
func (m Model) views() []render.FieldView {
	page := m.session.Page()
	if page.Section == nil {
		return nil
	}
	return page.Section.Fields
}

// Focused returns the identifier of the focused field.
func (m Model) Focused() string {
	fields := m.views()
	if m.focus < 0 || m.focus >= len(fields) {
		return ""
	}
	return fields[m.focus].ID
}

// Status returns the last transient message shown under the form.
func (m Model) Status() string { return m.status }

// Quitting reports whether the model asked the program to exit.
func (m Model) Quitting() bool { return m.quitting }

// cycle returns the option value delta steps away from the selected one,
// wrapping around. With nothing selected it starts from the first option.
func cycle(options []render.OptionView, delta int) string {
	if len(options) == 0 {
		return ""
	}
	current := -1
	for i, opt := range options {
		if opt.Selected {
			current = i
			break
		}
	}
	var next int
	if current < 0 {
		next = 0
		if delta < 0 {
			next = len(options) - 1
		}
	} else {
		next = ((current+delta)%len(options) + len(options)) % len(options)
	}
	return options[next].Value
}

func isRune(msg tea.KeyMsg, r rune) bool {
	return msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] == r
}

func (m Model) help() string {
	controls := m.session.Controls()
	parts := []string{"tab/shift+tab move", "←/→ choose", "space toggle"}
	if controls.Back {
		parts = append(parts, "ctrl+p back")
	}
	if controls.Next {
		parts = append(parts, "ctrl+n next")
	}
	if controls.Submit {
		parts = append(parts, "ctrl+s submit")
	}
	parts = append(parts, "esc quit")
	return strings.Join(parts, " • ")
}

func formatChoice(field render.FieldView) string {
	for _, opt := range field.Options {
		if opt.Selected {
			return opt.Label
		}
	}
	return fmt.Sprintf("(%s)", render.DefaultSelectPrompt)
}
