package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/navigator"
	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/validation"
)

// State is the lifecycle position of a Session.
type State string

const (
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateSubmitted State = "submitted"
	StateFailed    State = "failed"
)

var (
	// ErrNotReady is returned by operations that need a loaded schema.
	ErrNotReady = errors.New("session: form is not ready")
	// ErrAlreadyLoaded is returned when Load is called after a schema was
	// installed.
	ErrAlreadyLoaded = errors.New("session: schema already loaded")
	// ErrUnknownField is returned by SetValue for identifiers not in the
	// schema.
	ErrUnknownField = errors.New("session: unknown field")
	// ErrValueType is returned by SetValue when the value does not fit the
	// field type (a bool for a text field, a string for a checkbox).
	ErrValueType = errors.New("session: value does not match field type")
	// ErrNilFetcher is returned by Load without a fetcher.
	ErrNilFetcher = errors.New("session: fetcher is required")
)

// Session holds one user's fetched schema, accumulated values and current
// error mapping, and drives the navigator. A Session is not safe for
// concurrent use.
type Session struct {
	identity Identity
	state    State
	err      error

	schema model.FormSchema
	nav    *navigator.Navigator
	values model.Values
	errors model.Errors
	// formErrors holds remote messages that could not be tied to a field on
	// the visible section.
	formErrors []string
	submission *Submission

	logger        *zap.Logger
	sink          Sink
	now           func() time.Time
	messages      validation.Messages
	legacyLoading bool
}

// New returns a session in the loading state for identity.
func New(identity Identity, opts ...Option) *Session {
	s := &Session{
		identity: identity,
		state:    StateLoading,
		values:   model.NewValues(),
		errors:   make(model.Errors),
		logger:   zap.NewNop(),
		now:      time.Now,
		messages: validation.DefaultMessages,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(zap.String("identifier", identity.Identifier))
	return s
}

// Identity returns the login identity the session was created for.
func (s *Session) Identity() Identity { return s.identity }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Err returns the last schema load failure, if any.
func (s *Session) Err() error { return s.err }

// CanLoad reports whether Load or Resolve may be called.
func (s *Session) CanLoad() bool {
	return s.state == StateLoading || s.state == StateFailed
}

// Load fetches the schema once and installs it. From StateFailed it acts as a
// retry.
func (s *Session) Load(ctx context.Context, fetcher Fetcher) error {
	if !s.CanLoad() {
		return ErrAlreadyLoaded
	}
	if fetcher == nil {
		return ErrNilFetcher
	}
	s.logger.Debug("fetching form schema")
	schema, err := fetcher.FetchSchema(ctx, s.identity.Identifier)
	return s.Resolve(schema, err)
}

// Resolve completes a fetch performed elsewhere, e.g. in a background
// goroutine or a bubbletea command. A non-nil fetchErr fails the load.
func (s *Session) Resolve(schema model.FormSchema, fetchErr error) error {
	if !s.CanLoad() {
		return ErrAlreadyLoaded
	}
	if fetchErr != nil {
		return s.fail(fmt.Errorf("session: fetch schema: %w", fetchErr))
	}
	return s.LoadSchema(schema)
}

// LoadSchema installs an already available schema after validating it.
// Length bounds the validator cannot apply are dropped with a warning.
func (s *Session) LoadSchema(schema model.FormSchema) error {
	if !s.CanLoad() {
		return ErrAlreadyLoaded
	}
	if err := schema.Validate(); err != nil {
		return s.fail(err)
	}
	schema, dropped := schema.NormalizeBounds()
	for _, problem := range dropped {
		s.logger.Warn("ignoring length bound", zap.String("form_id", schema.ID), zap.Error(problem))
	}
	nav, err := navigator.New(schema.Sections, navigator.WithMessages(s.messages))
	if err != nil {
		return s.fail(err)
	}

	s.schema = schema
	s.nav = nav
	s.state = StateReady
	s.err = nil
	s.logger.Info("form schema loaded",
		zap.String("form_id", schema.ID),
		zap.String("version", schema.Version),
		zap.Int("sections", len(schema.Sections)),
	)
	return nil
}

func (s *Session) fail(err error) error {
	s.err = err
	if s.legacyLoading {
		s.logger.Error("form schema unavailable", zap.Error(err))
		return err
	}
	s.state = StateFailed
	s.logger.Error("form schema load failed", zap.Error(err))
	return err
}

// Schema returns the installed schema once the session has left loading.
func (s *Session) Schema() (model.FormSchema, bool) {
	if s.nav == nil {
		return model.FormSchema{}, false
	}
	return s.schema, true
}

// Index returns the zero-based index of the visible section.
func (s *Session) Index() (int, error) {
	if s.state != StateReady {
		return 0, ErrNotReady
	}
	return s.nav.Index(), nil
}

// CurrentSection returns the visible section.
func (s *Session) CurrentSection() (model.Section, error) {
	if s.state != StateReady {
		return model.Section{}, ErrNotReady
	}
	return s.nav.Current(), nil
}

// Fields returns the visible section's fields.
func (s *Session) Fields() ([]model.Field, error) {
	section, err := s.CurrentSection()
	if err != nil {
		return nil, err
	}
	return section.Fields, nil
}

// Value returns the stored value for id.
func (s *Session) Value(id string) (any, bool) {
	return s.values.Lookup(id)
}

// Values returns a copy of every stored value.
func (s *Session) Values() model.Values {
	return s.values.Clone()
}

// Errors returns a copy of the current error mapping.
func (s *Session) Errors() model.Errors {
	return s.errors.Clone()
}

// ErrorFor returns the current error for id, or "".
func (s *Session) ErrorFor(id string) string {
	return s.errors.Message(id)
}

// FormErrors returns form-level messages from the last remote submission.
func (s *Session) FormErrors() []string {
	return append([]string(nil), s.formErrors...)
}

// SetValue stores a new value for id and clears its error without
// revalidating.
func (s *Session) SetValue(id string, value any) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	field, _, ok := s.schema.FindField(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	if err := checkValueType(field, value); err != nil {
		return err
	}
	if err := s.values.Set(id, value); err != nil {
		return err
	}
	s.errors.Clear(id)
	return nil
}

func checkValueType(field model.Field, value any) error {
	switch value.(type) {
	case bool:
		if field.Type != model.FieldTypeCheckbox {
			return fmt.Errorf("%w: bool for %s field %q", ErrValueType, field.Type, field.ID)
		}
	case string, []string:
		if field.Type == model.FieldTypeCheckbox {
			return fmt.Errorf("%w: %T for checkbox %q", ErrValueType, value, field.ID)
		}
	}
	return nil
}

// Next validates the visible section and advances when it passes. The error
// mapping is replaced by the result of the validation pass.
func (s *Session) Next() (bool, error) {
	if s.state != StateReady {
		return false, ErrNotReady
	}
	from := s.nav.Index()
	ok, errs := s.nav.Next(s.values)
	s.errors = errs
	s.formErrors = nil
	if !ok {
		s.logger.Debug("section invalid", zap.Int("section", from), zap.Int("errors", errs.Len()))
		return false, nil
	}
	s.logger.Debug("advanced section", zap.Int("from", from), zap.Int("to", s.nav.Index()))
	return true, nil
}

// Prev moves back one section without validating. Errors are kept so the
// previous section shows any messages it still carries.
func (s *Session) Prev() (bool, error) {
	if s.state != StateReady {
		return false, ErrNotReady
	}
	moved := s.nav.Prev()
	if moved {
		s.logger.Debug("moved back", zap.Int("to", s.nav.Index()))
	}
	return moved, nil
}

// Submit validates the final section and hands the complete values to the
// sink. It reports false with a nil error when validation fails. A sink error
// leaves the session ready; when the error carries field messages they are
// mapped onto the error mapping.
func (s *Session) Submit(ctx context.Context) (bool, error) {
	if s.state != StateReady {
		return false, ErrNotReady
	}
	values, errs, err := s.nav.Submit(s.values)
	if err != nil {
		return false, err
	}
	s.errors = errs
	s.formErrors = nil
	if errs.Len() > 0 {
		s.logger.Debug("final section invalid", zap.Int("errors", errs.Len()))
		return false, nil
	}

	submission := Submission{
		FormID:      s.schema.ID,
		Version:     s.schema.Version,
		Identifier:  s.identity.Identifier,
		Name:        s.identity.Name,
		Values:      values,
		SubmittedAt: s.now().UTC(),
	}
	if s.sink != nil {
		if err := s.sink.Submit(ctx, submission); err != nil {
			s.applyRemoteErrors(err)
			s.logger.Warn("submission rejected", zap.Error(err))
			return false, fmt.Errorf("session: submit: %w", err)
		}
	}

	s.submission = &submission
	s.state = StateSubmitted
	s.logger.Info("form submitted",
		zap.String("form_id", submission.FormID),
		zap.Int("values", len(submission.Values)),
	)
	return true, nil
}

func (s *Session) applyRemoteErrors(err error) {
	var remote FieldMessages
	if !errors.As(err, &remote) {
		return
	}
	mapping := render.MapErrorPayload(s.schema, remote.FieldMessages())
	fieldErrs := mapping.FieldErrors()
	if s.errors == nil {
		s.errors = make(model.Errors)
	}
	visible := s.nav.Index()
	form := mapping.Form
	for idx, section := range s.schema.Sections {
		for _, field := range section.Fields {
			msg := fieldErrs.Message(field.ID)
			if msg == "" {
				continue
			}
			s.errors[field.ID] = msg
			if idx != visible {
				form = append(form, field.DisplayLabel()+": "+msg)
			}
		}
	}
	s.formErrors = render.MergeFormErrors(nil, form...)
}

// Submission returns the completed submission once the session is submitted.
func (s *Session) Submission() (Submission, bool) {
	if s.submission == nil {
		return Submission{}, false
	}
	out := *s.submission
	out.Values = s.submission.Values.Clone()
	return out, true
}

// Controls reports which navigation controls apply. Outside the ready state
// no control applies.
func (s *Session) Controls() navigator.Controls {
	if s.state != StateReady {
		return navigator.Controls{}
	}
	return s.nav.Controls()
}
