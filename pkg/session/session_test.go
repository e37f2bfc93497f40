package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/navigator"
	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/session"
)

func twoSectionSchema() model.FormSchema {
	return model.FormSchema{
		ID:      "enrolment",
		Title:   "Enrolment",
		Version: "3",
		Sections: []model.Section{
			{ID: 1, Title: "About you", Fields: []model.Field{
				{ID: "fullName", Type: model.FieldTypeText, Label: "Full name", Required: true},
				{ID: "nickname", Type: model.FieldTypeText, Label: "Nickname", MinLength: model.IntPtr(5)},
				{ID: "shift", Type: model.FieldTypeRadio, Label: "Shift", Options: []model.Option{{Value: "a"}, {Value: "b"}}},
			}},
			{ID: 2, Title: "Agreement", Fields: []model.Field{
				{ID: "terms", Type: model.FieldTypeCheckbox, Label: "Terms", Required: true},
			}},
		},
	}
}

var identity = session.Identity{Identifier: "R-42", Name: "Ada"}

func staticFetcher(schema model.FormSchema, err error) session.Fetcher {
	return session.FetcherFunc(func(context.Context, string) (model.FormSchema, error) {
		return schema, err
	})
}

func readySession(t *testing.T, opts ...session.Option) *session.Session {
	t.Helper()
	s := session.New(identity, opts...)
	if err := s.Load(context.Background(), staticFetcher(twoSectionSchema(), nil)); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestNewIdentity(t *testing.T) {
	id, err := session.NewIdentity("  R-1 ", " Grace ")
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	if diff := cmp.Diff(session.Identity{Identifier: "R-1", Name: "Grace"}, id); diff != "" {
		t.Fatalf("identity mismatch (-want +got):\n%s", diff)
	}
	if _, err := session.NewIdentity("R-1", "  "); !errors.Is(err, session.ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestLoadPassesIdentifierAndBecomesReady(t *testing.T) {
	var got string
	fetcher := session.FetcherFunc(func(_ context.Context, identifier string) (model.FormSchema, error) {
		got = identifier
		return twoSectionSchema(), nil
	})

	s := session.New(identity)
	if s.State() != session.StateLoading {
		t.Fatalf("initial state = %s", s.State())
	}
	if s.Page().Kind != render.PageLoading {
		t.Fatalf("loading session should render the loading page")
	}
	if err := s.Load(context.Background(), fetcher); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "R-42" {
		t.Fatalf("fetcher identifier = %q", got)
	}
	if s.State() != session.StateReady {
		t.Fatalf("state = %s", s.State())
	}
	if err := s.Load(context.Background(), fetcher); !errors.Is(err, session.ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
}

func TestFetchFailureMovesToFailedAndRetries(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := session.New(identity, session.WithLogger(zap.New(core)))

	boom := errors.New("connection refused")
	err := s.Load(context.Background(), staticFetcher(model.FormSchema{}, boom))
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if s.State() != session.StateFailed || !errors.Is(s.Err(), boom) {
		t.Fatalf("state = %s err = %v", s.State(), s.Err())
	}
	if logs.FilterMessage("form schema load failed").Len() != 1 {
		t.Fatalf("expected failure to be logged, got %v", logs.All())
	}

	page := s.Page()
	if page.Kind != render.PageFailed || page.Message == "" {
		t.Fatalf("unexpected failed page: %+v", page)
	}
	if _, err := s.Next(); !errors.Is(err, session.ErrNotReady) {
		t.Fatalf("expected ErrNotReady from failed session, got %v", err)
	}

	if err := s.Load(context.Background(), staticFetcher(twoSectionSchema(), nil)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.State() != session.StateReady || s.Err() != nil {
		t.Fatalf("retry should leave the session ready, state=%s err=%v", s.State(), s.Err())
	}
}

func TestLegacyLoadingStaysLoading(t *testing.T) {
	s := session.New(identity, session.WithLegacyLoading())
	_ = s.Load(context.Background(), staticFetcher(model.FormSchema{}, errors.New("timeout")))

	if s.State() != session.StateLoading {
		t.Fatalf("legacy session state = %s, want loading", s.State())
	}
	if s.Err() == nil {
		t.Fatalf("failure should still be recorded")
	}
	if s.Page().Kind != render.PageLoading {
		t.Fatalf("legacy session should keep rendering loading")
	}
}

func TestInvalidSchemaFailsLoad(t *testing.T) {
	s := session.New(identity)
	err := s.LoadSchema(model.FormSchema{ID: "empty"})
	if !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	if s.State() != session.StateFailed {
		t.Fatalf("state = %s", s.State())
	}
}

func TestUnusableLengthBoundsAreIgnored(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	schema := model.FormSchema{
		ID: "bounds",
		Sections: []model.Section{
			{ID: 1, Title: "One", Fields: []model.Field{
				{ID: "agree", Type: model.FieldTypeCheckbox, Label: "Agree", Required: true, MinLength: model.IntPtr(1)},
				{ID: "code", Type: model.FieldTypeText, Label: "Code", MinLength: model.IntPtr(5), MaxLength: model.IntPtr(2)},
				{ID: "alias", Type: model.FieldTypeText, Label: "Alias", MaxLength: model.IntPtr(-1)},
				{ID: "motto", Type: model.FieldTypeText, Label: "Motto", MaxLength: model.IntPtr(4)},
			}},
			{ID: 2, Title: "Two", Fields: []model.Field{
				{ID: "notes", Type: model.FieldTypeTextarea, Label: "Notes"},
			}},
		},
	}

	s := session.New(identity, session.WithLogger(zap.New(core)))
	if err := s.LoadSchema(schema); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.State() != session.StateReady {
		t.Fatalf("state = %s", s.State())
	}
	if got := logs.FilterMessage("ignoring length bound").Len(); got != 3 {
		t.Fatalf("warnings = %d, want 3", got)
	}
	if schema.Sections[0].Fields[0].MinLength == nil {
		t.Fatalf("caller's schema should not be modified")
	}

	if moved, err := s.Next(); moved || err != nil {
		t.Fatalf("required checkbox should still block, moved=%v err=%v", moved, err)
	}
	if s.ErrorFor("agree") != "Agree is required" {
		t.Fatalf("agree error = %q", s.ErrorFor("agree"))
	}
	for id, v := range map[string]any{"agree": true, "code": "abc", "alias": "x", "motto": "too long"} {
		if err := s.SetValue(id, v); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}
	if moved, _ := s.Next(); moved {
		t.Fatalf("usable maxLength should still apply")
	}
	if diff := cmp.Diff(model.Errors{"motto": "Maximum length is 4 characters"}, s.Errors()); diff != "" {
		t.Fatalf("errors (-want +got):\n%s", diff)
	}
	_ = s.SetValue("motto", "ok")
	if moved, err := s.Next(); !moved || err != nil {
		t.Fatalf("next: moved=%v err=%v errors=%v", moved, err, s.Errors())
	}
}

func TestResolveAfterBackgroundFetch(t *testing.T) {
	s := session.New(identity)
	if err := s.Resolve(twoSectionSchema(), nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := s.Resolve(twoSectionSchema(), nil); !errors.Is(err, session.ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
}

func TestOperationsRequireReady(t *testing.T) {
	s := session.New(identity)
	if err := s.SetValue("fullName", "x"); !errors.Is(err, session.ErrNotReady) {
		t.Fatalf("SetValue: %v", err)
	}
	if _, err := s.Prev(); !errors.Is(err, session.ErrNotReady) {
		t.Fatalf("Prev: %v", err)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, session.ErrNotReady) {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := s.CurrentSection(); !errors.Is(err, session.ErrNotReady) {
		t.Fatalf("CurrentSection: %v", err)
	}
	if diff := cmp.Diff(navigator.Controls{}, s.Controls()); diff != "" {
		t.Fatalf("controls outside ready should be empty (-want +got):\n%s", diff)
	}
}

func TestSetValueRejectsUnknownAndMismatchedValues(t *testing.T) {
	s := readySession(t)

	if err := s.SetValue("missing", "x"); !errors.Is(err, session.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := s.SetValue("terms", "yes"); !errors.Is(err, session.ErrValueType) {
		t.Fatalf("expected ErrValueType for string checkbox, got %v", err)
	}
	if err := s.SetValue("fullName", true); !errors.Is(err, session.ErrValueType) {
		t.Fatalf("expected ErrValueType for bool text, got %v", err)
	}
	if err := s.SetValue("fullName", 42); !errors.Is(err, model.ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue, got %v", err)
	}
}

func TestNextSurfacesErrorsAndSetValueClearsOne(t *testing.T) {
	s := readySession(t)

	moved, err := s.Next()
	if err != nil || moved {
		t.Fatalf("next on empty required section: moved=%v err=%v", moved, err)
	}
	if s.ErrorFor("fullName") != "Full name is required" {
		t.Fatalf("fullName error = %q", s.ErrorFor("fullName"))
	}

	if err := s.SetValue("nickname", "abcd"); err != nil {
		t.Fatalf("set nickname: %v", err)
	}
	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	want := model.Errors{
		"fullName": "Full name is required",
		"nickname": "Minimum length is 5 characters",
	}
	if diff := cmp.Diff(want, s.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetValue("fullName", "Ada Lovelace"); err != nil {
		t.Fatalf("set fullName: %v", err)
	}
	if s.ErrorFor("fullName") != "" {
		t.Fatalf("SetValue must clear the field's error")
	}
	if s.ErrorFor("nickname") == "" {
		t.Fatalf("SetValue must not revalidate other fields")
	}

	if err := s.SetValue("nickname", "abcde"); err != nil {
		t.Fatal(err)
	}
	moved, err = s.Next()
	if err != nil || !moved {
		t.Fatalf("expected to advance, moved=%v err=%v", moved, err)
	}
	if s.Errors().Len() != 0 {
		t.Fatalf("errors must be replaced wholesale, got %v", s.Errors())
	}
}

func TestValuesPersistAcrossNavigation(t *testing.T) {
	s := readySession(t)
	for id, value := range map[string]any{"fullName": "Ada", "shift": "a"} {
		if err := s.SetValue(id, value); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}

	if moved, _ := s.Next(); !moved {
		t.Fatalf("expected to reach section 2")
	}
	if moved, _ := s.Prev(); !moved {
		t.Fatalf("expected to return to section 1")
	}
	if idx, _ := s.Index(); idx != 0 {
		t.Fatalf("index = %d", idx)
	}
	if diff := cmp.Diff(model.Values{"fullName": "Ada", "shift": "a"}, s.Values()); diff != "" {
		t.Fatalf("values lost across navigation (-want +got):\n%s", diff)
	}

	page := s.Page()
	var shift render.FieldView
	for _, field := range page.Section.Fields {
		if field.ID == "shift" {
			shift = field
		}
	}
	if !shift.Options[0].Selected || shift.Options[1].Selected {
		t.Fatalf("radio selection not reflected: %+v", shift.Options)
	}
}

func TestCheckboxToggleClearsError(t *testing.T) {
	s := readySession(t)
	_ = s.SetValue("fullName", "Ada")
	if moved, _ := s.Next(); !moved {
		t.Fatalf("expected to reach section 2")
	}

	if v, _ := s.Value("terms"); v != nil {
		t.Fatalf("checkbox should start without a stored value, got %v", v)
	}
	if ok, err := s.Submit(context.Background()); ok || err != nil {
		t.Fatalf("submit with unchecked terms: ok=%v err=%v", ok, err)
	}
	if s.ErrorFor("terms") != "Terms is required" {
		t.Fatalf("terms error = %q", s.ErrorFor("terms"))
	}

	if err := s.SetValue("terms", true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if v, _ := s.Value("terms"); v != true {
		t.Fatalf("toggle should store true, got %v", v)
	}
	if s.ErrorFor("terms") != "" {
		t.Fatalf("toggle must clear the terms error")
	}
}

func TestSubmitHandsValuesToSink(t *testing.T) {
	var got session.Submission
	sink := session.SinkFunc(func(_ context.Context, sub session.Submission) error {
		got = sub
		return nil
	})
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	s := readySession(t, session.WithSink(sink), session.WithClock(func() time.Time { return fixed }))

	if _, err := s.Submit(context.Background()); !errors.Is(err, navigator.ErrNotLastSection) {
		t.Fatalf("expected ErrNotLastSection on first section, got %v", err)
	}

	_ = s.SetValue("fullName", "Ada")
	_, _ = s.Next()
	_ = s.SetValue("terms", true)
	ok, err := s.Submit(context.Background())
	if err != nil || !ok {
		t.Fatalf("submit: ok=%v err=%v", ok, err)
	}

	want := session.Submission{
		FormID:      "enrolment",
		Version:     "3",
		Identifier:  "R-42",
		Name:        "Ada",
		Values:      model.Values{"fullName": "Ada", "terms": true},
		SubmittedAt: fixed,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
	if s.State() != session.StateSubmitted {
		t.Fatalf("state = %s", s.State())
	}
	page := s.Page()
	if page.Kind != render.PageDone || page.Submitted["fullName"] != "Ada" {
		t.Fatalf("unexpected done page: %+v", page)
	}
	if _, err := s.Next(); !errors.Is(err, session.ErrNotReady) {
		t.Fatalf("submitted session should reject navigation, got %v", err)
	}
}

type remoteRejection struct {
	fields map[string][]string
}

func (r remoteRejection) Error() string { return "rejected" }

func (r remoteRejection) FieldMessages() map[string][]string { return r.fields }

func TestSubmitSinkErrorKeepsReadyAndMapsFieldErrors(t *testing.T) {
	sink := session.SinkFunc(func(context.Context, session.Submission) error {
		return remoteRejection{fields: map[string][]string{
			"values.fullName": {"Name already registered"},
			"terms":           {"Terms version outdated"},
			"__all__":         {"Try again later"},
		}}
	})
	s := readySession(t, session.WithSink(sink))
	_ = s.SetValue("fullName", "Ada")
	_, _ = s.Next()
	_ = s.SetValue("terms", true)

	ok, err := s.Submit(context.Background())
	if ok || err == nil {
		t.Fatalf("expected sink error, ok=%v err=%v", ok, err)
	}
	if s.State() != session.StateReady {
		t.Fatalf("state = %s, want ready", s.State())
	}
	if s.ErrorFor("terms") != "Terms version outdated" {
		t.Fatalf("terms error = %q", s.ErrorFor("terms"))
	}
	want := []string{"Try again later", "Full name: Name already registered"}
	if diff := cmp.Diff(want, s.FormErrors()); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, s.Page().FormErrors); diff != "" {
		t.Fatalf("page form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestControlsFollowPosition(t *testing.T) {
	s := readySession(t)
	if diff := cmp.Diff(navigator.Controls{Next: true}, s.Controls()); diff != "" {
		t.Fatalf("first section controls (-want +got):\n%s", diff)
	}
	_ = s.SetValue("fullName", "Ada")
	_, _ = s.Next()
	if diff := cmp.Diff(navigator.Controls{Back: true, Submit: true}, s.Controls()); diff != "" {
		t.Fatalf("last section controls (-want +got):\n%s", diff)
	}
}
