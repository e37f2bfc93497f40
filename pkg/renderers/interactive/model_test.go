package interactive

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/session"
	"github.com/goliatone/go-stepform/pkg/testsupport"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("update returned %T", next)
	}
	return out, cmd
}

func press(t *testing.T, m Model, keys ...tea.KeyType) Model {
	t.Helper()
	for _, k := range keys {
		m, _ = update(t, m, tea.KeyMsg{Type: k})
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func staticFetcher(schema model.FormSchema) session.Fetcher {
	return session.FetcherFunc(func(context.Context, string) (model.FormSchema, error) {
		return schema, nil
	})
}

// loaded returns a model whose schema fetch already completed.
func loaded(t *testing.T, opts ...session.Option) Model {
	t.Helper()
	s := session.New(session.Identity{Identifier: "R-7", Name: "Ada"}, opts...)
	m := New(context.Background(), s, staticFetcher(testsupport.RegistrationSchema(t)))
	m, _ = update(t, m, m.fetch()())
	if s.State() != session.StateReady {
		t.Fatalf("state = %s", s.State())
	}
	return m
}

func TestInitFetchesSchema(t *testing.T) {
	s := session.New(session.Identity{Identifier: "R-7", Name: "Ada"})
	m := New(context.Background(), s, staticFetcher(testsupport.RegistrationSchema(t)))
	if !m.Fetching() {
		t.Fatalf("expected fetch in flight")
	}
	if m.Init() == nil {
		t.Fatalf("expected init command")
	}
	if !strings.Contains(m.View(), "Loading the form for R-7") {
		t.Fatalf("unexpected loading view:\n%s", m.View())
	}

	msg := m.fetch()()
	if _, ok := msg.(schemaMsg); !ok {
		t.Fatalf("fetch produced %T", msg)
	}
	m, _ = update(t, m, msg)
	if m.Fetching() || s.State() != session.StateReady {
		t.Fatalf("expected ready session, fetching=%v state=%s", m.Fetching(), s.State())
	}
	if m.Focused() != "fullName" {
		t.Fatalf("focused = %q", m.Focused())
	}
	view := m.View()
	for _, fragment := range []string{"Student Registration", "step 1 of 2", "Personal details", "Tell us who you are.", "Full name *"} {
		if !strings.Contains(view, fragment) {
			t.Fatalf("expected %q in view:\n%s", fragment, view)
		}
	}
}

func TestFailedLoadRetries(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calls := 0
	schema := testsupport.RegistrationSchema(t)
	fetcher := session.FetcherFunc(func(context.Context, string) (model.FormSchema, error) {
		calls++
		if calls == 1 {
			return model.FormSchema{}, errors.New("upstream down")
		}
		return schema, nil
	})
	s := session.New(session.Identity{Identifier: "R-7", Name: "Ada"})
	m := New(context.Background(), s, fetcher, WithLogger(zap.New(core)))

	m, _ = update(t, m, m.fetch()())
	if s.State() != session.StateFailed {
		t.Fatalf("state = %s", s.State())
	}
	if logs.FilterMessage("form load failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}
	view := m.View()
	if !strings.Contains(view, session.FailedMessage) || !strings.Contains(view, "r retry") {
		t.Fatalf("unexpected failed view:\n%s", view)
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil || !m.Fetching() {
		t.Fatalf("expected retry to start a fetch")
	}
	m, _ = update(t, m, m.fetch()())
	if s.State() != session.StateReady || calls != 2 {
		t.Fatalf("state = %s calls = %d", s.State(), calls)
	}
}

func TestLegacyLoadingStillOffersRetry(t *testing.T) {
	fetcher := session.FetcherFunc(func(context.Context, string) (model.FormSchema, error) {
		return model.FormSchema{}, errors.New("upstream down")
	})
	s := session.New(session.Identity{Identifier: "R-7", Name: "Ada"}, session.WithLegacyLoading())
	m := New(context.Background(), s, fetcher)

	m, _ = update(t, m, m.fetch()())
	if s.State() != session.StateLoading {
		t.Fatalf("state = %s", s.State())
	}
	if !strings.Contains(m.View(), session.FailedMessage) {
		t.Fatalf("expected failure message:\n%s", m.View())
	}
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil || !m.Fetching() {
		t.Fatalf("expected retry to start a fetch")
	}
}

func TestFocusWraps(t *testing.T) {
	m := loaded(t)
	m = press(t, m, tea.KeyShiftTab)
	if m.Focused() != "birthDate" {
		t.Fatalf("focused = %q", m.Focused())
	}
	m = press(t, m, tea.KeyTab, tea.KeyTab)
	if m.Focused() != "email" {
		t.Fatalf("focused = %q", m.Focused())
	}
	m = press(t, m, tea.KeyEnter)
	if m.Focused() != "phone" {
		t.Fatalf("enter should advance focus, focused = %q", m.Focused())
	}
}

func TestTypingWritesThroughAndClearsError(t *testing.T) {
	m := loaded(t)
	s := m.Session()

	m = press(t, m, tea.KeyCtrlN)
	if m.Status() == "" || s.ErrorFor("fullName") == "" {
		t.Fatalf("expected validation errors, status=%q", m.Status())
	}
	if !strings.Contains(m.View(), "Full name is required") {
		t.Fatalf("inline error missing:\n%s", m.View())
	}

	m = typeText(t, m, "Ad")
	if got, _ := s.Value("fullName"); got != "Ad" {
		t.Fatalf("value = %v", got)
	}
	if s.ErrorFor("fullName") != "" {
		t.Fatalf("typing should clear the field error")
	}
	if s.ErrorFor("email") == "" {
		t.Fatalf("other errors should remain")
	}
}

func TestWalkthroughSubmits(t *testing.T) {
	var submitted []session.Submission
	sink := session.SinkFunc(func(_ context.Context, sub session.Submission) error {
		submitted = append(submitted, sub)
		return nil
	})
	m := loaded(t, session.WithSink(sink))
	s := m.Session()

	m = typeText(t, m, "Ada Lovelace")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "ada@example.com")
	m = press(t, m, tea.KeyTab, tea.KeyTab)
	m = typeText(t, m, "1815-12-10")

	m = press(t, m, tea.KeyCtrlS)
	if m.Status() != "Submit is available on the last section." {
		t.Fatalf("status = %q", m.Status())
	}

	m = press(t, m, tea.KeyCtrlN)
	if idx, _ := s.Index(); idx != 1 {
		t.Fatalf("expected second section, status=%q", m.Status())
	}
	if m.Focused() != "course" {
		t.Fatalf("focused = %q", m.Focused())
	}

	m = press(t, m, tea.KeyRight)
	m = press(t, m, tea.KeyTab, tea.KeyLeft)
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "Engines fascinate me")
	m = press(t, m, tea.KeyTab, tea.KeySpace)

	view := m.View()
	for _, fragment := range []string{"< Computer Science >", "(•) Evening", "[x]", "ctrl+s submit", "ctrl+p back"} {
		if !strings.Contains(view, fragment) {
			t.Fatalf("expected %q in view:\n%s", fragment, view)
		}
	}

	m = press(t, m, tea.KeyCtrlS)
	if s.State() != session.StateSubmitted {
		t.Fatalf("state = %s status = %q errors = %v", s.State(), m.Status(), s.Errors())
	}
	if len(submitted) != 1 {
		t.Fatalf("submissions = %d", len(submitted))
	}
	want := model.Values{
		"fullName":   "Ada Lovelace",
		"email":      "ada@example.com",
		"birthDate":  "1815-12-10",
		"course":     "cs",
		"shift":      "evening",
		"motivation": "Engines fascinate me",
		"terms":      true,
	}
	if diff := cmp.Diff(want, submitted[0].Values); diff != "" {
		t.Fatalf("submitted values (-want +got):\n%s", diff)
	}
	if !strings.Contains(m.View(), "Thank you, Ada.") {
		t.Fatalf("done view missing:\n%s", m.View())
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.Quitting() {
		t.Fatalf("enter should quit after submission")
	}
}

func TestBackKeepsValues(t *testing.T) {
	m := loaded(t)
	s := m.Session()
	for id, v := range testsupport.FirstSectionValues() {
		if err := s.SetValue(id, v); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}
	m = press(t, m, tea.KeyCtrlN)
	m = press(t, m, tea.KeyRight)
	m = press(t, m, tea.KeyCtrlP)
	if m.Focused() != "fullName" {
		t.Fatalf("focused = %q", m.Focused())
	}
	if got := s.Values().String("course"); got != "cs" {
		t.Fatalf("course = %q", got)
	}

	m = press(t, m, tea.KeyCtrlP)
	if m.Status() != "" {
		t.Fatalf("prev on first section should be silent, status = %q", m.Status())
	}
}

func TestEscQuits(t *testing.T) {
	m := loaded(t)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil || !m.Quitting() || m.View() != "" {
		t.Fatalf("esc should quit")
	}
}

func TestCycle(t *testing.T) {
	options := []render.OptionView{{Value: ""}, {Value: "cs"}, {Value: "math"}}
	if got := cycle(options, 1); got != "" {
		t.Fatalf("nothing selected moving right = %q", got)
	}
	if got := cycle(options, -1); got != "math" {
		t.Fatalf("nothing selected moving left = %q", got)
	}
	options[2].Selected = true
	if got := cycle(options, 1); got != "" {
		t.Fatalf("wrap right = %q", got)
	}
	if got := cycle(nil, 1); got != "" {
		t.Fatalf("empty options = %q", got)
	}
}
