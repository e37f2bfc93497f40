package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-stepform/pkg/client"
	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/session"
	"github.com/goliatone/go-stepform/pkg/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSchemaURL(t *testing.T) {
	cases := []struct {
		name     string
		endpoint string
		want     string
	}{
		{"placeholder", "https://api.test/forms/{identifier}", "https://api.test/forms/R%2F7"},
		{"query", "https://api.test/form", "https://api.test/form?identifier=R%2F7"},
		{"query merge", "https://api.test/form?lang=en", "https://api.test/form?identifier=R%2F7&lang=en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := client.Endpoints{Schema: tc.endpoint}.SchemaURL("R/7")
			if err != nil {
				t.Fatalf("schema url: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}

	if _, err := (client.Endpoints{}).SchemaURL("x"); !errors.Is(err, client.ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	upstream := testsupport.NewUpstream(t, testsupport.RegistrationSchema(t))
	c := upstream.Client()
	identity := session.Identity{Identifier: "R-1", Name: "Ada"}

	if err := c.Login(context.Background(), identity); err != nil {
		t.Fatalf("login: %v", err)
	}
	if diff := cmp.Diff([]session.Identity{identity}, upstream.Logins()); diff != "" {
		t.Fatalf("posted identities mismatch (-want +got):\n%s", diff)
	}

	upstream.SetLoginStatus(http.StatusUnauthorized)
	err := c.Login(context.Background(), identity)
	if !errors.Is(err, client.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	var status *client.StatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected wrapped 401 status error, got %v", err)
	}
}

func TestLoginTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/login"
	srv.Close()

	c := client.New(client.Endpoints{Login: endpoint})
	err := c.Login(context.Background(), session.Identity{Identifier: "R-1", Name: "Ada"})
	if !errors.Is(err, client.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for transport failure, got %v", err)
	}
}

func TestFetchSchema(t *testing.T) {
	schema := testsupport.RegistrationSchema(t)
	upstream := testsupport.NewUpstream(t, model.FormSchema{})
	upstream.SetSchema("R-9", schema)

	got, err := upstream.Client().FetchSchema(context.Background(), "R-9")
	if err != nil {
		t.Fatalf("fetch schema: %v", err)
	}
	if diff := cmp.Diff(schema, got); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchSchemaErrors(t *testing.T) {
	upstream := testsupport.NewUpstream(t, testsupport.RegistrationSchema(t))
	upstream.SetSchemaStatus(http.StatusServiceUnavailable)

	_, err := upstream.Client().FetchSchema(context.Background(), "R-1")
	var status *client.StatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 status error, got %v", err)
	}

	invalid := testsupport.NewUpstream(t, model.FormSchema{ID: "no-sections"})
	if _, err := invalid.Client().FetchSchema(context.Background(), "R-1"); !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestFetchSchemaTimeout(t *testing.T) {
	upstream := testsupport.NewUpstream(t, testsupport.RegistrationSchema(t))
	release := upstream.HoldSchema()
	defer release()

	c := upstream.Client(client.WithTimeout(50 * time.Millisecond))
	_, err := c.FetchSchema(context.Background(), "R-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSubmit(t *testing.T) {
	upstream := testsupport.NewUpstream(t, testsupport.RegistrationSchema(t))
	c := upstream.Client(client.WithHeader("X-Form-Client", "stepform"))

	sub := session.Submission{
		FormID:      "student-registration",
		Version:     "3",
		Identifier:  "R-1",
		Name:        "Ada",
		Values:      model.Values{"fullName": "Ada Lovelace", "terms": true},
		SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := c.Submit(context.Background(), sub); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := upstream.Submissions()
	if len(got) != 1 {
		t.Fatalf("submissions = %d", len(got))
	}
	if diff := cmp.Diff(sub, got[0]); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitRejection(t *testing.T) {
	upstream := testsupport.NewUpstream(t, testsupport.RegistrationSchema(t))
	upstream.RejectSubmissions(map[string][]string{"values.email": {"Email already registered"}})

	err := upstream.Client().Submit(context.Background(), session.Submission{FormID: "f"})
	var rejected *client.SubmissionError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	want := map[string][]string{"values.email": {"Email already registered"}}
	if diff := cmp.Diff(want, rejected.FieldMessages()); diff != "" {
		t.Fatalf("field messages mismatch (-want +got):\n%s", diff)
	}
	var messages session.FieldMessages
	if !errors.As(err, &messages) {
		t.Fatalf("SubmissionError must satisfy session.FieldMessages")
	}
}

func TestSubmitRejectionSingleMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"phone":"Too short","course":["Closed","Full"]}}`))
	}))
	defer srv.Close()

	c := client.New(client.Endpoints{Submit: srv.URL}, client.WithHTTPClient(srv.Client()))
	err := c.Submit(context.Background(), session.Submission{})
	var rejected *client.SubmissionError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	want := map[string][]string{"phone": {"Too short"}, "course": {"Closed", "Full"}}
	if diff := cmp.Diff(want, rejected.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitWithoutEndpoint(t *testing.T) {
	err := client.New(client.Endpoints{}).Submit(context.Background(), session.Submission{})
	if !errors.Is(err, client.ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestClientDrivesSessionEndToEnd(t *testing.T) {
	upstream := testsupport.NewUpstream(t, testsupport.RegistrationSchema(t))
	c := upstream.Client()
	ctx := context.Background()

	identity := session.Identity{Identifier: "R-5", Name: "Grace"}
	if err := c.Login(ctx, identity); err != nil {
		t.Fatalf("login: %v", err)
	}
	s := session.New(identity, session.WithSink(c))
	if err := s.Load(ctx, c); err != nil {
		t.Fatalf("load: %v", err)
	}
	for id, v := range testsupport.FirstSectionValues() {
		if err := s.SetValue(id, v); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}
	if moved, _ := s.Next(); !moved {
		t.Fatalf("expected to move to section 2: %v", s.Errors())
	}
	for id, v := range testsupport.SecondSectionValues() {
		if err := s.SetValue(id, v); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}
	if ok, err := s.Submit(ctx); !ok || err != nil {
		t.Fatalf("submit: ok=%v err=%v errs=%v", ok, err, s.Errors())
	}
	if got := upstream.Submissions(); len(got) != 1 || got[0].Identifier != "R-5" {
		t.Fatalf("unexpected upstream submissions: %+v", got)
	}
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := client.NewLogSink(zap.New(core))

	err := sink.Submit(context.Background(), session.Submission{
		FormID:     "f",
		Identifier: "R-1",
		Values:     model.Values{"b": "2", "a": "1"},
	})
	if err != nil {
		t.Fatalf("log sink: %v", err)
	}
	entries := logs.FilterMessage("form submission").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["form_id"]; got != "f" {
		t.Fatalf("form_id = %v", got)
	}
}
