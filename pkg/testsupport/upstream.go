package testsupport

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-stepform/pkg/client"
	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/session"
)

// Upstream is an in-process stand-in for the login, schema and submission
// endpoints. Every endpoint succeeds until told otherwise.
type Upstream struct {
	Server *httptest.Server

	mu           sync.Mutex
	schemas      map[string]model.FormSchema
	logins       []session.Identity
	submissions  []session.Submission
	loginStatus  int
	schemaStatus int
	submitStatus int
	submitErrors map[string][]string
	gate         chan struct{}
}

// NewUpstream starts an upstream serving schema for every identifier. The
// server is closed when the test ends.
func NewUpstream(t testing.TB, schema model.FormSchema) *Upstream {
	t.Helper()

	u := &Upstream{
		schemas:      map[string]model.FormSchema{"*": schema},
		loginStatus:  http.StatusOK,
		schemaStatus: http.StatusOK,
		submitStatus: http.StatusCreated,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", u.handleLogin)
	mux.HandleFunc("GET /forms/{identifier}", u.handleSchema)
	mux.HandleFunc("POST /submissions", u.handleSubmit)
	u.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		u.releaseGate()
		u.Server.Close()
	})
	return u
}

// Endpoints returns client endpoints pointing at the upstream.
func (u *Upstream) Endpoints() client.Endpoints {
	return client.Endpoints{
		Login:  u.Server.URL + "/login",
		Schema: u.Server.URL + "/forms/" + client.IdentifierPlaceholder,
		Submit: u.Server.URL + "/submissions",
	}
}

// Client returns a client wired to the upstream with the server's transport.
func (u *Upstream) Client(opts ...client.Option) *client.Client {
	opts = append([]client.Option{client.WithHTTPClient(u.Server.Client())}, opts...)
	return client.New(u.Endpoints(), opts...)
}

// SetSchema serves schema for identifier only.
func (u *Upstream) SetSchema(identifier string, schema model.FormSchema) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.schemas[identifier] = schema
}

// SetLoginStatus changes the login response status.
func (u *Upstream) SetLoginStatus(code int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.loginStatus = code
}

// SetSchemaStatus changes the schema response status.
func (u *Upstream) SetSchemaStatus(code int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.schemaStatus = code
}

// RejectSubmissions answers submissions with 422 and the given field errors.
// A nil map restores acceptance.
func (u *Upstream) RejectSubmissions(fields map[string][]string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.submitErrors = fields
	if fields == nil {
		u.submitStatus = http.StatusCreated
		return
	}
	u.submitStatus = http.StatusUnprocessableEntity
}

// HoldSchema blocks schema responses until the returned release func is
// called. Held responses are released when the test ends.
func (u *Upstream) HoldSchema() (release func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	gate := make(chan struct{})
	u.gate = gate
	return func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.gate == gate {
			close(gate)
			u.gate = nil
		}
	}
}

func (u *Upstream) releaseGate() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.gate != nil {
		close(u.gate)
		u.gate = nil
	}
}

// Logins returns the identities posted to the login endpoint.
func (u *Upstream) Logins() []session.Identity {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]session.Identity(nil), u.logins...)
}

// Submissions returns the submissions accepted or rejected so far.
func (u *Upstream) Submissions() []session.Submission {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]session.Submission(nil), u.submissions...)
}

func (u *Upstream) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RollNumber string `json:"rollNumber"`
		Name       string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	u.mu.Lock()
	u.logins = append(u.logins, session.Identity{Identifier: body.RollNumber, Name: body.Name})
	status := u.loginStatus
	u.mu.Unlock()

	writeJSON(w, status, map[string]any{"ok": status < 300})
}

func (u *Upstream) handleSchema(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")

	u.mu.Lock()
	gate := u.gate
	status := u.schemaStatus
	schema, ok := u.schemas[identifier]
	if !ok {
		schema = u.schemas["*"]
	}
	u.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if status >= 300 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeJSON(w, status, schema)
}

func (u *Upstream) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub session.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	u.mu.Lock()
	u.submissions = append(u.submissions, sub)
	status := u.submitStatus
	fields := u.submitErrors
	u.mu.Unlock()

	if status == http.StatusUnprocessableEntity {
		writeJSON(w, status, map[string]any{"message": "validation failed", "errors": fields})
		return
	}
	writeJSON(w, status, map[string]any{"id": len(u.Submissions())})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
