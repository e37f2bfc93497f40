// Package client talks to the remote collaborators of a form session: the
// login endpoint, the schema endpoint and the submission endpoint. Client
// satisfies session.Fetcher and session.Sink.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/session"
)

// IdentifierPlaceholder is replaced in Endpoints.Schema with the path-escaped
// identifier.
const IdentifierPlaceholder = "{identifier}"

const maxBodyBytes = 4 << 20

var (
	// ErrAuthenticationFailed is returned by Login for any unsuccessful
	// attempt, whether rejected by the endpoint or lost in transport.
	ErrAuthenticationFailed = errors.New("client: authentication failed")
	// ErrNoEndpoint is returned when the operation's endpoint is not
	// configured.
	ErrNoEndpoint = errors.New("client: endpoint not configured")
)

// Endpoints holds the collaborator addresses.
type Endpoints struct {
	Login  string `yaml:"login" json:"login"`
	Schema string `yaml:"schema" json:"schema"`
	Submit string `yaml:"submit" json:"submit"`
}

// SchemaURL builds the schema address for identifier. Without a
// placeholder the identifier is sent as the "identifier" query parameter.
func (e Endpoints) SchemaURL(identifier string) (string, error) {
	if strings.TrimSpace(e.Schema) == "" {
		return "", fmt.Errorf("%w: schema", ErrNoEndpoint)
	}
	if strings.Contains(e.Schema, IdentifierPlaceholder) {
		return strings.ReplaceAll(e.Schema, IdentifierPlaceholder, url.PathEscape(identifier)), nil
	}
	u, err := url.Parse(e.Schema)
	if err != nil {
		return "", fmt.Errorf("client: parse schema endpoint: %w", err)
	}
	q := u.Query()
	q.Set("identifier", identifier)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s: unexpected status %s", e.Op, e.Status)
}

// SubmissionError is returned by Submit when the endpoint rejects the values
// with 422 Unprocessable Entity. Fields keys are whatever the endpoint used:
// field identifiers, dotted paths or JSON pointers.
type SubmissionError struct {
	Message string
	Fields  map[string][]string
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return "client: submission rejected: " + e.Message
	}
	return fmt.Sprintf("client: submission rejected: %d field error(s)", len(e.Fields))
}

// FieldMessages exposes the per-field feedback to the session.
func (e *SubmissionError) FieldMessages() map[string][]string {
	return e.Fields
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds every request. Zero leaves requests bounded only by the
// caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// Client calls the collaborator endpoints. It performs no retries.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	logger    *zap.Logger
	timeout   time.Duration
	headers   http.Header
}

var (
	_ session.Fetcher = (*Client)(nil)
	_ session.Sink    = (*Client)(nil)
)

// New returns a client for endpoints.
func New(endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		endpoints: endpoints,
		http:      http.DefaultClient,
		logger:    zap.NewNop(),
		headers:   make(http.Header),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type loginRequest struct {
	RollNumber string `json:"rollNumber"`
	Name       string `json:"name"`
}

// Login posts the identity to the login endpoint. Every failure wraps
// ErrAuthenticationFailed.
func (c *Client) Login(ctx context.Context, identity session.Identity) error {
	if strings.TrimSpace(c.endpoints.Login) == "" {
		return fmt.Errorf("%w: %w: login", ErrAuthenticationFailed, ErrNoEndpoint)
	}
	body := loginRequest{RollNumber: identity.Identifier, Name: identity.Name}
	resp, err := c.do(ctx, http.MethodPost, c.endpoints.Login, body)
	if err != nil {
		c.logger.Warn("login request failed", zap.String("identifier", identity.Identifier), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	defer closeBody(resp)

	if !success(resp.StatusCode) {
		c.logger.Info("login rejected", zap.String("identifier", identity.Identifier), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, &StatusError{Op: "login", StatusCode: resp.StatusCode, Status: resp.Status})
	}
	return nil
}

// FetchSchema retrieves and parses the schema for identifier.
func (c *Client) FetchSchema(ctx context.Context, identifier string) (model.FormSchema, error) {
	target, err := c.endpoints.SchemaURL(identifier)
	if err != nil {
		return model.FormSchema{}, err
	}
	resp, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("client: fetch schema: %w", err)
	}
	defer closeBody(resp)

	if !success(resp.StatusCode) {
		return model.FormSchema{}, &StatusError{Op: "fetch schema", StatusCode: resp.StatusCode, Status: resp.Status}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("client: read schema: %w", err)
	}
	schema, err := model.ParseSchema(data, model.FormatJSON)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("client: decode schema: %w", err)
	}
	c.logger.Debug("schema fetched", zap.String("form_id", schema.ID), zap.String("identifier", identifier))
	return schema, nil
}

type rejection struct {
	Message string                     `json:"message"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// Submit posts a completed submission. A 422 response carrying an "errors"
// object becomes a *SubmissionError.
func (c *Client) Submit(ctx context.Context, submission session.Submission) error {
	if strings.TrimSpace(c.endpoints.Submit) == "" {
		return fmt.Errorf("%w: submit", ErrNoEndpoint)
	}
	resp, err := c.do(ctx, http.MethodPost, c.endpoints.Submit, submission)
	if err != nil {
		return fmt.Errorf("client: submit: %w", err)
	}
	defer closeBody(resp)

	if success(resp.StatusCode) {
		c.logger.Info("submission accepted", zap.String("form_id", submission.FormID), zap.String("identifier", submission.Identifier))
		return nil
	}
	if resp.StatusCode == http.StatusUnprocessableEntity {
		if rejected, ok := decodeRejection(resp.Body); ok {
			return rejected
		}
	}
	return &StatusError{Op: "submit", StatusCode: resp.StatusCode, Status: resp.Status}
}

func decodeRejection(body io.Reader) (*SubmissionError, bool) {
	var payload rejection
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&payload); err != nil {
		return nil, false
	}
	if len(payload.Errors) == 0 && payload.Message == "" {
		return nil, false
	}
	out := &SubmissionError{Message: payload.Message, Fields: make(map[string][]string, len(payload.Errors))}
	for key, raw := range payload.Errors {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			out.Fields[key] = list
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			out.Fields[key] = []string{single}
		}
	}
	return out, true
}

func (c *Client) do(ctx context.Context, method, target string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	if cancel != nil {
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	}
	return resp, nil
}

// cancelBody releases the request timeout once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
}

func success(code int) bool {
	return code >= 200 && code < 300
}
