package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-stepform/pkg/model"
)

// ErrInvalidIdentity is returned when the login gate is passed an empty
// identifier or name.
var ErrInvalidIdentity = errors.New("session: identifier and name are required")

// Identity is the result of the login gate: the identifier the schema is keyed
// by (a roll number) and the user's display name.
type Identity struct {
	Identifier string `json:"rollNumber"`
	Name       string `json:"name"`
}

// NewIdentity trims both inputs and rejects empty values.
func NewIdentity(identifier, name string) (Identity, error) {
	id := Identity{
		Identifier: strings.TrimSpace(identifier),
		Name:       strings.TrimSpace(name),
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Validate reports ErrInvalidIdentity when either part is blank.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.Identifier) == "" || strings.TrimSpace(i.Name) == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// Fetcher retrieves the form schema for an identifier.
type Fetcher interface {
	FetchSchema(ctx context.Context, identifier string) (model.FormSchema, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, identifier string) (model.FormSchema, error)

// FetchSchema calls f.
func (f FetcherFunc) FetchSchema(ctx context.Context, identifier string) (model.FormSchema, error) {
	return f(ctx, identifier)
}

// Submission is the completed form handed to a Sink.
type Submission struct {
	FormID      string       `json:"formId"`
	Version     string       `json:"version"`
	Identifier  string       `json:"rollNumber"`
	Name        string       `json:"name"`
	Values      model.Values `json:"values"`
	SubmittedAt time.Time    `json:"submittedAt"`
}

// Sink receives completed submissions.
type Sink interface {
	Submit(ctx context.Context, submission Submission) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, submission Submission) error

// Submit calls f.
func (f SinkFunc) Submit(ctx context.Context, submission Submission) error {
	return f(ctx, submission)
}

// FieldMessages is implemented by sink errors that carry per-field feedback
// from a remote validator. Keys may be field identifiers or paths.
type FieldMessages interface {
	error
	FieldMessages() map[string][]string
}
