// Package navigator implements the section-by-section state machine of a
// multi-step form. Moving forward and submitting are gated on the current
// section validating; moving back never is.
package navigator

import (
	"errors"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/validation"
)

var (
	// ErrNotLastSection is returned by Submit before the final section.
	ErrNotLastSection = errors.New("navigator: submit is only available on the last section")
	// ErrNoSections is returned by New for an empty section list.
	ErrNoSections = errors.New("navigator: no sections")
)

// Controls reports which navigation buttons apply at the current position.
type Controls struct {
	Back   bool `json:"back"`
	Next   bool `json:"next"`
	Submit bool `json:"submit"`
}

// Navigator tracks the index of the visible section.
type Navigator struct {
	sections []model.Section
	index    int
	messages validation.Messages
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithMessages overrides the validation message formatters.
func WithMessages(messages validation.Messages) Option {
	return func(n *Navigator) {
		n.messages = messages
	}
}

// New returns a navigator positioned on the first section.
func New(sections []model.Section, opts ...Option) (*Navigator, error) {
	if len(sections) == 0 {
		return nil, ErrNoSections
	}
	n := &Navigator{
		sections: sections,
		messages: validation.DefaultMessages,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n, nil
}

// Index returns the zero-based position of the current section.
func (n *Navigator) Index() int { return n.index }

// Count returns the number of sections.
func (n *Navigator) Count() int { return len(n.sections) }

// IsFirst reports whether the first section is visible.
func (n *Navigator) IsFirst() bool { return n.index == 0 }

// IsLast reports whether the final section is visible.
func (n *Navigator) IsLast() bool { return n.index == len(n.sections)-1 }

// Current returns the visible section.
func (n *Navigator) Current() model.Section {
	return n.sections[n.index]
}

// Progress returns the one-based step number and the total.
func (n *Navigator) Progress() (step, total int) {
	return n.index + 1, len(n.sections)
}

// Validate checks the current section without moving.
func (n *Navigator) Validate(values model.Values) (bool, model.Errors) {
	return n.messages.ValidateSection(n.Current(), values)
}

// Next advances by one section when the current section validates. On
// failure the index is unchanged and the errors are returned. On the last
// section a successful Next leaves the index where it is.
func (n *Navigator) Next(values model.Values) (bool, model.Errors) {
	ok, errs := n.Validate(values)
	if !ok {
		return false, errs
	}
	if !n.IsLast() {
		n.index++
	}
	return true, errs
}

// Prev moves back one section, stopping at the first. It reports whether the
// index changed.
func (n *Navigator) Prev() bool {
	if n.index == 0 {
		return false
	}
	n.index--
	return true
}

// Submit validates the final section and returns a copy of the complete value
// map when it passes.
func (n *Navigator) Submit(values model.Values) (model.Values, model.Errors, error) {
	if !n.IsLast() {
		return nil, nil, ErrNotLastSection
	}
	ok, errs := n.Validate(values)
	if !ok {
		return nil, errs, nil
	}
	return values.Clone(), errs, nil
}

// Controls derives button visibility from the current position.
func (n *Navigator) Controls() Controls {
	return ControlsAt(n.index, len(n.sections))
}

// ControlsAt returns the controls for section index of count sections.
func ControlsAt(index, count int) Controls {
	last := index == count-1
	return Controls{
		Back:   index > 0,
		Next:   !last,
		Submit: last,
	}
}
