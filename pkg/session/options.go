package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/pkg/validation"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Sessions default to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSink sets where completed submissions go. Without a sink, Submit only
// logs the submission.
func WithSink(sink Sink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock overrides the time source stamped on submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMessages overrides the validation messages.
func WithMessages(messages validation.Messages) Option {
	return func(s *Session) {
		s.messages = messages
	}
}

// WithLegacyLoading keeps a session whose schema fetch failed in the loading
// state instead of moving it to StateFailed. The failure is still logged and
// available from Err.
func WithLegacyLoading() Option {
	return func(s *Session) {
		s.legacyLoading = true
	}
}
