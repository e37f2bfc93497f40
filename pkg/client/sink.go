package client

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/pkg/session"
)

// LogSink is a session.Sink that records submissions in the log and accepts
// them unconditionally.
type LogSink struct {
	logger *zap.Logger
}

var _ session.Sink = (*LogSink)(nil)

// NewLogSink returns a LogSink writing to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Submit logs the submission.
func (s *LogSink) Submit(_ context.Context, submission session.Submission) error {
	fields := make([]string, 0, len(submission.Values))
	for id := range submission.Values {
		fields = append(fields, id)
	}
	sort.Strings(fields)

	s.logger.Info("form submission",
		zap.String("form_id", submission.FormID),
		zap.String("version", submission.Version),
		zap.String("identifier", submission.Identifier),
		zap.String("name", submission.Name),
		zap.Time("submitted_at", submission.SubmittedAt),
		zap.Strings("fields", fields),
		zap.Any("values", submission.Values),
	)
	return nil
}
