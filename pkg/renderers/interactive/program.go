package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/goliatone/go-stepform/pkg/session"
)

// ErrQuit is returned by Run when the user leaves before submitting.
var ErrQuit = errors.New("interactive: quit before submission")

// ProgramConfig wires the terminal streams used by Run.
type ProgramConfig struct {
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

// Run drives s in a bubbletea program until the user submits or quits.
func Run(ctx context.Context, s *session.Session, fetcher session.Fetcher, cfg ProgramConfig, opts ...Option) (session.Submission, error) {
	if s == nil {
		return session.Submission{}, errors.New("interactive: session is nil")
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Input != nil {
		programOpts = append(programOpts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(cfg.Output))
	}
	if cfg.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(New(ctx, s, fetcher, opts...), programOpts...).Run()
	if err != nil {
		return session.Submission{}, fmt.Errorf("interactive: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return session.Submission{}, fmt.Errorf("interactive: unexpected model %T", final)
	}
	if sub, ok := m.Session().Submission(); ok {
		return sub, nil
	}
	if err := m.Session().Err(); err != nil {
		return session.Submission{}, fmt.Errorf("%w: %w", ErrQuit, err)
	}
	return session.Submission{}, ErrQuit
}
