package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoSession is returned when Run is called without a session.
	ErrNoSession = errors.New("tui: session is nil")
	// ErrLoadAbandoned is returned when the schema could not be loaded and
	// the user declined to retry.
	ErrLoadAbandoned = errors.New("tui: form load abandoned")
)
