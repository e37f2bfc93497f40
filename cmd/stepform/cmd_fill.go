package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-stepform/internal/server"
	"github.com/goliatone/go-stepform/pkg/client"
	"github.com/goliatone/go-stepform/pkg/renderers/tui"
	"github.com/goliatone/go-stepform/pkg/session"
)

var (
	fillOutput     string
	fillIdentifier string
	fillName       string
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill the form with terminal prompts and print the submission",
	Args:  cobra.NoArgs,
	RunE:  runFill,
}

func init() {
	fillCmd.Flags().StringVarP(&fillOutput, "output", "o", string(tui.OutputFormatJSON), "Output format (json, form, pretty)")
	fillCmd.Flags().StringVar(&fillIdentifier, "identifier", "", "Roll number (prompted when empty)")
	fillCmd.Flags().StringVar(&fillName, "name", "", "Name (prompted when empty)")
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	renderer, err := tui.New(
		tui.WithOutputFormat(tui.OutputFormat(fillOutput)),
		tui.WithPromptDriver(tui.NewSurveyDriver(cmd.ErrOrStderr())),
		tui.WithLogger(logger.Named("tui")),
	)
	if err != nil {
		return err
	}

	c := newClient()
	notify := func(msg string) { fmt.Fprintln(cmd.ErrOrStderr(), msg) }
	identity, err := identify(ctx, c, func(ctx context.Context) (session.Identity, error) {
		return renderer.Login(ctx)
	}, notify, fillIdentifier, fillName)
	if err != nil {
		return err
	}

	s := session.New(identity, session.WithSink(newSink(c)), session.WithLogger(logger.Named("session")))
	out, err := renderer.Run(ctx, s, c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// loginAttempts bounds how often a prompted identity may be retried.
const loginAttempts = 3

// identify resolves the identity from flags or the prompt and checks it
// against the login service. A prompted identity that the service rejects is
// asked for again, up to loginAttempts times.
func identify(ctx context.Context, auth server.Authenticator, prompt func(context.Context) (session.Identity, error), notify func(string), identifier, name string) (session.Identity, error) {
	if identifier != "" || name != "" {
		identity, err := session.NewIdentity(identifier, name)
		if err != nil {
			return session.Identity{}, err
		}
		return identity, login(ctx, auth, identity)
	}

	var err error
	for attempt := 1; attempt <= loginAttempts; attempt++ {
		var identity session.Identity
		identity, err = prompt(ctx)
		if err != nil {
			return session.Identity{}, err
		}
		err = login(ctx, auth, identity)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, errLoginRejected) {
			return session.Identity{}, err
		}
		if attempt < loginAttempts && notify != nil {
			notify(server.LoginFailedMessage)
		}
	}
	return session.Identity{}, err
}

var errLoginRejected = errors.New(server.LoginFailedMessage)

func login(ctx context.Context, auth server.Authenticator, identity session.Identity) error {
	err := auth.Login(ctx, identity)
	if err == nil {
		return nil
	}
	logger.Info("login failed", zap.String("identifier", identity.Identifier), zap.Error(err))
	if errors.Is(err, client.ErrAuthenticationFailed) {
		return errLoginRejected
	}
	return err
}
