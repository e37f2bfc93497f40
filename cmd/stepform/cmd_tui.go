package main

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-stepform/pkg/renderers/interactive"
	"github.com/goliatone/go-stepform/pkg/renderers/tui"
	"github.com/goliatone/go-stepform/pkg/session"
)

var (
	tuiIdentifier string
	tuiName       string
	tuiAltScreen  bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Fill the form in a full-screen terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiIdentifier, "identifier", "", "Roll number (prompted when empty)")
	tuiCmd.Flags().StringVar(&tuiName, "name", "", "Name (prompted when empty)")
	tuiCmd.Flags().BoolVar(&tuiAltScreen, "alt-screen", true, "Use the terminal alternate screen")
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c := newClient()

	prompt := func(ctx context.Context) (session.Identity, error) {
		r, err := tui.New(tui.WithPromptDriver(tui.NewSurveyDriver(cmd.ErrOrStderr())))
		if err != nil {
			return session.Identity{}, err
		}
		return r.Login(ctx)
	}
	notify := func(msg string) { fmt.Fprintln(cmd.ErrOrStderr(), msg) }
	identity, err := identify(ctx, c, prompt, notify, tuiIdentifier, tuiName)
	if err != nil {
		return err
	}

	s := session.New(identity, session.WithSink(newSink(c)), session.WithLogger(logger.Named("session")))
	sub, err := interactive.Run(ctx, s, c, interactive.ProgramConfig{
		Input:     cmd.InOrStdin(),
		Output:    cmd.ErrOrStderr(),
		AltScreen: tuiAltScreen,
	}, interactive.WithLogger(logger.Named("interactive")))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(sub)
}
