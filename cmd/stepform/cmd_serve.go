package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-stepform/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the login gate and form pages over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	c := newClient()
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv, err := server.New(
		server.Dependencies{Authenticator: c, Fetcher: c, Sink: newSink(c)},
		server.WithLogger(logger.Named("server")),
		server.WithAddr(addr),
		server.WithLoginRate(rate.Limit(cfg.Server.LoginRate), cfg.Server.LoginBurst),
		server.WithSessionTTL(cfg.SessionTTL()),
		server.WithFetchTimeout(cfg.ClientTimeout()),
		server.WithShutdownGrace(cfg.ShutdownGrace()),
		server.WithSecureCookies(cfg.Server.SecureCookies),
	)
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}
