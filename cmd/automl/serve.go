package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-automl/pipeline"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/server"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			history, err := a.openStore()
			if err != nil {
				return err
			}
			opts := []pipeline.Option{}
			if history != nil {
				defer history.Close()
				opts = append(opts, pipeline.WithStore(history))
			}
			runner, err := pipeline.New(a.cfg, opts...)
			if err != nil {
				return err
			}

			srv := server.New(a.cfg.Server, runner, history, log.GetLoggerWithName("server"))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(a.cfg.Server.Addr) }()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}
