package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/embld/contentcore/config"
	"github.com/embld/contentcore/internal/app"
	"github.com/embld/contentcore/observe"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			a, err := app.New(ctx, cfg, version)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := a.Close(closeCtx); err != nil {
					a.Logger.Error(closeCtx, "shutdown", observe.Err(err))
				}
			}()
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides http.addr")
	return cmd
}
