package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embld/contentcore/config"
	"github.com/embld/contentcore/store"
)

var errNotPostgres = errors.New("migrate: store.driver must be postgres")

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.DriverPostgres {
				return errNotPostgres
			}

			pool, err := store.Connect(ctx, cfg.Store.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
