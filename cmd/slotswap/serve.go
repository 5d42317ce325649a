package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/slotswap-backend/internal/app"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("startup failed", "error", err)
				return err
			}
			defer a.Close()

			if err := a.Run(cmd.Context()); err != nil {
				log.Error("server stopped", "error", err)
				return err
			}
			log.Info("server shut down")
			return nil
		},
	}
}
