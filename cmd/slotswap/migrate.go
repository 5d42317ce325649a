package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/slotswap-backend/internal/app"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the relational schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := app.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if store.SQL == nil {
				log.Info("store has no schema to migrate", "driver", store.Driver)
				return nil
			}
			if err := store.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s schema\n", store.Driver)
			return err
		},
	}
}
