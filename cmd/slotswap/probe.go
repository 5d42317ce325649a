package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/yungbote/slotswap-backend/internal/app"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
)

type probeReport struct {
	Driver       string     `json:"driver"`
	Configured   string     `json:"configured_mode,omitempty"`
	Transactions txn.Status `json:"transactions"`
}

// The probe ignores TXN_MODE so operators can see what the store itself
// supports before pinning a mode.
func newProbeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe whether the store supports atomic transactions",
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

			capability := txn.ProbeCapability(cmd.Context(), store.Prober(), cfg.TxnProbeTimeout, log)
			report := probeReport{
				Driver:       store.Driver,
				Configured:   cfg.TxnMode,
				Transactions: capability.Status(),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
