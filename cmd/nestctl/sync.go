package main

import (
	"encoding/json"

	"nest-data/common/database"
	"nest-data/internal/service"

	"github.com/spf13/cobra"
)

func syncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Medical record sync maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "retry",
		Short: "Run one retry pass over unsynced medical records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, st, err := a.openStore()
			if err != nil {
				return err
			}
			defer database.Close(db)

			medical := service.NewMedicalSyncService(st, service.NopPublisher{}, nil, service.SyncOptions{
				MaxAttempts: a.cfg.Sync.MaxAttempts,
				Grace:       a.cfg.Sync.Grace,
				BatchSize:   a.cfg.Sync.BatchSize,
			}, a.log)
			report, err := medical.RetryFailed(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	})
	return cmd
}
