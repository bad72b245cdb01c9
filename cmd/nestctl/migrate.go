package main

import (
	"nest-data/common/database"
	"nest-data/migrations"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.NewPostgresDB(&a.cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := migrations.Apply(cmd.Context(), db); err != nil {
				return err
			}
			a.log.Info("Schema applied", zap.String("database", a.cfg.Database.Database))
			return nil
		},
	}
}
