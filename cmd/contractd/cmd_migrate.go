package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := repository.Open(ctx, repository.FromAppConfig(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer db.Close(logger)
		return db.Migrate(ctx, logger)
	},
}
