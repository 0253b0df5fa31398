package main

import (
	"github.com/spf13/cobra"

	"github.com/compario/backend/internal/infrastructure/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := persistence.Open(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer persistence.Close(db)

		if err := persistence.Migrate(ctx, db, cfg.Database.Driver, logger); err != nil {
			return err
		}
		logger.Info().Str("driver", cfg.Database.Driver).Msg("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
