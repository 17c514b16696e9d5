package cmd

import (
	"fmt"
	"log/slog"

	"krishi-backend/internal/config"
	"krishi-backend/internal/database"
	"krishi-backend/internal/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables (postgres) or indexes (mongo) for the configured driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Setup(cfg.Env, cfg.LogLevel)

		if err := database.Migrate(cmd.Context(), cfg); err != nil {
			slog.Error("Migration failed", slog.Any("error", err))
			return err
		}
		slog.Info("Migration completed", slog.String("driver", cfg.DBDriver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
