package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/compario/backend/config"
	"github.com/compario/backend/internal/infrastructure/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "compario",
	Short: "Compario backend - product identification and price comparison API",
	Long: `Compario identifies products in uploaded photos through a chain of vision
providers and keeps a per-user history of price comparisons.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration and builds the process logger
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	return cfg, logger, nil
}
