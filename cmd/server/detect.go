package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/compario/backend/internal/infrastructure/cache"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Identify the product in a local image with the configured providers",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	// Results are not worth keeping across runs
	store := cache.NewMemoryCache(0)
	defer store.Close()

	result, err := newVisionService(cfg, store, logger).Detect(cmd.Context(), image)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
