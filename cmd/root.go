package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-hunter/internal/config"
	"github.com/sells-group/lead-hunter/internal/hunter"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lead-hunter",
	Short: "Permit visit recommendations and route planning",
	Long:  "Ranks building permits into a prioritized visit list, detects hot zones and sequences selected permits into a time-boxed route.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if f := cmd.Flag("weights"); f != nil && f.Value.String() != "" {
			c.Hunter.WeightsFile = f.Value.String()
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if err := applyWeightsFile(cfg); err != nil {
			return fmt.Errorf("apply weights: %w", err)
		}

		zap.L().Debug("config loaded",
			zap.String("command", cmd.Name()),
			zap.String("store_driver", cfg.Store.Driver),
			zap.Bool("default_location", cfg.Route.HasDefaultLocation()),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyWeightsFile overlays hunter.weights_file onto the loaded weight table
// so every subcommand scores with the same weights.
func applyWeightsFile(c *config.Config) error {
	path := c.Hunter.WeightsFile
	if path == "" {
		return nil
	}
	w, err := hunter.LoadWeightsFile(path, c.Hunter.Weights)
	if err != nil {
		return err
	}
	c.Hunter.Weights = w
	zap.L().Info("weights file applied", zap.String("path", path))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("weights", "", "YAML weights file overlaid on hunter.weights (overrides hunter.weights_file)")
}
