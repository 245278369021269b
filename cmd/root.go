package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "suplook",
	Short: "Restaurant packaging lead enrichment",
	Long:  "Finds photos of restaurants, classifies them with a vision model into packaging product picks, and tracks operator review, field outcomes, and CRM push.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
