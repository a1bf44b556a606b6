package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-extract/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "esg-extract",
	Short: "ESG KPI extraction and reconciliation engine",
	Long:  "Mines sustainability reports for registry-defined KPIs via code, semantic, keyword, and OCR strategies, reconciles the candidates, and maintains a deduplicated master dataset.",
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
