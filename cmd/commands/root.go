package commands

// Root command for Cobra CLI
// Registers subcommands (run, scan) and the flags they share

import (
	"fmt"

	"dex-sniper/internal/infra/config"
	logging "dex-sniper/internal/infra/log"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sniper",
	Short: "DexScreener new-listing sniper - Telegram alerts for fresh Solana tokens",
	Long: `Sniper polls DexScreener for newly listed Solana tokens, scores their momentum,
tracks trend, volume spike and liquidity drain changes between cycles,
and sends Telegram alerts during a daily window.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
}

// loadConfig loads config and starts logging, in that order
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Init(cfg.App.LogDir, cfg.App.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to init logging: %w", err)
	}
	return cfg, nil
}
