package commands

// Command to run one dry scan cycle and print the ranking
// No Telegram, no session, no liveness server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dex-sniper/internal/infra/fs"
	logging "dex-sniper/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan DexScreener once, log the ranked tokens and write the CSV",
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res := newEngine(cfg).Scan(ctx)

	for i, s := range res.Ranked {
		logging.LogInfo("Ranked token",
			zap.Int("rank", i+1),
			zap.String("name", s.Name),
			zap.String("symbol", s.Symbol),
			zap.Float64("momentum", s.Momentum),
			zap.Float64("marketCap", s.MarketCap),
			zap.Int("ageMinutes", s.AgeMinutes),
			zap.String("url", s.URL))
	}

	if cfg.Export.CSVPath != "" && len(res.Ranked) > 0 {
		if err := fs.WriteTopTokens(cfg.Export.CSVPath, res.Ranked); err != nil {
			logging.LogWarn("Failed to export csv", zap.Error(err))
		}
	}

	rejected := make(map[string]int, len(res.Rejected))
	for reason, n := range res.Rejected {
		rejected[string(reason)] = n
	}
	logging.LogSuccess("Scan finished",
		zap.Int("candidates", res.Candidates),
		zap.Int("scanned", res.Scanned),
		zap.Int("ranked", len(res.Ranked)),
		zap.Int("fetchErrors", res.FetchErrors),
		zap.Any("rejected", rejected))
	return nil
}
