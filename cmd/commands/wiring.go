package commands

import (
	"dex-sniper/internal/clients_api/dexscreener"
	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/scan"
	"dex-sniper/internal/infra/config"
)

func newEngine(cfg *config.Config) *scan.Engine {
	client := dexscreener.NewClient(dexscreener.Config{
		BaseURL:        cfg.DexScreener.BaseURL,
		RequestTimeout: cfg.DexScreener.RequestTimeout,
		MaxRetries:     cfg.DexScreener.MaxRetries,
		RatePerSecond:  cfg.DexScreener.RateLimit,
		Burst:          4,
	})
	source := dexscreener.NewSource(client, cfg.DexScreener.ChainID)

	return scan.NewEngine(scan.Config{
		ChainID:       cfg.DexScreener.ChainID,
		TopN:          cfg.Scan.TopN,
		PerAssetDelay: cfg.Scan.PerAssetDelay,
		Thresholds:    cfg.Thresholds(),
		Policy:        cfg.Policy(),
	}, source, momentum.NewAnalyzer(cfg.Analyzer()), nil)
}
