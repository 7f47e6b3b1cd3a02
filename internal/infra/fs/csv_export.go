package fs

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"dex-sniper/internal/features/momentum"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var csvHeader = []string{
	"Rank", "Name", "Symbol", "Price", "Market Cap", "Volume",
	"Liquidity", "24h Change", "Age (mins)", "Momentum Score",
	"Pair URL", "Twitter", "Telegram",
}

var numbers = message.NewPrinter(language.English)

// WriteTopTokens overwrites path with the ranked snapshots of the last cycle.
// The file is written next to path and renamed, readers never see a partial file.
func WriteTopTokens(path string, ranked []momentum.Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, s := range ranked {
		if err := w.Write(csvRow(i+1, s)); err != nil {
			tmp.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp csv: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func csvRow(rank int, s momentum.Snapshot) []string {
	return []string{
		strconv.Itoa(rank),
		s.Name,
		s.Symbol,
		fmt.Sprintf("%.6f", s.PriceUSD),
		numbers.Sprintf("%.2f", s.MarketCap),
		numbers.Sprintf("%.2f", s.Volume24h),
		numbers.Sprintf("%.2f", s.Liquidity),
		fmt.Sprintf("%.2f%%", s.PriceChange24h),
		strconv.Itoa(s.AgeMinutes),
		fmt.Sprintf("%.2f", s.Momentum),
		s.URL,
		s.Twitter,
		s.Telegram,
	}
}
