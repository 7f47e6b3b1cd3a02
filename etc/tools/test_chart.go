package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/session"
	"dex-sniper/internal/features/tg_charts"
)

// go run etc/tools/test_chart.go
// in etc/charts/session_chart.png
func main() {
	fmt.Println("Generating test chart...")

	start := time.Now().Add(-3 * time.Hour)
	stats := session.NewStats("preview", start)
	for i := 0; i < 18; i++ {
		ranked := []momentum.Snapshot{{Momentum: 20 + rand.Float64()*60}, {Momentum: rand.Float64() * 20}}
		stats.RecordCycle(start.Add(time.Duration(i)*10*time.Minute), 12, ranked)
	}

	png, err := tg_charts.RenderSessionChart(stats)
	if err != nil {
		fmt.Printf("Error generating chart: %v\n", err)
		os.Exit(1)
	}

	chartPath := filepath.Join("etc", "charts", "session_chart.png")
	if err := os.MkdirAll(filepath.Dir(chartPath), 0755); err != nil {
		fmt.Printf("Error creating charts dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(chartPath, png, 0644); err != nil {
		fmt.Printf("Error writing chart: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Chart generated successfully: %s\n", chartPath)
	fmt.Println("Open the file to see the result!")
}
