package tg_charts

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSessionChart(t *testing.T) {
	start := time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)
	stats := session.NewStats("s1", start)
	stats.RecordCycle(start.Add(5*time.Minute), 4, []momentum.Snapshot{{Momentum: 40}, {Momentum: 12}})
	stats.RecordCycle(start.Add(12*time.Minute), 3, nil)
	stats.RecordCycle(start.Add(20*time.Minute), 5, []momentum.Snapshot{{Momentum: -3}})

	data, err := RenderSessionChart(stats)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, chartWidth, img.Bounds().Dx())
	assert.Equal(t, chartHeight, img.Bounds().Dy())
}

func TestRenderSessionChart_ManyCycles(t *testing.T) {
	start := time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)
	stats := session.NewStats("s2", start)
	for i := 0; i < maxBars*2; i++ {
		stats.RecordCycle(start.Add(time.Duration(i)*time.Minute), 1, []momentum.Snapshot{{Momentum: float64(i)}})
	}

	_, err := RenderSessionChart(stats)
	assert.NoError(t, err)
}

func TestRenderSessionChart_Empty(t *testing.T) {
	_, err := RenderSessionChart(session.NewStats("s3", time.Now()))
	assert.ErrorIs(t, err, ErrNoCycles)

	_, err = RenderSessionChart(nil)
	assert.ErrorIs(t, err, ErrNoCycles)
}
