package tg_charts

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"

	"dex-sniper/internal/features/session"
	logging "dex-sniper/internal/infra/log"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const (
	chartWidth  = 1600
	chartHeight = 900

	titleX = 80.0
	titleY = 90.0

	cyclesLabelX = 900.0
	avgLabelX    = 1250.0
	labelY       = 70.0
	valueY       = 130.0

	chartAreaLeft   = 120.0
	chartAreaRight  = 1520.0
	chartAreaTop    = 220.0
	chartAreaBottom = 800.0

	barSpacing     = 12.0
	maxBars        = 24 // latest cycles only
	gridLinesCount = 4

	titleFontSize = 48.0
	labelFontSize = 28.0
	valueFontSize = 44.0
	barFontSize   = 22.0

	barValueOffsetY = 12.0
	timeOffsetY     = 36.0
)

var ErrNoCycles = errors.New("no cycles to chart")

var fontPaths = []string{
	"etc/fonts/Inter-Regular.ttf",
	"./etc/fonts/InterVariable.ttf",
	"/usr/share/fonts/truetype/inter/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// RenderSessionChart draws the best momentum of each cycle of the session as a
// bar chart and returns it PNG-encoded
func RenderSessionChart(stats *session.Stats) ([]byte, error) {
	if stats == nil || len(stats.CycleLog) == 0 {
		return nil, ErrNoCycles
	}

	cycles := stats.CycleLog
	if len(cycles) > maxBars {
		cycles = cycles[len(cycles)-maxBars:]
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(color.Black)
	dc.Clear()

	fontPath := findFont()
	setFont := func(size float64) {
		if fontPath != "" {
			dc.LoadFontFace(fontPath, size)
		}
	}

	setFont(titleFontSize)
	dc.SetColor(color.White)
	dc.DrawString("Session momentum", titleX, titleY)

	setFont(labelFontSize)
	dc.DrawString("Cycles", cyclesLabelX, labelY)
	dc.DrawString("Average momentum", avgLabelX, labelY)

	setFont(valueFontSize)
	dc.DrawString(fmt.Sprintf("%d", stats.Cycles), cyclesLabelX, valueY)
	dc.SetColor(color.RGBA{0, 255, 0, 255})
	dc.DrawString(fmt.Sprintf("%.2f", stats.AverageMomentum()), avgLabelX, valueY)

	maxBest := 0.0
	for _, c := range cycles {
		maxBest = math.Max(maxBest, c.Best)
	}
	if maxBest == 0 {
		maxBest = 1.0
	}
	// round the axis up to a multiple of 10
	maxY := math.Ceil(maxBest/10) * 10
	chartAreaHeight := chartAreaBottom - chartAreaTop

	dc.SetColor(color.RGBA{80, 80, 80, 255})
	dc.SetLineWidth(1)
	for i := 0; i <= gridLinesCount; i++ {
		y := chartAreaBottom - float64(i)/gridLinesCount*chartAreaHeight
		dc.DrawLine(chartAreaLeft, y, chartAreaRight, y)
		dc.Stroke()
	}

	slot := (chartAreaRight - chartAreaLeft) / float64(len(cycles))
	barWidth := slot - barSpacing
	setFont(barFontSize)

	for i, c := range cycles {
		barX := chartAreaLeft + float64(i)*slot + barSpacing/2
		barHeight := math.Max(c.Best, 0) / maxY * chartAreaHeight
		barY := chartAreaBottom - barHeight

		dc.SetColor(color.RGBA{128, 128, 128, 255})
		dc.DrawRectangle(barX, barY, barWidth, barHeight)
		dc.Fill()

		dc.SetColor(color.White)
		if c.Ranked > 0 {
			dc.DrawStringAnchored(fmt.Sprintf("%.1f", c.Best), barX+barWidth/2, barY-barValueOffsetY, 0.5, 0)
		}
		dc.DrawStringAnchored(c.At.Format("15:04"), barX+barWidth/2, chartAreaBottom+timeOffsetY, 0.5, 0)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}

	logging.LogDebug("Session chart rendered",
		zap.String("session", stats.ID),
		zap.Int("bars", len(cycles)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func findFont() string {
	for _, p := range fontPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
