package bots_monitor

import (
	"fmt"
	"html"
	"strings"

	"dex-sniper/internal/features/detect"
	"dex-sniper/internal/features/scan"
	"dex-sniper/internal/features/session"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatUSD 1234567.8 -> $1,234,568
func FormatUSD(v float64) string {
	return printer.Sprintf("$%.0f", v)
}

func FormatAlert(a scan.Alert) string {
	s := a.Snapshot

	var emoji, extra string
	switch a.Tag() {
	case detect.TagLiquidityDrain:
		emoji = "🚨"
		extra = fmt.Sprintf("\n⚠️ <b>Liquidity drain -%.0f%%, possible rug!</b>", a.Flags.DrainPercent*100)
	case detect.TagVolumeSpike:
		emoji = "💥"
		extra = "\n📈 <b>Volume spike detected!</b>"
	case detect.TagTrend:
		emoji = "🔥"
		extra = "\n🚀 <b>Trending up!</b>"
	default:
		emoji = "🪙"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>#%d %s</b> (%s)\n", emoji, a.Rank, html.EscapeString(s.Name), html.EscapeString(s.Symbol)))
	b.WriteString(fmt.Sprintf("💵 $%.6f | MC: %s\n", s.PriceUSD, FormatUSD(s.MarketCap)))
	b.WriteString(fmt.Sprintf("💧 LQ: %s | ⚡ Momentum: %.2f\n", FormatUSD(s.Liquidity), s.Momentum))
	b.WriteString(fmt.Sprintf("📈 Change: %.2f%% | ⏱ Age: %d mins\n", s.PriceChange24h, s.AgeMinutes))
	if s.URL != "" {
		b.WriteString(fmt.Sprintf("🔗 <a href=\"%s\">Dexscreener</a>", html.EscapeString(s.URL)))
	} else {
		b.WriteString("🔗 Dexscreener: null")
	}
	if s.Twitter != "" {
		b.WriteString(fmt.Sprintf(" | <a href=\"%s\">X</a>", html.EscapeString(s.Twitter)))
	}
	if s.Telegram != "" {
		b.WriteString(fmt.Sprintf(" | <a href=\"%s\">TG</a>", html.EscapeString(s.Telegram)))
	}
	b.WriteString(extra)
	return b.String()
}

func FormatSessionStarted(active session.Window) string {
	return "📣 <b>Sniper session started</b>\n" +
		fmt.Sprintf("🕤 Window: <b>%s</b>\n", active) +
		"🔍 Beginning scan cycles..."
}

func FormatSessionEnded(active session.Window) string {
	return "📴 <b>Sniper session ended</b>\n" +
		fmt.Sprintf("🕛 Window: %s\n", active) +
		"📉 Scanning paused until the next window."
}

func FormatForcedPause(failures int) string {
	return fmt.Sprintf("⚠️ <b>Session auto-stopped after %d consecutive API failures.</b>\nScanning resumes after a cooldown.", failures)
}

// FormatSummary end-of-session report
func FormatSummary(st *session.Stats, active session.Window) string {
	if st.Cycles == 0 {
		return "📴 Session ended, no scans completed."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🌙 <b>Session summary (%s)</b>\n", active))
	b.WriteString(printer.Sprintf("🔁 Cycles completed: <b>%d</b>\n", st.Cycles))
	b.WriteString(printer.Sprintf("📊 Tokens scanned: <b>%d</b>\n", st.TokensScanned))
	b.WriteString(fmt.Sprintf("📈 Avg momentum: <b>%.2f</b>\n", st.AverageMomentum()))

	if best, ok := st.Best(); ok {
		b.WriteString(fmt.Sprintf("\n🏆 <b>Best performer:</b> %s, %.2f", html.EscapeString(best.Name), best.Momentum))
	}
	if len(st.Trending) > 0 {
		top := st.Trending[0]
		for _, s := range st.Trending[1:] {
			if s.Momentum > top.Momentum {
				top = s
			}
		}
		b.WriteString(fmt.Sprintf("\n🔥 <b>Most trending:</b> %s, %.2f", html.EscapeString(top.Name), top.Momentum))
	}
	if d, ok := st.WorstDrain(); ok {
		b.WriteString(fmt.Sprintf("\n🚨 <b>Biggest drain:</b> %s, -%.0f%% liquidity", html.EscapeString(d.Snapshot.Name), d.Drop*100))
	}
	return b.String()
}

func FormatStats(st *session.Stats) string {
	best := "N/A"
	if s, ok := st.Best(); ok {
		best = html.EscapeString(s.Name)
	}
	return "📊 <b>Session stats so far</b>\n" +
		fmt.Sprintf("🔁 Cycles: %d\n", st.Cycles) +
		fmt.Sprintf("📈 Avg momentum: %.2f\n", st.AverageMomentum()) +
		fmt.Sprintf("🔥 Trending tokens: %d\n", len(st.Trending)) +
		fmt.Sprintf("🏆 Best token so far: %s", best)
}

func FormatTop(st *session.Stats, n int) string {
	top := st.Top(n)
	if len(top) == 0 {
		return "No tokens scanned yet."
	}
	var b strings.Builder
	b.WriteString("🏆 <b>Top tokens right now</b>")
	for _, s := range top {
		b.WriteString(fmt.Sprintf("\n• %s, %.2f", html.EscapeString(s.Name), s.Momentum))
	}
	return b.String()
}
