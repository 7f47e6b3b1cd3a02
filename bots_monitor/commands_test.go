package bots_monitor

import (
	"strings"
	"testing"
	"time"

	"dex-sniper/internal/features/detect"
	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/scan"
	"dex-sniper/internal/features/session"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want CommandKind
	}{
		{"/stats", CommandStats},
		{"  /STATS ", CommandStats},
		{"/top", CommandTop},
		{"/top@sniper_bot", CommandTop},
		{"/top now", CommandUnknown},
		{"/top@bot extra", CommandUnknown},
		{"stats", CommandUnknown},
		{"/help", CommandUnknown},
		{"", CommandUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCommand(tt.text), tt.text)
	}
}

func statsWith(snaps ...momentum.Snapshot) *session.Stats {
	st := session.NewStats("s", time.Now())
	st.RecordCycle(time.Now(), len(snaps), snaps)
	return st
}

func TestReplyTo(t *testing.T) {
	empty := session.NewStats("", time.Time{})

	reply, ok := ReplyTo(CommandTop, empty)
	assert.True(t, ok)
	assert.Equal(t, "No tokens scanned yet.", reply)

	reply, _ = ReplyTo(CommandStats, empty)
	assert.Contains(t, reply, "Cycles: 0")
	assert.Contains(t, reply, "Best token so far: N/A")

	st := statsWith(
		momentum.Snapshot{Name: "A", Momentum: 10},
		momentum.Snapshot{Name: "B", Momentum: 90},
		momentum.Snapshot{Name: "C", Momentum: 40},
		momentum.Snapshot{Name: "D", Momentum: 20},
	)
	reply, _ = ReplyTo(CommandTop, st)
	assert.Equal(t, 3, strings.Count(reply, "•"))
	assert.Less(t, strings.Index(reply, "B, 90.00"), strings.Index(reply, "C, 40.00"))
	assert.NotContains(t, reply, "A, 10.00")

	reply, _ = ReplyTo(CommandStats, st)
	assert.Contains(t, reply, "Avg momentum: 40.00")
	assert.Contains(t, reply, "Best token so far: B")

	_, ok = ReplyTo(CommandUnknown, st)
	assert.False(t, ok)
}

func TestFormatAlert(t *testing.T) {
	a := scan.Alert{
		Rank: 2,
		Snapshot: momentum.Snapshot{
			Name: "Cat <3", Symbol: "CAT", PriceUSD: 0.01, MarketCap: 1234567, Liquidity: 30000,
			Momentum: 46.2, PriceChange24h: 80, AgeMinutes: 90, URL: "https://dexscreener.com/solana/cat",
			Twitter: "https://x.com/cat",
		},
		Flags: detect.Flags{LiquidityDrain: true, DrainPercent: 0.4, TrendUp: true},
	}

	msg := FormatAlert(a)
	assert.True(t, strings.HasPrefix(msg, "🚨 <b>#2 Cat &lt;3</b> (CAT)"))
	assert.Contains(t, msg, "MC: $1,234,567")
	assert.Contains(t, msg, "Momentum: 46.20")
	assert.Contains(t, msg, "-40%")
	assert.Contains(t, msg, `<a href="https://x.com/cat">X</a>`)

	a.Flags = detect.Flags{}
	assert.True(t, strings.HasPrefix(FormatAlert(a), "🪙"))
	a.Flags = detect.Flags{VolumeSpike: true, TrendUp: true}
	assert.True(t, strings.HasPrefix(FormatAlert(a), "💥"))
	a.Flags = detect.Flags{TrendUp: true}
	assert.True(t, strings.HasPrefix(FormatAlert(a), "🔥"))
}

func TestFormatSummary(t *testing.T) {
	assert.Contains(t, FormatSummary(session.NewStats("", time.Time{}), session.Window{}), "no scans")

	st := statsWith(momentum.Snapshot{Name: "Best", Momentum: 80}, momentum.Snapshot{Name: "Low", Momentum: 20})
	st.RecordDrain(momentum.Snapshot{Name: "Rug"}, 0.3)
	st.RecordDrain(momentum.Snapshot{Name: "BigRug"}, 0.7)
	st.RecordTrend(momentum.Snapshot{Name: "Low", Momentum: 20})

	out := FormatSummary(st, session.Window{Start: 20*60 + 30, End: 30})
	assert.Contains(t, out, "20:30 → 00:30")
	assert.Contains(t, out, "Cycles completed: <b>1</b>")
	assert.Contains(t, out, "Avg momentum: <b>50.00</b>")
	assert.Contains(t, out, "Best performer:</b> Best, 80.00")
	assert.Contains(t, out, "Most trending:</b> Low")
	assert.Contains(t, out, "BigRug, -70%")
}
