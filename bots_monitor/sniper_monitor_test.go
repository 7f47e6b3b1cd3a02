package bots_monitor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dex-sniper/internal/features/detect"
	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/scan"
	"dex-sniper/internal/features/session"
	"dex-sniper/internal/infra/health"
	"dex-sniper/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	refs    []scan.AssetRef
	details map[string]string
	fail    bool
}

func (f *fakeSource) ListCandidates(ctx context.Context) []scan.AssetRef { return f.refs }

func (f *fakeSource) FetchDetail(ctx context.Context, ref scan.AssetRef) ([]byte, error) {
	if f.fail {
		return nil, errors.New("503")
	}
	raw, ok := f.details[ref.Address]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(raw), nil
}

type recordingNotifier struct {
	texts  []string
	photos int
}

func (n *recordingNotifier) Send(text string) error {
	n.texts = append(n.texts, text)
	return nil
}

func (n *recordingNotifier) SendPhoto(png []byte, caption string) error {
	n.photos++
	return nil
}

type queuedCommands struct{ batches [][]Command }

func (q *queuedCommands) PollCommands(ctx context.Context) ([]Command, error) {
	if len(q.batches) == 0 {
		return nil, nil
	}
	b := q.batches[0]
	q.batches = q.batches[1:]
	return b, nil
}

type harness struct {
	clock    time.Time
	source   *fakeSource
	notifier *recordingNotifier
	commands *queuedCommands
	metrics  *observability.Metrics
	status   *health.Status
	csvPath  string
	monitor  *SniperMonitor
}

var evening = time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)

func pairJSON(addr string, change float64, created time.Time, twitter bool) string {
	socials := ""
	if twitter {
		socials = `{"type":"twitter","url":"https://x.com/` + addr + `"}`
	}
	return fmt.Sprintf(`[{"chainId":"solana","url":"https://dexscreener.com/solana/%s",
		"baseToken":{"address":"%s","name":"Token %s","symbol":"%s"},
		"priceUsd":"0.01","marketCap":100000,"volume":{"h24":20000},"liquidity":{"usd":30000},
		"priceChange":{"h24":%v},"pairCreatedAt":%d,"info":{"socials":[%s]}}]`,
		addr, addr, addr, addr, change, created.UnixMilli(), socials)
}

func newHarness(t *testing.T, policy session.Policy) *harness {
	t.Helper()
	created := evening.Add(-90 * time.Minute)
	h := &harness{
		clock: evening,
		source: &fakeSource{
			refs: []scan.AssetRef{
				{ChainID: "solana", Address: "A"},
				{ChainID: "solana", Address: "B"},
				{ChainID: "solana", Address: "C"},
				{ChainID: "solana", Address: "D"},
				{ChainID: "solana", Address: "E"},
			},
			details: map[string]string{
				"A": pairJSON("A", 10, created, true),
				"B": pairJSON("B", 80, created, true),
				"C": pairJSON("C", 50, created, false),
				"D": pairJSON("D", 30, created, true),
				"E": `{"marketCap": 1}`,
			},
		},
		notifier: &recordingNotifier{},
		commands: &queuedCommands{},
		metrics:  observability.NewMetrics(),
		status:   health.NewStatus(evening),
		csvPath:  filepath.Join(t.TempDir(), "top_tokens.csv"),
	}

	now := func() time.Time { return h.clock }
	active, err := session.ParseWindow("20:30", "00:30", time.UTC)
	require.NoError(t, err)

	engine := scan.NewEngine(scan.Config{
		ChainID:    "solana",
		TopN:       5,
		Thresholds: detect.DefaultThresholds(),
		Policy:     policy,
	}, h.source, momentum.NewAnalyzer(momentum.DefaultConfig()), now)

	h.monitor = NewSniperMonitor(MonitorConfig{
		Active:         active,
		MaxAPIFailures: 5,
		MinInterval:    5 * time.Minute,
		MaxInterval:    10 * time.Minute,
		IdleInterval:   5 * time.Minute,
		Cooldown:       10 * time.Minute,
		CSVPath:        h.csvPath,
	}, engine, h.notifier, h.commands, h.status, h.metrics)
	h.monitor.now = now
	return h
}

func (h *harness) alerts() []string {
	var out []string
	for _, s := range h.notifier.texts {
		if strings.Contains(s, "Momentum:") {
			out = append(out, s)
		}
	}
	return out
}

func TestStep_FullCycle(t *testing.T) {
	h := newHarness(t, session.Policy{})

	d := h.monitor.Step(context.Background())

	assert.GreaterOrEqual(t, d, 5*time.Minute)
	assert.LessOrEqual(t, d, 10*time.Minute)

	require.Len(t, h.notifier.texts, 4, "session started + three alerts")
	assert.Contains(t, h.notifier.texts[0], "Sniper session started")
	alerts := h.alerts()
	require.Len(t, alerts, 3)
	assert.Contains(t, alerts[0], "#1 Token B")
	assert.Contains(t, alerts[1], "#2 Token D")
	assert.Contains(t, alerts[2], "#3 Token A")

	f, err := os.Open(h.csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header + three ranked rows")
	assert.Equal(t, "Token B", rows[1][1])

	assert.True(t, h.monitor.Session().Active())
	assert.Equal(t, 1, h.status.Snapshot(evening).Cycles)
	assert.True(t, h.status.Snapshot(evening).SessionActive)
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.AlertsSent.WithLabelValues("trend_up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Cycles))
}

func TestStep_SecondCycleSendsUnflaggedListings(t *testing.T) {
	h := newHarness(t, session.Policy{})
	h.monitor.Step(context.Background())
	h.notifier.texts = nil

	h.clock = evening.Add(7 * time.Minute)
	h.monitor.Step(context.Background())

	alerts := h.alerts()
	require.Len(t, alerts, 3, "outside quiet hours every ranked token is sent")
	for _, a := range alerts {
		assert.True(t, strings.HasPrefix(a, "🪙"), "no flag on an unchanged token")
	}
}

func TestStep_QuietHoursSuppressLowUnflagged(t *testing.T) {
	quiet, err := session.ParseWindow("23:00", "23:30", time.UTC)
	require.NoError(t, err)
	h := newHarness(t, session.Policy{QuietEnabled: true, Quiet: quiet, QuietThreshold: 70})
	h.clock = time.Date(2026, 3, 14, 23, 5, 0, 0, time.UTC)

	h.monitor.Step(context.Background())
	assert.Len(t, h.alerts(), 3, "first sightings trend and are sent")

	h.notifier.texts = nil
	h.clock = h.clock.Add(6 * time.Minute)
	h.monitor.Step(context.Background())

	assert.Empty(t, h.alerts())
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.AlertsSuppressed))
	assert.Len(t, h.monitor.Session().Stats().Shown, 6, "suppressed tokens still count")
}

func TestStep_WindowExitEndsSessionAndNextBeginsFresh(t *testing.T) {
	h := newHarness(t, session.Policy{})
	h.monitor.Step(context.Background())
	firstID := h.monitor.Session().Stats().ID

	h.notifier.texts = nil
	h.clock = time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)
	d := h.monitor.Step(context.Background())

	assert.Equal(t, 5*time.Minute, d)
	assert.False(t, h.monitor.Session().Active())
	require.Len(t, h.notifier.texts, 2)
	assert.Contains(t, h.notifier.texts[0], "Session summary")
	assert.Contains(t, h.notifier.texts[1], "Sniper session ended")
	assert.Equal(t, 1, h.notifier.photos)

	// idle: nothing more is sent
	h.notifier.texts = nil
	h.monitor.Step(context.Background())
	assert.Empty(t, h.notifier.texts)

	h.clock = time.Date(2026, 3, 15, 20, 45, 0, 0, time.UTC)
	h.monitor.Step(context.Background())
	st := h.monitor.Session().Stats()
	assert.NotEqual(t, firstID, st.ID)
	assert.Equal(t, 1, st.Cycles)
	for _, a := range h.alerts() {
		assert.True(t, strings.HasPrefix(a, "🔥"), "history was cleared, tokens trend again")
	}
}

func TestStep_FailureCeilingForcesPause(t *testing.T) {
	h := newHarness(t, session.Policy{})
	h.source.fail = true

	d := h.monitor.Step(context.Background())

	assert.Equal(t, 10*time.Minute, d)
	assert.False(t, h.monitor.Session().Active())
	require.Len(t, h.notifier.texts, 4)
	assert.Contains(t, h.notifier.texts[0], "Sniper session started")
	assert.Contains(t, h.notifier.texts[1], "auto-stopped after 5 consecutive API failures")
	assert.Contains(t, h.notifier.texts[2], "Session summary")
	assert.Contains(t, h.notifier.texts[3], "Sniper session ended")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ForcedPauses))
	assert.Equal(t, 5.0, testutil.ToFloat64(h.metrics.FetchFailures))

	// after the cooldown, still inside the window: a new session starts with a clean counter
	h.source.fail = false
	h.notifier.texts = nil
	h.clock = h.clock.Add(10 * time.Minute)
	h.monitor.Step(context.Background())
	assert.True(t, h.monitor.Session().Active())
	assert.Contains(t, h.notifier.texts[0], "Sniper session started")
	assert.Len(t, h.alerts(), 3)
}

func TestStep_CommandsAreReadOnly(t *testing.T) {
	h := newHarness(t, session.Policy{})
	h.clock = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) // outside the window
	h.commands.batches = [][]Command{{
		{ChatID: 1, Text: "/stats"},
		{ChatID: 1, Text: "/TOP@sniper_bot"},
		{ChatID: 2, Text: "gm"},
	}}

	h.monitor.Step(context.Background())

	require.Len(t, h.notifier.texts, 2)
	assert.Contains(t, h.notifier.texts[0], "Cycles: 0")
	assert.Equal(t, "No tokens scanned yet.", h.notifier.texts[1])
	assert.False(t, h.monitor.Session().Active())
	assert.Equal(t, 0, h.monitor.Session().Stats().Cycles)
}

func TestRunOnce_IgnoresWindow(t *testing.T) {
	h := newHarness(t, session.Policy{})
	h.clock = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.monitor.RunOnce(context.Background()))
	assert.Len(t, h.alerts(), 3)
	assert.Equal(t, 1, h.monitor.Session().Stats().Cycles)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t, session.Policy{})
	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	h.monitor.sleep = func(ctx context.Context, d time.Duration) error {
		steps++
		if steps == 2 {
			cancel()
		}
		h.clock = h.clock.Add(d)
		return ctx.Err()
	}

	require.NoError(t, h.monitor.Run(ctx))
	assert.Equal(t, 2, steps)
	assert.Equal(t, 2, h.monitor.Session().Stats().Cycles)
}
