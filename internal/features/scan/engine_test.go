package scan

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dex-sniper/internal/features/detect"
	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var engineNow = time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)

type fakeSource struct {
	refs    []AssetRef
	details map[string]string
	errs    map[string]error
	panics  map[string]bool
	fetched []string
}

func (f *fakeSource) ListCandidates(ctx context.Context) []AssetRef { return f.refs }

func (f *fakeSource) FetchDetail(ctx context.Context, ref AssetRef) ([]byte, error) {
	f.fetched = append(f.fetched, ref.Address)
	if f.panics[ref.Address] {
		panic("upstream exploded")
	}
	if err := f.errs[ref.Address]; err != nil {
		return nil, err
	}
	raw, ok := f.details[ref.Address]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(raw), nil
}

func detailJSON(addr string, change float64, twitter bool) string {
	socials := ""
	if twitter {
		socials = `{"type":"twitter","url":"https://x.com/` + addr + `"}`
	}
	created := engineNow.Add(-90 * time.Minute).Unix()
	return fmt.Sprintf(`[{"chainId":"solana","url":"https://dexscreener.com/solana/%s",
		"baseToken":{"address":"%s","name":"Token %s","symbol":"%s"},
		"priceUsd":"0.01","marketCap":100000,"volume":{"h24":20000},"liquidity":{"usd":30000},
		"priceChange":{"h24":%v},"pairCreatedAt":%d,"info":{"socials":[%s]}}]`,
		addr, addr, addr, addr, change, created, socials)
}

func newTestEngine(src Source, cfg Config) *Engine {
	if cfg.ChainID == "" {
		cfg.ChainID = "solana"
	}
	if cfg.Thresholds == (detect.Thresholds{}) {
		cfg.Thresholds = detect.DefaultThresholds()
	}
	return NewEngine(cfg, src, momentum.NewAnalyzer(momentum.DefaultConfig()), func() time.Time { return engineNow })
}

func fiveCandidates() *fakeSource {
	return &fakeSource{
		refs: []AssetRef{
			{ChainID: "solana", Address: "A"},
			{ChainID: "solana", Address: "B"},
			{ChainID: "solana", Address: "C"},
			{ChainID: "solana", Address: "D"},
			{ChainID: "solana", Address: "E"},
		},
		details: map[string]string{
			"A": detailJSON("A", 10, true),
			"B": detailJSON("B", 80, true),
			"C": detailJSON("C", 50, false), // no twitter
			"D": detailJSON("D", 30, true),
			"E": `{"marketCap": 1}`, // fails market cap gate
		},
	}
}

func TestScan_RanksPassingCandidatesDescending(t *testing.T) {
	e := newTestEngine(fiveCandidates(), Config{})

	res := e.Scan(context.Background())

	require.Len(t, res.Ranked, 3)
	assert.Equal(t, []string{"B", "D", "A"}, []string{res.Ranked[0].ID, res.Ranked[1].ID, res.Ranked[2].ID})
	assert.Equal(t, 5, res.Candidates)
	assert.Equal(t, 5, res.Scanned)
	assert.Equal(t, 1, res.Rejected[momentum.RejectNoTwitter])
	assert.Equal(t, 1, res.Rejected[momentum.RejectMarketCap])
}

func TestScan_TopN(t *testing.T) {
	e := newTestEngine(fiveCandidates(), Config{TopN: 2})

	res := e.Scan(context.Background())
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "B", res.Ranked[0].ID)
	assert.Equal(t, "D", res.Ranked[1].ID)
}

func TestScan_FiltersChainAndEmptyAddress(t *testing.T) {
	src := fiveCandidates()
	src.refs = append(src.refs, AssetRef{ChainID: "ethereum", Address: "0xabc"}, AssetRef{ChainID: "solana"})
	e := newTestEngine(src, Config{})

	res := e.Scan(context.Background())
	assert.Equal(t, 5, res.Candidates)
	assert.NotContains(t, src.fetched, "0xabc")
	assert.Len(t, src.fetched, 5)
}

func TestScan_FailureCounter(t *testing.T) {
	src := fiveCandidates()
	src.errs = map[string]error{"D": errors.New("timeout"), "E": errors.New("timeout")}
	e := newTestEngine(src, Config{})

	res := e.Scan(context.Background())
	assert.Equal(t, 2, res.FetchErrors)
	assert.Equal(t, 2, e.ConsecutiveFailures(), "D and E are the last two candidates")
	require.Len(t, res.Ranked, 2)

	// a success resets the streak
	src.errs = map[string]error{"A": errors.New("timeout")}
	e.Scan(context.Background())
	assert.Equal(t, 0, e.ConsecutiveFailures())

	e.failures = 4
	e.ResetFailures()
	assert.Equal(t, 0, e.ConsecutiveFailures())
}

func TestScan_FailureCounterCountsUndecodableBodies(t *testing.T) {
	src := &fakeSource{details: map[string]string{}}
	for i := 0; i < 6; i++ {
		addr := fmt.Sprintf("H%d", i)
		src.refs = append(src.refs, AssetRef{ChainID: "solana", Address: addr})
		src.details[addr] = `<html>502 Bad Gateway</html>`
	}
	e := newTestEngine(src, Config{})

	res := e.Scan(context.Background())
	assert.Equal(t, 6, res.FetchErrors)
	assert.Equal(t, 6, e.ConsecutiveFailures())
	assert.Zero(t, res.Scanned)
	assert.Empty(t, res.Rejected)

	// valid JSON that is not a record is a rejection, not a failure
	src.refs = []AssetRef{{ChainID: "solana", Address: "empty"}}
	src.details["empty"] = `[]`
	res = e.Scan(context.Background())
	assert.Equal(t, 0, res.FetchErrors)
	assert.Equal(t, 0, e.ConsecutiveFailures())
	assert.Equal(t, 1, res.Rejected[momentum.RejectMalformed])
}

func TestScan_PanicIsolatedPerAsset(t *testing.T) {
	src := fiveCandidates()
	src.panics = map[string]bool{"B": true}
	e := newTestEngine(src, Config{})

	res := e.Scan(context.Background())
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "D", res.Ranked[0].ID)
	assert.Len(t, src.fetched, 5)
}

func TestScan_DeduplicatesIdentity(t *testing.T) {
	src := fiveCandidates()
	src.refs = append(src.refs, AssetRef{ChainID: "solana", Address: "B"})
	e := newTestEngine(src, Config{})

	res := e.Scan(context.Background())
	assert.Len(t, res.Ranked, 3)
}

func TestScan_CancelledContextStops(t *testing.T) {
	src := fiveCandidates()
	e := newTestEngine(src, Config{PerAssetDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.Scan(ctx)
	assert.Empty(t, res.Ranked)
	assert.Empty(t, src.fetched)
}

func TestRunCycle_UpdatesStatsAndHistory(t *testing.T) {
	sess := session.New()
	sess.Begin(engineNow)
	e := newTestEngine(fiveCandidates(), Config{})

	c := e.RunCycle(context.Background(), sess)

	require.Len(t, c.Alerts, 3)
	for i, a := range c.Alerts {
		assert.Equal(t, i+1, a.Rank)
		assert.True(t, a.Flags.TrendUp, "first sighting with a positive score trends")
		assert.False(t, a.Flags.VolumeSpike)
		assert.False(t, a.Flags.LiquidityDrain)
		assert.False(t, a.Suppressed)
	}
	st := sess.Stats()
	assert.Equal(t, 1, st.Cycles)
	assert.Equal(t, 5, st.TokensScanned)
	assert.Len(t, st.Shown, 3)
	assert.Len(t, st.Trending, 3)
	assert.Equal(t, 3, sess.History().Len())
}

func TestEvaluate_QuietHoursSuppressesUnflagged(t *testing.T) {
	quiet, err := session.ParseWindow("23:00", "23:30", time.UTC)
	require.NoError(t, err)
	e := newTestEngine(&fakeSource{}, Config{Policy: session.Policy{QuietEnabled: true, Quiet: quiet, QuietThreshold: 70}})
	sess := session.New()
	sess.Begin(engineNow)

	snap := momentum.Snapshot{ID: "q", Name: "Quiet", Momentum: 50, Volume24h: 1000, Liquidity: 10_000}
	quietTime := time.Date(2026, 3, 14, 23, 10, 0, 0, time.UTC)

	// first sighting trends, so it is still sent
	alerts := e.Evaluate(sess, []momentum.Snapshot{snap}, quietTime)
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Suppressed)

	// unchanged: no flag, below threshold, quiet hours
	alerts = e.Evaluate(sess, []momentum.Snapshot{snap}, quietTime)
	assert.True(t, alerts[0].Suppressed)

	// same asset with a drain is sent
	snap.Liquidity = 7_000
	alerts = e.Evaluate(sess, []momentum.Snapshot{snap}, quietTime)
	assert.False(t, alerts[0].Suppressed)
	assert.Equal(t, detect.TagLiquidityDrain, alerts[0].Tag())
	require.Len(t, sess.Stats().Drains, 1)
	assert.InDelta(t, 0.3, sess.Stats().Drains[0].Drop, 1e-9)
}
