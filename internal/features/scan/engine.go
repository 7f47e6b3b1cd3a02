// Package scan runs one evaluation cycle: list candidates, fetch details, score,
// rank, then run the change detectors and the notification policy against the
// session passed in by the caller.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"dex-sniper/internal/features/detect"
	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/session"
	"dex-sniper/internal/infra/log"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AssetRef candidate identity as emitted by the upstream listing
type AssetRef struct {
	ChainID string
	Address string
}

// Source upstream market data. ListCandidates is best-effort and returns an
// empty list on failure; FetchDetail returns the raw pair record.
type Source interface {
	ListCandidates(ctx context.Context) []AssetRef
	FetchDetail(ctx context.Context, ref AssetRef) ([]byte, error)
}

type Config struct {
	ChainID       string
	TopN          int
	PerAssetDelay time.Duration
	Thresholds    detect.Thresholds
	Policy        session.Policy
}

// Result ranked output of one scan
type Result struct {
	Ranked      []momentum.Snapshot
	Candidates  int // candidates on the configured chain
	Scanned     int // details fetched and scored
	FetchErrors int
	Rejected    map[momentum.Reason]int
}

// Alert notification decision for one ranked snapshot
type Alert struct {
	Rank       int
	Snapshot   momentum.Snapshot
	Flags      detect.Flags
	Suppressed bool
}

func (a Alert) Tag() detect.Tag { return a.Flags.Tag() }

type Cycle struct {
	Result
	At       time.Time
	Duration time.Duration
	Alerts   []Alert
}

type Engine struct {
	cfg      Config
	source   Source
	analyzer *momentum.Analyzer
	pacer    *rate.Limiter
	now      func() time.Time
	failures int
}

func NewEngine(cfg Config, source Source, analyzer *momentum.Analyzer, now func() time.Time) *Engine {
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if now == nil {
		now = time.Now
	}
	limit := rate.Inf
	if cfg.PerAssetDelay > 0 {
		limit = rate.Every(cfg.PerAssetDelay)
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		analyzer: analyzer,
		pacer:    rate.NewLimiter(limit, 1),
		now:      now,
	}
}

// ConsecutiveFailures back-to-back detail fetch failures, across cycles
func (e *Engine) ConsecutiveFailures() int { return e.failures }

func (e *Engine) ResetFailures() { e.failures = 0 }

// Scan fetches and ranks candidates. It never fails as a whole: a bad asset is
// logged and skipped.
func (e *Engine) Scan(ctx context.Context) Result {
	res := Result{Rejected: make(map[momentum.Reason]int)}
	seen := make(map[string]bool)

	for _, ref := range e.source.ListCandidates(ctx) {
		if ref.Address == "" || !strings.EqualFold(ref.ChainID, e.cfg.ChainID) {
			continue
		}
		res.Candidates++

		if err := e.pacer.Wait(ctx); err != nil {
			log.LogWarn("Scan interrupted", zap.Error(err))
			break
		}

		snap, ok := e.evaluateOne(ctx, ref, &res)
		if !ok || seen[snap.ID] {
			continue
		}
		seen[snap.ID] = true
		res.Ranked = append(res.Ranked, *snap)
	}

	sort.SliceStable(res.Ranked, func(i, j int) bool {
		return res.Ranked[i].Momentum > res.Ranked[j].Momentum
	})
	if len(res.Ranked) > e.cfg.TopN {
		res.Ranked = res.Ranked[:e.cfg.TopN]
	}
	return res
}

func (e *Engine) evaluateOne(ctx context.Context, ref AssetRef, res *Result) (snap *momentum.Snapshot, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.LogError("Candidate evaluation panicked",
				zap.String("address", ref.Address),
				zap.String("panic", fmt.Sprint(r)))
			snap, ok = nil, false
		}
	}()

	raw, err := e.source.FetchDetail(ctx, ref)
	if err != nil {
		e.recordFailure(ref, res, err)
		return nil, false
	}

	d, err := momentum.ParseDetail(raw)
	if errors.Is(err, momentum.ErrUndecodable) {
		// a 2xx with a non-JSON body counts as an upstream failure
		e.recordFailure(ref, res, err)
		return nil, false
	}
	e.failures = 0
	res.Scanned++
	if err != nil {
		res.Rejected[momentum.RejectMalformed]++
		log.LogDebug("Candidate rejected", zap.String("address", ref.Address), zap.Error(err))
		return nil, false
	}

	snap, reason := e.analyzer.Analyze(d, e.now())
	if reason != momentum.Accepted {
		res.Rejected[reason]++
		log.LogDebug("Candidate rejected", zap.String("address", ref.Address), zap.String("reason", string(reason)))
		return nil, false
	}
	return snap, true
}

func (e *Engine) recordFailure(ref AssetRef, res *Result, err error) {
	e.failures++
	res.FetchErrors++
	log.LogWarn("Failed to fetch token detail",
		zap.String("address", ref.Address),
		zap.Int("consecutiveFailures", e.failures),
		zap.Error(err))
}

// Evaluate runs detectors and the quiet-hours policy for ranked results, in
// rank order. History and stats of sess are updated for every result,
// including suppressed ones.
func (e *Engine) Evaluate(sess *session.Session, ranked []momentum.Snapshot, now time.Time) []Alert {
	hist := sess.History()
	stats := sess.Stats()
	alerts := make([]Alert, 0, len(ranked))

	for i, snap := range ranked {
		flags := hist.Evaluate(snap, e.cfg.Thresholds)
		if flags.TrendUp {
			stats.RecordTrend(snap)
		}
		if flags.LiquidityDrain {
			stats.RecordDrain(snap, flags.DrainPercent)
		}
		alerts = append(alerts, Alert{
			Rank:       i + 1,
			Snapshot:   snap,
			Flags:      flags,
			Suppressed: e.cfg.Policy.Suppress(now, snap.Momentum, flags),
		})
	}
	return alerts
}

// RunCycle one full cycle against an active session
func (e *Engine) RunCycle(ctx context.Context, sess *session.Session) Cycle {
	start := e.now()
	res := e.Scan(ctx)
	now := e.now()

	sess.Stats().RecordCycle(now, res.Scanned, res.Ranked)
	return Cycle{
		Result:   res,
		At:       now,
		Duration: now.Sub(start),
		Alerts:   e.Evaluate(sess, res.Ranked, now),
	}
}
