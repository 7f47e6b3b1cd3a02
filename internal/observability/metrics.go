// Package observability holds the Prometheus metrics of the monitor.
package observability

import (
	"dex-sniper/internal/features/scan"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics registered on their own registry so tests and the /metrics endpoint
// never share global state
type Metrics struct {
	Registry *prometheus.Registry

	Cycles            prometheus.Counter
	CycleDuration     prometheus.Histogram
	TokensEvaluated   prometheus.Counter
	TokensRejected    *prometheus.CounterVec
	FetchFailures     prometheus.Counter
	AlertsSent        *prometheus.CounterVec
	AlertsSuppressed  prometheus.Counter
	NotifyFailures    prometheus.Counter
	ForcedPauses      prometheus.Counter
	SessionActive     prometheus.Gauge
	LastCycleUnixTime prometheus.Gauge
	LastCycleBest     prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_cycles_total",
			Help: "Completed scan cycles",
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sniper_cycle_duration_seconds",
			Help:    "Wall time of one scan cycle",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		TokensEvaluated: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_tokens_evaluated_total",
			Help: "Token details fetched and scored",
		}),
		TokensRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_tokens_rejected_total",
			Help: "Tokens rejected by gate",
		}, []string{"reason"}),
		FetchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_fetch_failures_total",
			Help: "Failed token detail fetches",
		}),
		AlertsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_alerts_sent_total",
			Help: "Alerts sent by tag",
		}, []string{"tag"}),
		AlertsSuppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_alerts_suppressed_total",
			Help: "Alerts suppressed by quiet hours",
		}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_notify_failures_total",
			Help: "Messages that could not be delivered",
		}),
		ForcedPauses: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_forced_pauses_total",
			Help: "Sessions stopped by the API failure ceiling",
		}),
		SessionActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_session_active",
			Help: "1 while a session is active",
		}),
		LastCycleUnixTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_last_cycle_timestamp_seconds",
			Help: "Unix time of the last completed cycle",
		}),
		LastCycleBest: f.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_last_cycle_best_momentum",
			Help: "Best momentum score of the last cycle",
		}),
	}
}

// ObserveCycle records the scan side of a cycle; alert delivery is counted by
// the caller as it happens
func (m *Metrics) ObserveCycle(c scan.Cycle) {
	m.Cycles.Inc()
	m.CycleDuration.Observe(c.Duration.Seconds())
	m.TokensEvaluated.Add(float64(c.Scanned))
	m.FetchFailures.Add(float64(c.FetchErrors))
	for reason, n := range c.Rejected {
		m.TokensRejected.WithLabelValues(string(reason)).Add(float64(n))
	}
	m.LastCycleUnixTime.Set(float64(c.At.Unix()))
	best := 0.0
	if len(c.Ranked) > 0 {
		best = c.Ranked[0].Momentum
	}
	m.LastCycleBest.Set(best)
}

func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.SessionActive.Set(1)
		return
	}
	m.SessionActive.Set(0)
}
