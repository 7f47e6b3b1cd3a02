package bots_monitor

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"dex-sniper/internal/features/momentum"
	"dex-sniper/internal/features/scan"
	"dex-sniper/internal/features/session"
	"dex-sniper/internal/features/tg_charts"
	"dex-sniper/internal/infra/fs"
	"dex-sniper/internal/infra/health"
	"dex-sniper/internal/infra/log"
	"dex-sniper/internal/observability"

	"go.uber.org/zap"
)

type MonitorConfig struct {
	Active         session.Window
	MaxAPIFailures int
	MinInterval    time.Duration
	MaxInterval    time.Duration
	IdleInterval   time.Duration
	Cooldown       time.Duration
	CSVPath        string // empty disables the export
}

// SniperMonitor drives sessions: one goroutine owns the engine, the session
// and the failure counter
type SniperMonitor struct {
	cfg      MonitorConfig
	engine   *scan.Engine
	sess     *session.Session
	notifier Notifier
	commands CommandSource
	status   *health.Status
	metrics  *observability.Metrics

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	rng    *rand.Rand
	export func(path string, ranked []momentum.Snapshot) error
	chart  func(st *session.Stats) ([]byte, error)
}

func NewSniperMonitor(cfg MonitorConfig, engine *scan.Engine, notifier Notifier, commands CommandSource,
	status *health.Status, metrics *observability.Metrics) *SniperMonitor {
	if cfg.MaxAPIFailures <= 0 {
		cfg.MaxAPIFailures = 5
	}
	if commands == nil {
		commands = NopNotifier{}
	}
	if status == nil {
		status = health.NewStatus(time.Now())
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &SniperMonitor{
		cfg:      cfg,
		engine:   engine,
		sess:     session.New(),
		notifier: notifier,
		commands: commands,
		status:   status,
		metrics:  metrics,
		now:      time.Now,
		sleep:    sleepCtx,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		export:   fs.WriteTopTokens,
		chart:    tg_charts.RenderSessionChart,
	}
}

func (m *SniperMonitor) Session() *session.Session { return m.sess }

// Run loops until ctx is cancelled
func (m *SniperMonitor) Run(ctx context.Context) error {
	log.LogInfo("Sniper monitor starting",
		zap.String("window", m.cfg.Active.String()),
		zap.Int("maxApiFailures", m.cfg.MaxAPIFailures))

	for {
		d := m.Step(ctx)
		log.LogDebug("Sleeping", zap.Duration("duration", d))
		if err := m.sleep(ctx, d); err != nil {
			log.LogInfo("Sniper monitor stopped", zap.Bool("sessionActive", m.sess.Active()))
			return nil
		}
	}
}

// RunOnce one cycle regardless of the window, then returns
func (m *SniperMonitor) RunOnce(ctx context.Context) error {
	m.handleCommands(ctx)
	if !m.sess.Active() {
		m.beginSession()
	}
	c, err := m.runCycle(ctx)
	if err != nil {
		return err
	}
	log.LogSuccess("One-shot cycle finished", zap.Int("ranked", len(c.Ranked)), zap.Int("alerts", len(c.Alerts)))
	return nil
}

// Step one scheduler iteration; returns how long to sleep before the next one
func (m *SniperMonitor) Step(ctx context.Context) time.Duration {
	m.handleCommands(ctx)

	if !m.cfg.Active.Contains(m.now()) {
		if m.sess.Active() {
			m.endSession()
		}
		return m.cfg.IdleInterval
	}

	if !m.sess.Active() {
		m.beginSession()
	}

	if _, err := m.runCycle(ctx); err != nil {
		log.LogError("Scan cycle failed", zap.Error(err))
	}

	if failures := m.engine.ConsecutiveFailures(); failures >= m.cfg.MaxAPIFailures {
		log.LogWarn("API failure ceiling reached, pausing session",
			zap.Int("consecutiveFailures", failures),
			zap.Duration("cooldown", m.cfg.Cooldown))
		m.notify(FormatForcedPause(failures))
		m.endSession()
		m.metrics.ForcedPauses.Inc()
		return m.cfg.Cooldown
	}
	return m.nextInterval()
}

func (m *SniperMonitor) beginSession() {
	st := m.sess.Begin(m.now())
	m.engine.ResetFailures()
	m.status.SetSessionActive(true)
	m.metrics.SetSessionActive(true)
	m.notify(FormatSessionStarted(m.cfg.Active))
	log.LogInfo("Session started", zap.String("session", st.ID))
}

func (m *SniperMonitor) endSession() {
	st := m.sess.End()
	m.status.SetSessionActive(false)
	m.metrics.SetSessionActive(false)

	m.notify(FormatSummary(st, m.cfg.Active))
	if ps, ok := m.notifier.(PhotoSender); ok && st.Cycles > 0 {
		if png, err := m.chart(st); err != nil {
			log.LogWarn("Failed to render session chart", zap.Error(err))
		} else if err := ps.SendPhoto(png, "📊 Best momentum per cycle"); err != nil {
			m.metrics.NotifyFailures.Inc()
		}
	}
	m.notify(FormatSessionEnded(m.cfg.Active))

	log.LogInfo("Session ended",
		zap.String("session", st.ID),
		zap.Int("cycles", st.Cycles),
		zap.Int("tokensScanned", st.TokensScanned))
}

func (m *SniperMonitor) runCycle(ctx context.Context) (c scan.Cycle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()

	c = m.engine.RunCycle(ctx, m.sess)

	if m.cfg.CSVPath != "" && len(c.Ranked) > 0 {
		if err := m.export(m.cfg.CSVPath, c.Ranked); err != nil {
			log.LogWarn("Failed to export csv", zap.String("path", m.cfg.CSVPath), zap.Error(err))
		}
	}

	sent := 0
	for _, a := range c.Alerts {
		if a.Suppressed {
			m.metrics.AlertsSuppressed.Inc()
			log.LogDebug("Alert suppressed (quiet hours)", zap.String("token", a.Snapshot.ID), zap.Float64("momentum", a.Snapshot.Momentum))
			continue
		}
		if m.notify(FormatAlert(a)) {
			m.metrics.AlertsSent.WithLabelValues(a.Tag().String()).Inc()
			sent++
		}
	}

	m.status.RecordCycle(c.At, c.Scanned)
	m.metrics.ObserveCycle(c)

	log.LogInfo("Scan cycle complete",
		zap.Int("candidates", c.Candidates),
		zap.Int("scanned", c.Scanned),
		zap.Int("ranked", len(c.Ranked)),
		zap.Int("sent", sent),
		zap.Int("fetchErrors", c.FetchErrors),
		zap.Duration("took", c.Duration))
	return c, nil
}

func (m *SniperMonitor) handleCommands(ctx context.Context) {
	cmds, err := m.commands.PollCommands(ctx)
	if err != nil {
		log.LogWarn("Failed to poll commands", zap.Error(err))
		return
	}
	for _, cmd := range cmds {
		reply, ok := ReplyTo(ParseCommand(cmd.Text), m.sess.Stats())
		if !ok {
			continue
		}
		log.LogDebug("Answering command", zap.String("text", cmd.Text), zap.Int64("chatID", cmd.ChatID))
		m.notify(reply)
	}
}

// notify sends text, reporting whether it went through everywhere
func (m *SniperMonitor) notify(text string) bool {
	if err := m.notifier.Send(text); err != nil {
		m.metrics.NotifyFailures.Inc()
		log.LogWarn("Notification failed", zap.Error(err))
		return false
	}
	return true
}

// nextInterval uniform in [MinInterval, MaxInterval]
func (m *SniperMonitor) nextInterval() time.Duration {
	lo, hi := m.cfg.MinInterval, m.cfg.MaxInterval
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(m.rng.Int63n(int64(hi-lo)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
