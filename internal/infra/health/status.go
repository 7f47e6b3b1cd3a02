package health

import (
	"sync"
	"time"
)

// Status liveness counters shared between the scan loop (writer) and the
// HTTP server (reader)
type Status struct {
	mu            sync.RWMutex
	startedAt     time.Time
	cycles        int
	tokensScanned int
	lastRun       time.Time
	sessionActive bool
}

type Snapshot struct {
	Status        string     `json:"status"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	Cycles        int        `json:"cycles"`
	TokensScanned int        `json:"tokens_scanned"`
	LastRun       *time.Time `json:"last_run"`
	SessionActive bool       `json:"session_active"`
}

func NewStatus(startedAt time.Time) *Status {
	return &Status{startedAt: startedAt}
}

// RecordCycle once per completed cycle
func (s *Status) RecordCycle(at time.Time, scanned int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	s.tokensScanned += scanned
	s.lastRun = at
}

func (s *Status) SetSessionActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionActive = active
}

func (s *Status) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Status:        "ok",
		UptimeSeconds: int64(now.Sub(s.startedAt).Seconds()),
		Cycles:        s.cycles,
		TokensScanned: s.tokensScanned,
		SessionActive: s.sessionActive,
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun.UTC()
		snap.LastRun = &last
	}
	return snap
}
