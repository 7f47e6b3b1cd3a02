// Package session owns the Idle/Active lifecycle of one daily window, its
// aggregate statistics, and the quiet-hours notification policy.
package session

import (
	"time"

	"dex-sniper/internal/features/detect"

	"github.com/google/uuid"
)

// Session is not safe for concurrent use; the scan loop is its only writer.
type Session struct {
	active  bool
	stats   *Stats
	history *detect.History
}

func New() *Session {
	return &Session{
		stats:   NewStats("", time.Time{}),
		history: detect.NewHistory(),
	}
}

func (s *Session) Active() bool { return s.active }

func (s *Session) Stats() *Stats { return s.stats }

func (s *Session) History() *detect.History { return s.history }

// Begin Idle→Active: fresh stats and empty history
func (s *Session) Begin(now time.Time) *Stats {
	s.active = true
	s.stats = NewStats(uuid.NewString(), now)
	s.history.Reset()
	return s.stats
}

// End Active→Idle. Stats stay readable until the next Begin.
func (s *Session) End() *Stats {
	s.active = false
	return s.stats
}

// Policy decides whether a ranked result is worth a message
type Policy struct {
	QuietEnabled   bool
	Quiet          Window
	QuietThreshold float64
}

func (p Policy) InQuietHours(now time.Time) bool {
	return p.QuietEnabled && p.Quiet.Contains(now)
}

// Suppress inside quiet hours, low scores without any flag are dropped
func (p Policy) Suppress(now time.Time, score float64, flags detect.Flags) bool {
	return p.InQuietHours(now) && score < p.QuietThreshold && !flags.Any()
}
