package session

import (
	"sort"
	"time"

	"dex-sniper/internal/features/momentum"
)

type DrainEvent struct {
	Snapshot momentum.Snapshot
	Drop     float64 // fraction of liquidity lost since the previous cycle
}

// CycleRecord one completed scan cycle, used for the summary chart
type CycleRecord struct {
	At      time.Time
	Ranked  int
	Best    float64
	Average float64
}

// Stats aggregates of one active window. Read by summaries and commands,
// written only by the scan loop.
type Stats struct {
	ID            string
	StartedAt     time.Time
	Cycles        int
	TokensScanned int
	Momentum      []float64
	Drains        []DrainEvent
	Trending      []momentum.Snapshot
	Shown         []momentum.Snapshot
	CycleLog      []CycleRecord
}

func NewStats(id string, startedAt time.Time) *Stats {
	return &Stats{ID: id, StartedAt: startedAt}
}

// RecordCycle counts one cycle with its ranked results
func (s *Stats) RecordCycle(at time.Time, scanned int, ranked []momentum.Snapshot) {
	s.Cycles++
	s.TokensScanned += scanned

	rec := CycleRecord{At: at, Ranked: len(ranked)}
	var sum float64
	for i, snap := range ranked {
		s.Momentum = append(s.Momentum, snap.Momentum)
		s.Shown = append(s.Shown, snap)
		sum += snap.Momentum
		if i == 0 || snap.Momentum > rec.Best {
			rec.Best = snap.Momentum
		}
	}
	if len(ranked) > 0 {
		rec.Average = sum / float64(len(ranked))
	}
	s.CycleLog = append(s.CycleLog, rec)
}

func (s *Stats) RecordTrend(snap momentum.Snapshot) {
	s.Trending = append(s.Trending, snap)
}

func (s *Stats) RecordDrain(snap momentum.Snapshot, drop float64) {
	s.Drains = append(s.Drains, DrainEvent{Snapshot: snap, Drop: drop})
}

func (s *Stats) AverageMomentum() float64 {
	if len(s.Momentum) == 0 {
		return 0
	}
	var sum float64
	for _, m := range s.Momentum {
		sum += m
	}
	return sum / float64(len(s.Momentum))
}

// Best highest-momentum snapshot shown this session
func (s *Stats) Best() (momentum.Snapshot, bool) {
	if len(s.Shown) == 0 {
		return momentum.Snapshot{}, false
	}
	best := s.Shown[0]
	for _, snap := range s.Shown[1:] {
		if snap.Momentum > best.Momentum {
			best = snap
		}
	}
	return best, true
}

// Top n highest-momentum snapshots shown this session, without mutating Shown
func (s *Stats) Top(n int) []momentum.Snapshot {
	out := make([]momentum.Snapshot, len(s.Shown))
	copy(out, s.Shown)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Momentum > out[j].Momentum })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// WorstDrain drain event with the largest relative liquidity drop
func (s *Stats) WorstDrain() (DrainEvent, bool) {
	if len(s.Drains) == 0 {
		return DrainEvent{}, false
	}
	worst := s.Drains[0]
	for _, d := range s.Drains[1:] {
		if d.Drop > worst.Drop {
			worst = d
		}
	}
	return worst, true
}
