// Package detect compares an asset's current snapshot with the one value
// remembered from its previous sighting in the session.
//
// Every detector overwrites the remembered value with the current one, so a
// sustained state fires only on the cycle where the transition happened.
package detect

import "dex-sniper/internal/features/momentum"

type Thresholds struct {
	Trend          float64 // relative score growth
	VolumeSpike    float64 // current/previous volume multiplier
	LiquidityDrain float64 // relative liquidity drop
}

func DefaultThresholds() Thresholds {
	return Thresholds{Trend: 0.25, VolumeSpike: 2.0, LiquidityDrain: 0.25}
}

type Tag int

const (
	TagListing Tag = iota
	TagTrend
	TagVolumeSpike
	TagLiquidityDrain
)

func (t Tag) String() string {
	switch t {
	case TagTrend:
		return "trend_up"
	case TagVolumeSpike:
		return "volume_spike"
	case TagLiquidityDrain:
		return "liquidity_drain"
	default:
		return "listing"
	}
}

type Flags struct {
	TrendUp        bool
	VolumeSpike    bool
	LiquidityDrain bool
	DrainPercent   float64 // fraction of liquidity lost, set when LiquidityDrain fired
}

func (f Flags) Any() bool {
	return f.TrendUp || f.VolumeSpike || f.LiquidityDrain
}

// Tag most severe flag: drain > spike > trend > plain listing
func (f Flags) Tag() Tag {
	switch {
	case f.LiquidityDrain:
		return TagLiquidityDrain
	case f.VolumeSpike:
		return TagVolumeSpike
	case f.TrendUp:
		return TagTrend
	default:
		return TagListing
	}
}

type entry struct {
	score        float64
	volume       float64
	liquidity    float64
	hasVolume    bool
	hasLiquidity bool
}

// History - previous score/volume/liquidity per identity. Not safe for concurrent use;
// it grows with the number of distinct assets seen and is cleared on each session start.
type History struct {
	entries map[string]*entry
}

func NewHistory() *History {
	return &History{entries: make(map[string]*entry)}
}

func (h *History) get(id string) *entry {
	e, ok := h.entries[id]
	if !ok {
		e = &entry{}
		h.entries[id] = e
	}
	return e
}

func (h *History) Len() int { return len(h.entries) }

func (h *History) Reset() {
	h.entries = make(map[string]*entry)
}

// TrendUp fires when the score appears from zero or grows by at least threshold.
// A never-seen identity counts as a previous score of zero.
func (h *History) TrendUp(id string, score, threshold float64) bool {
	e := h.get(id)
	prev := e.score
	e.score = score

	if prev == 0 {
		return score > 0
	}
	if prev < 0 {
		return false
	}
	return (score-prev)/max(prev, 1) >= threshold
}

// VolumeSpike fires when volume grew by at least multiplier. The first sighting
// (or a non-positive previous value) only seeds the baseline.
func (h *History) VolumeSpike(id string, volume, multiplier float64) bool {
	e := h.get(id)
	prev, seen := e.volume, e.hasVolume
	e.volume, e.hasVolume = volume, true

	if !seen || prev <= 0 {
		return false
	}
	return volume/prev >= multiplier
}

// LiquidityDrain fires when liquidity dropped by at least fraction of its previous value.
// The returned drop is negative when liquidity grew.
func (h *History) LiquidityDrain(id string, liquidity, fraction float64) (bool, float64) {
	e := h.get(id)
	prev, seen := e.liquidity, e.hasLiquidity
	e.liquidity, e.hasLiquidity = liquidity, true

	if !seen || prev <= 0 {
		return false, 0
	}
	drop := (prev - liquidity) / prev
	return drop > 0 && drop >= fraction, drop
}

// Evaluate runs all detectors for one snapshot and records it
func (h *History) Evaluate(s momentum.Snapshot, th Thresholds) Flags {
	var f Flags
	f.TrendUp = h.TrendUp(s.ID, s.Momentum, th.Trend)
	f.VolumeSpike = h.VolumeSpike(s.ID, s.Volume24h, th.VolumeSpike)
	drained, drop := h.LiquidityDrain(s.ID, s.Liquidity, th.LiquidityDrain)
	if drained {
		f.LiquidityDrain = true
		f.DrainPercent = drop
	}
	return f
}
