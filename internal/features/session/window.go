package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime minutes after local midnight
type ClockTime int

// ParseClock parses "HH:MM" (24h)
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window daily span [Start, End) in Location. End <= Start means the span crosses
// midnight; Start == End is treated as the whole day.
type Window struct {
	Start    ClockTime
	End      ClockTime
	Location *time.Location
}

// ParseWindow builds a Window from two "HH:MM" strings
func ParseWindow(start, end string, loc *time.Location) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	return Window{Start: s, End: e, Location: loc}, nil
}

func (w Window) Contains(t time.Time) bool {
	if w.Location != nil {
		t = t.In(w.Location)
	}
	now := ClockTime(t.Hour()*60 + t.Minute())

	switch {
	case w.Start == w.End:
		return true
	case w.Start < w.End:
		return now >= w.Start && now < w.End
	default:
		return now >= w.Start || now < w.End
	}
}

func (w Window) String() string {
	return w.Start.String() + " → " + w.End.String()
}
