package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoCandles means the provider returned nothing at all.
	ErrNoCandles = errors.New("no candles provided")
	// ErrNoCandlesInWindow means candles exist but none fall inside the
	// requested opening window.
	ErrNoCandlesInWindow = errors.New("no candles in opening range window")
)

// OpeningRange is the high/low of price during the session's fixed opening
// window. Immutable once computed.
type OpeningRange struct {
	Start time.Time
	End   time.Time
	High  float64
	Low   float64
}

// Size returns high minus low in points.
func (r OpeningRange) Size() float64 { return r.High - r.Low }

// Mid returns the range midpoint.
func (r OpeningRange) Mid() float64 { return (r.High + r.Low) / 2.0 }

// ParseHHMM parses a venue-local "HH:MM" clock string.
func ParseHHMM(s string) (hour, min int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("domain.ParseHHMM: invalid time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("domain.ParseHHMM: invalid hour in %q", s)
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("domain.ParseHHMM: invalid minute in %q", s)
	}
	return hour, min, nil
}

// AtTime anchors an "HH:MM" clock string on ref's calendar date in loc.
// The date component is taken after converting ref into loc, so UTC-based
// references resolve to the correct venue-local session date.
func AtTime(ref time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	local := ref.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc), nil
}

// ComputeOpeningRange extracts high=max(high), low=min(low) over candles
// whose timestamps fall in [open, end) on ref's session date in loc.
// Candle timestamps are expected in UTC (adapter-normalized); the window
// bounds are venue-local instants, so the comparison is zone-correct.
func ComputeOpeningRange(candles []Candle, ref time.Time, openHHMM, endHHMM string, loc *time.Location) (OpeningRange, error) {
	if len(candles) == 0 {
		return OpeningRange{}, fmt.Errorf("domain.ComputeOpeningRange: %w", ErrNoCandles)
	}

	start, err := AtTime(ref, openHHMM, loc)
	if err != nil {
		return OpeningRange{}, fmt.Errorf("domain.ComputeOpeningRange: %w", err)
	}
	end, err := AtTime(ref, endHHMM, loc)
	if err != nil {
		return OpeningRange{}, fmt.Errorf("domain.ComputeOpeningRange: %w", err)
	}

	high := math.Inf(-1)
	low := math.Inf(1)
	n := 0
	for _, c := range candles {
		if c.Time.Before(start) || !c.Time.Before(end) {
			continue
		}
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
		n++
	}
	if n == 0 {
		return OpeningRange{}, fmt.Errorf("domain.ComputeOpeningRange: window %s–%s: %w",
			start.Format("15:04"), end.Format("15:04"), ErrNoCandlesInWindow)
	}

	return OpeningRange{Start: start, End: end, High: high, Low: low}, nil
}

// GapPct returns the absolute overnight gap between prevClose and open as
// a percentage of prevClose. Zero when prevClose is unusable.
func GapPct(prevClose, open float64) float64 {
	if prevClose == 0 {
		return 0
	}
	return math.Abs((open-prevClose)/prevClose) * 100.0
}
