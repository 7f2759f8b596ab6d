package orb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alejandrodnm/orbtrader/internal/domain"
	"github.com/alejandrodnm/orbtrader/internal/ports"
)

// CaptureState is the range-capture phase of the session.
type CaptureState string

const (
	StateWaitingForOpen CaptureState = "waiting"
	StateBuildingRange  CaptureState = "building"
	StateRangeComplete  CaptureState = "complete"
)

// TrackerConfig holds what the tracker needs to know about the session.
type TrackerConfig struct {
	Symbol     string
	MarketOpen string // HH:MM venue-local
	RangeEnd   string
	Location   *time.Location
	MaxStale   time.Duration
}

// Tracker builds the opening range from live quotes, seeded from minute
// history on a late start and finalized from history at window end.
// Poll-driven: the session loop calls Update on every tick. Provider
// failures are logged and treated as "no update this tick".
type Tracker struct {
	cfg TrackerConfig
	md  ports.MarketData

	state CaptureState

	rangeHigh float64
	rangeLow  float64
	hasRange  bool

	seeded bool
	frozen *domain.OpeningRange
}

// NewTracker creates a Tracker in the waiting state.
func NewTracker(cfg TrackerConfig, md ports.MarketData) *Tracker {
	return &Tracker{cfg: cfg, md: md, state: StateWaitingForOpen}
}

// State returns the current capture phase.
func (t *Tracker) State() CaptureState { return t.state }

// OpeningRange returns the frozen range, or nil before completion.
func (t *Tracker) OpeningRange() *domain.OpeningRange { return t.frozen }

// LiveRange returns the running high/low built so far and whether any
// data has been observed. Valid only while building.
func (t *Tracker) LiveRange() (high, low float64, ok bool) {
	return t.rangeHigh, t.rangeLow, t.hasRange
}

// Update advances the state machine for the given wall-clock instant.
func (t *Tracker) Update(ctx context.Context, now time.Time) CaptureState {
	if t.state == StateRangeComplete {
		return t.state
	}

	start, err := domain.AtTime(now, t.cfg.MarketOpen, t.cfg.Location)
	if err != nil {
		slog.Error("tracker: bad market_open", "err", err)
		return t.state
	}
	end, err := domain.AtTime(now, t.cfg.RangeEnd, t.cfg.Location)
	if err != nil {
		slog.Error("tracker: bad range_end", "err", err)
		return t.state
	}

	if now.Before(start) {
		t.state = StateWaitingForOpen
		return t.state
	}

	if now.Before(end) {
		if t.state != StateBuildingRange {
			slog.Info("tracker: entering building state",
				"window_start", start.Format("15:04"),
				"window_end", end.Format("15:04"),
				"tz", t.cfg.Location.String(),
			)
		}
		t.state = StateBuildingRange

		// Late process start: seed the running range from history once.
		if !t.seeded {
			t.seedFromHistory(ctx, start, now)
			t.seeded = true
		}

		t.updateFromQuote(ctx, now)
		return t.state
	}

	// now >= end: one authoritative recomputation from minute candles.
	t.finalizeFromHistory(ctx, now, start, end)
	return t.state
}

func (t *Tracker) extend(price float64) {
	if !t.hasRange {
		t.rangeHigh, t.rangeLow = price, price
		t.hasRange = true
		return
	}
	if price > t.rangeHigh {
		t.rangeHigh = price
	}
	if price < t.rangeLow {
		t.rangeLow = price
	}
}

// updateFromQuote pulls the latest quote, validates staleness against the
// current time and extends the running range.
func (t *Tracker) updateFromQuote(ctx context.Context, now time.Time) {
	q, err := t.md.GetQuote(ctx, t.cfg.Symbol)
	if err != nil {
		slog.Warn("tracker: quote update failed", "err", err)
		return
	}
	if q.Last <= 0 {
		return
	}
	if age := q.Age(now); age > t.cfg.MaxStale {
		staleQuotesDropped.Inc()
		slog.Warn("tracker: stale quote ignored", "age", age.Round(time.Millisecond), "quote_time", q.Time)
		return
	}
	quoteTicks.Inc()
	t.extend(q.Last)
}

// seedFromHistory fills the running range from 1m candles covering
// [start, now) so a late start does not miss the first minutes.
func (t *Tracker) seedFromHistory(ctx context.Context, start, now time.Time) {
	candles, err := t.md.GetPriceHistory(ctx, t.cfg.Symbol, start, now, time.Minute)
	if err != nil {
		slog.Warn("tracker: seeding from history failed", "err", err)
		return
	}
	for _, c := range candles {
		if c.Time.Before(start) || !c.Time.Before(now) {
			continue
		}
		t.extend(c.High)
		t.extend(c.Low)
	}
	if t.hasRange {
		slog.Info("tracker: seeded from history", "high", t.rangeHigh, "low", t.rangeLow)
	}
}

// finalizeFromHistory recomputes the range from minute candles for the
// exact window and freezes it. History is the source of truth; the live
// aggregate may differ after missed polls. Transient failures leave the
// state machine in place to retry on the next tick.
func (t *Tracker) finalizeFromHistory(ctx context.Context, now, start, end time.Time) {
	candles, err := t.md.GetPriceHistory(ctx, t.cfg.Symbol, start, end, time.Minute)
	if err != nil {
		slog.Warn("tracker: finalize fetch failed, retrying next tick", "err", err)
		return
	}

	or, err := domain.ComputeOpeningRange(candles, now, t.cfg.MarketOpen, t.cfg.RangeEnd, t.cfg.Location)
	if err != nil {
		// No candles for the window at all: fall back to the live-built
		// aggregate rather than abstaining with data in hand.
		if errors.Is(err, domain.ErrNoCandlesInWindow) || errors.Is(err, domain.ErrNoCandles) {
			if !t.hasRange {
				slog.Warn("tracker: no window data and no live range, retrying next tick", "err", err)
				return
			}
			slog.Warn("tracker: finalizing from live aggregate, history had no window data", "err", err)
			or = domain.OpeningRange{Start: start, End: end, High: t.rangeHigh, Low: t.rangeLow}
		} else {
			slog.Warn("tracker: finalize failed, retrying next tick", "err", err)
			return
		}
	}

	t.frozen = &or
	t.rangeHigh, t.rangeLow, t.hasRange = or.High, or.Low, true
	t.state = StateRangeComplete

	slog.Info("tracker: range complete",
		"high", or.High,
		"low", or.Low,
		"size", or.Size(),
		"mid", or.Mid(),
	)
}
