package domain

import "fmt"

// DayPlan holds entry/stop/target levels for both breakout directions.
// Built once per session from one OpeningRange; immutable.
//
// Entries sit exactly at the range boundaries; any entry buffer is
// applied by the order-placement layer, not here. Stops are tick-rounded
// conservatively (long down, short up), entries and targets are not.
type DayPlan struct {
	Symbol       string
	OpeningRange OpeningRange

	LongEntry  float64
	LongStop   float64
	LongTarget float64

	ShortEntry  float64
	ShortStop   float64
	ShortTarget float64
}

// BuildDayPlan derives the day plan from an opening range.
//
// Rules:
//   - entries at range boundaries (long at high, short at low)
//   - targets at entry ± targetPoints
//   - stop at the opposite boundary, or at the range midpoint when the
//     range is wider than targetPoints (caps risk below target distance)
func BuildDayPlan(symbol string, or OpeningRange, targetPoints, tickSize float64) (DayPlan, error) {
	if tickSize <= 0 {
		return DayPlan{}, fmt.Errorf("domain.BuildDayPlan: tick_size must be > 0, got %v", tickSize)
	}

	longStop, longTarget := StopTargetForEntry(SideLong, or.High, or, targetPoints, tickSize)
	shortStop, shortTarget := StopTargetForEntry(SideShort, or.Low, or, targetPoints, tickSize)

	return DayPlan{
		Symbol:       symbol,
		OpeningRange: or,
		LongEntry:    or.High,
		LongStop:     longStop,
		LongTarget:   longTarget,
		ShortEntry:   or.Low,
		ShortStop:    shortStop,
		ShortTarget:  shortTarget,
	}, nil
}

// StopTargetForEntry computes the bracket for a fill at entry, using the
// same stop-selection and conservative rounding rule everywhere a stop is
// derived (plan build, fill time, breakeven). Rounding widens risk: long
// stops round down, short stops round up. tickSize must already be
// validated > 0.
func StopTargetForEntry(side Side, entry float64, or OpeningRange, targetPoints, tickSize float64) (stop, target float64) {
	var raw float64
	if or.Size() > targetPoints {
		raw = or.Mid()
	} else if side == SideLong {
		raw = or.Low
	} else {
		raw = or.High
	}

	if side == SideLong {
		stop = roundTick(raw, tickSize, RoundDown)
		target = entry + targetPoints
	} else {
		stop = roundTick(raw, tickSize, RoundUp)
		target = entry - targetPoints
	}
	return stop, target
}
