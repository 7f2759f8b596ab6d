package domain

import "time"

// SkipReason is a short stable string recorded in logs and reports.
type SkipReason string

const (
	SkipFOMCDay            SkipReason = "FOMC_DAY"
	SkipGapFillDay         SkipReason = "GAP_FILL_DAY"
	SkipRangeOverlapDay    SkipReason = "RANGE_OVERLAP_DAY"
	SkipWideRangeDay       SkipReason = "WIDE_RANGE_DAY"
	SkipMissingORBCandle   SkipReason = "MISSING_ORB_CANDLE"
	SkipAmbiguousBreakouts SkipReason = "AMBIGUOUS_BOTH_BREAKOUTS"
)

// SkipConfig carries the stand-down thresholds and the FOMC blackout list
// (ISO dates, YYYY-MM-DD).
type SkipConfig struct {
	FOMCDates       []string
	GapThresholdPct float64 // 0 disables the gap check
	MaxRangePoints  float64
}

// SkipInputs is everything ShouldSkipDay needs; callers supply all
// derived figures, the policy does no lookups of its own. A zero value
// means the input is missing and its check degrades to "no skip".
type SkipInputs struct {
	Date      time.Time // venue-local session date
	OpenPrice float64
	PrevClose float64

	ORBHigh       float64
	ORBLow        float64
	PrevCloseHigh float64 // prior session's final sub-window high
	PrevCloseLow  float64
}

// ShouldSkipDay evaluates the stand-down conditions in fixed precedence
// order; the first that fires wins and later checks are not evaluated.
// Pure and deterministic given its inputs.
func ShouldSkipDay(in SkipInputs, cfg SkipConfig) (bool, SkipReason) {
	if IsFOMCDay(in.Date, cfg.FOMCDates) {
		return true, SkipFOMCDay
	}
	if cfg.GapThresholdPct > 0 && IsGapFillDay(in.OpenPrice, in.PrevClose, cfg.GapThresholdPct) {
		return true, SkipGapFillDay
	}
	if IsRangeOverlapDay(in.ORBHigh, in.ORBLow, in.PrevCloseHigh, in.PrevCloseLow) {
		return true, SkipRangeOverlapDay
	}
	if in.ORBHigh > 0 && in.ORBLow > 0 && IsWideRangeDay(in.ORBHigh-in.ORBLow, cfg.MaxRangePoints) {
		return true, SkipWideRangeDay
	}
	return false, ""
}

// IsFOMCDay reports whether day is in the configured blackout list.
func IsFOMCDay(day time.Time, fomcDates []string) bool {
	if len(fomcDates) == 0 || day.IsZero() {
		return false
	}
	iso := day.Format("2006-01-02")
	for _, d := range fomcDates {
		if d == iso {
			return true
		}
	}
	return false
}

// IsGapFillDay reports whether the overnight gap exceeds thresholdPct.
// Unusable inputs (missing or non-positive) never fire the check.
func IsGapFillDay(openPrice, prevClose, thresholdPct float64) bool {
	if prevClose <= 0 || openPrice <= 0 {
		return false
	}
	return GapPct(prevClose, openPrice) > thresholdPct
}

// IsRangeOverlapDay reports whether today's opening range intersects the
// prior session's final sub-window range. Any missing or non-positive
// input disables the check.
func IsRangeOverlapDay(orbHigh, orbLow, prevHigh, prevLow float64) bool {
	for _, v := range []float64{orbHigh, orbLow, prevHigh, prevLow} {
		if v <= 0 {
			return false
		}
	}
	noOverlap := orbHigh < prevLow || orbLow > prevHigh
	return !noOverlap
}

// IsWideRangeDay reports whether the opening range is wider than
// maxRangePoints. Wide ranges mean unpredictable breakouts.
func IsWideRangeDay(rangeSize, maxRangePoints float64) bool {
	if rangeSize <= 0 || maxRangePoints <= 0 {
		return false
	}
	return rangeSize > maxRangePoints
}
