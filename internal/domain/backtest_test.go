package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradedDay(date string, points float64) DayResult {
	return DayResult{
		Date:  date,
		Trade: &TradeOutcome{Side: SideLong, Points: points, Dollars: points * 50},
	}
}

func skippedDay(date string, reason SkipReason) DayResult {
	return DayResult{Date: date, Skipped: true, SkipReason: reason}
}

func TestSummarize_MixedRun(t *testing.T) {
	// 10 days: 4 wins of +20, 3 losses of -10, 3 skipped.
	results := []DayResult{
		tradedDay("2026-03-02", 20),
		tradedDay("2026-03-03", 20),
		skippedDay("2026-03-04", SkipFOMCDay),
		tradedDay("2026-03-05", -10),
		tradedDay("2026-03-06", 20),
		skippedDay("2026-03-09", SkipGapFillDay),
		tradedDay("2026-03-10", -10),
		tradedDay("2026-03-11", 20),
		skippedDay("2026-03-12", SkipFOMCDay),
		tradedDay("2026-03-13", -10),
	}

	s := Summarize(results, 50)

	assert.Equal(t, 10, s.TotalDays)
	assert.Equal(t, 7, s.TradedDays)
	assert.Equal(t, 3, s.SkippedDays)
	assert.Equal(t, 2, s.SkipReasons[SkipFOMCDay])
	assert.Equal(t, 1, s.SkipReasons[SkipGapFillDay])

	assert.Equal(t, 4, s.Wins)
	assert.Equal(t, 3, s.Losses)
	assert.Equal(t, 0, s.Breakevens)

	require.NotNil(t, s.ProfitFactor)
	assert.InDelta(t, 80.0/30.0, *s.ProfitFactor, 0.001)
	assert.InDelta(t, 4.0/7.0*100, s.WinRatePct, 0.01)

	assert.InDelta(t, 50.0, s.TotalPoints, 1e-9)
	assert.InDelta(t, 2500.0, s.TotalDollars, 1e-9)
	assert.InDelta(t, 20.0, s.AvgWinPoints, 1e-9)
	assert.InDelta(t, -10.0, s.AvgLossPoints, 1e-9)
	assert.InDelta(t, 20.0, s.LargestWinPoints, 1e-9)
	assert.InDelta(t, -10.0, s.LargestLossPoints, 1e-9)
}

func TestSummarize_BreakevensExcludedFromWinRate(t *testing.T) {
	results := []DayResult{
		tradedDay("2026-03-02", 20),
		tradedDay("2026-03-03", 0),
		tradedDay("2026-03-04", -10),
	}
	s := Summarize(results, 50)

	assert.Equal(t, 1, s.Breakevens)
	assert.InDelta(t, 50.0, s.WinRatePct, 1e-9)
}

func TestSummarize_NoLossesHasNilProfitFactor(t *testing.T) {
	results := []DayResult{tradedDay("2026-03-02", 20)}
	s := Summarize(results, 50)
	assert.Nil(t, s.ProfitFactor)
	assert.InDelta(t, 100.0, s.WinRatePct, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 50)
	assert.Equal(t, 0, s.TotalDays)
	assert.Nil(t, s.ProfitFactor)
	assert.Zero(t, s.WinRatePct)
}
