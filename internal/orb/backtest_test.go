package orb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/orbtrader/config"
	"github.com/alejandrodnm/orbtrader/internal/domain"
)

func backtestConfig() *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{
			Symbol:          "/ES",
			Timezone:        "America/New_York",
			MarketOpen:      "09:30",
			RangeEnd:        "09:45",
			BreakevenCheck:  "10:00",
			EODExit:         "16:00",
			PrevCloseWindow: "15:45",
			TargetPoints:    20,
			TickSize:        0.25,
			PointValue:      50,
			Qty:             1,
		},
		SkipDays: config.SkipDaysConfig{MaxRangePoints: 38},
	}
}

// bar builds a 15m candle starting at venue-local day+hhmm, stored UTC
// like the history adapter delivers them.
func bar(t *testing.T, loc *time.Location, day, hhmm string, o, h, l, c float64) domain.Candle {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", day+" "+hhmm, loc)
	require.NoError(t, err)
	return domain.Candle{Time: ts.UTC(), Open: o, High: h, Low: l, Close: c, Volume: 1000}
}

func newTestBacktester(t *testing.T, cfg *config.Config, candles []domain.Candle) *Backtester {
	t.Helper()
	md := &stubMarketData{
		historyFn: func(_, _ time.Time, _ time.Duration) ([]domain.Candle, error) {
			return candles, nil
		},
	}
	bt, err := NewBacktester(cfg, md)
	require.NoError(t, err)
	bt.now = func() time.Time { return time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC) }
	return bt
}

func TestBacktester_TargetDay(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	d := "2026-03-02"
	candles := []domain.Candle{
		bar(t, loc, d, "09:30", 6855, 6860, 6850, 6856),
		bar(t, loc, d, "09:45", 6856, 6858, 6852, 6857),
		bar(t, loc, d, "10:00", 6857, 6861, 6853, 6860),
		bar(t, loc, d, "10:15", 6860, 6880.25, 6859, 6879),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	r := report.Results[0]
	require.False(t, r.Skipped)
	require.NotNil(t, r.Trade)

	// Range 6860/6850, size 10 <= 20: long entry 6860, stop 6850, target 6880.
	assert.InDelta(t, 6860.0, r.Plan.LongEntry, 1e-9)
	assert.InDelta(t, 6850.0, r.Plan.LongStop, 1e-9)
	assert.InDelta(t, 6880.0, r.Plan.LongTarget, 1e-9)
	assert.InDelta(t, 6850.0, r.Plan.ShortEntry, 1e-9)
	assert.InDelta(t, 6860.0, r.Plan.ShortStop, 1e-9)
	assert.InDelta(t, 6830.0, r.Plan.ShortTarget, 1e-9)

	assert.Equal(t, domain.SideLong, r.Trade.Side)
	assert.Equal(t, domain.ExitTarget, r.Trade.ExitReason)
	assert.InDelta(t, 20.0, r.Trade.Points, 1e-9)
	assert.InDelta(t, 1000.0, r.Trade.Dollars, 1e-9)

	assert.Equal(t, 1, report.Summary.TradedDays)
	assert.Equal(t, 1, report.Summary.Wins)
	assert.NotEmpty(t, report.RunID)
}

func TestBacktester_WideRangeMidpointStops(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	d := "2026-03-02"

	// Size 30 > target 20: both stops at the 6865 midpoint. Short entry at
	// 6850, then price runs up through the midpoint stop.
	candles := []domain.Candle{
		bar(t, loc, d, "09:30", 6870, 6880, 6850, 6852),
		bar(t, loc, d, "10:15", 6852, 6853, 6849, 6851),
		bar(t, loc, d, "10:30", 6851, 6866, 6850.5, 6865),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	require.NotNil(t, r.Trade)
	assert.InDelta(t, 6865.0, r.Plan.LongStop, 1e-9)
	assert.InDelta(t, 6865.0, r.Plan.ShortStop, 1e-9)
	assert.Equal(t, domain.SideShort, r.Trade.Side)
	assert.Equal(t, domain.ExitStop, r.Trade.ExitReason)
	assert.InDelta(t, -15.0, r.Trade.Points, 1e-9)
}

func TestBacktester_MissingORBCandle(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	candles := []domain.Candle{
		bar(t, loc, "2026-03-02", "09:45", 6856, 6858, 6852, 6857),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	assert.True(t, r.Skipped)
	assert.Equal(t, domain.SkipMissingORBCandle, r.SkipReason)
	assert.Equal(t, 1, report.Summary.SkipReasons[domain.SkipMissingORBCandle])
}

func TestBacktester_WideRangeSkip(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	candles := []domain.Candle{
		bar(t, loc, "2026-03-02", "09:30", 6870, 6895, 6850, 6860), // size 45 > 38
		bar(t, loc, "2026-03-02", "10:00", 6860, 6900, 6855, 6899),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	assert.True(t, r.Skipped)
	assert.Equal(t, domain.SkipWideRangeDay, r.SkipReason)
	assert.Nil(t, r.Trade)
}

func TestBacktester_GapSkipUsesPrevClose(t *testing.T) {
	cfg := backtestConfig()
	cfg.SkipDays.GapThresholdPct = 0.5
	loc, _ := cfg.Location()

	candles := []domain.Candle{
		// Prior session: the 15:45 candle closes at 6800.
		bar(t, loc, "2026-03-02", "09:30", 6800, 6805, 6795, 6800),
		bar(t, loc, "2026-03-02", "15:45", 6800, 6804, 6798, 6800),
		// Today opens 6855: gap 55/6800 = 0.81% > 0.5%.
		bar(t, loc, "2026-03-03", "09:30", 6855, 6860, 6850, 6856),
		bar(t, loc, "2026-03-03", "10:00", 6856, 6861, 6853, 6860),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	today := report.Results[1]
	assert.True(t, today.Skipped)
	assert.Equal(t, domain.SkipGapFillDay, today.SkipReason)
	require.NotNil(t, today.PrevClose)
	assert.InDelta(t, 6800.0, *today.PrevClose, 1e-9)
}

func TestBacktester_AmbiguousBothBreakouts(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	candles := []domain.Candle{
		bar(t, loc, "2026-03-02", "09:30", 6855, 6860, 6850, 6856),
		// One candle touches both 6860 and 6850 before any fill.
		bar(t, loc, "2026-03-02", "10:00", 6856, 6862, 6848, 6855),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	assert.True(t, r.Skipped)
	assert.Equal(t, domain.SkipAmbiguousBreakouts, r.SkipReason)
	assert.NotNil(t, r.Plan, "levels recorded even without a trade")
}

func TestBacktester_StopAndTargetSameCandle(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	candles := []domain.Candle{
		bar(t, loc, "2026-03-02", "09:30", 6855, 6860, 6850, 6856),
		bar(t, loc, "2026-03-02", "10:15", 6856, 6861, 6853, 6860), // long fill
		// Giant candle spans both stop 6850 and target 6880.
		bar(t, loc, "2026-03-02", "10:30", 6860, 6881, 6849, 6870),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	require.NotNil(t, r.Trade)
	assert.Equal(t, domain.ExitStopAndTarget, r.Trade.ExitReason)
	assert.InDelta(t, -10.0, r.Trade.Points, 1e-9, "conservative stop-out, not the target")
}

func TestBacktester_BreakevenThenStop(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	candles := []domain.Candle{
		bar(t, loc, "2026-03-02", "09:30", 6855, 6860, 6850, 6856),
		bar(t, loc, "2026-03-02", "09:45", 6856, 6861, 6853, 6860), // long fill at 6860
		// 10:00 candle moves the stop to entry, then its low tags it.
		bar(t, loc, "2026-03-02", "10:00", 6860, 6865, 6859.5, 6864),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	require.NotNil(t, r.Trade)
	assert.Equal(t, domain.ExitStop, r.Trade.ExitReason)
	assert.InDelta(t, 0.0, r.Trade.Points, 1e-9)
	assert.Equal(t, 1, report.Summary.Breakevens)
	assert.Equal(t, 0, report.Summary.Wins)
}

func TestBacktester_EODExit(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	candles := []domain.Candle{
		bar(t, loc, "2026-03-02", "09:30", 6855, 6860, 6850, 6856),
		bar(t, loc, "2026-03-02", "10:15", 6856, 6861, 6853, 6860),
		bar(t, loc, "2026-03-02", "15:45", 6860, 6865, 6858, 6864),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	require.NotNil(t, r.Trade)
	assert.Equal(t, domain.ExitEOD, r.Trade.ExitReason)
	assert.InDelta(t, 4.0, r.Trade.Points, 1e-9) // 6864 close - 6860 entry
}

func TestBacktester_NoTradeDay(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()
	candles := []domain.Candle{
		bar(t, loc, "2026-03-02", "09:30", 6855, 6860, 6850, 6856),
		bar(t, loc, "2026-03-02", "10:00", 6856, 6859, 6852, 6855),
		bar(t, loc, "2026-03-02", "15:45", 6855, 6858, 6851, 6854),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	assert.False(t, r.Skipped)
	assert.Nil(t, r.Trade)
	assert.Equal(t, 0, report.Summary.TradedDays)
}

func TestBacktester_EntryBuffer(t *testing.T) {
	cfg := backtestConfig()
	cfg.Trading.EntryBuffer = 1
	loc, _ := cfg.Location()
	candles := []domain.Candle{
		bar(t, loc, "2026-03-02", "09:30", 6855, 6860, 6850, 6856),
		// High 6860.5 is past the raw boundary but short of the 6861
		// buffered entry: no fill.
		bar(t, loc, "2026-03-02", "10:00", 6856, 6860.5, 6853, 6858),
		bar(t, loc, "2026-03-02", "10:15", 6858, 6862, 6856, 6861),
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 30)
	require.NoError(t, err)

	r := report.Results[0]
	require.NotNil(t, r.Trade)
	assert.InDelta(t, 6861.0, r.Trade.EntryPrice, 1e-9)
	// Target measured from the buffered entry, stop kept from the plan.
	assert.InDelta(t, 6881.0, r.Plan.LongTarget, 1e-9)
	assert.InDelta(t, 6850.0, r.Plan.LongStop, 1e-9)
	assert.Equal(t, r.Trade.EntryTime, candles[2].Time)
}

func TestBacktester_LastNDaysAndRTHFilter(t *testing.T) {
	cfg := backtestConfig()
	loc, _ := cfg.Location()

	var candles []domain.Candle
	days := []string{"2026-03-02", "2026-03-03", "2026-03-04"}
	for _, d := range days {
		candles = append(candles,
			bar(t, loc, d, "09:15", 6850, 6852, 6848, 6851), // pre-market, dropped
			bar(t, loc, d, "09:30", 6855, 6860, 6850, 6856),
			bar(t, loc, d, "16:00", 6855, 6857, 6853, 6856), // post-EOD, dropped
		)
	}

	report, err := newTestBacktester(t, cfg, candles).Run(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "2026-03-03", report.Results[0].Date)
	assert.Equal(t, "2026-03-04", report.Results[1].Date)
	assert.Equal(t, 2, report.Days)
}

func TestBacktester_FetchFailureIsFatal(t *testing.T) {
	cfg := backtestConfig()
	md := &stubMarketData{
		historyFn: func(_, _ time.Time, _ time.Duration) ([]domain.Candle, error) {
			return nil, assert.AnError
		},
	}
	bt, err := NewBacktester(cfg, md)
	require.NoError(t, err)

	_, err = bt.Run(context.Background(), 10)
	assert.Error(t, err)
}

func TestBacktester_NoUsableDays(t *testing.T) {
	cfg := backtestConfig()
	bt, err := NewBacktester(cfg, &stubMarketData{})
	require.NoError(t, err)

	_, err = bt.Run(context.Background(), 10)
	assert.Error(t, err)
}
