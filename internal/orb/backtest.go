package orb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/orbtrader/config"
	"github.com/alejandrodnm/orbtrader/internal/domain"
	"github.com/alejandrodnm/orbtrader/internal/ports"
)

// historyLookbackDays is how far back the one-shot candle fetch reaches.
// Wide enough to reliably contain the requested number of trading days
// after weekends and holidays drop out.
const historyLookbackDays = 70

// candleInterval is the replay granularity. The opening window is one
// candle at this width, which keeps entry detection a level test.
const candleInterval = 15 * time.Minute

// Backtester replays the day plan and skip policy over historical candles.
// It never touches the live state machine: one fetch, then a synchronous
// walk over per-day candle sets.
type Backtester struct {
	cfg *config.Config
	md  ports.MarketData
	loc *time.Location

	now func() time.Time // injectable for tests
}

// NewBacktester creates a replay engine for the given config.
func NewBacktester(cfg *config.Config, md ports.MarketData) (*Backtester, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("orb.NewBacktester: %w", err)
	}
	return &Backtester{cfg: cfg, md: md, loc: loc, now: time.Now}, nil
}

// Run simulates the last `days` trading days and aggregates the results.
// The historical fetch is the only I/O and a failure there aborts the run.
func (bt *Backtester) Run(ctx context.Context, days int) (domain.BacktestReport, error) {
	end := bt.now().In(bt.loc)
	start := end.AddDate(0, 0, -historyLookbackDays)

	slog.Info("backtest: fetching history",
		"symbol", bt.cfg.Trading.Symbol,
		"from", start.Format("2006-01-02"),
		"to", end.Format("2006-01-02"),
		"interval", candleInterval,
	)
	candles, err := bt.md.GetPriceHistory(ctx, bt.cfg.Trading.Symbol, start, end, candleInterval)
	if err != nil {
		return domain.BacktestReport{}, fmt.Errorf("orb.Backtester.Run: fetch history: %w", err)
	}

	byDate, dates := bt.groupRTHByDate(candles)
	if len(dates) == 0 {
		return domain.BacktestReport{}, fmt.Errorf("orb.Backtester.Run: no regular-hours candles returned")
	}
	if days > 0 && len(dates) > days {
		dates = dates[len(dates)-days:]
	}

	results := make([]domain.DayResult, 0, len(dates))
	for i, d := range dates {
		var prev []domain.Candle
		if i > 0 {
			prev = byDate[dates[i-1]]
		}
		r := bt.simulateDay(d, byDate[d], prev)
		results = append(results, r)
		slog.Debug("backtest: day done", "date", r.Date, "skipped", r.Skipped, "skip_reason", r.SkipReason)
	}

	summary := domain.Summarize(results, bt.cfg.Trading.PointValue)
	report := domain.BacktestReport{
		RunID:       uuid.New().String(),
		GeneratedAt: bt.now().UTC(),
		Symbol:      bt.cfg.Trading.Symbol,
		Days:        days,
		Timezone:    bt.cfg.Trading.Timezone,
		PointValue:  bt.cfg.Trading.PointValue,
		Settings:    bt.settings(),
		Summary:     summary,
		Results:     results,
	}

	slog.Info("backtest: run complete",
		"run_id", report.RunID,
		"total_days", summary.TotalDays,
		"traded", summary.TradedDays,
		"skipped", summary.SkippedDays,
		"total_points", summary.TotalPoints,
	)
	return report, nil
}

// groupRTHByDate keeps candles whose venue-local start falls inside
// [market open, EOD exit) and buckets them per local date, dates sorted
// ascending. Candle order inside a day follows the provider, which the
// adapter already sorts.
func (bt *Backtester) groupRTHByDate(candles []domain.Candle) (map[string][]domain.Candle, []string) {
	openH, openM, _ := domain.ParseHHMM(bt.cfg.Trading.MarketOpen)
	eodH, eodM, _ := domain.ParseHHMM(bt.cfg.Trading.EODExit)
	openMin := openH*60 + openM
	eodMin := eodH*60 + eodM

	byDate := make(map[string][]domain.Candle)
	for _, c := range candles {
		local := c.Time.In(bt.loc)
		m := local.Hour()*60 + local.Minute()
		if m < openMin || m >= eodMin {
			continue
		}
		key := local.Format("2006-01-02")
		byDate[key] = append(byDate[key], c)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return byDate, dates
}

// simulateDay replays one session. Entry detection is a per-candle level
// test (high/low touch); a candle touching both entry levels before any
// fill is recorded as a no-trade day rather than guessing a side.
func (bt *Backtester) simulateDay(date string, day, prev []domain.Candle) domain.DayResult {
	tr := bt.cfg.Trading

	orbCandle := bt.candleAt(day, date, tr.MarketOpen)
	if orbCandle == nil {
		return domain.DayResult{Date: date, Skipped: true, SkipReason: domain.SkipMissingORBCandle}
	}

	orb := &domain.RangeSnapshot{High: orbCandle.High, Low: orbCandle.Low, Open: orbCandle.Open}

	var prevClose *float64
	var prevHigh, prevLow float64
	if prevCandle := bt.candleAt(prev, prevDate(prev, bt.loc), tr.PrevCloseWindow); prevCandle != nil {
		pc := prevCandle.Close
		prevClose = &pc
		prevHigh, prevLow = prevCandle.High, prevCandle.Low
	}

	sessionDate, _ := time.ParseInLocation("2006-01-02", date, bt.loc)
	in := domain.SkipInputs{
		Date:          sessionDate,
		OpenPrice:     orbCandle.Open,
		ORBHigh:       orbCandle.High,
		ORBLow:        orbCandle.Low,
		PrevCloseHigh: prevHigh,
		PrevCloseLow:  prevLow,
	}
	if prevClose != nil {
		in.PrevClose = *prevClose
	}
	if skip, reason := domain.ShouldSkipDay(in, bt.cfg.SkipConfig()); skip {
		return domain.DayResult{Date: date, Skipped: true, SkipReason: reason, ORB: orb, PrevClose: prevClose}
	}

	rangeStart, _ := domain.AtTime(orbCandle.Time, tr.MarketOpen, bt.loc)
	rangeEnd, _ := domain.AtTime(orbCandle.Time, tr.RangeEnd, bt.loc)
	or := domain.OpeningRange{Start: rangeStart, End: rangeEnd, High: orbCandle.High, Low: orbCandle.Low}

	plan, err := domain.BuildDayPlan(tr.Symbol, or, tr.TargetPoints, tr.TickSize)
	if err != nil {
		// Tick size is validated at config load; reaching here is a bug.
		slog.Error("backtest: plan build failed", "date", date, "err", err)
		return domain.DayResult{Date: date, Skipped: true, ORB: orb}
	}

	// Buffered entries; targets measured from the buffered entry, stops
	// kept from the plan.
	snap := &domain.PlanSnapshot{
		LongEntry:   plan.LongEntry + tr.EntryBuffer,
		ShortEntry:  plan.ShortEntry - tr.EntryBuffer,
		LongStop:    plan.LongStop,
		ShortStop:   plan.ShortStop,
		LongTarget:  plan.LongEntry + tr.EntryBuffer + tr.TargetPoints,
		ShortTarget: plan.ShortEntry - tr.EntryBuffer - tr.TargetPoints,
	}

	beTime, _ := domain.AtTime(orbCandle.Time, tr.BreakevenCheck, bt.loc)

	trade, ambiguous := bt.walkDay(day, rangeEnd, beTime, snap)
	if ambiguous {
		return domain.DayResult{
			Date: date, Skipped: true, SkipReason: domain.SkipAmbiguousBreakouts,
			ORB: orb, PrevClose: prevClose, Plan: snap,
		}
	}
	return domain.DayResult{Date: date, ORB: orb, PrevClose: prevClose, Plan: snap, Trade: trade}
}

// walkDay runs the simplified exit-only simulation over the candles at or
// after the range end. Returns the trade outcome (nil when no entry
// triggered) and whether both breakout legs hit inside one candle.
func (bt *Backtester) walkDay(day []domain.Candle, rangeEnd, beTime time.Time, plan *domain.PlanSnapshot) (*domain.TradeOutcome, bool) {
	var (
		inPos      bool
		side       domain.Side
		entryTime  time.Time
		entryPx    float64
		stop       float64
		target     float64
		exitTime   time.Time
		exitPx     float64
		exitReason domain.ExitReason
	)

	var last *domain.Candle
	for i := range day {
		c := day[i]
		if c.Time.Before(rangeEnd) {
			continue
		}
		last = &day[i]

		// Breakeven move on the first candle starting at the check time,
		// only ever in the trade's favor.
		if inPos && c.Time.Equal(beTime) {
			if side == domain.SideLong && entryPx > stop {
				stop = entryPx
			} else if side == domain.SideShort && entryPx < stop {
				stop = entryPx
			}
		}

		if !inPos {
			longHit := c.High >= plan.LongEntry
			shortHit := c.Low <= plan.ShortEntry
			switch {
			case longHit && shortHit:
				return nil, true
			case longHit:
				inPos, side = true, domain.SideLong
				entryTime, entryPx = c.Time, plan.LongEntry
				stop, target = plan.LongStop, plan.LongTarget
			case shortHit:
				inPos, side = true, domain.SideShort
				entryTime, entryPx = c.Time, plan.ShortEntry
				stop, target = plan.ShortStop, plan.ShortTarget
			}
			// Entry candle is never also an exit candle at this granularity.
			continue
		}

		var stopHit, targetHit bool
		if side == domain.SideLong {
			stopHit = c.Low <= stop
			targetHit = c.High >= target
		} else {
			stopHit = c.High >= stop
			targetHit = c.Low <= target
		}

		switch {
		case stopHit && targetHit:
			exitTime, exitPx, exitReason = c.Time, stop, domain.ExitStopAndTarget
		case stopHit:
			exitTime, exitPx, exitReason = c.Time, stop, domain.ExitStop
		case targetHit:
			exitTime, exitPx, exitReason = c.Time, target, domain.ExitTarget
		default:
			continue
		}
		inPos = false
		break
	}

	if inPos && last != nil {
		exitTime, exitPx, exitReason = last.Time, last.Close, domain.ExitEOD
	} else if exitReason == "" {
		return nil, false
	}

	points := domain.PointsFor(side, entryPx, exitPx)
	return &domain.TradeOutcome{
		Symbol:     bt.cfg.Trading.Symbol,
		Side:       side,
		Qty:        1,
		EntryTime:  entryTime,
		EntryPrice: entryPx,
		ExitTime:   exitTime,
		ExitPrice:  exitPx,
		ExitReason: exitReason,
		Points:     points,
		Dollars:    points * bt.cfg.Trading.PointValue,
	}, false
}

// candleAt finds the candle starting exactly at hhmm venue-local on the
// given date, or nil.
func (bt *Backtester) candleAt(candles []domain.Candle, date, hhmm string) *domain.Candle {
	if date == "" || len(candles) == 0 {
		return nil
	}
	ref, err := time.ParseInLocation("2006-01-02", date, bt.loc)
	if err != nil {
		return nil
	}
	want, err := domain.AtTime(ref, hhmm, bt.loc)
	if err != nil {
		return nil
	}
	for i := range candles {
		if candles[i].Time.Equal(want) {
			return &candles[i]
		}
	}
	return nil
}

func (bt *Backtester) settings() domain.BacktestSettings {
	tr := bt.cfg.Trading
	sd := bt.cfg.SkipDays
	return domain.BacktestSettings{
		TargetPoints:    tr.TargetPoints,
		EntryBuffer:     tr.EntryBuffer,
		TickSize:        tr.TickSize,
		MarketOpen:      tr.MarketOpen,
		RangeEnd:        tr.RangeEnd,
		BreakevenCheck:  tr.BreakevenCheck,
		EODExit:         tr.EODExit,
		PrevCloseWindow: tr.PrevCloseWindow,
		GapThresholdPct: sd.GapThresholdPct,
		MaxRangePoints:  sd.MaxRangePoints,
		FOMCDates:       sd.FOMCDates,
	}
}

// prevDate returns the local date string of the first candle, used to
// anchor the prior session's closing sub-window lookup.
func prevDate(candles []domain.Candle, loc *time.Location) string {
	if len(candles) == 0 {
		return ""
	}
	return candles[0].Time.In(loc).Format("2006-01-02")
}
