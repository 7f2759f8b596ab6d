package domain

import "time"

// RangeSnapshot captures the opening-range candle used for a simulated day.
type RangeSnapshot struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
	Open float64 `json:"open"`
}

// PlanSnapshot is the effective levels for a simulated day, entry buffer
// already applied.
type PlanSnapshot struct {
	LongEntry   float64 `json:"long_entry"`
	ShortEntry  float64 `json:"short_entry"`
	LongStop    float64 `json:"long_stop"`
	ShortStop   float64 `json:"short_stop"`
	LongTarget  float64 `json:"long_target"`
	ShortTarget float64 `json:"short_target"`
}

// DayResult is the outcome of one simulated trading day. Immutable after
// construction.
type DayResult struct {
	Date       string         `json:"date"`
	Skipped    bool           `json:"skipped"`
	SkipReason SkipReason     `json:"skip_reason,omitempty"`
	ORB        *RangeSnapshot `json:"orb,omitempty"`
	PrevClose  *float64       `json:"prev_close,omitempty"`
	Plan       *PlanSnapshot  `json:"plan,omitempty"`
	Trade      *TradeOutcome  `json:"trade,omitempty"`
}

// Summary aggregates a backtest run. Purely derived from the day results.
type Summary struct {
	TotalDays   int                `json:"total_days"`
	TradedDays  int                `json:"traded_days"`
	SkippedDays int                `json:"skipped_days"`
	SkipReasons map[SkipReason]int `json:"skip_reasons"`

	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	Breakevens int `json:"breakevens"`

	// WinRatePct excludes breakeven trades from the denominator.
	WinRatePct float64 `json:"win_rate_pct"`

	AvgWinPoints   float64 `json:"avg_win_points"`
	AvgWinDollars  float64 `json:"avg_win_dollars"`
	AvgLossPoints  float64 `json:"avg_loss_points"`
	AvgLossDollars float64 `json:"avg_loss_dollars"`

	// ProfitFactor is gross win / gross loss; nil when there are no losses.
	ProfitFactor *float64 `json:"profit_factor"`

	TotalPoints  float64 `json:"total_points"`
	TotalDollars float64 `json:"total_dollars"`

	LargestWinPoints   float64 `json:"largest_win_points"`
	LargestWinDollars  float64 `json:"largest_win_dollars"`
	LargestLossPoints  float64 `json:"largest_loss_points"`
	LargestLossDollars float64 `json:"largest_loss_dollars"`
}

// BacktestSettings is the settings snapshot embedded in the report.
type BacktestSettings struct {
	TargetPoints    float64  `json:"target_points"`
	EntryBuffer     float64  `json:"entry_buffer_points"`
	TickSize        float64  `json:"tick_size"`
	MarketOpen      string   `json:"market_open"`
	RangeEnd        string   `json:"range_end"`
	BreakevenCheck  string   `json:"be_check_time"`
	EODExit         string   `json:"eod_exit"`
	PrevCloseWindow string   `json:"prev_close_window"`
	GapThresholdPct float64  `json:"gap_threshold_pct"`
	MaxRangePoints  float64  `json:"max_range_points"`
	FOMCDates       []string `json:"fomc_dates"`
}

// BacktestReport is the persisted per-run output, consumed by human
// operators.
type BacktestReport struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Symbol      string           `json:"symbol"`
	Days        int              `json:"days"`
	Timezone    string           `json:"tz"`
	PointValue  float64          `json:"point_value"`
	Settings    BacktestSettings `json:"settings"`
	Summary     Summary          `json:"summary"`
	Results     []DayResult      `json:"results"`
}

// Summarize derives the aggregate statistics from per-day results.
func Summarize(results []DayResult, pointValue float64) Summary {
	s := Summary{
		TotalDays:   len(results),
		SkipReasons: make(map[SkipReason]int),
	}

	var wins, losses []float64
	for _, r := range results {
		if r.Skipped {
			s.SkippedDays++
			if r.SkipReason != "" {
				s.SkipReasons[r.SkipReason]++
			}
			continue
		}
		if r.Trade == nil {
			continue
		}
		s.TradedDays++
		p := r.Trade.Points
		switch {
		case p > 0:
			wins = append(wins, p)
		case p < 0:
			losses = append(losses, p)
		default:
			s.Breakevens++
		}
		s.TotalPoints += p
	}

	s.Wins = len(wins)
	s.Losses = len(losses)
	s.TotalDollars = s.TotalPoints * pointValue

	var grossWin, grossLoss float64
	for _, w := range wins {
		grossWin += w
		if w > s.LargestWinPoints {
			s.LargestWinPoints = w
		}
	}
	for _, l := range losses {
		grossLoss += -l
		if l < s.LargestLossPoints {
			s.LargestLossPoints = l
		}
	}

	if denom := s.Wins + s.Losses; denom > 0 {
		s.WinRatePct = float64(s.Wins) / float64(denom) * 100.0
	}
	if s.Wins > 0 {
		s.AvgWinPoints = grossWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPoints = -grossLoss / float64(s.Losses)
	}
	s.AvgWinDollars = s.AvgWinPoints * pointValue
	s.AvgLossDollars = s.AvgLossPoints * pointValue
	s.LargestWinDollars = s.LargestWinPoints * pointValue
	s.LargestLossDollars = s.LargestLossPoints * pointValue

	if grossLoss > 0 {
		pf := grossWin / grossLoss
		s.ProfitFactor = &pf
	}
	return s
}
