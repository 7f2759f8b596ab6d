package orb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/orbtrader/config"
	"github.com/alejandrodnm/orbtrader/internal/adapters/notify"
	"github.com/alejandrodnm/orbtrader/internal/domain"
	"github.com/alejandrodnm/orbtrader/internal/ports"
)

// skipLookbackDays covers enough calendar days to find the prior trading
// session's closing sub-window across weekends and holidays.
const skipLookbackDays = 5

// Session is the live trading loop for one day: it drives the range
// tracker, evaluates the stand-down policy once the range is frozen,
// places the OCO entry, and feeds quotes to the broker until the EOD
// flatten. A calendar-day rollover while running resets everything, so
// the process can be started the evening before.
type Session struct {
	cfg      *config.Config
	md       ports.MarketData
	broker   *PaperBroker
	notifier ports.Notifier
	tracker  *Tracker
	loc      *time.Location

	now func() time.Time // injectable for tests

	sessionDate  string
	rangeHandled bool
	skipDay      bool
	beDone       bool
	lastPrice    float64
}

// NewSession wires a live session. The notifier may be nil.
func NewSession(cfg *config.Config, md ports.MarketData, broker *PaperBroker, notifier ports.Notifier) (*Session, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("orb.NewSession: %w", err)
	}
	s := &Session{
		cfg:      cfg,
		md:       md,
		broker:   broker,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
	}
	s.tracker = NewTracker(s.trackerConfig(), md)
	return s, nil
}

// Run polls until the EOD flatten completes or the context is canceled.
func (s *Session) Run(ctx context.Context) error {
	slog.Info("session: starting",
		"symbol", s.cfg.Trading.Symbol,
		"window", s.cfg.Trading.MarketOpen+"-"+s.cfg.Trading.RangeEnd,
		"poll_interval", s.cfg.PollInterval(),
	)

	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done := s.tick(ctx); done {
				return nil
			}
		}
	}
}

// tick runs one poll cycle. Returns true once the session is over.
func (s *Session) tick(ctx context.Context) bool {
	now := s.now().In(s.loc)
	s.rolloverIfNewDay(now)

	if q, err := s.md.GetQuote(ctx, s.cfg.Trading.Symbol); err != nil {
		slog.Warn("session: quote failed", "err", err)
	} else if q.Last > 0 {
		s.lastPrice = q.Last
	}

	state := s.tracker.Update(ctx, now)

	if state == StateRangeComplete && !s.rangeHandled {
		s.handleRangeComplete(ctx, now)
	}

	if !s.skipDay && s.lastPrice > 0 {
		s.broker.OnPrice(s.lastPrice, now)
	}

	beTime, err := domain.AtTime(now, s.cfg.Trading.BreakevenCheck, s.loc)
	if err == nil && !s.beDone && !now.Before(beTime) && s.lastPrice > 0 {
		s.broker.MoveStopToBreakevenIfInProfit(s.lastPrice, now)
		s.beDone = true
	}

	eodTime, err := domain.AtTime(now, s.cfg.Trading.EODExit, s.loc)
	if err == nil && !now.Before(eodTime) {
		s.broker.ExitMarket(s.lastPrice, domain.ExitEOD, now)
		slog.Info("session: EOD flatten complete, shutting down")
		return true
	}
	return false
}

// handleRangeComplete runs exactly once per session, right after the
// range freezes: evaluate the stand-down policy, then either announce a
// skip or place the OCO entry.
func (s *Session) handleRangeComplete(ctx context.Context, now time.Time) {
	or := s.tracker.OpeningRange()
	if or == nil {
		return
	}
	s.rangeHandled = true

	if skip, reason := s.evaluateSkip(ctx, now, *or); skip {
		s.skipDay = true
		slog.Info("session: standing down", "reason", reason, "high", or.High, "low", or.Low)
		s.notify(ctx, notify.FormatSkipDay(reason, or.High, or.Low))
		return
	}

	tr := s.cfg.Trading
	s.broker.PlaceOCO(*or, tr.EntryBuffer, tr.TargetPoints, tr.Qty, now)
	if oco := s.broker.PendingEntry(); oco != nil {
		s.notify(ctx, notify.FormatRangeSet(or.High, or.Low, oco.BuyStop, oco.SellStop, or.End))
	}
}

// evaluateSkip gathers the policy inputs from recent candles. A fetch
// failure degrades the data-dependent checks instead of blocking the
// session.
func (s *Session) evaluateSkip(ctx context.Context, now time.Time, or domain.OpeningRange) (bool, domain.SkipReason) {
	in := domain.SkipInputs{
		Date:    now,
		ORBHigh: or.High,
		ORBLow:  or.Low,
	}

	candles, err := s.md.GetPriceHistory(ctx, s.cfg.Trading.Symbol, now.AddDate(0, 0, -skipLookbackDays), now, candleInterval)
	if err != nil {
		slog.Warn("session: skip-check history fetch failed, degrading checks", "err", err)
	} else {
		s.fillSkipInputs(&in, candles, now)
	}

	return domain.ShouldSkipDay(in, s.cfg.SkipConfig())
}

// fillSkipInputs extracts today's session open and the prior trading
// day's closing sub-window candle from a recent candle window.
func (s *Session) fillSkipInputs(in *domain.SkipInputs, candles []domain.Candle, now time.Time) {
	openWant, err := domain.AtTime(now, s.cfg.Trading.MarketOpen, s.loc)
	if err != nil {
		return
	}
	ph, pm, err := domain.ParseHHMM(s.cfg.Trading.PrevCloseWindow)
	if err != nil {
		return
	}

	today := now.Format("2006-01-02")
	var prev *domain.Candle
	for i := range candles {
		c := &candles[i]
		if c.Time.Equal(openWant) {
			in.OpenPrice = c.Open
		}
		local := c.Time.In(s.loc)
		if local.Hour() == ph && local.Minute() == pm && local.Format("2006-01-02") < today {
			if prev == nil || c.Time.After(prev.Time) {
				prev = c
			}
		}
	}
	if prev != nil {
		in.PrevClose = prev.Close
		in.PrevCloseHigh = prev.High
		in.PrevCloseLow = prev.Low
	}
}

// rolloverIfNewDay resets all per-session state when the venue-local
// calendar date changes under a running process.
func (s *Session) rolloverIfNewDay(now time.Time) {
	d := now.Format("2006-01-02")
	if s.sessionDate == d {
		return
	}
	if s.sessionDate != "" {
		s.broker.ResetForNewDay("calendar rollover")
		s.tracker = NewTracker(s.trackerConfig(), s.md)
		s.rangeHandled = false
		s.skipDay = false
		s.beDone = false
		s.lastPrice = 0
	}
	s.sessionDate = d
}

func (s *Session) trackerConfig() TrackerConfig {
	return TrackerConfig{
		Symbol:     s.cfg.Trading.Symbol,
		MarketOpen: s.cfg.Trading.MarketOpen,
		RangeEnd:   s.cfg.Trading.RangeEnd,
		Location:   s.loc,
		MaxStale:   s.cfg.MaxStale(),
	}
}

func (s *Session) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(ctx, text); err != nil {
		slog.Warn("session: notification failed", "err", err)
	}
}
