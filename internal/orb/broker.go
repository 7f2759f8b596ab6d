package orb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/orbtrader/internal/adapters/notify"
	"github.com/alejandrodnm/orbtrader/internal/domain"
	"github.com/alejandrodnm/orbtrader/internal/ports"
)

// BrokerConfig holds the instrument parameters for the simulator.
type BrokerConfig struct {
	Symbol     string
	TickSize   float64
	PointValue float64
}

// PaperBroker simulates the ORB day plan against a price stream: an OCO
// entry pair, bracket management, the breakeven rule, and EOD flatten.
// Not a matching engine, just enough to run the strategy honestly.
//
// All state is owned by the single session loop driving it; no locking.
type PaperBroker struct {
	cfg      BrokerConfig
	notifier ports.Notifier
	journal  ports.Journal // may be nil

	position *domain.Position
	bracket  *domain.Bracket
	oco      *domain.OCOEntry

	tradeTaken bool
	beApplied  bool

	lastPrice      *float64
	lastUnrealized *float64

	outcomes []domain.TradeOutcome
}

// NewPaperBroker creates a broker. The journal may be nil to disable
// persistence.
func NewPaperBroker(cfg BrokerConfig, notifier ports.Notifier, journal ports.Journal) (*PaperBroker, error) {
	if cfg.TickSize <= 0 {
		return nil, fmt.Errorf("orb.NewPaperBroker: tick_size must be > 0, got %v", cfg.TickSize)
	}
	if cfg.PointValue <= 0 {
		return nil, fmt.Errorf("orb.NewPaperBroker: point_value must be > 0, got %v", cfg.PointValue)
	}
	return &PaperBroker{cfg: cfg, notifier: notifier, journal: journal}, nil
}

// Position returns the open position, or nil.
func (b *PaperBroker) Position() *domain.Position { return b.position }

// Bracket returns the bracket attached to the open position, or nil.
func (b *PaperBroker) Bracket() *domain.Bracket { return b.bracket }

// PendingEntry returns the unfilled OCO pair, or nil.
func (b *PaperBroker) PendingEntry() *domain.OCOEntry { return b.oco }

// TradeTaken reports whether this session's one trade has been used.
func (b *PaperBroker) TradeTaken() bool { return b.tradeTaken }

// Outcomes returns the completed trades of this session.
func (b *PaperBroker) Outcomes() []domain.TradeOutcome { return b.outcomes }

// PlaceOCO places the breakout entry pair once the opening range is
// complete. Trigger prices get the buffer applied and are rounded away
// from the range (buy up, sell down). No-op after the session's trade.
func (b *PaperBroker) PlaceOCO(or domain.OpeningRange, buffer, targetPoints float64, qty int, now time.Time) {
	if b.tradeTaken {
		slog.Warn("broker: one-trade-per-day rule, refusing to place new entry")
		return
	}

	buyStop := b.tick(or.High+buffer, domain.RoundUp)
	sellStop := b.tick(or.Low-buffer, domain.RoundDown)

	b.oco = &domain.OCOEntry{
		BuyStop:      buyStop,
		SellStop:     sellStop,
		Range:        or,
		TargetPoints: targetPoints,
		Qty:          qty,
		PlacedTime:   now,
	}
	slog.Info("broker: placed OCO entry",
		"buy_stop", buyStop,
		"sell_stop", sellStop,
		"range_high", or.High,
		"range_low", or.Low,
		"buffer", buffer,
	)
}

// CancelEntry cancels the pending OCO pair if any.
func (b *PaperBroker) CancelEntry(reason string) {
	if b.oco != nil {
		slog.Info("broker: canceled pending OCO entry", "reason", reason)
	}
	b.oco = nil
}

// OnPrice is the core tick handler, called once per observed price.
//
// Entry detection uses a crossing test against the previous observed
// price so only one leg can trigger per tick. On the very first tick
// after placement there is no prior price; the fallback is a level test
// with the long leg checked before the short leg.
func (b *PaperBroker) OnPrice(price float64, now time.Time) {
	if b.position == nil && b.oco != nil {
		if b.lastPrice != nil {
			last := *b.lastPrice
			if last < b.oco.BuyStop && price >= b.oco.BuyStop {
				b.open(domain.SideLong, b.oco.BuyStop, now)
			} else if last > b.oco.SellStop && price <= b.oco.SellStop {
				b.open(domain.SideShort, b.oco.SellStop, now)
			}
		} else {
			if price >= b.oco.BuyStop {
				b.open(domain.SideLong, b.oco.BuyStop, now)
			} else if price <= b.oco.SellStop {
				b.open(domain.SideShort, b.oco.SellStop, now)
			}
		}
	}

	if b.position != nil && b.bracket != nil {
		b.manageBracket(price, now)
	}

	p := price
	b.lastPrice = &p
}

// manageBracket checks stop/target. Stop is evaluated first: a tick that
// satisfies both resolves as a stop-out, never the favorable outcome.
func (b *PaperBroker) manageBracket(price float64, now time.Time) {
	var stopHit, targetHit bool
	if b.position.Side == domain.SideLong {
		stopHit = price <= b.bracket.Stop
		targetHit = price >= b.bracket.Target
	} else {
		stopHit = price >= b.bracket.Stop
		targetHit = price <= b.bracket.Target
	}

	switch {
	case stopHit:
		reason := domain.ExitStop
		if b.beApplied {
			reason = domain.ExitBreakevenStop
		}
		b.close(b.bracket.Stop, reason, now)
	case targetHit:
		b.close(b.bracket.Target, domain.ExitTarget, now)
	default:
		b.logUnrealized(price)
	}
}

// MoveStopToBreakevenIfInProfit moves the stop to the entry price,
// rounded conservatively, if the position shows unrealized profit.
// Applies at most once per trade.
func (b *PaperBroker) MoveStopToBreakevenIfInProfit(price float64, now time.Time) {
	if b.position == nil || b.bracket == nil || b.beApplied {
		return
	}

	var newStop float64
	switch b.position.Side {
	case domain.SideLong:
		if price <= b.position.Entry {
			return
		}
		newStop = b.tick(b.position.Entry, domain.RoundDown)
		if b.bracket.Stop >= newStop {
			return
		}
	case domain.SideShort:
		if price >= b.position.Entry {
			return
		}
		newStop = b.tick(b.position.Entry, domain.RoundUp)
		if b.bracket.Stop <= newStop {
			return
		}
	}

	b.bracket.Stop = newStop
	b.beApplied = true
	slog.Info("broker: moved stop to breakeven", "stop", newStop, "side", b.position.Side)
	b.notify(notify.FormatBreakeven(b.position.Side, newStop))
}

// ExitMarket closes any open position at price and cancels any pending
// entry. Idempotent when nothing is open.
func (b *PaperBroker) ExitMarket(price float64, reason domain.ExitReason, now time.Time) {
	if b.position != nil {
		b.close(price, reason, now)
	}
	b.oco = nil
}

// ResetForNewDay clears all per-session state at the calendar rollover.
func (b *PaperBroker) ResetForNewDay(reason string) {
	slog.Info("broker: reset for new day", "reason", reason)
	b.position = nil
	b.bracket = nil
	b.oco = nil
	b.tradeTaken = false
	b.beApplied = false
	b.lastPrice = nil
	b.lastUnrealized = nil
	b.outcomes = nil
}

func (b *PaperBroker) open(side domain.Side, entry float64, now time.Time) {
	oco := b.oco
	b.tradeTaken = true
	b.position = &domain.Position{Side: side, Qty: oco.Qty, Entry: entry, EntryTime: now}

	stop, target := domain.StopTargetForEntry(side, entry, oco.Range, oco.TargetPoints, b.cfg.TickSize)
	b.bracket = &domain.Bracket{Stop: stop, Target: target}

	// OCO semantics: the other leg dies with the fill.
	b.oco = nil
	b.lastUnrealized = nil

	slog.Info("broker: filled",
		"side", side,
		"qty", b.position.Qty,
		"entry", entry,
		"stop", stop,
		"target", target,
		"entry_time", now,
	)
	b.notify(notify.FormatEntry(side, entry, stop, target))
}

func (b *PaperBroker) close(price float64, reason domain.ExitReason, now time.Time) {
	pos := b.position
	points := domain.PointsFor(pos.Side, pos.Entry, price)
	dollars := points * b.cfg.PointValue * float64(pos.Qty)

	outcome := domain.TradeOutcome{
		ID:         uuid.New().String(),
		Symbol:     b.cfg.Symbol,
		Side:       pos.Side,
		Qty:        pos.Qty,
		EntryTime:  pos.EntryTime,
		EntryPrice: pos.Entry,
		ExitTime:   now,
		ExitPrice:  price,
		ExitReason: reason,
		Points:     points,
		Dollars:    dollars,
	}
	b.outcomes = append(b.outcomes, outcome)

	slog.Info("broker: closed",
		"side", pos.Side,
		"qty", pos.Qty,
		"entry", pos.Entry,
		"exit", price,
		"reason", reason,
		"duration", now.Sub(pos.EntryTime).Round(time.Second),
		"points", points,
		"dollars", dollars,
	)

	tradesTotal.WithLabelValues(tradeResult(points)).Inc()
	exitReasons.WithLabelValues(string(reason), string(pos.Side)).Inc()
	unrealizedPnL.Set(0)

	b.notify(notify.FormatExit(outcome))
	if b.journal != nil {
		if err := b.journal.SaveTrade(context.Background(), outcome); err != nil {
			slog.Warn("broker: journal save failed", "err", err)
		}
	}

	b.position = nil
	b.bracket = nil
	b.lastUnrealized = nil
}

// logUnrealized emits a debug P&L line, throttled to changes of at least
// one point so quiet markets do not flood the log.
func (b *PaperBroker) logUnrealized(price float64) {
	const minChange = 1.0
	pnl := domain.PointsFor(b.position.Side, b.position.Entry, price)
	unrealizedPnL.Set(pnl)
	if b.lastUnrealized == nil || abs(pnl-*b.lastUnrealized) >= minChange {
		slog.Debug("broker: unrealized pnl", "points", pnl, "last", price, "entry", b.position.Entry)
		p := pnl
		b.lastUnrealized = &p
	}
}

func (b *PaperBroker) notify(text string) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.SendMessage(context.Background(), text); err != nil {
		slog.Warn("broker: notification failed", "err", err)
	}
}

// tick rounds with the broker's validated tick size, so the error from
// RoundToTick cannot fire.
func (b *PaperBroker) tick(price float64, dir domain.RoundDirection) float64 {
	p, _ := domain.RoundToTick(price, b.cfg.TickSize, dir)
	return p
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
