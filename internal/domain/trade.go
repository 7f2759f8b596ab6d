package domain

import "time"

// Side of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ExitReason is recorded on every close.
type ExitReason string

const (
	ExitTarget        ExitReason = "TARGET"
	ExitStop          ExitReason = "STOP"
	ExitBreakevenStop ExitReason = "BREAKEVEN_STOP"
	ExitEOD           ExitReason = "EOD"
	// ExitStopAndTarget marks a candle that touched both stop and target;
	// resolved conservatively as a stop-out.
	ExitStopAndTarget ExitReason = "STOP_AND_TARGET_SAME_CANDLE"
)

// IsStopOut reports whether the exit counted against the trade (any stop
// variant, never the favorable outcome on ambiguous candles).
func (r ExitReason) IsStopOut() bool {
	return r == ExitStop || r == ExitBreakevenStop || r == ExitStopAndTarget
}

// OCOEntry is the pending one-cancels-other entry pair. BuyStop/SellStop
// are the actual trigger prices (range boundary + buffer); the range
// snapshot is kept so brackets can be derived at fill time.
type OCOEntry struct {
	BuyStop  float64
	SellStop float64

	Range OpeningRange

	TargetPoints float64
	Qty          int
	PlacedTime   time.Time
}

// Position is an open simulated position. At most one exists at a time.
type Position struct {
	Side      Side
	Qty       int
	Entry     float64
	EntryTime time.Time
}

// Bracket is the stop/target pair attached to an open position. Stop is
// mutated at most once, by the breakeven rule.
type Bracket struct {
	Stop   float64
	Target float64
}

// TradeOutcome is one completed simulated trade.
type TradeOutcome struct {
	ID         string     `json:"id,omitempty"`
	Symbol     string     `json:"symbol,omitempty"`
	Side       Side       `json:"side"`
	Qty        int        `json:"qty,omitempty"`
	EntryTime  time.Time  `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitTime   time.Time  `json:"exit_time"`
	ExitPrice  float64    `json:"exit_price"`
	ExitReason ExitReason `json:"exit_reason"`
	Points     float64    `json:"points"`
	Dollars    float64    `json:"dollars"`
}

// PointsFor returns side-signed P&L in points for a round trip.
func PointsFor(side Side, entry, exit float64) float64 {
	if side == SideLong {
		return exit - entry
	}
	return entry - exit
}
