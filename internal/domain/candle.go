package domain

import "time"

// Candle is one OHLCV bar. Time is the bar's start instant, always UTC;
// adapters normalize vendor timestamps at the boundary, the core never
// infers time zones.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote is the latest traded price for a symbol with the vendor's own
// timestamp, used for staleness validation.
type Quote struct {
	Symbol string
	Last   float64
	Time   time.Time
}

// Age returns how old the quote is relative to now. Zero-time quotes
// report a zero age (no timestamp to validate against).
func (q Quote) Age(now time.Time) time.Duration {
	if q.Time.IsZero() {
		return 0
	}
	return now.Sub(q.Time)
}
