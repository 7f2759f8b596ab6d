package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

// MarketData provides quotes and historical candles from the vendor.
//
// Live polling treats any error as "no update this tick"; the backtest's
// one-shot history fetch treats errors as fatal for the run.
type MarketData interface {
	// GetQuote returns the last traded price with the vendor's embedded
	// quote timestamp.
	GetQuote(ctx context.Context, symbol string) (domain.Quote, error)

	// GetPriceHistory returns time-ordered OHLCV candles for [start, end)
	// at the given bar interval. Timestamps are normalized to UTC.
	GetPriceHistory(ctx context.Context, symbol string, start, end time.Time, interval time.Duration) ([]domain.Candle, error)
}
