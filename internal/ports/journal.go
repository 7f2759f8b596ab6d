package ports

import (
	"context"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

// Journal persists the current run's output: backtest reports and live
// simulated trades.
type Journal interface {
	SaveRun(ctx context.Context, report domain.BacktestReport) error
	SaveTrade(ctx context.Context, trade domain.TradeOutcome) error
	Close() error
}
