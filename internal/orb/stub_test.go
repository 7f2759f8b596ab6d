package orb

import (
	"context"
	"time"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

// stubMarketData implements ports.MarketData with injectable hooks.
type stubMarketData struct {
	quoteFn   func() (domain.Quote, error)
	historyFn func(start, end time.Time, interval time.Duration) ([]domain.Candle, error)

	quoteCalls   int
	historyCalls int
}

func (s *stubMarketData) GetQuote(_ context.Context, _ string) (domain.Quote, error) {
	s.quoteCalls++
	if s.quoteFn == nil {
		return domain.Quote{}, nil
	}
	return s.quoteFn()
}

func (s *stubMarketData) GetPriceHistory(_ context.Context, _ string, start, end time.Time, interval time.Duration) ([]domain.Candle, error) {
	s.historyCalls++
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(start, end, interval)
}

// stubNotifier records sent messages.
type stubNotifier struct {
	sent []string
	err  error
}

func (s *stubNotifier) SendMessage(_ context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}
