package schwab

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

// historyPayload mirrors the /pricehistory response. Candle timestamps
// are epoch ms on a universal time base.
type historyPayload struct {
	Symbol  string `json:"symbol"`
	Empty   bool   `json:"empty"`
	Candles []struct {
		Datetime int64   `json:"datetime"`
		Open     float64 `json:"open"`
		High     float64 `json:"high"`
		Low      float64 `json:"low"`
		Close    float64 `json:"close"`
		Volume   float64 `json:"volume"`
	} `json:"candles"`
}

// GetPriceHistory fetches minute-family candles for [start, end) and
// normalizes timestamps to UTC. interval must be a whole number of
// minutes (1m for range capture, 15m for backtests).
func (c *Client) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time, interval time.Duration) ([]domain.Candle, error) {
	freq := int(interval / time.Minute)
	if freq < 1 {
		return nil, fmt.Errorf("schwab.GetPriceHistory: interval %s is below 1m", interval)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("periodType", "day")
	q.Set("frequencyType", "minute")
	q.Set("frequency", fmt.Sprintf("%d", freq))
	q.Set("startDate", fmt.Sprintf("%d", start.UnixMilli()))
	q.Set("endDate", fmt.Sprintf("%d", end.UnixMilli()))
	q.Set("needExtendedHoursData", "false")

	u := fmt.Sprintf("%s/marketdata/v1/pricehistory?%s", c.baseURL, q.Encode())

	var payload historyPayload
	if err := c.get(ctx, u, &payload); err != nil {
		return nil, fmt.Errorf("schwab.GetPriceHistory: %w", err)
	}

	candles := make([]domain.Candle, 0, len(payload.Candles))
	for _, raw := range payload.Candles {
		candles = append(candles, domain.Candle{
			Time:   time.UnixMilli(raw.Datetime).UTC(),
			Open:   raw.Open,
			High:   raw.High,
			Low:    raw.Low,
			Close:  raw.Close,
			Volume: raw.Volume,
		})
	}

	// The API generally returns ordered data; enforce it anyway since the
	// core assumes time-ordered input.
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}
