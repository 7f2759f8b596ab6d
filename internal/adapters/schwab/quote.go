package schwab

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

// quotePayload mirrors the /quotes response: a map keyed by the resolved
// symbol (futures roots like /ES resolve to contracts like /ESH26).
type quotePayload map[string]struct {
	AssetMainType string `json:"assetMainType"`
	Quote         struct {
		LastPrice       float64 `json:"lastPrice"`
		QuoteTimeInLong int64   `json:"quoteTimeInLong"`
		TradeTimeInLong int64   `json:"tradeTimeInLong"`
	} `json:"quote"`
}

// GetQuote returns the last price for symbol with the vendor's embedded
// quote timestamp (epoch ms, normalized to UTC).
func (c *Client) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	u := fmt.Sprintf("%s/marketdata/v1/quotes?symbols=%s", c.baseURL, url.QueryEscape(symbol))

	var payload quotePayload
	if err := c.get(ctx, u, &payload); err != nil {
		return domain.Quote{}, fmt.Errorf("schwab.GetQuote: %w", err)
	}

	// Exact key match first; for futures roots fall back to the FUTURE
	// entry the API resolved the root to.
	entry, ok := payload[symbol]
	if !ok {
		for _, v := range payload {
			if v.AssetMainType == "FUTURE" {
				entry = v
				ok = true
				break
			}
		}
	}
	if !ok {
		return domain.Quote{}, fmt.Errorf("schwab.GetQuote: no quote returned for %s", symbol)
	}
	if entry.Quote.LastPrice <= 0 {
		return domain.Quote{}, fmt.Errorf("schwab.GetQuote: non-positive last price for %s", symbol)
	}

	ms := entry.Quote.QuoteTimeInLong
	if ms == 0 {
		ms = entry.Quote.TradeTimeInLong
	}
	var ts time.Time
	if ms > 0 {
		ts = time.UnixMilli(ms).UTC()
	}

	return domain.Quote{Symbol: symbol, Last: entry.Quote.LastPrice, Time: ts}, nil
}
