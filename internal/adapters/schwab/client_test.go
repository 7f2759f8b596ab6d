package schwab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuote_FuturesRootResolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/v1/quotes", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		// The API resolves /ES to the front-month contract.
		w.Write([]byte(`{
			"/ESH26": {
				"assetMainType": "FUTURE",
				"quote": {"lastPrice": 6854.25, "quoteTimeInLong": 1764100000000}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	q, err := c.GetQuote(context.Background(), "/ES")
	require.NoError(t, err)

	assert.Equal(t, "/ES", q.Symbol)
	assert.Equal(t, 6854.25, q.Last)
	assert.Equal(t, time.UnixMilli(1764100000000).UTC(), q.Time)
}

func TestGetQuote_NoFutureEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"AAPL": {"assetMainType": "EQUITY", "quote": {"lastPrice": 1.0}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GetQuote(context.Background(), "/ES")
	assert.Error(t, err)
}

func TestGetQuote_NonPositivePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"/ESH26": {"assetMainType": "FUTURE", "quote": {"lastPrice": 0}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GetQuote(context.Background(), "/ES")
	assert.Error(t, err)
}

func TestGetPriceHistory_NormalizesToUTC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/marketdata/v1/pricehistory", r.URL.Path)
		assert.Equal(t, "15", r.URL.Query().Get("frequency"))
		assert.Equal(t, "minute", r.URL.Query().Get("frequencyType"))
		// Out of order on purpose; the client must sort.
		w.Write([]byte(`{
			"symbol": "/ES",
			"candles": [
				{"datetime": 1764100900000, "open": 2, "high": 3, "low": 1, "close": 2.5, "volume": 10},
				{"datetime": 1764100000000, "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 20}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	candles, err := c.GetPriceHistory(context.Background(), "/ES",
		time.UnixMilli(1764000000000), time.UnixMilli(1764200000000), 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.True(t, candles[0].Time.Before(candles[1].Time))
	assert.Equal(t, time.UTC, candles[0].Time.Location())
	assert.Equal(t, 20.0, candles[0].Volume)
}

func TestGetPriceHistory_SubMinuteIntervalRejected(t *testing.T) {
	c := NewClient("http://unused", "")
	_, err := c.GetPriceHistory(context.Background(), "/ES", time.Now().Add(-time.Hour), time.Now(), 30*time.Second)
	assert.Error(t, err)
}

func TestGet_RetriesOn500(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"candles": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	candles, err := c.GetPriceHistory(context.Background(), "/ES", time.Now().Add(-time.Hour), time.Now(), time.Minute)
	require.NoError(t, err)
	assert.Empty(t, candles)
	assert.Equal(t, 2, calls)
}

func TestGet_GivesUpOn404(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GetPriceHistory(context.Background(), "/ES", time.Now().Add(-time.Hour), time.Now(), time.Minute)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
