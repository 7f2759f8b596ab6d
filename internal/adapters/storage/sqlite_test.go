package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/orbtrader/internal/adapters/storage"
	"github.com/alejandrodnm/orbtrader/internal/domain"
)

func makeReport() domain.BacktestReport {
	pf := 2.0
	return domain.BacktestReport{
		RunID:       "run-1",
		GeneratedAt: time.Now().UTC(),
		Symbol:      "/ES",
		Days:        2,
		Timezone:    "America/New_York",
		PointValue:  50,
		Settings:    domain.BacktestSettings{TargetPoints: 20, TickSize: 0.25},
		Summary:     domain.Summary{TotalDays: 2, TradedDays: 1, SkippedDays: 1, Wins: 1, ProfitFactor: &pf},
		Results: []domain.DayResult{
			{Date: "2026-03-02", Skipped: true, SkipReason: domain.SkipFOMCDay},
			{Date: "2026-03-03", Trade: &domain.TradeOutcome{
				Side: domain.SideLong, EntryPrice: 6860, ExitPrice: 6880,
				ExitReason: domain.ExitTarget, Points: 20, Dollars: 1000,
			}},
		},
	}
}

func TestSQLiteJournal_SaveRun(t *testing.T) {
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.SaveRun(context.Background(), makeReport()))

	// Same run ID twice must fail, runs are immutable.
	assert.Error(t, j.SaveRun(context.Background(), makeReport()))
}

func TestSQLiteJournal_SaveAndGetTrades(t *testing.T) {
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	entry := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	trade := domain.TradeOutcome{
		ID:         "t-1",
		Symbol:     "/ES",
		Side:       domain.SideShort,
		Qty:        1,
		EntryTime:  entry,
		EntryPrice: 6849.75,
		ExitTime:   entry.Add(30 * time.Minute),
		ExitPrice:  6829.75,
		ExitReason: domain.ExitTarget,
		Points:     20,
		Dollars:    1000,
	}
	require.NoError(t, j.SaveTrade(context.Background(), trade))

	got, err := j.GetTrades(context.Background(), entry.Add(-time.Hour), entry.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.SideShort, got[0].Side)
	assert.Equal(t, domain.ExitTarget, got[0].ExitReason)
	assert.InDelta(t, 20.0, got[0].Points, 1e-9)
}

func TestSQLiteJournal_GetTrades_EmptyRange(t *testing.T) {
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	got, err := j.GetTrades(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)
}
