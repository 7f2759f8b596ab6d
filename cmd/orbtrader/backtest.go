package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alejandrodnm/orbtrader/config"
	"github.com/alejandrodnm/orbtrader/internal/adapters/notify"
	"github.com/alejandrodnm/orbtrader/internal/adapters/schwab"
	"github.com/alejandrodnm/orbtrader/internal/adapters/storage"
	"github.com/alejandrodnm/orbtrader/internal/orb"
)

func runBacktest(ctx context.Context, cfg *config.Config, client *schwab.Client, days int, out string) {
	slog.Info("=== BACKTEST MODE ===", "days", days, "symbol", cfg.Trading.Symbol)

	bt, err := orb.NewBacktester(cfg, client)
	if err != nil {
		slog.Error("failed to create backtester", "err", err)
		os.Exit(1)
	}

	report, err := bt.Run(ctx, days)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	notify.NewConsole().PrintBacktest(report)

	if out != "" {
		if err := orb.WriteReport(out, report); err != nil {
			slog.Error("failed to write report", "err", err, "path", out)
			os.Exit(1)
		}
		slog.Info("saved detailed results", "path", out)
	}

	if cfg.Storage.DSN != "" {
		j, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
		if err != nil {
			slog.Warn("failed to open journal, run not persisted", "err", err)
			return
		}
		defer j.Close()
		if err := j.SaveRun(ctx, report); err != nil {
			slog.Warn("failed to persist run", "err", err, "run_id", report.RunID)
			return
		}
		slog.Info("run persisted", "run_id", report.RunID, "dsn", cfg.Storage.DSN)
	}
}
