package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

const schema = `
-- One row per backtest run; summary and settings as JSON snapshots.
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    generated_at DATETIME NOT NULL,
    symbol       TEXT     NOT NULL,
    days         INTEGER  NOT NULL,
    timezone     TEXT     NOT NULL,
    point_value  REAL     NOT NULL,
    settings     TEXT     NOT NULL,
    summary      TEXT     NOT NULL
);

-- One row per simulated day of a run.
CREATE TABLE IF NOT EXISTS day_results (
    run_id      TEXT NOT NULL REFERENCES runs(id),
    date        TEXT NOT NULL,
    skipped     INTEGER NOT NULL DEFAULT 0,
    skip_reason TEXT,
    side        TEXT,
    entry_price REAL,
    exit_price  REAL,
    exit_reason TEXT,
    points      REAL,
    dollars     REAL,
    PRIMARY KEY (run_id, date)
);

-- Completed live simulated trades.
CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    symbol      TEXT NOT NULL,
    side        TEXT NOT NULL,
    qty         INTEGER NOT NULL,
    entry_time  DATETIME NOT NULL,
    entry_price REAL NOT NULL,
    exit_time   DATETIME NOT NULL,
    exit_price  REAL NOT NULL,
    exit_reason TEXT NOT NULL,
    points      REAL NOT NULL,
    dollars     REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_at      ON runs(generated_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_entry ON trades(entry_time DESC);
`

// SQLiteJournal implements ports.Journal on SQLite (pure Go, no CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the database at path and applies
// the schema.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// SaveRun persists a backtest report: the run row plus one row per day,
// in one transaction.
func (s *SQLiteJournal) SaveRun(ctx context.Context, report domain.BacktestReport) error {
	settings, err := json.Marshal(report.Settings)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: marshal settings: %w", err)
	}
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: marshal summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, generated_at, symbol, days, timezone, point_value, settings, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.GeneratedAt.UTC(), report.Symbol, report.Days,
		report.Timezone, report.PointValue, string(settings), string(summary),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	for _, r := range report.Results {
		var side, exitReason *string
		var entry, exit, points, dollars *float64
		if r.Trade != nil {
			sideS := string(r.Trade.Side)
			reasonS := string(r.Trade.ExitReason)
			side, exitReason = &sideS, &reasonS
			entry, exit = &r.Trade.EntryPrice, &r.Trade.ExitPrice
			points, dollars = &r.Trade.Points, &r.Trade.Dollars
		}
		var skipReason *string
		if r.SkipReason != "" {
			sr := string(r.SkipReason)
			skipReason = &sr
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO day_results (run_id, date, skipped, skip_reason, side, entry_price, exit_price, exit_reason, points, dollars)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, r.Date, r.Skipped, skipReason, side, entry, exit, exitReason, points, dollars,
		)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: insert day %s: %w", r.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// SaveTrade persists one completed live trade.
func (s *SQLiteJournal) SaveTrade(ctx context.Context, t domain.TradeOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, symbol, side, qty, entry_time, entry_price, exit_time, exit_price, exit_reason, points, dollars)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, string(t.Side), t.Qty, t.EntryTime.UTC(), t.EntryPrice,
		t.ExitTime.UTC(), t.ExitPrice, string(t.ExitReason), t.Points, t.Dollars,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: %w", err)
	}
	return nil
}

// GetTrades returns trades entered in [from, to), newest first.
func (s *SQLiteJournal) GetTrades(ctx context.Context, from, to time.Time) ([]domain.TradeOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, side, qty, entry_time, entry_price, exit_time, exit_price, exit_reason, points, dollars
		FROM trades
		WHERE entry_time >= ? AND entry_time < ?
		ORDER BY entry_time DESC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeOutcome
	for rows.Next() {
		var t domain.TradeOutcome
		var side, reason string
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Qty, &t.EntryTime, &t.EntryPrice,
			&t.ExitTime, &t.ExitPrice, &reason, &t.Points, &t.Dollars); err != nil {
			return nil, fmt.Errorf("storage.GetTrades: scan: %w", err)
		}
		t.Side = domain.Side(side)
		t.ExitReason = domain.ExitReason(reason)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database cleanly.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
