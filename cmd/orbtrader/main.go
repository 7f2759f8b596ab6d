package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/orbtrader/config"
	"github.com/alejandrodnm/orbtrader/internal/adapters/notify"
	"github.com/alejandrodnm/orbtrader/internal/adapters/schwab"
	"github.com/alejandrodnm/orbtrader/internal/adapters/storage"
	"github.com/alejandrodnm/orbtrader/internal/orb"
	"github.com/alejandrodnm/orbtrader/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	backtest := flag.Bool("backtest", false, "run the historical backtest instead of the live session")
	days := flag.Int("days", 30, "number of most recent trading days to backtest")
	out := flag.String("out", "logs/backtest_results.json", "backtest JSON output path")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	metricsAddr := flag.String("metrics", ":9090", "metrics listen address for live mode, empty disables")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("orbtrader starting",
		"config", *configPath,
		"symbol", cfg.Trading.Symbol,
		"backtest", *backtest,
	)

	client := schwab.NewClient(cfg.API.BaseURL, cfg.API.Token)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *backtest {
		runBacktest(ctx, cfg, client, *days, *out)
		return
	}

	runLive(ctx, cfg, client, *metricsAddr)
}

func runLive(ctx context.Context, cfg *config.Config, client *schwab.Client, metricsAddr string) {
	var journal ports.Journal
	if cfg.Storage.DSN != "" {
		j, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open trade journal", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer j.Close()
		journal = j
	}

	var notifier ports.Notifier = notify.NewConsole()
	if campfire := notify.NewCampfire(cfg.Notify.CampfireBaseURL, cfg.Notify.CampfireRoomID, cfg.Notify.CampfireBotKey); campfire.Enabled() {
		slog.Info("alerts routed to Campfire", "room", cfg.Notify.CampfireRoomID)
		notifier = campfire
	}

	if metricsAddr != "" {
		startMetricsServer(metricsAddr)
	}

	broker, err := orb.NewPaperBroker(orb.BrokerConfig{
		Symbol:     cfg.Trading.Symbol,
		TickSize:   cfg.Trading.TickSize,
		PointValue: cfg.Trading.PointValue,
	}, notifier, journal)
	if err != nil {
		slog.Error("failed to create broker", "err", err)
		os.Exit(1)
	}

	session, err := orb.NewSession(cfg, client, broker, notifier)
	if err != nil {
		slog.Error("failed to create session", "err", err)
		os.Exit(1)
	}

	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("session exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("orbtrader stopped cleanly")
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("metrics server stopped", "err", err)
		}
	}()
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
