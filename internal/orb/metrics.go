package orb

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the live loop, registered in init and served by
// the /metrics endpoint started in main.
var (
	quoteTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orb_quote_ticks_total",
		Help: "Quotes accepted into the live loop",
	})

	staleQuotesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orb_stale_quotes_dropped_total",
		Help: "Quotes discarded for exceeding the staleness threshold",
	})

	tradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orb_trades_total",
		Help: "Completed simulated trades by result",
	}, []string{"result"}) // win | loss | breakeven

	exitReasons = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orb_exit_reasons_total",
		Help: "Exits split by reason and side",
	}, []string{"reason", "side"})

	unrealizedPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orb_unrealized_pnl_points",
		Help: "Open position unrealized P&L in points",
	})
)

func init() {
	prometheus.MustRegister(quoteTicks, staleQuotesDropped, tradesTotal, exitReasons, unrealizedPnL)
}

func tradeResult(points float64) string {
	switch {
	case points > 0:
		return "win"
	case points < 0:
		return "loss"
	default:
		return "breakeven"
	}
}
