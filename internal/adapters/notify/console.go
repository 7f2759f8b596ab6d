package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

// Console writes alerts and backtest reports to a terminal. Implements
// ports.Notifier; used as the fallback when Campfire is not configured.
type Console struct {
	out io.Writer
}

// NewConsole writes to stdout.
func NewConsole() *Console { return &Console{out: os.Stdout} }

// NewConsoleWriter writes to w, for tests.
func NewConsoleWriter(w io.Writer) *Console { return &Console{out: w} }

// SendMessage prints the alert with a timestamp prefix.
func (c *Console) SendMessage(_ context.Context, text string) error {
	fmt.Fprintf(c.out, "[%s] %s\n", time.Now().Format("15:04:05"), text)
	return nil
}

// PrintBacktest renders the per-day results table and the run summary.
func (c *Console) PrintBacktest(report domain.BacktestReport) {
	fmt.Fprintf(c.out, "\nBacktest %s — last %d trading days (%s)\n\n",
		report.Symbol, report.Summary.TotalDays, report.Timezone)

	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Outcome", "Side", "Entry", "Exit", "Reason", "Points", "P&L $")

	for _, r := range report.Results {
		if r.Skipped {
			table.Append(r.Date, "skip", "", "", "", string(r.SkipReason), "", "")
			continue
		}
		if r.Trade == nil {
			table.Append(r.Date, "no trade", "", "", "", "", "", "")
			continue
		}
		t := r.Trade
		table.Append(
			r.Date,
			"trade",
			string(t.Side),
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			string(t.ExitReason),
			fmt.Sprintf("%+.2f", t.Points),
			fmt.Sprintf("%+.2f", t.Dollars),
		)
	}
	table.Render()

	c.printSummary(report.Summary)
}

func (c *Console) printSummary(s domain.Summary) {
	pfStr := "N/A"
	if s.ProfitFactor != nil {
		pfStr = fmt.Sprintf("%.2f", *s.ProfitFactor)
	}

	fmt.Fprintf(c.out, "\n================ ORB Backtest Summary ================\n")
	fmt.Fprintf(c.out, "Total days:      %d\n", s.TotalDays)
	fmt.Fprintf(c.out, "Traded days:     %d\n", s.TradedDays)
	fmt.Fprintf(c.out, "Skipped days:    %d\n\n", s.SkippedDays)
	fmt.Fprintf(c.out, "Wins / Losses / BE: %d / %d / %d\n", s.Wins, s.Losses, s.Breakevens)
	fmt.Fprintf(c.out, "Win rate:           %.1f%% (excl. breakevens)\n\n", s.WinRatePct)
	fmt.Fprintf(c.out, "Avg win:         %.2f pts  ($%.2f)\n", s.AvgWinPoints, s.AvgWinDollars)
	fmt.Fprintf(c.out, "Avg loss:        %.2f pts  ($%.2f)\n", s.AvgLossPoints, s.AvgLossDollars)
	fmt.Fprintf(c.out, "Profit factor:   %s\n\n", pfStr)
	fmt.Fprintf(c.out, "Total P&L:       %.2f pts  ($%.2f)\n", s.TotalPoints, s.TotalDollars)
	fmt.Fprintf(c.out, "Largest win:     %.2f pts  ($%.2f)\n", s.LargestWinPoints, s.LargestWinDollars)
	fmt.Fprintf(c.out, "Largest loss:    %.2f pts  ($%.2f)\n\n", s.LargestLossPoints, s.LargestLossDollars)

	fmt.Fprintln(c.out, "Skip reasons:")
	if len(s.SkipReasons) == 0 {
		fmt.Fprintln(c.out, "  (none)")
	} else {
		type rc struct {
			reason domain.SkipReason
			count  int
		}
		reasons := make([]rc, 0, len(s.SkipReasons))
		for r, n := range s.SkipReasons {
			reasons = append(reasons, rc{r, n})
		}
		sort.Slice(reasons, func(i, j int) bool {
			if reasons[i].count != reasons[j].count {
				return reasons[i].count > reasons[j].count
			}
			return reasons[i].reason < reasons[j].reason
		})
		for _, r := range reasons {
			fmt.Fprintf(c.out, "  - %s: %d\n", r.reason, r.count)
		}
	}
	fmt.Fprintln(c.out, "======================================================")
}
