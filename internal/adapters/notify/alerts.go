package notify

// alerts.go keeps all human-facing message strings in one place so
// trading logic stays clean.

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

func sideEmoji(side domain.Side) string {
	if side == domain.SideLong {
		return "🟢"
	}
	return "🔴"
}

func fmtPoints(x float64) string {
	sign := ""
	if x > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f pts", sign, x)
}

func fmtMoney(x float64) string {
	sign := ""
	if x > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s$%.2f", sign, x)
}

// FormatRangeSet announces a completed opening range and the OCO levels.
func FormatRangeSet(high, low, buyStop, sellStop float64, rangeEnd time.Time) string {
	header := "🎯 ORB Range Set"
	if !rangeEnd.IsZero() {
		header += fmt.Sprintf(" (%s ET)", rangeEnd.Format("3:04 PM"))
	}
	return fmt.Sprintf("%s\nHigh: %.2f | Low: %.2f\nRange: %.2f pts\nOCO orders placed: Buy stop @ %.2f, Sell stop @ %.2f",
		header, high, low, high-low, buyStop, sellStop)
}

// FormatEntry announces a fill with its bracket.
func FormatEntry(side domain.Side, entry, stop, target float64) string {
	var targetPts, stopPts float64
	if side == domain.SideLong {
		targetPts = target - entry
		stopPts = stop - entry
	} else {
		targetPts = entry - target
		stopPts = entry - stop
	}
	return fmt.Sprintf("%s %s Entry @ %.2f\nTarget: %.2f (%s)\nStop: %.2f (%s)",
		sideEmoji(side), side, entry, target, fmtPoints(targetPts), stop, fmtPoints(stopPts))
}

// FormatSkipDay announces a stand-down decision.
func FormatSkipDay(reason domain.SkipReason, high, low float64) string {
	return fmt.Sprintf("⏸️ Standing down today\nReason: %s\nRange captured: %.2f - %.2f (%.2f pts)",
		reason, high, low, high-low)
}

// FormatBreakeven announces the stop moving to entry.
func FormatBreakeven(side domain.Side, stop float64) string {
	return fmt.Sprintf("➖ Stop moved to breakeven @ %.2f (%s)", stop, side)
}

// FormatExit announces a closed trade with P&L and duration.
func FormatExit(t domain.TradeOutcome) string {
	var headline string
	switch t.ExitReason {
	case domain.ExitTarget:
		headline = "✅ Target Hit!"
	case domain.ExitBreakevenStop:
		headline = "➖ Breakeven Stop"
	case domain.ExitStop, domain.ExitStopAndTarget:
		headline = "❌ Stopped Out"
	case domain.ExitEOD:
		headline = "⏰ EOD Exit"
	default:
		headline = "📤 Exit"
	}

	dur := t.ExitTime.Sub(t.EntryTime)
	mins := int(dur.Round(time.Minute) / time.Minute)
	durStr := fmt.Sprintf("%d min", mins)
	if mins >= 120 {
		durStr = fmt.Sprintf("%.1f hr", dur.Hours())
	}

	return fmt.Sprintf("%s %s (%s)\nEntry: %.2f → Exit: %.2f\nDuration: %s",
		headline, fmtPoints(t.Points), fmtMoney(t.Dollars), t.EntryPrice, t.ExitPrice, durStr)
}
