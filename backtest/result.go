package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/backtester/metrics"
)

// Result is a lightweight summary of a finished run.
type Result struct {
	RunID string

	Start time.Time
	End   time.Time

	FinalEquity float64
	FinalCash   float64
	Fills       int
	Samples     int
}

// PrintReport writes a human-readable run report, optionally including
// performance and trade statistics.
func PrintReport(w io.Writer, r Result, perf *metrics.Performance, trades *metrics.TradeStats) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Samples:       %d\n", r.Samples)
	fmt.Fprintf(w, "Fills:         %d\n", r.Fills)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Portfolio")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Final Equity:  %.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "Final Cash:    %.2f\n", r.FinalCash)

	if perf != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Performance")
		fmt.Fprintln(w, "--------------------------------------------------")
		fmt.Fprintf(w, "Total Return:  %.2f%%\n", perf.TotalReturn*100)
		fmt.Fprintf(w, "Annual Return: %.2f%%\n", perf.AnnualReturn*100)
		fmt.Fprintf(w, "Annual Vol:    %.2f%%\n", perf.AnnualVol*100)
		fmt.Fprintf(w, "Sharpe:        %.2f\n", perf.Sharpe)
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", perf.MaxDrawdown*100)
	}

	if trades != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trade Statistics")
		fmt.Fprintln(w, "--------------------------------------------------")
		fmt.Fprintf(w, "Trades:        %d\n", trades.NumTrades)
		fmt.Fprintf(w, "Win Rate:      %.2f%%\n", trades.WinRate*100)
		fmt.Fprintf(w, "Profit Factor: %.2f\n", trades.ProfitFactor)
		fmt.Fprintf(w, "Avg Win:       %.2f\n", trades.AvgWin)
		fmt.Fprintf(w, "Avg Loss:      %.2f\n", trades.AvgLoss)
		fmt.Fprintf(w, "Max Win:       %.2f\n", trades.MaxWin)
		fmt.Fprintf(w, "Max Loss:      %.2f\n", trades.MaxLoss)
	}
}
