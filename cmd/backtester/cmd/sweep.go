package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep sma-cross window pairs across parallel backtests",
	Long: `Sweep runs one independent backtest per (short, long) window pair and
prints a comparison table. Runs share the loaded bar data read-only;
every run gets its own feed, simulator and ledger.

Example:
  backtester sweep --bars AAPL=data/aapl.csv --shorts 5,10,20 --longs 30,50`,
	RunE: runSweep,
}

var (
	sweepShorts  string
	sweepLongs   string
	sweepWorkers int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringArrayVar(&runBars, "bars", nil, "instrument=path CSV bar data (repeatable)")
	sweepCmd.Flags().StringVarP(&runInstrument, "instrument", "i", "", "strategy instrument")
	sweepCmd.Flags().Float64Var(&runCash, "cash", 100_000, "starting cash")
	sweepCmd.Flags().Float64Var(&runCommission, "commission-bps", 5, "commission in basis points of notional")
	sweepCmd.Flags().Float64Var(&runSlippage, "slippage", 0, "absolute slippage per unit")
	sweepCmd.Flags().Int64VarP(&runUnit, "unit", "u", 10, "units per entry")
	sweepCmd.Flags().StringVar(&sweepShorts, "shorts", "5,10,20", "comma-separated short windows")
	sweepCmd.Flags().StringVar(&sweepLongs, "longs", "30,50", "comma-separated long windows")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", runtime.NumCPU(), "max parallel runs")
}

func runSweep(cmd *cobra.Command, args []string) error {
	shorts, err := parseInts(sweepShorts)
	if err != nil {
		return fmt.Errorf("bad --shorts: %w", err)
	}
	longs, err := parseInts(sweepLongs)
	if err != nil {
		return fmt.Errorf("bad --longs: %w", err)
	}

	base := &config.Config{
		Data:      config.DataConfig{Bars: make(map[string]string)},
		Account:   config.AccountConfig{StartingCash: runCash},
		Execution: config.ExecutionConfig{CommissionBPS: runCommission, Slippage: runSlippage},
		Strategy: config.StrategyConfig{
			Name:       "sma-cross",
			Instrument: runInstrument,
			Unit:       runUnit,
		},
		Metrics: config.MetricsConfig{PeriodsPerYear: 252},
	}
	for _, spec := range runBars {
		instr, path, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("bad --bars %q, want instrument=path", spec)
		}
		base.Data.Bars[strings.TrimSpace(instr)] = strings.TrimSpace(path)
	}
	if base.Strategy.Instrument == "" && len(base.Data.Bars) == 1 {
		for instr := range base.Data.Bars {
			base.Strategy.Instrument = instr
		}
	}

	series, err := loadSeries(base)
	if err != nil {
		return err
	}

	var specs []backtest.RunSpec
	for _, s := range shorts {
		for _, l := range longs {
			if s >= l {
				continue
			}
			cfg := *base
			cfg.Strategy.Short = s
			cfg.Strategy.Long = l
			specs = append(specs, backtest.RunSpec{
				Name: fmt.Sprintf("sma %d/%d", s, l),
				Build: func() (*backtest.Engine, error) {
					return buildEngine(&cfg, series)
				},
			})
		}
	}
	if len(specs) == 0 {
		return fmt.Errorf("no valid (short, long) pairs")
	}

	results := backtest.RunAll(context.Background(), specs, sweepWorkers)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tFINAL EQUITY\tFILLS\tERROR")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t%v\n", r.Name, r.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t\n", r.Name, r.Result.FinalEquity, r.Result.Fills)
	}
	return tw.Flush()
}

func parseInts(csv string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values")
	}
	return out, nil
}
