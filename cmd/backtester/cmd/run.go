package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest",
	Long: `Run replays CSV bar data through a strategy and prints a result report.

Configuration comes from a YAML/JSON file (--config) or from flags.

Example:
  backtester run --bars AAPL=data/aapl.csv --strategy sma-cross \
      --instrument AAPL --short 10 --long 30 --unit 10`,
	RunE: runRun,
}

var (
	runConfigPath string
	runBars       []string
	runCash       float64
	runCommission float64
	runSlippage   float64
	runStrategy   string
	runInstrument string
	runShort      int
	runLong       int
	runUnit       int64
	runRiskFree   float64
	runPeriods    int
	runJournal    string
	runDBPath     string
	runFillsFile  string
	runEquityFile string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to YAML/JSON run config (flags are ignored)")
	runCmd.Flags().StringArrayVar(&runBars, "bars", nil, "instrument=path CSV bar data (repeatable)")
	runCmd.Flags().Float64Var(&runCash, "cash", 100_000, "starting cash")
	runCmd.Flags().Float64Var(&runCommission, "commission-bps", 5, "commission in basis points of notional")
	runCmd.Flags().Float64Var(&runSlippage, "slippage", 0, "absolute slippage per unit, applied against the trader")
	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "sma-cross", "strategy name (noop, sma-cross)")
	runCmd.Flags().StringVarP(&runInstrument, "instrument", "i", "", "strategy instrument")
	runCmd.Flags().IntVar(&runShort, "short", 10, "sma-cross: short window in bars")
	runCmd.Flags().IntVar(&runLong, "long", 30, "sma-cross: long window in bars")
	runCmd.Flags().Int64VarP(&runUnit, "unit", "u", 10, "sma-cross: units per entry")
	runCmd.Flags().Float64Var(&runRiskFree, "risk-free", 0, "annualized risk-free rate (decimal)")
	runCmd.Flags().IntVar(&runPeriods, "periods", 252, "bars per year for annualization")
	runCmd.Flags().StringVar(&runJournal, "journal", "none", "journal type (none, csv, sqlite)")
	runCmd.Flags().StringVarP(&runDBPath, "db", "d", "./backtest.sqlite", "SQLite journal path")
	runCmd.Flags().StringVar(&runFillsFile, "fills-file", "./fills.csv", "CSV journal fills path")
	runCmd.Flags().StringVar(&runEquityFile, "equity-file", "./equity.csv", "CSV journal equity path")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	series, err := loadSeries(cfg)
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, series)
	if err != nil {
		return err
	}

	if err := eng.Run(context.Background()); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	res, err := eng.Result()
	if err != nil {
		return err
	}

	nav := metrics.Normalize(eng.Ledger().EquitySeries())
	perf := metrics.ComputePerformance(nav, cfg.Metrics.RiskFree, cfg.Metrics.PeriodsPerYear)
	trades := metrics.ComputeTradeStats(eng.Ledger().Fills())

	backtest.PrintReport(os.Stdout, res, &perf, &trades)

	return journalRun(cfg, eng, res)
}

func resolveConfig() (*config.Config, error) {
	if runConfigPath != "" {
		return config.LoadFromFile(runConfigPath)
	}

	cfg := &config.Config{
		Data:      config.DataConfig{Bars: make(map[string]string)},
		Account:   config.AccountConfig{StartingCash: runCash},
		Execution: config.ExecutionConfig{CommissionBPS: runCommission, Slippage: runSlippage},
		Strategy: config.StrategyConfig{
			Name:       runStrategy,
			Instrument: runInstrument,
			Short:      runShort,
			Long:       runLong,
			Unit:       runUnit,
		},
		Metrics: config.MetricsConfig{RiskFree: runRiskFree, PeriodsPerYear: runPeriods},
		Journal: config.JournalConfig{
			Type:       runJournal,
			DBPath:     runDBPath,
			FillsFile:  runFillsFile,
			EquityFile: runEquityFile,
		},
	}

	for _, spec := range runBars {
		instr, path, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("bad --bars %q, want instrument=path", spec)
		}
		cfg.Data.Bars[strings.TrimSpace(instr)] = strings.TrimSpace(path)
	}
	if cfg.Strategy.Instrument == "" && len(cfg.Data.Bars) == 1 {
		for instr := range cfg.Data.Bars {
			cfg.Strategy.Instrument = instr
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func loadSeries(cfg *config.Config) (map[string]*market.Series, error) {
	series := make(map[string]*market.Series, len(cfg.Data.Bars))
	for instr, path := range cfg.Data.Bars {
		s, err := market.LoadCSV(path)
		if err != nil {
			return nil, fmt.Errorf("load %s from %s: %w", instr, path, err)
		}
		series[instr] = s
	}
	return series, nil
}

func buildEngine(cfg *config.Config, series map[string]*market.Series) (*backtest.Engine, error) {
	feed, err := market.NewFeed(series)
	if err != nil {
		return nil, err
	}

	simulator, err := sim.NewSimulator(sim.CostModelBPS(cfg.Execution.CommissionBPS, cfg.Execution.Slippage))
	if err != nil {
		return nil, err
	}

	strats := make(map[string]strategies.Strategy)
	if cfg.Strategy.Name != "noop" {
		strat, err := strategies.ByName(
			cfg.Strategy.Name, cfg.Strategy.Instrument, series[cfg.Strategy.Instrument],
			cfg.Strategy.Short, cfg.Strategy.Long, cfg.Strategy.Unit,
		)
		if err != nil {
			return nil, err
		}
		strats[cfg.Strategy.Instrument] = strat
	}

	return backtest.New(feed, simulator, portfolio.NewLedger(cfg.Account.StartingCash), strats)
}

func journalRun(cfg *config.Config, eng *backtest.Engine, res backtest.Result) error {
	var j journal.Journal
	var err error

	switch cfg.Journal.Type {
	case "", "none":
		return nil
	case "csv":
		j, err = journal.NewCSV(cfg.Journal.FillsFile, cfg.Journal.EquityFile)
	case "sqlite":
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
	}
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	instruments := make([]string, 0, len(cfg.Data.Bars))
	for instr := range cfg.Data.Bars {
		instruments = append(instruments, instr)
	}

	rec := journal.RunRecord{
		RunID:        res.RunID,
		Created:      time.Now().UTC(),
		Strategy:     cfg.Strategy.Name,
		Instruments:  strings.Join(instruments, ","),
		Start:        res.Start,
		End:          res.End,
		StartingCash: cfg.Account.StartingCash,
		FinalEquity:  res.FinalEquity,
	}
	if err := journal.RecordAll(j, rec, eng.Ledger().Fills(), eng.Ledger().EquitySeries()); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
