package journal

import (
	"time"

	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/sim"
)

// RunRecord summarizes one backtest run for persistence.
type RunRecord struct {
	RunID        string
	Created      time.Time
	Strategy     string
	Instruments  string // comma-joined
	Start        time.Time
	End          time.Time
	StartingCash float64
	FinalEquity  float64
}

// Journal persists run summaries, fills and equity curves.
type Journal interface {
	RecordRun(RunRecord) error
	RecordFill(runID string, f sim.Fill) error
	RecordEquity(runID string, s portfolio.EquitySample) error
	Close() error
}

// RecordAll writes a complete run: summary, every fill, every equity
// sample. The first error stops the write.
func RecordAll(j Journal, rec RunRecord, fills []sim.Fill, equity []portfolio.EquitySample) error {
	if err := j.RecordRun(rec); err != nil {
		return err
	}
	for _, f := range fills {
		if err := j.RecordFill(rec.RunID, f); err != nil {
			return err
		}
	}
	for _, s := range equity {
		if err := j.RecordEquity(rec.RunID, s); err != nil {
			return err
		}
	}
	return nil
}
