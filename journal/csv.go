package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/sim"
)

// CSVJournal writes fills and equity samples to two CSV files. The run
// summary is carried in each row's run_id column rather than a third
// file.
type CSVJournal struct {
	fills  *csv.Writer
	equity *csv.Writer
	ff, ef *os.File
}

func NewCSV(fillsPath, equityPath string) (*CSVJournal, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		ff.Close()
		return nil, err
	}

	fw := csv.NewWriter(ff)
	ew := csv.NewWriter(ef)

	if err := fw.Write([]string{"fill_id", "run_id", "time", "instrument", "side", "qty", "price", "fee"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"run_id", "time", "equity"}); err != nil {
		return nil, err
	}
	fw.Flush()
	if err := fw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{fills: fw, equity: ew, ff: ff, ef: ef}, nil
}

// RecordRun is a no-op for CSV output; the summary lives in the report.
func (j *CSVJournal) RecordRun(RunRecord) error { return nil }

func (j *CSVJournal) RecordFill(runID string, f sim.Fill) error {
	err := j.fills.Write([]string{
		f.ID,
		runID,
		f.Time.Format(time.RFC3339),
		f.Instrument,
		f.Side.String(),
		strconv.FormatInt(f.Qty, 10),
		fmtFloat(f.Price),
		fmtFloat(f.Fee),
	})
	if err != nil {
		return err
	}
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSVJournal) RecordEquity(runID string, s portfolio.EquitySample) error {
	err := j.equity.Write([]string{
		runID,
		s.Time.Format(time.RFC3339),
		fmtFloat(s.Equity),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}
	if err := j.ff.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
