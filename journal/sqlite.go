package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/sim"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, strategy, instruments, start, end, starting_cash, final_equity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Instruments,
		r.Start, r.End, r.StartingCash, r.FinalEquity,
	)
	return err
}

func (j *SQLiteJournal) RecordFill(runID string, f sim.Fill) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, run_id, time, instrument, side, qty, price, fee)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, runID, f.Time, f.Instrument, f.Side.String(), f.Qty, f.Price, f.Fee,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(runID string, s portfolio.EquitySample) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`,
		runID, s.Time, s.Equity,
	)
	return err
}

// ListFills returns a run's fills in time order.
func (j *SQLiteJournal) ListFills(runID string) ([]sim.Fill, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, time, instrument, side, qty, price, fee
		FROM fills WHERE run_id = ? ORDER BY time, fill_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []sim.Fill
	for rows.Next() {
		var f sim.Fill
		var side string
		var ts time.Time
		if err := rows.Scan(&f.ID, &ts, &f.Instrument, &side, &f.Qty, &f.Price, &f.Fee); err != nil {
			return nil, err
		}
		f.Time = ts
		f.Side, _ = sim.SideFromString(side)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// ListEquity returns a run's equity curve in time order.
func (j *SQLiteJournal) ListEquity(runID string) ([]portfolio.EquitySample, error) {
	rows, err := j.db.Query(`
		SELECT time, equity FROM equity WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.EquitySample
	for rows.Next() {
		var s portfolio.EquitySample
		if err := rows.Scan(&s.Time, &s.Equity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
