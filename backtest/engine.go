package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

// State is the engine lifecycle: NotStarted -> Running -> Finished.
// A failed run never reaches Finished and cannot be restarted.
type State int8

const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Engine drives one event-driven backtest run. It owns the simulator
// and ledger for the lifetime of the run and sequences them per event:
//
//  1. when the feed advances to a new timestamp, mark the ledger at the
//     previous timestamp using last-known prices, so equity reflects
//     state before the current bar's signals
//  2. record the event bar's close as the instrument's last-known price
//  3. let the instrument's strategy react (it may submit orders)
//  4. process pending orders against a reference-price snapshot
//  5. apply every resulting fill to the ledger
//
// The reference price for an instrument is its native open at the
// event's timestamp when one exists, else its last-known close. The
// strategy has already seen the same bar's close by step 3, so a fill
// at that bar's open is priced earlier than the information that
// triggered it. This matches the system this engine reproduces and is
// kept deliberately; treat bars as intraday aggregates whose open
// precedes their close.
type Engine struct {
	runID      string
	feed       *market.Feed
	simulator  *sim.Simulator
	ledger     *portfolio.Ledger
	strategies map[string]strategies.Strategy

	state      State
	lastPrices map[string]float64

	start time.Time
	end   time.Time
}

// New wires an engine from its components. The strategy map is keyed by
// instrument; instruments without a strategy are still synchronized and
// marked to market.
func New(feed *market.Feed, simulator *sim.Simulator, ledger *portfolio.Ledger, strats map[string]strategies.Strategy) (*Engine, error) {
	if feed == nil {
		return nil, fmt.Errorf("backtest: feed is required")
	}
	if simulator == nil {
		return nil, fmt.Errorf("backtest: simulator is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("backtest: ledger is required")
	}

	return &Engine{
		runID:      id.New(),
		feed:       feed,
		simulator:  simulator,
		ledger:     ledger,
		strategies: strats,
		state:      NotStarted,
		lastPrices: make(map[string]float64),
	}, nil
}

// RunID identifies this run in journals and reports.
func (e *Engine) RunID() string { return e.runID }

// State returns the engine lifecycle state.
func (e *Engine) State() State { return e.state }

// Ledger exposes the run's ledger for analytics and journaling. Its
// accessors return copies.
func (e *Engine) Ledger() *portfolio.Ledger { return e.ledger }

// Run executes the backtest to completion. Any component error aborts
// the run immediately; a failed run produces no equity series and the
// engine cannot be rerun. ctx is checked between events.
func (e *Engine) Run(ctx context.Context) error {
	if e.state != NotStarted {
		return fmt.Errorf("backtest: engine already %s", e.state)
	}
	e.state = Running

	cur := e.feed.Events()
	var prev time.Time
	havePrev := false

	for cur.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := cur.Event()

		if havePrev && ev.Time.After(prev) {
			if err := e.ledger.MarkToMarket(prev, e.lastPrices); err != nil {
				return err
			}
		}
		if !havePrev {
			e.start = ev.Time
			havePrev = true
		}
		prev = ev.Time

		e.lastPrices[ev.Instrument] = ev.Bar.Close

		if strat, ok := e.strategies[ev.Instrument]; ok {
			bctx := &strategies.Context{
				Time:       ev.Time,
				Instrument: ev.Instrument,
				Bar:        ev.Bar,
				Positions:  e.ledger,
				Submit:     e.simulator.Submit,
			}
			if err := strat.OnBar(bctx); err != nil {
				return fmt.Errorf("backtest: strategy %s at %s: %w", strat.Name(), ev.Time.Format(time.RFC3339), err)
			}
		}

		fills, err := e.simulator.Process(ev.Time, e.referencePrices(ev.Time))
		if err != nil {
			return err
		}
		for _, f := range fills {
			e.ledger.ApplyFill(f)
		}
	}

	if !havePrev {
		return fmt.Errorf("backtest: feed produced no events")
	}

	if err := e.ledger.MarkToMarket(prev, e.lastPrices); err != nil {
		return err
	}
	e.end = prev
	e.state = Finished
	return nil
}

// referencePrices builds the fill-price snapshot for one timestamp:
// native open when the instrument has a bar at ts, else last-known
// close. Instruments with neither are omitted, which turns a pending
// order for them into a missing-price failure.
func (e *Engine) referencePrices(ts time.Time) map[string]float64 {
	prices := make(map[string]float64, len(e.lastPrices))
	for _, instr := range e.feed.Instruments() {
		if bar, native, ok := e.feed.At(instr, ts); ok && native {
			prices[instr] = bar.Open
			continue
		}
		if px, ok := e.lastPrices[instr]; ok {
			prices[instr] = px
		}
	}
	return prices
}

// Result summarizes a finished run.
func (e *Engine) Result() (Result, error) {
	if e.state != Finished {
		return Result{}, fmt.Errorf("backtest: no result, engine is %s", e.state)
	}

	eq := e.ledger.EquitySeries()
	return Result{
		RunID:       e.runID,
		Start:       e.start,
		End:         e.end,
		FinalEquity: eq[len(eq)-1].Equity,
		FinalCash:   e.ledger.Cash(),
		Fills:       len(e.ledger.Fills()),
		Samples:     len(eq),
	}, nil
}
