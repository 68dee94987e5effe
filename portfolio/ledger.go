package portfolio

import (
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/sim"
)

// EquitySample is one mark-to-market observation of total portfolio
// value (cash plus positions at last-known prices).
type EquitySample struct {
	Time   time.Time
	Equity float64
}

// Ledger owns cash and positions for one backtest run.
//
// ApplyFill is the only mutator of cash/position state; the engine
// guarantees each fill is applied exactly once. Cash may go negative —
// there are no margin checks.
type Ledger struct {
	cash      float64
	positions map[string]int64

	equity []EquitySample
	fills  []sim.Fill
}

// NewLedger returns a ledger holding only startingCash.
func NewLedger(startingCash float64) *Ledger {
	return &Ledger{
		cash:      startingCash,
		positions: make(map[string]int64),
	}
}

// ApplyFill updates position and cash for one fill and appends it to
// the fill log. Buys add to the position and spend cash; sells do the
// opposite. The fee is always a cash debit.
func (l *Ledger) ApplyFill(f sim.Fill) {
	qty := f.SignedQty()
	l.positions[f.Instrument] += qty
	l.cash -= f.Price*float64(qty) + f.Fee
	l.fills = append(l.fills, f)
}

// MarkToMarket appends one equity sample at ts using the given price
// snapshot. Instruments without a price contribute zero; that only
// happens for instruments never priced so far in the run. Sample
// timestamps must strictly increase.
func (l *Ledger) MarkToMarket(ts time.Time, prices map[string]float64) error {
	if n := len(l.equity); n > 0 && !l.equity[n-1].Time.Before(ts) {
		return fmt.Errorf("portfolio: equity sample at %s not after previous sample at %s",
			ts.Format(time.RFC3339), l.equity[n-1].Time.Format(time.RFC3339))
	}

	eq := l.cash
	for instr, qty := range l.positions {
		eq += float64(qty) * prices[instr]
	}
	l.equity = append(l.equity, EquitySample{Time: ts, Equity: eq})
	return nil
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Position returns the signed quantity held for an instrument; zero
// means flat.
func (l *Ledger) Position(instrument string) int64 {
	return l.positions[instrument]
}

// Positions returns a copy of all non-flat positions.
func (l *Ledger) Positions() map[string]int64 {
	cp := make(map[string]int64, len(l.positions))
	for instr, qty := range l.positions {
		if qty != 0 {
			cp[instr] = qty
		}
	}
	return cp
}

// EquitySeries returns a copy of the recorded equity samples in
// timestamp order.
func (l *Ledger) EquitySeries() []EquitySample {
	cp := make([]EquitySample, len(l.equity))
	copy(cp, l.equity)
	return cp
}

// Fills returns a copy of the fill log in application order.
func (l *Ledger) Fills() []sim.Fill {
	cp := make([]sim.Fill, len(l.fills))
	copy(cp, l.fills)
	return cp
}
