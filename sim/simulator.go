package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/pkg/id"
)

// ErrMissingPrice is returned by Process when an instrument with a
// pending order has no reference price in the snapshot.
var ErrMissingPrice = errors.New("sim: missing reference price")

// CostModel describes execution costs.
//
// Commission is a raw fraction of traded notional (0.0005 = 5 bps).
// Slippage is an absolute price amount applied against the trader:
// added to buy fills, subtracted from sell fills.
type CostModel struct {
	Commission float64
	Slippage   float64
}

// CostModelBPS builds a CostModel from a commission in basis points.
func CostModelBPS(commissionBPS, slippage float64) CostModel {
	return CostModel{Commission: commissionBPS / 10_000, Slippage: slippage}
}

// Validate rejects negative cost parameters.
func (m CostModel) Validate() error {
	if m.Commission < 0 {
		return fmt.Errorf("sim: commission must be non-negative, got %v", m.Commission)
	}
	if m.Slippage < 0 {
		return fmt.Errorf("sim: slippage must be non-negative, got %v", m.Slippage)
	}
	return nil
}

// Simulator converts pending orders into fills at a reference price.
// It holds orders submitted since the last Process call; Process drains
// the queue, producing exactly one fill per order.
type Simulator struct {
	costs   CostModel
	pending []Order
}

// NewSimulator returns a simulator with the given cost model.
func NewSimulator(costs CostModel) (*Simulator, error) {
	if err := costs.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{costs: costs}, nil
}

// Submit queues an order for the next Process call.
func (s *Simulator) Submit(o Order) error {
	if o.Instrument == "" {
		return fmt.Errorf("sim: order has no instrument")
	}
	if o.Side != Buy && o.Side != Sell {
		return fmt.Errorf("sim: order side must be buy or sell")
	}
	if o.Qty <= 0 {
		return fmt.Errorf("sim: order quantity must be positive, got %d", o.Qty)
	}
	s.pending = append(s.pending, o)
	return nil
}

// Pending reports the number of queued orders.
func (s *Simulator) Pending() int { return len(s.pending) }

// Process drains the pending queue against the given per-instrument
// reference prices. Every queued order yields exactly one fill:
//
//	fill price = reference ± slippage (plus for buys, minus for sells)
//	fee        = |fill price × qty| × commission
//
// If any pending order's instrument is absent from prices, Process
// returns an ErrMissingPrice-wrapped error and fills nothing; the
// caller is expected to abort the run. An empty queue returns no fills
// and no error.
func (s *Simulator) Process(ts time.Time, prices map[string]float64) ([]Fill, error) {
	if len(s.pending) == 0 {
		return nil, nil
	}

	for _, o := range s.pending {
		if _, ok := prices[o.Instrument]; !ok {
			return nil, fmt.Errorf("%w for %s at %s", ErrMissingPrice, o.Instrument, ts.Format(time.RFC3339))
		}
	}

	fills := make([]Fill, 0, len(s.pending))
	for _, o := range s.pending {
		px := prices[o.Instrument] + float64(o.Side)*s.costs.Slippage
		notional := px * float64(o.Qty)
		if notional < 0 {
			notional = -notional
		}
		fills = append(fills, Fill{
			ID:         id.New(),
			Time:       ts,
			Instrument: o.Instrument,
			Side:       o.Side,
			Qty:        o.Qty,
			Price:      px,
			Fee:        notional * s.costs.Commission,
		})
	}
	s.pending = s.pending[:0]
	return fills, nil
}
