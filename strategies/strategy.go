package strategies

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/sim"
)

// Strategy is the minimal interface a backtest strategy must implement.
// OnBar is called once per synchronized bar for the strategy's
// instrument. A strategy may submit zero or more orders per bar through
// the context; it must only read data up to and including the current
// bar's close.
type Strategy interface {
	Name() string
	OnBar(ctx *Context) error
}

// PositionReader is read-only access to the ledger's current holdings.
type PositionReader interface {
	Position(instrument string) int64
}

// Context is what a strategy sees for one bar.
type Context struct {
	Time       time.Time
	Instrument string
	Bar        market.Bar

	Positions PositionReader
	Submit    func(sim.Order) error
}

// ByName constructs a strategy by name using the given history and
// parameters. History is the instrument's full native series, used by
// strategies that precompute derived indicators at construction.
func ByName(name, instrument string, history *market.Series, short, long int, unit int64) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return NoopStrategy{}, nil

	case "sma-cross", "smacross":
		return NewSMACross(SMACrossConfig{
			Instrument: instrument,
			Short:      short,
			Long:       long,
			Unit:       unit,
		}, history)

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, sma-cross)", name)
	}
}

// NoopStrategy does nothing. Useful as a baseline: a run with it
// produces a flat equity curve at starting cash.
type NoopStrategy struct{}

func (NoopStrategy) Name() string { return "noop" }

func (NoopStrategy) OnBar(ctx *Context) error { return nil }
