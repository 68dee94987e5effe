package strategies

import (
	"fmt"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/sim"
)

// SMACrossConfig parameterizes the dual moving-average strategy.
type SMACrossConfig struct {
	Instrument string
	Short      int   // short window, bars
	Long       int   // long window, bars
	Unit       int64 // shares/contracts per entry
}

// Validate fails fast on unusable parameters.
func (c SMACrossConfig) Validate() error {
	if c.Instrument == "" {
		return fmt.Errorf("sma-cross: instrument is required")
	}
	if c.Short <= 0 {
		return fmt.Errorf("sma-cross: short window must be positive, got %d", c.Short)
	}
	if c.Long <= 0 {
		return fmt.Errorf("sma-cross: long window must be positive, got %d", c.Long)
	}
	if c.Short >= c.Long {
		return fmt.Errorf("sma-cross: short window %d must be below long window %d", c.Short, c.Long)
	}
	if c.Unit <= 0 {
		return fmt.Errorf("sma-cross: unit size must be positive, got %d", c.Unit)
	}
	return nil
}

// SMACross is the dual moving-average crossover reference strategy.
//
// It keeps a short and a long rolling mean of the closing price,
// precomputed once at construction over the instrument's full history
// and held in strategy-private state; the input series is never
// touched. When the short mean is above the long mean and no long
// position is held it buys a fixed unit; when the short mean is at or
// below the long mean and a long position is held it sells the entire
// position. It never sells short.
type SMACross struct {
	cfg SMACrossConfig

	shortMA map[int64]float64 // UnixNano -> rolling mean
	longMA  map[int64]float64
}

// NewSMACross validates the config and precomputes both rolling means
// over history.
func NewSMACross(cfg SMACrossConfig, history *market.Series) (*SMACross, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if history == nil || history.Len() == 0 {
		return nil, fmt.Errorf("sma-cross: empty history for %s", cfg.Instrument)
	}

	bars := history.Bars()
	short, err := indicators.RollingMean(bars, cfg.Short)
	if err != nil {
		return nil, err
	}
	long, err := indicators.RollingMean(bars, cfg.Long)
	if err != nil {
		return nil, err
	}

	s := &SMACross{
		cfg:     cfg,
		shortMA: make(map[int64]float64, len(bars)),
		longMA:  make(map[int64]float64, len(bars)),
	}
	for i, ob := range bars {
		key := ob.Time.UnixNano()
		s.shortMA[key] = short[i]
		s.longMA[key] = long[i]
	}
	return s, nil
}

func (s *SMACross) Name() string { return "sma-cross" }

// OnBar trades on the precomputed means. Bars outside the native
// history (forward-filled timestamps from other instruments' axes)
// carry no new close and are ignored.
func (s *SMACross) OnBar(ctx *Context) error {
	if ctx.Instrument != s.cfg.Instrument {
		return nil
	}

	key := ctx.Time.UnixNano()
	short, ok := s.shortMA[key]
	if !ok {
		return nil
	}
	long := s.longMA[key]

	pos := ctx.Positions.Position(s.cfg.Instrument)

	switch {
	case short > long && pos <= 0:
		return ctx.Submit(sim.Order{
			Time:       ctx.Time,
			Instrument: s.cfg.Instrument,
			Side:       sim.Buy,
			Qty:        s.cfg.Unit,
		})
	case short <= long && pos > 0:
		return ctx.Submit(sim.Order{
			Time:       ctx.Time,
			Instrument: s.cfg.Instrument,
			Side:       sim.Sell,
			Qty:        pos,
		})
	}
	return nil
}
