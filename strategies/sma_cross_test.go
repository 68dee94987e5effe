package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/sim"
)

func ts(min int) time.Time {
	return time.Date(2024, 1, 2, 9, 30+min, 0, 0, time.UTC)
}

func series(t *testing.T, closes ...float64) *market.Series {
	t.Helper()
	bars := make([]market.ObservedBar, len(closes))
	for i, c := range closes {
		bars[i] = market.ObservedBar{
			Time: ts(i),
			Bar:  market.Bar{Open: c, High: c, Low: c, Close: c, Volume: 1},
		}
	}
	s, err := market.NewSeries(bars)
	require.NoError(t, err)
	return s
}

type fixedPositions map[string]int64

func (p fixedPositions) Position(instr string) int64 { return p[instr] }

func barCtx(s *market.Series, i int, instr string, pos fixedPositions, sink *[]sim.Order) *Context {
	bars := s.Bars()
	return &Context{
		Time:       bars[i].Time,
		Instrument: instr,
		Bar:        bars[i].Bar,
		Positions:  pos,
		Submit: func(o sim.Order) error {
			*sink = append(*sink, o)
			return nil
		},
	}
}

func TestSMACrossConfigValidate(t *testing.T) {
	valid := SMACrossConfig{Instrument: "A", Short: 2, Long: 4, Unit: 10}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*SMACrossConfig)
	}{
		{"missing instrument", func(c *SMACrossConfig) { c.Instrument = "" }},
		{"zero short", func(c *SMACrossConfig) { c.Short = 0 }},
		{"negative long", func(c *SMACrossConfig) { c.Long = -1 }},
		{"short not below long", func(c *SMACrossConfig) { c.Short = 4 }},
		{"zero unit", func(c *SMACrossConfig) { c.Unit = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewSMACross(t *testing.T) {
	t.Run("requires history", func(t *testing.T) {
		_, err := NewSMACross(SMACrossConfig{Instrument: "A", Short: 2, Long: 4, Unit: 10}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects bad config before touching history", func(t *testing.T) {
		_, err := NewSMACross(SMACrossConfig{Instrument: "A", Short: 0, Long: 4, Unit: 10}, series(t, 1, 2, 3))
		assert.Error(t, err)
	})
}

func TestSMACrossSignals(t *testing.T) {
	// Rising closes: short mean exceeds long mean from the second bar on.
	s := series(t, 100, 110, 120, 130)
	strat, err := NewSMACross(SMACrossConfig{Instrument: "A", Short: 1, Long: 2, Unit: 10}, s)
	require.NoError(t, err)

	t.Run("buys when short above long and flat", func(t *testing.T) {
		var orders []sim.Order
		err := strat.OnBar(barCtx(s, 1, "A", fixedPositions{}, &orders))
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, sim.Buy, orders[0].Side)
		assert.Equal(t, int64(10), orders[0].Qty)
		assert.Equal(t, "A", orders[0].Instrument)
	})

	t.Run("holds when short above long and already long", func(t *testing.T) {
		var orders []sim.Order
		err := strat.OnBar(barCtx(s, 2, "A", fixedPositions{"A": 10}, &orders))
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("no order on the flat first bar", func(t *testing.T) {
		var orders []sim.Order
		err := strat.OnBar(barCtx(s, 0, "A", fixedPositions{}, &orders))
		require.NoError(t, err)
		assert.Empty(t, orders, "short equals long on bar one")
	})

	t.Run("ignores other instruments", func(t *testing.T) {
		var orders []sim.Order
		err := strat.OnBar(barCtx(s, 1, "B", fixedPositions{}, &orders))
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestSMACrossSellsEntirePosition(t *testing.T) {
	// Falling closes: short mean at or below long mean from bar two on.
	s := series(t, 130, 120, 110)
	strat, err := NewSMACross(SMACrossConfig{Instrument: "A", Short: 1, Long: 2, Unit: 10}, s)
	require.NoError(t, err)

	var orders []sim.Order
	err = strat.OnBar(barCtx(s, 1, "A", fixedPositions{"A": 30}, &orders))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, sim.Sell, orders[0].Side)
	assert.Equal(t, int64(30), orders[0].Qty, "sell closes the whole position")
}

func TestSMACrossNeverShorts(t *testing.T) {
	s := series(t, 130, 120, 110)
	strat, err := NewSMACross(SMACrossConfig{Instrument: "A", Short: 1, Long: 2, Unit: 10}, s)
	require.NoError(t, err)

	var orders []sim.Order
	err = strat.OnBar(barCtx(s, 1, "A", fixedPositions{}, &orders))
	require.NoError(t, err)
	assert.Empty(t, orders, "flat plus bearish signal stays flat")
}

func TestByName(t *testing.T) {
	t.Run("noop", func(t *testing.T) {
		strat, err := ByName("noop", "", nil, 0, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, "noop", strat.Name())
		assert.NoError(t, strat.OnBar(nil))
	})

	t.Run("sma-cross", func(t *testing.T) {
		strat, err := ByName("SMA-Cross", "A", series(t, 1, 2, 3), 1, 2, 10)
		require.NoError(t, err)
		assert.Equal(t, "sma-cross", strat.Name())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ByName("momentum", "A", nil, 1, 2, 10)
		assert.Error(t, err)
	})
}
