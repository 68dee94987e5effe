package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func TestCostModel(t *testing.T) {
	t.Run("bps conversion", func(t *testing.T) {
		m := CostModelBPS(5, 0.01)
		assert.Equal(t, 0.0005, m.Commission)
		assert.Equal(t, 0.01, m.Slippage)
	})

	t.Run("negative commission rejected", func(t *testing.T) {
		_, err := NewSimulator(CostModel{Commission: -1})
		assert.Error(t, err)
	})

	t.Run("negative slippage rejected", func(t *testing.T) {
		_, err := NewSimulator(CostModel{Slippage: -0.5})
		assert.Error(t, err)
	})
}

func TestSubmitValidation(t *testing.T) {
	s, err := NewSimulator(CostModel{})
	require.NoError(t, err)

	assert.Error(t, s.Submit(Order{Instrument: "", Side: Buy, Qty: 1}))
	assert.Error(t, s.Submit(Order{Instrument: "A", Side: 0, Qty: 1}))
	assert.Error(t, s.Submit(Order{Instrument: "A", Side: Buy, Qty: 0}))
	assert.Error(t, s.Submit(Order{Instrument: "A", Side: Sell, Qty: -5}))
	assert.Equal(t, 0, s.Pending())

	assert.NoError(t, s.Submit(Order{Instrument: "A", Side: Buy, Qty: 5}))
	assert.Equal(t, 1, s.Pending())
}

func TestProcessEmptyQueue(t *testing.T) {
	s, err := NewSimulator(CostModel{Commission: 0.0005, Slippage: 0.1})
	require.NoError(t, err)

	fills, err := s.Process(t0, map[string]float64{"A": 100})
	assert.NoError(t, err)
	assert.Empty(t, fills)
}

func TestProcessFillsEveryOrderExactlyOnce(t *testing.T) {
	s, err := NewSimulator(CostModel{})
	require.NoError(t, err)

	require.NoError(t, s.Submit(Order{Time: t0, Instrument: "A", Side: Buy, Qty: 10}))
	require.NoError(t, s.Submit(Order{Time: t0, Instrument: "A", Side: Sell, Qty: 4}))

	fills, err := s.Process(t0, map[string]float64{"A": 100})
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, 0, s.Pending(), "queue must be drained")

	// A second step with nothing pending produces nothing.
	fills, err = s.Process(t0.Add(time.Minute), map[string]float64{"A": 101})
	assert.NoError(t, err)
	assert.Empty(t, fills)
}

func TestProcessSlippageAndFees(t *testing.T) {
	s, err := NewSimulator(CostModel{Commission: 0.0005, Slippage: 0.25})
	require.NoError(t, err)

	require.NoError(t, s.Submit(Order{Time: t0, Instrument: "A", Side: Buy, Qty: 10}))
	require.NoError(t, s.Submit(Order{Time: t0, Instrument: "A", Side: Sell, Qty: 10}))

	fills, err := s.Process(t0, map[string]float64{"A": 100})
	require.NoError(t, err)
	require.Len(t, fills, 2)

	buy, sell := fills[0], fills[1]
	assert.Equal(t, Buy, buy.Side)
	assert.Equal(t, 100.25, buy.Price, "buys fill above the reference price")
	assert.InDelta(t, 100.25*10*0.0005, buy.Fee, 1e-12)

	assert.Equal(t, Sell, sell.Side)
	assert.Equal(t, 99.75, sell.Price, "sells fill below the reference price")
	assert.InDelta(t, 99.75*10*0.0005, sell.Fee, 1e-12)

	assert.NotEqual(t, buy.ID, sell.ID)
}

func TestProcessMissingPrice(t *testing.T) {
	s, err := NewSimulator(CostModel{})
	require.NoError(t, err)

	require.NoError(t, s.Submit(Order{Time: t0, Instrument: "A", Side: Buy, Qty: 1}))
	require.NoError(t, s.Submit(Order{Time: t0, Instrument: "B", Side: Buy, Qty: 1}))

	fills, err := s.Process(t0, map[string]float64{"A": 100})
	assert.ErrorIs(t, err, ErrMissingPrice)
	assert.Empty(t, fills, "no partial fills on a failed step")
	assert.Equal(t, 2, s.Pending(), "queue is untouched so the caller can abort cleanly")
}

func TestFillSignedQty(t *testing.T) {
	assert.Equal(t, int64(7), Fill{Side: Buy, Qty: 7}.SignedQty())
	assert.Equal(t, int64(-7), Fill{Side: Sell, Qty: 7}.SignedQty())
}

func TestSideString(t *testing.T) {
	assert.Equal(t, "buy", Buy.String())
	assert.Equal(t, "sell", Sell.String())

	side, ok := SideFromString("sell")
	assert.True(t, ok)
	assert.Equal(t, Sell, side)
	_, ok = SideFromString("hold")
	assert.False(t, ok)
}
