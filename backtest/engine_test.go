package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

func ts(min int) time.Time {
	return time.Date(2024, 1, 2, 9, 30+min, 0, 0, time.UTC)
}

func bar(open, close float64) market.Bar {
	hi, lo := open, close
	if close > hi {
		hi = close
	}
	if open < lo {
		lo = open
	}
	return market.Bar{Open: open, High: hi, Low: lo, Close: close, Volume: 100}
}

func seriesOf(t *testing.T, bars map[int]market.Bar) *market.Series {
	t.Helper()
	obs := make([]market.ObservedBar, 0, len(bars))
	for min, b := range bars {
		obs = append(obs, market.ObservedBar{Time: ts(min), Bar: b})
	}
	s, err := market.NewSeries(obs)
	require.NoError(t, err)
	return s
}

// scripted submits fixed orders at fixed timestamps.
type scripted struct {
	orders map[int64][]sim.Order
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) OnBar(ctx *strategies.Context) error {
	for _, o := range s.orders[ctx.Time.UnixNano()] {
		if err := ctx.Submit(o); err != nil {
			return err
		}
	}
	return nil
}

func newEngine(t *testing.T, series map[string]*market.Series, costs sim.CostModel, cash float64, strats map[string]strategies.Strategy) *Engine {
	t.Helper()
	feed, err := market.NewFeed(series)
	require.NoError(t, err)
	simulator, err := sim.NewSimulator(costs)
	require.NoError(t, err)
	eng, err := New(feed, simulator, portfolio.NewLedger(cash), strats)
	require.NoError(t, err)
	return eng
}

// Three bars with closes 100, 105, 95; a strategy that buys 10 units on
// bar one and sells all on bar three; zero commission and slippage.
// Fills price at the same bar's open (the engine's documented policy),
// so entry is bar one's open (100) and exit is bar three's open (96):
// final cash = starting cash + 10*(96-100).
func TestRunThreeBarScenario(t *testing.T) {
	series := map[string]*market.Series{
		"A": seriesOf(t, map[int]market.Bar{
			0: bar(100, 100),
			1: bar(104, 105),
			2: bar(96, 95),
		}),
	}
	strat := &scripted{orders: map[int64][]sim.Order{
		ts(0).UnixNano(): {{Time: ts(0), Instrument: "A", Side: sim.Buy, Qty: 10}},
		ts(2).UnixNano(): {{Time: ts(2), Instrument: "A", Side: sim.Sell, Qty: 10}},
	}}

	eng := newEngine(t, series, sim.CostModel{}, 100_000, map[string]strategies.Strategy{"A": strat})
	require.NoError(t, eng.Run(context.Background()))

	fills := eng.Ledger().Fills()
	require.Len(t, fills, 2)
	assert.Equal(t, 100.0, fills[0].Price)
	assert.Equal(t, 96.0, fills[1].Price)

	assert.Equal(t, int64(0), eng.Ledger().Position("A"))
	assert.InDelta(t, 100_000+10*(96.0-100.0), eng.Ledger().Cash(), 1e-9)

	eq := eng.Ledger().EquitySeries()
	require.Len(t, eq, 3, "one equity sample per distinct timestamp")
	// Bar one marked with its own close, before bar two's signal.
	assert.InDelta(t, 100_000-10*100+10*100, eq[0].Equity, 1e-9)
	assert.InDelta(t, 100_000-10*100+10*105, eq[1].Equity, 1e-9)
	assert.InDelta(t, 100_000-40, eq[2].Equity, 1e-9)
}

func TestRunStateMachine(t *testing.T) {
	series := map[string]*market.Series{
		"A": seriesOf(t, map[int]market.Bar{0: bar(100, 100)}),
	}

	eng := newEngine(t, series, sim.CostModel{}, 1_000, nil)
	assert.Equal(t, NotStarted, eng.State())
	_, err := eng.Result()
	assert.Error(t, err, "no result before the run")

	require.NoError(t, eng.Run(context.Background()))
	assert.Equal(t, Finished, eng.State())

	res, err := eng.Result()
	require.NoError(t, err)
	assert.Equal(t, 1_000.0, res.FinalEquity)
	assert.Equal(t, 1, res.Samples)

	assert.Error(t, eng.Run(context.Background()), "a finished engine cannot be rerun")
}

func TestRunDeterminism(t *testing.T) {
	build := func() *Engine {
		series := map[string]*market.Series{
			"A": seriesOf(t, map[int]market.Bar{
				0: bar(100, 101), 1: bar(101, 103), 2: bar(103, 102),
				3: bar(102, 99), 4: bar(99, 97),
			}),
		}
		strat, err := strategies.NewSMACross(
			strategies.SMACrossConfig{Instrument: "A", Short: 1, Long: 3, Unit: 10},
			series["A"],
		)
		require.NoError(t, err)
		return newEngine(t, series, sim.CostModelBPS(5, 0.01), 100_000,
			map[string]strategies.Strategy{"A": strat})
	}

	a, b := build(), build()
	require.NoError(t, a.Run(context.Background()))
	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, a.Ledger().EquitySeries(), b.Ledger().EquitySeries())

	fa, fb := a.Ledger().Fills(), b.Ledger().Fills()
	require.Equal(t, len(fa), len(fb))
	for i := range fa {
		// Fill IDs are unique per fill; everything economic is identical.
		fa[i].ID, fb[i].ID = "", ""
		assert.Equal(t, fa[i], fb[i])
	}
}

func TestRunPartialOverlapTwoInstruments(t *testing.T) {
	// A covers minutes 0-3, B only minutes 2-4. The union has five
	// timestamps; B must be forward-filled inside its range and stay
	// missing before minute 2.
	series := map[string]*market.Series{
		"A": seriesOf(t, map[int]market.Bar{
			0: bar(100, 100), 1: bar(101, 101), 2: bar(102, 102), 3: bar(103, 103),
		}),
		"B": seriesOf(t, map[int]market.Bar{
			2: bar(50, 50), 4: bar(52, 52),
		}),
	}

	eng := newEngine(t, series, sim.CostModel{}, 10_000, nil)
	require.NoError(t, eng.Run(context.Background()))

	eq := eng.Ledger().EquitySeries()
	require.Len(t, eq, 5, "one sample per distinct union timestamp")
	for i := 1; i < len(eq); i++ {
		assert.True(t, eq[i-1].Time.Before(eq[i].Time))
	}
	for _, s := range eq {
		assert.Equal(t, 10_000.0, s.Equity, "no strategy, flat curve")
	}
}

func TestRunMissingPriceAborts(t *testing.T) {
	series := map[string]*market.Series{
		"A": seriesOf(t, map[int]market.Bar{0: bar(100, 100), 1: bar(101, 101)}),
	}
	// Orders an instrument the feed has never priced.
	strat := &scripted{orders: map[int64][]sim.Order{
		ts(0).UnixNano(): {{Time: ts(0), Instrument: "GHOST", Side: sim.Buy, Qty: 1}},
	}}

	eng := newEngine(t, series, sim.CostModel{}, 10_000, map[string]strategies.Strategy{"A": strat})
	err := eng.Run(context.Background())
	assert.ErrorIs(t, err, sim.ErrMissingPrice)
	assert.NotEqual(t, Finished, eng.State())
	_, err = eng.Result()
	assert.Error(t, err, "a failed run produces no result")
}

func TestRunCancellation(t *testing.T) {
	series := map[string]*market.Series{
		"A": seriesOf(t, map[int]market.Bar{0: bar(100, 100), 1: bar(101, 101)}),
	}
	eng := newEngine(t, series, sim.CostModel{}, 10_000, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := eng.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, Finished, eng.State())
}

func TestRunSMACrossEndToEnd(t *testing.T) {
	series := map[string]*market.Series{
		"A": seriesOf(t, map[int]market.Bar{
			0: bar(100, 100), 1: bar(100, 101), 2: bar(101, 102),
			3: bar(102, 101), 4: bar(101, 90), 5: bar(90, 80),
		}),
	}
	strat, err := strategies.NewSMACross(
		strategies.SMACrossConfig{Instrument: "A", Short: 1, Long: 3, Unit: 10},
		series["A"],
	)
	require.NoError(t, err)

	eng := newEngine(t, series, sim.CostModel{}, 100_000, map[string]strategies.Strategy{"A": strat})
	require.NoError(t, eng.Run(context.Background()))

	fills := eng.Ledger().Fills()
	require.Len(t, fills, 2, "one entry and one exit")
	assert.Equal(t, sim.Buy, fills[0].Side)
	assert.Equal(t, sim.Sell, fills[1].Side)
	assert.Equal(t, int64(0), eng.Ledger().Position("A"))

	res, err := eng.Result()
	require.NoError(t, err)
	assert.Equal(t, 6, res.Samples)
	assert.Equal(t, ts(0), res.Start)
	assert.Equal(t, ts(5), res.End)
	assert.NotEmpty(t, res.RunID)
}
