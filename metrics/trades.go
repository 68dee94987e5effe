package metrics

import (
	"math"
	"time"

	"github.com/rustyeddy/backtester/sim"
)

// TradeStats summarizes realized trades aggregated from a fill log.
// Float fields are NaN when undefined: all of them for an empty log,
// ProfitFactor when there are no losses, the win/loss aggregates when
// their side is empty.
type TradeStats struct {
	NumTrades    int
	WinRate      float64
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64
	MaxWin       float64
	MaxLoss      float64
}

// Trade is one realized round trip: the portion of a position closed by
// a single position-reducing fill, matched FIFO against open lots.
type Trade struct {
	Instrument string
	OpenTime   time.Time
	CloseTime  time.Time
	Qty        int64
	PnL        float64 // net of entry fees (pro rata) and the full exit fee
}

type lot struct {
	openTime   time.Time
	qty        int64 // signed: positive long, negative short
	price      float64
	feePerUnit float64
}

// AggregateTrades reduces a fill log to realized trades. Fills must be
// in application order. A fill that reduces or flips existing exposure
// realizes PnL against the earliest open lots; any unmatched remainder
// opens a new lot in the fill's own direction.
func AggregateTrades(fills []sim.Fill) []Trade {
	books := make(map[string][]lot)
	var trades []Trade

	for _, f := range fills {
		book := books[f.Instrument]
		remaining := f.SignedQty()

		var pnl float64
		var closedQty int64
		openTime := f.Time

		for remaining != 0 && len(book) > 0 && opposite(book[0].qty, remaining) {
			l := &book[0]
			matched := min64(abs64(remaining), abs64(l.qty))

			lotSide := float64(sign64(l.qty))
			pnl += lotSide*(f.Price-l.price)*float64(matched) - l.feePerUnit*float64(matched)

			if closedQty == 0 {
				openTime = l.openTime
			}
			closedQty += matched

			l.qty -= sign64(l.qty) * matched
			remaining -= sign64(remaining) * matched
			if l.qty == 0 {
				book = book[1:]
			}
		}

		if closedQty > 0 {
			// The reducing fill's own fee is charged in full here.
			trades = append(trades, Trade{
				Instrument: f.Instrument,
				OpenTime:   openTime,
				CloseTime:  f.Time,
				Qty:        closedQty,
				PnL:        pnl - f.Fee,
			})
		}

		if remaining != 0 {
			feePerUnit := 0.0
			if closedQty == 0 {
				// Fee belongs to the opened lot only when nothing was
				// realized on this fill.
				feePerUnit = f.Fee / float64(abs64(remaining))
			}
			book = append(book, lot{
				openTime:   f.Time,
				qty:        remaining,
				price:      f.Price,
				feePerUnit: feePerUnit,
			})
		}

		books[f.Instrument] = book
	}

	return trades
}

// ComputeTradeStats aggregates a fill log into trades and summarizes
// their realized PnL.
func ComputeTradeStats(fills []sim.Fill) TradeStats {
	trades := AggregateTrades(fills)
	nan := math.NaN()

	if len(trades) == 0 {
		return TradeStats{
			WinRate:      nan,
			ProfitFactor: nan,
			AvgWin:       nan,
			AvgLoss:      nan,
			MaxWin:       nan,
			MaxLoss:      nan,
		}
	}

	var wins, losses []float64
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			wins = append(wins, t.PnL)
		case t.PnL < 0:
			losses = append(losses, t.PnL)
		}
	}

	stats := TradeStats{
		NumTrades: len(trades),
		WinRate:   float64(len(wins)) / float64(len(trades)),
	}

	totalWin, maxWin := 0.0, math.Inf(-1)
	for _, w := range wins {
		totalWin += w
		if w > maxWin {
			maxWin = w
		}
	}
	totalLoss, maxLoss := 0.0, 0.0 // maxLoss is the most negative PnL
	for _, l := range losses {
		totalLoss += -l
		if l < maxLoss {
			maxLoss = l
		}
	}

	if totalLoss == 0 {
		stats.ProfitFactor = nan
	} else {
		stats.ProfitFactor = totalWin / totalLoss
	}

	if len(wins) == 0 {
		stats.AvgWin, stats.MaxWin = nan, nan
	} else {
		stats.AvgWin = totalWin / float64(len(wins))
		stats.MaxWin = maxWin
	}
	if len(losses) == 0 {
		stats.AvgLoss, stats.MaxLoss = nan, nan
	} else {
		stats.AvgLoss = -totalLoss / float64(len(losses))
		stats.MaxLoss = maxLoss
	}

	return stats
}

func opposite(a, b int64) bool { return (a > 0 && b < 0) || (a < 0 && b > 0) }

func sign64(v int64) int64 {
	if v < 0 {
		return -1
	}
	return 1
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
