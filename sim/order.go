package sim

import "time"

// Side is the direction of an order or fill.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

// SideFromString parses "buy" or "sell".
func SideFromString(s string) (Side, bool) {
	switch s {
	case "buy":
		return Buy, true
	case "sell":
		return Sell, true
	}
	return 0, false
}

// Order is a strategy's request to trade a fixed quantity at market.
// Quantity is always positive; direction lives in Side.
type Order struct {
	Time       time.Time
	Instrument string
	Side       Side
	Qty        int64
}

// Fill is the simulated execution of one order. Immutable once
// produced; exactly one fill exists per processed order.
type Fill struct {
	ID         string
	Time       time.Time
	Instrument string
	Side       Side
	Qty        int64
	Price      float64
	Fee        float64
}

// SignedQty is the position delta this fill applies: positive for
// buys, negative for sells.
func (f Fill) SignedQty() int64 {
	return int64(f.Side) * f.Qty
}
