package indicators

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// RollingMean computes the simple moving average of closing prices over
// a bar history, one value per input bar.
//
// A bar earlier than the full period averages however many bars exist
// so far (minimum one), so the output has the same length as the input
// and carries no warm-up gap.
func RollingMean(bars []market.ObservedBar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("indicators: period must be positive, got %d", period)
	}

	out := make([]float64, len(bars))
	sum := 0.0
	for i, ob := range bars {
		sum += ob.Bar.Close
		n := period
		if i+1 < period {
			n = i + 1
		} else if i >= period {
			sum -= bars[i-period].Bar.Close
		}
		out[i] = sum / float64(n)
	}
	return out, nil
}

// SMA returns the simple moving average of the last period closes.
func SMA(bars []market.ObservedBar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("indicators: period must be positive, got %d", period)
	}
	if len(bars) < period {
		return 0, fmt.Errorf("indicators: not enough bars: need %d, got %d", period, len(bars))
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += bars[i].Bar.Close
	}
	return sum / float64(period), nil
}
