package metrics

import (
	"math"

	"github.com/rustyeddy/backtester/portfolio"
)

// Performance is the standard summary of a NAV curve. Every field is
// NaN when the input is empty or degenerate; Sharpe is NaN when
// volatility is zero.
type Performance struct {
	AnnualReturn float64
	AnnualVol    float64
	Sharpe       float64
	MaxDrawdown  float64
	TotalReturn  float64
}

func nanPerformance() Performance {
	nan := math.NaN()
	return Performance{
		AnnualReturn: nan,
		AnnualVol:    nan,
		Sharpe:       nan,
		MaxDrawdown:  nan,
		TotalReturn:  nan,
	}
}

// ComputePerformance reduces a NAV series to summary metrics.
//
// riskFree is the annualized risk-free rate as a decimal;
// periodsPerYear is the number of bars per year (252 daily, 12
// monthly). Fewer than two samples yields all-NaN.
func ComputePerformance(nav []portfolio.EquitySample, riskFree float64, periodsPerYear int) Performance {
	if len(nav) < 2 || periodsPerYear <= 0 {
		return nanPerformance()
	}

	rets := make([]float64, 0, len(nav)-1)
	for i := 1; i < len(nav); i++ {
		rets = append(rets, nav[i].Equity/nav[i-1].Equity-1.0)
	}

	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	// Population standard deviation (ddof=0).
	variance := 0.0
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rets))
	std := math.Sqrt(variance)

	ppy := float64(periodsPerYear)
	annRet := math.Pow(1.0+mean, ppy) - 1.0
	annVol := std * math.Sqrt(ppy)

	// Per-period risk-free rate for the excess-return numerator.
	rfPeriod := math.Pow(1.0+riskFree, 1.0/ppy) - 1.0
	excess := mean - rfPeriod

	sharpe := math.NaN()
	if annVol != 0 {
		sharpe = excess * ppy / annVol
	}

	maxDD := 0.0
	for _, dd := range Drawdown(nav) {
		if dd < maxDD {
			maxDD = dd
		}
	}

	return Performance{
		AnnualReturn: annRet,
		AnnualVol:    annVol,
		Sharpe:       sharpe,
		MaxDrawdown:  maxDD,
		TotalReturn:  nav[len(nav)-1].Equity/nav[0].Equity - 1.0,
	}
}

// Drawdown returns the per-sample decline from the running NAV peak:
// zero at peaks, negative elsewhere.
func Drawdown(nav []portfolio.EquitySample) []float64 {
	out := make([]float64, len(nav))
	peak := math.Inf(-1)
	for i, s := range nav {
		if s.Equity > peak {
			peak = s.Equity
		}
		out[i] = s.Equity/peak - 1.0
	}
	return out
}

// Normalize rescales a NAV series by its first value so the curve
// starts at 1.0.
func Normalize(nav []portfolio.EquitySample) []portfolio.EquitySample {
	out := make([]portfolio.EquitySample, len(nav))
	if len(nav) == 0 {
		return out
	}
	first := nav[0].Equity
	for i, s := range nav {
		out[i] = portfolio.EquitySample{Time: s.Time, Equity: s.Equity / first}
	}
	return out
}
