package market

import (
	"fmt"
	"sort"
	"time"
)

// Series is one instrument's time-indexed bar history, sorted ascending
// by timestamp. Construct with NewSeries; the engine never mutates it.
type Series struct {
	bars []ObservedBar
}

// NewSeries builds a Series from observations in any order.
// Duplicate timestamps are rejected.
func NewSeries(bars []ObservedBar) (*Series, error) {
	cp := make([]ObservedBar, len(bars))
	copy(cp, bars)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Time.Before(cp[j].Time) })

	for i := 1; i < len(cp); i++ {
		if cp[i].Time.Equal(cp[i-1].Time) {
			return nil, fmt.Errorf("series: duplicate timestamp %s", cp[i].Time.Format(time.RFC3339))
		}
	}
	return &Series{bars: cp}, nil
}

// Len returns the number of native observations.
func (s *Series) Len() int { return len(s.bars) }

// Bars returns a copy of the observations.
func (s *Series) Bars() []ObservedBar {
	cp := make([]ObservedBar, len(s.bars))
	copy(cp, s.bars)
	return cp
}

// At returns the bar observed exactly at t.
func (s *Series) At(t time.Time) (Bar, bool) {
	i := sort.Search(len(s.bars), func(i int) bool { return !s.bars[i].Time.Before(t) })
	if i < len(s.bars) && s.bars[i].Time.Equal(t) {
		return s.bars[i].Bar, true
	}
	return Bar{}, false
}

// Validate checks the series is usable for a backtest: at least one
// observation, and every bar passes Bar.Validate.
func (s *Series) Validate() error {
	if len(s.bars) == 0 {
		return fmt.Errorf("series: no observations")
	}
	for _, ob := range s.bars {
		if err := ob.Bar.Validate(); err != nil {
			return fmt.Errorf("series: bar at %s: %w", ob.Time.Format(time.RFC3339), err)
		}
	}
	return nil
}
