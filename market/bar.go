package market

import (
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV observation for an instrument.
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Validate checks that a bar carries a complete, sane set of values.
func (b Bar) Validate() error {
	for _, v := range []struct {
		name string
		v    float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	} {
		if math.IsNaN(v.v) || math.IsInf(v.v, 0) {
			return fmt.Errorf("bar %s is not a finite number", v.name)
		}
		if v.v <= 0 {
			return fmt.Errorf("bar %s must be positive, got %v", v.name, v.v)
		}
	}
	if b.High < b.Low {
		return fmt.Errorf("bar high %v below low %v", b.High, b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar volume must be non-negative, got %d", b.Volume)
	}
	return nil
}

// ObservedBar is a bar together with its observation time.
type ObservedBar struct {
	Time time.Time
	Bar  Bar
}

// Event is one synchronized market observation emitted by a Feed.
// Events are emitted in non-decreasing time order; within one timestamp
// every instrument's event precedes the next timestamp.
type Event struct {
	Time       time.Time
	Instrument string
	Bar        Bar
}
