package market

import (
	"fmt"
	"sort"
	"time"
)

// Feed merges per-instrument series onto one common timestamp axis.
//
// The axis is the sorted union of every instrument's timestamps. At each
// axis timestamp an instrument contributes its native bar if it has one,
// otherwise its most recent earlier bar carried forward. Timestamps
// before an instrument's first observation stay genuinely missing; the
// feed never synthesizes data backward.
//
// Instrument order within one timestamp is fixed (lexicographic) so a
// feed built from the same inputs always replays identically.
type Feed struct {
	instruments []string
	times       []time.Time
	index       map[int64]int // UnixNano -> position in times

	filled map[string][]Bar
	has    map[string][]bool // false before first observation
	native map[string][]bool // true where the bar is a native observation
}

// NewFeed validates every series and precomputes the synchronized,
// forward-filled view. Input series are copied; the caller keeps
// ownership of its own data.
func NewFeed(series map[string]*Series) (*Feed, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("feed: no instruments")
	}

	instruments := make([]string, 0, len(series))
	for instr, s := range series {
		if s == nil {
			return nil, fmt.Errorf("feed: %s: nil series", instr)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("feed: %s: %w", instr, err)
		}
		instruments = append(instruments, instr)
	}
	sort.Strings(instruments)

	// Union of all native timestamps.
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, ob := range s.bars {
			seen[ob.Time.UnixNano()] = ob.Time
		}
	}
	times := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	index := make(map[int64]int, len(times))
	for i, t := range times {
		index[t.UnixNano()] = i
	}

	f := &Feed{
		instruments: instruments,
		times:       times,
		index:       index,
		filled:      make(map[string][]Bar, len(series)),
		has:         make(map[string][]bool, len(series)),
		native:      make(map[string][]bool, len(series)),
	}

	for _, instr := range instruments {
		s := series[instr]
		bars := make([]Bar, len(times))
		has := make([]bool, len(times))
		nat := make([]bool, len(times))

		next := 0 // cursor into s.bars
		var last Bar
		var primed bool
		for i, t := range times {
			if next < len(s.bars) && s.bars[next].Time.Equal(t) {
				last = s.bars[next].Bar
				primed = true
				nat[i] = true
				next++
			}
			if primed {
				bars[i] = last
				has[i] = true
			}
		}

		f.filled[instr] = bars
		f.has[instr] = has
		f.native[instr] = nat
	}

	return f, nil
}

// Instruments returns the fixed instrument emission order.
func (f *Feed) Instruments() []string {
	cp := make([]string, len(f.instruments))
	copy(cp, f.instruments)
	return cp
}

// Times returns the synchronized timestamp axis.
func (f *Feed) Times() []time.Time {
	cp := make([]time.Time, len(f.times))
	copy(cp, f.times)
	return cp
}

// At reports the synchronized bar for an instrument at an axis
// timestamp. native is true only when the instrument observed a bar at
// exactly that timestamp; ok is false before the instrument's first
// observation or for timestamps off the axis.
func (f *Feed) At(instrument string, t time.Time) (bar Bar, native, ok bool) {
	i, found := f.index[t.UnixNano()]
	if !found {
		return Bar{}, false, false
	}
	has, found := f.has[instrument]
	if !found || !has[i] {
		return Bar{}, false, false
	}
	return f.filled[instrument][i], f.native[instrument][i], true
}

// Events returns a fresh cursor over the synchronized event sequence.
// Cursors are independent; a feed can be replayed any number of times.
func (f *Feed) Events() *Cursor {
	return &Cursor{feed: f, ti: 0, ii: -1}
}

// Cursor iterates a Feed in timestamp-then-instrument order.
type Cursor struct {
	feed *Feed
	ti   int // timestamp index
	ii   int // instrument index within timestamp
}

// Next advances to the next event, skipping instruments with no data
// yet at the current timestamp. It returns false when exhausted.
func (c *Cursor) Next() bool {
	for c.ti < len(c.feed.times) {
		c.ii++
		if c.ii >= len(c.feed.instruments) {
			c.ii = -1
			c.ti++
			continue
		}
		instr := c.feed.instruments[c.ii]
		if c.feed.has[instr][c.ti] {
			return true
		}
	}
	return false
}

// Event returns the event at the cursor position. Valid only after a
// successful Next.
func (c *Cursor) Event() Event {
	instr := c.feed.instruments[c.ii]
	return Event{
		Time:       c.feed.times[c.ti],
		Instrument: instr,
		Bar:        c.feed.filled[instr][c.ti],
	}
}
