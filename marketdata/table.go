// Package marketdata holds the ordered bar table the simulation engine
// iterates over: one row per timestamp, one close price per traded symbol,
// pre-merged and forward-filled.
package marketdata

import (
	"fmt"
	"sort"
	"time"
)

// Bar is one row of the table. Close maps symbol to close price; a symbol
// with no observation yet (before its first data point) is absent.
type Bar struct {
	Time  time.Time
	Close map[string]float64
}

// Price returns the close price for symbol in this bar, with ok reporting
// whether the symbol has a price at all.
func (b Bar) Price(symbol string) (float64, bool) {
	p, ok := b.Close[symbol]
	return p, ok
}

// Table is an immutable, strictly time-ordered sequence of bars.
type Table struct {
	bars    []Bar
	symbols []string
}

// NewTable builds a table from bars, which must be strictly increasing in
// time with no duplicates.
func NewTable(bars []Bar, symbols []string) (*Table, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Time.Before(bars[i].Time) {
			return nil, fmt.Errorf("marketdata: bars out of order at index %d (%s >= %s)",
				i, bars[i-1].Time, bars[i].Time)
		}
	}
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return &Table{bars: bars, symbols: sorted}, nil
}

// Len returns the number of bars.
func (t *Table) Len() int { return len(t.bars) }

// Bar returns the bar at index i.
func (t *Table) Bar(i int) Bar { return t.bars[i] }

// Bars returns all bars in time order.
func (t *Table) Bars() []Bar { return t.bars }

// Symbols returns the symbols carried by the table, sorted.
func (t *Table) Symbols() []string { return t.symbols }

// Series is the raw per-symbol close history before merging.
type Series struct {
	Symbol string
	Points []SeriesPoint
}

// SeriesPoint is one close observation.
type SeriesPoint struct {
	Time  time.Time
	Close float64
}

// Merge outer-joins the given series on timestamp and forward-fills each
// symbol from its last observation, so the resulting table has no gaps once
// a symbol has started trading. Symbols contribute nothing before their
// first observation.
func Merge(series ...Series) (*Table, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("marketdata: no series to merge")
	}

	stamps := map[time.Time]struct{}{}
	symbols := make([]string, 0, len(series))
	for _, s := range series {
		if len(s.Points) == 0 {
			return nil, fmt.Errorf("marketdata: series %q is empty", s.Symbol)
		}
		symbols = append(symbols, s.Symbol)
		for i := 1; i < len(s.Points); i++ {
			if !s.Points[i-1].Time.Before(s.Points[i].Time) {
				return nil, fmt.Errorf("marketdata: series %q out of order at index %d", s.Symbol, i)
			}
		}
		for _, p := range s.Points {
			stamps[p.Time] = struct{}{}
		}
	}

	ordered := make([]time.Time, 0, len(stamps))
	for ts := range stamps {
		ordered = append(ordered, ts)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	cursors := make([]int, len(series))
	bars := make([]Bar, 0, len(ordered))
	last := make(map[string]float64, len(series))
	seen := make(map[string]bool, len(series))

	for _, ts := range ordered {
		for si, s := range series {
			for cursors[si] < len(s.Points) && !s.Points[cursors[si]].Time.After(ts) {
				last[s.Symbol] = s.Points[cursors[si]].Close
				seen[s.Symbol] = true
				cursors[si]++
			}
		}
		close := make(map[string]float64, len(series))
		for _, s := range series {
			if seen[s.Symbol] {
				close[s.Symbol] = last[s.Symbol]
			}
		}
		bars = append(bars, Bar{Time: ts, Close: close})
	}

	return NewTable(bars, symbols)
}
