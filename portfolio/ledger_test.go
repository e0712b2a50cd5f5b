package portfolio

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(day int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

func TestLedger_BuyMergesWeightedAverage(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000, nil)

	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 50, Time: ts(0)}))
	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 60, Time: ts(1)}))

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 200, pos.Quantity, 1e-9)
	assert.InDelta(t, 55, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 100_000-100*50-100*60, l.Cash(), 1e-9)
	assert.Len(t, l.Fills(), 2)
}

func TestLedger_BuyRejectedOnInsufficientCash(t *testing.T) {
	t.Parallel()

	l := NewLedger(1_000, nil)

	ok := l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 50, Time: ts(0)})
	assert.False(t, ok)
	assert.InDelta(t, 1_000, l.Cash(), 1e-9)
	assert.Empty(t, l.Fills())
	_, open := l.Position("AAPL")
	assert.False(t, open)

	// Commission alone can push a buy over the edge.
	ok = l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 10, Price: 100, Commission: 5, Time: ts(0)})
	assert.False(t, ok)
	assert.InDelta(t, 1_000, l.Cash(), 1e-9)
}

func TestLedger_RejectsMalformedFills(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fill Fill
	}{
		{"zero_quantity", Fill{Symbol: "AAPL", Side: Buy, Quantity: 0, Price: 50}},
		{"negative_quantity", Fill{Symbol: "AAPL", Side: Sell, Quantity: -5, Price: 50}},
		{"zero_price", Fill{Symbol: "AAPL", Side: Buy, Quantity: 5, Price: 0}},
		{"negative_commission", Fill{Symbol: "AAPL", Side: Buy, Quantity: 5, Price: 50, Commission: -1}},
		{"unknown_side", Fill{Symbol: "AAPL", Side: "hold", Quantity: 5, Price: 50}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := NewLedger(10_000, nil)
			assert.False(t, l.ApplyFill(tt.fill))
			assert.InDelta(t, 10_000, l.Cash(), 1e-9)
			assert.Empty(t, l.Fills())
		})
	}
}

func TestLedger_SellReducesLongWithoutTouchingBasis(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000, nil)
	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 50, Time: ts(0)}))
	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Sell, Quantity: 40, Price: 55, Time: ts(1)}))

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 60, pos.Quantity, 1e-9)
	assert.InDelta(t, 50, pos.AvgPrice, 1e-9)
	// Partial reduction realizes through cash only; no closed trade yet.
	assert.Empty(t, l.ClosedTrades())
	assert.InDelta(t, 100_000-100*50+40*55, l.Cash(), 1e-9)
}

func TestLedger_SellClosingLongEmitsClosedTrade(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000, nil)
	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 50, Time: ts(0)}))
	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Sell, Quantity: 100, Price: 60, Time: ts(2)}))

	_, open := l.Position("AAPL")
	assert.False(t, open, "zero-quantity position must leave the active set")

	require.Len(t, l.ClosedTrades(), 1)
	ct := l.ClosedTrades()[0]
	assert.Equal(t, "AAPL", ct.Symbol)
	assert.InDelta(t, (60-50)*100, ct.RealizedPnL, 1e-9)
	assert.Equal(t, ts(2), ct.Time)

	// Round trip: net cash change equals realized PnL.
	assert.InDelta(t, 100_000+1_000, l.Cash(), 1e-9)
}

func TestLedger_SellThroughLongFlipsShort(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000, nil)
	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 50, Time: ts(0)}))
	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Sell, Quantity: 150, Price: 60, Time: ts(1)}))

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, -50, pos.Quantity, 1e-9)
	assert.InDelta(t, 60, pos.AvgPrice, 1e-9, "short basis resets to the flip price")

	require.Len(t, l.ClosedTrades(), 1)
	assert.InDelta(t, (60-50)*100, l.ClosedTrades()[0].RealizedPnL, 1e-9)
}

func TestLedger_ShortOpenAndIncreaseWeightedAverage(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000, nil)
	require.True(t, l.ApplyFill(Fill{Symbol: "TSLA", Side: Sell, Quantity: 100, Price: 50, Time: ts(0)}))
	require.True(t, l.ApplyFill(Fill{Symbol: "TSLA", Side: Sell, Quantity: 100, Price: 60, Time: ts(1)}))

	pos, ok := l.Position("TSLA")
	require.True(t, ok)
	assert.InDelta(t, -200, pos.Quantity, 1e-9)
	assert.InDelta(t, 55, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 100_000+100*50+100*60, l.Cash(), 1e-9)
}

func TestLedger_PartialCoverKeepsShortBasis(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000, nil)
	require.True(t, l.ApplyFill(Fill{Symbol: "TSLA", Side: Sell, Quantity: 100, Price: 50, Time: ts(0)}))
	require.True(t, l.ApplyFill(Fill{Symbol: "TSLA", Side: Buy, Quantity: 40, Price: 45, Time: ts(1)}))

	pos, ok := l.Position("TSLA")
	require.True(t, ok)
	assert.InDelta(t, -60, pos.Quantity, 1e-9)
	assert.InDelta(t, 50, pos.AvgPrice, 1e-9)
	assert.Empty(t, l.ClosedTrades())
}

func TestLedger_CoverAndFlipLong(t *testing.T) {
	t.Parallel()

	// Short 100 @ avg 50, buy 150 @ 40: realize (50-40)*100 = 1000 on the
	// covered leg and open a fresh long of 50 @ 40.
	l := NewLedger(100_000, nil)
	require.True(t, l.ApplyFill(Fill{Symbol: "TSLA", Side: Sell, Quantity: 100, Price: 50, Time: ts(0)}))
	require.True(t, l.ApplyFill(Fill{Symbol: "TSLA", Side: Buy, Quantity: 150, Price: 40, Time: ts(1)}))

	pos, ok := l.Position("TSLA")
	require.True(t, ok)
	assert.InDelta(t, 50, pos.Quantity, 1e-9)
	assert.InDelta(t, 40, pos.AvgPrice, 1e-9)

	require.Len(t, l.ClosedTrades(), 1)
	assert.InDelta(t, 1_000, l.ClosedTrades()[0].RealizedPnL, 1e-9)

	assert.InDelta(t, 100_000+100*50-150*40, l.Cash(), 1e-9)
}

func TestLedger_ExactCoverEmitsClosedTrade(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000, nil)
	require.True(t, l.ApplyFill(Fill{Symbol: "TSLA", Side: Sell, Quantity: 100, Price: 50, Time: ts(0)}))
	require.True(t, l.ApplyFill(Fill{Symbol: "TSLA", Side: Buy, Quantity: 100, Price: 40, Time: ts(1)}))

	_, open := l.Position("TSLA")
	assert.False(t, open)
	require.Len(t, l.ClosedTrades(), 1)
	assert.InDelta(t, (50-40)*100, l.ClosedTrades()[0].RealizedPnL, 1e-9)
}

func TestLedger_MarkToMarket(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000, nil)
	require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 50, Time: ts(0)}))

	l.MarkToMarket(map[string]float64{"AAPL": 55}, ts(0))
	l.MarkToMarket(map[string]float64{"AAPL": 45}, ts(1))
	// Missing price contributes zero.
	l.MarkToMarket(map[string]float64{}, ts(2))

	curve := l.EquityCurve()
	require.Len(t, curve, 3)
	assert.InDelta(t, 95_000+100*55, curve[0].Equity, 1e-9)
	assert.InDelta(t, 95_000+100*45, curve[1].Equity, 1e-9)
	assert.InDelta(t, 95_000, curve[2].Equity, 1e-9)
	assert.True(t, curve[0].Time.Before(curve[1].Time))
	assert.True(t, curve[1].Time.Before(curve[2].Time))
}

// TestLedger_CashConservation replays random fill sequences and re-derives
// the cash balance independently from the accepted fill log: every accepted
// buy removes quantity*price+commission, every accepted sell adds
// quantity*price-commission, and nothing else may move cash.
func TestLedger_CashConservation(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	symbols := []string{"AAPL", "MSFT", "TSLA"}

	for run := 0; run < 20; run++ {
		l := NewLedger(1_000_000, nil)

		for i := 0; i < 500; i++ {
			f := Fill{
				Symbol:     symbols[rng.Intn(len(symbols))],
				Side:       Buy,
				Quantity:   float64(1 + rng.Intn(200)),
				Price:      10 + 90*rng.Float64(),
				Commission: float64(rng.Intn(3)),
				Time:       ts(i),
			}
			if rng.Intn(2) == 0 {
				f.Side = Sell
			}
			l.ApplyFill(f)
		}

		derived := 1_000_000.0
		for _, f := range l.Fills() {
			switch f.Side {
			case Buy:
				derived -= f.Quantity*f.Price + f.Commission
			case Sell:
				derived += f.Quantity*f.Price - f.Commission
			}
		}
		assert.InDelta(t, derived, l.Cash(), 1e-6, "run %d", run)
	}
}

// Round trips in both directions must net exactly the realized PnL, with no
// double counting between proceeds and PnL on the closing leg.
func TestLedger_RoundTripNetsRealizedPnL(t *testing.T) {
	t.Parallel()

	t.Run("long", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(50_000, nil)
		require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 100, Time: ts(0)}))
		require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Sell, Quantity: 100, Price: 110, Time: ts(1)}))

		require.Len(t, l.ClosedTrades(), 1)
		assert.InDelta(t, 1_000, l.ClosedTrades()[0].RealizedPnL, 1e-9)
		assert.InDelta(t, 51_000, l.Cash(), 1e-9)
	})

	t.Run("short", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(50_000, nil)
		require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Sell, Quantity: 100, Price: 110, Time: ts(0)}))
		require.True(t, l.ApplyFill(Fill{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: 100, Time: ts(1)}))

		require.Len(t, l.ClosedTrades(), 1)
		assert.InDelta(t, 1_000, l.ClosedTrades()[0].RealizedPnL, 1e-9)
		assert.InDelta(t, 51_000, l.Cash(), 1e-9)
	})
}
