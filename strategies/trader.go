package strategies

import (
	"go.uber.org/zap"

	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
	"github.com/quantlab/backtest/portfolio"
)

// Trader is the small order-entry helper every variant composes. It holds
// the non-owning ledger reference, the current bar index used to stamp
// fills, and the entry-price/quantity bookkeeping the stop-loss policy
// reads. It is deliberately not a base class: variants keep their own signal
// state.
type Trader struct {
	Symbol      string
	StopLossPct float64
	Log         *logger.Logger

	ledger      *portfolio.Ledger
	data        *marketdata.Table
	index       int
	entryPrice  float64
	positionQty float64
}

// Initialize injects the ledger the trader routes fills to.
func (t *Trader) Initialize(ledger *portfolio.Ledger) {
	t.ledger = ledger
	if t.Log == nil {
		t.Log = logger.Nop()
	}
}

// SetData hands the trader the bar table so fills can be stamped with the
// current bar's timestamp.
func (t *Trader) SetData(data *marketdata.Table) {
	t.data = data
}

// MarkBar records the bar index currently being processed. Variants call it
// at the top of OnBar.
func (t *Trader) MarkBar(i int) {
	t.index = i
}

// Ledger exposes the injected ledger for position and cash lookups.
func (t *Trader) Ledger() *portfolio.Ledger {
	return t.ledger
}

// TrackedSymbol is the symbol the stop-loss bookkeeping follows.
func (t *Trader) TrackedSymbol() string {
	return t.Symbol
}

// Buy places a buy fill for the tracked symbol and, on acceptance, records
// the entry price and quantity for stop-loss evaluation.
func (t *Trader) Buy(quantity, price, commission float64) bool {
	if !t.submit(t.Symbol, portfolio.Buy, quantity, price, commission) {
		return false
	}
	t.entryPrice = price
	t.positionQty = quantity
	return true
}

// Sell places a sell fill for the tracked symbol and clears the stop-loss
// bookkeeping on acceptance.
func (t *Trader) Sell(quantity, price, commission float64) bool {
	if !t.submit(t.Symbol, portfolio.Sell, quantity, price, commission) {
		return false
	}
	t.entryPrice = 0
	t.positionQty = 0
	return true
}

// BuySymbol places a buy fill for an arbitrary symbol without touching the
// stop-loss bookkeeping. Used by multi-leg strategies.
func (t *Trader) BuySymbol(symbol string, quantity, price, commission float64) bool {
	return t.submit(symbol, portfolio.Buy, quantity, price, commission)
}

// SellSymbol places a sell fill for an arbitrary symbol without touching the
// stop-loss bookkeeping.
func (t *Trader) SellSymbol(symbol string, quantity, price, commission float64) bool {
	return t.submit(symbol, portfolio.Sell, quantity, price, commission)
}

// CheckStopLoss force-sells the full tracked quantity at the current price
// when an open long has fallen to or below entry*(1-StopLossPct). The policy
// is long-only: it never acts on shorts, and it is a no-op when no stop
// percentage is configured.
func (t *Trader) CheckStopLoss(currentPrice float64) {
	if t.positionQty <= 0 || t.StopLossPct <= 0 {
		return
	}
	stop := t.entryPrice * (1 - t.StopLossPct)
	if currentPrice > stop {
		return
	}
	qty := t.positionQty
	if t.Sell(qty, currentPrice, 0) {
		t.Log.Info("stop loss triggered",
			zap.String("symbol", t.Symbol),
			zap.Float64("price", currentPrice),
			zap.Float64("quantity", qty))
	}
}

func (t *Trader) submit(symbol string, side portfolio.Side, quantity, price, commission float64) bool {
	if t.ledger == nil || t.data == nil {
		if t.Log != nil {
			t.Log.Error("order submitted before Initialize/SetData", zap.String("symbol", symbol))
		}
		return false
	}
	return t.ledger.ApplyFill(portfolio.Fill{
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		Time:       t.data.Bar(t.index).Time,
	})
}
