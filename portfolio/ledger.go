package portfolio

import (
	"time"

	"go.uber.org/zap"

	"github.com/quantlab/backtest/logger"
)

// Ledger is the accounting core of a backtest run. It owns cash, open
// positions, the fill log, the closed-trade log and the equity curve, and is
// mutated only through ApplyFill and MarkToMarket.
//
// Cash reconciliation rule: every accepted fill moves cash by its full cost
// (buy: -quantity*price - commission) or full proceeds (sell:
// +quantity*price - commission). Realized PnL on reducing or closing legs is
// recorded for the closed-trade log but never credited to cash a second
// time; the profit is already realized through the entry and exit cash
// flows. This is the only rule under which cash conservation holds for round
// trips in both directions.
type Ledger struct {
	initialCash  float64
	cash         float64
	positions    map[string]Position
	fills        []Fill
	closedTrades []ClosedTrade
	equityCurve  []EquityPoint
	log          *logger.Logger
}

// NewLedger returns a ledger holding initialCash and no positions.
func NewLedger(initialCash float64, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]Position),
		log:         log.Named("ledger"),
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// InitialCash returns the cash the ledger was constructed with.
func (l *Ledger) InitialCash() float64 { return l.initialCash }

// Position returns the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	p, ok := l.positions[symbol]
	return p, ok
}

// Positions returns a copy of the active position set.
func (l *Ledger) Positions() map[string]Position {
	out := make(map[string]Position, len(l.positions))
	for sym, p := range l.positions {
		out[sym] = p
	}
	return out
}

// Fills returns the log of accepted fills in execution order.
func (l *Ledger) Fills() []Fill { return l.fills }

// ClosedTrades returns the log of fully closed positions in close order.
func (l *Ledger) ClosedTrades() []ClosedTrade { return l.closedTrades }

// EquityCurve returns the mark-to-market history, one point per bar.
func (l *Ledger) EquityCurve() []EquityPoint { return l.equityCurve }

// ApplyFill attempts to execute a fill against the ledger. It returns false
// and leaves all state untouched when the fill is rejected: a buy the cash
// balance cannot cover, or a malformed fill (non-positive quantity or
// price). Every accepted fill is appended to the fill log.
//
// Selling more than the open long quantity is not an error: the long is
// closed and a short is opened for the remainder. The same holds for buying
// through a short.
func (l *Ledger) ApplyFill(f Fill) bool {
	if f.Quantity <= 0 || f.Price <= 0 || f.Commission < 0 {
		l.log.Warn("rejecting malformed fill",
			zap.String("symbol", f.Symbol),
			zap.Float64("quantity", f.Quantity),
			zap.Float64("price", f.Price))
		return false
	}

	switch f.Side {
	case Buy:
		if !l.applyBuy(f) {
			return false
		}
	case Sell:
		l.applySell(f)
	default:
		l.log.Warn("rejecting fill with unknown side", zap.String("side", string(f.Side)))
		return false
	}

	l.fills = append(l.fills, f)
	return true
}

func (l *Ledger) applyBuy(f Fill) bool {
	cost := f.Quantity*f.Price + f.Commission
	if l.cash < cost {
		l.log.Info("insufficient cash for buy",
			zap.String("symbol", f.Symbol),
			zap.Float64("cost", cost),
			zap.Float64("cash", l.cash))
		return false
	}
	l.cash -= cost

	pos := l.positions[f.Symbol]
	pos.Symbol = f.Symbol

	switch {
	case pos.Quantity >= 0:
		// Flat or long: merge at the weighted-average entry price.
		newQty := pos.Quantity + f.Quantity
		pos.AvgPrice = (pos.Quantity*pos.AvgPrice + f.Quantity*f.Price) / newQty
		pos.Quantity = newQty

	case f.Quantity <= -pos.Quantity:
		// Covering part or all of a short. The short basis is unchanged
		// while any short quantity remains.
		pnl := (pos.AvgPrice - f.Price) * f.Quantity
		pos.Quantity += f.Quantity
		if pos.Quantity == 0 {
			l.closedTrades = append(l.closedTrades, ClosedTrade{
				Symbol:      f.Symbol,
				RealizedPnL: pnl,
				Time:        f.Time,
			})
		}

	default:
		// Cover the whole short and flip long with the remainder. The new
		// long's basis is the fill price.
		covered := -pos.Quantity
		pnl := (pos.AvgPrice - f.Price) * covered
		l.closedTrades = append(l.closedTrades, ClosedTrade{
			Symbol:      f.Symbol,
			RealizedPnL: pnl,
			Time:        f.Time,
		})
		pos.Quantity = f.Quantity - covered
		pos.AvgPrice = f.Price
	}

	l.setPosition(pos)
	return true
}

func (l *Ledger) applySell(f Fill) {
	l.cash += f.Quantity*f.Price - f.Commission

	pos := l.positions[f.Symbol]
	pos.Symbol = f.Symbol

	switch {
	case pos.Quantity > 0 && f.Quantity <= pos.Quantity:
		// Reduce or close a long. Basis is unchanged on a partial
		// reduction.
		pnl := (f.Price - pos.AvgPrice) * f.Quantity
		pos.Quantity -= f.Quantity
		if pos.Quantity == 0 {
			l.closedTrades = append(l.closedTrades, ClosedTrade{
				Symbol:      f.Symbol,
				RealizedPnL: pnl,
				Time:        f.Time,
			})
		}

	case pos.Quantity > 0:
		// Close the whole long and flip short with the remainder at the
		// fill price.
		pnl := (f.Price - pos.AvgPrice) * pos.Quantity
		l.closedTrades = append(l.closedTrades, ClosedTrade{
			Symbol:      f.Symbol,
			RealizedPnL: pnl,
			Time:        f.Time,
		})
		pos.Quantity = -(f.Quantity - pos.Quantity)
		pos.AvgPrice = f.Price

	default:
		// Flat or already short: open or increase the short at the
		// weighted-average short entry price.
		oldAbs := -pos.Quantity
		newAbs := oldAbs + f.Quantity
		pos.AvgPrice = (oldAbs*pos.AvgPrice + f.Quantity*f.Price) / newAbs
		pos.Quantity = -newAbs
	}

	l.setPosition(pos)
}

// setPosition stores the position, enforcing the removal-on-zero invariant:
// a position whose quantity hits exactly zero leaves the active set.
func (l *Ledger) setPosition(pos Position) {
	if pos.Quantity == 0 {
		delete(l.positions, pos.Symbol)
		return
	}
	l.positions[pos.Symbol] = pos
}

// MarkToMarket appends one equity point valuing open positions at the given
// prices. A symbol missing from prices contributes zero, so callers must
// supply prices for every open symbol to avoid distorting the curve.
func (l *Ledger) MarkToMarket(prices map[string]float64, ts time.Time) {
	equity := l.cash
	for sym, pos := range l.positions {
		equity += pos.Quantity * prices[sym]
	}
	l.equityCurve = append(l.equityCurve, EquityPoint{Time: ts, Equity: equity})
}
