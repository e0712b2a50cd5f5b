package strategies

import (
	"math"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
)

// MACrossover goes all-in long when the short moving average sits above the
// long one and flat when it drops back below.
type MACrossover struct {
	Base

	ShortWindow int
	LongWindow  int

	closes     []float64
	inPosition bool
}

// NewMACrossover builds the crossover variant. Defaults: 50/200 windows.
func NewMACrossover(p Params, log *logger.Logger) *MACrossover {
	if log == nil {
		log = logger.Nop()
	}
	s := &MACrossover{
		ShortWindow: p.ShortWindow,
		LongWindow:  p.LongWindow,
	}
	if s.ShortWindow <= 0 {
		s.ShortWindow = 50
	}
	if s.LongWindow <= 0 {
		s.LongWindow = 200
	}
	s.Symbol = p.Symbol
	s.StopLossPct = p.StopLossPct
	s.Log = log.Named("ma-crossover")
	return s
}

func (s *MACrossover) Name() string { return "ma-crossover" }

func (s *MACrossover) OnBar(i int, bar marketdata.Bar) error {
	s.MarkBar(i)

	price, ok := bar.Price(s.Symbol)
	if !ok {
		return nil
	}
	s.closes = push(s.closes, price, s.LongWindow)
	if len(s.closes) < s.LongWindow {
		return nil
	}

	shortMA := last(talib.Sma(s.closes, s.ShortWindow))
	longMA := last(talib.Sma(s.closes, s.LongWindow))

	switch {
	case shortMA > longMA && !s.inPosition:
		qty := math.Floor(s.Ledger().Cash() / price)
		if qty > 0 && s.Buy(qty, price, 0) {
			s.inPosition = true
			s.Log.Info("buy",
				zap.Time("time", bar.Time),
				zap.Float64("quantity", qty),
				zap.Float64("price", price))
		}

	case shortMA < longMA && s.inPosition:
		if pos, open := s.Ledger().Position(s.Symbol); open && pos.Quantity > 0 {
			if s.Sell(pos.Quantity, price, 0) {
				s.Log.Info("sell",
					zap.Time("time", bar.Time),
					zap.Float64("quantity", pos.Quantity),
					zap.Float64("price", price))
			}
		}
		// The stop loss may have flattened us already.
		s.inPosition = false
	}
	return nil
}
