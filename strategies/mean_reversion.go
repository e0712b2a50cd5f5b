package strategies

import (
	"math"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
)

// MeanReversion buys when price drops below the lower Bollinger-style band
// around a rolling mean and sells when it trades back above the upper band.
type MeanReversion struct {
	Base

	Window    int
	NumStdDev float64

	closes     []float64
	inPosition bool
}

// NewMeanReversion builds the mean-reversion variant. Defaults: 20-bar
// window, 2 standard deviations.
func NewMeanReversion(p Params, log *logger.Logger) *MeanReversion {
	if log == nil {
		log = logger.Nop()
	}
	s := &MeanReversion{
		Window:    p.Window,
		NumStdDev: p.NumStdDev,
	}
	if s.Window <= 0 {
		s.Window = 20
	}
	if s.NumStdDev <= 0 {
		s.NumStdDev = 2.0
	}
	s.Symbol = p.Symbol
	s.StopLossPct = p.StopLossPct
	s.Log = log.Named("mean-reversion")
	return s
}

func (s *MeanReversion) Name() string { return "mean-reversion" }

func (s *MeanReversion) OnBar(i int, bar marketdata.Bar) error {
	s.MarkBar(i)

	price, ok := bar.Price(s.Symbol)
	if !ok {
		return nil
	}
	s.closes = push(s.closes, price, s.Window)
	if len(s.closes) < s.Window {
		return nil
	}

	mean := last(talib.Sma(s.closes, s.Window))
	sd := last(talib.StdDev(s.closes, s.Window, 1.0))
	upper := mean + sd*s.NumStdDev
	lower := mean - sd*s.NumStdDev

	switch {
	case price < lower && !s.inPosition:
		qty := math.Floor(s.Ledger().Cash() / price)
		if qty > 0 && s.Buy(qty, price, 0) {
			s.inPosition = true
			s.Log.Info("buy below lower band",
				zap.Time("time", bar.Time),
				zap.Float64("price", price),
				zap.Float64("lower", lower),
				zap.Float64("quantity", qty))
		}

	case price > upper && s.inPosition:
		if pos, open := s.Ledger().Position(s.Symbol); open && pos.Quantity > 0 {
			if s.Sell(pos.Quantity, price, 0) {
				s.Log.Info("sell above upper band",
					zap.Time("time", bar.Time),
					zap.Float64("price", price),
					zap.Float64("upper", upper),
					zap.Float64("quantity", pos.Quantity))
			}
		}
		s.inPosition = false
	}
	return nil
}
