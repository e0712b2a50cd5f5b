package strategies

import (
	"math"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
)

// RSI buys when the relative strength index falls below the oversold
// threshold and sells the position back when it rises above the overbought
// threshold.
type RSI struct {
	Base

	Period     int
	Overbought float64
	Oversold   float64

	closes     []float64
	inPosition bool
}

// NewRSI builds the RSI variant. Defaults: 14-period, 70/30 thresholds.
func NewRSI(p Params, log *logger.Logger) *RSI {
	if log == nil {
		log = logger.Nop()
	}
	s := &RSI{
		Period:     p.RSIPeriod,
		Overbought: p.Overbought,
		Oversold:   p.Oversold,
	}
	if s.Period <= 0 {
		s.Period = 14
	}
	if s.Overbought == 0 {
		s.Overbought = 70
	}
	if s.Oversold == 0 {
		s.Oversold = 30
	}
	s.Symbol = p.Symbol
	s.StopLossPct = p.StopLossPct
	s.Log = log.Named("rsi")
	return s
}

func (s *RSI) Name() string { return "rsi" }

// window keeps several periods of history so Wilder smoothing has settled
// before signals fire.
func (s *RSI) window() int { return 4 * s.Period }

func (s *RSI) OnBar(i int, bar marketdata.Bar) error {
	s.MarkBar(i)

	price, ok := bar.Price(s.Symbol)
	if !ok {
		return nil
	}
	s.closes = push(s.closes, price, s.window())
	if len(s.closes) <= s.Period {
		return nil
	}

	rsi := last(talib.Rsi(s.closes, s.Period))

	switch {
	case rsi < s.Oversold && !s.inPosition:
		qty := math.Floor(s.Ledger().Cash() / price)
		if qty > 0 && s.Buy(qty, price, 0) {
			s.inPosition = true
			s.Log.Info("buy",
				zap.Time("time", bar.Time),
				zap.Float64("rsi", rsi),
				zap.Float64("quantity", qty),
				zap.Float64("price", price))
		}

	case rsi > s.Overbought && s.inPosition:
		if pos, open := s.Ledger().Position(s.Symbol); open && pos.Quantity > 0 {
			if s.Sell(pos.Quantity, price, 0) {
				s.Log.Info("sell",
					zap.Time("time", bar.Time),
					zap.Float64("rsi", rsi),
					zap.Float64("quantity", pos.Quantity),
					zap.Float64("price", price))
			}
		}
		s.inPosition = false
	}
	return nil
}
