package strategies

import (
	"math"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
)

// PairsTrading trades the mean reversion of the price spread between two
// correlated symbols: when the spread z-score stretches past the entry
// threshold it shorts the rich leg and buys the cheap one with equal cash,
// unwinding both legs once the z-score collapses inside the exit threshold.
type PairsTrading struct {
	Base

	Symbol2     string
	Window      int
	EntryZScore float64
	ExitZScore  float64

	spread     []float64
	inPosition bool
}

// NewPairsTrading builds the pairs variant. Defaults: 60-bar window, enter
// at |z| > 2, exit at |z| < 0.5. The tracked symbol is the first leg.
func NewPairsTrading(p Params, log *logger.Logger) *PairsTrading {
	if log == nil {
		log = logger.Nop()
	}
	s := &PairsTrading{
		Symbol2:     p.Symbol2,
		Window:      p.Window,
		EntryZScore: p.EntryZScore,
		ExitZScore:  p.ExitZScore,
	}
	if s.Window <= 0 {
		s.Window = 60
	}
	if s.EntryZScore <= 0 {
		s.EntryZScore = 2.0
	}
	if s.ExitZScore <= 0 {
		s.ExitZScore = 0.5
	}
	s.Symbol = p.Symbol
	s.StopLossPct = p.StopLossPct
	s.Log = log.Named("pairs-trading")
	return s
}

func (s *PairsTrading) Name() string { return "pairs-trading" }

func (s *PairsTrading) OnBar(i int, bar marketdata.Bar) error {
	s.MarkBar(i)

	price1, ok1 := bar.Price(s.Symbol)
	price2, ok2 := bar.Price(s.Symbol2)
	if !ok1 || !ok2 {
		// A missing leg is local to this strategy; skip the bar rather
		// than abort the run.
		s.Log.Warn("missing price for pair leg, skipping bar",
			zap.Time("time", bar.Time),
			zap.Bool("have_leg1", ok1),
			zap.Bool("have_leg2", ok2))
		return nil
	}

	s.spread = push(s.spread, price1-price2, s.Window)
	if len(s.spread) < s.Window {
		return nil
	}

	mean := last(talib.Sma(s.spread, s.Window))
	sd := last(talib.StdDev(s.spread, s.Window, 1.0))
	if sd == 0 {
		return nil
	}
	z := (price1 - price2 - mean) / sd

	if !s.inPosition {
		switch {
		case z > s.EntryZScore:
			s.enter(bar, price1, price2, true, z)
		case z < -s.EntryZScore:
			s.enter(bar, price1, price2, false, z)
		}
		return nil
	}

	if math.Abs(z) < s.ExitZScore {
		s.exit(bar, price1, price2, z)
	}
	return nil
}

// enter opens the two legs with roughly equal cash. shortFirst means the
// first leg is rich: short it and buy the second leg.
func (s *PairsTrading) enter(bar marketdata.Bar, price1, price2 float64, shortFirst bool, z float64) {
	cash := s.Ledger().Cash()
	qty1 := math.Floor(cash * 0.5 / price1)
	qty2 := math.Floor(cash * 0.5 / price2)
	if qty1 <= 0 || qty2 <= 0 {
		return
	}

	var ok bool
	if shortFirst {
		ok = s.SellSymbol(s.Symbol, qty1, price1, 0) && s.BuySymbol(s.Symbol2, qty2, price2, 0)
	} else {
		ok = s.BuySymbol(s.Symbol, qty1, price1, 0) && s.SellSymbol(s.Symbol2, qty2, price2, 0)
	}
	if !ok {
		s.Log.Warn("pair entry partially rejected", zap.Time("time", bar.Time))
	}

	s.inPosition = true
	s.Log.Info("enter pair",
		zap.Time("time", bar.Time),
		zap.Bool("short_first_leg", shortFirst),
		zap.Float64("zscore", z),
		zap.Float64("spread", price1-price2))
}

// exit flattens whatever is open on either leg, regardless of direction.
func (s *PairsTrading) exit(bar marketdata.Bar, price1, price2, z float64) {
	s.closeLeg(s.Symbol, price1)
	s.closeLeg(s.Symbol2, price2)
	s.inPosition = false
	s.Log.Info("exit pair",
		zap.Time("time", bar.Time),
		zap.Float64("zscore", z),
		zap.Float64("spread", price1-price2))
}

func (s *PairsTrading) closeLeg(symbol string, price float64) {
	pos, open := s.Ledger().Position(symbol)
	if !open {
		return
	}
	if pos.Quantity > 0 {
		s.SellSymbol(symbol, pos.Quantity, price, 0)
	} else {
		s.BuySymbol(symbol, -pos.Quantity, price, 0)
	}
}
