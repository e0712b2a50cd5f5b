package strategies

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/quantlab/backtest/logger"
	"github.com/quantlab/backtest/marketdata"
)

// Predictive is a placeholder for a model-driven strategy. It simulates a
// next-bar price forecast by perturbing the current close with injected
// randomness and trades a 0.5% edge threshold. Runs are deterministic for a
// fixed seed; the randomness is a property of this variant, not of the
// engine.
type Predictive struct {
	Base

	// Threshold is the fractional predicted move required to act.
	Threshold float64

	rng        *rand.Rand
	inPosition bool
}

// NewPredictive builds the placeholder predictive variant seeded from
// Params.Seed.
func NewPredictive(p Params, log *logger.Logger) *Predictive {
	if log == nil {
		log = logger.Nop()
	}
	s := &Predictive{
		Threshold: 0.005,
		rng:       rand.New(rand.NewSource(p.Seed)),
	}
	s.Symbol = p.Symbol
	s.StopLossPct = p.StopLossPct
	s.Log = log.Named("predictive")
	return s
}

func (s *Predictive) Name() string { return "predictive" }

func (s *Predictive) OnBar(i int, bar marketdata.Bar) error {
	s.MarkBar(i)

	price, ok := bar.Price(s.Symbol)
	if !ok {
		return nil
	}

	// Simulated forecast: current price perturbed by +/-1%.
	predicted := price * (1 + (s.rng.Float64()-0.5)*0.02)

	switch {
	case predicted > price*(1+s.Threshold) && !s.inPosition:
		qty := math.Floor(s.Ledger().Cash() / price)
		if qty > 0 && s.Buy(qty, price, 0) {
			s.inPosition = true
			s.Log.Info("buy on forecast",
				zap.Time("time", bar.Time),
				zap.Float64("price", price),
				zap.Float64("predicted", predicted),
				zap.Float64("quantity", qty))
		}

	case predicted < price*(1-s.Threshold) && s.inPosition:
		if pos, open := s.Ledger().Position(s.Symbol); open && pos.Quantity > 0 {
			if s.Sell(pos.Quantity, price, 0) {
				s.Log.Info("sell on forecast",
					zap.Time("time", bar.Time),
					zap.Float64("price", price),
					zap.Float64("predicted", predicted),
					zap.Float64("quantity", pos.Quantity))
			}
		}
		s.inPosition = false
	}
	return nil
}
