// Package reporting derives risk-adjusted performance statistics from a
// finished backtest's equity curve and trade logs.
package reporting

import (
	"fmt"
	"math"
	"sort"

	"github.com/quantlab/backtest/portfolio"
)

// tradingDaysPerYear is the annualization factor for bar returns.
const tradingDaysPerYear = 252

// Analyzer is a pure function of its constructor inputs: the same curve and
// logs always produce the same report. Every metric degrades to a defined
// sentinel (0 or +Inf) on degenerate input instead of returning NaN or
// panicking.
type Analyzer struct {
	curve         []portfolio.EquityPoint
	fills         []portfolio.Fill
	closedTrades  []portfolio.ClosedTrade
	riskFreeRate  float64
	varConfidence float64
}

// NewAnalyzer builds an analyzer over a completed run. riskFreeRate is
// annualized (e.g. 0.02); varConfidence is the VaR confidence level
// (e.g. 0.99).
func NewAnalyzer(
	curve []portfolio.EquityPoint,
	fills []portfolio.Fill,
	closedTrades []portfolio.ClosedTrade,
	riskFreeRate float64,
	varConfidence float64,
) *Analyzer {
	return &Analyzer{
		curve:         curve,
		fills:         fills,
		closedTrades:  closedTrades,
		riskFreeRate:  riskFreeRate,
		varConfidence: varConfidence,
	}
}

// Returns is the fractional change between consecutive equity points. The
// first point has no return. A zero-equity predecessor yields a zero return
// rather than a division blowup.
func (a *Analyzer) Returns() []float64 {
	if len(a.curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(a.curve)-1)
	for i := 1; i < len(a.curve); i++ {
		prev := a.curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, a.curve[i].Equity/prev-1)
	}
	return out
}

// SharpeRatio is (mean return * 252 - riskFreeRate) / (stdev * sqrt(252)).
// Zero when there are no returns or no variance.
func (a *Analyzer) SharpeRatio() float64 {
	returns := a.Returns()
	if len(returns) == 0 {
		return 0
	}
	annStd := sampleStdDev(returns) * math.Sqrt(tradingDaysPerYear)
	if annStd == 0 {
		return 0
	}
	return (mean(returns)*tradingDaysPerYear - a.riskFreeRate) / annStd
}

// SortinoRatio uses downside deviation in the denominator. It is +Inf when
// no negative returns were observed and zero when the downside deviation is
// zero or undefined.
func (a *Analyzer) SortinoRatio() float64 {
	returns := a.Returns()
	if len(returns) == 0 {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return math.Inf(1)
	}
	downStd := sampleStdDev(downside) * math.Sqrt(tradingDaysPerYear)
	if downStd == 0 {
		return 0
	}
	return (mean(returns)*tradingDaysPerYear - a.riskFreeRate) / downStd
}

// MaxDrawdown is the most negative fractional decline from the running
// equity peak; always <= 0, and 0 for an empty curve.
func (a *Analyzer) MaxDrawdown() float64 {
	if len(a.curve) == 0 {
		return 0
	}
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, p := range a.curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (p.Equity - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// WinLossRatio is wins (closed-trade PnL > 0) over losses (PnL <= 0); +Inf
// when there are wins but no losses, zero when there are no closed trades.
func (a *Analyzer) WinLossRatio() float64 {
	if len(a.closedTrades) == 0 {
		return 0
	}
	wins, losses := 0, 0
	for _, ct := range a.closedTrades {
		if ct.RealizedPnL > 0 {
			wins++
		} else {
			losses++
		}
	}
	if losses == 0 {
		if wins > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return float64(wins) / float64(losses)
}

// CAGR is the compound annual growth rate over the simulated horizon, using
// 365-day years. When the run lost money it deliberately falls back to a
// linear approximation, (end/start - 1) / years, rather than true
// compounding; the simplification is preserved from the metric's original
// definition. Zero for empty curves, non-positive starting equity, or a
// non-positive horizon.
func (a *Analyzer) CAGR() float64 {
	if len(a.curve) == 0 {
		return 0
	}
	start := a.curve[0].Equity
	end := a.curve[len(a.curve)-1].Equity
	if start <= 0 {
		return 0
	}
	days := a.curve[len(a.curve)-1].Time.Sub(a.curve[0].Time).Hours() / 24
	years := days / 365.0
	if years <= 0 {
		return 0
	}
	if end < start {
		return (end/start - 1) / years
	}
	return math.Pow(end/start, 1/years) - 1
}

// Volatility is the annualized standard deviation of returns; zero when
// there are no returns.
func (a *Analyzer) Volatility() float64 {
	returns := a.Returns()
	if len(returns) == 0 {
		return 0
	}
	return sampleStdDev(returns) * math.Sqrt(tradingDaysPerYear)
}

// ValueAtRisk is the empirical historical loss quantile at the given
// confidence level: returns sorted ascending, index floor(n*(1-confidence)),
// no interpolation. Zero when there are no returns.
func (a *Analyzer) ValueAtRisk(confidence float64) float64 {
	returns := a.Returns()
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return math.Abs(sorted[idx])
}

// Report assembles every metric into one ordered mapping. Calling it twice
// on the same analyzer yields identical output.
func (a *Analyzer) Report() *Report {
	varName := fmt.Sprintf("Value at Risk (%.0f%%)", a.varConfidence*100)

	initialCash, finalEquity := 0.0, 0.0
	if len(a.curve) > 0 {
		initialCash = a.curve[0].Equity
		finalEquity = a.curve[len(a.curve)-1].Equity
	}

	r := NewReport()
	r.Set("Sharpe Ratio", a.SharpeRatio())
	r.Set("Sortino Ratio", a.SortinoRatio())
	r.Set("Max Drawdown", a.MaxDrawdown())
	r.Set("Win/Loss Ratio", a.WinLossRatio())
	r.Set("CAGR", a.CAGR())
	r.Set("Volatility", a.Volatility())
	r.Set(varName, a.ValueAtRisk(a.varConfidence))
	r.Set("Initial Cash", initialCash)
	r.Set("Final Equity", finalEquity)
	r.Set("Total Trades", float64(len(a.fills)))
	return r
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStdDev is the n-1 denominator standard deviation; zero for fewer
// than two observations.
func sampleStdDev(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}
