package reporting

import (
	"encoding/json"
	"io"

	"github.com/quantlab/backtest/portfolio"
)

// RunResult is the exportable outcome of one (instrument, strategy) run.
type RunResult struct {
	EquityCurve       []portfolio.EquityPoint `json:"equity_curve"`
	PerformanceReport *Report                 `json:"performance_report"`
}

// ResultSet maps instrument key (a ticker, or "A-B" for a pair) to strategy
// name to run result. It is the boundary handed to external persistence and
// visualization.
type ResultSet map[string]map[string]RunResult

// Add records a run result under the given instrument and strategy keys.
func (rs ResultSet) Add(instrument, strategy string, res RunResult) {
	if rs[instrument] == nil {
		rs[instrument] = make(map[string]RunResult)
	}
	rs[instrument][strategy] = res
}

// WriteJSON serializes the result set with indentation. Output is
// deterministic: encoding/json sorts map keys.
func (rs ResultSet) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs)
}

// PairKey builds the instrument key for a two-legged run.
func PairKey(symbol1, symbol2 string) string {
	return symbol1 + "-" + symbol2
}
