package portfolio

import "time"

// Side is the direction of a fill.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Fill is an executed order intent. It is immutable once the ledger has
// accepted it.
type Fill struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Quantity   float64   `json:"quantity"`   // always > 0; direction comes from Side
	Price      float64   `json:"price"`      // always > 0
	Commission float64   `json:"commission"` // >= 0
	Time       time.Time `json:"time"`
}

// Position is an open holding. Quantity is signed: positive means long,
// negative means short. AvgPrice is the weighted-average entry price of the
// open quantity and is meaningless once Quantity reaches zero, at which point
// the ledger removes the position entirely.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// ClosedTrade is emitted exactly when a position's quantity transitions to
// zero, carrying the realized profit or loss of the closing leg.
type ClosedTrade struct {
	Symbol      string    `json:"symbol"`
	RealizedPnL float64   `json:"realized_pnl"`
	Time        time.Time `json:"time"`
}

// EquityPoint is one mark-to-market sample of total portfolio value:
// cash plus open positions valued at the supplied prices.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}
