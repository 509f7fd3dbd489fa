package orderbook

import "github.com/shopspring/decimal"

// Prices and amounts are integers in the asset's smallest unit, with prices
// carrying 18 decimals of quote per one whole base unit.
var (
	// PriceScale divides the raw qty*price product down to quote units.
	PriceScale = decimal.New(1, 18)

	// MinAmount is the dust threshold: no order price or amount, and no
	// resting residual, may fall below it.
	MinAmount = decimal.New(1, 9)
)

// QuoteCost is the quote-asset cost of qty base units at price, truncated
// toward zero. The truncated fraction stays with the paying side, which is
// what keeps per-asset sums invariant across fills.
func QuoteCost(qty, price decimal.Decimal) decimal.Decimal {
	q, _ := qty.Mul(price).QuoRem(PriceScale, 0)
	return q
}
