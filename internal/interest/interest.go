// Package interest computes interest owed on a principal. Currency is
// fixed-point decimal throughout; float64 is never used for money.
package interest

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Amount returns floor(principal * ratePercent * duration / 100).
// Deterministic and side-effect free.
func Amount(principal decimal.Decimal, ratePercent int64, duration int) decimal.Decimal {
	return principal.
		Mul(decimal.NewFromInt(ratePercent)).
		Mul(decimal.NewFromInt(int64(duration))).
		Div(hundred).
		Floor()
}
