package pricing

import "github.com/shopspring/decimal"

// Round2 rounds v to cents for display. Never feed the result back into a
// calculation.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatMoney renders v with exactly two decimals, e.g. "134.56".
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
