package tax

import "github.com/shopspring/decimal"

var (
	// SelfEmploymentBase is the share of net income subject to SE tax.
	SelfEmploymentBase = decimal.RequireFromString("0.9235")
	// SelfEmploymentRate is the combined social security and medicare rate.
	SelfEmploymentRate = decimal.RequireFromString("0.153")
)

// SelfEmploymentTax is netIncome * 0.9235 * 0.153.
//
// Negative net income yields a negative result; callers decide whether to
// clamp it.
func SelfEmploymentTax(netIncome decimal.Decimal) decimal.Decimal {
	return netIncome.Mul(SelfEmploymentBase).Mul(SelfEmploymentRate)
}
