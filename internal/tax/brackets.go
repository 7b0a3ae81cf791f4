// Package tax estimates US federal income tax and self-employment tax for a
// single filer. Every function here is pure; totals come from the caller.
package tax

import "github.com/shopspring/decimal"

// Bracket taxes the slice of income in [Min, Max) at Rate. An invalid Max
// means the bracket has no upper bound.
type Bracket struct {
	Min  decimal.Decimal
	Max  decimal.NullDecimal
	Rate decimal.Decimal
}

// Schedule is an ascending, non-overlapping bracket table starting at zero.
type Schedule []Bracket

// SingleFiler2024 is the 2024 federal schedule for a single filer.
var SingleFiler2024 = Schedule{
	bracket(0, 11600, "0.10"),
	bracket(11600, 47150, "0.12"),
	bracket(47150, 100525, "0.22"),
	bracket(100525, 191950, "0.24"),
	bracket(191950, 243725, "0.32"),
	bracket(243725, 609350, "0.35"),
	{Min: decimal.NewFromInt(609350), Rate: decimal.RequireFromString("0.37")},
}

func bracket(min, max int64, rate string) Bracket {
	return Bracket{
		Min:  decimal.NewFromInt(min),
		Max:  decimal.NewNullDecimal(decimal.NewFromInt(max)),
		Rate: decimal.RequireFromString(rate),
	}
}

// Tax accumulates marginal tax over every bracket that starts below income.
// Zero or negative income owes nothing.
func (s Schedule) Tax(income decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	if !income.IsPositive() {
		return total
	}
	for _, b := range s {
		if !b.Min.LessThan(income) {
			continue
		}
		upper := income
		if b.Max.Valid && b.Max.Decimal.LessThan(income) {
			upper = b.Max.Decimal
		}
		total = total.Add(upper.Sub(b.Min).Mul(b.Rate))
	}
	return total
}

// MarginalRate returns the rate of the bracket income falls into.
func (s Schedule) MarginalRate(income decimal.Decimal) decimal.Decimal {
	rate := decimal.Zero
	for _, b := range s {
		if income.GreaterThanOrEqual(b.Min) {
			rate = b.Rate
		}
	}
	return rate
}

// FederalTax applies SingleFiler2024 to taxable income.
func FederalTax(taxableIncome decimal.Decimal) decimal.Decimal {
	return SingleFiler2024.Tax(taxableIncome)
}
