package tax

import (
	"sort"

	"github.com/shopspring/decimal"

	"creatorfin/internal/core"
)

var (
	// StandardDeduction is the fixed 2024 single-filer deduction.
	StandardDeduction = decimal.NewFromInt(14600)
	// DeductionSavingsRate approximates the marginal rate used for
	// itemized-deduction savings.
	DeductionSavingsRate = decimal.RequireFromString("0.24")

	hundred = decimal.NewFromInt(100)
	four    = decimal.NewFromInt(4)
)

// Totals are the year-to-date sums a snapshot is computed from.
type Totals struct {
	Gross    decimal.Decimal `json:"gross"`
	Expenses decimal.Decimal `json:"expenses"`
}

// Snapshot is a derived, unpersisted tax estimate. Values are full
// precision; call Rounded before presenting them.
type Snapshot struct {
	Year              int
	Quarter           int
	GrossIncome       decimal.Decimal
	Expenses          decimal.Decimal
	NetIncome         decimal.Decimal
	StandardDeduction decimal.Decimal
	TaxableIncome     decimal.Decimal
	FederalTax        decimal.Decimal
	SETax             decimal.Decimal
	TotalTax          decimal.Decimal
	QuarterlyEstimate decimal.Decimal
	EffectiveRate     decimal.Decimal
	TakeHome          decimal.Decimal
}

// Estimate computes a snapshot for one year of totals.
func Estimate(year, quarter int, t Totals) Snapshot {
	net := t.Gross.Sub(t.Expenses)
	taxable := decimal.Max(decimal.Zero, net.Sub(StandardDeduction))
	federal := FederalTax(taxable)
	se := SelfEmploymentTax(net)
	total := federal.Add(se)

	rate := decimal.Zero
	if net.IsPositive() {
		rate = total.Div(net).Mul(hundred)
	}

	return Snapshot{
		Year:              year,
		Quarter:           quarter,
		GrossIncome:       t.Gross,
		Expenses:          t.Expenses,
		NetIncome:         net,
		StandardDeduction: StandardDeduction,
		TaxableIncome:     taxable,
		FederalTax:        federal,
		SETax:             se,
		TotalTax:          total,
		QuarterlyEstimate: total.Div(four),
		EffectiveRate:     rate,
		TakeHome:          net.Sub(total),
	}
}

// Rounded returns a copy with every monetary field rounded to cents,
// half away from zero.
func (s Snapshot) Rounded() Snapshot {
	r := s
	for _, f := range []*decimal.Decimal{
		&r.GrossIncome, &r.Expenses, &r.NetIncome, &r.StandardDeduction, &r.TaxableIncome,
		&r.FederalTax, &r.SETax, &r.TotalTax, &r.QuarterlyEstimate, &r.EffectiveRate, &r.TakeHome,
	} {
		*f = f.Round(2)
	}
	return r
}

// DeductionSummary groups deductible expenses by category.
type DeductionSummary struct {
	Year              int
	ByCategory        []core.CategoryTotal
	TotalDeductions   decimal.Decimal
	StandardDeduction decimal.Decimal
	Savings           decimal.Decimal
}

// SummarizeDeductions orders categories by total descending, then by name,
// and estimates savings at a flat DeductionSavingsRate on whatever exceeds
// the standard deduction.
func SummarizeDeductions(year int, totals []core.CategoryTotal) DeductionSummary {
	byCategory := make([]core.CategoryTotal, len(totals))
	copy(byCategory, totals)
	sort.SliceStable(byCategory, func(i, j int) bool {
		if c := byCategory[i].Total.Cmp(byCategory[j].Total); c != 0 {
			return c > 0
		}
		return byCategory[i].Category < byCategory[j].Category
	})

	sum := decimal.Zero
	for _, ct := range byCategory {
		sum = sum.Add(ct.Total)
	}
	excess := decimal.Max(decimal.Zero, sum.Sub(StandardDeduction))

	return DeductionSummary{
		Year:              year,
		ByCategory:        byCategory,
		TotalDeductions:   sum.Round(2),
		StandardDeduction: StandardDeduction,
		Savings:           excess.Mul(DeductionSavingsRate).Round(2),
	}
}
