package http

import (
	"net/http"

	"creatorfin/internal/log"
)

type quarterlyEstimateResponse struct {
	Year              int     `json:"year"`
	CurrentQuarter    int     `json:"currentQuarter"`
	TotalEarnings     float64 `json:"totalEarnings"`
	TotalExpenses     float64 `json:"totalExpenses"`
	NetIncome         float64 `json:"netIncome"`
	StandardDeduction float64 `json:"standardDeduction"`
	TaxableIncome     float64 `json:"taxableIncome"`
	FederalIncomeTax  float64 `json:"federalIncomeTax"`
	SelfEmploymentTax float64 `json:"selfEmploymentTax"`
	TotalTaxLiability float64 `json:"totalTaxLiability"`
	QuarterlyEstimate float64 `json:"quarterlyEstimate"`
	EffectiveTaxRate  float64 `json:"effectiveTaxRate"`
	Disclaimer        string  `json:"disclaimer"`
}

type categoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type deductionsResponse struct {
	Year                 int              `json:"year"`
	DeductionsByCategory []categoryAmount `json:"deductionsByCategory"`
	TotalDeductions      float64          `json:"totalDeductions"`
	StandardDeduction    float64          `json:"standardDeduction"`
	DeductionSavings     float64          `json:"deductionSavings"`
}

type breakdownResponse struct {
	Year               int     `json:"year"`
	GrossIncome        float64 `json:"grossIncome"`
	BusinessExpenses   float64 `json:"businessExpenses"`
	NetIncome          float64 `json:"netIncome"`
	StandardDeduction  float64 `json:"standardDeduction"`
	TaxableIncome      float64 `json:"taxableIncome"`
	FederalIncomeTax   float64 `json:"federalIncomeTax"`
	SelfEmploymentTax  float64 `json:"selfEmploymentTax"`
	TotalTaxObligation float64 `json:"totalTaxObligation"`
	TakeHome           float64 `json:"takeHome"`
	MarginalRate       float64 `json:"marginalRate"`
	EffectiveTaxRate   float64 `json:"effectiveTaxRate"`
	Disclaimer         string  `json:"disclaimer"`
}

func (s *Server) handleQuarterlyEstimate(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	year, err := ParseYear(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err, log.OpEstimate, "Failed to calculate tax estimate")
		return
	}

	snap, err := s.tax.QuarterlyEstimate(r.Context(), uid, year)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpEstimate, "Failed to calculate tax estimate")
		return
	}

	NewJSONResponse().Body(quarterlyEstimateResponse{
		Year:              snap.Year,
		CurrentQuarter:    snap.Quarter,
		TotalEarnings:     money(snap.GrossIncome),
		TotalExpenses:     money(snap.Expenses),
		NetIncome:         money(snap.NetIncome),
		StandardDeduction: money(snap.StandardDeduction),
		TaxableIncome:     money(snap.TaxableIncome),
		FederalIncomeTax:  money(snap.FederalTax),
		SelfEmploymentTax: money(snap.SETax),
		TotalTaxLiability: money(snap.TotalTax),
		QuarterlyEstimate: money(snap.QuarterlyEstimate),
		EffectiveTaxRate:  money(snap.EffectiveRate),
		Disclaimer:        Disclaimer,
	}).Write(w)
}

func (s *Server) handleDeductions(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	year, err := ParseYear(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead, "Failed to fetch deductions")
		return
	}

	sum, err := s.tax.Deductions(r.Context(), uid, year)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead, "Failed to fetch deductions")
		return
	}

	byCategory := make([]categoryAmount, 0, len(sum.ByCategory))
	for _, ct := range sum.ByCategory {
		byCategory = append(byCategory, categoryAmount{Category: string(ct.Category), Amount: money(ct.Total)})
	}
	NewJSONResponse().Body(deductionsResponse{
		Year:                 sum.Year,
		DeductionsByCategory: byCategory,
		TotalDeductions:      money(sum.TotalDeductions),
		StandardDeduction:    money(sum.StandardDeduction),
		DeductionSavings:     money(sum.Savings),
	}).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userFrom(w, r)
	if !ok {
		return
	}
	year, err := ParseYear(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err, log.OpEstimate, "Failed to calculate tax breakdown")
		return
	}

	b, err := s.tax.Breakdown(r.Context(), uid, year)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpEstimate, "Failed to calculate tax breakdown")
		return
	}

	NewJSONResponse().Body(breakdownResponse{
		Year:               b.Year,
		GrossIncome:        money(b.GrossIncome),
		BusinessExpenses:   money(b.Expenses),
		NetIncome:          money(b.NetIncome),
		StandardDeduction:  money(b.StandardDeduction),
		TaxableIncome:      money(b.TaxableIncome),
		FederalIncomeTax:   money(b.FederalTax),
		SelfEmploymentTax:  money(b.SETax),
		TotalTaxObligation: money(b.TotalTax),
		TakeHome:           money(b.TakeHome),
		MarginalRate:       money(b.MarginalRate.Mul(hundred)),
		EffectiveTaxRate:   money(b.EffectiveRate),
		Disclaimer:         Disclaimer,
	}).Write(w)
}
