package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"creatorfin/internal/cache"
	"creatorfin/internal/core"
	"creatorfin/internal/ledger/memory"
	"creatorfin/internal/tax"
)

// countingTotals wraps the memory store and counts sum queries.
type countingTotals struct {
	*memory.Store
	sums atomic.Int32
	err  error
}

func (c *countingTotals) SumEarnings(ctx context.Context, userID string, p core.Period) (decimal.Decimal, error) {
	c.sums.Add(1)
	if c.err != nil {
		return decimal.Zero, c.err
	}
	return c.Store.SumEarnings(ctx, userID, p)
}

func (c *countingTotals) SumExpenses(ctx context.Context, userID string, p core.Period) (decimal.Decimal, error) {
	c.sums.Add(1)
	return c.Store.SumExpenses(ctx, userID, p)
}

func seedLedger(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.CreateEarning(ctx, core.Earning{UserID: "u", Source: "Sponsor", Platform: core.PlatformManual,
		Amount: decimal.NewFromInt(80000), Date: core.NewDate(2024, 3, 1)})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []core.Expense{
		{UserID: "u", Category: core.CategorySoftware, Amount: decimal.NewFromInt(3000), Date: core.NewDate(2024, 4, 1), IsDeductible: true},
		{UserID: "u", Category: core.CategoryTravel, Amount: decimal.NewFromInt(1500), Date: core.NewDate(2024, 5, 1), IsDeductible: true},
		{UserID: "u", Category: core.CategoryOther, Amount: decimal.NewFromInt(500), Date: core.NewDate(2024, 6, 1), IsDeductible: false},
	} {
		if _, err := s.CreateExpense(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
}

func newTaxService(t *testing.T) (*TaxService, *countingTotals) {
	t.Helper()
	store := &countingTotals{Store: memory.New()}
	seedLedger(t, store.Store)
	svc := NewTaxService(store, cache.NewLRUCache[tax.Totals](100, time.Minute))
	svc.now = func() time.Time { return time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestTaxService_QuarterlyEstimate(t *testing.T) {
	svc, _ := newTaxService(t)

	snap, err := svc.QuarterlyEstimate(context.Background(), "u", 0)
	if err != nil {
		t.Fatalf("QuarterlyEstimate: %v", err)
	}
	if snap.Year != 2024 || snap.Quarter != 3 {
		t.Errorf("year/quarter = %d/Q%d, want 2024/Q3", snap.Year, snap.Quarter)
	}

	want := map[string]struct{ got, want string }{
		"net":       {snap.NetIncome.String(), "75000"},
		"taxable":   {snap.TaxableIncome.String(), "60400"},
		"federal":   {snap.FederalTax.String(), "8341"},
		"se":        {snap.SETax.String(), "10597.16"},
		"total":     {snap.TotalTax.String(), "18938.16"},
		"quarterly": {snap.QuarterlyEstimate.String(), "4734.54"},
		"effective": {snap.EffectiveRate.String(), "25.25"},
	}
	for name, v := range want {
		if v.got != v.want {
			t.Errorf("%s = %s, want %s", name, v.got, v.want)
		}
	}
}

func TestTaxService_QuarterForOtherYears(t *testing.T) {
	svc, _ := newTaxService(t)
	ctx := context.Background()

	past, _ := svc.QuarterlyEstimate(ctx, "u", 2023)
	future, _ := svc.QuarterlyEstimate(ctx, "u", 2025)
	if past.Quarter != 4 || future.Quarter != 1 {
		t.Errorf("quarters = %d/%d, want 4/1", past.Quarter, future.Quarter)
	}
	if !past.GrossIncome.IsZero() || !past.EffectiveRate.IsZero() {
		t.Errorf("empty year snapshot = %+v", past)
	}
}

func TestTaxService_TotalsCachedUntilInvalidated(t *testing.T) {
	svc, store := newTaxService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Breakdown(ctx, "u", 2024); err != nil {
			t.Fatalf("Breakdown: %v", err)
		}
	}
	if n := store.sums.Load(); n != 2 {
		t.Fatalf("sum queries = %d, want 2 (one load)", n)
	}

	_, _ = store.CreateEarning(ctx, core.Earning{UserID: "u", Source: "Merch", Platform: core.PlatformManual,
		Amount: decimal.NewFromInt(1000), Date: core.NewDate(2024, 9, 1)})
	svc.Invalidate(ctx, "u", 2024, 2024)

	b, err := svc.Breakdown(ctx, "u", 2024)
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if n := store.sums.Load(); n != 4 {
		t.Errorf("sum queries = %d, want 4 after invalidation", n)
	}
	if !b.GrossIncome.Equal(decimal.NewFromInt(81000)) {
		t.Errorf("gross = %s, want 81000", b.GrossIncome)
	}
	if !b.MarginalRate.Equal(decimal.RequireFromString("0.22")) {
		t.Errorf("marginal rate = %s, want 0.22", b.MarginalRate)
	}
	if !b.TakeHome.Equal(b.NetIncome.Sub(b.TotalTax)) {
		t.Errorf("take home %s != net %s - total %s", b.TakeHome, b.NetIncome, b.TotalTax)
	}
}

func TestTaxService_Errors(t *testing.T) {
	svc, store := newTaxService(t)
	ctx := context.Background()

	if _, err := svc.QuarterlyEstimate(ctx, "", 2024); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.Deductions(ctx, "", 2024); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}

	store.err = errBoom
	if _, err := svc.QuarterlyEstimate(ctx, "u", 2022); !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want store error", err)
	}
}

func TestTaxService_Deductions(t *testing.T) {
	svc, _ := newTaxService(t)

	d, err := svc.Deductions(context.Background(), "u", 2024)
	if err != nil {
		t.Fatalf("Deductions: %v", err)
	}
	if len(d.ByCategory) != 3 {
		t.Fatalf("categories = %+v, every expense is grouped", d.ByCategory)
	}
	got := []core.ExpenseCategory{d.ByCategory[0].Category, d.ByCategory[1].Category, d.ByCategory[2].Category}
	if got[0] != core.CategorySoftware || got[1] != core.CategoryTravel || got[2] != core.CategoryOther {
		t.Errorf("order = %v", got)
	}
	if !d.TotalDeductions.Equal(decimal.NewFromInt(5000)) || !d.Savings.IsZero() {
		t.Errorf("total = %s savings = %s", d.TotalDeductions, d.Savings)
	}
}
