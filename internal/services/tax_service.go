package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"creatorfin/internal/cache"
	"creatorfin/internal/core"
	"creatorfin/internal/ledger"
	"creatorfin/internal/log"
	"creatorfin/internal/tax"
)

// Breakdown is an annual snapshot plus the marginal bracket it lands in.
type Breakdown struct {
	tax.Snapshot
	MarginalRate decimal.Decimal
}

// TaxService computes tax views from ledger totals. Yearly totals are
// cached per user; snapshots are always recomputed.
type TaxService struct {
	totals ledger.TotalsReader
	cache  cache.Cache[tax.Totals]
	now    func() time.Time
}

func NewTaxService(totals ledger.TotalsReader, c cache.Cache[tax.Totals]) *TaxService {
	if c == nil {
		c = cache.Noop[tax.Totals]{}
	}
	return &TaxService{totals: totals, cache: c, now: time.Now}
}

// TotalsCacheKey identifies one user's totals for one year.
func TotalsCacheKey(userID string, year int) string {
	return fmt.Sprintf("totals:%s:%d", userID, year)
}

// Invalidate drops the cached totals for the given years.
func (s *TaxService) Invalidate(ctx context.Context, userID string, years ...int) {
	if len(years) == 0 {
		return
	}
	keys := make([]string, 0, len(years))
	seen := make(map[int]bool, len(years))
	for _, y := range years {
		if !seen[y] {
			seen[y] = true
			keys = append(keys, TotalsCacheKey(userID, y))
		}
	}
	s.cache.Delete(ctx, keys...)
	log.FromContext(ctx).DebugContext(ctx, "Tax totals invalidated",
		log.FieldUserID, userID, "years", years, log.FieldOperation, log.OpInvalidate)
}

// Totals returns gross earnings and total expenses for the year.
func (s *TaxService) Totals(ctx context.Context, userID string, year int) (tax.Totals, error) {
	if userID == "" {
		return tax.Totals{}, core.ErrUnauthenticated
	}

	key := TotalsCacheKey(userID, year)
	if t, ok := s.cache.Get(ctx, key); ok {
		return t, nil
	}

	period := core.YearPeriod(year)
	var t tax.Totals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t.Gross, err = s.totals.SumEarnings(gctx, userID, period)
		return err
	})
	g.Go(func() error {
		var err error
		t.Expenses, err = s.totals.SumExpenses(gctx, userID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return tax.Totals{}, fmt.Errorf("load totals for %d: %w", year, err)
	}

	s.cache.Set(ctx, key, t)
	return t, nil
}

// resolveYear maps 0 to the current year.
func (s *TaxService) resolveYear(year int) int {
	if year == 0 {
		return s.now().Year()
	}
	return year
}

// quarterFor is the current quarter for this year, Q4 for past years and
// Q1 for future ones.
func (s *TaxService) quarterFor(year int) int {
	now := s.now()
	switch {
	case year < now.Year():
		return 4
	case year > now.Year():
		return 1
	default:
		return core.QuarterOf(now)
	}
}

// QuarterlyEstimate returns the rounded snapshot for the year.
func (s *TaxService) QuarterlyEstimate(ctx context.Context, userID string, year int) (tax.Snapshot, error) {
	year = s.resolveYear(year)
	t, err := s.Totals(ctx, userID, year)
	if err != nil {
		return tax.Snapshot{}, err
	}
	return tax.Estimate(year, s.quarterFor(year), t).Rounded(), nil
}

// Breakdown returns the annual snapshot with the marginal rate.
func (s *TaxService) Breakdown(ctx context.Context, userID string, year int) (Breakdown, error) {
	year = s.resolveYear(year)
	t, err := s.Totals(ctx, userID, year)
	if err != nil {
		return Breakdown{}, err
	}
	snap := tax.Estimate(year, s.quarterFor(year), t)
	return Breakdown{
		Snapshot:     snap.Rounded(),
		MarginalRate: tax.SingleFiler2024.MarginalRate(snap.TaxableIncome),
	}, nil
}

// Deductions summarises the year's expenses by category.
func (s *TaxService) Deductions(ctx context.Context, userID string, year int) (tax.DeductionSummary, error) {
	if userID == "" {
		return tax.DeductionSummary{}, core.ErrUnauthenticated
	}
	year = s.resolveYear(year)
	totals, err := s.totals.ExpensesByCategory(ctx, userID, core.YearPeriod(year))
	if err != nil {
		return tax.DeductionSummary{}, fmt.Errorf("load deductions for %d: %w", year, err)
	}
	return tax.SummarizeDeductions(year, totals), nil
}
