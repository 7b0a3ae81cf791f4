package services

import (
	"context"
	"strings"

	"creatorfin/internal/amqp"
	"creatorfin/internal/core"
	"creatorfin/internal/ledger"
	"creatorfin/internal/log"
)

// TotalsInvalidator drops cached totals after a write.
type TotalsInvalidator interface {
	Invalidate(ctx context.Context, userID string, years ...int)
}

type ledgerStore interface {
	ledger.EarningWriter
	ledger.EarningLister
	ledger.ExpenseWriter
	ledger.ExpenseLister
}

// LedgerService records manual earnings and expenses.
type LedgerService struct {
	store       ledgerStore
	invalidator TotalsInvalidator
	events      amqp.Publisher
	logger      *log.StructuredLogger
}

func NewLedgerService(store ledgerStore, invalidator TotalsInvalidator, events amqp.Publisher, logger *log.StructuredLogger) *LedgerService {
	return &LedgerService{
		store:       store,
		invalidator: invalidator,
		events:      events,
		logger:      logger,
	}
}

// CreateEarning validates and stores a manual earning. The platform
// defaults to "manual"; a second row with the same key is core.ErrDuplicate.
func (s *LedgerService) CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error) {
	e.Source = strings.TrimSpace(e.Source)
	e.Platform = strings.ToLower(strings.TrimSpace(e.Platform))
	if e.Platform == "" {
		e.Platform = core.PlatformManual
	}
	if err := e.Validate(); err != nil {
		return core.Earning{}, err
	}

	saved, err := s.store.CreateEarning(ctx, e)
	if err != nil {
		return core.Earning{}, err
	}

	s.afterWrite(ctx, saved.UserID, saved.Date.Year(), amqp.EventEarningCreated)
	if s.logger != nil {
		s.logger.LogEarningCreated(ctx, saved.UserID, saved.ID, saved.Source, saved.Platform, saved.Amount.StringFixed(2))
	}
	return saved, nil
}

func (s *LedgerService) ListEarnings(ctx context.Context, userID string) ([]core.Earning, error) {
	if userID == "" {
		return nil, core.ErrUnauthenticated
	}
	return s.store.ListEarnings(ctx, userID)
}

// CreateExpense validates and stores an expense.
func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	s.afterWrite(ctx, saved.UserID, saved.Date.Year(), amqp.EventExpenseCreated)
	if s.logger != nil {
		s.logger.LogExpenseCreated(ctx, saved.UserID, saved.ID, string(saved.Category), saved.Amount.StringFixed(2))
	}
	return saved, nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	if userID == "" {
		return nil, core.ErrUnauthenticated
	}
	return s.store.ListExpenses(ctx, userID)
}

func (s *LedgerService) afterWrite(ctx context.Context, userID string, year int, eventType string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID, year)
	}
	publish(ctx, s.events, eventType, userID, 1, year)
}
