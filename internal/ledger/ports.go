// Package ledger declares the persistence ports the services depend on.
// Implementations live in ledger/memory and storage.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"creatorfin/internal/core"
)

type (
	EarningWriter interface {
		// CreateEarning stores a new earning. A row with the same
		// (user, date, platform, source) key fails with core.ErrDuplicate.
		CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error)
		// InsertEarningIfAbsent is a no-op when the key already exists and
		// reports whether a row was inserted.
		InsertEarningIfAbsent(ctx context.Context, e core.Earning) (bool, error)
	}

	EarningLister interface {
		// ListEarnings returns the user's earnings, most recent date first.
		ListEarnings(ctx context.Context, userID string) ([]core.Earning, error)
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	ExpenseLister interface {
		// ListExpenses returns the user's expenses, most recent date first.
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	}

	// TotalsReader aggregates amounts over an inclusive date period.
	TotalsReader interface {
		SumEarnings(ctx context.Context, userID string, p core.Period) (decimal.Decimal, error)
		SumExpenses(ctx context.Context, userID string, p core.Period) (decimal.Decimal, error)
		// ExpensesByCategory sums every expense in the period per category.
		ExpensesByCategory(ctx context.Context, userID string, p core.Period) ([]core.CategoryTotal, error)
	}

	AccountStore interface {
		// UpsertConnectedAccount inserts or replaces the (user, platform)
		// row in place. An empty refresh token keeps the stored one.
		UpsertConnectedAccount(ctx context.Context, a core.ConnectedAccount) error
		// GetConnectedAccount fails with core.ErrNotConnected when absent.
		GetConnectedAccount(ctx context.Context, userID, platform string) (core.ConnectedAccount, error)
		UpdateAccessToken(ctx context.Context, userID, platform, accessToken string) error
		DeleteConnectedAccount(ctx context.Context, userID, platform string) error
		ListConnectedPlatforms(ctx context.Context, userID string) ([]string, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is everything a backend provides.
	Store interface {
		EarningWriter
		EarningLister
		ExpenseWriter
		ExpenseLister
		TotalsReader
		AccountStore
		Pinger
	}
)
