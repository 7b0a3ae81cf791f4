package http

import (
	"context"

	"creatorfin/internal/core"
	"creatorfin/internal/services"
	"creatorfin/internal/tax"
	"creatorfin/internal/youtube"
)

// Service ports consumed by the handlers. The services package provides
// the production implementations.
type (
	TaxQueries interface {
		QuarterlyEstimate(ctx context.Context, userID string, year int) (tax.Snapshot, error)
		Breakdown(ctx context.Context, userID string, year int) (services.Breakdown, error)
		Deductions(ctx context.Context, userID string, year int) (tax.DeductionSummary, error)
	}

	Ledger interface {
		CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error)
		ListEarnings(ctx context.Context, userID string) ([]core.Earning, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	}

	Dashboard interface {
		Summary(ctx context.Context, userID string) (core.DashboardSummary, error)
	}

	YouTube interface {
		AuthURL(userID string) (string, error)
		HandleCallback(ctx context.Context, code, state string) (string, error)
		Connect(ctx context.Context, userID, accessToken, refreshToken string, identity *core.AccountIdentity) error
		Sync(ctx context.Context, userID string) (youtube.SyncResult, error)
		Status(ctx context.Context, userID string) (youtube.Status, error)
		Disconnect(ctx context.Context, userID string) error
	}

	ReadinessChecker interface {
		Ping(ctx context.Context) error
	}
)

var (
	_ TaxQueries = (*services.TaxService)(nil)
	_ Ledger     = (*services.LedgerService)(nil)
	_ Dashboard  = (*services.DashboardService)(nil)
	_ YouTube    = (*services.YouTubeService)(nil)
)
