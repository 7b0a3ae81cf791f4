package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creatorfin/internal/core"
	"creatorfin/internal/ledger"
	"creatorfin/internal/log"
)

// SyncWindowDays is the fixed trailing window requested on every sync.
const SyncWindowDays = 30

// Refresher obtains a fresh access token for a user.
type Refresher interface {
	Refresh(ctx context.Context, userID string) (string, error)
}

// SyncResult reports what a sync wrote. Duplicates are counted as skipped.
type SyncResult struct {
	Synced  int       `json:"synced"`
	Skipped int       `json:"skipped"`
	From    core.Date `json:"from"`
	To      core.Date `json:"to"`
}

// Syncer ingests daily YouTube revenue as earnings. Re-running over the
// same window never inserts a row twice.
type Syncer struct {
	accounts  ledger.AccountStore
	earnings  ledger.EarningWriter
	api       API
	refresher Refresher
	now       func() time.Time
	logger    *log.StructuredLogger
}

func NewSyncer(accounts ledger.AccountStore, earnings ledger.EarningWriter, api API, refresher Refresher, logger *log.StructuredLogger) *Syncer {
	return &Syncer{
		accounts:  accounts,
		earnings:  earnings,
		api:       api,
		refresher: refresher,
		now:       time.Now,
		logger:    logger,
	}
}

// Sync fetches the trailing window and inserts each positive-revenue day.
// An expired access token is refreshed at most once per call.
func (s *Syncer) Sync(ctx context.Context, userID string) (SyncResult, error) {
	if userID == "" {
		return SyncResult{}, core.ErrUnauthenticated
	}

	acct, err := s.accounts.GetConnectedAccount(ctx, userID, core.PlatformYouTube)
	if err != nil {
		return SyncResult{}, err
	}

	end := core.DateOf(s.now())
	start := end.AddDays(-SyncWindowDays)
	result := SyncResult{From: start, To: end}

	rows, err := s.api.DailyRevenue(ctx, acct.AccessToken, start, end)
	if errors.Is(err, core.ErrUpstreamAuthExpired) {
		log.FromContext(ctx).InfoContext(ctx, "YouTube access token rejected, refreshing",
			log.FieldUserID, userID)

		token, rerr := s.refresher.Refresh(ctx, userID)
		if rerr != nil {
			return result, fmt.Errorf("refresh youtube token: %w", rerr)
		}
		rows, err = s.api.DailyRevenue(ctx, token, start, end)
	}
	if err != nil {
		return result, err
	}

	for _, row := range rows {
		// Earnings are stored in whole cents with a positive-amount
		// constraint, so a sub-cent day rounds to zero and is skipped.
		amount := row.Revenue.Round(2)
		if !amount.IsPositive() {
			continue
		}

		inserted, err := s.earnings.InsertEarningIfAbsent(ctx, core.Earning{
			UserID:   userID,
			Source:   core.SourceYouTubeAdRevenue,
			Amount:   amount,
			Date:     row.Date,
			Platform: core.PlatformYouTube,
		})
		if err != nil {
			return result, fmt.Errorf("store earning for %s: %w", row.Date, err)
		}
		if inserted {
			result.Synced++
		} else {
			result.Skipped++
		}
	}

	if s.logger != nil {
		s.logger.LogSyncCompleted(ctx, userID, core.PlatformYouTube, result.Synced, result.Skipped)
	}
	return result, nil
}
