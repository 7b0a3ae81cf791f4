package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"creatorfin/internal/core"
	"creatorfin/internal/ledger"
)

type dashboardStore interface {
	ledger.TotalsReader
	ListConnectedPlatforms(ctx context.Context, userID string) ([]string, error)
}

// DashboardService builds the landing-page summary.
type DashboardService struct {
	store dashboardStore
	now   func() time.Time
}

func NewDashboardService(store dashboardStore) *DashboardService {
	return &DashboardService{store: store, now: time.Now}
}

// Summary returns all-time and current-month earnings plus connected platforms.
func (s *DashboardService) Summary(ctx context.Context, userID string) (core.DashboardSummary, error) {
	if userID == "" {
		return core.DashboardSummary{}, core.ErrUnauthenticated
	}

	now := s.now().UTC()
	var out core.DashboardSummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.TotalEarnings, err = s.store.SumEarnings(gctx, userID, core.AllTime())
		return err
	})
	g.Go(func() error {
		var err error
		out.MonthlyEarnings, err = s.store.SumEarnings(gctx, userID, core.MonthPeriod(now.Year(), int(now.Month())))
		return err
	})
	g.Go(func() error {
		var err error
		out.ConnectedPlatforms, err = s.store.ListConnectedPlatforms(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, fmt.Errorf("dashboard summary: %w", err)
	}
	if out.ConnectedPlatforms == nil {
		out.ConnectedPlatforms = []string{}
	}
	return out, nil
}
