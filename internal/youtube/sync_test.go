package youtube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"creatorfin/internal/core"
	"creatorfin/internal/ledger/memory"
)

func newTestSyncer(t *testing.T, api *fakeAPI, refresher *fakeRefresher) (*Syncer, *memory.Store) {
	t.Helper()
	store := memory.New()
	err := store.UpsertConnectedAccount(context.Background(), core.ConnectedAccount{
		UserID: "user-1", Platform: core.PlatformYouTube, AccessToken: "old", RefreshToken: "rt",
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	s := NewSyncer(store, store, api, refresher, nil)
	s.now = func() time.Time { return time.Date(2024, 5, 31, 18, 0, 0, 0, time.UTC) }
	return s, store
}

func revenueRows() []DailyRevenue {
	return []DailyRevenue{
		{Date: core.NewDate(2024, 5, 1), Revenue: decimal.RequireFromString("12.345")},
		{Date: core.NewDate(2024, 5, 2), Revenue: decimal.RequireFromString("3.10")},
		{Date: core.NewDate(2024, 5, 3), Revenue: decimal.Zero},
		{Date: core.NewDate(2024, 5, 4), Revenue: decimal.RequireFromString("0.004")},
	}
}

func TestSync_Idempotent(t *testing.T) {
	api := &fakeAPI{rows: revenueRows()}
	s, store := newTestSyncer(t, api, &fakeRefresher{})
	ctx := context.Background()

	first, err := s.Sync(ctx, "user-1")
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.Synced != 2 || first.Skipped != 0 {
		t.Errorf("first = %+v, want 2 synced", first)
	}
	if first.From.String() != "2024-05-01" || first.To.String() != "2024-05-31" {
		t.Errorf("window = %s..%s", first.From, first.To)
	}

	second, err := s.Sync(ctx, "user-1")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Synced != 0 || second.Skipped != 2 {
		t.Errorf("second = %+v, want 0 synced", second)
	}

	earnings, _ := store.ListEarnings(ctx, "user-1")
	if len(earnings) != 2 {
		t.Fatalf("stored %d earnings, want 2", len(earnings))
	}
	for _, e := range earnings {
		if e.Source != core.SourceYouTubeAdRevenue || e.Platform != core.PlatformYouTube {
			t.Errorf("earning = %+v", e)
		}
	}
	if !earnings[1].Amount.Equal(decimal.RequireFromString("12.35")) {
		t.Errorf("amount = %s, want 12.35", earnings[1].Amount)
	}
	if api.tokens[0] != "old" {
		t.Errorf("sync used token %q", api.tokens[0])
	}
}

func TestSync_FixedWindowAndSubCentRows(t *testing.T) {
	api := &fakeAPI{rows: revenueRows()}
	s, store := newTestSyncer(t, api, &fakeRefresher{})
	ctx := context.Background()

	if _, err := s.Sync(ctx, "user-1"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	got := api.ranges[0]
	if want := got[1].AddDays(-SyncWindowDays); !got[0].Equal(want.Time) {
		t.Errorf("window start = %s, want %s", got[0], want)
	}

	earnings, _ := store.ListEarnings(ctx, "user-1")
	for _, e := range earnings {
		switch e.Date.String() {
		case "2024-05-03", "2024-05-04":
			t.Errorf("stored %s for a day that rounds to zero cents", e.Amount)
		}
	}
}

func TestSync_NotConnected(t *testing.T) {
	s, _ := newTestSyncer(t, &fakeAPI{}, &fakeRefresher{})
	if _, err := s.Sync(context.Background(), "someone-else"); !errors.Is(err, core.ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
	if _, err := s.Sync(context.Background(), ""); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestSync_RefreshesOnceOnExpiredToken(t *testing.T) {
	api := &fakeAPI{
		rows:        revenueRows(),
		revenueErrs: []error{core.ErrUpstreamAuthExpired},
	}
	refresher := &fakeRefresher{token: "fresh"}
	s, _ := newTestSyncer(t, api, refresher)

	res, err := s.Sync(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Synced != 2 {
		t.Errorf("synced = %d, want 2", res.Synced)
	}
	if refresher.calls != 1 {
		t.Errorf("refresh calls = %d, want 1", refresher.calls)
	}
	if len(api.tokens) != 2 || api.tokens[1] != "fresh" {
		t.Errorf("tokens = %v, want retry with fresh token", api.tokens)
	}
	if api.ranges[0] != api.ranges[1] {
		t.Error("retry must request the same window")
	}
}

func TestSync_SecondRejectionPropagates(t *testing.T) {
	api := &fakeAPI{revenueErrs: []error{core.ErrUpstreamAuthExpired, core.ErrUpstreamAuthExpired}}
	refresher := &fakeRefresher{token: "fresh"}
	s, store := newTestSyncer(t, api, refresher)

	_, err := s.Sync(context.Background(), "user-1")
	if !errors.Is(err, core.ErrUpstreamAuthExpired) {
		t.Fatalf("err = %v, want ErrUpstreamAuthExpired", err)
	}
	if refresher.calls != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", refresher.calls)
	}
	if n, _ := store.Len(); n != 0 {
		t.Errorf("stored %d earnings after failure", n)
	}
}

func TestSync_RefreshFailurePropagates(t *testing.T) {
	api := &fakeAPI{revenueErrs: []error{core.ErrUpstreamAuthExpired}}
	refresher := &fakeRefresher{err: errors.New("invalid_grant")}
	s, _ := newTestSyncer(t, api, refresher)

	if _, err := s.Sync(context.Background(), "user-1"); err == nil {
		t.Fatal("expected refresh failure")
	}
	if len(api.tokens) != 1 {
		t.Errorf("analytics called %d times, want 1", len(api.tokens))
	}
}

func TestSync_UpstreamFailureNotRetried(t *testing.T) {
	api := &fakeAPI{revenueErrs: []error{core.ErrUpstreamFailure}}
	refresher := &fakeRefresher{}
	s, _ := newTestSyncer(t, api, refresher)

	if _, err := s.Sync(context.Background(), "user-1"); !errors.Is(err, core.ErrUpstreamFailure) {
		t.Fatalf("err = %v", err)
	}
	if refresher.calls != 0 || len(api.tokens) != 1 {
		t.Errorf("refresh=%d calls=%d, want no retry", refresher.calls, len(api.tokens))
	}
}
