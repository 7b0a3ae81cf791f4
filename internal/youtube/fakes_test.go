package youtube

import (
	"context"
	"sync"

	"creatorfin/internal/core"
)

// fakeAPI serves canned responses and records the tokens it was called with.
type fakeAPI struct {
	mu sync.Mutex

	identity    *core.AccountIdentity
	identityErr error

	rows []DailyRevenue
	// revenueErrs are returned by successive DailyRevenue calls before rows.
	revenueErrs []error
	tokens      []string
	ranges      [][2]core.Date
}

func (f *fakeAPI) ChannelIdentity(_ context.Context, accessToken string) (*core.AccountIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, accessToken)
	return f.identity, f.identityErr
}

func (f *fakeAPI) DailyRevenue(_ context.Context, accessToken string, start, end core.Date) ([]DailyRevenue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, accessToken)
	f.ranges = append(f.ranges, [2]core.Date{start, end})
	if len(f.revenueErrs) > 0 {
		err := f.revenueErrs[0]
		f.revenueErrs = f.revenueErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.rows, nil
}

type fakeRefresher struct {
	token string
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(context.Context, string) (string, error) {
	f.calls++
	return f.token, f.err
}
