package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"creatorfin/internal/core"
	"creatorfin/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store is an in-process ledger used for local development and tests.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	earnings []core.Earning
	expenses []core.Expense
	accounts map[accountKey]core.ConnectedAccount
	now      func() time.Time
}

type accountKey struct {
	userID   string
	platform string
}

func New() *Store {
	return &Store{
		accounts: make(map[accountKey]core.ConnectedAccount),
		now:      time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateEarning(_ context.Context, e core.Earning) (core.Earning, error) {
	if err := e.Validate(); err != nil {
		return core.Earning{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasEarningLocked(e) {
		return core.Earning{}, fmt.Errorf("earning %s/%s on %s: %w", e.Platform, e.Source, e.Date, core.ErrDuplicate)
	}
	return s.appendEarningLocked(e), nil
}

func (s *Store) InsertEarningIfAbsent(_ context.Context, e core.Earning) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasEarningLocked(e) {
		return false, nil
	}
	s.appendEarningLocked(e)
	return true, nil
}

func (s *Store) hasEarningLocked(e core.Earning) bool {
	for _, existing := range s.earnings {
		if existing.UserID == e.UserID && existing.Date.Equal(e.Date.Time) &&
			existing.Platform == e.Platform && existing.Source == e.Source {
			return true
		}
	}
	return false
}

func (s *Store) appendEarningLocked(e core.Earning) core.Earning {
	s.nextID++
	e.ID = s.nextID
	e.Amount = e.Amount.Round(2)
	e.CreatedAt = s.now().UTC()
	s.earnings = append(s.earnings, e)
	return e
}

func (s *Store) ListEarnings(_ context.Context, userID string) ([]core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Earning, 0)
	for _, e := range s.earnings {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newerFirst(out[i].Date, out[j].Date, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	e.Amount = e.Amount.Round(2)
	e.CreatedAt = s.now().UTC()
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newerFirst(out[i].Date, out[j].Date, out[i].ID, out[j].ID) })
	return out, nil
}

// newerFirst orders by date descending, then by id descending.
func newerFirst(a, b core.Date, aID, bID int64) bool {
	if !a.Equal(b.Time) {
		return a.After(b.Time)
	}
	return aID > bID
}

func within(d core.Date, p core.Period) bool {
	return !d.Before(p.From.Time) && !d.After(p.To.Time)
}

func (s *Store) SumEarnings(_ context.Context, userID string, p core.Period) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, e := range s.earnings {
		if e.UserID == userID && within(e.Date, p) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (s *Store) SumExpenses(_ context.Context, userID string, p core.Period) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, e := range s.expenses {
		if e.UserID == userID && within(e.Date, p) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (s *Store) ExpensesByCategory(_ context.Context, userID string, p core.Period) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[core.ExpenseCategory]decimal.Decimal{}
	for _, e := range s.expenses {
		if e.UserID == userID && within(e.Date, p) {
			sums[e.Category] = sums[e.Category].Add(e.Amount)
		}
	}
	out := make([]core.CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		out = append(out, core.CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) UpsertConnectedAccount(_ context.Context, a core.ConnectedAccount) error {
	if strings.TrimSpace(a.UserID) == "" {
		return core.ErrUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := accountKey{a.UserID, a.Platform}
	now := s.now().UTC()
	if existing, ok := s.accounts[key]; ok {
		if a.RefreshToken == "" {
			a.RefreshToken = existing.RefreshToken
		}
		a.ConnectedAt = existing.ConnectedAt
	}
	if a.ConnectedAt.IsZero() {
		a.ConnectedAt = now
	}
	a.UpdatedAt = now
	s.accounts[key] = a
	return nil
}

func (s *Store) GetConnectedAccount(_ context.Context, userID, platform string) (core.ConnectedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountKey{userID, platform}]
	if !ok {
		return core.ConnectedAccount{}, core.ErrNotConnected
	}
	return a, nil
}

func (s *Store) UpdateAccessToken(_ context.Context, userID, platform, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := accountKey{userID, platform}
	a, ok := s.accounts[key]
	if !ok {
		return core.ErrNotConnected
	}
	a.AccessToken = accessToken
	a.UpdatedAt = s.now().UTC()
	s.accounts[key] = a
	return nil
}

func (s *Store) DeleteConnectedAccount(_ context.Context, userID, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := accountKey{userID, platform}
	if _, ok := s.accounts[key]; !ok {
		return core.ErrNotConnected
	}
	delete(s.accounts, key)
	return nil
}

func (s *Store) ListConnectedPlatforms(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0)
	for key := range s.accounts {
		if key.userID == userID {
			out = append(out, key.platform)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Len reports stored earnings and expenses; tests use it to assert
// idempotent writes.
func (s *Store) Len() (earnings, expenses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.earnings), len(s.expenses)
}
