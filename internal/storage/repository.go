package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"creatorfin/internal/core"
	"creatorfin/internal/ledger"
)

var _ ledger.Store = (*Repository)(nil)

// Repository is the SQL-backed ledger store. Amounts are kept as integer
// cents; dates as calendar days.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewRepository opens dsn with the given dialect, migrates it and verifies
// the connection.
func NewRepository(ctx context.Context, d Dialect, dsn string) (*Repository, error) {
	if err := RunMigrations(d, dsn); err != nil {
		return nil, err
	}

	db, err := d.Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db, dialect: d, now: time.Now}, nil
}

func NewSQLiteRepository(ctx context.Context, path string) (*Repository, error) {
	return NewRepository(ctx, SQLite, path)
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	return NewRepository(ctx, Postgres, databaseURL)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.rebind(query), args...)
}

const insertEarning = `
INSERT INTO earnings (user_id, source, amount_cents, date, platform, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, date, platform, source) DO NOTHING
RETURNING id`

// insertEarning returns sql.ErrNoRows when the key already exists.
func (r *Repository) insertEarning(ctx context.Context, e *core.Earning) error {
	e.CreatedAt = r.now().UTC()
	return r.queryRow(ctx, insertEarning,
		e.UserID, e.Source, core.ToCents(e.Amount), r.dialect.dateArg(e.Date), e.Platform, r.dialect.timeArg(e.CreatedAt),
	).Scan(&e.ID)
}

func (r *Repository) CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error) {
	err := r.insertEarning(ctx, &e)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Earning{}, core.ErrDuplicate
	}
	if err != nil {
		return core.Earning{}, fmt.Errorf("create earning: %w", err)
	}

	slog.DebugContext(ctx, "Earning saved", "id", e.ID, "user_id", e.UserID, "platform", e.Platform, "date", e.Date.String())
	return e, nil
}

func (r *Repository) InsertEarningIfAbsent(ctx context.Context, e core.Earning) (bool, error) {
	err := r.insertEarning(ctx, &e)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert earning: %w", err)
	}
	return true, nil
}

func (r *Repository) ListEarnings(ctx context.Context, userID string) ([]core.Earning, error) {
	rows, err := r.query(ctx, `
SELECT id, user_id, source, amount_cents, date, platform, created_at
FROM earnings WHERE user_id = ?
ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	defer rows.Close()

	earnings := []core.Earning{}
	for rows.Next() {
		var (
			e             core.Earning
			cents         int64
			date, created any
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Source, &cents, &date, &e.Platform, &created); err != nil {
			return nil, fmt.Errorf("scan earning: %w", err)
		}
		if e.Date, err = scanDate(date); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = scanTime(created); err != nil {
			return nil, err
		}
		e.Amount = core.FromCents(cents)
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.CreatedAt = r.now().UTC()
	err := r.queryRow(ctx, `
INSERT INTO expenses (user_id, category, amount_cents, date, description, is_deductible, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`,
		e.UserID, string(e.Category), core.ToCents(e.Amount), r.dialect.dateArg(e.Date), e.Description, e.IsDeductible, r.dialect.timeArg(e.CreatedAt),
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved", "id", e.ID, "user_id", e.UserID, "category", e.Category)
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.query(ctx, `
SELECT id, user_id, category, amount_cents, date, description, is_deductible, created_at
FROM expenses WHERE user_id = ?
ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var (
			e             core.Expense
			category      string
			cents         int64
			date, created any
		)
		if err := rows.Scan(&e.ID, &e.UserID, &category, &cents, &date, &e.Description, &e.IsDeductible, &created); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = scanDate(date); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = scanTime(created); err != nil {
			return nil, err
		}
		e.Category = core.ExpenseCategory(category)
		e.Amount = core.FromCents(cents)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) sumCents(ctx context.Context, query, userID string, p core.Period) (decimal.Decimal, error) {
	var cents int64
	err := r.queryRow(ctx, query, userID, r.dialect.dateArg(p.From), r.dialect.dateArg(p.To)).Scan(&cents)
	if err != nil {
		return decimal.Zero, err
	}
	return core.FromCents(cents), nil
}

func (r *Repository) SumEarnings(ctx context.Context, userID string, p core.Period) (decimal.Decimal, error) {
	total, err := r.sumCents(ctx, `
SELECT CAST(COALESCE(SUM(amount_cents), 0) AS BIGINT)
FROM earnings WHERE user_id = ? AND date BETWEEN ? AND ?`, userID, p)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum earnings: %w", err)
	}
	return total, nil
}

func (r *Repository) SumExpenses(ctx context.Context, userID string, p core.Period) (decimal.Decimal, error) {
	total, err := r.sumCents(ctx, `
SELECT CAST(COALESCE(SUM(amount_cents), 0) AS BIGINT)
FROM expenses WHERE user_id = ? AND date BETWEEN ? AND ?`, userID, p)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

func (r *Repository) ExpensesByCategory(ctx context.Context, userID string, p core.Period) ([]core.CategoryTotal, error) {
	rows, err := r.query(ctx, `
SELECT category, CAST(SUM(amount_cents) AS BIGINT)
FROM expenses
WHERE user_id = ? AND date BETWEEN ? AND ?
GROUP BY category
ORDER BY category`, userID, r.dialect.dateArg(p.From), r.dialect.dateArg(p.To))
	if err != nil {
		return nil, fmt.Errorf("expenses by category: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var (
			category string
			cents    int64
		)
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, core.CategoryTotal{Category: core.ExpenseCategory(category), Total: core.FromCents(cents)})
	}
	return totals, rows.Err()
}

const upsertAccount = `
INSERT INTO connected_accounts (user_id, platform, access_token, refresh_token, platform_account_id, display_name, connected_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, platform) DO UPDATE SET
    access_token = excluded.access_token,
    refresh_token = CASE WHEN excluded.refresh_token = '' THEN connected_accounts.refresh_token ELSE excluded.refresh_token END,
    platform_account_id = excluded.platform_account_id,
    display_name = excluded.display_name,
    updated_at = excluded.updated_at`

func (r *Repository) UpsertConnectedAccount(ctx context.Context, a core.ConnectedAccount) error {
	var accountID, displayName string
	if a.Identity != nil {
		accountID, displayName = a.Identity.PlatformAccountID, a.Identity.DisplayName
	}
	now := r.dialect.timeArg(r.now())
	_, err := r.exec(ctx, upsertAccount,
		a.UserID, a.Platform, a.AccessToken, a.RefreshToken, accountID, displayName, now, now)
	if err != nil {
		return fmt.Errorf("upsert connected account: %w", err)
	}
	return nil
}

func (r *Repository) GetConnectedAccount(ctx context.Context, userID, platform string) (core.ConnectedAccount, error) {
	var (
		a                  core.ConnectedAccount
		accountID, name    string
		connected, updated any
	)
	err := r.queryRow(ctx, `
SELECT user_id, platform, access_token, refresh_token, platform_account_id, display_name, connected_at, updated_at
FROM connected_accounts WHERE user_id = ? AND platform = ?`, userID, platform).
		Scan(&a.UserID, &a.Platform, &a.AccessToken, &a.RefreshToken, &accountID, &name, &connected, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ConnectedAccount{}, core.ErrNotConnected
	}
	if err != nil {
		return core.ConnectedAccount{}, fmt.Errorf("get connected account: %w", err)
	}

	if accountID != "" {
		a.Identity = &core.AccountIdentity{PlatformAccountID: accountID, DisplayName: name}
	}
	if a.ConnectedAt, err = scanTime(connected); err != nil {
		return core.ConnectedAccount{}, err
	}
	if a.UpdatedAt, err = scanTime(updated); err != nil {
		return core.ConnectedAccount{}, err
	}
	return a, nil
}

func (r *Repository) UpdateAccessToken(ctx context.Context, userID, platform, accessToken string) error {
	res, err := r.exec(ctx, `
UPDATE connected_accounts SET access_token = ?, updated_at = ?
WHERE user_id = ? AND platform = ?`, accessToken, r.dialect.timeArg(r.now()), userID, platform)
	if err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotConnected
	}
	return nil
}

func (r *Repository) DeleteConnectedAccount(ctx context.Context, userID, platform string) error {
	if _, err := r.exec(ctx, `DELETE FROM connected_accounts WHERE user_id = ? AND platform = ?`, userID, platform); err != nil {
		return fmt.Errorf("delete connected account: %w", err)
	}
	return nil
}

func (r *Repository) ListConnectedPlatforms(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.query(ctx, `SELECT platform FROM connected_accounts WHERE user_id = ? ORDER BY platform`, userID)
	if err != nil {
		return nil, fmt.Errorf("list connected platforms: %w", err)
	}
	defer rows.Close()

	platforms := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}
