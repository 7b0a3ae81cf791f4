package backend

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"creatorfin/internal/config"
	"creatorfin/internal/core"
	"creatorfin/internal/log"
)

func testFactory() Factory {
	return NewFactory(log.New(log.Config{Output: io.Discard}))
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "postgres", DatabaseURL: "postgres://u:p@db/app"}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != PostgresBackend || got.DatabaseURL != cfg.DatabaseURL {
		t.Fatalf("config = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := testFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if err := res.Store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	res, err := testFactory().CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	_, err = res.Store.CreateExpense(ctx, core.Expense{
		UserID:       "u1",
		Category:     core.CategorySoftware,
		Amount:       mustAmount(t, "19.99"),
		Date:         core.NewDate(2024, 1, 2),
		IsDeductible: true,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	items, err := res.Store.ListExpenses(ctx, "u1")
	if err != nil || len(items) != 1 {
		t.Fatalf("ListExpenses = %v, %v", items, err)
	}
}

func mustAmount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := core.ParseAmount(s)
	if err != nil {
		t.Fatalf("ParseAmount(%q): %v", s, err)
	}
	return d
}
