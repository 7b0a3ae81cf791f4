package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"creatorfin/internal/amqp"
	"creatorfin/internal/core"
	"creatorfin/internal/ledger/memory"
)

func TestLedgerService_CreateEarning(t *testing.T) {
	store := memory.New()
	inv := &recordingInvalidator{}
	pub := &recordingPublisher{}
	svc := NewLedgerService(store, inv, pub, nil)
	ctx := context.Background()

	e := core.Earning{UserID: "u", Source: "  Sponsorship ", Amount: decimal.RequireFromString("250.50"), Date: core.NewDate(2024, 2, 1)}
	saved, err := svc.CreateEarning(ctx, e)
	if err != nil {
		t.Fatalf("CreateEarning: %v", err)
	}
	if saved.Platform != core.PlatformManual || saved.Source != "Sponsorship" {
		t.Errorf("saved = %+v", saved)
	}
	if got := inv.calls["u"]; len(got) != 1 || got[0] != 2024 {
		t.Errorf("invalidated years = %v", got)
	}
	if len(pub.events) != 1 || pub.events[0].Type != amqp.EventEarningCreated || pub.events[0].UserID != "u" {
		t.Errorf("events = %+v", pub.events)
	}

	if _, err := svc.CreateEarning(ctx, e); !errors.Is(err, core.ErrDuplicate) {
		t.Errorf("duplicate err = %v, want ErrDuplicate", err)
	}
	if len(pub.events) != 1 {
		t.Error("failed write must not publish")
	}
}

func TestLedgerService_Validation(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, nil, nil)
	ctx := context.Background()
	valid := core.Expense{UserID: "u", Category: core.CategoryEquipment, Amount: decimal.NewFromInt(10), Date: core.NewDate(2024, 1, 1), IsDeductible: true}

	tests := []struct {
		name    string
		mutate  func(*core.Expense)
		wantErr error
	}{
		{"valid", func(*core.Expense) {}, nil},
		{"no user", func(e *core.Expense) { e.UserID = "" }, core.ErrUnauthenticated},
		{"bad category", func(e *core.Expense) { e.Category = "Food" }, core.ErrValidation},
		{"zero amount", func(e *core.Expense) { e.Amount = decimal.Zero }, core.ErrValidation},
		{"three decimals", func(e *core.Expense) { e.Amount = decimal.RequireFromString("1.005") }, core.ErrValidation},
		{"no date", func(e *core.Expense) { e.Date = core.Date{} }, core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			_, err := svc.CreateExpense(ctx, e)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{err: errBoom}
	svc := NewLedgerService(store, nil, pub, nil)

	_, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID: "u", Category: core.CategorySoftware, Amount: decimal.NewFromInt(5), Date: core.NewDate(2024, 1, 1),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if _, n := store.Len(); n != 1 {
		t.Errorf("stored %d expenses, want 1", n)
	}
}

func TestLedgerService_ListRequiresUser(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, nil, nil)
	if _, err := svc.ListEarnings(context.Background(), ""); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("err = %v", err)
	}
	list, err := svc.ListExpenses(context.Background(), "u")
	if err != nil || list == nil || len(list) != 0 {
		t.Errorf("empty list = %v, %v; want non-nil empty slice", list, err)
	}
}
