package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanz/internal/core"
	"finanz/internal/storage"
	"finanz/internal/storage/storetest"
)

func seedLedger(store *storetest.InMemory, scope storage.Scope, kind core.TransactionKind, category string, amount int64, date time.Time) {
	store.CreateTransaction(context.Background(), core.Transaction{
		UserID: scope.UserID, FamilyID: scope.FamilyID, Kind: kind,
		Amount: decimal.NewFromInt(amount), Category: category, Name: "x", Date: date,
	})
}

func TestLedgerService_Summary(t *testing.T) {
	store := storetest.New()
	svc := NewLedgerService(store, nil)
	scope := storage.Scope{UserID: "user-a"}
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	seedLedger(store, scope, core.Income, "salario", 3000, ref)
	seedLedger(store, scope, core.Expense, "mercado", 1000, ref)
	seedLedger(store, scope, core.Income, "salario", 1500, ref.AddDate(0, -1, 0))
	seedLedger(store, scope, core.Expense, "mercado", 2000, ref.AddDate(0, -1, 0))

	summary, err := svc.Summary(context.Background(), scope, ref)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Balance.String() != "2000" {
		t.Errorf("Balance = %s, want 2000", summary.Balance)
	}
	if summary.IncomeTrend != "+100%" {
		t.Errorf("IncomeTrend = %q, want +100%%", summary.IncomeTrend)
	}
	if summary.ExpenseTrend != "-50%" {
		t.Errorf("ExpenseTrend = %q, want -50%%", summary.ExpenseTrend)
	}
}

func TestLedgerService_ScopeIsolation(t *testing.T) {
	store := storetest.New()
	svc := NewLedgerService(store, nil)
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	personal := storage.Scope{UserID: "user-a"}
	family := storage.Scope{UserID: "user-a", FamilyID: "fam-1"}

	seedLedger(store, personal, core.Expense, "mercado", 100, ref)
	seedLedger(store, family, core.Expense, "lazer", 900, ref)

	personalSummary, err := svc.Summary(context.Background(), personal, ref)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if personalSummary.Expense.String() != "100" {
		t.Errorf("personal expense = %s, want 100", personalSummary.Expense)
	}

	familySummary, err := svc.Summary(context.Background(), family, ref)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if familySummary.Expense.String() != "900" {
		t.Errorf("family expense = %s, want 900", familySummary.Expense)
	}
}

func TestLedgerService_CategoryBreakdown(t *testing.T) {
	store := storetest.New()
	svc := NewLedgerService(store, nil)
	scope := storage.Scope{UserID: "user-a"}
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	seedLedger(store, scope, core.Expense, "mercado", 500, ref)
	seedLedger(store, scope, core.Expense, "lazer", 300, ref)
	seedLedger(store, scope, core.Income, "salario", 9999, ref)

	slices, err := svc.CategoryBreakdown(context.Background(), scope, ref)
	if err != nil {
		t.Fatalf("CategoryBreakdown() error = %v", err)
	}
	if len(slices) != 2 {
		t.Fatalf("slices = %d, want 2 (income excluded)", len(slices))
	}
	if slices[0].Name != "mercado" || slices[0].Color != "#0ea5e9" {
		t.Errorf("top slice = %+v", slices[0])
	}
}

func TestLedgerService_MonthlySeries(t *testing.T) {
	store := storetest.New()
	svc := NewLedgerService(store, nil)
	scope := storage.Scope{UserID: "user-a"}
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	seedLedger(store, scope, core.Income, "salario", 100, ref)
	seedLedger(store, scope, core.Expense, "mercado", 40, ref.AddDate(0, -5, 0))
	seedLedger(store, scope, core.Expense, "mercado", 77, ref.AddDate(0, -6, 0)) // outside window

	series, err := svc.MonthlySeries(context.Background(), scope, ref)
	if err != nil {
		t.Fatalf("MonthlySeries() error = %v", err)
	}
	if len(series) != 6 {
		t.Fatalf("series = %d buckets, want 6", len(series))
	}
	if series[0].Label != "Out" || series[5].Label != "Mar" {
		t.Errorf("labels = %q..%q, want Out..Mar", series[0].Label, series[5].Label)
	}
	if series[0].Expense.String() != "40" {
		t.Errorf("oldest bucket expense = %s, want 40", series[0].Expense)
	}
	if series[5].Income.String() != "100" {
		t.Errorf("newest bucket income = %s, want 100", series[5].Income)
	}
}

func TestLedgerService_MonthTransactions_Order(t *testing.T) {
	store := storetest.New()
	svc := NewLedgerService(store, nil)
	scope := storage.Scope{UserID: "user-a"}

	seedLedger(store, scope, core.Expense, "mercado", 1, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	seedLedger(store, scope, core.Expense, "mercado", 2, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))

	txs, err := svc.MonthTransactions(context.Background(), scope, 2026, time.March, "")
	if err != nil {
		t.Fatalf("MonthTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("txs = %d, want 2", len(txs))
	}
	if !txs[0].Date.After(txs[1].Date) {
		t.Error("transactions should be newest first")
	}
}

func TestLedgerService_MonthTransactions_KindFilter(t *testing.T) {
	store := storetest.New()
	svc := NewLedgerService(store, nil)
	scope := storage.Scope{UserID: "user-a"}

	seedLedger(store, scope, core.Income, "salario", 3000, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	seedLedger(store, scope, core.Expense, "mercado", 200, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	expenses, err := svc.MonthTransactions(context.Background(), scope, 2026, time.March, core.Expense)
	if err != nil {
		t.Fatalf("MonthTransactions() error = %v", err)
	}
	if len(expenses) != 1 || expenses[0].Kind != core.Expense {
		t.Fatalf("expenses = %+v, want single expense row", expenses)
	}

	incomes, err := svc.MonthTransactions(context.Background(), scope, 2026, time.March, core.Income)
	if err != nil {
		t.Fatalf("MonthTransactions() error = %v", err)
	}
	if len(incomes) != 1 || incomes[0].Kind != core.Income {
		t.Fatalf("incomes = %+v, want single income row", incomes)
	}
}
