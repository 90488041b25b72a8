package services

import (
	"context"
	"fmt"
	"time"

	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/storage"
)

// LedgerService answers the read side: month listings, dashboard summaries,
// the category donut and the six-month flow series.
type LedgerService struct {
	store  storage.Store
	logger *log.Logger
}

func NewLedgerService(store storage.Store, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger)
	}
	return &LedgerService{store: store, logger: logger}
}

func (s *LedgerService) monthTransactions(ctx context.Context, scope storage.Scope, ref time.Time) ([]core.Transaction, error) {
	from, to := core.MonthRange(ref)
	return s.store.ListTransactions(ctx, storage.TransactionFilter{
		Scope: scope,
		From:  from,
		To:    to,
	})
}

// MonthTransactions lists the scope's transactions for one calendar month,
// newest first. An empty kind lists both kinds; income or expense narrows
// the listing to that side of the ledger.
func (s *LedgerService) MonthTransactions(ctx context.Context, scope storage.Scope, year int, month time.Month, kind core.TransactionKind) ([]core.Transaction, error) {
	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	from, to := core.MonthRange(ref)
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{
		Scope: scope,
		From:  from,
		To:    to,
		Kind:  kind,
	})
	if err != nil {
		return nil, fmt.Errorf("list month transactions: %w", err)
	}
	return txs, nil
}

// Summary computes the dashboard aggregate for the month containing ref,
// with trends against the previous month.
func (s *LedgerService) Summary(ctx context.Context, scope storage.Scope, ref time.Time) (core.MonthSummary, error) {
	current, err := s.monthTransactions(ctx, scope, ref)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("load current month: %w", err)
	}
	previous, err := s.monthTransactions(ctx, scope, ref.AddDate(0, -1, 0))
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("load previous month: %w", err)
	}
	return core.Summarize(current, previous), nil
}

// CategoryBreakdown returns the expense-by-category slices for the month
// containing ref.
func (s *LedgerService) CategoryBreakdown(ctx context.Context, scope storage.Scope, ref time.Time) ([]core.CategorySlice, error) {
	txs, err := s.monthTransactions(ctx, scope, ref)
	if err != nil {
		return nil, fmt.Errorf("load month for breakdown: %w", err)
	}
	return core.ExpensesByCategory(txs), nil
}

// MonthlySeries returns the six-month income/expense series ending at the
// month containing ref.
func (s *LedgerService) MonthlySeries(ctx context.Context, scope storage.Scope, ref time.Time) ([]core.MonthlyFlow, error) {
	from, _ := core.MonthRange(ref.AddDate(0, -5, 0))
	_, to := core.MonthRange(ref)
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{
		Scope: scope,
		From:  from,
		To:    to,
	})
	if err != nil {
		return nil, fmt.Errorf("load series window: %w", err)
	}
	return core.SixMonthSeries(txs, ref), nil
}
