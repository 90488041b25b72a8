package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finanz/internal/amqp"
	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/storage"
)

// DeletionPublisher emits an event when a shared transaction is removed. The
// AMQP client satisfies it; tests substitute a fake.
type DeletionPublisher interface {
	PublishTransactionDeleted(ctx context.Context, msg *amqp.TransactionDeletedMessage) error
}

// TransactionService owns all ledger writes: creation with installment
// expansion, edits, deletion with the family notification event, and the
// bulk resets.
type TransactionService struct {
	store     storage.Store
	publisher DeletionPublisher
	logger    *log.Logger
}

func NewTransactionService(store storage.Store, publisher DeletionPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger)
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateTransactionInput carries the fields a caller controls. Installments
// above 1 expand into one dated row per month.
type CreateTransactionInput struct {
	Kind         core.TransactionKind
	Amount       decimal.Decimal
	Category     string
	Name         string
	Description  string
	Date         time.Time
	Installments int
}

// Create validates and persists the transaction. Single rows score full
// points; an installment series scores points only on its first row.
func (s *TransactionService) Create(ctx context.Context, scope storage.Scope, in CreateTransactionInput) ([]core.Transaction, error) {
	base := core.Transaction{
		UserID:      scope.UserID,
		FamilyID:    scope.FamilyID,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Category:    in.Category,
		Name:        in.Name,
		Description: in.Description,
		Date:        in.Date,
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	if in.Installments <= 1 {
		base.Points = core.PointsNew
		tx, err := s.store.CreateTransaction(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("create transaction: %w", err)
		}
		s.logger.InfoContext(ctx, "Transaction created",
			log.FieldTxID, tx.ID,
			log.FieldUserID, tx.UserID,
			log.FieldAmount, tx.Amount.StringFixed(2),
			log.FieldCategory, tx.Category)
		return []core.Transaction{tx}, nil
	}

	rows := make([]core.Transaction, in.Installments)
	for i := 0; i < in.Installments; i++ {
		row := base
		row.Date = base.Date.AddDate(0, i, 0)
		row.IsRecurring = true
		row.Description = fmt.Sprintf("Parcela %d/%d", i+1, in.Installments)
		if in.Description != "" {
			row.Description = in.Description + " - " + row.Description
		}
		if i == 0 {
			row.Points = core.PointsNew
		} else {
			row.Points = core.PointsInstallment
		}
		rows[i] = row
	}

	created, err := s.store.CreateTransactions(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("create installment series: %w", err)
	}
	s.logger.InfoContext(ctx, "Installment series created",
		log.FieldUserID, scope.UserID,
		"installments", in.Installments,
		log.FieldAmount, in.Amount.StringFixed(2))
	return created, nil
}

// loadInScope fetches the transaction and checks the caller may touch it.
func (s *TransactionService) loadInScope(ctx context.Context, scope storage.Scope, id string) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if scope.Personal() {
		if !tx.Personal() || tx.UserID != scope.UserID {
			return core.Transaction{}, ErrForbidden
		}
	} else if tx.FamilyID != scope.FamilyID {
		return core.Transaction{}, ErrForbidden
	}
	return tx, nil
}

// UpdateTransactionInput carries the editable fields.
type UpdateTransactionInput struct {
	Kind        core.TransactionKind
	Amount      decimal.Decimal
	Category    string
	Name        string
	Description string
	Date        time.Time
}

// Update edits a transaction in place. Ownership, scope and points are
// immutable.
func (s *TransactionService) Update(ctx context.Context, scope storage.Scope, id string, in UpdateTransactionInput) (core.Transaction, error) {
	existing, err := s.loadInScope(ctx, scope, id)
	if err != nil {
		return core.Transaction{}, err
	}

	updated := existing
	updated.Kind = in.Kind
	updated.Amount = in.Amount
	updated.Category = in.Category
	updated.Name = in.Name
	updated.Description = in.Description
	updated.Date = in.Date
	if err := updated.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.UpdateTransaction(ctx, updated); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return updated, nil
}

// Delete removes a transaction. When a shared row is deleted by someone other
// than its owner, a deletion event is published so the owner gets notified;
// publish failures never fail the delete.
func (s *TransactionService) Delete(ctx context.Context, scope storage.Scope, id string) error {
	tx, err := s.loadInScope(ctx, scope, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTransaction(ctx, tx.ID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldTxID, tx.ID,
		log.FieldUserID, scope.UserID)

	if tx.Personal() || tx.UserID == scope.UserID || s.publisher == nil {
		return nil
	}

	familyName := ""
	if family, err := s.store.GetFamily(ctx, tx.FamilyID); err == nil {
		familyName = family.Name
	}

	msg := amqp.NewTransactionDeletedMessage(tx.ID, tx.UserID, scope.UserID, tx.Name, tx.FamilyID, familyName)
	go func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.publisher.PublishTransactionDeleted(publishCtx, msg); err != nil {
			s.logger.Error("Failed to publish deletion event",
				log.FieldError, err,
				log.FieldTxID, tx.ID)
		}
	}()
	return nil
}

// ResetMonth deletes every transaction in the calendar month containing ref.
func (s *TransactionService) ResetMonth(ctx context.Context, scope storage.Scope, ref time.Time) (int64, error) {
	from, to := core.MonthRange(ref)
	n, err := s.store.DeleteTransactionsInRange(ctx, scope, from, to)
	if err != nil {
		return 0, fmt.Errorf("reset month: %w", err)
	}
	s.logger.InfoContext(ctx, "Month reset",
		log.FieldUserID, scope.UserID,
		log.FieldYear, ref.Year(),
		log.FieldMonth, int(ref.Month()),
		"deleted", n)
	return n, nil
}

// ResetFuture deletes every transaction dated in months after the one
// containing ref. Installment tails are the usual target.
func (s *TransactionService) ResetFuture(ctx context.Context, scope storage.Scope, ref time.Time) (int64, error) {
	_, endOfMonth := core.MonthRange(ref)
	n, err := s.store.DeleteTransactionsFrom(ctx, scope, endOfMonth.Add(time.Nanosecond))
	if err != nil {
		return 0, fmt.Errorf("reset future: %w", err)
	}
	s.logger.InfoContext(ctx, "Future transactions reset",
		log.FieldUserID, scope.UserID,
		"deleted", n)
	return n, nil
}

// ResetAll deletes every transaction in the scope. Credit cards are never
// touched by any reset.
func (s *TransactionService) ResetAll(ctx context.Context, scope storage.Scope) (int64, error) {
	n, err := s.store.DeleteAllTransactions(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("reset all: %w", err)
	}
	s.logger.InfoContext(ctx, "All transactions reset",
		log.FieldUserID, scope.UserID,
		"deleted", n)
	return n, nil
}
