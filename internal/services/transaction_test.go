package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanz/internal/amqp"
	"finanz/internal/core"
	"finanz/internal/storage"
	"finanz/internal/storage/storetest"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []*amqp.TransactionDeletedMessage
}

func (p *fakePublisher) PublishTransactionDeleted(_ context.Context, msg *amqp.TransactionDeletedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) published() []*amqp.TransactionDeletedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.TransactionDeletedMessage(nil), p.messages...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func validInput() CreateTransactionInput {
	return CreateTransactionInput{
		Kind:     core.Expense,
		Amount:   decimal.NewFromInt(120),
		Category: "mercado",
		Name:     "Compras da semana",
		Date:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestTransactionService_Create_Single(t *testing.T) {
	store := storetest.New()
	svc := NewTransactionService(store, nil, nil)
	scope := storage.Scope{UserID: "user-a"}

	created, err := svc.Create(context.Background(), scope, validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created %d rows, want 1", len(created))
	}
	if created[0].Points != core.PointsNew {
		t.Errorf("Points = %d, want %d", created[0].Points, core.PointsNew)
	}
	if created[0].IsRecurring {
		t.Error("single transaction should not be recurring")
	}
}

func TestTransactionService_Create_Installments(t *testing.T) {
	store := storetest.New()
	svc := NewTransactionService(store, nil, nil)
	scope := storage.Scope{UserID: "user-a"}

	in := validInput()
	in.Installments = 3

	created, err := svc.Create(context.Background(), scope, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d rows, want 3", len(created))
	}

	for i, tx := range created {
		wantDesc := fmt.Sprintf("Parcela %d/3", i+1)
		if tx.Description != wantDesc {
			t.Errorf("row %d description = %q, want %q", i, tx.Description, wantDesc)
		}
		wantDate := in.Date.AddDate(0, i, 0)
		if !tx.Date.Equal(wantDate) {
			t.Errorf("row %d date = %v, want %v", i, tx.Date, wantDate)
		}
		if !tx.IsRecurring {
			t.Errorf("row %d should be recurring", i)
		}
	}
	if created[0].Points != core.PointsNew {
		t.Errorf("first installment points = %d, want %d", created[0].Points, core.PointsNew)
	}
	for i := 1; i < 3; i++ {
		if created[i].Points != core.PointsInstallment {
			t.Errorf("installment %d points = %d, want %d", i+1, created[i].Points, core.PointsInstallment)
		}
	}
}

func TestTransactionService_Create_Invalid(t *testing.T) {
	store := storetest.New()
	svc := NewTransactionService(store, nil, nil)
	scope := storage.Scope{UserID: "user-a"}

	in := validInput()
	in.Category = "aluguel"

	if _, err := svc.Create(context.Background(), scope, in); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("Create() error = %v, want ErrUnknownCategory", err)
	}
	if len(store.Transactions) != 0 {
		t.Error("invalid transaction should not be stored")
	}
}

func TestTransactionService_Delete_ScopeIsolation(t *testing.T) {
	store := storetest.New()
	svc := NewTransactionService(store, nil, nil)

	tx, _ := store.CreateTransaction(context.Background(), core.Transaction{
		UserID: "user-a", Kind: core.Expense, Amount: decimal.NewFromInt(10),
		Category: "mercado", Name: "x", Date: time.Now(),
	})

	err := svc.Delete(context.Background(), storage.Scope{UserID: "user-b"}, tx.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete() by other user error = %v, want ErrForbidden", err)
	}
	if _, ok := store.Transactions[tx.ID]; !ok {
		t.Error("transaction should survive a forbidden delete")
	}
}

func TestTransactionService_Delete_FamilyPublishesEvent(t *testing.T) {
	store := storetest.New()
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub, nil)

	family, _ := store.CreateFamily(context.Background(), core.Family{Name: "Silva", CreatedBy: "user-a"})
	tx, _ := store.CreateTransaction(context.Background(), core.Transaction{
		UserID: "user-a", FamilyID: family.ID, Kind: core.Expense,
		Amount: decimal.NewFromInt(10), Category: "mercado", Name: "Feira", Date: time.Now(),
	})

	// user-b (another family member) deletes user-a's transaction
	err := svc.Delete(context.Background(), storage.Scope{UserID: "user-b", FamilyID: family.ID}, tx.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	waitFor(t, func() bool { return len(pub.published()) == 1 })
	msg := pub.published()[0]
	if msg.OwnerUserID != "user-a" || msg.DeletedByUserID != "user-b" {
		t.Errorf("message routing wrong: %+v", msg)
	}
	if msg.FamilyName != "Silva" {
		t.Errorf("FamilyName = %q, want Silva", msg.FamilyName)
	}
}

func TestTransactionService_Delete_OwnRowNoEvent(t *testing.T) {
	store := storetest.New()
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub, nil)

	family, _ := store.CreateFamily(context.Background(), core.Family{Name: "Silva", CreatedBy: "user-a"})
	tx, _ := store.CreateTransaction(context.Background(), core.Transaction{
		UserID: "user-a", FamilyID: family.ID, Kind: core.Expense,
		Amount: decimal.NewFromInt(10), Category: "mercado", Name: "Feira", Date: time.Now(),
	})

	if err := svc.Delete(context.Background(), storage.Scope{UserID: "user-a", FamilyID: family.ID}, tx.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if len(pub.published()) != 0 {
		t.Error("deleting your own transaction should not publish an event")
	}
}

func TestTransactionService_Update_PreservesPoints(t *testing.T) {
	store := storetest.New()
	svc := NewTransactionService(store, nil, nil)
	scope := storage.Scope{UserID: "user-a"}

	created, err := svc.Create(context.Background(), scope, validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), scope, created[0].ID, UpdateTransactionInput{
		Kind:     core.Expense,
		Amount:   decimal.NewFromInt(99),
		Category: "lazer",
		Name:     "Cinema",
		Date:     created[0].Date,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Points != core.PointsNew {
		t.Errorf("Points after update = %d, want %d", updated.Points, core.PointsNew)
	}
	if updated.UserID != "user-a" {
		t.Errorf("UserID changed to %q", updated.UserID)
	}
}

func TestTransactionService_Resets(t *testing.T) {
	store := storetest.New()
	svc := NewTransactionService(store, nil, nil)
	scope := storage.Scope{UserID: "user-a"}
	ref := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	mk := func(date time.Time) {
		store.CreateTransaction(context.Background(), core.Transaction{
			UserID: "user-a", Kind: core.Expense, Amount: decimal.NewFromInt(5),
			Category: "mercado", Name: "x", Date: date,
		})
	}
	mk(ref)                     // current month
	mk(ref.AddDate(0, -1, 0))   // previous month
	mk(ref.AddDate(0, 1, 0))    // next month
	mk(ref.AddDate(0, 2, 0))    // two months out
	store.CreateCreditCard(context.Background(), core.CreditCard{
		UserID: "user-a", Name: "Visa", LimitAmount: decimal.NewFromInt(1000), ClosingDay: 5, DueDay: 12,
	})

	n, err := svc.ResetMonth(context.Background(), scope, ref)
	if err != nil || n != 1 {
		t.Fatalf("ResetMonth() = %d, %v, want 1 deleted", n, err)
	}

	n, err = svc.ResetFuture(context.Background(), scope, ref)
	if err != nil || n != 2 {
		t.Fatalf("ResetFuture() = %d, %v, want 2 deleted", n, err)
	}

	n, err = svc.ResetAll(context.Background(), scope)
	if err != nil || n != 1 {
		t.Fatalf("ResetAll() = %d, %v, want 1 deleted", n, err)
	}

	if len(store.Cards) != 1 {
		t.Error("resets must never delete credit cards")
	}
}
