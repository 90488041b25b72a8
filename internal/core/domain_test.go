package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() Transaction {
	return Transaction{
		UserID:   "u1",
		Kind:     Expense,
		Amount:   decimal.NewFromFloat(49.90),
		Category: "mercado",
		Name:     "Feira da semana",
		Date:     time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC),
		Points:   PointsNew,
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"bad kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"blank name", func(tx *Transaction) { tx.Name = "   " }, ErrEmptyName},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrZeroDate},
		{"unknown category", func(tx *Transaction) { tx.Category = "iates" }, ErrUnknownCategory},
		{"income category on expense", func(tx *Transaction) { tx.Category = "salario" }, ErrUnknownCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			if err := tx.Validate(); err != tc.want {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTransactionCategoryCaseInsensitive(t *testing.T) {
	tx := validTransaction()
	tx.Category = " Mercado "
	if err := tx.Validate(); err != nil {
		t.Fatalf("category matching should be case-normalized: %v", err)
	}
}

func TestKindCategories(t *testing.T) {
	tx := validTransaction()
	tx.Kind = Income
	tx.Category = "salario"
	if err := tx.Validate(); err != nil {
		t.Fatalf("salario must be valid for income: %v", err)
	}
}

func TestFamilyValidate(t *testing.T) {
	if err := (Family{Name: "Silva"}).Validate(); err != nil {
		t.Fatalf("valid family rejected: %v", err)
	}
	if err := (Family{Name: ""}).Validate(); err != ErrEmptyName {
		t.Fatalf("blank family name should fail, got %v", err)
	}
}

func TestCreditCardValidate(t *testing.T) {
	card := CreditCard{Name: "Nubank", LimitAmount: decimal.NewFromInt(5000), ClosingDay: 28, DueDay: 5}
	if err := card.Validate(); err != nil {
		t.Fatalf("valid card rejected: %v", err)
	}
	card.ClosingDay = 32
	if err := card.Validate(); err != ErrInvalidDay {
		t.Fatalf("closing day 32 should fail, got %v", err)
	}
}

func TestPersonalScope(t *testing.T) {
	tx := validTransaction()
	if !tx.Personal() {
		t.Fatal("transaction without family id must be personal")
	}
	tx.FamilyID = "f1"
	if tx.Personal() {
		t.Fatal("transaction with family id must not be personal")
	}
}
