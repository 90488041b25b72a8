package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Points awarded per transaction. A fresh transaction (or the first
// installment of a recurring series) scores PointsNew; later installments
// score nothing. Deleting a row removes its points from the monthly sum.
const (
	PointsNew         = 5
	PointsInstallment = 0
)

type (
	TransactionKind string
	MemberRole      string

	// Transaction is one income or expense event. FamilyID empty means the
	// row is personal; non-empty means it is shared within that family.
	// Exactly one of the two scopes applies; queries must always filter
	// by scope.
	Transaction struct {
		ID          string
		UserID      string
		FamilyID    string
		Kind        TransactionKind
		Amount      decimal.Decimal
		Category    string
		Name        string
		Description string
		Date        time.Time
		IsRecurring bool
		Points      int
	}

	Family struct {
		ID        string
		Name      string
		CreatedAt time.Time
		CreatedBy string
	}

	// FamilyMember links a user to a family. (FamilyID, UserID) is unique;
	// the creator is always the first admin.
	FamilyMember struct {
		ID       string
		FamilyID string
		UserID   string
		Role     MemberRole
		JoinedAt time.Time
	}

	Profile struct {
		ID        string
		Email     string
		FullName  string
		AvatarURL string
	}

	Notification struct {
		ID        string
		UserID    string
		Message   string
		Read      bool
		CreatedAt time.Time
	}

	CreditCard struct {
		ID          string
		UserID      string
		FamilyID    string
		Name        string
		LimitAmount decimal.Decimal
		ClosingDay  int
		DueDay      int
	}
)

var (
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrUnknownCategory = errors.New("unknown category")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrInvalidRole     = errors.New("invalid member role")
	ErrInvalidDay      = errors.New("invalid day of month")
)

// ExpenseCategories and IncomeCategories are the enumerated labels the UI
// offers; category keys are stored lowercase.
var (
	ExpenseCategories = []string{"mercado", "lazer", "veiculo", "casa", "educacao", "outros"}
	IncomeCategories  = []string{"salario", "investimento", "poupanca", "reserva", "outros"}
)

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

// Categories returns the allowed category set for the kind.
func (k TransactionKind) Categories() []string {
	if k == Income {
		return IncomeCategories
	}
	return ExpenseCategories
}

func (r MemberRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if len(t.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	category := strings.ToLower(strings.TrimSpace(t.Category))
	for _, c := range t.Kind.Categories() {
		if c == category {
			return nil
		}
	}
	return ErrUnknownCategory
}

func (f Family) Validate() error {
	if len(strings.TrimSpace(f.Name)) == 0 {
		return ErrEmptyName
	}
	if len(f.Name) > 100 {
		return errors.New("family name too long (max 100 characters)")
	}
	return nil
}

func (c CreditCard) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if c.LimitAmount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidDay
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDay
	}
	return nil
}

// Personal reports whether the transaction has no family scope.
func (t Transaction) Personal() bool {
	return t.FamilyID == ""
}
