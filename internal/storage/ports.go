package storage

import (
	"context"
	"errors"
	"time"

	"finanz/internal/core"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSetupRequired is returned when the schema has not been created yet,
	// typically a missing migration run against a fresh database.
	ErrSetupRequired = errors.New("database schema not initialized")
)

// Scope selects the rows a query sees. FamilyID empty means the caller's
// personal rows only; non-empty means the shared family rows.
type Scope struct {
	UserID   string
	FamilyID string
}

// Personal reports whether the scope is the user's private ledger.
func (s Scope) Personal() bool {
	return s.FamilyID == ""
}

// TransactionFilter narrows ListTransactions. Zero From/To mean unbounded;
// empty Kind means both kinds. From and To are inclusive.
type TransactionFilter struct {
	Scope Scope
	From  time.Time
	To    time.Time
	Kind  core.TransactionKind
}

// Store is the persistence port shared by the Postgres and SQLite backends.
type Store interface {
	// Transactions
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]core.Transaction, error)
	DeleteTransactionsInRange(ctx context.Context, scope Scope, from, to time.Time) (int64, error)
	DeleteTransactionsFrom(ctx context.Context, scope Scope, from time.Time) (int64, error)
	DeleteAllTransactions(ctx context.Context, scope Scope) (int64, error)

	// Families
	CreateFamily(ctx context.Context, family core.Family) (core.Family, error)
	GetFamily(ctx context.Context, id string) (core.Family, error)
	DeleteFamily(ctx context.Context, id string) error
	AddFamilyMember(ctx context.Context, member core.FamilyMember) (bool, error)
	RemoveFamilyMember(ctx context.Context, familyID, userID string) error
	ListFamilyMembers(ctx context.Context, familyID string) ([]core.FamilyMember, error)
	GetMembership(ctx context.Context, userID string) (*core.FamilyMember, error)

	// Profiles
	GetProfileByEmail(ctx context.Context, email string) (core.Profile, error)
	GetProfiles(ctx context.Context, userIDs []string) (map[string]core.Profile, error)
	UpsertProfile(ctx context.Context, profile core.Profile) error

	// Notifications
	CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error

	// Credit cards
	CreateCreditCard(ctx context.Context, card core.CreditCard) (core.CreditCard, error)
	ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error)
	UpdateCreditCard(ctx context.Context, card core.CreditCard) error
	DeleteCreditCard(ctx context.Context, id, userID string) error

	Close() error
}
