// Package storetest provides an in-memory storage.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"finanz/internal/core"
	"finanz/internal/storage"
)

// InMemory implements storage.Store with plain maps. Failure modes are
// switchable per method family so tests can exercise degraded paths.
type InMemory struct {
	Transactions  map[string]core.Transaction
	Families      map[string]core.Family
	Members       map[string]core.FamilyMember
	Profiles      map[string]core.Profile
	Notifications map[string]core.Notification
	Cards         map[string]core.CreditCard

	FailAddMember bool
	FailListTxs   bool

	nextID int
}

func New() *InMemory {
	return &InMemory{
		Transactions:  make(map[string]core.Transaction),
		Families:      make(map[string]core.Family),
		Members:       make(map[string]core.FamilyMember),
		Profiles:      make(map[string]core.Profile),
		Notifications: make(map[string]core.Notification),
		Cards:         make(map[string]core.CreditCard),
	}
}

var _ storage.Store = (*InMemory)(nil)

func (f *InMemory) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *InMemory) Close() error { return nil }

func (f *InMemory) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = f.id()
	}
	f.Transactions[tx.ID] = tx
	return tx, nil
}

func (f *InMemory) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		created, err := f.CreateTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		out[i] = created
	}
	return out, nil
}

func (f *InMemory) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	tx, ok := f.Transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (f *InMemory) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	if _, ok := f.Transactions[tx.ID]; !ok {
		return storage.ErrNotFound
	}
	f.Transactions[tx.ID] = tx
	return nil
}

func (f *InMemory) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := f.Transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.Transactions, id)
	return nil
}

func inScope(tx core.Transaction, scope storage.Scope) bool {
	if scope.Personal() {
		return tx.Personal() && tx.UserID == scope.UserID
	}
	return tx.FamilyID == scope.FamilyID
}

func (f *InMemory) ListTransactions(_ context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	if f.FailListTxs {
		return nil, fmt.Errorf("synthetic list failure")
	}
	var txs []core.Transaction
	for _, tx := range f.Transactions {
		if !inScope(tx, filter.Scope) {
			continue
		}
		if !filter.From.IsZero() && tx.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && tx.Date.After(filter.To) {
			continue
		}
		if filter.Kind != "" && tx.Kind != filter.Kind {
			continue
		}
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
	return txs, nil
}

func (f *InMemory) deleteWhere(scope storage.Scope, keep func(core.Transaction) bool) int64 {
	var n int64
	for id, tx := range f.Transactions {
		if inScope(tx, scope) && !keep(tx) {
			delete(f.Transactions, id)
			n++
		}
	}
	return n
}

func (f *InMemory) DeleteTransactionsInRange(_ context.Context, scope storage.Scope, from, to time.Time) (int64, error) {
	return f.deleteWhere(scope, func(tx core.Transaction) bool {
		return tx.Date.Before(from) || tx.Date.After(to)
	}), nil
}

func (f *InMemory) DeleteTransactionsFrom(_ context.Context, scope storage.Scope, from time.Time) (int64, error) {
	return f.deleteWhere(scope, func(tx core.Transaction) bool {
		return tx.Date.Before(from)
	}), nil
}

func (f *InMemory) DeleteAllTransactions(_ context.Context, scope storage.Scope) (int64, error) {
	return f.deleteWhere(scope, func(core.Transaction) bool { return false }), nil
}

func (f *InMemory) CreateFamily(_ context.Context, family core.Family) (core.Family, error) {
	if family.ID == "" {
		family.ID = f.id()
	}
	if family.CreatedAt.IsZero() {
		family.CreatedAt = time.Now()
	}
	f.Families[family.ID] = family
	return family, nil
}

func (f *InMemory) GetFamily(_ context.Context, id string) (core.Family, error) {
	family, ok := f.Families[id]
	if !ok {
		return core.Family{}, storage.ErrNotFound
	}
	return family, nil
}

func (f *InMemory) DeleteFamily(_ context.Context, id string) error {
	if _, ok := f.Families[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.Families, id)
	for mid, m := range f.Members {
		if m.FamilyID == id {
			delete(f.Members, mid)
		}
	}
	for tid, tx := range f.Transactions {
		if tx.FamilyID == id {
			delete(f.Transactions, tid)
		}
	}
	return nil
}

func (f *InMemory) AddFamilyMember(_ context.Context, member core.FamilyMember) (bool, error) {
	if f.FailAddMember {
		return false, fmt.Errorf("synthetic membership failure")
	}
	for _, m := range f.Members {
		if m.FamilyID == member.FamilyID && m.UserID == member.UserID {
			return false, nil
		}
	}
	if member.ID == "" {
		member.ID = f.id()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	f.Members[member.ID] = member
	return true, nil
}

func (f *InMemory) RemoveFamilyMember(_ context.Context, familyID, userID string) error {
	for id, m := range f.Members {
		if m.FamilyID == familyID && m.UserID == userID {
			delete(f.Members, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *InMemory) ListFamilyMembers(_ context.Context, familyID string) ([]core.FamilyMember, error) {
	var members []core.FamilyMember
	for _, m := range f.Members {
		if m.FamilyID == familyID {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (f *InMemory) GetMembership(_ context.Context, userID string) (*core.FamilyMember, error) {
	for _, m := range f.Members {
		if m.UserID == userID {
			member := m
			return &member, nil
		}
	}
	return nil, nil
}

func (f *InMemory) GetProfileByEmail(_ context.Context, email string) (core.Profile, error) {
	for _, p := range f.Profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return core.Profile{}, storage.ErrNotFound
}

func (f *InMemory) GetProfiles(_ context.Context, userIDs []string) (map[string]core.Profile, error) {
	out := make(map[string]core.Profile)
	for _, id := range userIDs {
		if p, ok := f.Profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *InMemory) UpsertProfile(_ context.Context, profile core.Profile) error {
	f.Profiles[profile.ID] = profile
	return nil
}

func (f *InMemory) CreateNotification(_ context.Context, n core.Notification) (core.Notification, error) {
	if n.ID == "" {
		n.ID = f.id()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.Notifications[n.ID] = n
	return n, nil
}

func (f *InMemory) ListNotifications(_ context.Context, userID string, limit int) ([]core.Notification, error) {
	var out []core.Notification
	for _, n := range f.Notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *InMemory) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range f.Notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *InMemory) MarkNotificationRead(_ context.Context, id, userID string) error {
	n, ok := f.Notifications[id]
	if !ok || n.UserID != userID {
		return storage.ErrNotFound
	}
	n.Read = true
	f.Notifications[id] = n
	return nil
}

func (f *InMemory) MarkAllNotificationsRead(_ context.Context, userID string) error {
	for id, n := range f.Notifications {
		if n.UserID == userID {
			n.Read = true
			f.Notifications[id] = n
		}
	}
	return nil
}

func (f *InMemory) CreateCreditCard(_ context.Context, card core.CreditCard) (core.CreditCard, error) {
	if card.ID == "" {
		card.ID = f.id()
	}
	f.Cards[card.ID] = card
	return card, nil
}

func (f *InMemory) ListCreditCards(_ context.Context, userID string) ([]core.CreditCard, error) {
	var cards []core.CreditCard
	for _, c := range f.Cards {
		if c.UserID == userID {
			cards = append(cards, c)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

func (f *InMemory) UpdateCreditCard(_ context.Context, card core.CreditCard) error {
	existing, ok := f.Cards[card.ID]
	if !ok || existing.UserID != card.UserID {
		return storage.ErrNotFound
	}
	f.Cards[card.ID] = card
	return nil
}

func (f *InMemory) DeleteCreditCard(_ context.Context, id, userID string) error {
	existing, ok := f.Cards[id]
	if !ok || existing.UserID != userID {
		return storage.ErrNotFound
	}
	delete(f.Cards, id)
	return nil
}
