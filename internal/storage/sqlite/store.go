package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"finanz/internal/core"
	"finanz/internal/storage"
)

// Store is the SQLite implementation of storage.Store. Timestamps are stored
// as RFC 3339 UTC strings so lexicographic comparison matches time order.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

const txColumns = `id, user_id, COALESCE(family_id, ''), kind, amount, category, name, description, tx_date, is_recurring, points`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t      core.Transaction
		amount string
		date   string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.FamilyID, &t.Kind, &amount, &t.Category,
		&t.Name, &t.Description, &date, &t.IsRecurring, &t.Points)
	if err != nil {
		return core.Transaction{}, mapError(err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	if t.Date, err = decodeTime(date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, family_id, kind, amount, category, name, description, tx_date, is_recurring, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, nullableID(tx.FamilyID), tx.Kind, tx.Amount.StringFixed(2),
		tx.Category, tx.Name, tx.Description, encodeTime(tx.Date), tx.IsRecurring, tx.Points,
		encodeTime(time.Now()))
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		out[i] = tx
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO transactions (id, user_id, family_id, kind, amount, category, name, description, tx_date, is_recurring, points, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.ID, tx.UserID, nullableID(tx.FamilyID), tx.Kind, tx.Amount.StringFixed(2),
			tx.Category, tx.Name, tx.Description, encodeTime(tx.Date), tx.IsRecurring, tx.Points,
			encodeTime(time.Now()))
		if err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET kind = ?, amount = ?, category = ?, name = ?, description = ?, tx_date = ?, is_recurring = ?
		WHERE id = ?`,
		tx.Kind, tx.Amount.StringFixed(2), tx.Category, tx.Name, tx.Description,
		encodeTime(tx.Date), tx.IsRecurring, tx.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scopeClause(scope storage.Scope) (string, []any) {
	if scope.Personal() {
		return "family_id IS NULL AND user_id = ?", []any{scope.UserID}
	}
	return "family_id = ?", []any{scope.FamilyID}
}

func (s *Store) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	clause, args := scopeClause(filter.Scope)
	query := `SELECT ` + txColumns + ` FROM transactions WHERE ` + clause

	if !filter.From.IsZero() {
		query += " AND tx_date >= ?"
		args = append(args, encodeTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += " AND tx_date <= ?"
		args = append(args, encodeTime(filter.To))
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	query += " ORDER BY tx_date DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Store) DeleteTransactionsInRange(ctx context.Context, scope storage.Scope, from, to time.Time) (int64, error) {
	clause, args := scopeClause(scope)
	args = append(args, encodeTime(from), encodeTime(to))
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE `+clause+` AND tx_date >= ? AND tx_date <= ?`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteTransactionsFrom(ctx context.Context, scope storage.Scope, from time.Time) (int64, error) {
	clause, args := scopeClause(scope)
	args = append(args, encodeTime(from))
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE `+clause+` AND tx_date >= ?`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteAllTransactions(ctx context.Context, scope storage.Scope) (int64, error) {
	clause, args := scopeClause(scope)
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE `+clause, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CreateFamily(ctx context.Context, family core.Family) (core.Family, error) {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	if family.CreatedAt.IsZero() {
		family.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO families (id, name, created_by, created_at)
		VALUES (?, ?, ?, ?)`,
		family.ID, family.Name, family.CreatedBy, encodeTime(family.CreatedAt))
	if err != nil {
		return core.Family{}, err
	}
	return family, nil
}

func (s *Store) GetFamily(ctx context.Context, id string) (core.Family, error) {
	var (
		f         core.Family
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM families WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.CreatedBy, &createdAt)
	if err != nil {
		return core.Family{}, mapError(err)
	}
	if f.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.Family{}, fmt.Errorf("parse stored created_at %q: %w", createdAt, err)
	}
	return f, nil
}

func (s *Store) DeleteFamily(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM families WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) AddFamilyMember(ctx context.Context, member core.FamilyMember) (bool, error) {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO family_members (id, family_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (family_id, user_id) DO NOTHING`,
		member.ID, member.FamilyID, member.UserID, member.Role, encodeTime(member.JoinedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) RemoveFamilyMember(ctx context.Context, familyID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM family_members WHERE family_id = ? AND user_id = ?`, familyID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListFamilyMembers(ctx context.Context, familyID string) ([]core.FamilyMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family_id, user_id, role, joined_at
		FROM family_members WHERE family_id = ?
		ORDER BY joined_at, id`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []core.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanMember(row rowScanner) (core.FamilyMember, error) {
	var (
		m        core.FamilyMember
		joinedAt string
	)
	err := row.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &joinedAt)
	if err != nil {
		return core.FamilyMember{}, mapError(err)
	}
	if m.JoinedAt, err = decodeTime(joinedAt); err != nil {
		return core.FamilyMember{}, fmt.Errorf("parse stored joined_at %q: %w", joinedAt, err)
	}
	return m, nil
}

func (s *Store) GetMembership(ctx context.Context, userID string) (*core.FamilyMember, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, family_id, user_id, role, joined_at
		FROM family_members WHERE user_id = ?
		ORDER BY joined_at LIMIT 1`, userID)
	m, err := scanMember(row)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (core.Profile, error) {
	var p core.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, avatar_url FROM profiles WHERE lower(email) = lower(?)`, email).
		Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL)
	if err != nil {
		return core.Profile{}, mapError(err)
	}
	return p, nil
}

func (s *Store) GetProfiles(ctx context.Context, userIDs []string) (map[string]core.Profile, error) {
	profiles := make(map[string]core.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, full_name, avatar_url FROM profiles WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p core.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

func (s *Store) UpsertProfile(ctx context.Context, profile core.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, avatar_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, full_name = excluded.full_name, avatar_url = excluded.avatar_url`,
		profile.ID, profile.Email, profile.FullName, profile.AvatarURL)
	return err
}

func (s *Store) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, message, read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, n.Read, encodeTime(n.CreatedAt))
	if err != nil {
		return core.Notification{}, err
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, read, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC, id LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []core.Notification
	for rows.Next() {
		var (
			n         core.Notification
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &createdAt); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse stored created_at %q: %w", createdAt, err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).
		Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	return err
}

func (s *Store) CreateCreditCard(ctx context.Context, card core.CreditCard) (core.CreditCard, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_cards (id, user_id, family_id, name, limit_amount, closing_day, due_day)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.UserID, nullableID(card.FamilyID), card.Name,
		card.LimitAmount.StringFixed(2), card.ClosingDay, card.DueDay)
	if err != nil {
		return core.CreditCard{}, err
	}
	return card, nil
}

func (s *Store) ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(family_id, ''), name, limit_amount, closing_day, due_day
		FROM credit_cards WHERE user_id = ?
		ORDER BY name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		var (
			c      core.CreditCard
			amount string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.FamilyID, &c.Name, &amount, &c.ClosingDay, &c.DueDay); err != nil {
			return nil, err
		}
		if c.LimitAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse stored limit %q: %w", amount, err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *Store) UpdateCreditCard(ctx context.Context, card core.CreditCard) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE credit_cards
		SET name = ?, limit_amount = ?, closing_day = ?, due_day = ?
		WHERE id = ? AND user_id = ?`,
		card.Name, card.LimitAmount.StringFixed(2), card.ClosingDay, card.DueDay, card.ID, card.UserID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteCreditCard(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
