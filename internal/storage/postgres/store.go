package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"finanz/internal/core"
	"finanz/internal/storage"
)

// Store is the Postgres implementation of storage.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// mapError translates pgx errors into the storage sentinels. Undefined-table
// errors mean the schema was never created.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return fmt.Errorf("%w: %s", storage.ErrSetupRequired, pgErr.Message)
	}
	return err
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

const txColumns = `id, user_id, COALESCE(family_id, ''), kind, amount::text, category, name, description, tx_date, is_recurring, points`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t      core.Transaction
		amount string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.FamilyID, &t.Kind, &amount, &t.Category,
		&t.Name, &t.Description, &t.Date, &t.IsRecurring, &t.Points)
	if err != nil {
		return core.Transaction{}, mapError(err)
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, family_id, kind, amount, category, name, description, tx_date, is_recurring, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tx.ID, tx.UserID, nullableID(tx.FamilyID), tx.Kind, tx.Amount.StringFixed(2),
		tx.Category, tx.Name, tx.Description, tx.Date, tx.IsRecurring, tx.Points)
	if err != nil {
		return core.Transaction{}, mapError(err)
	}
	return tx, nil
}

func (s *Store) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		out[i] = tx
		batch.Queue(`
			INSERT INTO transactions (id, user_id, family_id, kind, amount, category, name, description, tx_date, is_recurring, points)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			tx.ID, tx.UserID, nullableID(tx.FamilyID), tx.Kind, tx.Amount.StringFixed(2),
			tx.Category, tx.Name, tx.Description, tx.Date, tx.IsRecurring, tx.Points)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range txs {
		if _, err := results.Exec(); err != nil {
			return nil, mapError(err)
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions
		SET kind = $2, amount = $3, category = $4, name = $5, description = $6, tx_date = $7, is_recurring = $8
		WHERE id = $1`,
		tx.ID, tx.Kind, tx.Amount.StringFixed(2), tx.Category, tx.Name, tx.Description, tx.Date, tx.IsRecurring)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scopeClause builds the WHERE fragment that keeps personal and family rows
// apart. args carries the already-bound positional arguments.
func scopeClause(scope storage.Scope, args []any) (string, []any) {
	if scope.Personal() {
		args = append(args, scope.UserID)
		return fmt.Sprintf("family_id IS NULL AND user_id = $%d", len(args)), args
	}
	args = append(args, scope.FamilyID)
	return fmt.Sprintf("family_id = $%d", len(args)), args
}

func (s *Store) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	var args []any
	clause, args := scopeClause(filter.Scope, args)
	query := `SELECT ` + txColumns + ` FROM transactions WHERE ` + clause

	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND tx_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND tx_date <= $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	query += " ORDER BY tx_date DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
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
	return txs, mapError(rows.Err())
}

func (s *Store) DeleteTransactionsInRange(ctx context.Context, scope storage.Scope, from, to time.Time) (int64, error) {
	var args []any
	clause, args := scopeClause(scope, args)
	args = append(args, from, to)
	query := fmt.Sprintf(`DELETE FROM transactions WHERE %s AND tx_date >= $%d AND tx_date <= $%d`,
		clause, len(args)-1, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteTransactionsFrom(ctx context.Context, scope storage.Scope, from time.Time) (int64, error) {
	var args []any
	clause, args := scopeClause(scope, args)
	args = append(args, from)
	query := fmt.Sprintf(`DELETE FROM transactions WHERE %s AND tx_date >= $%d`, clause, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteAllTransactions(ctx context.Context, scope storage.Scope) (int64, error) {
	var args []any
	clause, args := scopeClause(scope, args)
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE `+clause, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CreateFamily(ctx context.Context, family core.Family) (core.Family, error) {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	if family.CreatedAt.IsZero() {
		family.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO families (id, name, created_by, created_at)
		VALUES ($1, $2, $3, $4)`,
		family.ID, family.Name, family.CreatedBy, family.CreatedAt)
	if err != nil {
		return core.Family{}, mapError(err)
	}
	return family, nil
}

func (s *Store) GetFamily(ctx context.Context, id string) (core.Family, error) {
	var f core.Family
	err := s.pool.QueryRow(ctx, `SELECT id, name, created_by, created_at FROM families WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.CreatedBy, &f.CreatedAt)
	if err != nil {
		return core.Family{}, mapError(err)
	}
	return f, nil
}

func (s *Store) DeleteFamily(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM families WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddFamilyMember inserts the membership if it does not exist yet. Returns
// false when the user was already a member.
func (s *Store) AddFamilyMember(ctx context.Context, member core.FamilyMember) (bool, error) {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO family_members (id, family_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (family_id, user_id) DO NOTHING`,
		member.ID, member.FamilyID, member.UserID, member.Role, member.JoinedAt)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) RemoveFamilyMember(ctx context.Context, familyID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM family_members WHERE family_id = $1 AND user_id = $2`, familyID, userID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListFamilyMembers(ctx context.Context, familyID string) ([]core.FamilyMember, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, family_id, user_id, role, joined_at
		FROM family_members WHERE family_id = $1
		ORDER BY joined_at, id`, familyID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var members []core.FamilyMember
	for rows.Next() {
		var m core.FamilyMember
		if err := rows.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, mapError(err)
		}
		members = append(members, m)
	}
	return members, mapError(rows.Err())
}

func (s *Store) GetMembership(ctx context.Context, userID string) (*core.FamilyMember, error) {
	var m core.FamilyMember
	err := s.pool.QueryRow(ctx, `
		SELECT id, family_id, user_id, role, joined_at
		FROM family_members WHERE user_id = $1
		ORDER BY joined_at LIMIT 1`, userID).
		Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (core.Profile, error) {
	var p core.Profile
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, full_name, avatar_url FROM profiles WHERE lower(email) = lower($1)`, email).
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

	rows, err := s.pool.Query(ctx, `
		SELECT id, email, full_name, avatar_url FROM profiles WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var p core.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL); err != nil {
			return nil, mapError(err)
		}
		profiles[p.ID] = p
	}
	return profiles, mapError(rows.Err())
}

func (s *Store) UpsertProfile(ctx context.Context, profile core.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, email, full_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = $2, full_name = $3, avatar_url = $4`,
		profile.ID, profile.Email, profile.FullName, profile.AvatarURL)
	return mapError(err)
}

func (s *Store) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.UserID, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return core.Notification{}, mapError(err)
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, message, read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC, id LIMIT $2`, userID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var notifications []core.Notification
	for rows.Next() {
		var n core.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		notifications = append(notifications, n)
	}
	return notifications, mapError(rows.Err())
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).
		Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	return mapError(err)
}

func (s *Store) CreateCreditCard(ctx context.Context, card core.CreditCard) (core.CreditCard, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO credit_cards (id, user_id, family_id, name, limit_amount, closing_day, due_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		card.ID, card.UserID, nullableID(card.FamilyID), card.Name,
		card.LimitAmount.StringFixed(2), card.ClosingDay, card.DueDay)
	if err != nil {
		return core.CreditCard{}, mapError(err)
	}
	return card, nil
}

func (s *Store) ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, COALESCE(family_id, ''), name, limit_amount::text, closing_day, due_day
		FROM credit_cards WHERE user_id = $1
		ORDER BY name, id`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		var (
			c      core.CreditCard
			amount string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.FamilyID, &c.Name, &amount, &c.ClosingDay, &c.DueDay); err != nil {
			return nil, mapError(err)
		}
		c.LimitAmount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse stored limit %q: %w", amount, err)
		}
		cards = append(cards, c)
	}
	return cards, mapError(rows.Err())
}

func (s *Store) UpdateCreditCard(ctx context.Context, card core.CreditCard) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE credit_cards
		SET name = $3, limit_amount = $4, closing_day = $5, due_day = $6
		WHERE id = $1 AND user_id = $2`,
		card.ID, card.UserID, card.Name, card.LimitAmount.StringFixed(2), card.ClosingDay, card.DueDay)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCreditCard(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM credit_cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
