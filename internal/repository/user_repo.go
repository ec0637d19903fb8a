package repository

import (
	"context"
	"errors"
	"fmt"

	"minemechanics/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUserNotFound      = errors.New("user not found")
)

// UserRepository owns the users table: profile rows plus the three balance
// columns. Every balance mutation is a single SQL statement so two events
// racing on the same user can never lose an update.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// GenerateUsername builds the default display name from the last four digits
// of the Telegram id.
func GenerateUsername(tgID int64) string {
	s := fmt.Sprintf("%04d", tgID)
	return "Player" + s[len(s)-4:]
}

// EnsureUser creates the user row if it does not exist yet. Safe to call
// concurrently; the insert is a no-op when the row is already there.
func (r *UserRepository) EnsureUser(ctx context.Context, tgID int64, username string) error {
	if username == "" {
		username = GenerateUsername(tgID)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (tg_id, username)
		VALUES ($1, $2)
		ON CONFLICT (tg_id) DO NOTHING
	`, tgID, username)
	return err
}

func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tg_id, COALESCE(username, ''), balance_minem, balance_m2, packs, created_at
		FROM users
		WHERE tg_id = $1
	`, tgID)

	var u domain.User
	if err := row.Scan(&u.ID, &u.TgID, &u.Username, &u.BalanceMinem, &u.BalanceM2, &u.Packs, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Credit atomically adds amount to the target balance, creating the user row
// with a generated display name if it is absent. Increment-or-create is one
// statement: two credits landing together are both reflected.
func (r *UserRepository) Credit(ctx context.Context, tgID int64, cur domain.Currency, amount float64) (newBalance float64, err error) {
	col := cur.Column()
	err = r.db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO users (tg_id, username, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT (tg_id) DO UPDATE SET %s = users.%s + EXCLUDED.%s
		RETURNING %s
	`, col, col, col, col, col), tgID, GenerateUsername(tgID), amount).Scan(&newBalance)
	return newBalance, err
}

// CreditTx is Credit inside an existing transaction.
func (r *UserRepository) CreditTx(ctx context.Context, tx pgx.Tx, tgID int64, cur domain.Currency, amount float64) (newBalance float64, err error) {
	col := cur.Column()
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO users (tg_id, username, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT (tg_id) DO UPDATE SET %s = users.%s + EXCLUDED.%s
		RETURNING %s
	`, col, col, col, col, col), tgID, GenerateUsername(tgID), amount).Scan(&newBalance)
	return newBalance, err
}

// Debit atomically checks and decrements the target balance in one statement.
// Zero rows affected means the balance did not cover the amount at the
// instant of the attempt: nothing is mutated.
func (r *UserRepository) Debit(ctx context.Context, tgID int64, cur domain.Currency, amount float64) (newBalance float64, err error) {
	col := cur.Column()
	err = r.db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE users SET %s = %s - $2
		WHERE tg_id = $1 AND %s >= $2
		RETURNING %s
	`, col, col, col, col), tgID, amount).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, r.noRowsDebitErr(ctx, tgID)
		}
		return 0, err
	}
	return newBalance, nil
}

// DebitTx is Debit inside an existing transaction.
func (r *UserRepository) DebitTx(ctx context.Context, tx pgx.Tx, tgID int64, cur domain.Currency, amount float64) (newBalance float64, err error) {
	col := cur.Column()
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE users SET %s = %s - $2
		WHERE tg_id = $1 AND %s >= $2
		RETURNING %s
	`, col, col, col, col), tgID, amount).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			_ = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE tg_id = $1)`, tgID).Scan(&exists)
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}
	return newBalance, nil
}

// Swap converts amount of M² into received Minem in one statement, so the
// debit and the credit either both land or neither does.
func (r *UserRepository) Swap(ctx context.Context, tgID int64, amount, received float64) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE users
		SET balance_m2 = balance_m2 - $2, balance_minem = balance_minem + $3
		WHERE tg_id = $1 AND balance_m2 >= $2
	`, tgID, amount, received)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.noRowsDebitErr(ctx, tgID)
	}
	return nil
}

// TopUpPacks moves amount of Minem into the packs counter 1:1, atomically.
func (r *UserRepository) TopUpPacks(ctx context.Context, tgID int64, amount float64) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE users
		SET balance_minem = balance_minem - $2, packs = packs + $2
		WHERE tg_id = $1 AND balance_minem >= $2
	`, tgID, amount)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.noRowsDebitErr(ctx, tgID)
	}
	return nil
}

// noRowsDebitErr tells a missing user apart from an uncovered balance.
func (r *UserRepository) noRowsDebitErr(ctx context.Context, tgID int64) error {
	var exists bool
	_ = r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE tg_id = $1)`, tgID).Scan(&exists)
	if !exists {
		return ErrUserNotFound
	}
	return ErrInsufficientFunds
}
