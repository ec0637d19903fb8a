package repository

import (
	"context"
	"errors"

	"minemechanics/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrMinerNotFound = errors.New("miner not found")
	ErrNotOwner      = errors.New("miner not owned by requester")
)

// MinerRepository owns the miners table. The fund-moving operations
// (purchase, sale) pair the miner mutation with the balance mutation in one
// transaction: either both effects persist or neither does.
type MinerRepository struct {
	db    *pgxpool.Pool
	users *UserRepository
}

func NewMinerRepository(db *pgxpool.Pool) *MinerRepository {
	return &MinerRepository{db: db, users: NewUserRepository(db)}
}

func (r *MinerRepository) GetByID(ctx context.Context, id int64) (*domain.Miner, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, owner_tg_id, price_usd, monthly_reward_m2, created_at
		FROM miners
		WHERE id = $1
	`, id)

	var m domain.Miner
	if err := row.Scan(&m.ID, &m.OwnerTgID, &m.PriceUSD, &m.MonthlyRewardM2, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMinerNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByOwner returns the user's miners ordered by id.
func (r *MinerRepository) GetByOwner(ctx context.Context, ownerTgID int64) ([]domain.Miner, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_tg_id, price_usd, monthly_reward_m2, created_at
		FROM miners
		WHERE owner_tg_id = $1
		ORDER BY id
	`, ownerTgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var miners []domain.Miner
	for rows.Next() {
		var m domain.Miner
		if err := rows.Scan(&m.ID, &m.OwnerTgID, &m.PriceUSD, &m.MonthlyRewardM2, &m.CreatedAt); err != nil {
			return nil, err
		}
		miners = append(miners, m)
	}
	return miners, rows.Err()
}

// OwnerSummary returns total purchase value and total monthly M² for a user.
func (r *MinerRepository) OwnerSummary(ctx context.Context, ownerTgID int64) (totalValue, totalMonthly float64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(price_usd), 0), COALESCE(SUM(monthly_reward_m2), 0)
		FROM miners
		WHERE owner_tg_id = $1
	`, ownerTgID).Scan(&totalValue, &totalMonthly)
	return totalValue, totalMonthly, err
}

// Purchase debits the buyer and inserts the miner row in one transaction.
// The monthly reward is frozen on the row at this point.
func (r *MinerRepository) Purchase(ctx context.Context, buyerTgID int64, price, monthlyReward float64) (*domain.Miner, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = r.users.DebitTx(ctx, tx, buyerTgID, domain.CurrencyMinem, price); err != nil {
		return nil, err
	}

	m := &domain.Miner{OwnerTgID: buyerTgID, PriceUSD: price, MonthlyRewardM2: monthlyReward}
	err = tx.QueryRow(ctx, `
		INSERT INTO miners (owner_tg_id, price_usd, monthly_reward_m2)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.OwnerTgID, m.PriceUSD, m.MonthlyRewardM2).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	return m, tx.Commit(ctx)
}

// Sell deletes the miner and credits the payout in one transaction. The
// delete is guarded by owner_tg_id, so a requester who does not own the miner
// changes nothing.
func (r *MinerRepository) Sell(ctx context.Context, minerID, sellerTgID int64, fraction float64) (payout float64, err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var price float64
	err = tx.QueryRow(ctx, `
		DELETE FROM miners
		WHERE id = $1 AND owner_tg_id = $2
		RETURNING price_usd
	`, minerID, sellerTgID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, r.noRowsOwnerErr(ctx, minerID)
		}
		return 0, err
	}

	payout = price * fraction
	if _, err = r.users.CreditTx(ctx, tx, sellerTgID, domain.CurrencyMinem, payout); err != nil {
		return 0, err
	}

	return payout, tx.Commit(ctx)
}

// Gift reassigns the miner to another user. The target row is created first
// so the ownership handoff never points at a missing user.
func (r *MinerRepository) Gift(ctx context.Context, minerID, fromTgID, toTgID int64) error {
	if err := r.users.EnsureUser(ctx, toTgID, ""); err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, `
		UPDATE miners SET owner_tg_id = $3
		WHERE id = $1 AND owner_tg_id = $2
	`, minerID, fromTgID, toTgID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.noRowsOwnerErr(ctx, minerID)
	}
	return nil
}

// noRowsOwnerErr tells a missing miner apart from an ownership violation.
func (r *MinerRepository) noRowsOwnerErr(ctx context.Context, minerID int64) error {
	var exists bool
	_ = r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM miners WHERE id = $1)`, minerID).Scan(&exists)
	if !exists {
		return ErrMinerNotFound
	}
	return ErrNotOwner
}
