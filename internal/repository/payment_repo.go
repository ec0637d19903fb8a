package repository

import (
	"context"
	"errors"

	"minemechanics/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository owns the payments table and the applied_credits dedupe
// table. Callbacks from the provider arrive at least once, so the paid path
// is built around compare-and-transition updates instead of blind overwrites.
type PaymentRepository struct {
	db    *pgxpool.Pool
	users *UserRepository
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db, users: NewUserRepository(db)}
}

// Create inserts a new pending payment record.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.PaymentRequest) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO payments (tg_id, amount_usd, reference_id, track_id, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, created_at
	`, p.TgID, p.AmountUSD, p.ReferenceID, p.TrackID).Scan(&p.ID, &p.CreatedAt)
}

// GetByReference retrieves a payment by its opaque reference. Returns
// (nil, nil) when no record matches, mirroring how a callback can race the
// invoice insert.
func (r *PaymentRepository) GetByReference(ctx context.Context, ref string) (*domain.PaymentRequest, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tg_id, amount_usd, reference_id, COALESCE(track_id, ''), status, created_at, paid_at
		FROM payments
		WHERE reference_id = $1
	`, ref)

	var p domain.PaymentRequest
	if err := row.Scan(&p.ID, &p.TgID, &p.AmountUSD, &p.ReferenceID, &p.TrackID, &p.Status, &p.CreatedAt, &p.PaidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ApplyPaid marks the payment paid and credits the owner, exactly once per
// reference no matter how many times the provider redelivers the callback.
//
// Two guards run inside one transaction: a compare-and-transition update that
// only moves pending rows to paid, and an insert into applied_credits keyed
// by reference. The credit runs only when the row actually transitioned
// here: a reference that is already terminal (paid by an earlier delivery,
// or failed before an out-of-order paid callback arrived) commits as a no-op
// with nothing credited.
func (r *PaymentRepository) ApplyPaid(ctx context.Context, ref, trackID string, tgID int64, amount float64) (credited bool, err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = 'paid', paid_at = now(), track_id = COALESCE(NULLIF($2, ''), track_id)
		WHERE reference_id = $1 AND status = 'pending'
	`, ref, trackID)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		// row already terminal, never credit without the transition
		return false, tx.Commit(ctx)
	}

	ct, err = tx.Exec(ctx, `
		INSERT INTO applied_credits (reference_id, tg_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (reference_id) DO NOTHING
	`, ref, tgID, amount)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		// already credited by an earlier delivery
		return false, tx.Commit(ctx)
	}

	if _, err = r.users.CreditTx(ctx, tx, tgID, domain.CurrencyMinem, amount); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// MarkFailed transitions a pending payment to failed. Already-terminal rows
// are left alone.
func (r *PaymentRepository) MarkFailed(ctx context.Context, ref, trackID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payments
		SET status = 'failed', track_id = COALESCE(NULLIF($2, ''), track_id)
		WHERE reference_id = $1 AND status = 'pending'
	`, ref, trackID)
	return err
}
