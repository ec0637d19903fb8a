package domain

import "time"

// PaymentRequest is a pending invoice created at the provider. The row is the
// reconciliation point for webhook callbacks and is kept forever as an audit
// trail.
type PaymentRequest struct {
	ID          int64         `db:"id" json:"id"`
	TgID        int64         `db:"tg_id" json:"tg_id"`
	AmountUSD   float64       `db:"amount_usd" json:"amount_usd"`
	ReferenceID string        `db:"reference_id" json:"reference_id"`
	TrackID     string        `db:"track_id" json:"track_id,omitempty"`
	Status      PaymentStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	PaidAt      *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
}

// PaymentStatus represents the invoice lifecycle. Transitions go
// pending->paid or pending->failed, each at most once.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)
