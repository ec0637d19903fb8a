package domain

import "time"

// AuditLog is an append-only record of a significant action. The core only
// ever writes these; reading them is an operator concern.
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	TgID      int64                  `db:"tg_id" json:"tg_id"`
	Action    string                 `db:"action" json:"action"`
	Details   map[string]interface{} `db:"details" json:"details"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit actions
const (
	AuditActionDepositCreated   = "deposit_created"
	AuditActionDepositConfirmed = "deposit_confirmed"
	AuditActionPaymentCallback  = "payment_callback"
	AuditActionManualReview     = "manual_review"
	AuditActionManualAdjust     = "manual_adjust"
	AuditActionMinerPurchase    = "miner_purchase"
	AuditActionMinerSale        = "sell_miner"
	AuditActionMinerGift        = "gift_miner"
	AuditActionSwap             = "swap"
	AuditActionPackPurchase     = "pack_purchase"
	AuditActionNewUser          = "new_user"
)

// Settings keys, read live from the settings table at each use site so
// operators can change them without a redeploy.
const (
	SettingSwapFeePercent = "swap_fee_percent"
)
