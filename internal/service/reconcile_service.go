package service

import (
	"context"
	"fmt"

	"minemechanics/internal/ccpayment"
	"minemechanics/internal/domain"
	"minemechanics/internal/logger"
)

// PaymentStore is the storage contract the reconciler and the invoice issuer
// share. The production implementation is PaymentRepository; ApplyPaid must
// guarantee at-most-once crediting per reference.
type PaymentStore interface {
	Create(ctx context.Context, p *domain.PaymentRequest) error
	GetByReference(ctx context.Context, ref string) (*domain.PaymentRequest, error)
	ApplyPaid(ctx context.Context, ref, trackID string, tgID int64, amount float64) (credited bool, err error)
	MarkFailed(ctx context.Context, ref, trackID string) error
}

// failedStatuses are provider statuses that terminate an invoice
// unsuccessfully. Anything else that is not paid-equivalent keeps the row
// pending.
var failedStatuses = map[string]bool{
	"failed":    true,
	"cancelled": true,
	"expired":   true,
	"error":     true,
}

// ReconcileResult describes what a processed callback did.
type ReconcileResult struct {
	ReferenceID string
	Status      string
	Credited    bool
	// Flagged means the callback was acknowledged but left for manual
	// reconciliation instead of crediting anyone.
	Flagged bool
	TgID    int64
	Amount  float64
}

// ReconcileService turns at-least-once provider callbacks into at-most-once
// balance credits.
type ReconcileService struct {
	payments PaymentStore
	audit    auditor
	notify   func(text string)
}

// NewReconcileService creates a reconciler. notify is the best-effort admin
// channel and may be nil.
func NewReconcileService(payments PaymentStore, audit auditor, notify func(text string)) *ReconcileService {
	return &ReconcileService{payments: payments, audit: audit, notify: notify}
}

// Process handles one raw callback body. It returns ccpayment.ErrMissingReference
// for payloads that cannot be correlated with any invoice; every other
// outcome, including duplicates and unknown references, is acknowledged so
// the provider stops retrying.
func (s *ReconcileService) Process(ctx context.Context, body []byte) (*ReconcileResult, error) {
	cb, err := ccpayment.ParseCallback(body)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{ReferenceID: cb.ReferenceID, Status: cb.Status}

	// The pending record may not be visible yet if the callback raced the
	// invoice insert. An unknown reference is never credited: it is flagged
	// for manual follow-up so funds cannot be silently dropped.
	p, err := s.payments.GetByReference(ctx, cb.ReferenceID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		logger.Warn("callback for unknown reference", "reference", cb.ReferenceID, "status", cb.Status)
		s.audit.Log(ctx, cb.TgID, domain.AuditActionManualReview, map[string]interface{}{
			"reference_id": cb.ReferenceID,
			"status":       cb.Status,
			"amount":       cb.Amount,
			"reason":       "no matching payment request",
		})
		res.Flagged = true
		return res, nil
	}

	if !cb.Paid() {
		if failedStatuses[cb.Status] {
			if err := s.payments.MarkFailed(ctx, cb.ReferenceID, cb.TrackID); err != nil {
				return nil, err
			}
		}
		s.audit.Log(ctx, p.TgID, domain.AuditActionPaymentCallback, map[string]interface{}{
			"reference_id": cb.ReferenceID,
			"status":       cb.Status,
		})
		return res, nil
	}

	// Prefer the identity carried in callback metadata, then the pending
	// record; same for the amount.
	tgID := cb.TgID
	if tgID == 0 {
		tgID = p.TgID
	}
	amount := cb.Amount
	if amount == 0 {
		amount = p.AmountUSD
	}

	if tgID == 0 {
		logger.Warn("paid callback with unresolvable user", "reference", cb.ReferenceID)
		s.audit.Log(ctx, 0, domain.AuditActionManualReview, map[string]interface{}{
			"reference_id": cb.ReferenceID,
			"amount":       amount,
			"reason":       "owner could not be resolved",
		})
		res.Flagged = true
		return res, nil
	}

	// Funds arrived for a payment already marked failed: an out-of-order
	// delivery. Never credited automatically, never dropped either.
	if p.Status == domain.PaymentStatusFailed {
		logger.Warn("paid callback for failed payment", "reference", cb.ReferenceID)
		s.audit.Log(ctx, tgID, domain.AuditActionManualReview, map[string]interface{}{
			"reference_id": cb.ReferenceID,
			"amount":       amount,
			"reason":       "paid callback after failed status",
		})
		res.Flagged = true
		return res, nil
	}

	credited, err := s.payments.ApplyPaid(ctx, cb.ReferenceID, cb.TrackID, tgID, amount)
	if err != nil {
		return nil, err
	}

	res.Credited = credited
	res.TgID = tgID
	res.Amount = amount

	if credited {
		s.audit.Log(ctx, tgID, domain.AuditActionDepositConfirmed, map[string]interface{}{
			"reference_id": cb.ReferenceID,
			"amount":       amount,
		})
		if s.notify != nil {
			s.notify(fmt.Sprintf("<b>Deposit confirmed</b>\nUser: %d\nAmount: $%.6f\nRef: %s", tgID, amount, cb.ReferenceID))
		}
	} else {
		logger.Info("duplicate paid callback ignored", "reference", cb.ReferenceID)
	}
	return res, nil
}
