package service

import (
	"context"
	"errors"
	"fmt"

	"minemechanics/internal/ccpayment"
	"minemechanics/internal/domain"
	"minemechanics/internal/http/middleware"

	"github.com/google/uuid"
)

var ErrAmountOutOfRange = errors.New("amount outside deposit bounds")

// invoiceCreator is the provider call the issuer depends on.
type invoiceCreator interface {
	CreateInvoice(ctx context.Context, req *ccpayment.InvoiceRequest) (*ccpayment.Invoice, error)
}

// DepositInvoice is handed back to the conversation layer: the URL the user
// opens and the reference the webhook will later resolve.
type DepositInvoice struct {
	PaymentURL  string
	ReferenceID string
	AmountUSD   float64
}

// InvoiceService builds signed invoice requests and persists the pending
// record the reconciler resolves later.
type InvoiceService struct {
	provider invoiceCreator
	payments PaymentStore
	audit    auditor
	notify   func(text string)

	callbackURL string
	returnURL   string
	minDeposit  float64
	maxDeposit  float64
}

func NewInvoiceService(provider invoiceCreator, payments PaymentStore, audit auditor, notify func(string), callbackURL, returnURL string, minDeposit, maxDeposit float64) *InvoiceService {
	return &InvoiceService{
		provider:    provider,
		payments:    payments,
		audit:       audit,
		notify:      notify,
		callbackURL: callbackURL,
		returnURL:   returnURL,
		minDeposit:  minDeposit,
		maxDeposit:  maxDeposit,
	}
}

// Bounds returns the configured deposit limits.
func (s *InvoiceService) Bounds() (min, max float64) {
	return s.minDeposit, s.maxDeposit
}

// newReference generates a globally unique payment reference. A random UUID
// rather than anything time-derived: concurrent requests from one user must
// not be able to collide.
func newReference() string {
	return "MM-" + uuid.NewString()
}

// CreateDeposit creates an invoice at the provider and, only on success,
// persists the pending payment record. A provider failure leaves nothing
// behind: no orphaned pending row without a provider-side invoice.
func (s *InvoiceService) CreateDeposit(ctx context.Context, tgID int64, amountUSD float64, chain string) (*DepositInvoice, error) {
	if amountUSD < s.minDeposit || amountUSD > s.maxDeposit {
		return nil, ErrAmountOutOfRange
	}
	if chain == "" {
		chain = "BTC"
	}

	ref := newReference()
	inv, err := s.provider.CreateInvoice(ctx, &ccpayment.InvoiceRequest{
		ReferenceID: ref,
		Amount:      amountUSD,
		Currency:    "USD",
		Chain:       chain,
		CallbackURL: s.callbackURL,
		ReturnURL:   s.returnURL,
		Metadata:    ccpayment.InvoiceMetadata{TgID: tgID},
	})
	if err != nil {
		return nil, err
	}

	p := &domain.PaymentRequest{
		TgID:        tgID,
		AmountUSD:   amountUSD,
		ReferenceID: ref,
		TrackID:     inv.TrackID,
		Status:      domain.PaymentStatusPending,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	// counted here so invoices created from the conversation flow and from
	// the HTTP endpoint both land in the metric
	middleware.InvoicesCreated.Inc()

	s.audit.Log(ctx, tgID, domain.AuditActionDepositCreated, map[string]interface{}{
		"reference_id": ref,
		"amount_usd":   amountUSD,
		"chain":        chain,
	})
	if s.notify != nil {
		s.notify(fmt.Sprintf("<b>Deposit created</b>\nUser: %d\nAmount: $%.2f\nCoin: %s\nRef: %s", tgID, amountUSD, chain, ref))
	}

	return &DepositInvoice{PaymentURL: inv.PaymentURL, ReferenceID: ref, AmountUSD: amountUSD}, nil
}
