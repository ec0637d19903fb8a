package service

import (
	"context"
	"errors"

	"minemechanics/internal/domain"
	"minemechanics/internal/repository"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = repository.ErrInsufficientFunds
	ErrUserNotFound      = repository.ErrUserNotFound
	ErrMinerNotFound     = repository.ErrMinerNotFound
	ErrNotOwner          = repository.ErrNotOwner
)

// BalanceStore is the storage contract the ledger runs on. The production
// implementation is UserRepository; every method must be atomic at the
// storage layer, never a read-then-write in application code.
type BalanceStore interface {
	EnsureUser(ctx context.Context, tgID int64, username string) error
	GetByTgID(ctx context.Context, tgID int64) (*domain.User, error)
	Credit(ctx context.Context, tgID int64, cur domain.Currency, amount float64) (float64, error)
	Debit(ctx context.Context, tgID int64, cur domain.Currency, amount float64) (float64, error)
	Swap(ctx context.Context, tgID int64, amount, received float64) error
	TopUpPacks(ctx context.Context, tgID int64, amount float64) error
}

// auditor is the slice of AuditService the fund-moving services need.
type auditor interface {
	Log(ctx context.Context, tgID int64, action string, details map[string]interface{})
}

// LedgerService exposes the two balance primitives, parametrized by currency.
type LedgerService struct {
	store BalanceStore
}

func NewLedgerService(store BalanceStore) *LedgerService {
	return &LedgerService{store: store}
}

// EnsureUser lazily creates the user row on first touch.
func (s *LedgerService) EnsureUser(ctx context.Context, tgID int64, username string) error {
	return s.store.EnsureUser(ctx, tgID, username)
}

// GetUser returns the user's profile and balances.
func (s *LedgerService) GetUser(ctx context.Context, tgID int64) (*domain.User, error) {
	return s.store.GetByTgID(ctx, tgID)
}

// Credit adds amount to the user's balance, creating the user if absent.
func (s *LedgerService) Credit(ctx context.Context, tgID int64, cur domain.Currency, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.store.Credit(ctx, tgID, cur, amount)
}

// Debit removes amount from the user's balance, failing without mutation
// when the balance does not cover it.
func (s *LedgerService) Debit(ctx context.Context, tgID int64, cur domain.Currency, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.store.Debit(ctx, tgID, cur, amount)
}
