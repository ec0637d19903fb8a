package service

import (
	"context"

	"minemechanics/internal/domain"
)

// MinerStore is the storage contract for miner lifecycle operations. The
// production implementation is MinerRepository, whose fund-moving methods
// pair asset and balance mutations in one transaction.
type MinerStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Miner, error)
	GetByOwner(ctx context.Context, ownerTgID int64) ([]domain.Miner, error)
	OwnerSummary(ctx context.Context, ownerTgID int64) (totalValue, totalMonthly float64, err error)
	Purchase(ctx context.Context, buyerTgID int64, price, monthlyReward float64) (*domain.Miner, error)
	Sell(ctx context.Context, minerID, sellerTgID int64, fraction float64) (payout float64, err error)
	Gift(ctx context.Context, minerID, fromTgID, toTgID int64) error
}

// settingsReader reads operator-tunable rates live at each use site.
type settingsReader interface {
	GetFloat(ctx context.Context, key string, def float64) (float64, error)
}

const defaultSwapFeePercent = 5

// EconomicsService implements the pricing, payout and fee rules around
// miners and currency conversion.
type EconomicsService struct {
	miners   MinerStore
	balances BalanceStore
	settings settingsReader
	audit    auditor

	minMinerPrice float64
	apyPercent    float64
}

func NewEconomicsService(miners MinerStore, balances BalanceStore, settings settingsReader, audit auditor, minMinerPrice, apyPercent float64) *EconomicsService {
	return &EconomicsService{
		miners:        miners,
		balances:      balances,
		settings:      settings,
		audit:         audit,
		minMinerPrice: minMinerPrice,
		apyPercent:    apyPercent,
	}
}

// QuoteMinerReward returns the monthly M² a miner bought now at price would
// earn. The quote uses the current APY; the value is frozen on the miner row
// at purchase time.
func (s *EconomicsService) QuoteMinerReward(price float64) float64 {
	return domain.MonthlyReward(price, s.apyPercent)
}

// MinMinerPrice returns the configured purchase floor.
func (s *EconomicsService) MinMinerPrice() float64 {
	return s.minMinerPrice
}

// BuyMiner debits the price and creates the miner as one transaction.
func (s *EconomicsService) BuyMiner(ctx context.Context, tgID int64, price float64) (*domain.Miner, error) {
	if price < s.minMinerPrice {
		return nil, ErrInvalidAmount
	}

	m, err := s.miners.Purchase(ctx, tgID, price, domain.MonthlyReward(price, s.apyPercent))
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, tgID, domain.AuditActionMinerPurchase, map[string]interface{}{
		"miner_id":          m.ID,
		"price":             m.PriceUSD,
		"monthly_reward_m2": m.MonthlyRewardM2,
	})
	return m, nil
}

// SellMiner deletes the miner and credits price × tier fraction, one
// transaction, owner only.
func (s *EconomicsService) SellMiner(ctx context.Context, tgID, minerID int64, tier domain.SaleTier) (payout float64, err error) {
	payout, err = s.miners.Sell(ctx, minerID, tgID, tier.Fraction())
	if err != nil {
		return 0, err
	}

	s.audit.Log(ctx, tgID, domain.AuditActionMinerSale, map[string]interface{}{
		"miner_id": minerID,
		"option":   tier.String(),
		"payout":   payout,
	})
	return payout, nil
}

// GiftMiner reassigns the miner to the target user, owner only, no fee.
func (s *EconomicsService) GiftMiner(ctx context.Context, fromTgID, minerID, toTgID int64) error {
	if err := s.miners.Gift(ctx, minerID, fromTgID, toTgID); err != nil {
		return err
	}

	s.audit.Log(ctx, fromTgID, domain.AuditActionMinerGift, map[string]interface{}{
		"miner_id": minerID,
		"to_tg_id": toTgID,
	})
	return nil
}

// Swap converts M² to Minem at the fee percent read fresh from settings.
// Returns the amount received and the fee taken.
func (s *EconomicsService) Swap(ctx context.Context, tgID int64, amount float64) (received, fee float64, err error) {
	if amount <= 0 {
		return 0, 0, ErrInvalidAmount
	}

	feePercent, err := s.settings.GetFloat(ctx, domain.SettingSwapFeePercent, defaultSwapFeePercent)
	if err != nil {
		return 0, 0, err
	}

	fee = amount * feePercent / 100
	received = amount - fee

	if err := s.balances.Swap(ctx, tgID, amount, received); err != nil {
		return 0, 0, err
	}

	s.audit.Log(ctx, tgID, domain.AuditActionSwap, map[string]interface{}{
		"amount_m2":      amount,
		"fee_percent":    feePercent,
		"minem_received": received,
	})
	return received, fee, nil
}

// TopUpPacks moves Minem into the maintenance-credit counter 1:1.
func (s *EconomicsService) TopUpPacks(ctx context.Context, tgID int64, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if err := s.balances.TopUpPacks(ctx, tgID, amount); err != nil {
		return err
	}

	s.audit.Log(ctx, tgID, domain.AuditActionPackPurchase, map[string]interface{}{
		"amount_usd":   amount,
		"payment_type": "minem",
		"packs":        amount,
	})
	return nil
}

// MyMiners lists the user's miners.
func (s *EconomicsService) MyMiners(ctx context.Context, tgID int64) ([]domain.Miner, error) {
	return s.miners.GetByOwner(ctx, tgID)
}

// GetMiner returns one miner by id.
func (s *EconomicsService) GetMiner(ctx context.Context, minerID int64) (*domain.Miner, error) {
	return s.miners.GetByID(ctx, minerID)
}

// PortfolioSummary returns the total purchase value and monthly M² across
// the user's miners.
func (s *EconomicsService) PortfolioSummary(ctx context.Context, tgID int64) (totalValue, totalMonthly float64, err error) {
	return s.miners.OwnerSummary(ctx, tgID)
}
