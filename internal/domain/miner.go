package domain

import "time"

// Miner is a purchased yield asset. MonthlyRewardM2 is computed once at
// purchase time and never recomputed from a later APY change.
type Miner struct {
	ID              int64     `db:"id" json:"id"`
	OwnerTgID       int64     `db:"owner_tg_id" json:"owner_tg_id"`
	PriceUSD        float64   `db:"price_usd" json:"price_usd"`
	MonthlyRewardM2 float64   `db:"monthly_reward_m2" json:"monthly_reward_m2"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// SaleTier selects how fast the seller gets paid out, at a matching fraction
// of the original purchase price.
type SaleTier int

const (
	SaleTierInstant SaleTier = iota
	SaleTierWeekly
	SaleTierMonthly
)

// Fraction returns the payout fraction of the miner's purchase price.
func (t SaleTier) Fraction() float64 {
	switch t {
	case SaleTierInstant:
		return 0.30
	case SaleTierWeekly:
		return 0.60
	case SaleTierMonthly:
		return 0.85
	}
	return 0
}

func (t SaleTier) String() string {
	switch t {
	case SaleTierInstant:
		return "instant"
	case SaleTierWeekly:
		return "weekly"
	case SaleTierMonthly:
		return "monthly"
	}
	return "unknown"
}

// ParseSaleTier maps the callback-data token to a tier.
func ParseSaleTier(s string) (SaleTier, bool) {
	switch s {
	case "instant":
		return SaleTierInstant, true
	case "weekly":
		return SaleTierWeekly, true
	case "monthly":
		return SaleTierMonthly, true
	}
	return 0, false
}

// MonthlyReward computes the fixed monthly M² reward for a miner bought at
// price with the given annual yield percent, prorated to 30 days.
func MonthlyReward(price, apyPercent float64) float64 {
	return price * (apyPercent / 100) * (30.0 / 365.0)
}
