package domain

import "time"

type User struct {
	ID           int64     `db:"id"`
	TgID         int64     `db:"tg_id"`
	Username     string    `db:"username"`
	CreatedAt    time.Time `db:"created_at"`
	BalanceMinem float64   `db:"balance_minem" json:"balance_minem"`
	BalanceM2    float64   `db:"balance_m2" json:"balance_m2"`
	Packs        float64   `db:"packs" json:"packs"`
}

// Currency selects which balance column a ledger operation targets.
type Currency int

const (
	// CurrencyMinem is the primary in-app credit, funded by deposits.
	CurrencyMinem Currency = iota
	// CurrencyM2 is the reward currency generated by miners.
	CurrencyM2
	// CurrencyPacks is the maintenance-credit counter (1 pack = $1).
	CurrencyPacks
)

// Column returns the users table column holding this currency's balance.
// The value set is closed here, so interpolating it into SQL is safe.
func (c Currency) Column() string {
	switch c {
	case CurrencyM2:
		return "balance_m2"
	case CurrencyPacks:
		return "packs"
	default:
		return "balance_minem"
	}
}

// ParseCurrency maps a wire token to a Currency.
func ParseCurrency(s string) (Currency, bool) {
	switch s {
	case "minem":
		return CurrencyMinem, true
	case "m2":
		return CurrencyM2, true
	case "packs":
		return CurrencyPacks, true
	}
	return 0, false
}

func (c Currency) String() string {
	switch c {
	case CurrencyM2:
		return "m2"
	case CurrencyPacks:
		return "packs"
	default:
		return "minem"
	}
}
