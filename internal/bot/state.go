package bot

import "context"

// Stage is the closed set of conversation stages. Exactly one stage is held
// per user; starting any flow replaces whatever was active before.
type Stage int

const (
	StageIdle Stage = iota
	StageAwaitDepositAmount
	StageAwaitMinerPrice
	StageConfirmMinerPurchase
	StageChooseMinerToSell
	StageAwaitGiftTarget
	StageAwaitTopUpAmount
	StageAwaitSwapAmount
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAwaitDepositAmount:
		return "await_deposit_amount"
	case StageAwaitMinerPrice:
		return "await_miner_price"
	case StageConfirmMinerPurchase:
		return "confirm_miner_purchase"
	case StageChooseMinerToSell:
		return "choose_miner_to_sell"
	case StageAwaitGiftTarget:
		return "await_gift_target"
	case StageAwaitTopUpAmount:
		return "await_topup_amount"
	case StageAwaitSwapAmount:
		return "await_swap_amount"
	}
	return "unknown"
}

// State is the per-user stage plus whatever the stage needs carried between
// events.
type State struct {
	Stage         Stage   `json:"stage"`
	Coin          string  `json:"coin,omitempty"`
	MinerID       int64   `json:"miner_id,omitempty"`
	Price         float64 `json:"price,omitempty"`
	MonthlyReward float64 `json:"monthly_reward,omitempty"`
}

// StateStore maps a user id to the current conversation state. It is
// injected, not global: whether states survive a restart is a deployment
// choice between the memory and Redis implementations.
type StateStore interface {
	Get(ctx context.Context, tgID int64) (State, bool, error)
	Set(ctx context.Context, tgID int64, st State) error
	Clear(ctx context.Context, tgID int64) error
}
