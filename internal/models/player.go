package models

import "github.com/google/uuid"

// Player is a participant record with its balances. Balances are only touched by settlement.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`

	Coin             int64 `json:"coin"`
	WithdrawableCoin int64 `json:"withdrawable_coin"`
	Bonus            int64 `json:"bonus"`
}

// Payout is the balance delta credited to a match winner.
type Payout struct {
	Coin             int64 `json:"coin"`
	WithdrawableCoin int64 `json:"withdrawable_coin"`
	Bonus            int64 `json:"bonus"`
}

// Apply credits the payout onto the player's balances.
func (p *Player) Apply(po Payout) {
	p.Coin += po.Coin
	p.WithdrawableCoin += po.WithdrawableCoin
	p.Bonus += po.Bonus
}
