package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PositionStatus string

const (
	PositionStatusActive   PositionStatus = "ACTIVE"
	PositionStatusUnstaked PositionStatus = "UNSTAKED"
)

const (
	// Staking duration bounds in days, validated at submission.
	MinStakingDays = 1
	MaxStakingDays = 365

	daysPerYear = 365
)

// StakingPool defines a yield source: its APY and reward token.
type StakingPool struct {
	ID              uuid.UUID       `db:"id"`
	Name            string          `db:"name"`
	Network         NetworkID       `db:"network"`
	RewardSymbol    string          `db:"reward_symbol"`
	APY             decimal.Decimal `db:"apy"` // fraction, e.g. 0.1 for 10%
	MinStake        string          `db:"min_stake"`
	ContractAddress *string         `db:"contract_address"`
	CreatedAt       time.Time       `db:"created_at"`
}

// StakingPosition is one user's stake in a pool.
type StakingPosition struct {
	ID             uuid.UUID       `db:"id"`
	UserID         string          `db:"user_id"`
	PoolID         uuid.UUID       `db:"pool_id"`
	Amount         string          `db:"amount"` // NUMERIC(78,0) as string
	ValueFiat      decimal.Decimal `db:"value_fiat"`
	DurationDays   int             `db:"duration_days"`
	AccruedRewards decimal.Decimal `db:"accrued_rewards"`
	Status         PositionStatus  `db:"status"`
	StakedAt       time.Time       `db:"staked_at"`
	UnstakedAt     *time.Time      `db:"unstaked_at"`
}

// CalculateRewards returns the simple-interest reward for staking amount
// at apy over days: amount * (apy/365) * days.
func CalculateRewards(amount decimal.Decimal, apy decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 || amount.Sign() <= 0 || apy.Sign() <= 0 {
		return decimal.Zero
	}
	daily := apy.Div(decimal.NewFromInt(daysPerYear))
	return amount.Mul(daily).Mul(decimal.NewFromInt(int64(days)))
}
