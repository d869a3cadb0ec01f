package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DefiPositionKind string

const (
	DefiPositionLiquidity DefiPositionKind = "LIQUIDITY"
	DefiPositionLending   DefiPositionKind = "LENDING"
	DefiPositionFarming   DefiPositionKind = "FARMING"
)

// DefiPosition is a position held in an external DeFi protocol.
// APY is nil when the protocol reports no numeric yield; such positions
// are excluded from blended-yield weighting, not treated as zero.
type DefiPosition struct {
	ID        uuid.UUID        `db:"id"`
	UserID    string           `db:"user_id"`
	Protocol  string           `db:"protocol"`
	Network   NetworkID        `db:"network"`
	Kind      DefiPositionKind `db:"kind"`
	ValueFiat decimal.Decimal  `db:"value_fiat"`
	APY       *decimal.Decimal `db:"apy"`
	Active    bool             `db:"active"`
	CreatedAt time.Time        `db:"created_at"`
}
