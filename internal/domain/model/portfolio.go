package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PortfolioBreakdown is the reconciled value split of a portfolio.
// Total always equals Tokens+Nfts+Staking+Defi (2dp); when wallet-derived
// totals disagree with the typed sub-ledgers the token figure is the residual.
type PortfolioBreakdown struct {
	Total   decimal.Decimal `json:"total"`
	Tokens  decimal.Decimal `json:"tokens"`
	Nfts    decimal.Decimal `json:"nfts"`
	Staking decimal.Decimal `json:"staking"`
	Defi    decimal.Decimal `json:"defi"`
}

// PortfolioSnapshot is a derived, point-in-time aggregate. Never
// hand-edited; always regenerated from the live entities and persisted
// as an immutable audit record.
type PortfolioSnapshot struct {
	ID         uuid.UUID          `db:"id"`
	UserID     string             `db:"user_id"`
	Breakdown  PortfolioBreakdown `db:"breakdown"`
	YieldAPY   decimal.Decimal    `db:"yield_apy"`
	AlertCount int                `db:"alert_count"`
	TakenAt    time.Time          `db:"taken_at"`
}
