package model

import (
	"time"

	"github.com/google/uuid"
)

type BridgeStatus string

const (
	BridgeStatusPending   BridgeStatus = "PENDING"
	BridgeStatusConfirmed BridgeStatus = "CONFIRMED"
	BridgeStatusFailed    BridgeStatus = "FAILED"
)

// BridgeRoute is a registered bridge and the set of chains it connects.
// A route supports a (from, to) pair only when both chains appear in its
// chain set; membership is the sole criterion.
type BridgeRoute struct {
	ID                string
	Name              string
	Chains            []NetworkID
	FeeBasisPoints    int64
	MinAmount         string // NUMERIC(78,0) as string
	MaxAmount         string
	EstimatedSettling time.Duration
}

// Connects reports whether both chains appear in the route's chain set.
func (r *BridgeRoute) Connects(from, to NetworkID) bool {
	return r.contains(from) && r.contains(to)
}

func (r *BridgeRoute) contains(n NetworkID) bool {
	for _, c := range r.Chains {
		if c == n {
			return true
		}
	}
	return false
}

// BridgeTransaction tracks one cross-chain transfer. Status mirrors the
// underlying ledger Transaction.
type BridgeTransaction struct {
	ID            uuid.UUID    `db:"id"`
	UserID        string       `db:"user_id"`
	BridgeID      string       `db:"bridge_id"`
	FromNetwork   NetworkID    `db:"from_network"`
	ToNetwork     NetworkID    `db:"to_network"`
	Amount        string       `db:"amount"` // NUMERIC(78,0) as string
	Fee           string       `db:"fee"`
	TransactionID uuid.UUID    `db:"transaction_id"`
	Status        BridgeStatus `db:"status"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}
