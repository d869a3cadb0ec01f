package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TokenStatus string

const (
	TokenStatusPending  TokenStatus = "PENDING"
	TokenStatusDeployed TokenStatus = "DEPLOYED"
	TokenStatusActive   TokenStatus = "ACTIVE"
	TokenStatusFailed   TokenStatus = "FAILED"
)

// TokenFeatures are the capability flags baked into a deployed token contract.
type TokenFeatures struct {
	Mintable bool `json:"mintable"`
	Burnable bool `json:"burnable"`
	Pausable bool `json:"pausable"`
}

// Token is a fungible token owned by a user. TotalSupply is base units,
// NUMERIC(78,0) carried as a string; use SupplyBig for arithmetic.
type Token struct {
	ID              uuid.UUID                  `db:"id"`
	UserID          string                     `db:"user_id"`
	Name            string                     `db:"name"`
	Symbol          string                     `db:"symbol"`
	Network         NetworkID                  `db:"network"`
	TotalSupply     string                     `db:"total_supply"`
	Decimals        int                        `db:"decimals"`
	Features        TokenFeatures              `db:"features"`
	Distribution    map[string]decimal.Decimal `db:"distribution"`
	ContractAddress *string                    `db:"contract_address"`
	Status          TokenStatus                `db:"status"`
	CreatedAt       time.Time                  `db:"created_at"`
	UpdatedAt       time.Time                  `db:"updated_at"`
}

// SupplyBig parses TotalSupply into an exact integer.
func (t *Token) SupplyBig() (*big.Int, error) {
	return ParseAmount(t.TotalSupply)
}

// ParseAmount parses a NUMERIC(78,0) string into a big.Int.
// Monetary quantities never pass through floating point.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// DistributionTotal sums the distribution percentages.
func (t *Token) DistributionTotal() decimal.Decimal {
	total := decimal.Zero
	for _, pct := range t.Distribution {
		total = total.Add(pct)
	}
	return total
}
