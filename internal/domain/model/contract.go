package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AssetKind string

const (
	AssetKindFungible    AssetKind = "FUNGIBLE"
	AssetKindNonFungible AssetKind = "NON_FUNGIBLE"
	AssetKindStaking     AssetKind = "STAKING"
)

type SecurityTier string

const (
	SecurityTierAudited  SecurityTier = "AUDITED"
	SecurityTierStandard SecurityTier = "STANDARD"
)

// TemplateParam describes one required constructor parameter.
type TemplateParam struct {
	Name string `json:"name"`
	Type string `json:"type"` // ABI type, e.g. "uint256", "string", "address"
}

// ContractTemplate is read-only catalogue data for a parameterized
// contract: compiled bytecode plus its ABI.
type ContractTemplate struct {
	ID           string
	Name         string
	Kind         AssetKind
	Bytecode     string // 0x-prefixed hex
	ABI          string // ABI JSON
	Params       []TemplateParam
	GasEstimate  uint64
	SecurityTier SecurityTier
}

// DeployedContract pairs a deployed address with its ABI so later calls
// do not need the template id. Addresses are immutable; contracts are
// never deleted, only marked inactive.
type DeployedContract struct {
	ID              uuid.UUID       `db:"id"`
	UserID          string          `db:"user_id"`
	Network         NetworkID       `db:"network"`
	Address         string          `db:"address"`
	TemplateID      string          `db:"template_id"`
	ABI             string          `db:"abi"`
	ConstructorArgs json.RawMessage `db:"constructor_args"`
	DeployTxHash    string          `db:"deploy_tx_hash"`
	Active          bool            `db:"active"`
	Verified        bool            `db:"verified"`
	CreatedAt       time.Time       `db:"created_at"`
}
