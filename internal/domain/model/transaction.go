package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TxType string

const (
	TxTypeTokenMint      TxType = "TOKEN_MINT"
	TxTypeTokenBurn      TxType = "TOKEN_BURN"
	TxTypeTokenCreate    TxType = "TOKEN_CREATE"
	TxTypeNftMint        TxType = "NFT_MINT"
	TxTypeNftList        TxType = "NFT_LIST"
	TxTypeNftAcceptOffer TxType = "NFT_ACCEPT_OFFER"
	TxTypeStakingStake   TxType = "STAKING_STAKE"
	TxTypeStakingUnstake TxType = "STAKING_UNSTAKE"
	TxTypeStakingReward  TxType = "STAKING_REWARD"
	TxTypeDefiSwap       TxType = "DEFI_SWAP"
	TxTypeDefiLiquidity  TxType = "DEFI_LIQUIDITY"
	TxTypeCrossChain     TxType = "CROSS_CHAIN"
	TxTypeWalletCreate   TxType = "WALLET_CREATE"
	TxTypeWalletImport   TxType = "WALLET_IMPORT"
)

func (t TxType) String() string {
	return string(t)
}

// Family returns the job-queue family a transaction type belongs to.
// Each family has its own stream and retry policy.
func (t TxType) Family() string {
	switch t {
	case TxTypeTokenMint, TxTypeTokenBurn, TxTypeTokenCreate:
		return "token"
	case TxTypeNftMint, TxTypeNftList, TxTypeNftAcceptOffer:
		return "nft"
	case TxTypeStakingStake, TxTypeStakingUnstake, TxTypeStakingReward:
		return "staking"
	case TxTypeDefiSwap, TxTypeDefiLiquidity:
		return "defi"
	default:
		return "bridge"
	}
}

type TxStatus string

const (
	TxStatusPending    TxStatus = "PENDING"
	TxStatusProcessing TxStatus = "PROCESSING"
	TxStatusConfirmed  TxStatus = "CONFIRMED"
	TxStatusFailed     TxStatus = "FAILED"
	TxStatusCancelled  TxStatus = "CANCELLED"
)

// Terminal reports whether the status is absorbing. Terminal records are
// never advanced again; re-running a worker against one is a no-op.
func (s TxStatus) Terminal() bool {
	return s == TxStatusConfirmed || s == TxStatusFailed || s == TxStatusCancelled
}

// Transaction is the ledger-of-record for every submitted intent. The
// orchestrator's workers are the only writers of terminal transitions;
// the portfolio and bridge components are read-side consumers.
type Transaction struct {
	ID          uuid.UUID       `db:"id"`
	UserID      string          `db:"user_id"`
	Type        TxType          `db:"type"`
	Status      TxStatus        `db:"status"`
	Network     NetworkID       `db:"network"`
	Amount      string          `db:"amount"` // NUMERIC(78,0) as string
	FromAddress string          `db:"from_address"`
	ToAddress   string          `db:"to_address"`
	TxHash      *string         `db:"tx_hash"`
	Err         *string         `db:"err"`
	Attempts    int             `db:"attempts"`
	Payload     json.RawMessage `db:"payload"`  // the submitted intent, for the worker
	Metadata    json.RawMessage `db:"metadata"` // non-authoritative annotations only
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
