package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

// distributionTolerance absorbs decimal representation noise when
// checking that allocation percentages sum to 100.
var (
	distributionTolerance = decimal.NewFromFloat(0.01)
	hundred               = decimal.NewFromInt(100)
	maxRoyalty            = decimal.NewFromInt(10)
)

// Ref is the slice of an intent that lands on the ledger row.
type Ref struct {
	UserID  string
	Network model.NetworkID
	Amount  string // NUMERIC(78,0) base units; empty means zero
	From    string
	To      string
}

// Intent is one typed, validated unit of submitted work. Concrete
// intents carry exactly the fields their kind needs; Metadata is for
// non-authoritative annotations only and is never read by handlers.
type Intent interface {
	Kind() model.TxType
	Ref() Ref
	Validate() error
}

// requirePositiveAmount parses a base-unit amount and rejects zero or
// negative values.
func requirePositiveAmount(field, amount string) error {
	v, err := model.ParseAmount(amount)
	if err != nil {
		return errs.Validationf("%s: %v", field, err)
	}
	if v.Sign() <= 0 {
		return errs.Validationf("%s must be positive, got %q", field, amount)
	}
	return nil
}

// CreateTokenIntent deploys a new fungible token and records its
// allocation plan. Distribution percentages must sum to 100.
type CreateTokenIntent struct {
	UserID       string                     `json:"userId"`
	Network      model.NetworkID            `json:"network"`
	Name         string                     `json:"name"`
	Symbol       string                     `json:"symbol"`
	TotalSupply  string                     `json:"totalSupply"`
	Decimals     int                        `json:"decimals"`
	Features     model.TokenFeatures        `json:"features"`
	Distribution map[string]decimal.Decimal `json:"distribution"`
	Metadata     map[string]string          `json:"metadata,omitempty"`
}

func (i *CreateTokenIntent) Kind() model.TxType { return model.TxTypeTokenCreate }

func (i *CreateTokenIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network, Amount: i.TotalSupply}
}

func (i *CreateTokenIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.Name == "" || i.Symbol == "" {
		return errs.Validationf("token name and symbol are required")
	}
	if i.Decimals < 0 || i.Decimals > 18 {
		return errs.Validationf("decimals must be in [0,18], got %d", i.Decimals)
	}
	if err := requirePositiveAmount("totalSupply", i.TotalSupply); err != nil {
		return err
	}
	if len(i.Distribution) == 0 {
		return errs.Validationf("distribution is required")
	}
	total := decimal.Zero
	for bucket, pct := range i.Distribution {
		if pct.Sign() < 0 {
			return errs.Validationf("distribution %q is negative", bucket)
		}
		total = total.Add(pct)
	}
	if total.Sub(hundred).Abs().GreaterThan(distributionTolerance) {
		return errs.Validationf("distribution sums to %s, want 100", total)
	}
	return nil
}

// MintIntent increases an existing token's supply.
type MintIntent struct {
	UserID    string            `json:"userId"`
	Network   model.NetworkID   `json:"network"`
	TokenID   uuid.UUID         `json:"tokenId"`
	Amount    string            `json:"amount"`
	ToAddress string            `json:"toAddress"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (i *MintIntent) Kind() model.TxType { return model.TxTypeTokenMint }

func (i *MintIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network, Amount: i.Amount, To: i.ToAddress}
}

func (i *MintIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.TokenID == uuid.Nil {
		return errs.Validationf("tokenId is required")
	}
	return requirePositiveAmount("amount", i.Amount)
}

// BurnIntent decreases an existing token's supply. Burning more than
// the current supply is rejected at submission and again by the store's
// non-negative guard.
type BurnIntent struct {
	UserID   string            `json:"userId"`
	Network  model.NetworkID   `json:"network"`
	TokenID  uuid.UUID         `json:"tokenId"`
	Amount   string            `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (i *BurnIntent) Kind() model.TxType { return model.TxTypeTokenBurn }

func (i *BurnIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network, Amount: i.Amount}
}

func (i *BurnIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.TokenID == uuid.Nil {
		return errs.Validationf("tokenId is required")
	}
	return requirePositiveAmount("amount", i.Amount)
}

// MintNftIntent mints one NFT into an existing collection.
type MintNftIntent struct {
	UserID           string               `json:"userId"`
	Network          model.NetworkID      `json:"network"`
	CollectionID     uuid.UUID            `json:"collectionId"`
	Name             string               `json:"name"`
	MetadataURI      string               `json:"metadataUri"`
	Attributes       []model.NftAttribute `json:"attributes,omitempty"`
	RoyaltyRecipient string               `json:"royaltyRecipient"`
	RoyaltyPercent   decimal.Decimal      `json:"royaltyPercent"`
	Metadata         map[string]string    `json:"metadata,omitempty"`
}

func (i *MintNftIntent) Kind() model.TxType { return model.TxTypeNftMint }

func (i *MintNftIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network, To: i.RoyaltyRecipient}
}

func (i *MintNftIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.CollectionID == uuid.Nil {
		return errs.Validationf("collectionId is required")
	}
	if i.Name == "" {
		return errs.Validationf("nft name is required")
	}
	if i.RoyaltyPercent.Sign() < 0 || i.RoyaltyPercent.GreaterThan(maxRoyalty) {
		return errs.Validationf("royaltyPercent must be in [0,10], got %s", i.RoyaltyPercent)
	}
	return nil
}

// ListNftIntent puts a minted NFT up for sale.
type ListNftIntent struct {
	UserID   string            `json:"userId"`
	Network  model.NetworkID   `json:"network"`
	NftID    uuid.UUID         `json:"nftId"`
	Price    string            `json:"price"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (i *ListNftIntent) Kind() model.TxType { return model.TxTypeNftList }

func (i *ListNftIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network, Amount: i.Price}
}

func (i *ListNftIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.NftID == uuid.Nil {
		return errs.Validationf("nftId is required")
	}
	if i.Currency == "" {
		return errs.Validationf("currency is required")
	}
	return requirePositiveAmount("price", i.Price)
}

// AcceptOfferIntent accepts a pending offer on an NFT, transferring
// ownership and closing any active listing.
type AcceptOfferIntent struct {
	UserID   string            `json:"userId"`
	Network  model.NetworkID   `json:"network"`
	OfferID  uuid.UUID         `json:"offerId"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (i *AcceptOfferIntent) Kind() model.TxType { return model.TxTypeNftAcceptOffer }

func (i *AcceptOfferIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network}
}

func (i *AcceptOfferIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.OfferID == uuid.Nil {
		return errs.Validationf("offerId is required")
	}
	return nil
}

// StakeIntent locks an amount in a staking pool for a bounded duration.
type StakeIntent struct {
	UserID       string            `json:"userId"`
	Network      model.NetworkID   `json:"network"`
	PoolID       uuid.UUID         `json:"poolId"`
	Amount       string            `json:"amount"`
	DurationDays int               `json:"durationDays"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (i *StakeIntent) Kind() model.TxType { return model.TxTypeStakingStake }

func (i *StakeIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network, Amount: i.Amount}
}

func (i *StakeIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.PoolID == uuid.Nil {
		return errs.Validationf("poolId is required")
	}
	if i.DurationDays < model.MinStakingDays || i.DurationDays > model.MaxStakingDays {
		return errs.Validationf("durationDays must be in [%d,%d], got %d",
			model.MinStakingDays, model.MaxStakingDays, i.DurationDays)
	}
	return requirePositiveAmount("amount", i.Amount)
}

// UnstakeIntent closes an active staking position.
type UnstakeIntent struct {
	UserID     string            `json:"userId"`
	Network    model.NetworkID   `json:"network"`
	PositionID uuid.UUID         `json:"positionId"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (i *UnstakeIntent) Kind() model.TxType { return model.TxTypeStakingUnstake }

func (i *UnstakeIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network}
}

func (i *UnstakeIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.PositionID == uuid.Nil {
		return errs.Validationf("positionId is required")
	}
	return nil
}

// ClaimRewardsIntent realizes accrued staking rewards without closing
// the position.
type ClaimRewardsIntent struct {
	UserID     string            `json:"userId"`
	Network    model.NetworkID   `json:"network"`
	PositionID uuid.UUID         `json:"positionId"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (i *ClaimRewardsIntent) Kind() model.TxType { return model.TxTypeStakingReward }

func (i *ClaimRewardsIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network}
}

func (i *ClaimRewardsIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.PositionID == uuid.Nil {
		return errs.Validationf("positionId is required")
	}
	return nil
}

// SwapIntent exchanges one asset for another through a DeFi protocol.
type SwapIntent struct {
	UserID    string          `json:"userId"`
	Network   model.NetworkID `json:"network"`
	Protocol  string          `json:"protocol"`
	FromAsset string          `json:"fromAsset"`
	ToAsset   string          `json:"toAsset"`
	Amount    string          `json:"amount"`
	// WalletAddress is the swapping wallet, tracked as a watch wallet
	// once the swap confirms. Optional.
	WalletAddress string            `json:"walletAddress,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (i *SwapIntent) Kind() model.TxType { return model.TxTypeDefiSwap }

func (i *SwapIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network, Amount: i.Amount}
}

func (i *SwapIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.Protocol == "" {
		return errs.Validationf("protocol is required")
	}
	if i.FromAsset == "" || i.ToAsset == "" {
		return errs.Validationf("fromAsset and toAsset are required")
	}
	if i.FromAsset == i.ToAsset {
		return errs.Validationf("fromAsset and toAsset must differ")
	}
	return requirePositiveAmount("amount", i.Amount)
}

// AddLiquidityIntent contributes to a protocol liquidity pool.
type AddLiquidityIntent struct {
	UserID   string            `json:"userId"`
	Network  model.NetworkID   `json:"network"`
	Protocol string            `json:"protocol"`
	Pair     string            `json:"pair"`
	Amount   string            `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (i *AddLiquidityIntent) Kind() model.TxType { return model.TxTypeDefiLiquidity }

func (i *AddLiquidityIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.Network, Amount: i.Amount}
}

func (i *AddLiquidityIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.Protocol == "" || i.Pair == "" {
		return errs.Validationf("protocol and pair are required")
	}
	return requirePositiveAmount("amount", i.Amount)
}

// BridgeIntent moves an amount across chains through a registered
// bridge route. Source and destination must differ.
type BridgeIntent struct {
	UserID      string            `json:"userId"`
	BridgeID    string            `json:"bridgeId"`
	FromNetwork model.NetworkID   `json:"fromNetwork"`
	ToNetwork   model.NetworkID   `json:"toNetwork"`
	Amount      string            `json:"amount"`
	FromAddress string            `json:"fromAddress"`
	ToAddress   string            `json:"toAddress"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (i *BridgeIntent) Kind() model.TxType { return model.TxTypeCrossChain }

func (i *BridgeIntent) Ref() Ref {
	return Ref{UserID: i.UserID, Network: i.FromNetwork, Amount: i.Amount, From: i.FromAddress, To: i.ToAddress}
}

func (i *BridgeIntent) Validate() error {
	if i.UserID == "" {
		return errs.Validationf("userId is required")
	}
	if i.FromNetwork == "" || i.ToNetwork == "" {
		return errs.Validationf("fromNetwork and toNetwork are required")
	}
	if i.FromNetwork == i.ToNetwork {
		return errs.Validationf("fromNetwork and toNetwork must differ")
	}
	return requirePositiveAmount("amount", i.Amount)
}

// envelope wraps an intent with its kind tag for round-tripping through
// the transaction payload column.
type envelope struct {
	Kind    model.TxType    `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeIntent serializes an intent into its tagged envelope.
func EncodeIntent(intent Intent) ([]byte, error) {
	payload, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("encode intent payload: %w", err)
	}
	raw, err := json.Marshal(envelope{Kind: intent.Kind(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode intent envelope: %w", err)
	}
	return raw, nil
}

// DecodeIntent restores the concrete intent from a tagged envelope.
func DecodeIntent(raw []byte) (Intent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode intent envelope: %w", err)
	}

	var intent Intent
	switch env.Kind {
	case model.TxTypeTokenCreate:
		intent = &CreateTokenIntent{}
	case model.TxTypeTokenMint:
		intent = &MintIntent{}
	case model.TxTypeTokenBurn:
		intent = &BurnIntent{}
	case model.TxTypeNftMint:
		intent = &MintNftIntent{}
	case model.TxTypeNftList:
		intent = &ListNftIntent{}
	case model.TxTypeNftAcceptOffer:
		intent = &AcceptOfferIntent{}
	case model.TxTypeStakingStake:
		intent = &StakeIntent{}
	case model.TxTypeStakingUnstake:
		intent = &UnstakeIntent{}
	case model.TxTypeStakingReward:
		intent = &ClaimRewardsIntent{}
	case model.TxTypeDefiSwap:
		intent = &SwapIntent{}
	case model.TxTypeDefiLiquidity:
		intent = &AddLiquidityIntent{}
	case model.TxTypeCrossChain:
		intent = &BridgeIntent{}
	default:
		return nil, fmt.Errorf("unknown intent kind %q", env.Kind)
	}

	if err := json.Unmarshal(env.Payload, intent); err != nil {
		return nil, fmt.Errorf("decode %s intent: %w", env.Kind, err)
	}
	return intent, nil
}
