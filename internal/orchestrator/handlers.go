package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/contract"
	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metadata"
	"github.com/cubecore/chainops/internal/store"
)

// ContractEngine is the slice of the deployment engine the handlers
// use. Nil engine (or an empty operator key) selects ledger-only mode:
// domain state advances in the database without an on-chain call.
type ContractEngine interface {
	Deploy(ctx context.Context, req contract.DeployRequest) (*contract.DeployResult, error)
	Call(ctx context.Context, req contract.CallRequest) (*contract.CallResult, error)
}

// Handlers executes claimed transactions. Every handler is idempotent:
// domain rows are keyed by the transaction id, so re-running after a
// transient failure converges on the same state.
type Handlers struct {
	networks *chain.Registry
	engine   ContractEngine
	// operatorKey signs on-chain operations performed on behalf of
	// users. Held in memory from config; never persisted.
	operatorKey string

	tokens  store.TokenRepository
	nfts    store.NftRepository
	staking store.StakingRepository
	defi    store.DefiRepository
	bridges store.BridgeRepository
	wallets store.WalletRepository
	objects metadata.Store

	logger *slog.Logger
}

type HandlersConfig struct {
	Networks    *chain.Registry
	Engine      ContractEngine
	OperatorKey string
	Tokens      store.TokenRepository
	Nfts        store.NftRepository
	Staking     store.StakingRepository
	Defi        store.DefiRepository
	Bridges     store.BridgeRepository
	Wallets     store.WalletRepository
	Objects     metadata.Store
	Logger      *slog.Logger
}

func NewHandlers(cfg HandlersConfig) *Handlers {
	return &Handlers{
		networks:    cfg.Networks,
		engine:      cfg.Engine,
		operatorKey: cfg.OperatorKey,
		tokens:      cfg.Tokens,
		nfts:        cfg.Nfts,
		staking:     cfg.Staking,
		defi:        cfg.Defi,
		bridges:     cfg.Bridges,
		wallets:     cfg.Wallets,
		objects:     cfg.Objects,
		logger:      cfg.Logger.With("component", "handlers"),
	}
}

func (h *Handlers) chainMode() bool {
	return h.engine != nil && h.operatorKey != ""
}

// Execute runs the domain side effects for one claimed transaction and
// returns the chain tx hash when one was produced.
func (h *Handlers) Execute(ctx context.Context, tx *model.Transaction, intent Intent) (string, error) {
	switch v := intent.(type) {
	case *CreateTokenIntent:
		return h.createToken(ctx, tx, v)
	case *MintIntent:
		return h.mintToken(ctx, tx, v)
	case *BurnIntent:
		return h.burnToken(ctx, tx, v)
	case *MintNftIntent:
		return h.mintNft(ctx, tx, v)
	case *ListNftIntent:
		return h.listNft(ctx, tx, v)
	case *AcceptOfferIntent:
		return h.acceptOffer(ctx, v)
	case *StakeIntent:
		return h.stake(ctx, tx, v)
	case *UnstakeIntent:
		return h.unstake(ctx, v)
	case *ClaimRewardsIntent:
		return h.claimRewards(ctx, v)
	case *SwapIntent:
		return h.swap(ctx, tx, v)
	case *AddLiquidityIntent:
		return h.addLiquidity(ctx, tx, v)
	case *BridgeIntent:
		return h.bridge(ctx, tx, v)
	default:
		return "", errs.Validationf("no handler for intent kind %q", intent.Kind())
	}
}

// OnFailure flips the dependent domain row when the transaction goes
// FAILED, so asset state never reports success for a failed operation.
func (h *Handlers) OnFailure(ctx context.Context, tx *model.Transaction) {
	var err error
	switch tx.Type {
	case model.TxTypeTokenCreate:
		err = h.tokens.MarkFailed(ctx, tx.ID)
	case model.TxTypeNftMint:
		err = h.nfts.MarkFailed(ctx, tx.ID)
	case model.TxTypeCrossChain:
		if bridgeTx, getErr := h.bridges.GetByTransaction(ctx, tx.ID); getErr == nil {
			err = h.bridges.UpdateStatus(ctx, bridgeTx.ID, model.BridgeStatusFailed)
		}
	}
	if err != nil {
		h.logger.Error("failure side effect", "error", err, "transaction_id", tx.ID, "kind", tx.Type.String())
	}
}

func (h *Handlers) createToken(ctx context.Context, tx *model.Transaction, intent *CreateTokenIntent) (string, error) {
	// The token row is keyed by the transaction id; a re-run finds it
	// instead of inserting twice.
	token, err := h.tokens.Get(ctx, tx.ID)
	if errs.Is(err, errs.KindNotFound) {
		token = &model.Token{
			ID:           tx.ID,
			UserID:       intent.UserID,
			Name:         intent.Name,
			Symbol:       intent.Symbol,
			Network:      intent.Network,
			TotalSupply:  intent.TotalSupply,
			Decimals:     intent.Decimals,
			Features:     intent.Features,
			Distribution: intent.Distribution,
			Status:       model.TokenStatusPending,
		}
		if err := h.tokens.Insert(ctx, token); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	txHash := ""
	contractAddress := ""
	if h.chainMode() {
		res, err := h.engine.Deploy(ctx, contract.DeployRequest{
			UserID:     intent.UserID,
			Network:    intent.Network,
			TemplateID: contract.TemplateFungible,
			Args:       []any{intent.Name, intent.Symbol, intent.TotalSupply, float64(intent.Decimals)},
			SignerKey:  h.operatorKey,
		})
		if err != nil {
			return "", err
		}
		txHash = res.Contract.DeployTxHash
		contractAddress = res.Contract.Address
	}

	if err := h.tokens.MarkDeployed(ctx, token.ID, contractAddress); err != nil {
		return "", err
	}
	return txHash, nil
}

func (h *Handlers) mintToken(ctx context.Context, tx *model.Transaction, intent *MintIntent) (string, error) {
	token, err := h.tokens.Get(ctx, intent.TokenID)
	if err != nil {
		return "", err
	}
	if !token.Features.Mintable {
		return "", errs.Validationf("token %s is not mintable", token.Symbol)
	}

	txHash := ""
	if h.chainMode() && token.ContractAddress != nil {
		res, err := h.engine.Call(ctx, contract.CallRequest{
			Network:   token.Network,
			Address:   *token.ContractAddress,
			Method:    "mint",
			Args:      []any{intent.ToAddress, intent.Amount},
			SignerKey: h.operatorKey,
		})
		if err != nil {
			return "", err
		}
		txHash = res.TxHash
	}

	ok, err := h.tokens.AdjustSupply(ctx, token.ID, intent.Amount)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errs.Newf(errs.KindRPCFatal, "supply adjustment rejected for token %s", token.ID)
	}

	if intent.ToAddress != "" {
		if err := h.wallets.EnsureWatch(ctx, intent.UserID, token.Network, intent.ToAddress); err != nil {
			h.logger.Warn("derive watch wallet", "error", err, "address", intent.ToAddress)
		}
	}
	return txHash, nil
}

func (h *Handlers) burnToken(ctx context.Context, tx *model.Transaction, intent *BurnIntent) (string, error) {
	token, err := h.tokens.Get(ctx, intent.TokenID)
	if err != nil {
		return "", err
	}
	if !token.Features.Burnable {
		return "", errs.Validationf("token %s is not burnable", token.Symbol)
	}

	txHash := ""
	if h.chainMode() && token.ContractAddress != nil {
		res, err := h.engine.Call(ctx, contract.CallRequest{
			Network:   token.Network,
			Address:   *token.ContractAddress,
			Method:    "burn",
			Args:      []any{intent.Amount},
			SignerKey: h.operatorKey,
		})
		if err != nil {
			return "", err
		}
		txHash = res.TxHash
	}

	// The store guard re-checks the bound under concurrency; the
	// submission pre-check only narrowed the window.
	ok, err := h.tokens.AdjustSupply(ctx, token.ID, "-"+intent.Amount)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errs.Newf(errs.KindInsufficientBalance,
			"burn of %s exceeds current supply of token %s", intent.Amount, token.ID)
	}
	return txHash, nil
}

func (h *Handlers) mintNft(ctx context.Context, tx *model.Transaction, intent *MintNftIntent) (string, error) {
	collection, err := h.nfts.GetCollection(ctx, intent.CollectionID)
	if err != nil {
		return "", err
	}

	metadataURI := intent.MetadataURI
	if metadataURI == "" && h.objects != nil {
		// Content-addressed, so a redelivered job lands on the same URI.
		metadataURI, err = h.objects.Put(ctx, metadata.Document{
			Name:       intent.Name,
			Attributes: metadataAttributes(intent.Attributes),
		})
		if err != nil {
			return "", fmt.Errorf("store nft metadata: %w", err)
		}
	}

	nft, err := h.nfts.Get(ctx, tx.ID)
	if errs.Is(err, errs.KindNotFound) {
		nft = &model.Nft{
			ID:               tx.ID,
			CollectionID:     collection.ID,
			OwnerID:          intent.UserID,
			Name:             intent.Name,
			MetadataURI:      metadataURI,
			Attributes:       intent.Attributes,
			RoyaltyRecipient: intent.RoyaltyRecipient,
			RoyaltyPercent:   intent.RoyaltyPercent,
			Status:           model.NftStatusPending,
		}
		if err := h.nfts.Insert(ctx, nft); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	txHash := ""
	contractAddress := ""
	if collection.ContractAddress != nil {
		contractAddress = *collection.ContractAddress
	}
	if h.chainMode() && contractAddress != "" {
		res, err := h.engine.Call(ctx, contract.CallRequest{
			Network:   collection.Network,
			Address:   contractAddress,
			Method:    "safeMint",
			Args:      []any{intent.RoyaltyRecipient, metadataURI},
			SignerKey: h.operatorKey,
		})
		if err != nil {
			return "", err
		}
		txHash = res.TxHash
	}

	// Deterministic on-ledger token id derived from the transaction id;
	// idempotent across re-runs.
	tokenID := new(big.Int).SetBytes(tx.ID[:8]).String()
	if err := h.nfts.MarkMinted(ctx, nft.ID, contractAddress, tokenID); err != nil {
		return "", err
	}
	return txHash, nil
}

func metadataAttributes(attrs []model.NftAttribute) []metadata.Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]metadata.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = metadata.Attribute{TraitType: a.TraitType, Value: a.Value}
	}
	return out
}

func (h *Handlers) listNft(ctx context.Context, tx *model.Transaction, intent *ListNftIntent) (string, error) {
	nft, err := h.nfts.Get(ctx, intent.NftID)
	if err != nil {
		return "", err
	}
	if nft.OwnerID != intent.UserID {
		return "", errs.Validationf("nft %s is not owned by %s", intent.NftID, intent.UserID)
	}
	if nft.Status != model.NftStatusMinted {
		return "", errs.Validationf("nft %s is not minted", intent.NftID)
	}

	err = h.nfts.CreateListing(ctx, &model.Listing{
		ID:       tx.ID,
		NftID:    intent.NftID,
		SellerID: intent.UserID,
		Price:    intent.Price,
		Currency: intent.Currency,
		Status:   model.ListingStatusActive,
	})
	if errs.Is(err, errs.KindDuplicateListing) {
		// Re-run after a transient failure: our own listing already
		// landed, so converge instead of failing.
		if existing, lookErr := h.nfts.GetActiveListing(ctx, intent.NftID); lookErr == nil && existing != nil && existing.ID == tx.ID {
			return "", nil
		}
		return "", err
	}
	return "", err
}

func (h *Handlers) acceptOffer(ctx context.Context, intent *AcceptOfferIntent) (string, error) {
	offer, err := h.nfts.GetOffer(ctx, intent.OfferID)
	if err != nil {
		return "", err
	}
	// Idempotent re-run: the acceptance already happened.
	if offer.Status == model.OfferStatusAccepted {
		return "", nil
	}
	return "", h.nfts.AcceptOffer(ctx, intent.OfferID)
}

func (h *Handlers) stake(ctx context.Context, tx *model.Transaction, intent *StakeIntent) (string, error) {
	pool, err := h.staking.GetPool(ctx, intent.PoolID)
	if err != nil {
		return "", err
	}

	amount, err := model.ParseAmount(intent.Amount)
	if err != nil {
		return "", err
	}
	minStake, err := model.ParseAmount(pool.MinStake)
	if err != nil {
		return "", err
	}
	if amount.Cmp(minStake) < 0 {
		return "", errs.Validationf("stake %s below pool minimum %s", intent.Amount, pool.MinStake)
	}

	if _, err := h.staking.GetPosition(ctx, tx.ID); err == nil {
		return "", nil // re-run, position already exists
	} else if !errs.Is(err, errs.KindNotFound) {
		return "", err
	}

	txHash := ""
	if h.chainMode() && pool.ContractAddress != nil {
		res, err := h.engine.Call(ctx, contract.CallRequest{
			Network:   pool.Network,
			Address:   *pool.ContractAddress,
			Method:    "stake",
			Args:      []any{intent.Amount},
			SignerKey: h.operatorKey,
		})
		if err != nil {
			return "", err
		}
		txHash = res.TxHash
	}

	return txHash, h.staking.InsertPosition(ctx, &model.StakingPosition{
		ID:           tx.ID,
		UserID:       intent.UserID,
		PoolID:       pool.ID,
		Amount:       intent.Amount,
		DurationDays: intent.DurationDays,
		Status:       model.PositionStatusActive,
		StakedAt:     time.Now().UTC(),
	})
}

func (h *Handlers) unstake(ctx context.Context, intent *UnstakeIntent) (string, error) {
	position, err := h.staking.GetPosition(ctx, intent.PositionID)
	if err != nil {
		return "", err
	}
	if position.UserID != intent.UserID {
		return "", errs.Validationf("position %s is not owned by %s", intent.PositionID, intent.UserID)
	}
	if position.Status == model.PositionStatusUnstaked {
		return "", nil // already closed
	}

	pool, err := h.staking.GetPool(ctx, position.PoolID)
	if err != nil {
		return "", err
	}

	rewards := h.positionRewards(position, pool, time.Now().UTC())

	txHash := ""
	if h.chainMode() && pool.ContractAddress != nil {
		res, err := h.engine.Call(ctx, contract.CallRequest{
			Network:   pool.Network,
			Address:   *pool.ContractAddress,
			Method:    "withdraw",
			Args:      []any{position.Amount},
			SignerKey: h.operatorKey,
		})
		if err != nil {
			return "", err
		}
		txHash = res.TxHash
	}

	if _, err := h.staking.ClosePosition(ctx, position.ID, rewards); err != nil {
		return "", err
	}
	return txHash, nil
}

func (h *Handlers) claimRewards(ctx context.Context, intent *ClaimRewardsIntent) (string, error) {
	position, err := h.staking.GetPosition(ctx, intent.PositionID)
	if err != nil {
		return "", err
	}
	if position.UserID != intent.UserID {
		return "", errs.Validationf("position %s is not owned by %s", intent.PositionID, intent.UserID)
	}
	if position.Status != model.PositionStatusActive {
		return "", errs.Validationf("position %s is not active", intent.PositionID)
	}

	pool, err := h.staking.GetPool(ctx, position.PoolID)
	if err != nil {
		return "", err
	}

	rewards := h.positionRewards(position, pool, time.Now().UTC())

	txHash := ""
	if h.chainMode() && pool.ContractAddress != nil {
		res, err := h.engine.Call(ctx, contract.CallRequest{
			Network:   pool.Network,
			Address:   *pool.ContractAddress,
			Method:    "claimReward",
			Args:      []any{},
			SignerKey: h.operatorKey,
		})
		if err != nil {
			return "", err
		}
		txHash = res.TxHash
	}

	return txHash, h.staking.UpdateAccruedRewards(ctx, position.ID, rewards)
}

// positionRewards computes simple-interest rewards for the elapsed
// staking time, capped at the committed duration. Stake amounts are
// stored in base units; they are scaled to native units by the
// network's decimals before the reward is computed, so accrued_rewards
// stays within its NUMERIC(24,8) column and prices directly in fiat.
func (h *Handlers) positionRewards(position *model.StakingPosition, pool *model.StakingPool, now time.Time) decimal.Decimal {
	elapsedDays := int(now.Sub(position.StakedAt).Hours() / 24)
	if elapsedDays > position.DurationDays {
		elapsedDays = position.DurationDays
	}
	value, err := model.ParseAmount(position.Amount)
	if err != nil {
		return decimal.Zero
	}
	desc, err := h.networks.Get(pool.Network)
	if err != nil {
		h.logger.Warn("rewards skipped for unknown network", "network", pool.Network, "position", position.ID)
		return decimal.Zero
	}
	amount := decimal.NewFromBigInt(value, int32(-desc.Decimals))
	return model.CalculateRewards(amount, pool.APY, elapsedDays)
}

func (h *Handlers) swap(ctx context.Context, tx *model.Transaction, intent *SwapIntent) (string, error) {
	// Swaps settle externally; the ledger row plus derived watch
	// wallets are the record.
	if intent.WalletAddress != "" {
		if err := h.wallets.EnsureWatch(ctx, intent.UserID, intent.Network, intent.WalletAddress); err != nil {
			h.logger.Warn("derive watch wallet", "error", err, "address", intent.WalletAddress)
		}
	}
	return "", nil
}

func (h *Handlers) addLiquidity(ctx context.Context, tx *model.Transaction, intent *AddLiquidityIntent) (string, error) {
	return "", h.defi.Upsert(ctx, &model.DefiPosition{
		ID:       tx.ID,
		UserID:   intent.UserID,
		Protocol: intent.Protocol,
		Network:  intent.Network,
		Kind:     model.DefiPositionLiquidity,
		Active:   true,
	})
}

func (h *Handlers) bridge(ctx context.Context, tx *model.Transaction, intent *BridgeIntent) (string, error) {
	bridgeTx, err := h.bridges.GetByTransaction(ctx, tx.ID)
	if err != nil {
		return "", err
	}
	if bridgeTx.Status == model.BridgeStatusConfirmed {
		return "", nil // already settled
	}

	client, err := h.networks.Client(intent.FromNetwork)
	if err != nil {
		return "", err
	}
	if intent.FromAddress != "" && !client.ValidateAddress(intent.FromAddress) {
		return "", errs.Validationf("invalid %s address %q", intent.FromNetwork, intent.FromAddress)
	}

	if intent.FromAddress != "" {
		balance, err := client.NativeBalance(ctx, intent.FromAddress)
		if err != nil {
			return "", fmt.Errorf("check source balance: %w", err)
		}
		amount, err := model.ParseAmount(intent.Amount)
		if err != nil {
			return "", err
		}
		if balance.Cmp(amount) < 0 {
			return "", errs.Newf(errs.KindInsufficientBalance,
				"source balance %s below bridge amount %s", balance, intent.Amount)
		}
	}

	if err := h.bridges.UpdateStatus(ctx, bridgeTx.ID, model.BridgeStatusConfirmed); err != nil {
		return "", err
	}
	return "", nil
}
