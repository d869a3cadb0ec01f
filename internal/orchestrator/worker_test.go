package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/queue"
	"github.com/cubecore/chainops/internal/retry"
)

func TestWorkerConfirmsTokenCreation(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, validCreateToken())
	require.NoError(t, err)

	r.drain(t, "token")

	got, err := r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, got.Status)

	// The token row is keyed by the ledger id and ends DEPLOYED.
	token, err := r.tokens.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusDeployed, token.Status)
	assert.Equal(t, "1000000", token.TotalSupply)

	// The delivery was acked.
	assert.Zero(t, r.broker.PendingCount("token"))
}

func TestWorkerMintAdjustsSupply(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, validCreateToken())
	require.NoError(t, err)
	r.drain(t, "token")

	_, err = r.service.Submit(ctx, &MintIntent{
		UserID:    "user-1",
		Network:   testNetwork,
		TokenID:   tx.ID,
		Amount:    "250",
		ToAddress: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
	})
	require.NoError(t, err)
	r.drain(t, "token")

	token, err := r.tokens.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000250", token.TotalSupply)
	assert.Contains(t, r.wallets.watched, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
}

func TestWorkerBurnReducesSupply(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, validCreateToken())
	require.NoError(t, err)
	r.drain(t, "token")

	burn, err := r.service.Submit(ctx, &BurnIntent{
		UserID:  "user-1",
		Network: testNetwork,
		TokenID: tx.ID,
		Amount:  "400000",
	})
	require.NoError(t, err)
	r.drain(t, "token")

	got, err := r.service.Get(ctx, burn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, got.Status)

	token, err := r.tokens.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "600000", token.TotalSupply)
}

func TestWorkerFailsTokenCreationOnBadPayload(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, validCreateToken())
	require.NoError(t, err)

	// Corrupt the stored payload before the worker picks it up.
	r.txRepo.mu.Lock()
	r.txRepo.txs[tx.ID].Payload = []byte(`{"kind":"TOKEN_CREATE","payload":"not-json"}`)
	r.txRepo.mu.Unlock()

	r.drain(t, "token")

	got, err := r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusFailed, got.Status)
	require.NotNil(t, got.Err)
	assert.Contains(t, *got.Err, "decode payload")
}

func TestWorkerMintNftStoresContentAddressedMetadata(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	collectionID := uuid.New()
	require.NoError(t, r.nfts.InsertCollection(ctx, &model.NftCollection{
		ID:      collectionID,
		Network: testNetwork,
		Name:    "Cubes",
		Symbol:  "CUBE",
	}))

	tx, err := r.service.Submit(ctx, &MintNftIntent{
		UserID:       "user-1",
		Network:      testNetwork,
		CollectionID: collectionID,
		Name:         "Cube #7",
		Attributes:   []model.NftAttribute{{TraitType: "color", Value: "blue"}},
	})
	require.NoError(t, err)
	r.drain(t, "nft")

	got, err := r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, got.Status)

	nft, err := r.nfts.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NftStatusMinted, nft.Status)
	assert.NotNil(t, nft.TokenID)

	// No URI was supplied, so the document was stored and the NFT points
	// at its content address.
	assert.Contains(t, nft.MetadataURI, "meta:")
}

func TestWorkerRejectsDuplicateActiveListing(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	nftID := uuid.New()
	require.NoError(t, r.nfts.Insert(ctx, &model.Nft{
		ID:      nftID,
		OwnerID: "user-1",
		Name:    "Cube #1",
		Status:  model.NftStatusMinted,
	}))

	list := func() *model.Transaction {
		tx, err := r.service.Submit(ctx, &ListNftIntent{
			UserID:   "user-1",
			Network:  testNetwork,
			NftID:    nftID,
			Price:    "1000",
			Currency: "ETH",
		})
		require.NoError(t, err)
		return tx
	}

	first := list()
	r.drain(t, "nft")
	got, err := r.service.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, got.Status)

	second := list()
	r.drain(t, "nft")
	got, err = r.service.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusFailed, got.Status)
	require.NotNil(t, got.Err)
	assert.Contains(t, *got.Err, "active listing")
}

func TestWorkerAcceptOfferTransfersOwnership(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	nftID := uuid.New()
	require.NoError(t, r.nfts.Insert(ctx, &model.Nft{
		ID:      nftID,
		OwnerID: "seller",
		Name:    "Cube #2",
		Status:  model.NftStatusMinted,
	}))
	require.NoError(t, r.nfts.CreateListing(ctx, &model.Listing{
		ID:       uuid.New(),
		NftID:    nftID,
		SellerID: "seller",
		Price:    "5000",
		Currency: "ETH",
		Status:   model.ListingStatusActive,
	}))
	offerID := uuid.New()
	require.NoError(t, r.nfts.CreateOffer(ctx, &model.Offer{
		ID:        offerID,
		NftID:     nftID,
		BuyerID:   "buyer",
		Amount:    "4800",
		Status:    model.OfferStatusPending,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	tx, err := r.service.Submit(ctx, &AcceptOfferIntent{
		UserID:  "seller",
		Network: testNetwork,
		OfferID: offerID,
	})
	require.NoError(t, err)
	r.drain(t, "nft")

	got, err := r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, got.Status)

	nft, err := r.nfts.Get(ctx, nftID)
	require.NoError(t, err)
	assert.Equal(t, "buyer", nft.OwnerID)

	listing, err := r.nfts.GetActiveListing(ctx, nftID)
	require.NoError(t, err)
	assert.Nil(t, listing)
}

func TestWorkerStakeLifecycle(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	poolID := uuid.New()
	require.NoError(t, r.staking.InsertPool(ctx, &model.StakingPool{
		ID:       poolID,
		Name:     "ETH Flex",
		Network:  testNetwork,
		APY:      decimal.NewFromFloat(0.10),
		MinStake: "100",
	}))

	stakeTx, err := r.service.Submit(ctx, &StakeIntent{
		UserID:       "user-1",
		Network:      testNetwork,
		PoolID:       poolID,
		Amount:       "1000",
		DurationDays: 30,
	})
	require.NoError(t, err)
	r.drain(t, "staking")

	position, err := r.staking.GetPosition(ctx, stakeTx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PositionStatusActive, position.Status)
	assert.Equal(t, "1000", position.Amount)

	_, err = r.service.Submit(ctx, &UnstakeIntent{
		UserID:     "user-1",
		Network:    testNetwork,
		PositionID: stakeTx.ID,
	})
	require.NoError(t, err)
	r.drain(t, "staking")

	position, err = r.staking.GetPosition(ctx, stakeTx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PositionStatusUnstaked, position.Status)
}

func TestWorkerUnstakeAccruesRewardsInNativeUnits(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	poolID := uuid.New()
	require.NoError(t, r.staking.InsertPool(ctx, &model.StakingPool{
		ID:      poolID,
		Name:    "ETH Flex",
		Network: testNetwork,
		APY:     decimal.NewFromFloat(0.10),
	}))

	// 5 ETH staked 30 days ago, stored in wei.
	positionID := uuid.New()
	require.NoError(t, r.staking.InsertPosition(ctx, &model.StakingPosition{
		ID:           positionID,
		UserID:       "user-1",
		PoolID:       poolID,
		Amount:       "5000000000000000000",
		DurationDays: 90,
		Status:       model.PositionStatusActive,
		StakedAt:     time.Now().UTC().Add(-30 * 24 * time.Hour),
	}))

	_, err := r.service.Submit(ctx, &UnstakeIntent{
		UserID:     "user-1",
		Network:    testNetwork,
		PositionID: positionID,
	})
	require.NoError(t, err)
	r.drain(t, "staking")

	position, err := r.staking.GetPosition(ctx, positionID)
	require.NoError(t, err)
	assert.Equal(t, model.PositionStatusUnstaked, position.Status)

	// 5 * 0.10 / 365 * 30 is roughly 0.0411; a base-unit figure would be
	// eighteen orders of magnitude larger.
	assert.True(t, position.AccruedRewards.GreaterThan(decimal.RequireFromString("0.041")),
		"rewards %s too small", position.AccruedRewards)
	assert.True(t, position.AccruedRewards.LessThan(decimal.RequireFromString("0.042")),
		"rewards %s not scaled to native units", position.AccruedRewards)
}

func TestWorkerRejectsStakeBelowPoolMinimum(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	poolID := uuid.New()
	require.NoError(t, r.staking.InsertPool(ctx, &model.StakingPool{
		ID:       poolID,
		Name:     "ETH Flex",
		Network:  testNetwork,
		APY:      decimal.NewFromFloat(0.10),
		MinStake: "100",
	}))

	tx, err := r.service.Submit(ctx, &StakeIntent{
		UserID:       "user-1",
		Network:      testNetwork,
		PoolID:       poolID,
		Amount:       "99",
		DurationDays: 30,
	})
	require.NoError(t, err)
	r.drain(t, "staking")

	got, err := r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusFailed, got.Status)
}

func TestWorkerSwapWatchesWalletAddressNotAssetSymbol(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, &SwapIntent{
		UserID:        "user-1",
		Network:       testNetwork,
		Protocol:      "uniswap-v3",
		FromAsset:     "ETH",
		ToAsset:       "USDC",
		Amount:        "1000",
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
	})
	require.NoError(t, err)
	r.drain(t, "defi")

	got, err := r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, got.Status)

	// Only the wallet is tracked; asset symbols never become watch rows.
	assert.Contains(t, r.wallets.watched, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	assert.NotContains(t, r.wallets.watched, "ETH")
}

func TestWorkerSkipsTerminalRedelivery(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, validCreateToken())
	require.NoError(t, err)
	r.drain(t, "token")

	token, err := r.tokens.Get(ctx, tx.ID)
	require.NoError(t, err)
	supplyBefore := token.TotalSupply

	// Duplicate delivery of the finished job: at-least-once transport.
	require.NoError(t, r.broker.Enqueue(ctx, queueJobFor(tx)))
	r.drain(t, "token")

	got, err := r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, got.Status)

	token, err = r.tokens.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, supplyBefore, token.TotalSupply)
}

func TestWorkerReleasesWhenConfirmWriteFails(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, validCreateToken())
	require.NoError(t, err)

	// The handler succeeds but the ledger write does not. The record
	// must go back to PENDING for redelivery, never stick in PROCESSING.
	r.txRepo.mu.Lock()
	r.txRepo.confirmErr = errs.Newf(errs.KindRPCTransient, "ledger unavailable")
	r.txRepo.mu.Unlock()

	r.drain(t, "token")

	got, err := r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)

	// The domain side effects landed on the first pass.
	token, err := r.tokens.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusDeployed, token.Status)

	// A redelivery converges once the ledger is writable again: the
	// handler re-runs idempotently and the confirm lands.
	r.txRepo.mu.Lock()
	r.txRepo.confirmErr = nil
	r.txRepo.mu.Unlock()

	redelivery := queueJobFor(tx)
	redelivery.Attempt = 2
	require.NoError(t, r.broker.Enqueue(ctx, redelivery))
	r.drain(t, "token")

	got, err = r.service.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, got.Status)

	token, err = r.tokens.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000000", token.TotalSupply)
}

func TestWorkerFailsBurnWhenTokenDisappears(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, validCreateToken())
	require.NoError(t, err)
	r.drain(t, "token")

	burn, err := r.service.Submit(ctx, &BurnIntent{
		UserID:  "user-1",
		Network: testNetwork,
		TokenID: tx.ID,
		Amount:  "100",
	})
	require.NoError(t, err)

	// Terminal domain error: token gone means FAILED, not retried.
	r.tokens.mu.Lock()
	delete(r.tokens.tokens, tx.ID)
	r.tokens.mu.Unlock()

	r.drain(t, "token")
	got, err := r.service.Get(ctx, burn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusFailed, got.Status)
}

func TestWorkerFailureFlipsTokenRow(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	tx, err := r.service.Submit(ctx, validCreateToken())
	require.NoError(t, err)

	r.txRepo.mu.Lock()
	r.txRepo.txs[tx.ID].Payload = []byte(`{"kind":"TOKEN_CREATE","payload":"broken"}`)
	r.txRepo.mu.Unlock()

	// Seed the token row the handler would have created, then fail.
	require.NoError(t, r.tokens.Insert(ctx, &model.Token{
		ID:     tx.ID,
		UserID: "user-1",
		Status: model.TokenStatusPending,
	}))

	r.drain(t, "token")

	token, err := r.tokens.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusFailed, token.Status)
}

func TestRetryBudgetAndBackoff(t *testing.T) {
	assert.Equal(t, 5, retry.BudgetFor(model.TxTypeCrossChain))
	assert.Equal(t, 3, retry.BudgetFor(model.TxTypeTokenMint))

	assert.Equal(t, 2*time.Second, retry.Delay(1))
	assert.Equal(t, 4*time.Second, retry.Delay(2))
	assert.Equal(t, 32*time.Second, retry.Delay(5))
	assert.Equal(t, time.Minute, retry.Delay(10))
}

func TestClassifyDomainErrorsTerminal(t *testing.T) {
	for _, err := range []error{
		errs.Validationf("bad input"),
		errs.Newf(errs.KindInsufficientBalance, "too poor"),
		errs.Newf(errs.KindDuplicateListing, "already listed"),
	} {
		assert.False(t, retry.Classify(err).IsTransient(), "%v", err)
	}
	assert.True(t, retry.Classify(errs.Newf(errs.KindRPCTransient, "rpc flaked")).IsTransient())
}

func queueJobFor(tx *model.Transaction) queue.Job {
	return queue.Job{
		TransactionID: tx.ID,
		Kind:          tx.Type,
		Attempt:       1,
		EnqueuedAt:    time.Now().UTC(),
	}
}
