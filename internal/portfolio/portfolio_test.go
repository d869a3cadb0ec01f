package portfolio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/market"
	"github.com/cubecore/chainops/internal/store"
)

const testNetwork = model.NetworkID("ethereum")

type stubClient struct {
	balance *big.Int
	err     error
}

func (c *stubClient) Network() model.NetworkID { return testNetwork }

func (c *stubClient) NativeBalance(context.Context, string) (*big.Int, error) {
	return c.balance, c.err
}

func (c *stubClient) TokenBalance(context.Context, string, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *stubClient) EstimateGas(context.Context, chain.TxRequest) (uint64, error) {
	return 21_000, nil
}

func (c *stubClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (c *stubClient) Broadcast(context.Context, []byte) (string, error) { return "", nil }

func (c *stubClient) WaitForConfirmation(context.Context, string, uint64) (*chain.Receipt, error) {
	return nil, nil
}

func (c *stubClient) ValidateAddress(string) bool { return true }

func (c *stubClient) HeadBlock(context.Context) (int64, error) { return 1, nil }

type stubWallets struct{ wallets []model.Wallet }

func (s *stubWallets) Insert(context.Context, *model.Wallet) error { return nil }

func (s *stubWallets) ListByUser(context.Context, string) ([]model.Wallet, error) {
	return s.wallets, nil
}

func (s *stubWallets) FindByAddress(context.Context, model.NetworkID, string) (*model.Wallet, error) {
	return nil, errs.Newf(errs.KindNotFound, "not found")
}

func (s *stubWallets) EnsureWatch(context.Context, string, model.NetworkID, string) error {
	return nil
}

type stubTxRepo struct{ history []model.Transaction }

func (s *stubTxRepo) Insert(context.Context, *model.Transaction) error { return nil }

func (s *stubTxRepo) Get(context.Context, uuid.UUID) (*model.Transaction, error) {
	return nil, errs.Newf(errs.KindNotFound, "not found")
}

func (s *stubTxRepo) Claim(context.Context, uuid.UUID) (bool, error) { return false, nil }

func (s *stubTxRepo) MarkConfirmed(context.Context, uuid.UUID, string) error { return nil }

func (s *stubTxRepo) MarkFailed(context.Context, uuid.UUID, string) error { return nil }

func (s *stubTxRepo) Cancel(context.Context, uuid.UUID) (bool, error) { return false, nil }

func (s *stubTxRepo) Release(context.Context, uuid.UUID, string) error { return nil }

func (s *stubTxRepo) History(context.Context, string, store.HistoryFilter) ([]model.Transaction, error) {
	return s.history, nil
}

func (s *stubTxRepo) CountByStatus(context.Context, model.TxStatus) (int64, error) { return 0, nil }

type stubTokens struct{ tokens []model.Token }

func (s *stubTokens) Insert(context.Context, *model.Token) error { return nil }

func (s *stubTokens) Get(context.Context, uuid.UUID) (*model.Token, error) {
	return nil, errs.Newf(errs.KindNotFound, "not found")
}

func (s *stubTokens) ListByUser(context.Context, string) ([]model.Token, error) {
	return s.tokens, nil
}

func (s *stubTokens) MarkDeployed(context.Context, uuid.UUID, string) error { return nil }

func (s *stubTokens) MarkFailed(context.Context, uuid.UUID) error { return nil }

func (s *stubTokens) AdjustSupply(context.Context, uuid.UUID, string) (bool, error) {
	return true, nil
}

type stubNfts struct{ nfts []model.Nft }

func (s *stubNfts) InsertCollection(context.Context, *model.NftCollection) error { return nil }

func (s *stubNfts) GetCollection(context.Context, uuid.UUID) (*model.NftCollection, error) {
	return nil, errs.Newf(errs.KindNotFound, "not found")
}

func (s *stubNfts) Insert(context.Context, *model.Nft) error { return nil }

func (s *stubNfts) Get(context.Context, uuid.UUID) (*model.Nft, error) {
	return nil, errs.Newf(errs.KindNotFound, "not found")
}

func (s *stubNfts) ListByOwner(context.Context, string) ([]model.Nft, error) {
	return s.nfts, nil
}

func (s *stubNfts) MarkMinted(context.Context, uuid.UUID, string, string) error { return nil }

func (s *stubNfts) MarkFailed(context.Context, uuid.UUID) error { return nil }

func (s *stubNfts) CreateListing(context.Context, *model.Listing) error { return nil }

func (s *stubNfts) GetActiveListing(context.Context, uuid.UUID) (*model.Listing, error) {
	return nil, nil
}

func (s *stubNfts) CancelListing(context.Context, uuid.UUID) (bool, error) { return false, nil }

func (s *stubNfts) CreateOffer(context.Context, *model.Offer) error { return nil }

func (s *stubNfts) GetOffer(context.Context, uuid.UUID) (*model.Offer, error) {
	return nil, errs.Newf(errs.KindNotFound, "not found")
}

func (s *stubNfts) AcceptOffer(context.Context, uuid.UUID) error { return nil }

func (s *stubNfts) ExpirePendingOffers(context.Context, time.Time) (int64, error) { return 0, nil }

type stubStaking struct {
	pools     map[uuid.UUID]*model.StakingPool
	positions []model.StakingPosition
	err       error
}

func (s *stubStaking) InsertPool(context.Context, *model.StakingPool) error { return nil }

func (s *stubStaking) GetPool(_ context.Context, id uuid.UUID) (*model.StakingPool, error) {
	p, ok := s.pools[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "pool not found")
	}
	return p, nil
}

func (s *stubStaking) ListPools(context.Context) ([]model.StakingPool, error) { return nil, nil }

func (s *stubStaking) InsertPosition(context.Context, *model.StakingPosition) error { return nil }

func (s *stubStaking) GetPosition(context.Context, uuid.UUID) (*model.StakingPosition, error) {
	return nil, errs.Newf(errs.KindNotFound, "not found")
}

func (s *stubStaking) ListActivePositions(context.Context, string) ([]model.StakingPosition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.positions, nil
}

func (s *stubStaking) ClosePosition(context.Context, uuid.UUID, decimal.Decimal) (bool, error) {
	return false, nil
}

func (s *stubStaking) UpdateAccruedRewards(context.Context, uuid.UUID, decimal.Decimal) error {
	return nil
}

type stubDefi struct{ positions []model.DefiPosition }

func (s *stubDefi) Upsert(context.Context, *model.DefiPosition) error { return nil }

func (s *stubDefi) ListActiveByUser(context.Context, string) ([]model.DefiPosition, error) {
	return s.positions, nil
}

type stubSnapshots struct{ inserted []*model.PortfolioSnapshot }

func (s *stubSnapshots) Insert(_ context.Context, snap *model.PortfolioSnapshot) error {
	s.inserted = append(s.inserted, snap)
	return nil
}

func (s *stubSnapshots) Latest(context.Context, string) (*model.PortfolioSnapshot, error) {
	return nil, nil
}

func (s *stubSnapshots) ListSince(context.Context, string, time.Time) ([]model.PortfolioSnapshot, error) {
	return nil, nil
}

type fixture struct {
	engine    *Engine
	wallets   *stubWallets
	txRepo    *stubTxRepo
	tokens    *stubTokens
	nfts      *stubNfts
	staking   *stubStaking
	defi      *stubDefi
	snapshots *stubSnapshots
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry, err := chain.NewRegistry([]chain.Entry{{
		Descriptor: model.NetworkDescriptor{ID: testNetwork, Name: "Ethereum", Symbol: "ETH", Decimals: 18, VM: model.VMEVM},
		Client:     &stubClient{balance: big.NewInt(2e18)}, // 2 ETH
	}})
	require.NoError(t, err)

	f := &fixture{
		wallets:   &stubWallets{},
		txRepo:    &stubTxRepo{},
		tokens:    &stubTokens{},
		nfts:      &stubNfts{},
		staking:   &stubStaking{pools: make(map[uuid.UUID]*model.StakingPool)},
		defi:      &stubDefi{},
		snapshots: &stubSnapshots{},
	}

	quotes := market.StaticSource{
		"ETH": {Symbol: "ETH", Price: decimal.NewFromInt(2000)},
	}

	f.engine = NewEngine(EngineConfig{
		Networks:  registry,
		Wallets:   f.wallets,
		Transacts: f.txRepo,
		Tokens:    f.tokens,
		Nfts:      f.nfts,
		Staking:   f.staking,
		Defi:      f.defi,
		Snapshots: f.snapshots,
		Market:    quotes,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func TestDashboardTotalEqualsCategorySum(t *testing.T) {
	f := newFixture(t)

	f.wallets.wallets = []model.Wallet{
		{ID: uuid.New(), UserID: "user-1", Network: testNetwork, Address: "0xabc", Kind: model.WalletKindHot},
	}
	f.nfts.nfts = []model.Nft{
		{ID: uuid.New(), CollectionID: uuid.New(), OwnerID: "user-1", Status: model.NftStatusMinted, EstimatedValue: decimal.NewFromFloat(150.555)},
	}
	f.staking.positions = []model.StakingPosition{
		{ID: uuid.New(), UserID: "user-1", ValueFiat: decimal.NewFromInt(500), Status: model.PositionStatusActive},
	}
	f.defi.positions = []model.DefiPosition{
		{ID: uuid.New(), UserID: "user-1", ValueFiat: decimal.NewFromFloat(99.99), Active: true},
	}

	d, err := f.engine.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)

	b := d.Breakdown
	sum := b.Tokens.Add(b.Nfts).Add(b.Staking).Add(b.Defi)
	assert.True(t, b.Total.Equal(sum), "total %s != sum %s", b.Total, sum)

	// 2 ETH at $2000.
	assert.True(t, b.Tokens.Equal(decimal.NewFromInt(4000)), "tokens = %s", b.Tokens)
	assert.True(t, b.Nfts.Equal(decimal.NewFromFloat(150.56)), "nfts = %s", b.Nfts)
}

func TestDashboardPricesAccruedRewardsAtQuote(t *testing.T) {
	f := newFixture(t)

	poolID := uuid.New()
	f.staking.pools[poolID] = &model.StakingPool{ID: poolID, RewardSymbol: "ETH", APY: decimal.NewFromFloat(0.10)}
	f.staking.positions = []model.StakingPosition{
		{
			ID:             uuid.New(),
			UserID:         "user-1",
			PoolID:         poolID,
			ValueFiat:      decimal.NewFromInt(500),
			AccruedRewards: decimal.RequireFromString("0.05"), // ETH, not fiat
			Status:         model.PositionStatusActive,
		},
	}

	d, err := f.engine.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)

	// 500 fiat principal plus 0.05 ETH at $2000.
	assert.True(t, d.Breakdown.Staking.Equal(decimal.NewFromInt(600)), "staking = %s", d.Breakdown.Staking)
}

func TestDashboardPartialFailureExcludesSection(t *testing.T) {
	f := newFixture(t)
	f.staking.err = errors.New("staking store down")
	f.defi.positions = []model.DefiPosition{
		{ID: uuid.New(), UserID: "user-1", ValueFiat: decimal.NewFromInt(250), Active: true},
	}

	d, err := f.engine.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, d.Breakdown.Staking.IsZero())
	assert.True(t, d.Breakdown.Defi.Equal(decimal.NewFromInt(250)))
	assert.Empty(t, d.ActiveStaking)
}

func TestBlendedYieldExcludesPositionsWithoutAPY(t *testing.T) {
	f := newFixture(t)

	poolID := uuid.New()
	f.staking.pools[poolID] = &model.StakingPool{ID: poolID, APY: decimal.NewFromFloat(0.10)}
	f.staking.positions = []model.StakingPosition{
		{ID: uuid.New(), UserID: "user-1", PoolID: poolID, ValueFiat: decimal.NewFromInt(1000), Status: model.PositionStatusActive},
	}
	apy := decimal.NewFromFloat(0.05)
	f.defi.positions = []model.DefiPosition{
		{ID: uuid.New(), UserID: "user-1", ValueFiat: decimal.NewFromInt(1000), APY: &apy, Active: true},
		// No numeric APY: excluded from the weighting, not zero-weighted.
		{ID: uuid.New(), UserID: "user-1", ValueFiat: decimal.NewFromInt(50000), APY: nil, Active: true},
	}

	d, err := f.engine.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)

	// (1000*0.10 + 1000*0.05) / 2000 = 0.075
	assert.True(t, d.BlendedYieldAPY.Equal(decimal.NewFromFloat(0.075)), "apy = %s", d.BlendedYieldAPY)
}

func TestDashboardServedFromCacheWithinTTL(t *testing.T) {
	f := newFixture(t)

	first, err := f.engine.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)

	// New data appears, but the cached view is still served.
	f.defi.positions = []model.DefiPosition{
		{ID: uuid.New(), UserID: "user-1", ValueFiat: decimal.NewFromInt(777), Active: true},
	}
	second, err := f.engine.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	assert.True(t, second.Breakdown.Defi.IsZero())

	// Only the fresh build persisted a snapshot.
	assert.Len(t, f.snapshots.inserted, 1)
}

func TestDashboardPersistsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.staking.positions = []model.StakingPosition{
		{ID: uuid.New(), UserID: "user-1", ValueFiat: decimal.NewFromInt(500), Status: model.PositionStatusActive},
	}

	d, err := f.engine.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, f.snapshots.inserted, 1)
	snap := f.snapshots.inserted[0]
	assert.Equal(t, "user-1", snap.UserID)
	assert.True(t, snap.Breakdown.Total.Equal(d.Breakdown.Total))
	assert.Equal(t, d.GeneratedAt, snap.TakenAt)
}

func TestPerformanceAndAlertsFromLedger(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	f.txRepo.history = []model.Transaction{
		{ID: uuid.New(), Status: model.TxStatusConfirmed, CreatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), Status: model.TxStatusConfirmed, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: uuid.New(), Status: model.TxStatusFailed, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: uuid.New(), Status: model.TxStatusPending, CreatedAt: now.Add(-time.Hour)},
		// Outside the 30-day window.
		{ID: uuid.New(), Status: model.TxStatusFailed, CreatedAt: now.Add(-40 * 24 * time.Hour)},
	}

	d, err := f.engine.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 4, d.Performance.TxTotal)
	assert.Equal(t, 2, d.Performance.TxConfirmed)
	assert.Equal(t, 1, d.Performance.TxFailed)
	assert.True(t, d.Performance.SuccessRate.Equal(decimal.NewFromFloat(66.67)), "rate = %s", d.Performance.SuccessRate)

	kinds := make([]string, 0, len(d.Alerts))
	for _, a := range d.Alerts {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, "failed_operations")
	assert.Contains(t, kinds, "stalled_operations")
}

func TestScaleBaseUnits(t *testing.T) {
	v := scaleBaseUnits(big.NewInt(1_500_000_000_000_000_000), 18)
	assert.True(t, v.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, scaleBaseUnits(nil, 18).IsZero())
}
