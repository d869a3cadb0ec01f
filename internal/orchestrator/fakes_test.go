package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cubecore/chainops/internal/audit"
	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/compliance"
	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metadata"
	"github.com/cubecore/chainops/internal/queue"
	"github.com/cubecore/chainops/internal/store"
)

const testNetwork = model.NetworkID("ethereum")

type fakeChainClient struct {
	balance *big.Int
}

func (f *fakeChainClient) Network() model.NetworkID { return testNetwork }

func (f *fakeChainClient) NativeBalance(context.Context, string) (*big.Int, error) {
	if f.balance == nil {
		return big.NewInt(0), nil
	}
	return f.balance, nil
}

func (f *fakeChainClient) TokenBalance(context.Context, string, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeChainClient) EstimateGas(context.Context, chain.TxRequest) (uint64, error) {
	return 21_000, nil
}

func (f *fakeChainClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeChainClient) Broadcast(context.Context, []byte) (string, error) {
	return "0xabc", nil
}

func (f *fakeChainClient) WaitForConfirmation(context.Context, string, uint64) (*chain.Receipt, error) {
	return &chain.Receipt{Success: true}, nil
}

func (f *fakeChainClient) ValidateAddress(address string) bool { return address != "" }

func (f *fakeChainClient) HeadBlock(context.Context) (int64, error) { return 1, nil }

type fakeTxRepo struct {
	mu  sync.Mutex
	txs map[uuid.UUID]*model.Transaction

	// confirmErr makes MarkConfirmed fail without touching the row.
	confirmErr error
}

func newFakeTxRepo() *fakeTxRepo {
	return &fakeTxRepo{txs: make(map[uuid.UUID]*model.Transaction)}
}

func (r *fakeTxRepo) Insert(_ context.Context, t *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.txs[t.ID] = &cp
	return nil
}

func (r *fakeTxRepo) Get(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "transaction %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTxRepo) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok || t.Status != model.TxStatusPending {
		return false, nil
	}
	t.Status = model.TxStatusProcessing
	return true, nil
}

func (r *fakeTxRepo) MarkConfirmed(_ context.Context, id uuid.UUID, txHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.confirmErr != nil {
		return r.confirmErr
	}
	t, ok := r.txs[id]
	if !ok || t.Status != model.TxStatusProcessing {
		return nil
	}
	t.Status = model.TxStatusConfirmed
	if txHash != "" {
		t.TxHash = &txHash
	}
	return nil
}

func (r *fakeTxRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok || t.Status != model.TxStatusProcessing {
		return nil
	}
	t.Status = model.TxStatusFailed
	t.Err = &errMsg
	return nil
}

func (r *fakeTxRepo) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok || t.Status != model.TxStatusPending {
		return false, nil
	}
	t.Status = model.TxStatusCancelled
	return true, nil
}

func (r *fakeTxRepo) Release(_ context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok || t.Status != model.TxStatusProcessing {
		return nil
	}
	t.Status = model.TxStatusPending
	t.Err = &errMsg
	t.Attempts++
	return nil
}

func (r *fakeTxRepo) History(_ context.Context, userID string, f store.HistoryFilter) ([]model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Transaction
	for _, t := range r.txs {
		if t.UserID != userID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTxRepo) CountByStatus(_ context.Context, status model.TxStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.txs {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeTxRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*model.Token
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[uuid.UUID]*model.Token)}
}

func (r *fakeTokens) Insert(_ context.Context, t *model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.ID] = &cp
	return nil
}

func (r *fakeTokens) Get(_ context.Context, id uuid.UUID) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "token %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTokens) ListByUser(_ context.Context, userID string) ([]model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Token
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTokens) MarkDeployed(_ context.Context, id uuid.UUID, contractAddress string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return errs.Newf(errs.KindNotFound, "token %s not found", id)
	}
	t.Status = model.TokenStatusDeployed
	if contractAddress != "" {
		t.ContractAddress = &contractAddress
	}
	return nil
}

func (r *fakeTokens) MarkFailed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[id]; ok {
		t.Status = model.TokenStatusFailed
	}
	return nil
}

func (r *fakeTokens) AdjustSupply(_ context.Context, id uuid.UUID, delta string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return false, errs.Newf(errs.KindNotFound, "token %s not found", id)
	}
	d, err := model.ParseAmount(delta)
	if err != nil {
		return false, err
	}
	supply, err := model.ParseAmount(t.TotalSupply)
	if err != nil {
		return false, err
	}
	next := new(big.Int).Add(supply, d)
	if next.Sign() < 0 {
		return false, nil
	}
	t.TotalSupply = next.String()
	return true, nil
}

type fakeNfts struct {
	mu          sync.Mutex
	collections map[uuid.UUID]*model.NftCollection
	nfts        map[uuid.UUID]*model.Nft
	listings    map[uuid.UUID]*model.Listing
	offers      map[uuid.UUID]*model.Offer
}

func newFakeNfts() *fakeNfts {
	return &fakeNfts{
		collections: make(map[uuid.UUID]*model.NftCollection),
		nfts:        make(map[uuid.UUID]*model.Nft),
		listings:    make(map[uuid.UUID]*model.Listing),
		offers:      make(map[uuid.UUID]*model.Offer),
	}
}

func (r *fakeNfts) InsertCollection(_ context.Context, c *model.NftCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.collections[c.ID] = &cp
	return nil
}

func (r *fakeNfts) GetCollection(_ context.Context, id uuid.UUID) (*model.NftCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.collections[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "collection %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeNfts) Insert(_ context.Context, n *model.Nft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.nfts[n.ID] = &cp
	return nil
}

func (r *fakeNfts) Get(_ context.Context, id uuid.UUID) (*model.Nft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nfts[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "nft %s not found", id)
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNfts) ListByOwner(_ context.Context, ownerID string) ([]model.Nft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Nft
	for _, n := range r.nfts {
		if n.OwnerID == ownerID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNfts) MarkMinted(_ context.Context, id uuid.UUID, contractAddress, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nfts[id]
	if !ok {
		return errs.Newf(errs.KindNotFound, "nft %s not found", id)
	}
	n.Status = model.NftStatusMinted
	if contractAddress != "" {
		n.ContractAddress = &contractAddress
	}
	n.TokenID = &tokenID
	return nil
}

func (r *fakeNfts) MarkFailed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nfts[id]; ok {
		n.Status = model.NftStatusFailed
	}
	return nil
}

func (r *fakeNfts) CreateListing(_ context.Context, l *model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.listings {
		if existing.NftID == l.NftID && existing.Status == model.ListingStatusActive {
			return errs.Newf(errs.KindDuplicateListing, "nft %s already has an active listing", l.NftID)
		}
	}
	cp := *l
	r.listings[l.ID] = &cp
	return nil
}

func (r *fakeNfts) GetActiveListing(_ context.Context, nftID uuid.UUID) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listings {
		if l.NftID == nftID && l.Status == model.ListingStatusActive {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeNfts) CancelListing(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.Status != model.ListingStatusActive {
		return false, nil
	}
	l.Status = model.ListingStatusCancelled
	return true, nil
}

func (r *fakeNfts) CreateOffer(_ context.Context, o *model.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.offers[o.ID] = &cp
	return nil
}

func (r *fakeNfts) GetOffer(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "offer %s not found", id)
	}
	cp := *o
	return &cp, nil
}

func (r *fakeNfts) AcceptOffer(_ context.Context, offerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok {
		return errs.Newf(errs.KindNotFound, "offer %s not found", offerID)
	}
	if o.Status != model.OfferStatusPending || time.Now().After(o.ExpiresAt) {
		return errs.Newf(errs.KindExpiredOffer, "offer %s is not pending", offerID)
	}
	o.Status = model.OfferStatusAccepted
	if n, ok := r.nfts[o.NftID]; ok {
		n.OwnerID = o.BuyerID
	}
	for _, l := range r.listings {
		if l.NftID == o.NftID && l.Status == model.ListingStatusActive {
			l.Status = model.ListingStatusSold
		}
	}
	return nil
}

func (r *fakeNfts) ExpirePendingOffers(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.offers {
		if o.Status == model.OfferStatusPending && now.After(o.ExpiresAt) {
			o.Status = model.OfferStatusExpired
			n++
		}
	}
	return n, nil
}

type fakeStaking struct {
	mu        sync.Mutex
	pools     map[uuid.UUID]*model.StakingPool
	positions map[uuid.UUID]*model.StakingPosition
}

func newFakeStaking() *fakeStaking {
	return &fakeStaking{
		pools:     make(map[uuid.UUID]*model.StakingPool),
		positions: make(map[uuid.UUID]*model.StakingPosition),
	}
}

func (r *fakeStaking) InsertPool(_ context.Context, p *model.StakingPool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.pools[p.ID] = &cp
	return nil
}

func (r *fakeStaking) GetPool(_ context.Context, id uuid.UUID) (*model.StakingPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "pool %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeStaking) ListPools(_ context.Context) ([]model.StakingPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StakingPool
	for _, p := range r.pools {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeStaking) InsertPosition(_ context.Context, p *model.StakingPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.positions[p.ID] = &cp
	return nil
}

func (r *fakeStaking) GetPosition(_ context.Context, id uuid.UUID) (*model.StakingPosition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "position %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeStaking) ListActivePositions(_ context.Context, userID string) ([]model.StakingPosition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StakingPosition
	for _, p := range r.positions {
		if p.UserID == userID && p.Status == model.PositionStatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeStaking) ClosePosition(_ context.Context, id uuid.UUID, rewards decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	if !ok || p.Status != model.PositionStatusActive {
		return false, nil
	}
	p.Status = model.PositionStatusUnstaked
	p.AccruedRewards = rewards
	now := time.Now().UTC()
	p.UnstakedAt = &now
	return true, nil
}

func (r *fakeStaking) UpdateAccruedRewards(_ context.Context, id uuid.UUID, rewards decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.positions[id]; ok {
		p.AccruedRewards = rewards
	}
	return nil
}

type fakeDefi struct {
	mu        sync.Mutex
	positions map[uuid.UUID]*model.DefiPosition
}

func newFakeDefi() *fakeDefi {
	return &fakeDefi{positions: make(map[uuid.UUID]*model.DefiPosition)}
}

func (r *fakeDefi) Upsert(_ context.Context, p *model.DefiPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.positions[p.ID] = &cp
	return nil
}

func (r *fakeDefi) ListActiveByUser(_ context.Context, userID string) ([]model.DefiPosition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DefiPosition
	for _, p := range r.positions {
		if p.UserID == userID && p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeBridges struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.BridgeTransaction
}

func newFakeBridges() *fakeBridges {
	return &fakeBridges{records: make(map[uuid.UUID]*model.BridgeTransaction)}
}

func (r *fakeBridges) Insert(_ context.Context, b *model.BridgeTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.records[b.ID] = &cp
	return nil
}

func (r *fakeBridges) Get(_ context.Context, id uuid.UUID) (*model.BridgeTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.records[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "bridge transaction %s not found", id)
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBridges) GetByTransaction(_ context.Context, transactionID uuid.UUID) (*model.BridgeTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.records {
		if b.TransactionID == transactionID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, errs.Newf(errs.KindNotFound, "no bridge record for transaction %s", transactionID)
}

func (r *fakeBridges) UpdateStatus(_ context.Context, id uuid.UUID, status model.BridgeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.records[id]; ok {
		b.Status = status
	}
	return nil
}

func (r *fakeBridges) ListByUser(_ context.Context, userID string) ([]model.BridgeTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.BridgeTransaction
	for _, b := range r.records {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeWallets struct {
	mu      sync.Mutex
	watched []string
}

func (r *fakeWallets) Insert(context.Context, *model.Wallet) error { return nil }

func (r *fakeWallets) ListByUser(context.Context, string) ([]model.Wallet, error) {
	return nil, nil
}

func (r *fakeWallets) FindByAddress(context.Context, model.NetworkID, string) (*model.Wallet, error) {
	return nil, errs.Newf(errs.KindNotFound, "wallet not found")
}

func (r *fakeWallets) EnsureWatch(_ context.Context, _ string, _ model.NetworkID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watched = append(r.watched, address)
	return nil
}

// rig wires a Service, Handlers and Pool over in-memory collaborators.
type rig struct {
	service *Service
	pool    *Pool
	broker  *queue.MemoryBroker

	txRepo  *fakeTxRepo
	tokens  *fakeTokens
	nfts    *fakeNfts
	staking *fakeStaking
	defi    *fakeDefi
	bridges *fakeBridges
	wallets *fakeWallets
}

func newRig(t *testing.T) *rig {
	t.Helper()

	registry, err := chain.NewRegistry([]chain.Entry{{
		Descriptor: model.NetworkDescriptor{ID: testNetwork, Name: "Ethereum", Symbol: "ETH", Decimals: 18, VM: model.VMEVM},
		Client:     &fakeChainClient{balance: big.NewInt(1_000_000)},
	}, {
		Descriptor: model.NetworkDescriptor{ID: "polygon", Name: "Polygon", VM: model.VMEVM},
		Client:     nil,
	}})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broker := queue.NewMemoryBroker()
	txRepo := newFakeTxRepo()
	tokens := newFakeTokens()
	nfts := newFakeNfts()
	staking := newFakeStaking()
	defi := newFakeDefi()
	bridges := newFakeBridges()
	wallets := &fakeWallets{}

	handlers := NewHandlers(HandlersConfig{
		Networks: registry,
		Tokens:   tokens,
		Nfts:     nfts,
		Staking:  staking,
		Defi:     defi,
		Bridges:  bridges,
		Wallets:  wallets,
		Objects:  metadata.NewMemoryStore(),
		Logger:   logger,
	})

	return &rig{
		service: NewService(registry, txRepo, tokens, broker, compliance.AllowAll{}, logger),
		pool:    NewPool(broker, txRepo, handlers, audit.NopEmitter{}, 1, logger),
		broker:  broker,
		txRepo:  txRepo,
		tokens:  tokens,
		nfts:    nfts,
		staking: staking,
		defi:    defi,
		bridges: bridges,
		wallets: wallets,
	}
}

// drain dequeues and processes every queued job in family until the
// stream is empty, synchronously on the caller's goroutine.
func (r *rig) drain(t *testing.T, family string) {
	t.Helper()
	ctx := context.Background()
	for {
		msg, err := r.broker.Dequeue(ctx, family, "test-worker")
		require.NoError(t, err)
		if msg == nil {
			return
		}
		r.pool.process(ctx, family, msg)
	}
}
