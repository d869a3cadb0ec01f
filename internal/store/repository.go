// Package store defines the repository contracts over the operational
// database. The postgres subpackage implements them; components depend
// on the interfaces so tests can substitute in-memory fakes.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cubecore/chainops/internal/domain/model"
)

// TxBeginner abstracts the ability to begin a database transaction.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// HistoryFilter narrows a user's transaction history query. Zero values
// mean no constraint.
type HistoryFilter struct {
	Type    model.TxType
	Status  model.TxStatus
	Network model.NetworkID
	Limit   int
	Offset  int
}

// TransactionRepository is the ledger of record for submitted intents.
// Status transitions are conditional updates so exactly one writer wins;
// a zero-row update means another worker holds (or already finished) the
// record.
type TransactionRepository interface {
	Insert(ctx context.Context, t *model.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// Claim moves PENDING to PROCESSING. Returns false when the record
	// was not PENDING (already claimed, finished, or cancelled).
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID, txHash string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	// Cancel moves PENDING to CANCELLED. Returns false when execution
	// already started.
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	// Release returns a claimed record to PENDING for redelivery and
	// bumps the attempt counter.
	Release(ctx context.Context, id uuid.UUID, errMsg string) error
	History(ctx context.Context, userID string, f HistoryFilter) ([]model.Transaction, error)
	CountByStatus(ctx context.Context, status model.TxStatus) (int64, error)
}

type TokenRepository interface {
	Insert(ctx context.Context, t *model.Token) error
	Get(ctx context.Context, id uuid.UUID) (*model.Token, error)
	ListByUser(ctx context.Context, userID string) ([]model.Token, error)
	// MarkDeployed records the contract address and advances the token
	// to DEPLOYED.
	MarkDeployed(ctx context.Context, id uuid.UUID, contractAddress string) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	// AdjustSupply applies a signed delta to total_supply, refusing to
	// drive it negative. Returns false when the guard rejected the delta.
	AdjustSupply(ctx context.Context, id uuid.UUID, delta string) (bool, error)
}

type WalletRepository interface {
	Insert(ctx context.Context, w *model.Wallet) error
	ListByUser(ctx context.Context, userID string) ([]model.Wallet, error)
	FindByAddress(ctx context.Context, network model.NetworkID, address string) (*model.Wallet, error)
	// EnsureWatch upserts an address-only WATCH wallet observed as a
	// transaction counterparty.
	EnsureWatch(ctx context.Context, userID string, network model.NetworkID, address string) error
}

type NftRepository interface {
	InsertCollection(ctx context.Context, c *model.NftCollection) error
	GetCollection(ctx context.Context, id uuid.UUID) (*model.NftCollection, error)
	Insert(ctx context.Context, n *model.Nft) error
	Get(ctx context.Context, id uuid.UUID) (*model.Nft, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Nft, error)
	// MarkMinted records on-chain identity once the mint confirms.
	MarkMinted(ctx context.Context, id uuid.UUID, contractAddress, tokenID string) error
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// CreateListing inserts an ACTIVE listing. A second ACTIVE listing
	// for the same NFT fails with KindDuplicateListing (partial unique
	// index).
	CreateListing(ctx context.Context, l *model.Listing) error
	GetActiveListing(ctx context.Context, nftID uuid.UUID) (*model.Listing, error)
	CancelListing(ctx context.Context, id uuid.UUID) (bool, error)

	CreateOffer(ctx context.Context, o *model.Offer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	// AcceptOffer atomically marks the offer accepted, transfers NFT
	// ownership to the buyer and closes any active listing as SOLD.
	AcceptOffer(ctx context.Context, offerID uuid.UUID) error
	// ExpirePendingOffers sweeps PENDING offers past their expiry.
	ExpirePendingOffers(ctx context.Context, now time.Time) (int64, error)
}

type StakingRepository interface {
	InsertPool(ctx context.Context, p *model.StakingPool) error
	GetPool(ctx context.Context, id uuid.UUID) (*model.StakingPool, error)
	ListPools(ctx context.Context) ([]model.StakingPool, error)
	InsertPosition(ctx context.Context, p *model.StakingPosition) error
	GetPosition(ctx context.Context, id uuid.UUID) (*model.StakingPosition, error)
	ListActivePositions(ctx context.Context, userID string) ([]model.StakingPosition, error)
	// ClosePosition moves ACTIVE to UNSTAKED recording final rewards.
	// Returns false when the position was not ACTIVE.
	ClosePosition(ctx context.Context, id uuid.UUID, rewards decimal.Decimal) (bool, error)
	UpdateAccruedRewards(ctx context.Context, id uuid.UUID, rewards decimal.Decimal) error
}

type DefiRepository interface {
	Upsert(ctx context.Context, p *model.DefiPosition) error
	ListActiveByUser(ctx context.Context, userID string) ([]model.DefiPosition, error)
}

// ContractRepository also satisfies the contract engine's Store.
type ContractRepository interface {
	InsertContract(ctx context.Context, c *model.DeployedContract) error
	GetContract(ctx context.Context, network model.NetworkID, address string) (*model.DeployedContract, error)
	MarkContractVerified(ctx context.Context, network model.NetworkID, address string) error
	ListContractsByUser(ctx context.Context, userID string) ([]model.DeployedContract, error)
}

type BridgeRepository interface {
	Insert(ctx context.Context, b *model.BridgeTransaction) error
	Get(ctx context.Context, id uuid.UUID) (*model.BridgeTransaction, error)
	// GetByTransaction resolves the bridge record from its ledger row.
	GetByTransaction(ctx context.Context, transactionID uuid.UUID) (*model.BridgeTransaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BridgeStatus) error
	ListByUser(ctx context.Context, userID string) ([]model.BridgeTransaction, error)
}

type SnapshotRepository interface {
	Insert(ctx context.Context, s *model.PortfolioSnapshot) error
	Latest(ctx context.Context, userID string) (*model.PortfolioSnapshot, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]model.PortfolioSnapshot, error)
}
