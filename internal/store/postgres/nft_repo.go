package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

const uniqueViolation = pq.ErrorCode("23505")

type NftRepo struct {
	db *DB
}

func NewNftRepo(db *DB) *NftRepo {
	return &NftRepo{db: db}
}

func (r *NftRepo) InsertCollection(ctx context.Context, c *model.NftCollection) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO nft_collections (id, user_id, name, symbol, network, contract_address, metadata_uri)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.UserID, c.Name, c.Symbol, c.Network, c.ContractAddress, c.MetadataURI)
	if err != nil {
		return fmt.Errorf("insert nft collection: %w", err)
	}
	return nil
}

func (r *NftRepo) GetCollection(ctx context.Context, id uuid.UUID) (*model.NftCollection, error) {
	var c model.NftCollection
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, symbol, network, contract_address, metadata_uri, created_at
		FROM nft_collections
		WHERE id = $1
	`, id).Scan(&c.ID, &c.UserID, &c.Name, &c.Symbol, &c.Network, &c.ContractAddress, &c.MetadataURI, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "nft collection %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get nft collection: %w", err)
	}
	return &c, nil
}

func (r *NftRepo) Insert(ctx context.Context, n *model.Nft) error {
	attributes, err := json.Marshal(n.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO nfts (id, collection_id, owner_id, name, metadata_uri, attributes, royalty_recipient, royalty_percent, estimated_value, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, n.ID, n.CollectionID, n.OwnerID, n.Name, n.MetadataURI, attributes, n.RoyaltyRecipient, n.RoyaltyPercent, n.EstimatedValue, n.Status)
	if err != nil {
		return fmt.Errorf("insert nft: %w", err)
	}
	return nil
}

const nftColumns = `id, collection_id, owner_id, name, metadata_uri, contract_address, token_id, attributes, royalty_recipient, royalty_percent, estimated_value, status, created_at, updated_at`

func (r *NftRepo) Get(ctx context.Context, id uuid.UUID) (*model.Nft, error) {
	n, err := scanNft(r.db.QueryRowContext(ctx, `
		SELECT `+nftColumns+` FROM nfts WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "nft %s not found", id)
	}
	return n, err
}

func (r *NftRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Nft, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+nftColumns+` FROM nfts WHERE owner_id = $1 ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query nfts: %w", err)
	}
	defer rows.Close()

	var out []model.Nft
	for rows.Next() {
		n, err := scanNft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *NftRepo) MarkMinted(ctx context.Context, id uuid.UUID, contractAddress, tokenID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE nfts
		SET contract_address = $1, token_id = $2, status = $3, updated_at = now()
		WHERE id = $4
	`, contractAddress, tokenID, model.NftStatusMinted, id)
	if err != nil {
		return fmt.Errorf("mark nft minted: %w", err)
	}
	return nil
}

func (r *NftRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE nfts SET status = $1, updated_at = now() WHERE id = $2
	`, model.NftStatusFailed, id)
	if err != nil {
		return fmt.Errorf("mark nft failed: %w", err)
	}
	return nil
}

// CreateListing relies on the partial unique index over ACTIVE listings
// to reject a second concurrent listing for the same NFT.
func (r *NftRepo) CreateListing(ctx context.Context, l *model.Listing) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO nft_listings (id, nft_id, seller_id, price, currency, status, price_fiat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.NftID, l.SellerID, l.Price, l.Currency, l.Status, l.PriceFiat)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errs.Newf(errs.KindDuplicateListing, "nft %s already has an active listing", l.NftID)
	}
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (r *NftRepo) GetActiveListing(ctx context.Context, nftID uuid.UUID) (*model.Listing, error) {
	var l model.Listing
	err := r.db.QueryRowContext(ctx, `
		SELECT id, nft_id, seller_id, price, currency, status, created_at, closed_at, price_fiat
		FROM nft_listings
		WHERE nft_id = $1 AND status = $2
	`, nftID, model.ListingStatusActive).Scan(
		&l.ID, &l.NftID, &l.SellerID, &l.Price, &l.Currency, &l.Status, &l.CreatedAt, &l.ClosedAt, &l.PriceFiat,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active listing: %w", err)
	}
	return &l, nil
}

func (r *NftRepo) CancelListing(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE nft_listings
		SET status = $1, closed_at = now()
		WHERE id = $2 AND status = $3
	`, model.ListingStatusCancelled, id, model.ListingStatusActive)
	if err != nil {
		return false, fmt.Errorf("cancel listing: %w", err)
	}
	return oneRowAffected(res)
}

func (r *NftRepo) CreateOffer(ctx context.Context, o *model.Offer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO nft_offers (id, nft_id, buyer_id, amount, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.ID, o.NftID, o.BuyerID, o.Amount, o.Status, o.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

func (r *NftRepo) GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var o model.Offer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, nft_id, buyer_id, amount, status, expires_at, created_at
		FROM nft_offers
		WHERE id = $1
	`, id).Scan(&o.ID, &o.NftID, &o.BuyerID, &o.Amount, &o.Status, &o.ExpiresAt, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "offer %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return &o, nil
}

// AcceptOffer runs the three ownership mutations in one database
// transaction: the offer flips to ACCEPTED, the NFT moves to the buyer,
// and any ACTIVE listing closes as SOLD.
func (r *NftRepo) AcceptOffer(ctx context.Context, offerID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept offer: %w", err)
	}
	defer tx.Rollback()

	var (
		nftID   uuid.UUID
		buyerID string
	)
	err = tx.QueryRowContext(ctx, `
		UPDATE nft_offers
		SET status = $1
		WHERE id = $2 AND status = $3 AND expires_at > now()
		RETURNING nft_id, buyer_id
	`, model.OfferStatusAccepted, offerID, model.OfferStatusPending).Scan(&nftID, &buyerID)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Newf(errs.KindExpiredOffer, "offer %s is not pending or has expired", offerID)
	}
	if err != nil {
		return fmt.Errorf("accept offer: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE nfts SET owner_id = $1, updated_at = now() WHERE id = $2
	`, buyerID, nftID); err != nil {
		return fmt.Errorf("transfer nft ownership: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE nft_listings
		SET status = $1, closed_at = now()
		WHERE nft_id = $2 AND status = $3
	`, model.ListingStatusSold, nftID, model.ListingStatusActive); err != nil {
		return fmt.Errorf("close listing: %w", err)
	}

	return tx.Commit()
}

func (r *NftRepo) ExpirePendingOffers(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE nft_offers
		SET status = $1
		WHERE status = $2 AND expires_at <= $3
	`, model.OfferStatusExpired, model.OfferStatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("expire offers: %w", err)
	}
	return res.RowsAffected()
}

func scanNft(row rowScanner) (*model.Nft, error) {
	var (
		n          model.Nft
		attributes []byte
	)
	err := row.Scan(
		&n.ID, &n.CollectionID, &n.OwnerID, &n.Name, &n.MetadataURI,
		&n.ContractAddress, &n.TokenID, &attributes, &n.RoyaltyRecipient,
		&n.RoyaltyPercent, &n.EstimatedValue, &n.Status, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan nft: %w", err)
	}
	if err := json.Unmarshal(attributes, &n.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return &n, nil
}
