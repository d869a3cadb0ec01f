package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type NftStatus string

const (
	NftStatusPending NftStatus = "PENDING"
	NftStatusMinted  NftStatus = "MINTED"
	NftStatusFailed  NftStatus = "FAILED"
)

type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "ACTIVE"
	ListingStatusSold      ListingStatus = "SOLD"
	ListingStatusCancelled ListingStatus = "CANCELLED"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "PENDING"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusRejected OfferStatus = "REJECTED"
	OfferStatusExpired  OfferStatus = "EXPIRED"
)

// NftCollection groups NFTs under one contract.
type NftCollection struct {
	ID              uuid.UUID `db:"id"`
	UserID          string    `db:"user_id"`
	Name            string    `db:"name"`
	Symbol          string    `db:"symbol"`
	Network         NetworkID `db:"network"`
	ContractAddress *string   `db:"contract_address"`
	MetadataURI     string    `db:"metadata_uri"`
	CreatedAt       time.Time `db:"created_at"`
}

// NftAttribute is one trait/value pair. Order is preserved.
type NftAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Nft is a non-fungible asset. ContractAddress and TokenID are assigned
// only after the mint confirms on chain.
type Nft struct {
	ID               uuid.UUID       `db:"id"`
	CollectionID     uuid.UUID       `db:"collection_id"`
	OwnerID          string          `db:"owner_id"`
	Name             string          `db:"name"`
	MetadataURI      string          `db:"metadata_uri"`
	ContractAddress  *string         `db:"contract_address"`
	TokenID          *string         `db:"token_id"`
	Attributes       []NftAttribute  `db:"attributes"`
	RoyaltyRecipient string          `db:"royalty_recipient"`
	RoyaltyPercent   decimal.Decimal `db:"royalty_percent"` // 0-10
	EstimatedValue   decimal.Decimal `db:"estimated_value"` // display currency
	Status           NftStatus       `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// Listing offers an NFT for sale. At most one ACTIVE listing may exist
// per NFT at a time; the store enforces this with a partial unique index.
type Listing struct {
	ID        uuid.UUID       `db:"id"`
	NftID     uuid.UUID       `db:"nft_id"`
	SellerID  string          `db:"seller_id"`
	Price     string          `db:"price"` // NUMERIC(78,0) as string
	Currency  string          `db:"currency"`
	Status    ListingStatus   `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
	ClosedAt  *time.Time      `db:"closed_at"`
	PriceFiat decimal.Decimal `db:"price_fiat"`
}

// Offer is a buyer-scoped bid on an NFT with an expiry. Accepting an
// offer transfers ownership and closes the active listing atomically.
type Offer struct {
	ID        uuid.UUID   `db:"id"`
	NftID     uuid.UUID   `db:"nft_id"`
	BuyerID   string      `db:"buyer_id"`
	Amount    string      `db:"amount"`
	Status    OfferStatus `db:"status"`
	ExpiresAt time.Time   `db:"expires_at"`
	CreatedAt time.Time   `db:"created_at"`
}

// Expired reports whether the offer's expiry has passed at now.
func (o *Offer) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
