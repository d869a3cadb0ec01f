package model

import (
	"time"

	"github.com/google/uuid"
)

type WalletKind string

const (
	WalletKindHot      WalletKind = "HOT"
	WalletKindCold     WalletKind = "COLD"
	WalletKindMultisig WalletKind = "MULTISIG"
	// WalletKindWatch is an address-only wallet derived lazily from
	// observed transaction counterparties.
	WalletKindWatch WalletKind = "WATCH"
)

type Wallet struct {
	ID        uuid.UUID  `db:"id"`
	UserID    string     `db:"user_id"`
	Address   string     `db:"address"`
	Network   NetworkID  `db:"network"`
	Kind      WalletKind `db:"kind"`
	Label     string     `db:"label"`
	CreatedAt time.Time  `db:"created_at"`
}
