package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cubecore/chainops/internal/domain/model"
)

type WalletRepo struct {
	db *DB
}

func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

func (r *WalletRepo) Insert(ctx context.Context, w *model.Wallet) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, address, network, kind, label)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.UserID, w.Address, w.Network, w.Kind, w.Label)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (r *WalletRepo) ListByUser(ctx context.Context, userID string) ([]model.Wallet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, address, network, kind, label, created_at
		FROM wallets
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	var out []model.Wallet
	for rows.Next() {
		var w model.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Address, &w.Network, &w.Kind, &w.Label, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WalletRepo) FindByAddress(ctx context.Context, network model.NetworkID, address string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, address, network, kind, label, created_at
		FROM wallets
		WHERE network = $1 AND address = $2
	`, network, address).Scan(&w.ID, &w.UserID, &w.Address, &w.Network, &w.Kind, &w.Label, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find wallet: %w", err)
	}
	return &w, nil
}

func (r *WalletRepo) EnsureWatch(ctx context.Context, userID string, network model.NetworkID, address string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, address, network, kind, label)
		VALUES ($1, $2, $3, $4, $5, '')
		ON CONFLICT (network, address) DO NOTHING
	`, uuid.New(), userID, address, network, model.WalletKindWatch)
	if err != nil {
		return fmt.Errorf("ensure watch wallet: %w", err)
	}
	return nil
}
