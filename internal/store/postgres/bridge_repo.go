package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

type BridgeRepo struct {
	db *DB
}

func NewBridgeRepo(db *DB) *BridgeRepo {
	return &BridgeRepo{db: db}
}

const bridgeColumns = `id, user_id, bridge_id, from_network, to_network, amount, fee, transaction_id, status, created_at, updated_at`

func (r *BridgeRepo) Insert(ctx context.Context, b *model.BridgeTransaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bridge_transactions (id, user_id, bridge_id, from_network, to_network, amount, fee, transaction_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, b.ID, b.UserID, b.BridgeID, b.FromNetwork, b.ToNetwork, b.Amount, b.Fee, b.TransactionID, b.Status)
	if err != nil {
		return fmt.Errorf("insert bridge transaction: %w", err)
	}
	return nil
}

func (r *BridgeRepo) Get(ctx context.Context, id uuid.UUID) (*model.BridgeTransaction, error) {
	return r.getWhere(ctx, "id = $1", id)
}

func (r *BridgeRepo) GetByTransaction(ctx context.Context, transactionID uuid.UUID) (*model.BridgeTransaction, error) {
	return r.getWhere(ctx, "transaction_id = $1", transactionID)
}

func (r *BridgeRepo) getWhere(ctx context.Context, where string, arg any) (*model.BridgeTransaction, error) {
	var b model.BridgeTransaction
	err := r.db.QueryRowContext(ctx, `
		SELECT `+bridgeColumns+` FROM bridge_transactions WHERE `+where,
		arg,
	).Scan(
		&b.ID, &b.UserID, &b.BridgeID, &b.FromNetwork, &b.ToNetwork,
		&b.Amount, &b.Fee, &b.TransactionID, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "bridge transaction %v not found", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get bridge transaction: %w", err)
	}
	return &b, nil
}

func (r *BridgeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BridgeStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bridge_transactions SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update bridge status: %w", err)
	}
	return nil
}

func (r *BridgeRepo) ListByUser(ctx context.Context, userID string) ([]model.BridgeTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bridgeColumns+`
		FROM bridge_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bridge transactions: %w", err)
	}
	defer rows.Close()

	var out []model.BridgeTransaction
	for rows.Next() {
		var b model.BridgeTransaction
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.BridgeID, &b.FromNetwork, &b.ToNetwork,
			&b.Amount, &b.Fee, &b.TransactionID, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bridge transaction: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
