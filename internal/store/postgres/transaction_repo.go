package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/store"
)

const transactionColumns = `id, user_id, type, status, network, amount, from_address, to_address, tx_hash, err, attempts, payload, metadata, created_at, updated_at`

type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Insert(ctx context.Context, t *model.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, status, network, amount, from_address, to_address, payload, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.UserID, t.Type, t.Status, t.Network, t.Amount, t.FromAddress, t.ToAddress, nullableJSON(t.Payload), nullableJSON(t.Metadata))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, id).Scan(
		&t.ID, &t.UserID, &t.Type, &t.Status, &t.Network, &t.Amount,
		&t.FromAddress, &t.ToAddress, &t.TxHash, &t.Err, &t.Attempts,
		&t.Payload, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "transaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

// Claim is the single-writer gate: only one worker wins the
// PENDING -> PROCESSING transition for a given record.
func (r *TransactionRepo) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, model.TxStatusProcessing, id, model.TxStatusPending)
	if err != nil {
		return false, fmt.Errorf("claim transaction: %w", err)
	}
	return oneRowAffected(res)
}

func (r *TransactionRepo) MarkConfirmed(ctx context.Context, id uuid.UUID, txHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, tx_hash = NULLIF($2, ''), err = NULL, updated_at = now()
		WHERE id = $3 AND status = $4
	`, model.TxStatusConfirmed, txHash, id, model.TxStatusProcessing)
	if err != nil {
		return fmt.Errorf("mark transaction confirmed: %w", err)
	}
	return nil
}

func (r *TransactionRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, err = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, model.TxStatusFailed, errMsg, id, model.TxStatusProcessing)
	if err != nil {
		return fmt.Errorf("mark transaction failed: %w", err)
	}
	return nil
}

func (r *TransactionRepo) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, model.TxStatusCancelled, id, model.TxStatusPending)
	if err != nil {
		return false, fmt.Errorf("cancel transaction: %w", err)
	}
	return oneRowAffected(res)
}

func (r *TransactionRepo) Release(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, err = $2, attempts = attempts + 1, updated_at = now()
		WHERE id = $3 AND status = $4
	`, model.TxStatusPending, errMsg, id, model.TxStatusProcessing)
	if err != nil {
		return fmt.Errorf("release transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) History(ctx context.Context, userID string, f store.HistoryFilter) ([]model.Transaction, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if f.Type != "" {
		args = append(args, f.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Network != "" {
		args = append(args, f.Network)
		conditions = append(conditions, fmt.Sprintf("network = $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, f.Offset)

	query := fmt.Sprintf(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transaction history: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Type, &t.Status, &t.Network, &t.Amount,
			&t.FromAddress, &t.ToAddress, &t.TxHash, &t.Err, &t.Attempts,
			&t.Payload, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) CountByStatus(ctx context.Context, status model.TxStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM transactions WHERE status = $1`, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func oneRowAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// nullableJSON maps empty raw messages to SQL NULL so JSONB columns
// never receive the empty string.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
