package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

type TokenRepo struct {
	db *DB
}

func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Insert(ctx context.Context, t *model.Token) error {
	features, err := json.Marshal(t.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	distribution, err := json.Marshal(t.Distribution)
	if err != nil {
		return fmt.Errorf("encode distribution: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, user_id, name, symbol, network, total_supply, decimals, features, distribution, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.UserID, t.Name, t.Symbol, t.Network, t.TotalSupply, t.Decimals, features, distribution, t.Status)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *TokenRepo) Get(ctx context.Context, id uuid.UUID) (*model.Token, error) {
	t, err := r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, symbol, network, total_supply, decimals, features, distribution, contract_address, status, created_at, updated_at
		FROM tokens
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "token %s not found", id)
	}
	return t, err
}

func (r *TokenRepo) ListByUser(ctx context.Context, userID string) ([]model.Token, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, symbol, network, total_supply, decimals, features, distribution, contract_address, status, created_at, updated_at
		FROM tokens
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var out []model.Token
	for rows.Next() {
		t, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TokenRepo) MarkDeployed(ctx context.Context, id uuid.UUID, contractAddress string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tokens
		SET contract_address = $1, status = $2, updated_at = now()
		WHERE id = $3
	`, contractAddress, model.TokenStatusDeployed, id)
	if err != nil {
		return fmt.Errorf("mark token deployed: %w", err)
	}
	return nil
}

func (r *TokenRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tokens SET status = $1, updated_at = now() WHERE id = $2
	`, model.TokenStatusFailed, id)
	if err != nil {
		return fmt.Errorf("mark token failed: %w", err)
	}
	return nil
}

// AdjustSupply applies a signed base-unit delta in SQL so concurrent
// mints and burns serialize on the row. The WHERE guard refuses any
// burn that would take the supply negative.
func (r *TokenRepo) AdjustSupply(ctx context.Context, id uuid.UUID, delta string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tokens
		SET total_supply = total_supply + $1::numeric, updated_at = now()
		WHERE id = $2 AND total_supply + $1::numeric >= 0
	`, delta, id)
	if err != nil {
		return false, fmt.Errorf("adjust token supply: %w", err)
	}
	return oneRowAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TokenRepo) scanOne(row rowScanner) (*model.Token, error) {
	var (
		t            model.Token
		features     []byte
		distribution []byte
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Name, &t.Symbol, &t.Network, &t.TotalSupply,
		&t.Decimals, &features, &distribution, &t.ContractAddress,
		&t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}
	if err := json.Unmarshal(features, &t.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if err := json.Unmarshal(distribution, &t.Distribution); err != nil {
		return nil, fmt.Errorf("decode distribution: %w", err)
	}
	return &t, nil
}
