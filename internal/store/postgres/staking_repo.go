package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

type StakingRepo struct {
	db *DB
}

func NewStakingRepo(db *DB) *StakingRepo {
	return &StakingRepo{db: db}
}

func (r *StakingRepo) InsertPool(ctx context.Context, p *model.StakingPool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO staking_pools (id, name, network, reward_symbol, apy, min_stake, contract_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Network, p.RewardSymbol, p.APY, p.MinStake, p.ContractAddress)
	if err != nil {
		return fmt.Errorf("insert staking pool: %w", err)
	}
	return nil
}

func (r *StakingRepo) GetPool(ctx context.Context, id uuid.UUID) (*model.StakingPool, error) {
	var p model.StakingPool
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, network, reward_symbol, apy, min_stake, contract_address, created_at
		FROM staking_pools
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Network, &p.RewardSymbol, &p.APY, &p.MinStake, &p.ContractAddress, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "staking pool %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get staking pool: %w", err)
	}
	return &p, nil
}

func (r *StakingRepo) ListPools(ctx context.Context) ([]model.StakingPool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, network, reward_symbol, apy, min_stake, contract_address, created_at
		FROM staking_pools
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query staking pools: %w", err)
	}
	defer rows.Close()

	var out []model.StakingPool
	for rows.Next() {
		var p model.StakingPool
		if err := rows.Scan(&p.ID, &p.Name, &p.Network, &p.RewardSymbol, &p.APY, &p.MinStake, &p.ContractAddress, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan staking pool: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StakingRepo) InsertPosition(ctx context.Context, p *model.StakingPosition) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO staking_positions (id, user_id, pool_id, amount, value_fiat, duration_days, accrued_rewards, status, staked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.UserID, p.PoolID, p.Amount, p.ValueFiat, p.DurationDays, p.AccruedRewards, p.Status, p.StakedAt)
	if err != nil {
		return fmt.Errorf("insert staking position: %w", err)
	}
	return nil
}

const positionColumns = `id, user_id, pool_id, amount, value_fiat, duration_days, accrued_rewards, status, staked_at, unstaked_at`

func (r *StakingRepo) GetPosition(ctx context.Context, id uuid.UUID) (*model.StakingPosition, error) {
	var p model.StakingPosition
	err := r.db.QueryRowContext(ctx, `
		SELECT `+positionColumns+` FROM staking_positions WHERE id = $1
	`, id).Scan(
		&p.ID, &p.UserID, &p.PoolID, &p.Amount, &p.ValueFiat,
		&p.DurationDays, &p.AccruedRewards, &p.Status, &p.StakedAt, &p.UnstakedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "staking position %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get staking position: %w", err)
	}
	return &p, nil
}

func (r *StakingRepo) ListActivePositions(ctx context.Context, userID string) ([]model.StakingPosition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+positionColumns+`
		FROM staking_positions
		WHERE user_id = $1 AND status = $2
		ORDER BY staked_at
	`, userID, model.PositionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("query staking positions: %w", err)
	}
	defer rows.Close()

	var out []model.StakingPosition
	for rows.Next() {
		var p model.StakingPosition
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.PoolID, &p.Amount, &p.ValueFiat,
			&p.DurationDays, &p.AccruedRewards, &p.Status, &p.StakedAt, &p.UnstakedAt,
		); err != nil {
			return nil, fmt.Errorf("scan staking position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StakingRepo) ClosePosition(ctx context.Context, id uuid.UUID, rewards decimal.Decimal) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE staking_positions
		SET status = $1, accrued_rewards = $2, unstaked_at = now()
		WHERE id = $3 AND status = $4
	`, model.PositionStatusUnstaked, rewards, id, model.PositionStatusActive)
	if err != nil {
		return false, fmt.Errorf("close staking position: %w", err)
	}
	return oneRowAffected(res)
}

func (r *StakingRepo) UpdateAccruedRewards(ctx context.Context, id uuid.UUID, rewards decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE staking_positions SET accrued_rewards = $1 WHERE id = $2 AND status = $3
	`, rewards, id, model.PositionStatusActive)
	if err != nil {
		return fmt.Errorf("update accrued rewards: %w", err)
	}
	return nil
}
