package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cubecore/chainops/internal/domain/model"
)

type DefiRepo struct {
	db *DB
}

func NewDefiRepo(db *DB) *DefiRepo {
	return &DefiRepo{db: db}
}

func (r *DefiRepo) Upsert(ctx context.Context, p *model.DefiPosition) error {
	var apy decimal.NullDecimal
	if p.APY != nil {
		apy = decimal.NullDecimal{Decimal: *p.APY, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO defi_positions (id, user_id, protocol, network, kind, value_fiat, apy, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, protocol, network, kind) DO UPDATE SET
			value_fiat = EXCLUDED.value_fiat,
			apy = EXCLUDED.apy,
			active = EXCLUDED.active
	`, p.ID, p.UserID, p.Protocol, p.Network, p.Kind, p.ValueFiat, apy, p.Active)
	if err != nil {
		return fmt.Errorf("upsert defi position: %w", err)
	}
	return nil
}

func (r *DefiRepo) ListActiveByUser(ctx context.Context, userID string) ([]model.DefiPosition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, protocol, network, kind, value_fiat, apy, active, created_at
		FROM defi_positions
		WHERE user_id = $1 AND active = true
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query defi positions: %w", err)
	}
	defer rows.Close()

	var out []model.DefiPosition
	for rows.Next() {
		var (
			p   model.DefiPosition
			apy decimal.NullDecimal
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Protocol, &p.Network, &p.Kind, &p.ValueFiat, &apy, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan defi position: %w", err)
		}
		if apy.Valid {
			p.APY = &apy.Decimal
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
