package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cubecore/chainops/internal/domain/model"
)

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Insert(ctx context.Context, s *model.PortfolioSnapshot) error {
	breakdown, err := json.Marshal(s.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (id, user_id, breakdown, yield_apy, alert_count, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.UserID, breakdown, s.YieldAPY, s.AlertCount, s.TakenAt)
	if err != nil {
		return fmt.Errorf("insert portfolio snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) Latest(ctx context.Context, userID string) (*model.PortfolioSnapshot, error) {
	s, err := scanSnapshot(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, breakdown, yield_apy, alert_count, taken_at
		FROM portfolio_snapshots
		WHERE user_id = $1
		ORDER BY taken_at DESC
		LIMIT 1
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SnapshotRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]model.PortfolioSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, breakdown, yield_apy, alert_count, taken_at
		FROM portfolio_snapshots
		WHERE user_id = $1 AND taken_at >= $2
		ORDER BY taken_at
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query portfolio snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.PortfolioSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSnapshot(row rowScanner) (*model.PortfolioSnapshot, error) {
	var (
		s         model.PortfolioSnapshot
		breakdown []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &breakdown, &s.YieldAPY, &s.AlertCount, &s.TakenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan portfolio snapshot: %w", err)
	}
	if err := json.Unmarshal(breakdown, &s.Breakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	return &s, nil
}
