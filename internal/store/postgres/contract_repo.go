package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

type ContractRepo struct {
	db *DB
}

func NewContractRepo(db *DB) *ContractRepo {
	return &ContractRepo{db: db}
}

func (r *ContractRepo) InsertContract(ctx context.Context, c *model.DeployedContract) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deployed_contracts (id, user_id, network, address, template_id, abi, constructor_args, deploy_tx_hash, active, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.UserID, c.Network, c.Address, c.TemplateID, c.ABI, nullableJSON(c.ConstructorArgs), c.DeployTxHash, c.Active, c.Verified)
	if err != nil {
		return fmt.Errorf("insert deployed contract: %w", err)
	}
	return nil
}

const contractColumns = `id, user_id, network, address, template_id, abi, constructor_args, deploy_tx_hash, active, verified, created_at`

func (r *ContractRepo) GetContract(ctx context.Context, network model.NetworkID, address string) (*model.DeployedContract, error) {
	var c model.DeployedContract
	err := r.db.QueryRowContext(ctx, `
		SELECT `+contractColumns+`
		FROM deployed_contracts
		WHERE network = $1 AND address = $2
	`, network, address).Scan(
		&c.ID, &c.UserID, &c.Network, &c.Address, &c.TemplateID, &c.ABI,
		&c.ConstructorArgs, &c.DeployTxHash, &c.Active, &c.Verified, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Newf(errs.KindContractNotFound, "contract %s not found on %s", address, network)
	}
	if err != nil {
		return nil, fmt.Errorf("get deployed contract: %w", err)
	}
	return &c, nil
}

func (r *ContractRepo) MarkContractVerified(ctx context.Context, network model.NetworkID, address string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deployed_contracts SET verified = true WHERE network = $1 AND address = $2
	`, network, address)
	if err != nil {
		return fmt.Errorf("mark contract verified: %w", err)
	}
	return nil
}

func (r *ContractRepo) ListContractsByUser(ctx context.Context, userID string) ([]model.DeployedContract, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contractColumns+`
		FROM deployed_contracts
		WHERE user_id = $1 AND active = true
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query deployed contracts: %w", err)
	}
	defer rows.Close()

	var out []model.DeployedContract
	for rows.Next() {
		var c model.DeployedContract
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Network, &c.Address, &c.TemplateID, &c.ABI,
			&c.ConstructorArgs, &c.DeployTxHash, &c.Active, &c.Verified, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan deployed contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
