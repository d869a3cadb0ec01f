// Package solana implements the chain.Client capability set for the
// non-EVM account-model chain. Same interface surface as the EVM client;
// selected by network id in the registry.
package solana

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/mr-tron/base58"

	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/chain/ratelimit"
	"github.com/cubecore/chainops/internal/chain/solana/rpc"
	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

const (
	confirmationPollInterval = 2 * time.Second

	// Base fee per signature in lamports. Priority fees come on top.
	baseFeeLamports = 5000

	defaultRPS   = 10
	defaultBurst = 20
)

type Client struct {
	rpc     *rpc.Client
	network model.NetworkID
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

var _ chain.Client = (*Client)(nil)

func New(desc model.NetworkDescriptor, logger *slog.Logger) *Client {
	return &Client{
		rpc:     rpc.NewClient(desc.RPCURL, logger),
		network: desc.ID,
		limiter: ratelimit.NewLimiter(defaultRPS, defaultBurst, desc.ID.String()),
		logger:  logger.With("network", desc.ID.String()),
	}
}

func (c *Client) Network() model.NetworkID {
	return c.network
}

func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if !c.ValidateAddress(address) {
		return nil, errs.Validationf("invalid %s address %q", c.network, address)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	lamports, err := c.rpc.GetBalance(ctx, address)
	ratelimit.RecordRPCCall(c.network.String(), "getBalance", err)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(lamports), nil
}

func (c *Client) TokenBalance(ctx context.Context, tokenAddress, wallet string) (*big.Int, error) {
	if !c.ValidateAddress(tokenAddress) || !c.ValidateAddress(wallet) {
		return nil, errs.Validationf("invalid %s address", c.network)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	accounts, err := c.rpc.GetTokenAccountsByOwner(ctx, wallet, tokenAddress)
	ratelimit.RecordRPCCall(c.network.String(), "getTokenAccountsByOwner", err)
	if err != nil {
		return nil, err
	}

	total := new(big.Int)
	for _, acct := range accounts {
		amount, ok := new(big.Int).SetString(acct.Account.Data.Parsed.Info.TokenAmount.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("invalid token amount %q", acct.Account.Data.Parsed.Info.TokenAmount.Amount)
		}
		total.Add(total, amount)
	}
	return total, nil
}

// EstimateGas returns the signature count cost model: Solana charges a
// flat base fee per signature rather than metered execution gas.
func (c *Client) EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error) {
	return 1, nil
}

// SuggestGasPrice returns the base fee plus the average of recent
// prioritization fees, in lamports.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	fees, err := c.rpc.GetRecentPrioritizationFees(ctx)
	ratelimit.RecordRPCCall(c.network.String(), "getRecentPrioritizationFees", err)
	if err != nil {
		return nil, err
	}

	var sum uint64
	for _, f := range fees {
		sum += f.PrioritizationFee
	}
	avg := uint64(0)
	if len(fees) > 0 {
		avg = sum / uint64(len(fees))
	}
	return new(big.Int).SetUint64(baseFeeLamports + avg), nil
}

func (c *Client) Broadcast(ctx context.Context, signedTx []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	signature, err := c.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(signedTx))
	ratelimit.RecordRPCCall(c.network.String(), "sendTransaction", err)
	if err != nil {
		return "", err
	}
	return signature, nil
}

func (c *Client) WaitForConfirmation(ctx context.Context, txHash string, confirmations uint64) (*chain.Receipt, error) {
	ticker := time.NewTicker(confirmationPollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{txHash})
		ratelimit.RecordRPCCall(c.network.String(), "getSignatureStatuses", err)
		if err != nil {
			return nil, err
		}

		if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			// Finalized, or deep enough for the caller.
			confirmed := st.ConfirmationStatus == "finalized" ||
				(st.Confirmations != nil && *st.Confirmations >= confirmations)
			if confirmed {
				return &chain.Receipt{
					TxHash:      txHash,
					BlockNumber: st.Slot,
					Success:     len(st.Err) == 0 || string(st.Err) == "null",
				}, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ValidateAddress checks the address decodes to a 32-byte ed25519 key.
func (c *Client) ValidateAddress(address string) bool {
	decoded, err := base58.Decode(address)
	return err == nil && len(decoded) == 32
}

func (c *Client) HeadBlock(ctx context.Context) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	slot, err := c.rpc.GetSlot(ctx, "confirmed")
	ratelimit.RecordRPCCall(c.network.String(), "getSlot", err)
	return slot, err
}
