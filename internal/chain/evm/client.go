// Package evm implements the chain.Client capability set for
// account-model EVM networks via go-ethereum's RPC client.
package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/chain/ratelimit"
	"github.com/cubecore/chainops/internal/circuitbreaker"
	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metrics"
)

const (
	confirmationPollInterval = 3 * time.Second
	defaultRPS               = 20
	defaultBurst             = 40
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse ABI: %v", err))
	}
	return parsed
}

// Client talks to one EVM network. Constructed once at startup from the
// network descriptor and reused for the process lifetime.
type Client struct {
	eth     *ethclient.Client
	network model.NetworkID
	chainID *big.Int
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

var _ chain.Client = (*Client)(nil)

func New(desc model.NetworkDescriptor, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.Dial(desc.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", desc.ID, err)
	}
	network := desc.ID.String()
	return &Client{
		eth:     eth,
		network: desc.ID,
		chainID: big.NewInt(desc.ChainID),
		limiter: ratelimit.NewLimiter(defaultRPS, defaultBurst, network),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			OnStateChange: func(from, to circuitbreaker.State) {
				if to == circuitbreaker.StateOpen {
					metrics.RPCCircuitOpens.WithLabelValues(network).Inc()
				}
				logger.Warn("rpc circuit state changed", "network", network, "from", from.String(), "to", to.String())
			},
		}),
		logger: logger.With("network", network),
	}, nil
}

func (c *Client) Network() model.NetworkID {
	return c.network
}

// ChainID returns the EIP-155 chain id from the descriptor.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *Client) do(ctx context.Context, method string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.breaker.Do(fn)
	ratelimit.RecordRPCCall(c.network.String(), method, err)
	return err
}

func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if !c.ValidateAddress(address) {
		return nil, errs.Validationf("invalid %s address %q", c.network, address)
	}
	var balance *big.Int
	err := c.do(ctx, "eth_getBalance", func() error {
		var callErr error
		balance, callErr = c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (c *Client) TokenBalance(ctx context.Context, tokenAddress, wallet string) (*big.Int, error) {
	if !c.ValidateAddress(tokenAddress) || !c.ValidateAddress(wallet) {
		return nil, errs.Validationf("invalid %s address", c.network)
	}
	data, err := erc20ABI.Pack("balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	token := common.HexToAddress(tokenAddress)
	var raw []byte
	err = c.do(ctx, "eth_call", func() error {
		var callErr error
		raw, callErr = c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}

	out, err := erc20ABI.Unpack("balanceOf", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf return type %T", out[0])
	}
	return balance, nil
}

func (c *Client) EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error) {
	msg := ethereum.CallMsg{
		From:  common.HexToAddress(req.From),
		Value: req.Value,
		Data:  req.Data,
	}
	if req.To != "" {
		to := common.HexToAddress(req.To)
		msg.To = &to
	}
	var gas uint64
	err := c.do(ctx, "eth_estimateGas", func() error {
		var callErr error
		gas, callErr = c.eth.EstimateGas(ctx, msg)
		return callErr
	})
	if err != nil {
		return 0, fmt.Errorf("estimate gas: %w", err)
	}
	return gas, nil
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := c.do(ctx, "eth_gasPrice", func() error {
		var callErr error
		price, callErr = c.eth.SuggestGasPrice(ctx)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	return price, nil
}

func (c *Client) Broadcast(ctx context.Context, signedTx []byte) (string, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(signedTx); err != nil {
		return "", errs.Wrap(errs.KindValidation, "decode signed transaction", err)
	}
	if err := c.SendTransaction(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// SendTransaction submits an already-signed transaction object.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	err := c.do(ctx, "eth_sendRawTransaction", func() error {
		return c.eth.SendTransaction(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	return nil
}

// WaitForConfirmation polls for the receipt until it has the requested
// confirmation depth. Exceeding ctx's deadline does not mean the
// transaction failed; callers requeue the confirmation check.
func (c *Client) WaitForConfirmation(ctx context.Context, txHash string, confirmations uint64) (*chain.Receipt, error) {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(confirmationPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.transactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			head, headErr := c.HeadBlock(ctx)
			if headErr != nil {
				return nil, headErr
			}
			blockNum := receipt.BlockNumber.Int64()
			if confirmations == 0 || head-blockNum+1 >= int64(confirmations) {
				return &chain.Receipt{
					TxHash:      txHash,
					BlockNumber: blockNum,
					GasUsed:     receipt.GasUsed,
					Success:     receipt.Status == types.ReceiptStatusSuccessful,
				}, nil
			}
		} else if err != nil && !isNotFound(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) transactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.do(ctx, "eth_getTransactionReceipt", func() error {
		var callErr error
		receipt, callErr = c.eth.TransactionReceipt(ctx, hash)
		return callErr
	})
	return receipt, err
}

func isNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound) || strings.Contains(strings.ToLower(err.Error()), "not found")
}

func (c *Client) ValidateAddress(address string) bool {
	return common.IsHexAddress(address)
}

func (c *Client) HeadBlock(ctx context.Context) (int64, error) {
	var head uint64
	err := c.do(ctx, "eth_blockNumber", func() error {
		var callErr error
		head, callErr = c.eth.BlockNumber(ctx)
		return callErr
	})
	if err != nil {
		return 0, fmt.Errorf("get head block: %w", err)
	}
	return int64(head), nil
}

// PendingNonceAt returns the next nonce for addr. Used by the contract
// engine when assembling deployment and write transactions.
func (c *Client) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	var nonce uint64
	err := c.do(ctx, "eth_getTransactionCount", func() error {
		var callErr error
		nonce, callErr = c.eth.PendingNonceAt(ctx, addr)
		return callErr
	})
	return nonce, err
}

// CallContract executes a read-only contract call.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var out []byte
	err := c.do(ctx, "eth_call", func() error {
		var callErr error
		out, callErr = c.eth.CallContract(ctx, msg, nil)
		return callErr
	})
	return out, err
}

// EstimateGasMsg estimates gas for a raw CallMsg.
func (c *Client) EstimateGasMsg(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas uint64
	err := c.do(ctx, "eth_estimateGas", func() error {
		var callErr error
		gas, callErr = c.eth.EstimateGas(ctx, msg)
		return callErr
	})
	return gas, err
}

// FilterLogs fetches logs matching q.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.do(ctx, "eth_getLogs", func() error {
		var callErr error
		logs, callErr = c.eth.FilterLogs(ctx, q)
		return callErr
	})
	return logs, err
}

// WaitMined waits for the receipt of hash with a single confirmation.
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(confirmationPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.transactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) Close() {
	c.eth.Close()
}
