// Package chain is the network abstraction layer: a registry of supported
// ledger networks and a polymorphic client surface over them. EVM chains
// and the non-EVM chain expose the same capability set {balance query,
// gas, broadcast, confirmation wait, address validation}; the concrete
// implementation is selected by network id.
package chain

import (
	"context"
	"math/big"

	"github.com/cubecore/chainops/internal/domain/model"
)

// TxRequest describes a call or transfer for gas estimation.
type TxRequest struct {
	From  string
	To    string
	Value *big.Int
	Data  []byte
}

// Receipt is the chain-agnostic confirmation result.
type Receipt struct {
	TxHash      string
	BlockNumber int64
	GasUsed     uint64
	Success     bool
}

// Client is the capability set every supported network implements.
// One client is constructed per network at process start and reused for
// the process lifetime.
type Client interface {
	// Network returns the registered network id this client serves.
	Network() model.NetworkID

	// NativeBalance returns the native-currency balance in base units.
	NativeBalance(ctx context.Context, address string) (*big.Int, error)

	// TokenBalance returns a token balance for a wallet in base units.
	TokenBalance(ctx context.Context, tokenAddress, wallet string) (*big.Int, error)

	// EstimateGas estimates the gas units a transaction would consume.
	EstimateGas(ctx context.Context, req TxRequest) (uint64, error)

	// SuggestGasPrice returns the chain-suggested standard gas price.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// Broadcast submits a signed transaction and returns its hash.
	// Broadcasting is irreversible; in-flight broadcasts cannot be cancelled.
	Broadcast(ctx context.Context, signedTx []byte) (string, error)

	// WaitForConfirmation polls until the transaction has the requested
	// number of confirmations or ctx expires.
	WaitForConfirmation(ctx context.Context, txHash string, confirmations uint64) (*Receipt, error)

	// ValidateAddress reports whether address is well-formed for this chain.
	ValidateAddress(address string) bool

	// HeadBlock returns the latest block height (slot on the non-EVM chain).
	HeadBlock(ctx context.Context) (int64, error)
}
