package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metrics"
)

// Deployment gas is buffered over the node's estimate so state drift
// between estimation and inclusion does not strand the transaction.
const gasBufferPercent = 20

// Backend is the slice of the EVM client the engine needs. The Solana
// client does not implement it; template deployment is EVM-only.
type Backend interface {
	Network() model.NetworkID
	ChainID() *big.Int
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGasMsg(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Store persists deployed-contract records. Addresses are immutable;
// records are inserted once and only the verified/active flags change.
type Store interface {
	InsertContract(ctx context.Context, c *model.DeployedContract) error
	GetContract(ctx context.Context, network model.NetworkID, address string) (*model.DeployedContract, error)
	MarkContractVerified(ctx context.Context, network model.NetworkID, address string) error
}

// Engine deploys catalogue templates and drives method calls against
// the resulting contracts.
type Engine struct {
	catalog  *Catalog
	backends map[model.NetworkID]Backend
	store    Store
	logger   *slog.Logger
}

func NewEngine(catalog *Catalog, backends map[model.NetworkID]Backend, store Store, logger *slog.Logger) *Engine {
	return &Engine{
		catalog:  catalog,
		backends: backends,
		store:    store,
		logger:   logger.With("component", "contract_engine"),
	}
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

func (e *Engine) backend(network model.NetworkID) (Backend, error) {
	b, ok := e.backends[network]
	if !ok {
		return nil, errs.Newf(errs.KindUnknownNetwork, "no contract backend for network %q", network)
	}
	return b, nil
}

// CostEstimate is a point-in-time deployment quote.
type CostEstimate struct {
	Network  model.NetworkID `json:"network"`
	GasUnits uint64          `json:"gasUnits"` // buffered
	GasPrice *big.Int        `json:"gasPrice"` // wei per unit
	Total    *big.Int        `json:"total"`    // wei
}

// EstimateDeploymentCost simulates the deployment with a throwaway
// sender and prices the buffered gas at the current network rate.
func (e *Engine) EstimateDeploymentCost(ctx context.Context, network model.NetworkID, templateID string, args []any) (*CostEstimate, error) {
	backend, err := e.backend(network)
	if err != nil {
		return nil, err
	}
	tmpl, err := e.catalog.Get(templateID)
	if err != nil {
		return nil, err
	}
	data, _, err := e.deployData(tmpl, args)
	if err != nil {
		return nil, err
	}

	// Estimation needs a sender address but not its funds or keys.
	throwaway, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate estimation key: %w", err)
	}
	from := crypto.PubkeyToAddress(throwaway.PublicKey)

	gas, err := backend.EstimateGasMsg(ctx, ethereum.CallMsg{From: from, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate deployment gas: %w", err)
	}
	gas = bufferGas(gas)

	price, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("price deployment gas: %w", err)
	}

	return &CostEstimate{
		Network:  network,
		GasUnits: gas,
		GasPrice: price,
		Total:    new(big.Int).Mul(new(big.Int).SetUint64(gas), price),
	}, nil
}

// DeployRequest parameterizes a template deployment. GasLimit and
// GasPrice of zero/nil mean estimate and use the network rate.
type DeployRequest struct {
	UserID     string
	Network    model.NetworkID
	TemplateID string
	Args       []any
	SignerKey  string // hex-encoded secp256k1 private key
	GasLimit   uint64
	GasPrice   *big.Int
}

type DeployResult struct {
	Contract *model.DeployedContract
	GasUsed  uint64
	Cost     *big.Int // wei actually spent
}

// Deploy signs and broadcasts the creation transaction, waits for it to
// mine and records the deployed contract with its ABI.
func (e *Engine) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	backend, err := e.backend(req.Network)
	if err != nil {
		return nil, err
	}
	tmpl, err := e.catalog.Get(req.TemplateID)
	if err != nil {
		return nil, err
	}
	data, coerced, err := e.deployData(tmpl, req.Args)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(req.SignerKey, "0x"))
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "parse signer key", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		if gasPrice, err = backend.SuggestGasPrice(ctx); err != nil {
			return nil, fmt.Errorf("price deployment gas: %w", err)
		}
	}
	gasLimit := req.GasLimit
	if gasLimit == 0 {
		estimated, err := backend.EstimateGasMsg(ctx, ethereum.CallMsg{From: from, Data: data})
		if err != nil {
			return nil, fmt.Errorf("estimate deployment gas: %w", err)
		}
		gasLimit = bufferGas(estimated)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(backend.ChainID()), key)
	if err != nil {
		return nil, fmt.Errorf("sign deployment: %w", err)
	}

	address := crypto.CreateAddress(from, nonce)
	if err := backend.SendTransaction(ctx, signed); err != nil {
		metrics.DeploymentsTotal.WithLabelValues(req.TemplateID, "error").Inc()
		return nil, err
	}

	receipt, err := backend.WaitMined(ctx, signed.Hash())
	if err != nil {
		return nil, fmt.Errorf("wait for deployment: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.DeploymentsTotal.WithLabelValues(req.TemplateID, "reverted").Inc()
		return nil, errs.Newf(errs.KindRPCFatal, "deployment tx %s reverted", signed.Hash().Hex())
	}

	argsJSON, err := json.Marshal(coerceForRecord(coerced))
	if err != nil {
		return nil, fmt.Errorf("encode constructor args: %w", err)
	}
	deployed := &model.DeployedContract{
		ID:              uuid.New(),
		UserID:          req.UserID,
		Network:         req.Network,
		Address:         address.Hex(),
		TemplateID:      tmpl.ID,
		ABI:             tmpl.ABI,
		ConstructorArgs: argsJSON,
		DeployTxHash:    signed.Hash().Hex(),
		Active:          true,
	}
	if err := e.store.InsertContract(ctx, deployed); err != nil {
		return nil, fmt.Errorf("record deployed contract: %w", err)
	}

	metrics.DeploymentsTotal.WithLabelValues(req.TemplateID, "ok").Inc()
	e.logger.Info("contract deployed",
		"network", req.Network.String(),
		"template", tmpl.ID,
		"address", deployed.Address,
		"tx_hash", deployed.DeployTxHash,
		"gas_used", receipt.GasUsed)

	return &DeployResult{
		Contract: deployed,
		GasUsed:  receipt.GasUsed,
		Cost:     new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), gasPrice),
	}, nil
}

// CallRequest invokes a method on a previously deployed contract.
// SignerKey is required only for state-changing methods.
type CallRequest struct {
	Network   model.NetworkID
	Address   string
	Method    string
	Args      []any
	SignerKey string
	Value     *big.Int
}

type CallResult struct {
	Outputs []any  // populated for reads
	TxHash  string // populated for writes
	GasUsed uint64
}

// Call dispatches over the contract's recorded ABI: view and pure
// methods go through eth_call, everything else is signed and mined.
func (e *Engine) Call(ctx context.Context, req CallRequest) (*CallResult, error) {
	backend, err := e.backend(req.Network)
	if err != nil {
		return nil, err
	}
	deployed, err := e.store.GetContract(ctx, req.Network, req.Address)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(deployed.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse recorded ABI: %w", err)
	}
	method, ok := parsed.Methods[req.Method]
	if !ok {
		return nil, errs.Validationf("method %q not in ABI of contract %s", req.Method, req.Address)
	}

	coerced, err := coerceABIArgs(method.Inputs, req.Args)
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(req.Method, coerced...)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "pack call args", err)
	}
	to := common.HexToAddress(req.Address)

	if method.IsConstant() {
		raw, err := backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data})
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", req.Method, err)
		}
		outputs, err := parsed.Unpack(req.Method, raw)
		if err != nil {
			return nil, fmt.Errorf("unpack %s return: %w", req.Method, err)
		}
		metrics.ContractCallsTotal.WithLabelValues("read").Inc()
		return &CallResult{Outputs: outputs}, nil
	}

	if req.SignerKey == "" {
		return nil, errs.Validationf("method %q changes state and needs a signer", req.Method)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(req.SignerKey, "0x"))
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "parse signer key", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("price call gas: %w", err)
	}
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	gas, err := backend.EstimateGasMsg(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate call gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      bufferGas(gas),
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(backend.ChainID()), key)
	if err != nil {
		return nil, fmt.Errorf("sign call: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}
	receipt, err := backend.WaitMined(ctx, signed.Hash())
	if err != nil {
		return nil, fmt.Errorf("wait for call: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, errs.Newf(errs.KindRPCFatal, "call tx %s reverted", signed.Hash().Hex())
	}

	metrics.ContractCallsTotal.WithLabelValues("write").Inc()
	return &CallResult{TxHash: signed.Hash().Hex(), GasUsed: receipt.GasUsed}, nil
}

// CallRaw sends pre-encoded calldata to an arbitrary address. Escape
// hatch for contracts deployed outside the catalogue.
func (e *Engine) CallRaw(ctx context.Context, network model.NetworkID, address string, data []byte) ([]byte, error) {
	backend, err := e.backend(network)
	if err != nil {
		return nil, err
	}
	to := common.HexToAddress(address)
	out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("raw call %s: %w", address, err)
	}
	metrics.ContractCallsTotal.WithLabelValues("raw").Inc()
	return out, nil
}

// EventsRequest selects logs of one event type from a deployed
// contract. ToBlock zero means latest.
type EventsRequest struct {
	Network   model.NetworkID
	Address   string
	Event     string
	FromBlock int64
	ToBlock   int64
}

// Event is one decoded log entry. Indexed and non-indexed arguments
// are merged into Args keyed by ABI name.
type Event struct {
	Name        string         `json:"name"`
	BlockNumber uint64         `json:"blockNumber"`
	TxHash      string         `json:"txHash"`
	Args        map[string]any `json:"args"`
}

// Events fetches and decodes logs for one event of a deployed contract.
func (e *Engine) Events(ctx context.Context, req EventsRequest) ([]Event, error) {
	backend, err := e.backend(req.Network)
	if err != nil {
		return nil, err
	}
	deployed, err := e.store.GetContract(ctx, req.Network, req.Address)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(deployed.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse recorded ABI: %w", err)
	}
	ev, ok := parsed.Events[req.Event]
	if !ok {
		return nil, errs.Validationf("event %q not in ABI of contract %s", req.Event, req.Address)
	}

	q := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(req.Address)},
		Topics:    [][]common.Hash{{ev.ID}},
		FromBlock: big.NewInt(req.FromBlock),
	}
	if req.ToBlock > 0 {
		q.ToBlock = big.NewInt(req.ToBlock)
	}
	logs, err := backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", req.Event, err)
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	out := make([]Event, 0, len(logs))
	for _, lg := range logs {
		args := make(map[string]any)
		if len(lg.Data) > 0 {
			if err := parsed.UnpackIntoMap(args, req.Event, lg.Data); err != nil {
				return nil, fmt.Errorf("decode %s data: %w", req.Event, err)
			}
		}
		if len(indexed) > 0 {
			if err := abi.ParseTopicsIntoMap(args, indexed, lg.Topics[1:]); err != nil {
				return nil, fmt.Errorf("decode %s topics: %w", req.Event, err)
			}
		}
		out = append(out, Event{
			Name:        req.Event,
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash.Hex(),
			Args:        args,
		})
	}
	return out, nil
}

// Verify checks the recorded contract against the claimed catalogue
// template and flips the verified flag when they agree.
func (e *Engine) Verify(ctx context.Context, network model.NetworkID, address, templateID string) error {
	deployed, err := e.store.GetContract(ctx, network, address)
	if err != nil {
		return err
	}
	tmpl, err := e.catalog.Get(templateID)
	if err != nil {
		return err
	}
	if deployed.TemplateID != tmpl.ID {
		return errs.Validationf("contract %s was deployed from template %q, not %q", address, deployed.TemplateID, templateID)
	}
	if err := e.store.MarkContractVerified(ctx, network, address); err != nil {
		return err
	}
	e.logger.Info("contract verified", "network", network.String(), "address", address, "template", templateID)
	return nil
}

// deployData encodes bytecode plus packed constructor args.
func (e *Engine) deployData(tmpl model.ContractTemplate, args []any) ([]byte, []any, error) {
	if len(args) != len(tmpl.Params) {
		return nil, nil, errs.Validationf("template %q takes %d constructor args, got %d", tmpl.ID, len(tmpl.Params), len(args))
	}
	parsed, err := abi.JSON(strings.NewReader(tmpl.ABI))
	if err != nil {
		return nil, nil, fmt.Errorf("parse template ABI: %w", err)
	}
	coerced, err := coerceArgs(tmpl.Params, args)
	if err != nil {
		return nil, nil, err
	}
	packed, err := parsed.Pack("", coerced...)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindValidation, "pack constructor args", err)
	}
	bytecode := common.FromHex(tmpl.Bytecode)
	return append(bytecode, packed...), coerced, nil
}

func bufferGas(gas uint64) uint64 {
	return gas * (100 + gasBufferPercent) / 100
}

// coerceForRecord converts packed-arg values back to JSON-friendly
// forms for the constructor_args column.
func coerceForRecord(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case *big.Int:
			out[i] = v.String()
		case common.Address:
			out[i] = v.Hex()
		default:
			out[i] = a
		}
	}
	return out
}
