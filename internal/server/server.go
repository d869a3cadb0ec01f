// Package server exposes the JSON API: intent submission, transaction
// reads, portfolio dashboards, bridge transfers, network and template
// discovery, health and metrics. Submissions are acknowledged with the
// ledger id; results arrive asynchronously.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cubecore/chainops/internal/bridge"
	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/contract"
	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/orchestrator"
	"github.com/cubecore/chainops/internal/portfolio"
	"github.com/cubecore/chainops/internal/store"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Orchestrator is the submission surface the server needs.
type Orchestrator interface {
	Submit(ctx context.Context, intent orchestrator.Intent) (*model.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	History(ctx context.Context, userID string, f store.HistoryFilter) ([]model.Transaction, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// Dashboards is the portfolio surface the server needs.
type Dashboards interface {
	Dashboard(ctx context.Context, userID string) (*portfolio.Dashboard, error)
}

// Server routes the public JSON API.
type Server struct {
	orch      Orchestrator
	bridges   *bridge.Coordinator
	portfolio Dashboards
	networks  *chain.Registry
	gas       *chain.GasOracle
	contracts *contract.Engine
	wallets   store.WalletRepository
	txRepo    store.TransactionRepository
	logger    *slog.Logger
}

type Config struct {
	Orchestrator Orchestrator
	Bridges      *bridge.Coordinator
	Portfolio    Dashboards
	Networks     *chain.Registry
	Gas          *chain.GasOracle
	Contracts    *contract.Engine
	Wallets      store.WalletRepository
	Transactions store.TransactionRepository
	Logger       *slog.Logger
}

func New(cfg Config) *Server {
	return &Server{
		orch:      cfg.Orchestrator,
		bridges:   cfg.Bridges,
		portfolio: cfg.Portfolio,
		networks:  cfg.Networks,
		gas:       cfg.Gas,
		contracts: cfg.Contracts,
		wallets:   cfg.Wallets,
		txRepo:    cfg.Transactions,
		logger:    cfg.Logger.With("component", "server"),
	}
}

// Handler returns the HTTP handler for the public API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/tokens", submitHandler[orchestrator.CreateTokenIntent](s))
	mux.HandleFunc("POST /v1/tokens/mint", submitHandler[orchestrator.MintIntent](s))
	mux.HandleFunc("POST /v1/tokens/burn", submitHandler[orchestrator.BurnIntent](s))
	mux.HandleFunc("POST /v1/nfts/mint", submitHandler[orchestrator.MintNftIntent](s))
	mux.HandleFunc("POST /v1/nfts/list", submitHandler[orchestrator.ListNftIntent](s))
	mux.HandleFunc("POST /v1/nfts/offers/accept", submitHandler[orchestrator.AcceptOfferIntent](s))
	mux.HandleFunc("POST /v1/staking/stake", submitHandler[orchestrator.StakeIntent](s))
	mux.HandleFunc("POST /v1/staking/unstake", submitHandler[orchestrator.UnstakeIntent](s))
	mux.HandleFunc("POST /v1/staking/claim", submitHandler[orchestrator.ClaimRewardsIntent](s))
	mux.HandleFunc("POST /v1/defi/swap", submitHandler[orchestrator.SwapIntent](s))
	mux.HandleFunc("POST /v1/defi/liquidity", submitHandler[orchestrator.AddLiquidityIntent](s))

	mux.HandleFunc("GET /v1/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("GET /v1/transactions", s.handleHistory)
	mux.HandleFunc("DELETE /v1/transactions/{id}", s.handleCancel)

	mux.HandleFunc("GET /v1/networks", s.handleListNetworks)
	mux.HandleFunc("GET /v1/networks/{id}/gas", s.handleGasTiers)

	mux.HandleFunc("GET /v1/templates", s.handleListTemplates)
	mux.HandleFunc("POST /v1/contracts/estimate", s.handleEstimateDeployment)

	mux.HandleFunc("GET /v1/bridges/routes", s.handleListRoutes)
	mux.HandleFunc("GET /v1/bridges/fee", s.handleBridgeFee)
	mux.HandleFunc("POST /v1/bridges/transfers", s.handleBridgeTransfer)

	mux.HandleFunc("GET /v1/portfolio/{userID}", s.handleDashboard)

	mux.HandleFunc("POST /v1/wallets", s.handleCreateWallet)
	mux.HandleFunc("POST /v1/wallets/import", s.handleImportWallet)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// submissionAck is the uniform accepted-response shape.
type submissionAck struct {
	ID            uuid.UUID `json:"id"`
	Status        string    `json:"status"`
	EstimatedTime string    `json:"estimatedTime"`
}

// submitHandler decodes the concrete intent type and submits it. All
// submission endpoints share the ack shape and error mapping.
func submitHandler[T any, PT interface {
	*T
	orchestrator.Intent
}](s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intent := PT(new(T))
		if !decodeJSONBody(w, r, intent) {
			return
		}
		tx, err := s.orch.Submit(r.Context(), intent)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, submissionAck{
			ID:            tx.ID,
			Status:        string(tx.Status),
			EstimatedTime: orchestrator.EstimatedDuration(tx.Type).String(),
		})
	}
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	tx, err := s.orch.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user")
	if userID == "" {
		http.Error(w, `{"error":"user query param required"}`, http.StatusBadRequest)
		return
	}
	f := store.HistoryFilter{
		Type:    model.TxType(q.Get("type")),
		Status:  model.TxStatus(q.Get("status")),
		Network: model.NetworkID(q.Get("network")),
	}
	txs, err := s.orch.History(r.Context(), userID, f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.orch.Cancel(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.TxStatusCancelled)})
}

func (s *Server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	type networkResponse struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
		VM       string `json:"vm"`
		Testnet  bool   `json:"testnet"`
	}
	descriptors := s.networks.List()
	resp := make([]networkResponse, len(descriptors))
	for i, d := range descriptors {
		resp[i] = networkResponse{
			ID:       d.ID.String(),
			Name:     d.Name,
			Symbol:   d.Symbol,
			Decimals: d.Decimals,
			VM:       string(d.VM),
			Testnet:  d.Testnet,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGasTiers(w http.ResponseWriter, r *http.Request) {
	network := model.NetworkID(r.PathValue("id"))
	tiers, err := s.gas.Optimal(r.Context(), network)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"slow":     tiers.Slow.String(),
		"standard": tiers.Standard.String(),
		"fast":     tiers.Fast.String(),
	})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.contracts.Catalog().List())
}

type estimateRequest struct {
	Network    string `json:"network"`
	TemplateID string `json:"templateId"`
	Args       []any  `json:"args"`
}

func (s *Server) handleEstimateDeployment(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	est, err := s.contracts.EstimateDeploymentCost(r.Context(), model.NetworkID(req.Network), req.TemplateID, req.Args)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bridges.List())
}

func (s *Server) handleBridgeFee(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote, err := s.bridges.FeeFor(q.Get("amount"), model.NetworkID(q.Get("from")), model.NetworkID(q.Get("to")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleBridgeTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"userId"`
		BridgeID    string `json:"bridgeId"`
		FromNetwork string `json:"fromNetwork"`
		ToNetwork   string `json:"toNetwork"`
		FromAddress string `json:"fromAddress"`
		ToAddress   string `json:"toAddress"`
		Amount      string `json:"amount"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}
	record, err := s.bridges.CreateBridgeTransaction(r.Context(), bridge.TransferRequest{
		UserID:      req.UserID,
		BridgeID:    req.BridgeID,
		FromNetwork: model.NetworkID(req.FromNetwork),
		ToNetwork:   model.NetworkID(req.ToNetwork),
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		Amount:      req.Amount,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, record)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		http.Error(w, `{"error":"userID path segment required"}`, http.StatusBadRequest)
		return
	}
	d, err := s.portfolio.Dashboard(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type createWalletRequest struct {
	UserID  string `json:"userId"`
	Network string `json:"network"`
	Label   string `json:"label"`
}

// handleCreateWallet generates a fresh EVM keypair, records the wallet
// and a synchronous CONFIRMED ledger row. The private key is returned
// exactly once and never persisted.
func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Network == "" {
		http.Error(w, `{"error":"userId and network are required"}`, http.StatusBadRequest)
		return
	}

	network := model.NetworkID(req.Network)
	desc, err := s.networks.Get(network)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if desc.VM != model.VMEVM {
		http.Error(w, `{"error":"wallet generation supports EVM networks only; use import"}`, http.StatusBadRequest)
		return
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		s.internalError(w, "generate wallet key", err)
		return
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	wallet := &model.Wallet{
		ID:      uuid.New(),
		UserID:  req.UserID,
		Address: address,
		Network: network,
		Kind:    model.WalletKindHot,
		Label:   req.Label,
	}
	if err := s.wallets.Insert(r.Context(), wallet); err != nil {
		s.internalError(w, "insert wallet", err)
		return
	}
	s.recordWalletLedger(r.Context(), model.TxTypeWalletCreate, req.UserID, network, address)

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":         wallet.ID.String(),
		"address":    address,
		"privateKey": "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
	})
}

type importWalletRequest struct {
	UserID  string `json:"userId"`
	Network string `json:"network"`
	Address string `json:"address"`
	Label   string `json:"label"`
}

func (s *Server) handleImportWallet(w http.ResponseWriter, r *http.Request) {
	var req importWalletRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Network == "" || req.Address == "" {
		http.Error(w, `{"error":"userId, network and address are required"}`, http.StatusBadRequest)
		return
	}

	network := model.NetworkID(req.Network)
	client, err := s.networks.Client(network)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !client.ValidateAddress(req.Address) {
		http.Error(w, `{"error":"address is not valid for this network"}`, http.StatusBadRequest)
		return
	}

	wallet := &model.Wallet{
		ID:      uuid.New(),
		UserID:  req.UserID,
		Address: req.Address,
		Network: network,
		Kind:    model.WalletKindWatch,
		Label:   req.Label,
	}
	if err := s.wallets.Insert(r.Context(), wallet); err != nil {
		s.internalError(w, "insert wallet", err)
		return
	}
	s.recordWalletLedger(r.Context(), model.TxTypeWalletImport, req.UserID, network, req.Address)

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":      wallet.ID.String(),
		"address": req.Address,
	})
}

// recordWalletLedger writes the synchronous CONFIRMED ledger row for a
// wallet operation. Wallet operations have no async leg, so the record
// is inserted already terminal.
func (s *Server) recordWalletLedger(ctx context.Context, kind model.TxType, userID string, network model.NetworkID, address string) {
	tx := &model.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      kind,
		Status:    model.TxStatusConfirmed,
		Network:   network,
		Amount:    "0",
		ToAddress: address,
	}
	if err := s.txRepo.Insert(ctx, tx); err != nil {
		s.logger.Error("record wallet ledger row", "error", err, "kind", kind.String())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// writeError maps kinded errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindValidation, errs.KindInsufficientBalance:
		status = http.StatusBadRequest
	case errs.KindUnknownNetwork, errs.KindUnsupportedBridge:
		status = http.StatusUnprocessableEntity
	case errs.KindNotFound, errs.KindTemplateNotFound, errs.KindContractNotFound:
		status = http.StatusNotFound
	case errs.KindDuplicateListing, errs.KindExpiredOffer:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, status)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, segment string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(segment))
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
