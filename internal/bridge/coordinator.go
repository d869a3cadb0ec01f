// Package bridge coordinates cross-chain transfers over a registry of
// bridge routes. The coordinator quotes fees and creates the bridge
// record; settlement itself runs through the orchestrator as a
// CROSS_CHAIN transaction.
package bridge

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metrics"
	"github.com/cubecore/chainops/internal/orchestrator"
	"github.com/cubecore/chainops/internal/store"
)

const basisPointDenominator = 10_000

// Submitter is the slice of the orchestrator the coordinator needs.
type Submitter interface {
	Submit(ctx context.Context, intent orchestrator.Intent) (*model.Transaction, error)
}

// Coordinator validates route support, quotes fees and hands transfers
// to the orchestrator.
type Coordinator struct {
	routes  []model.BridgeRoute
	orch    Submitter
	bridges store.BridgeRepository
	logger  *slog.Logger
}

func NewCoordinator(routes []model.BridgeRoute, orch Submitter, bridges store.BridgeRepository, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		routes:  routes,
		orch:    orch,
		bridges: bridges,
		logger:  logger.With("component", "bridge"),
	}
}

// List returns the registered routes in registration order.
func (c *Coordinator) List() []model.BridgeRoute {
	out := make([]model.BridgeRoute, len(c.routes))
	copy(out, c.routes)
	return out
}

// IsSupported reports whether any registered route connects from and to.
// Support is chain-set membership: both chains must appear in one
// route's set. A chain never bridges to itself.
func (c *Coordinator) IsSupported(from, to model.NetworkID) bool {
	if from == to {
		return false
	}
	_, err := c.routeFor("", from, to)
	return err == nil
}

// routeFor finds the route by id, or the first route connecting the
// pair when no id is given.
func (c *Coordinator) routeFor(bridgeID string, from, to model.NetworkID) (*model.BridgeRoute, error) {
	for i := range c.routes {
		r := &c.routes[i]
		if bridgeID != "" && r.ID != bridgeID {
			continue
		}
		if r.Connects(from, to) {
			return r, nil
		}
	}
	return nil, errs.Newf(errs.KindUnsupportedBridge, "no bridge connects %s to %s", from, to)
}

// Quote is one fee calculation for a prospective transfer.
type Quote struct {
	Route             model.BridgeRoute `json:"route"`
	Amount            string            `json:"amount"`
	Fee               string            `json:"fee"` // base units, NUMERIC(78,0)
	AmountAfterFee    string            `json:"amountAfterFee"`
	EstimatedSettling time.Duration     `json:"estimatedSettlingNs"`
}

// FeeFor quotes the linear basis-point fee for moving amount from one
// chain to another: fee = amount * bps / 10000, floored. Deterministic
// and monotonic in amount.
func (c *Coordinator) FeeFor(amount string, from, to model.NetworkID) (*Quote, error) {
	return c.quote("", amount, from, to)
}

func (c *Coordinator) quote(bridgeID, amount string, from, to model.NetworkID) (*Quote, error) {
	if from == to {
		return nil, errs.Validationf("source and destination network must differ, got %s", from)
	}
	route, err := c.routeFor(bridgeID, from, to)
	if err != nil {
		return nil, err
	}

	value, err := model.ParseAmount(amount)
	if err != nil {
		return nil, errs.Validationf("amount: %v", err)
	}
	if value.Sign() <= 0 {
		return nil, errs.Validationf("amount must be positive, got %q", amount)
	}

	if route.MinAmount != "" {
		minAmount, err := model.ParseAmount(route.MinAmount)
		if err == nil && value.Cmp(minAmount) < 0 {
			return nil, errs.Validationf("amount %s below route minimum %s", amount, route.MinAmount)
		}
	}
	if route.MaxAmount != "" {
		maxAmount, err := model.ParseAmount(route.MaxAmount)
		if err == nil && value.Cmp(maxAmount) > 0 {
			return nil, errs.Validationf("amount %s above route maximum %s", amount, route.MaxAmount)
		}
	}

	fee := new(big.Int).Mul(value, big.NewInt(route.FeeBasisPoints))
	fee.Div(fee, big.NewInt(basisPointDenominator))
	after := new(big.Int).Sub(value, fee)

	metrics.BridgeFeeQuotes.WithLabelValues(route.ID).Inc()
	return &Quote{
		Route:             *route,
		Amount:            value.String(),
		Fee:               fee.String(),
		AmountAfterFee:    after.String(),
		EstimatedSettling: route.EstimatedSettling,
	}, nil
}

// TransferRequest describes one cross-chain transfer.
type TransferRequest struct {
	UserID      string
	BridgeID    string // optional; empty picks the first connecting route
	FromNetwork model.NetworkID
	ToNetwork   model.NetworkID
	FromAddress string
	ToAddress   string
	Amount      string
}

// CreateBridgeTransaction validates route support, submits the transfer
// to the orchestrator and records the bridge-side tracking row. The
// returned record carries the ledger transaction id for status polling.
func (c *Coordinator) CreateBridgeTransaction(ctx context.Context, req TransferRequest) (*model.BridgeTransaction, error) {
	// Route support is checked before any fee math or submission so an
	// unsupported pair fails with the bridge-specific kind, not a
	// generic validation error.
	quote, err := c.quote(req.BridgeID, req.Amount, req.FromNetwork, req.ToNetwork)
	if err != nil {
		return nil, err
	}

	tx, err := c.orch.Submit(ctx, &orchestrator.BridgeIntent{
		UserID:      req.UserID,
		BridgeID:    quote.Route.ID,
		FromNetwork: req.FromNetwork,
		ToNetwork:   req.ToNetwork,
		Amount:      req.Amount,
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
	})
	if err != nil {
		return nil, err
	}

	record := &model.BridgeTransaction{
		ID:            uuid.New(),
		UserID:        req.UserID,
		BridgeID:      quote.Route.ID,
		FromNetwork:   req.FromNetwork,
		ToNetwork:     req.ToNetwork,
		Amount:        quote.Amount,
		Fee:           quote.Fee,
		TransactionID: tx.ID,
		Status:        model.BridgeStatusPending,
	}
	if err := c.bridges.Insert(ctx, record); err != nil {
		return nil, err
	}

	c.logger.Info("bridge transfer created",
		"bridge_id", quote.Route.ID,
		"transaction_id", tx.ID,
		"from", req.FromNetwork.String(),
		"to", req.ToNetwork.String(),
		"amount", quote.Amount,
		"fee", quote.Fee)
	return record, nil
}

// Get returns a bridge record joined with its ledger status.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (*model.BridgeTransaction, error) {
	return c.bridges.Get(ctx, id)
}

// ListByUser returns a user's bridge transfers.
func (c *Coordinator) ListByUser(ctx context.Context, userID string) ([]model.BridgeTransaction, error) {
	return c.bridges.ListByUser(ctx, userID)
}
