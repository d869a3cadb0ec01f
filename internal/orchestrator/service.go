// Package orchestrator accepts typed intents, persists them as PENDING
// ledger transactions, and executes them asynchronously through a
// family-partitioned worker pool. Submission is fast-fail: validation
// and compliance run synchronously, everything that touches a chain
// happens in the workers.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/compliance"
	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metrics"
	"github.com/cubecore/chainops/internal/queue"
	"github.com/cubecore/chainops/internal/store"
)

type Service struct {
	networks   *chain.Registry
	txRepo     store.TransactionRepository
	tokens     store.TokenRepository
	broker     queue.Broker
	compliance compliance.Validator
	logger     *slog.Logger
}

func NewService(
	networks *chain.Registry,
	txRepo store.TransactionRepository,
	tokens store.TokenRepository,
	broker queue.Broker,
	validator compliance.Validator,
	logger *slog.Logger,
) *Service {
	return &Service{
		networks:   networks,
		txRepo:     txRepo,
		tokens:     tokens,
		broker:     broker,
		compliance: validator,
		logger:     logger.With("component", "orchestrator"),
	}
}

// Submit validates the intent, persists the PENDING transaction and
// enqueues the job. The returned record's id is the caller's handle for
// Get/Cancel; execution state arrives asynchronously.
func (s *Service) Submit(ctx context.Context, intent Intent) (*model.Transaction, error) {
	kind := intent.Kind()

	if err := intent.Validate(); err != nil {
		metrics.SubmissionRejects.WithLabelValues(kind.String(), "validation").Inc()
		return nil, err
	}

	ref := intent.Ref()
	if ref.Network != "" && !s.networks.Has(ref.Network) {
		metrics.SubmissionRejects.WithLabelValues(kind.String(), "unknown_network").Inc()
		return nil, errs.Newf(errs.KindUnknownNetwork, "unknown network %q", ref.Network)
	}

	if err := s.preCheck(ctx, intent); err != nil {
		metrics.SubmissionRejects.WithLabelValues(kind.String(), string(errs.KindOf(err))).Inc()
		return nil, err
	}

	payload, err := EncodeIntent(intent)
	if err != nil {
		return nil, err
	}

	tx := &model.Transaction{
		ID:          uuid.New(),
		UserID:      ref.UserID,
		Type:        kind,
		Status:      model.TxStatusPending,
		Network:     ref.Network,
		Amount:      normalizeAmount(ref.Amount),
		FromAddress: ref.From,
		ToAddress:   ref.To,
		Payload:     payload,
	}
	if err := s.txRepo.Insert(ctx, tx); err != nil {
		return nil, err
	}

	job := queue.Job{
		TransactionID: tx.ID,
		Kind:          kind,
		Attempt:       1,
		EnqueuedAt:    time.Now().UTC(),
	}
	if err := s.broker.Enqueue(ctx, job); err != nil {
		// The record exists but will never be delivered; cancel it so
		// the caller sees a consistent terminal state.
		if _, cancelErr := s.txRepo.Cancel(ctx, tx.ID); cancelErr != nil {
			s.logger.Error("cancel after enqueue failure", "error", cancelErr, "transaction_id", tx.ID)
		}
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues(kind.String()).Inc()
	s.logger.Info("intent accepted",
		"transaction_id", tx.ID,
		"kind", kind.String(),
		"network", ref.Network.String(),
		"user_id", ref.UserID)
	return tx, nil
}

// preCheck runs kind-specific synchronous gates: compliance approval
// for token creation, and the burn-versus-supply bound. Balance checks
// here narrow the failure window only; the chain is the final arbiter.
func (s *Service) preCheck(ctx context.Context, intent Intent) error {
	switch v := intent.(type) {
	case *CreateTokenIntent:
		return s.compliance.Approve(ctx, compliance.Request{
			UserID:  v.UserID,
			Action:  "token_create",
			Network: v.Network,
			Symbol:  v.Symbol,
			Amount:  v.TotalSupply,
		})

	case *BurnIntent:
		token, err := s.tokens.Get(ctx, v.TokenID)
		if err != nil {
			return err
		}
		supply, err := token.SupplyBig()
		if err != nil {
			return err
		}
		amount, err := model.ParseAmount(v.Amount)
		if err != nil {
			return err
		}
		if amount.Cmp(supply) > 0 {
			return errs.Newf(errs.KindInsufficientBalance,
				"burn of %s exceeds current supply %s", v.Amount, token.TotalSupply)
		}
	}
	return nil
}

// Get returns the latest known state, including a FAILED cause.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return s.txRepo.Get(ctx, id)
}

func (s *Service) History(ctx context.Context, userID string, f store.HistoryFilter) ([]model.Transaction, error) {
	return s.txRepo.History(ctx, userID, f)
}

// Cancel succeeds only while the record is still PENDING and unclaimed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	ok, err := s.txRepo.Cancel(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		s.logger.Info("transaction cancelled", "transaction_id", id)
		return nil
	}

	tx, err := s.txRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if tx.Status.Terminal() {
		return errs.Validationf("transaction %s already %s", id, tx.Status)
	}
	return errs.Validationf("transaction %s is executing and can no longer be cancelled", id)
}

// EstimatedDuration is the rough end-to-end completion time surfaced in
// submission acknowledgements.
func EstimatedDuration(kind model.TxType) time.Duration {
	switch kind {
	case model.TxTypeCrossChain:
		return 10 * time.Minute
	case model.TxTypeTokenCreate, model.TxTypeNftMint:
		return 2 * time.Minute
	default:
		return 30 * time.Second
	}
}

func normalizeAmount(amount string) string {
	if amount == "" {
		return "0"
	}
	return amount
}
