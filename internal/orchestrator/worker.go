package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cubecore/chainops/internal/audit"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metrics"
	"github.com/cubecore/chainops/internal/queue"
	"github.com/cubecore/chainops/internal/retry"
	"github.com/cubecore/chainops/internal/store"
)

// Pool consumes the job streams and drives each transaction through its
// status transitions. The pool is the ONLY writer of PROCESSING and the
// terminal states; Claim's conditional update guarantees a single winner
// per record.
type Pool struct {
	broker   queue.Broker
	txRepo   store.TransactionRepository
	handlers *Handlers
	auditor  audit.Emitter
	logger   *slog.Logger

	// workersPerFamily bounds in-flight executions per job family.
	workersPerFamily int

	wg     sync.WaitGroup
	tracer trace.Tracer

	// timers tracks scheduled redeliveries so Stop can cancel them.
	mu     sync.Mutex
	timers map[*time.Timer]struct{}
}

func NewPool(
	broker queue.Broker,
	txRepo store.TransactionRepository,
	handlers *Handlers,
	auditor audit.Emitter,
	workersPerFamily int,
	logger *slog.Logger,
) *Pool {
	if workersPerFamily < 1 {
		workersPerFamily = 1
	}
	return &Pool{
		broker:           broker,
		txRepo:           txRepo,
		handlers:         handlers,
		auditor:          auditor,
		workersPerFamily: workersPerFamily,
		logger:           logger.With("component", "worker_pool"),
		tracer:           otel.Tracer("chainops/orchestrator"),
		timers:           make(map[*time.Timer]struct{}),
	}
}

// Run starts the per-family consumers and blocks until ctx is cancelled
// and all workers have drained.
func (p *Pool) Run(ctx context.Context) {
	for _, family := range queue.Families {
		for i := 0; i < p.workersPerFamily; i++ {
			consumer := fmt.Sprintf("%s-%d", family, i)
			p.wg.Add(1)
			go p.consume(ctx, family, consumer)
		}
	}
	p.wg.Wait()

	p.mu.Lock()
	for t := range p.timers {
		t.Stop()
	}
	p.timers = make(map[*time.Timer]struct{})
	p.mu.Unlock()
}

func (p *Pool) consume(ctx context.Context, family, consumer string) {
	defer p.wg.Done()
	log := p.logger.With("family", family, "consumer", consumer)
	log.Info("worker started")

	for {
		if ctx.Err() != nil {
			log.Info("worker stopped")
			return
		}

		msg, err := p.broker.Dequeue(ctx, family, consumer)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopped")
				return
			}
			log.Error("dequeue", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		p.process(ctx, family, msg)
	}
}

// process executes one delivery end to end and always acks: terminal
// outcomes are recorded in the ledger, transient failures are re-enqueued
// as a fresh delivery after backoff. Leaving a message unacked would only
// duplicate that redelivery.
func (p *Pool) process(ctx context.Context, family string, msg *queue.Message) {
	job := msg.Job
	log := p.logger.With("transaction_id", job.TransactionID, "kind", job.Kind.String(), "attempt", job.Attempt)

	defer func() {
		if err := p.broker.Ack(ctx, family, msg.ID); err != nil {
			log.Error("ack", "error", err)
		}
	}()

	tx, err := p.txRepo.Get(ctx, job.TransactionID)
	if err != nil {
		// A job without a ledger row is garbage; drop it.
		log.Error("load transaction", "error", err)
		return
	}

	// Terminal records are never advanced again. This also absorbs
	// duplicate deliveries of an already-finished job.
	if tx.Status.Terminal() {
		log.Debug("skipping terminal transaction", "status", string(tx.Status))
		return
	}

	claimed, err := p.txRepo.Claim(ctx, tx.ID)
	if err != nil {
		log.Error("claim", "error", err)
		return
	}
	if !claimed {
		// Another worker holds it, or it was cancelled between Get and
		// Claim. Either way this delivery is done.
		log.Debug("claim lost")
		return
	}

	intent, err := DecodeIntent(tx.Payload)
	if err != nil {
		p.fail(ctx, tx, fmt.Errorf("decode payload: %w", err), log)
		return
	}

	ctx, span := p.tracer.Start(ctx, "orchestrator.execute",
		trace.WithAttributes(
			attribute.String("tx.id", tx.ID.String()),
			attribute.String("tx.kind", job.Kind.String()),
			attribute.Int("tx.attempt", job.Attempt),
		))
	started := time.Now()
	txHash, execErr := p.handlers.Execute(ctx, tx, intent)
	metrics.JobDuration.WithLabelValues(job.Kind.String()).Observe(time.Since(started).Seconds())

	if execErr == nil {
		span.End()
		if err := p.txRepo.MarkConfirmed(ctx, tx.ID, txHash); err != nil {
			// The side effects landed but the ledger write did not. The
			// handlers are idempotent, so release the claim and redeliver
			// instead of stranding the record in PROCESSING.
			log.Error("mark confirmed, releasing for redelivery", "error", err)
			if relErr := p.txRepo.Release(ctx, tx.ID, err.Error()); relErr != nil {
				log.Error("release after failed confirm", "error", relErr)
				return
			}
			metrics.JobRetries.WithLabelValues(job.Kind.String()).Inc()
			p.scheduleRetry(job, retry.Delay(job.Attempt))
			return
		}
		metrics.JobsTotal.WithLabelValues(job.Kind.String(), "confirmed").Inc()
		p.emit(tx, model.TxStatusConfirmed, "")
		log.Info("transaction confirmed", "tx_hash", txHash, "duration", time.Since(started))
		return
	}

	span.RecordError(execErr)
	span.SetStatus(codes.Error, execErr.Error())
	span.End()

	decision := retry.Classify(execErr)
	budget := retry.BudgetFor(job.Kind)

	if decision.IsTransient() && job.Attempt < budget {
		if err := p.txRepo.Release(ctx, tx.ID, execErr.Error()); err != nil {
			log.Error("release", "error", err)
			return
		}
		metrics.JobRetries.WithLabelValues(job.Kind.String()).Inc()
		delay := retry.Delay(job.Attempt)
		log.Warn("transient failure, scheduling retry",
			"error", execErr, "reason", decision.Reason, "delay", delay)
		p.scheduleRetry(job, delay)
		return
	}

	p.fail(ctx, tx, execErr, log)
}

func (p *Pool) fail(ctx context.Context, tx *model.Transaction, cause error, log *slog.Logger) {
	if err := p.txRepo.MarkFailed(ctx, tx.ID, cause.Error()); err != nil {
		log.Error("mark failed", "error", err)
		return
	}
	p.handlers.OnFailure(ctx, tx)
	metrics.JobsTotal.WithLabelValues(tx.Type.String(), "failed").Inc()
	p.emit(tx, model.TxStatusFailed, cause.Error())
	log.Error("transaction failed", "error", cause)
}

// scheduleRetry re-enqueues the job as a fresh delivery after the
// backoff delay. The enqueue runs on its own context: the retry must
// land even while the pool is shutting down, otherwise the record stays
// PENDING with no delivery until an operator sweeps it.
func (p *Pool) scheduleRetry(job queue.Job, delay time.Duration) {
	next := queue.Job{
		TransactionID: job.TransactionID,
		Kind:          job.Kind,
		Attempt:       job.Attempt + 1,
		EnqueuedAt:    time.Now().UTC(),
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		p.mu.Lock()
		delete(p.timers, timer)
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.broker.Enqueue(ctx, next); err != nil {
			p.logger.Error("re-enqueue after backoff",
				"error", err, "transaction_id", next.TransactionID, "attempt", next.Attempt)
		}
	})

	p.mu.Lock()
	p.timers[timer] = struct{}{}
	p.mu.Unlock()
}

func (p *Pool) emit(tx *model.Transaction, status model.TxStatus, detail string) {
	p.auditor.Emit(audit.Event{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Kind:          tx.Type,
		Status:        status,
		Network:       tx.Network,
		Detail:        detail,
		At:            time.Now().UTC(),
	})
}
