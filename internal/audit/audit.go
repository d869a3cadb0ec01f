// Package audit publishes operation lifecycle events to a redis stream
// consumed by the audit pipeline. Delivery is fire-and-forget: audit
// must never block or fail the operation it describes.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metrics"
)

const (
	streamName   = "chainops:audit"
	maxStreamLen = 1_000_000
	publishWait  = 2 * time.Second
)

// Event is one audit record.
type Event struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	UserID        string          `json:"userId"`
	Kind          model.TxType    `json:"kind"`
	Status        model.TxStatus  `json:"status"`
	Network       model.NetworkID `json:"network"`
	Detail        string          `json:"detail,omitempty"`
	At            time.Time       `json:"at"`
}

// Emitter records significant transitions.
type Emitter interface {
	Emit(event Event)
}

// RedisEmitter publishes to the audit stream with a short independent
// timeout, detached from the caller's context.
type RedisEmitter struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisEmitter(client *redis.Client, logger *slog.Logger) *RedisEmitter {
	return &RedisEmitter{client: client, logger: logger.With("component", "audit")}
}

func (e *RedisEmitter) Emit(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	raw, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("encode audit event", "error", err)
		metrics.AuditEventsTotal.WithLabelValues("encode_error").Inc()
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishWait)
		defer cancel()

		err := e.client.XAdd(ctx, &redis.XAddArgs{
			Stream: streamName,
			MaxLen: maxStreamLen,
			Approx: true,
			Values: map[string]any{"event": string(raw)},
		}).Err()
		if err != nil {
			// The operation outcome is already durable in the ledger;
			// a lost audit event only warrants a warning.
			e.logger.Warn("audit publish failed", "error", err, "transaction_id", event.TransactionID)
			metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
			return
		}
		metrics.AuditEventsTotal.WithLabelValues("ok").Inc()
	}()
}

// NopEmitter discards events; test default.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}
