// Package queue carries accepted jobs from the submission path to the
// worker pool. One stream per job family so a backlog of slow bridge
// jobs cannot starve token operations.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cubecore/chainops/internal/domain/model"
)

// Families enumerates the job streams. model.TxType.Family maps every
// transaction type onto exactly one of these.
var Families = []string{"token", "nft", "staking", "defi", "bridge"}

// Job is the queued unit of work. The payload itself lives in the
// transaction record; the queue carries only the reference and the
// redelivery attempt count.
type Job struct {
	TransactionID uuid.UUID    `json:"transactionId"`
	Kind          model.TxType `json:"kind"`
	Attempt       int          `json:"attempt"`
	EnqueuedAt    time.Time    `json:"enqueuedAt"`
}

func (j Job) Family() string {
	return j.Kind.Family()
}

// Message is one delivery. ID is broker-scoped and passed back to Ack.
type Message struct {
	ID  string
	Job Job
}

// Broker is the transport between submission and execution. Dequeue
// blocks up to the implementation's poll interval and returns nil when
// nothing arrived.
type Broker interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context, family, consumer string) (*Message, error)
	Ack(ctx context.Context, family, id string) error
	Depth(ctx context.Context, family string) (int64, error)
	Close() error
}

func streamName(family string) string {
	return "chainops:jobs:" + family
}

func encodeJob(job Job) (string, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}
	return string(raw), nil
}

func decodeJob(raw string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
