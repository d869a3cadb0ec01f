package queue

import (
	"context"
	"strconv"
	"sync"
	"time"
)

const memoryDequeueWait = 50 * time.Millisecond

// MemoryBroker is an in-process Broker with the same delivery contract
// as the redis implementation. Used by tests and single-node setups.
type MemoryBroker struct {
	mu      sync.Mutex
	nextID  int64
	queues  map[string][]Message
	pending map[string]map[string]Message // family -> id -> unacked delivery
	closed  bool
}

func NewMemoryBroker() *MemoryBroker {
	b := &MemoryBroker{
		queues:  make(map[string][]Message),
		pending: make(map[string]map[string]Message),
	}
	for _, family := range Families {
		b.queues[family] = nil
		b.pending[family] = make(map[string]Message)
	}
	return b
}

func (b *MemoryBroker) Enqueue(ctx context.Context, job Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	family := job.Family()
	b.queues[family] = append(b.queues[family], Message{
		ID:  strconv.FormatInt(b.nextID, 10),
		Job: job,
	})
	return nil
}

func (b *MemoryBroker) Dequeue(ctx context.Context, family, consumer string) (*Message, error) {
	deadline := time.Now().Add(memoryDequeueWait)
	for {
		b.mu.Lock()
		if q := b.queues[family]; len(q) > 0 {
			msg := q[0]
			b.queues[family] = q[1:]
			b.pending[family][msg.ID] = msg
			b.mu.Unlock()
			return &msg, nil
		}
		b.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (b *MemoryBroker) Ack(ctx context.Context, family, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending[family], id)
	return nil
}

func (b *MemoryBroker) Depth(ctx context.Context, family string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.queues[family]) + len(b.pending[family])), nil
}

// PendingCount reports unacked deliveries; test-only visibility.
func (b *MemoryBroker) PendingCount(family string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[family])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
