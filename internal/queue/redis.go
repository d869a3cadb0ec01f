package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cubecore/chainops/internal/metrics"
)

const (
	consumerGroup = "chainops-workers"
	blockInterval = 2 * time.Second

	// Streams are capped so a stalled worker pool cannot grow redis
	// without bound; the ledger row is the durable record.
	maxStreamLen = 100_000
)

// RedisBroker is the production Broker over Redis Streams with one
// consumer group shared by all workers of this service.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	b := &RedisBroker{client: client}
	for _, family := range Families {
		if err := b.ensureGroup(context.Background(), family); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *RedisBroker) ensureGroup(ctx context.Context, family string) error {
	err := b.client.XGroupCreateMkStream(ctx, streamName(family), consumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group for %s: %w", family, err)
	}
	return nil
}

func (b *RedisBroker) Enqueue(ctx context.Context, job Job) error {
	encoded, err := encodeJob(job)
	if err != nil {
		return err
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName(job.Family()),
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{"job": encoded},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue %s job: %w", job.Family(), err)
	}
	return nil
}

func (b *RedisBroker) Dequeue(ctx context.Context, family, consumer string) (*Message, error) {
	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumer,
		Streams:  []string{streamName(family), ">"},
		Count:    1,
		Block:    blockInterval,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s stream: %w", family, err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	raw, ok := msg.Values["job"].(string)
	if !ok {
		// Malformed entry; ack it away so it does not wedge the group.
		_ = b.Ack(ctx, family, msg.ID)
		return nil, fmt.Errorf("stream %s entry %s has no job field", family, msg.ID)
	}
	job, err := decodeJob(raw)
	if err != nil {
		_ = b.Ack(ctx, family, msg.ID)
		return nil, err
	}
	return &Message{ID: msg.ID, Job: job}, nil
}

func (b *RedisBroker) Ack(ctx context.Context, family, id string) error {
	if err := b.client.XAck(ctx, streamName(family), consumerGroup, id).Err(); err != nil {
		return fmt.Errorf("ack %s/%s: %w", family, id, err)
	}
	return nil
}

func (b *RedisBroker) Depth(ctx context.Context, family string) (int64, error) {
	n, err := b.client.XLen(ctx, streamName(family)).Result()
	if err != nil {
		return 0, fmt.Errorf("stream length %s: %w", family, err)
	}
	metrics.QueueDepth.WithLabelValues(family).Set(float64(n))
	return n, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
