// Package queue is a Redis-backed FIFO of job ids: the hand-off point
// between job acceptance and the job runner's workers.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const DefaultQueueName = "queue:render_jobs"

type Queue struct {
	client    *redis.Client
	queueName string
}

// New connects to Redis at redisURL and pings it once to fail fast on
// misconfiguration.
func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client, queueName: DefaultQueueName}, nil
}

// NewWithClient wraps an already-constructed redis client, used by tests
// against a miniredis instance.
func NewWithClient(client *redis.Client, queueName string) *Queue {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Queue{client: client, queueName: queueName}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Enqueue appends a job id to the tail of the FIFO.
func (q *Queue) Enqueue(ctx context.Context, jobID uuid.UUID) error {
	return q.client.RPush(ctx, q.queueName, jobID.String()).Err()
}

// Pop blocks up to timeout for a job id; returns (uuid.Nil, nil) if none
// arrived before the deadline.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	result, err := q.client.BLPop(ctx, timeout, q.queueName).Result()
	if err == redis.Nil {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to pop from queue: %w", err)
	}
	if len(result) != 2 {
		return uuid.Nil, fmt.Errorf("unexpected redis response")
	}
	id, err := uuid.Parse(result[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse job id from queue: %w", err)
	}
	return id, nil
}

// TryPop pops immediately without blocking; returns (uuid.Nil, nil) if the
// queue is empty.
func (q *Queue) TryPop(ctx context.Context) (uuid.UUID, error) {
	result, err := q.client.LPop(ctx, q.queueName).Result()
	if err == redis.Nil {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to pop from queue: %w", err)
	}
	id, err := uuid.Parse(result)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse job id from queue: %w", err)
	}
	return id, nil
}

// Depth reports the number of queued job ids.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
