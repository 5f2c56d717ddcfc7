package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, "queue:test")
}

func TestEnqueueTryPopRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, q.Enqueue(ctx, id))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), depth)

	got, err := q.TryPop(ctx)
	require.NoError(t, err)
	require.Equal(t, id, got)

	empty, err := q.TryPop(ctx)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, empty)
}

func TestPopBlocksUntilTimeout(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	start := time.Now()
	got, err := q.Pop(ctx, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, got)
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestFIFOOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, q.Enqueue(ctx, id))
	}

	for _, want := range ids {
		got, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
