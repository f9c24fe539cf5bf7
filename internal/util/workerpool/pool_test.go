package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPool_PreservesOrderPerKey(t *testing.T) {
	ctx := context.Background()
	pool := New(ctx, &Config{Name: "order", Workers: 3, QueueSize: 4, Logger: zap.NewNop()})

	const keys, perKey = 5, 200
	var mu sync.Mutex
	seen := make(map[uint64][]int)

	for i := 0; i < perKey; i++ {
		for k := uint64(0); k < keys; k++ {
			key, seq := k, i
			err := pool.Submit(ctx, Task{
				ID:  fmt.Sprintf("%d-%d", key, seq),
				Key: key,
				Fn: func(context.Context) error {
					mu.Lock()
					defer mu.Unlock()
					seen[key] = append(seen[key], seq)
					return nil
				},
			})
			require.NoError(t, err)
		}
	}

	require.NoError(t, pool.Wait())

	for k := uint64(0); k < keys; k++ {
		require.Len(t, seen[k], perKey)
		for i, seq := range seen[k] {
			assert.Equal(t, i, seq, "key %d ran out of order", k)
		}
	}

	stats := pool.Stats()
	assert.Equal(t, uint64(keys*perKey), stats.TotalTasks)
	assert.Equal(t, uint64(keys*perKey), stats.CompletedTasks)
	assert.Equal(t, 100.0, stats.SuccessRate())
}

func TestPool_FirstErrorIsReported(t *testing.T) {
	ctx := context.Background()
	pool := New(ctx, &Config{Name: "errors", Workers: 2})

	boom := errors.New("boom")
	require.NoError(t, pool.Submit(ctx, Task{ID: "bad", Key: 1, Fn: func(context.Context) error {
		return boom
	}}))

	err := pool.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), pool.Stats().FailedTasks)
}

func TestPool_RecoversPanics(t *testing.T) {
	ctx := context.Background()
	pool := New(ctx, &Config{Name: "panics", Workers: 1})

	require.NoError(t, pool.Submit(ctx, Task{ID: "panic", Fn: func(context.Context) error {
		panic("unexpected")
	}}))

	err := pool.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panicked")
}

func TestPool_RejectsAfterWait(t *testing.T) {
	ctx := context.Background()
	pool := New(ctx, &Config{Name: "closed", Workers: 1})
	require.NoError(t, pool.Wait())

	err := pool.Submit(ctx, Task{ID: "late", Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Equal(t, uint64(1), pool.Stats().RejectedTasks)
}
