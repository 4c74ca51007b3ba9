package server

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBackgroundRunnerStopCancelsAndWaits(t *testing.T) {
	r := newBackgroundRunner(zap.NewNop())
	started := make(chan struct{})
	var finished atomic.Bool

	ok := r.Go(context.Background(), "test", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		finished.Store(true)
		return ctx.Err()
	})
	require.True(t, ok)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	assert.True(t, finished.Load())
}

func TestBackgroundRunnerRejectsAfterStop(t *testing.T) {
	r := newBackgroundRunner(zap.NewNop())
	require.NoError(t, r.Stop(context.Background()))

	ran := false
	assert.False(t, r.Go(context.Background(), "test", func(context.Context) error {
		ran = true
		return nil
	}))
	assert.False(t, ran)
}

func TestBackgroundRunnerConcurrentGoAndStop(t *testing.T) {
	r := newBackgroundRunner(zap.NewNop())
	var accepted, completed atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Go(context.Background(), "test", func(context.Context) error {
				completed.Add(1)
				return nil
			}) {
				accepted.Add(1)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	wg.Wait()

	// Every accepted operation finished before Stop returned.
	assert.Equal(t, accepted.Load(), completed.Load())
}
