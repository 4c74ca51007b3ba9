package server

import (
	"context"
	"sync"

	obslogger "github.com/smallbiznis/autobill/internal/observability/logger"
	"go.uber.org/zap"
)

// backgroundRunner owns the goroutines started by async admin endpoints.
// Stop cancels them and waits for them to return.
type backgroundRunner struct {
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newBackgroundRunner(log *zap.Logger) *backgroundRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &backgroundRunner{log: log, ctx: ctx, cancel: cancel}
}

// Go runs fn detached from the request, keeping its values (request id,
// trace) but cancelling it when the runner stops.
func (r *backgroundRunner) Go(reqCtx context.Context, operation string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(reqCtx))
	stop := context.AfterFunc(r.ctx, cancel)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer stop()

		log := obslogger.WithContext(ctx, r.log).With(zap.String("operation", operation))
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("admin.operation.panic", zap.Any("panic", rec))
			}
		}()

		log.Info("admin.operation.start")
		if err := fn(ctx); err != nil {
			log.Error("admin.operation.failed", zap.Error(err))
			return
		}
		log.Info("admin.operation.finish")
	}()
	return true
}

func (r *backgroundRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
