package notification

import (
	"context"
	"sync"
	"time"

	obslogger "github.com/smallbiznis/autobill/internal/observability/logger"
	"go.uber.org/zap"
)

const defaultSendTimeout = 15 * time.Second

// Dispatcher runs notification sends in the background so a slow mail or
// chat endpoint never holds up a charge. Failures are logged and dropped.
type Dispatcher struct {
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{log: log.Named("notification"), timeout: defaultSendTimeout}
}

// Go schedules send. The caller's cancellation does not abort it.
func (d *Dispatcher) Go(ctx context.Context, event string, send func(ctx context.Context) error, fields ...zap.Field) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		obslogger.WithContext(ctx, d.log).Warn("notification.dropped", append(fields, zap.String("event", event))...)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	sendCtx := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(sendCtx, d.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				obslogger.WithContext(ctx, d.log).Error("notification.panic", append(fields, zap.String("event", event), zap.Any("panic", r))...)
			}
		}()

		if err := send(ctx); err != nil {
			obslogger.WithContext(ctx, d.log).Warn("notification.failed", append(fields, zap.String("event", event), zap.Error(err))...)
			return
		}
		obslogger.WithContext(ctx, d.log).Debug("notification.sent", append(fields, zap.String("event", event))...)
	}()
}

// Close stops accepting sends and waits for in-flight ones until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
