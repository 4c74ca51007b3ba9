package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	billingdomain "github.com/smallbiznis/autobill/internal/billing/domain"
	"github.com/smallbiznis/autobill/internal/clock"
	obsmetrics "github.com/smallbiznis/autobill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Billing billingdomain.Service
	Config  Config                        `optional:"true"`
	Pusher  *obsmetrics.PushgatewayPusher `optional:"true"`
}

// Scheduler fires the daily billing run on a cron schedule.
type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	billing billingdomain.Service
	pusher  *obsmetrics.PushgatewayPusher
	cron    *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Billing == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	log := p.Log.Named("scheduler").With(zap.String("component", "scheduler"))

	s := &Scheduler{
		log:     log,
		cfg:     cfg,
		clock:   p.Clock,
		billing: p.Billing,
		pusher:  p.Pusher,
	}
	cronLog := cronLogger{log: log.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := s.cron.AddFunc(cfg.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse billing cron %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Start begins firing runs. Runs started afterwards inherit a context that
// Stop cancels.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("scheduler.started", zap.String("spec", s.cfg.Spec), zap.String("location", s.cfg.Location.String()))
}

// Stop cancels the in-flight run and waits for it to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler.stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler.stop_timeout", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	_ = s.RunOnce(parent)
}

// RunOnce executes one billing run for the current date.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	date := s.clock.Now().In(s.cfg.Location)
	s.log.Info("scheduler.run.triggered", zap.String("date", date.Format("2006-01-02")))

	report, err := s.billing.RunForDate(ctx, date)
	defer s.pushMetrics(ctx)

	switch {
	case errors.Is(err, billingdomain.ErrRunInProgress):
		s.log.Info("scheduler.run.skipped", zap.String("date", date.Format("2006-01-02")))
		return nil
	case err != nil:
		s.log.Error("scheduler.run.failed", zap.String("date", date.Format("2006-01-02")), zap.Error(err))
		return err
	}

	s.log.Info("scheduler.run.completed",
		zap.String("run_id", report.RunID),
		zap.Int("batches", len(report.Batches)),
		zap.Int("swept", report.Swept),
		zap.Duration("duration", report.Duration),
	)
	return nil
}

func (s *Scheduler) pushMetrics(ctx context.Context) {
	if s.pusher == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.pusher.Push(pushCtx); err != nil {
		s.log.Warn("scheduler.metrics.push_failed", zap.Error(err))
	}
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("scheduler.cron."+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("scheduler.cron."+msg, append(keysAndValues, "error", err)...)
}
