package channel

import (
	"context"
	"time"

	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/task"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler enqueues the daily expiry sweep at the configured local time.
type Scheduler struct {
	cfg      *config.Config
	enqueuer task.Enqueuer
}

func NewScheduler(cfg *config.Config, enqueuer task.Enqueuer) *Scheduler {
	return &Scheduler{cfg: cfg, enqueuer: enqueuer}
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.run(ctx)
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started channel expiry scheduler")

	for {
		now := time.Now()
		next := nextRunTime(now, s.cfg.Sweep.Hour, s.cfg.Sweep.Minute)

		sleepDuration := next.Sub(now)
		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", sleepDuration),
		)
		select {
		case <-time.After(sleepDuration):
			s.runDaily()
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily() {
	start := time.Now()
	zap.L().Info("[Scheduler] enqueueing channel expiry sweep")

	if _, err := s.enqueuer.Enqueue(NewExpireTask()); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue expiry sweep", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] expiry sweep enqueued",
		zap.Duration("duration", time.Since(start)),
	)
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

var SchedulerModule = fx.Module("channel.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(StartScheduler),
)
