package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper is the periodic maintenance the scheduler drives.
type Sweeper interface {
	ExpireEvents(ctx context.Context) (int, error)
}

// Manager owns the gocron scheduler for the worker process. The expiry job
// runs in singleton mode, so a slow sweep delays the next run instead of
// overlapping it.
type Manager struct {
	scheduler gocron.Scheduler
	sweeper   Sweeper
	logger    *slog.Logger
	interval  time.Duration
	timeout   time.Duration
}

func NewManager(sweeper Sweeper, logger *slog.Logger, interval time.Duration) (*Manager, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scheduler: s,
		sweeper:   sweeper,
		logger:    logger,
		interval:  interval,
		timeout:   interval / 2,
	}, nil
}

func (m *Manager) Start(ctx context.Context) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(m.runExpirySweep, ctx),
		gocron.WithName("expire-events"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("register expire-events job: %w", err)
	}
	m.scheduler.Start()
	m.logger.InfoContext(ctx, "scheduler started",
		"module", "scheduler.manager",
		"layer", "adapter",
		"operation", "start",
		"outcome", "success",
		"interval", m.interval.String(),
	)
	return nil
}

func (m *Manager) runExpirySweep(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	started := time.Now()
	expired, err := m.sweeper.ExpireEvents(runCtx)
	if err != nil {
		m.logger.ErrorContext(ctx, "expiry sweep failed",
			"module", "scheduler.manager",
			"layer", "adapter",
			"operation", "expire_events",
			"outcome", "failure",
			"expired", expired,
			"error", err,
		)
		return
	}
	m.logger.InfoContext(ctx, "expiry sweep finished",
		"module", "scheduler.manager",
		"layer", "adapter",
		"operation", "expire_events",
		"outcome", "success",
		"expired", expired,
		"duration_ms", time.Since(started).Milliseconds(),
	)
}

func (m *Manager) Shutdown() error {
	return m.scheduler.Shutdown()
}
