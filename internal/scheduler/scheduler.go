// Package scheduler runs the product sync on an interval. Every run holds a
// redis lock so that only one instance syncs at a time.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/internal/batch"
	"github.com/Kentzo-Omakse/hexim/pkg/redis"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
)

var (
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
)

const (
	DefaultInterval = time.Minute
	DefaultLockTTL  = 10 * time.Minute

	// LockKey guards the product sync.
	LockKey = "hexim:sync:products"
)

// Runner runs one sync batch.
type Runner interface {
	Run(ctx context.Context) (*batch.Result, error)
}

type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

type Config struct {
	Interval time.Duration
	LockTTL  time.Duration
}

type Scheduler struct {
	runner Runner
	locker Locker
	config Config
	logger ectologger.Logger

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	lastRun  time.Time
	lastErr  error
	mu       sync.RWMutex
}

func NewScheduler(runner Runner, locker Locker, config Config, logger ectologger.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &Scheduler{
		runner:   runner,
		locker:   locker,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting scheduler: interval=%s", s.config.Interval)
	go s.loop(ctx)
	return nil
}

// Stop waits for the current run to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Scheduler shutdown timed out")
		return ctx.Err()
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, redis.ErrLockNotAcquired) {
		s.logger.WithContext(ctx).WithError(err).Error("Sync run failed")
	}
}

// RunOnce runs one batch under the sync lock. It returns
// redis.ErrLockNotAcquired when another instance is syncing.
func (s *Scheduler) RunOnce(ctx context.Context) (*batch.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.Scheduler.RunOnce")
	defer span.End()

	var result *batch.Result
	err := s.locker.WithLock(ctx, LockKey, s.config.LockTTL, func(ctx context.Context) error {
		var err error
		result, err = s.runner.Run(ctx)
		return err
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		s.logger.WithContext(ctx).Debug("Sync already running elsewhere")
		return nil, err
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// LastRun describes the last finished run for the readiness report.
func (s *Scheduler) LastRun(context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastRun.IsZero() {
		return "never"
	}
	if s.lastErr != nil {
		return s.lastRun.UTC().Format(time.RFC3339) + " failed: " + s.lastErr.Error()
	}
	return s.lastRun.UTC().Format(time.RFC3339)
}
