// Package startup brings the sync service's dependencies up in order and
// tears them down in reverse.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one component the service needs before it can sync.
type Dependency interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Func adapts a pair of functions to a Dependency. A nil stop is a no-op.
type Func struct {
	ID      string
	StartFn func(ctx context.Context) error
	StopFn  func(ctx context.Context) error
}

func (f Func) Name() string { return f.ID }

func (f Func) Start(ctx context.Context) error {
	if f.StartFn == nil {
		return nil
	}
	return f.StartFn(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.StopFn == nil {
		return nil
	}
	return f.StopFn(ctx)
}

type Startup struct {
	dependencies []Dependency
	started      []Dependency
	logger       ectologger.Logger
	maxAttempts  int
	backoff      time.Duration
}

func NewStartup(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     time.Second,
	}
}

// WithBackoff sets the unit of the fibonacci retry delay.
func (s *Startup) WithBackoff(unit time.Duration) *Startup {
	s.backoff = unit
	return s
}

// Add appends dependencies. They start in the order they were added.
func (s *Startup) Add(dependencies ...Dependency) *Startup {
	s.dependencies = append(s.dependencies, dependencies...)
	return s
}

// Start starts every dependency not yet running. A failed attempt is retried
// from the failed dependency after a fibonacci backoff.
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error

	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithContext(ctx).WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = s.startPending(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		wait := time.Duration(a) * s.backoff
		s.logger.WithContext(ctx).Infof("Retrying in %s (attempt %d/%d)", wait, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) startPending(ctx context.Context) error {
	for _, dependency := range s.dependencies[len(s.started):] {
		log := s.logger.WithContext(ctx).WithField("dependency", dependency.Name())
		log.Infof("Starting dependency '%s'", dependency.Name())
		if err := dependency.Start(ctx); err != nil {
			log.WithError(err).Errorf("Failed to start dependency '%s'", dependency.Name())
			return fmt.Errorf("%s: %w", dependency.Name(), err)
		}
		s.started = append(s.started, dependency)
	}
	return nil
}

// Stop stops the started dependencies in reverse order. Every dependency is
// stopped even when an earlier one fails; the first error is returned.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.started) - 1; i >= 0; i-- {
		dependency := s.started[i]
		log := s.logger.WithContext(ctx).WithField("dependency", dependency.Name())
		if err := dependency.Stop(ctx); err != nil {
			log.WithError(err).Errorf("Failed to stop dependency '%s'", dependency.Name())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Infof("Dependency '%s' stopped", dependency.Name())
	}
	s.started = nil
	return firstErr
}
