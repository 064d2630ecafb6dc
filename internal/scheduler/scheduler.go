package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler manages the execution of processes with configurable intervals
type Scheduler struct {
	name     string
	ticker   *time.Ticker
	process  Process
	log      *zerolog.Logger
	interval time.Duration
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// NewSchedulerWithInterval creates a new scheduler with a parsed interval string
func NewSchedulerWithInterval(intervalExpr string, process Process, log *zerolog.Logger) (*Scheduler, error) {
	duration, err := ParseEveryExpr(intervalExpr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse interval: %w", err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", duration)
	}

	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	return &Scheduler{
		name:     process.Name(),
		ticker:   time.NewTicker(duration),
		process:  process,
		log:      log,
		interval: duration,
	}, nil
}

// Start runs the scheduler loop in the background until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run(ctx)
	}()
}

// Run starts the scheduler and blocks until context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	defer s.ticker.Stop()

	s.log.Info().
		Str("Process", s.process.Name()).
		Dur("interval", s.GetInterval()).
		Msg("Starting scheduler")

	// Run once immediately
	s.launchProcess(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().
				Str("Process", s.process.Name()).
				Msg("Scheduler received cancellation signal. Exiting...")
			return

		case <-s.ticker.C:
			if s.process.IsComplete() {
				s.log.Info().
					Str("Process", s.process.Name()).
					Msg("Process marked as complete. Stopping scheduling.")
				return
			}
			s.launchProcess(ctx)
		}
	}
}

// Stop waits for the scheduler loop and any in-flight execution to return,
// or for ctx to expire. The loop itself exits when its context is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResetInterval changes the ticker interval dynamically
func (s *Scheduler) ResetInterval(newInterval time.Duration) {
	s.mu.Lock()
	s.ticker.Reset(newInterval)
	s.interval = newInterval
	s.mu.Unlock()

	s.log.Info().
		Str("Process", s.process.Name()).
		Dur("newInterval", newInterval).
		Msg("Scheduler interval reset")
}

// ResetIntervalFromExpr changes the ticker interval using an expression string
func (s *Scheduler) ResetIntervalFromExpr(intervalExpr string) error {
	duration, err := ParseEveryExpr(intervalExpr)
	if err != nil {
		return fmt.Errorf("failed to parse interval: %w", err)
	}
	if duration <= 0 {
		return fmt.Errorf("interval must be positive, got %s", duration)
	}

	s.ResetInterval(duration)
	return nil
}

// GetInterval returns the current interval
func (s *Scheduler) GetInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Name returns the name of the scheduler
func (s *Scheduler) Name() string {
	return s.name
}

func (s *Scheduler) launchProcess(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.process.IsRunning() {
		s.log.Debug().
			Str("Process", s.process.Name()).
			Msg("Process already executing")
		return
	}

	s.log.Debug().
		Str("Process", s.process.Name()).
		Msg("Scheduler triggering task execution")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.process.Execute(ctx); err != nil {
			s.log.Warn().
				Str("Process", s.process.Name()).
				Err(err).
				Msg("Error occurred while executing process.")
		}
	}()
}

// ParseEveryExpr parses an "@every <duration>" expression.
func ParseEveryExpr(expr string) (time.Duration, error) {
	const prefix = "@every "
	if expr == "" {
		return 0, fmt.Errorf("empty expression provided")
	}
	if !strings.HasPrefix(expr, prefix) {
		return 0, fmt.Errorf("unsupported format: must start with %q", prefix)
	}
	return time.ParseDuration(strings.TrimPrefix(expr, prefix))
}
