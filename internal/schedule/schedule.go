package schedule

import (
	"context"
	"errors"
	"log"
	"time"
)

// Runner is the unit of work the scheduler drives. ErrBusy tells the
// scheduler the run was skipped rather than failed.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// ErrBusy signals that a run was skipped because the previous one is
// still in flight.
var ErrBusy = errors.New("previous run still in flight")

// Scheduler fires a runner on a fixed interval. The first run happens
// immediately on Start; overlapping runs are skipped, never queued.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	name     string
}

// New creates a scheduler firing runner every interval. name is used
// in log lines only.
func New(name string, runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, name: name}
}

// Start blocks, driving runs until ctx is cancelled. Once cancellation
// is observed no new run starts; the in-flight run is left to honour
// ctx itself.
func (s *Scheduler) Start(ctx context.Context) {
	s.fire(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Scheduler %s stopped", s.name)
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		log.Printf("Scheduler %s: skipping tick, %v", s.name, err)
	case err != nil && !errors.Is(err, context.Canceled):
		log.Printf("Scheduler %s: run failed after %v: %v", s.name, time.Since(start).Round(time.Millisecond), err)
	}
}
