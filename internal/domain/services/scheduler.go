package services

import (
	"context"
	"sync"
	"time"

	"scamlens/pkg/logger"
)

// Pruner drops state that can no longer affect a decision
type Pruner interface {
	Prune(now time.Time) int
}

// Scheduler periodically prunes expired quota windows held in memory
type Scheduler struct {
	pruners  map[string]Pruner
	interval time.Duration
	now      func() time.Time
	logger   *logger.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewScheduler creates a scheduler; interval defaults to ten minutes
func NewScheduler(interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Scheduler{
		pruners:  make(map[string]Pruner),
		interval: interval,
		now:      time.Now,
		logger:   log.WithComponent("scheduler"),
		stopCh:   make(chan struct{}),
	}
}

// Register adds a named pruner. Call before Start.
func (s *Scheduler) Register(name string, p Pruner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruners[name] = p
}

// Start blocks until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.logger.Info().Msg("scheduler stopped")
}

// RunOnce prunes every registered store and returns the total removed
func (s *Scheduler) RunOnce() int {
	s.mu.Lock()
	pruners := make(map[string]Pruner, len(s.pruners))
	for k, v := range s.pruners {
		pruners[k] = v
	}
	s.mu.Unlock()

	now := s.now()
	total := 0
	for name, p := range pruners {
		n := p.Prune(now)
		total += n
		if n > 0 {
			s.logger.Debug().Str("store", name).Int("removed", n).Msg("pruned expired quota windows")
		}
	}
	return total
}
