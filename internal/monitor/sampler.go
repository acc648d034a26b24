package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sampler keeps the latest Snapshot, refreshed on an interval.
type Sampler struct {
	collectors []Collector
	interval   time.Duration
	logger     *slog.Logger

	mu       sync.RWMutex
	snapshot *Snapshot

	stopOnce sync.Once
	done     chan struct{}
}

func NewSampler(collectors []Collector, interval time.Duration, logger *slog.Logger) *Sampler {
	return &Sampler{
		collectors: collectors,
		interval:   interval,
		logger:     logger,
		snapshot:   newSnapshot(),
		done:       make(chan struct{}),
	}
}

// Start takes a first sample and then refreshes in the background until
// ctx is done or Stop is called.
func (s *Sampler) Start(ctx context.Context) {
	s.Refresh(ctx)
	go s.run(ctx)
	s.logger.Info("sampler started", "interval", s.interval, "collectors", len(s.collectors))
}

func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.logger.Info("sampler stopped")
	})
}

// Snapshot returns a copy of the latest sample.
func (s *Sampler) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Refresh samples every collector now and returns the result.
func (s *Sampler) Refresh(ctx context.Context) *Snapshot {
	next := newSnapshot()
	for _, c := range s.collectors {
		if err := c.Collect(ctx, next); err != nil {
			s.logger.Warn("collector failed", "collector", c.Name(), "error", err)
		}
	}

	s.mu.Lock()
	s.snapshot = next
	s.mu.Unlock()
	return next.Clone()
}

func (s *Sampler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Refresh(ctx)
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}
