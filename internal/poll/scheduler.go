package poll

import (
	"context"
	"sync"
	"time"

	"gpuwatch/internal/logger"
)

// Scheduler drives the poll loop: every interval it fans out one HostPoller
// invocation per configured host, all concurrent with each other, and writes
// each result into the cache the moment that host finishes. Cycles never
// overlap: the loop body is busy until the slowest host returns or times
// out, and ticks that fire in the meantime are dropped by the ticker, not
// queued. That keeps each host's cache writes ordered by cycle start time.
type Scheduler struct {
	hosts    []string
	interval time.Duration
	poller   *HostPoller
	cache    *Cache
	log      logger.Logger

	now func() time.Time // injectable for tests
}

// NewScheduler creates a scheduler polling hosts every interval.
func NewScheduler(hosts []string, interval time.Duration, poller *HostPoller, cache *Cache, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Noop()
	}
	return &Scheduler{
		hosts:    hosts,
		interval: interval,
		poller:   poller,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

// Run polls immediately, then on every tick until ctx is cancelled.
// Cancellation stops new cycles; in-flight host polls run out their own
// per-host timeout, so shutdown is bounded but not instantaneous.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("polling %d hosts every %s", len(s.hosts), s.interval)

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle launches one concurrent poll per host and returns once every host
// has reported (succeeded, failed, or hit its timeout). Each result lands in
// the cache as soon as its host completes; a hung host never delays the
// writes for hosts that finish sooner.
func (s *Scheduler) RunCycle(ctx context.Context) {
	started := s.now()

	var wg sync.WaitGroup
	for _, alias := range s.hosts {
		wg.Add(1)
		go func(alias string) {
			defer wg.Done()
			result := s.poller.Poll(ctx, alias)
			s.cache.Write(result)
			if !result.Ok() {
				s.log.Debug("poll %s: %s (%s)", alias, result.Status, result.Detail)
			}
		}(alias)
	}
	wg.Wait()

	s.cache.CompleteCycle(started)
	s.log.Debug("cycle completed in %s", time.Since(started))
}
