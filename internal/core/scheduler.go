package core

// scheduler.go runs background maintenance for the session table.
//
// Sessions hold whole query results in memory and clients often walk away
// without closing them. The sweeper evicts sessions idle longer than
// Session.IdleTTL. It is long-running and stops when its context ends.

import (
	"context"
	"log/slog"
	"time"
)

// StartSessionSweeper evicts idle sessions every Session.SweepInterval
// until ctx is cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context) {
	ttl := s.cfg.Session.IdleTTL
	interval := s.cfg.Session.SweepInterval
	if ttl <= 0 || interval <= 0 {
		slog.Info("session sweeper disabled", "idle_ttl", ttl, "interval", interval)
		<-ctx.Done()
		return
	}

	slog.Info("session sweeper started", "idle_ttl", ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

// runSweep performs one eviction pass.
func (s *Service) runSweep() int {
	start := time.Now()
	evicted := s.evictIdle(s.now().Add(-s.cfg.Session.IdleTTL))
	if evicted > 0 {
		slog.Info("evicted idle sessions",
			"sessions_evicted", evicted,
			"sessions_open", s.SessionCount(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return evicted
}
