package bootstrap

import (
	"context"
	"time"

	"github.com/wolfman30/cybersathi/pkg/logging"
)

// Sweeper drops idle conversation sessions.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// Purger deletes dedupe markers older than ttl.
type Purger interface {
	Purge(ctx context.Context, ttl time.Duration) (int64, error)
}

// RunSessionSweeper sweeps every interval until ctx is done. A non-positive
// idle disables sweeping and returns immediately.
func RunSessionSweeper(ctx context.Context, s Sweeper, idle, interval time.Duration, logger *logging.Logger) {
	if s == nil || idle <= 0 {
		return
	}
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = idle / 4
	}
	if interval < time.Second {
		interval = time.Second
	}
	logger = logger.Component("session-sweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(idle); n > 0 {
				logger.Info("idle sessions dropped", "count", n)
			}
		}
	}
}

// RunProcessedPurge trims the processed_messages table once per interval.
func RunProcessedPurge(ctx context.Context, p Purger, ttl, interval time.Duration, logger *logging.Logger) {
	if p == nil || ttl <= 0 {
		return
	}
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	logger = logger.Component("dedupe-purge")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx, ttl)
			if err != nil {
				logger.Warn("purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("processed markers purged", "count", n)
			}
		}
	}
}
