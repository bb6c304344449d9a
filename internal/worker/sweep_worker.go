package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/ratelimit"
)

// SweepWorker periodically reclaims idle rate-limit buckets. Sweeping is
// purely memory hygiene: a key that reappears after being swept starts with
// a fresh, full bucket.
type SweepWorker struct {
	limiter  *ratelimit.Limiter
	interval time.Duration
	maxIdle  time.Duration
	logger   *zap.Logger
}

func NewSweepWorker(
	limiter *ratelimit.Limiter,
	interval, maxIdle time.Duration,
	logger *zap.Logger,
) *SweepWorker {
	return &SweepWorker{limiter: limiter, interval: interval, maxIdle: maxIdle, logger: logger}
}

// Run ticks every interval and sweeps idle buckets.
// Stops cleanly when ctx is cancelled.
func (sw *SweepWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("sweep worker started",
		zap.Duration("interval", sw.interval),
		zap.Duration("max_idle", sw.maxIdle),
	)

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("sweep worker stopping")
			return
		case <-ticker.C:
			if removed := sw.limiter.Sweep(sw.maxIdle); removed > 0 {
				sw.logger.Info("swept idle rate-limit buckets", zap.Int("removed", removed))
			}
		}
	}
}
