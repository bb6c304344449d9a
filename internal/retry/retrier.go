package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/domain"
)

// Sender is the single-shot delivery primitive the retrier wraps.
// Satisfied by dispatch.Dispatcher.
type Sender interface {
	Send(ctx context.Context, p domain.Payload) bool
}

// Config bounds the retry loop. Zero values fall back to defaults.
type Config struct {
	// MaxAttempts is the number of retries after the initial attempt.
	MaxAttempts int
	// InitialDelay is the wait before the first retry; each subsequent
	// wait is multiplied by Multiplier.
	InitialDelay time.Duration
	Multiplier   float64
}

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = time.Second
	defaultMultiplier   = 2.0
)

// Retrier wraps a Sender with bounded exponential backoff. After the budget
// is exhausted the payload is dropped; there is no dead-letter sink, by
// decision (best-effort delivery).
type Retrier struct {
	sender Sender
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, sender Sender, logger *zap.Logger) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = defaultMultiplier
	}
	return &Retrier{sender: sender, cfg: cfg, logger: logger}
}

// SendWithRetry attempts delivery up to MaxAttempts+1 times, sleeping
// InitialDelay*Multiplier^attempt between attempts. Returns false once the
// budget is exhausted or ctx is cancelled while backing off.
func (r *Retrier) SendWithRetry(ctx context.Context, p domain.Payload) bool {
	delay := r.cfg.InitialDelay

	for attempt := 0; ; attempt++ {
		if r.sender.Send(ctx, p) {
			if attempt > 0 {
				r.logger.Info("delivered after retry",
					zap.String("payload_id", p.ID),
					zap.Int("attempt", attempt),
				)
			}
			return true
		}

		if attempt >= r.cfg.MaxAttempts {
			r.logger.Warn("retry budget exhausted, dropping payload",
				zap.String("payload_id", p.ID),
				zap.String("channel", p.Channel),
				zap.Int("attempts", attempt+1),
			)
			return false
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
	}
}
