package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/domain"
	"github.com/statuspush/statuspush/internal/provider"
	"github.com/statuspush/statuspush/internal/ratelimit"
)

// Drop reasons reported through Hooks.OnDropped.
const (
	DropRateLimited   = "rate_limited"
	DropProviderError = "provider_error"
)

// Hooks carries the outcome callbacks injected by main. Using a struct keeps
// the dispatcher free of metrics and persistence imports.
type Hooks struct {
	OnDelivered func(p domain.Payload, latency time.Duration)
	OnDropped   func(p domain.Payload, reason string)
}

// Dispatcher is the single-payload send path: admission check, then one
// provider call. It never retries and never queues; a rate-limited payload
// is dropped silently and a provider failure is surfaced as a false return
// for the caller to compose with the retrier if it needs resilience.
type Dispatcher struct {
	limiter *ratelimit.Limiter
	prov    provider.Provider
	logger  *zap.Logger
	hooks   Hooks
}

// New constructs a Dispatcher. Hook fields are optional (nil = no-op).
func New(limiter *ratelimit.Limiter, prov provider.Provider, logger *zap.Logger, hooks Hooks) *Dispatcher {
	if hooks.OnDelivered == nil {
		hooks.OnDelivered = func(domain.Payload, time.Duration) {}
	}
	if hooks.OnDropped == nil {
		hooks.OnDropped = func(domain.Payload, string) {}
	}
	return &Dispatcher{limiter: limiter, prov: prov, logger: logger, hooks: hooks}
}

// Send delivers one payload. Returns true iff the provider reported success.
func (d *Dispatcher) Send(ctx context.Context, p domain.Payload) bool {
	key := admissionKey(p)

	if !d.limiter.Allow(key) {
		d.logger.Debug("payload rate limited",
			zap.String("key", key),
			zap.String("payload_id", p.ID),
		)
		d.hooks.OnDropped(p, DropRateLimited)
		return false
	}

	start := time.Now()
	if err := d.prov.Trigger(ctx, p.Channel, p.EventKind, p.Data); err != nil {
		d.logger.Warn("provider trigger failed",
			zap.String("channel", p.Channel),
			zap.String("event_kind", p.EventKind),
			zap.String("payload_id", p.ID),
			zap.Error(err),
		)
		d.hooks.OnDropped(p, DropProviderError)
		return false
	}

	d.hooks.OnDelivered(p, time.Since(start))
	return true
}

// admissionKey scopes rate limiting per subject when one is known,
// otherwise per channel.
func admissionKey(p domain.Payload) string {
	if p.SubjectID != "" {
		return "subject:" + p.SubjectID
	}
	return "channel:" + p.Channel
}
