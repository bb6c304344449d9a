package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/domain"
)

// Sender delivers a single payload. The dispatcher implements it; keeping the
// per-entry send behind an interface lets a true bulk-delivery call replace
// the partition loop later without touching batching logic.
type Sender interface {
	Send(ctx context.Context, p domain.Payload) bool
}

// Config controls batching behaviour. Zero values fall back to defaults.
type Config struct {
	// Enabled false turns Add into a straight passthrough to the sender.
	Enabled bool
	// MaxSize flushes a batch immediately once reached.
	MaxSize int
	// MaxWait flushes whatever has accumulated once the oldest entry has
	// waited this long.
	MaxWait time.Duration
}

const (
	defaultMaxSize = 10
	defaultMaxWait = time.Second
)

// pending is the per-key arena slot: the accumulated entries plus the one
// outstanding flush timer. The timer is armed exactly once, when the slot is
// created, so a key can never double-flush.
type pending struct {
	entries []domain.Payload
	timer   *time.Timer
}

// Batcher accumulates payloads per (channel, event-kind) key and flushes on
// size or time threshold. It owns the batch map exclusively; flushing
// detaches the accumulated entries from the key under the lock, so adds that
// race a flush start a fresh batch instead of mutating the detached one.
// The batcher never retries: one entry failing inside a flush does not abort
// the rest, and callers needing resilience compose with the retrier.
type Batcher struct {
	mu      sync.Mutex
	batches map[string]*pending

	sender  Sender
	cfg     Config
	logger  *zap.Logger
	onFlush func(size int) // metrics hook, nil-safe via New
}

// New constructs a Batcher. onFlush is optional (nil = no-op) and is called
// once per flush with the number of entries delivered.
func New(cfg Config, sender Sender, logger *zap.Logger, onFlush func(int)) *Batcher {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if onFlush == nil {
		onFlush = func(int) {}
	}
	return &Batcher{
		batches: make(map[string]*pending),
		sender:  sender,
		cfg:     cfg,
		logger:  logger,
		onFlush: onFlush,
	}
}

// Add accumulates p under its batch key. Reaching MaxSize flushes
// synchronously on the calling goroutine; otherwise the one-shot timer armed
// at batch creation flushes after MaxWait.
func (b *Batcher) Add(ctx context.Context, p domain.Payload) {
	if !b.cfg.Enabled {
		b.sender.Send(ctx, p)
		return
	}

	key := p.BatchKey()

	b.mu.Lock()
	pb, ok := b.batches[key]
	if !ok {
		pb = &pending{}
		b.batches[key] = pb
		// First add for this key: arm the flush timer. Creation is the
		// only place a timer is armed, so at most one is outstanding.
		pb.timer = time.AfterFunc(b.cfg.MaxWait, func() {
			b.flushExpired(key)
		})
	}
	pb.entries = append(pb.entries, p)

	if len(pb.entries) >= b.cfg.MaxSize {
		entries := b.detachLocked(key)
		b.mu.Unlock()
		b.deliver(ctx, entries)
		return
	}
	b.mu.Unlock()
}

// flushExpired is the timer path. If a size-triggered flush already detached
// the key, there is nothing left and this is a no-op.
func (b *Batcher) flushExpired(key string) {
	b.mu.Lock()
	entries := b.detachLocked(key)
	b.mu.Unlock()

	if len(entries) == 0 {
		return
	}
	b.deliver(context.Background(), entries)
}

// detachLocked removes the batch for key and stops its timer, atomically with
// respect to concurrent adds. Caller must hold b.mu.
func (b *Batcher) detachLocked(key string) []domain.Payload {
	pb, ok := b.batches[key]
	if !ok {
		return nil
	}
	delete(b.batches, key)
	pb.timer.Stop()
	return pb.entries
}

// deliver sends a detached batch. A single entry goes straight to the sender.
// Larger batches are partitioned by channel — a no-op while the batch key
// already fixes the channel, but kept general for composite keys — and each
// partition is dispatched on its own goroutine with FIFO order inside it.
func (b *Batcher) deliver(ctx context.Context, entries []domain.Payload) {
	b.onFlush(len(entries))

	if len(entries) == 1 {
		b.sender.Send(ctx, entries[0])
		return
	}

	partitions := make(map[string][]domain.Payload)
	for _, p := range entries {
		partitions[p.Channel] = append(partitions[p.Channel], p)
	}

	b.logger.Debug("flushing batch",
		zap.Int("entries", len(entries)),
		zap.Int("partitions", len(partitions)),
	)

	var wg sync.WaitGroup
	for channel, part := range partitions {
		wg.Add(1)
		go func(channel string, part []domain.Payload) {
			defer wg.Done()
			for _, p := range part {
				if !b.sender.Send(ctx, p) {
					b.logger.Warn("batch entry not delivered",
						zap.String("channel", channel),
						zap.String("event_kind", p.EventKind),
						zap.String("payload_id", p.ID),
					)
				}
			}
		}(channel, part)
	}
	wg.Wait()
}

// PendingKeys returns the number of keys currently accumulating.
// Used by the metrics snapshot handler.
func (b *Batcher) PendingKeys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}
