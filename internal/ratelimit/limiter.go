package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Config bounds admission per key. Zero values fall back to defaults.
type Config struct {
	// Capacity is the token bucket size. A full bucket refills over 60s.
	Capacity int
	// MaxPerMinute and MaxPerHour are fixed-window counters. The windows
	// restart on the first check after expiry, not on a sliding boundary,
	// so a burst straddling a boundary can admit up to ~2x the nominal
	// rate. That behaviour is intentional; do not replace it with a
	// sliding log without changing the admission contract.
	MaxPerMinute int
	MaxPerHour   int
}

const (
	defaultCapacity     = 10
	defaultMaxPerMinute = 60
	defaultMaxPerHour   = 1000
)

// bucket is the per-key admission state. Invariant: 0 <= tokens <= capacity.
type bucket struct {
	tokens      float64
	lastRefill  time.Time
	minuteCount int
	minuteStart time.Time
	hourCount   int
	hourStart   time.Time
	lastSeen    time.Time
}

// Limiter is a per-key admission controller combining a refilling token
// bucket with fixed minute and hour windows. Buckets are created lazily on
// first check and reclaimed by Sweep once idle. All state lives behind one
// mutex, so admission decisions are linearizable per key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     Config

	now func() time.Time // injectable clock for tests
}

func New(cfg Config) *Limiter {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.MaxPerMinute <= 0 {
		cfg.MaxPerMinute = defaultMaxPerMinute
	}
	if cfg.MaxPerHour <= 0 {
		cfg.MaxPerHour = defaultMaxPerHour
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Allow reports whether one event may be admitted for key. On admission it
// consumes a token and increments both window counters; on denial it mutates
// nothing. Unseen keys start with a full bucket.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens:      float64(l.cfg.Capacity),
			lastRefill:  now,
			minuteStart: now,
			hourStart:   now,
		}
		l.buckets[key] = b
	}
	b.lastSeen = now

	// Refill: a full bucket's worth of tokens accrues over 60s regardless
	// of traffic shape. Whole tokens only; the remainder stays pending by
	// leaving lastRefill untouched until at least one token has accrued.
	elapsed := now.Sub(b.lastRefill)
	if add := math.Floor(elapsed.Seconds() * float64(l.cfg.Capacity) / 60.0); add > 0 {
		b.tokens = math.Min(float64(l.cfg.Capacity), b.tokens+add)
		b.lastRefill = now
	}

	// Fixed-window rollover, restarted only on the first check after expiry.
	if now.Sub(b.minuteStart) > time.Minute {
		b.minuteCount = 0
		b.minuteStart = now
	}
	if now.Sub(b.hourStart) > time.Hour {
		b.hourCount = 0
		b.hourStart = now
	}

	if b.tokens < 1 || b.minuteCount >= l.cfg.MaxPerMinute || b.hourCount >= l.cfg.MaxPerHour {
		return false
	}

	b.tokens--
	b.minuteCount++
	b.hourCount++
	return true
}

// Sweep drops buckets that have not been checked for longer than maxIdle and
// returns how many were removed. Purely memory hygiene: a reappearing key
// simply gets a fresh, full bucket.
func (l *Limiter) Sweep(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > maxIdle {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live buckets. Used by the metrics snapshot.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
