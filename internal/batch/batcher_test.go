package batch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/batch"
	"github.com/statuspush/statuspush/internal/domain"
)

// recordingSender captures every payload it is asked to send.
type recordingSender struct {
	mu   sync.Mutex
	sent []domain.Payload
	ok   bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{ok: true}
}

func (s *recordingSender) Send(_ context.Context, p domain.Payload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, p)
	return s.ok
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSender) snapshot() []domain.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Payload, len(s.sent))
	copy(out, s.sent)
	return out
}

func payload(id, channel, kind string) domain.Payload {
	return domain.Payload{
		ID:        id,
		Channel:   channel,
		EventKind: kind,
		Priority:  domain.PriorityNormal,
	}
}

// flushCounter counts flushes and their sizes.
type flushCounter struct {
	mu    sync.Mutex
	sizes []int
}

func (f *flushCounter) hook() func(int) {
	return func(n int) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sizes = append(f.sizes, n)
	}
}

func (f *flushCounter) flushes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.sizes))
	copy(out, f.sizes)
	return out
}

func TestBatcher_SizeTrigger(t *testing.T) {
	sender := newRecordingSender()
	var fc flushCounter
	b := batch.New(batch.Config{Enabled: true, MaxSize: 10, MaxWait: time.Second}, sender, zap.NewNop(), fc.hook())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		b.Add(ctx, payload("p", "c2", "e2"))
	}

	// Size flush is synchronous, so all sends completed before Add returned.
	if got := sender.count(); got != 10 {
		t.Fatalf("expected 10 sends, got %d", got)
	}
	if flushes := fc.flushes(); len(flushes) != 1 || flushes[0] != 10 {
		t.Fatalf("expected exactly one flush of 10, got %v", flushes)
	}
	if b.PendingKeys() != 0 {
		t.Fatalf("expected key to be destroyed after flush, %d pending", b.PendingKeys())
	}

	// Wait past the timer deadline: the cancelled timer must not fire a
	// second flush for the same set.
	time.Sleep(1200 * time.Millisecond)
	if got := sender.count(); got != 10 {
		t.Fatalf("timer double-flushed: %d sends after wait", got)
	}
	if flushes := fc.flushes(); len(flushes) != 1 {
		t.Fatalf("expected still one flush, got %v", flushes)
	}
}

func TestBatcher_TimeTrigger(t *testing.T) {
	sender := newRecordingSender()
	var fc flushCounter
	b := batch.New(batch.Config{Enabled: true, MaxSize: 10, MaxWait: 100 * time.Millisecond}, sender, zap.NewNop(), fc.hook())

	b.Add(context.Background(), payload("solo", "c", "e"))

	if got := sender.count(); got != 0 {
		t.Fatalf("expected no sends before timer fires, got %d", got)
	}

	time.Sleep(250 * time.Millisecond)

	if got := sender.count(); got != 1 {
		t.Fatalf("expected exactly 1 send after timer, got %d", got)
	}
	if flushes := fc.flushes(); len(flushes) != 1 || flushes[0] != 1 {
		t.Fatalf("expected one flush of 1, got %v", flushes)
	}
}

func TestBatcher_TimeTriggerBelowSizeThreshold(t *testing.T) {
	sender := newRecordingSender()
	var fc flushCounter
	b := batch.New(batch.Config{Enabled: true, MaxSize: 10, MaxWait: 100 * time.Millisecond}, sender, zap.NewNop(), fc.hook())
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		b.Add(ctx, payload("p", "c", "e"))
	}

	time.Sleep(250 * time.Millisecond)

	if got := sender.count(); got != 9 {
		t.Fatalf("expected 9 sends, got %d", got)
	}
	if flushes := fc.flushes(); len(flushes) != 1 || flushes[0] != 9 {
		t.Fatalf("expected exactly one flush of 9, got %v", flushes)
	}
}

func TestBatcher_DisabledPassthrough(t *testing.T) {
	sender := newRecordingSender()
	var fc flushCounter
	b := batch.New(batch.Config{Enabled: false}, sender, zap.NewNop(), fc.hook())

	b.Add(context.Background(), payload("p", "c", "e"))

	if got := sender.count(); got != 1 {
		t.Fatalf("expected direct send, got %d sends", got)
	}
	if b.PendingKeys() != 0 {
		t.Fatal("passthrough must not create a batch")
	}
	if len(fc.flushes()) != 0 {
		t.Fatal("passthrough must not count as a flush")
	}
}

func TestBatcher_KeysAccumulateIndependently(t *testing.T) {
	sender := newRecordingSender()
	b := batch.New(batch.Config{Enabled: true, MaxSize: 3, MaxWait: time.Minute}, sender, zap.NewNop(), nil)
	ctx := context.Background()

	// Same channel, different event kinds: separate batches.
	b.Add(ctx, payload("a1", "c", "e1"))
	b.Add(ctx, payload("a2", "c", "e1"))
	b.Add(ctx, payload("b1", "c", "e2"))

	if b.PendingKeys() != 2 {
		t.Fatalf("expected 2 pending keys, got %d", b.PendingKeys())
	}
	if got := sender.count(); got != 0 {
		t.Fatalf("expected no flush yet, got %d sends", got)
	}

	// Third add on e1 hits the size threshold; e2 stays pending.
	b.Add(ctx, payload("a3", "c", "e1"))
	if got := sender.count(); got != 3 {
		t.Fatalf("expected 3 sends from the e1 flush, got %d", got)
	}
	if b.PendingKeys() != 1 {
		t.Fatalf("expected e2 still pending, got %d keys", b.PendingKeys())
	}
}

func TestBatcher_FIFOWithinFlush(t *testing.T) {
	sender := newRecordingSender()
	b := batch.New(batch.Config{Enabled: true, MaxSize: 5, MaxWait: time.Minute}, sender, zap.NewNop(), nil)
	ctx := context.Background()

	ids := []string{"1", "2", "3", "4", "5"}
	for _, id := range ids {
		b.Add(ctx, payload(id, "c", "e"))
	}

	sent := sender.snapshot()
	if len(sent) != len(ids) {
		t.Fatalf("expected %d sends, got %d", len(ids), len(sent))
	}
	for i, id := range ids {
		if sent[i].ID != id {
			t.Fatalf("position %d: expected id %s, got %s", i, id, sent[i].ID)
		}
	}
}

func TestBatcher_FailureDoesNotAbortFlush(t *testing.T) {
	sender := newRecordingSender()
	sender.ok = false // every send fails
	b := batch.New(batch.Config{Enabled: true, MaxSize: 4, MaxWait: time.Minute}, sender, zap.NewNop(), nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		b.Add(ctx, payload("p", "c", "e"))
	}

	// All four sends were still attempted despite each one failing.
	if got := sender.count(); got != 4 {
		t.Fatalf("expected 4 attempted sends, got %d", got)
	}
}

func TestBatcher_AddDuringFlushStartsNewBatch(t *testing.T) {
	sender := newRecordingSender()
	b := batch.New(batch.Config{Enabled: true, MaxSize: 2, MaxWait: time.Minute}, sender, zap.NewNop(), nil)
	ctx := context.Background()

	b.Add(ctx, payload("1", "c", "e"))
	b.Add(ctx, payload("2", "c", "e")) // size flush, key destroyed

	// The next add must open a fresh batch rather than racing the flushed one.
	b.Add(ctx, payload("3", "c", "e"))
	if b.PendingKeys() != 1 {
		t.Fatalf("expected a new pending batch, got %d keys", b.PendingKeys())
	}
	if got := sender.count(); got != 2 {
		t.Fatalf("expected only the flushed pair sent, got %d", got)
	}
}

func TestBatcher_ConcurrentAdds(t *testing.T) {
	sender := newRecordingSender()
	b := batch.New(batch.Config{Enabled: true, MaxSize: 10, MaxWait: 50 * time.Millisecond}, sender, zap.NewNop(), nil)
	ctx := context.Background()

	const producers = 8
	const perProducer = 25

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				b.Add(ctx, payload("p", "c", "e"))
			}
		}()
	}
	wg.Wait()

	// Let any remainder flush on the timer.
	time.Sleep(200 * time.Millisecond)

	if got := sender.count(); got != producers*perProducer {
		t.Fatalf("expected %d sends, got %d (lost or duplicated entries)", producers*perProducer, got)
	}
	if b.PendingKeys() != 0 {
		t.Fatalf("expected no pending batches, got %d", b.PendingKeys())
	}
}
