package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/batch"
	"github.com/statuspush/statuspush/internal/domain"
	"github.com/statuspush/statuspush/internal/repository"
	"github.com/statuspush/statuspush/internal/retry"
	"github.com/statuspush/statuspush/internal/template"
)

// IngestService is the pipeline's front door. It validates a transition,
// maps it to a payload, records acceptance in the delivery log, and routes
// the payload: urgent priority goes through the retrier on a background
// goroutine, everything else accumulates in the batcher. HTTP handlers
// depend on this service, not on the pipeline components directly.
type IngestService struct {
	batcher *batch.Batcher
	retrier *retry.Retrier
	log     repository.DeliveryLogRepository
	logger  *zap.Logger

	onAccepted func(p domain.Payload) // metrics hook, nil-safe via New
}

// New constructs an IngestService. onAccepted is optional (nil = no-op).
func New(
	batcher *batch.Batcher,
	retrier *retry.Retrier,
	log repository.DeliveryLogRepository,
	logger *zap.Logger,
	onAccepted func(domain.Payload),
) *IngestService {
	if onAccepted == nil {
		onAccepted = func(domain.Payload) {}
	}
	return &IngestService{
		batcher:    batcher,
		retrier:    retrier,
		log:        log,
		logger:     logger,
		onAccepted: onAccepted,
	}
}

// Accept runs one transition through the pipeline front door. The returned
// Ack means the event was accepted (queued or handed to the retrier), not
// that it was delivered — delivery is asynchronous and best-effort.
func (s *IngestService) Accept(ctx context.Context, t domain.Transition) (*domain.Ack, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	p, ok := template.MapTransition(t.OldStatus, t.NewStatus, t.Item)
	if !ok {
		return &domain.Ack{Filtered: true}, nil
	}

	// Audit failure must not block delivery; the log is observational.
	now := time.Now().UTC()
	if err := s.log.Record(ctx, &domain.DeliveryRecord{
		ID:        p.ID,
		Channel:   p.Channel,
		EventKind: p.EventKind,
		Priority:  p.Priority,
		State:     domain.DeliveryAccepted,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		s.logger.Warn("failed to record delivery", zap.String("payload_id", p.ID), zap.Error(err))
	}

	s.onAccepted(*p)

	if p.Priority == domain.PriorityUrgent {
		// Detached context: backoff spans several seconds and must not be
		// cut short when the triggering HTTP request completes.
		go s.retrier.SendWithRetry(context.Background(), *p)
	} else {
		s.batcher.Add(ctx, *p)
	}

	return &domain.Ack{Channel: p.Channel, Event: p.EventKind, Priority: p.Priority}, nil
}

// ListDeliveries exposes the paginated audit log.
func (s *IngestService) ListDeliveries(ctx context.Context, f domain.DeliveryFilter) ([]*domain.DeliveryRecord, int, error) {
	return s.log.List(ctx, f)
}
