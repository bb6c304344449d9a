package repository

import (
	"context"
	"time"

	"github.com/statuspush/statuspush/internal/domain"
)

// DeliveryLogRepository defines persistence for the append-only delivery
// audit log. The pgx implementation is in pg_delivery_log.go; tests use a
// hand-written mock (mock_delivery_log.go).
//
// The log is observational only: nothing is ever re-driven from it, so
// best-effort delivery semantics are unaffected by its contents.
type DeliveryLogRepository interface {
	Record(ctx context.Context, rec *domain.DeliveryRecord) error
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkDropped(ctx context.Context, id, reason string) error
	List(ctx context.Context, filter domain.DeliveryFilter) ([]*domain.DeliveryRecord, int, error)
}
