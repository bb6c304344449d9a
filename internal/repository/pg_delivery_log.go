package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statuspush/statuspush/internal/domain"
)

type pgDeliveryLog struct {
	pool *pgxpool.Pool
}

// NewPgDeliveryLog returns a DeliveryLogRepository backed by PostgreSQL.
func NewPgDeliveryLog(pool *pgxpool.Pool) DeliveryLogRepository {
	return &pgDeliveryLog{pool: pool}
}

func (r *pgDeliveryLog) Record(ctx context.Context, rec *domain.DeliveryRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO delivery_log
			(id, channel, event_kind, priority, state, reason, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.Channel, rec.EventKind, rec.Priority, rec.State, rec.Reason,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

func (r *pgDeliveryLog) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE delivery_log
		SET state = 'delivered', reason = NULL, updated_at = $1
		WHERE id = $2`, at, id)
	return err
}

func (r *pgDeliveryLog) MarkDropped(ctx context.Context, id, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE delivery_log
		SET state = 'dropped', reason = $1, updated_at = $2
		WHERE id = $3`, reason, time.Now().UTC(), id)
	return err
}

func (r *pgDeliveryLog) List(ctx context.Context, f domain.DeliveryFilter) ([]*domain.DeliveryRecord, int, error) {
	where, args := buildDeliveryWhere(f)
	offset := (f.Page - 1) * f.Limit

	// Count total matching rows for pagination metadata.
	var total int
	countQuery := "SELECT COUNT(*) FROM delivery_log" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count delivery records: %w", err)
	}

	// Append pagination args after the WHERE args.
	args = append(args, f.Limit, offset)
	limitPlaceholder := fmt.Sprintf("$%d", len(args)-1)
	offsetPlaceholder := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT id, channel, event_kind, priority, state, reason, created_at, updated_at
		FROM delivery_log%s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s`, where, limitPlaceholder, offsetPlaceholder)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list delivery records: %w", err)
	}
	defer rows.Close()

	var records []*domain.DeliveryRecord
	for rows.Next() {
		rec, err := scanDeliveryRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// ---- helpers ----

func scanDeliveryRecord(row pgx.Row) (*domain.DeliveryRecord, error) {
	var rec domain.DeliveryRecord
	err := row.Scan(
		&rec.ID, &rec.Channel, &rec.EventKind, &rec.Priority,
		&rec.State, &rec.Reason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// buildDeliveryWhere builds a parameterised WHERE clause from a DeliveryFilter.
func buildDeliveryWhere(f domain.DeliveryFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.State != nil {
		add("state = $%d", *f.State)
	}
	if f.Channel != nil {
		add("channel = $%d", *f.Channel)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
