package repository

import (
	"context"
	"sync"
	"time"

	"github.com/statuspush/statuspush/internal/domain"
)

// MockDeliveryLog is a hand-written, in-memory implementation of
// DeliveryLogRepository used in unit tests. No mock-generation library needed.
type MockDeliveryLog struct {
	mu      sync.RWMutex
	records map[string]*domain.DeliveryRecord

	// Optional error override — set in tests to simulate failure paths.
	RecordErr error
}

func NewMockDeliveryLog() *MockDeliveryLog {
	return &MockDeliveryLog{records: make(map[string]*domain.DeliveryRecord)}
}

func (m *MockDeliveryLog) Record(_ context.Context, rec *domain.DeliveryRecord) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.ID] = &clone
	return nil
}

func (m *MockDeliveryLog) MarkDelivered(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		rec.State = domain.DeliveryDelivered
		rec.Reason = nil
		rec.UpdatedAt = at
	}
	return nil
}

func (m *MockDeliveryLog) MarkDropped(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		rec.State = domain.DeliveryDropped
		rec.Reason = &reason
		rec.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockDeliveryLog) List(_ context.Context, f domain.DeliveryFilter) ([]*domain.DeliveryRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.DeliveryRecord
	for _, rec := range m.records {
		if f.State != nil && rec.State != *f.State {
			continue
		}
		if f.Channel != nil && rec.Channel != *f.Channel {
			continue
		}
		clone := *rec
		result = append(result, &clone)
	}
	return result, len(result), nil
}

// Get returns the stored record for id, or nil. Test helper only.
func (m *MockDeliveryLog) Get(id string) *domain.DeliveryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.records[id]; ok {
		clone := *rec
		return &clone
	}
	return nil
}
