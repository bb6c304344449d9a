package template

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/statuspush/statuspush/internal/domain"
)

// Event kinds emitted for work-item transitions.
const (
	EventStatusChanged = "status-changed"
	EventItemCompleted = "item-completed"
	EventItemBlocked   = "item-blocked"
)

// eventData is the serialized payload body. A struct rather than a map so
// the field order in the JSON is fixed at compile time.
type eventData struct {
	ItemID    string        `json:"item_id"`
	Title     string        `json:"title"`
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
	ChangedAt string        `json:"changed_at"`
}

// MapTransition turns a work-item status transition into a push payload.
// Returns (nil, false) for transitions that should not notify: no-op
// transitions and moves into cancelled. The pipeline core receives input
// exclusively through this mapping and knows nothing about work items.
func MapTransition(oldStatus, newStatus domain.Status, item domain.WorkItem) (*domain.Payload, bool) {
	if oldStatus == newStatus {
		return nil, false
	}
	if newStatus == domain.StatusCancelled {
		return nil, false
	}

	kind := EventStatusChanged
	priority := domain.PriorityNormal
	switch newStatus {
	case domain.StatusDone:
		kind = EventItemCompleted
		priority = domain.PriorityHigh
	case domain.StatusBlocked:
		kind = EventItemBlocked
		priority = domain.PriorityUrgent
	}

	data, err := json.Marshal(eventData{
		ItemID:    item.ID,
		Title:     item.Title,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, false
	}

	return &domain.Payload{
		ID:        uuid.New().String(),
		Channel:   "project-" + item.ProjectID,
		EventKind: kind,
		Data:      data,
		Priority:  priority,
		SubjectID: item.AssigneeID,
		SessionID: item.SessionID,
	}, true
}
