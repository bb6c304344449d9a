package domain

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a tracked work item.
// Transitions between statuses are what the pipeline turns into push events.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusBlocked, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Priority controls which delivery path a payload takes.
// Urgent payloads bypass batching and go through the retrier.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Payload is the immutable unit of work flowing through the pipeline.
// Data is serialized once at construction time; components share payloads
// by value and never mutate them.
type Payload struct {
	ID        string          `json:"id"`
	Channel   string          `json:"channel"`
	EventKind string          `json:"event_kind"`
	Data      json.RawMessage `json:"data"`
	Priority  Priority        `json:"priority"`
	SubjectID string          `json:"subject_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

// BatchKey scopes batching to one (channel, event-kind) pair.
// NUL is not valid in channel or event names, so the key cannot collide.
func (p Payload) BatchKey() string {
	return p.Channel + "\x00" + p.EventKind
}

// WorkItem is the domain record carried on an inbound transition.
// The pipeline only ever sees it through the template mapping.
type WorkItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ProjectID  string `json:"project_id"`
	AssigneeID string `json:"assignee_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// Transition is the inbound trigger body: a work item moving between statuses.
type Transition struct {
	Item      WorkItem `json:"item"`
	OldStatus Status   `json:"old_status"`
	NewStatus Status   `json:"new_status"`
}

func (t *Transition) Validate() error {
	if t.Item.ID == "" {
		return ErrMissingItemID
	}
	if t.Item.ProjectID == "" {
		return ErrMissingProject
	}
	if !t.OldStatus.IsValid() || !t.NewStatus.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Ack is returned by the ingest service once a transition has been accepted
// into the pipeline. Acceptance does not imply delivery.
type Ack struct {
	Channel  string   `json:"channel,omitempty"`
	Event    string   `json:"event,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Filtered bool     `json:"filtered,omitempty"`
}

// DeliveryState is the audit state of a payload in the delivery log.
type DeliveryState string

const (
	DeliveryAccepted  DeliveryState = "accepted"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryDropped   DeliveryState = "dropped"
)

func (s DeliveryState) IsValid() bool {
	switch s {
	case DeliveryAccepted, DeliveryDelivered, DeliveryDropped:
		return true
	}
	return false
}

// DeliveryRecord is one row of the append-only delivery audit log.
// It is never used to re-drive delivery; best-effort semantics stay intact.
type DeliveryRecord struct {
	ID        string        `json:"id"`
	Channel   string        `json:"channel"`
	EventKind string        `json:"event_kind"`
	Priority  Priority      `json:"priority"`
	State     DeliveryState `json:"state"`
	Reason    *string       `json:"reason,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// DeliveryFilter holds query parameters for paginated delivery-log listing.
type DeliveryFilter struct {
	State   *DeliveryState
	Channel *string
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}
