package template_test

import (
	"encoding/json"
	"testing"

	"github.com/statuspush/statuspush/internal/domain"
	"github.com/statuspush/statuspush/internal/template"
)

var item = domain.WorkItem{
	ID:         "item-42",
	Title:      "Ship the release",
	ProjectID:  "7",
	AssigneeID: "user-3",
	SessionID:  "sess-9",
}

func TestMapTransition_StatusChanged(t *testing.T) {
	p, ok := template.MapTransition(domain.StatusTodo, domain.StatusInProgress, item)
	if !ok {
		t.Fatal("expected a payload")
	}
	if p.EventKind != template.EventStatusChanged {
		t.Fatalf("expected status-changed, got %s", p.EventKind)
	}
	if p.Priority != domain.PriorityNormal {
		t.Fatalf("expected normal priority, got %s", p.Priority)
	}
	if p.Channel != "project-7" {
		t.Fatalf("expected channel project-7, got %s", p.Channel)
	}
	if p.SubjectID != "user-3" || p.SessionID != "sess-9" {
		t.Fatalf("subject/session not carried: %+v", p)
	}
	if p.ID == "" {
		t.Fatal("expected a generated payload ID")
	}

	var data struct {
		ItemID    string `json:"item_id"`
		OldStatus string `json:"old_status"`
		NewStatus string `json:"new_status"`
	}
	if err := json.Unmarshal(p.Data, &data); err != nil {
		t.Fatalf("data is not valid JSON: %v", err)
	}
	if data.ItemID != "item-42" || data.OldStatus != "todo" || data.NewStatus != "in_progress" {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestMapTransition_Completed(t *testing.T) {
	p, ok := template.MapTransition(domain.StatusReview, domain.StatusDone, item)
	if !ok {
		t.Fatal("expected a payload")
	}
	if p.EventKind != template.EventItemCompleted {
		t.Fatalf("expected item-completed, got %s", p.EventKind)
	}
	if p.Priority != domain.PriorityHigh {
		t.Fatalf("expected high priority, got %s", p.Priority)
	}
}

func TestMapTransition_Blocked(t *testing.T) {
	p, ok := template.MapTransition(domain.StatusInProgress, domain.StatusBlocked, item)
	if !ok {
		t.Fatal("expected a payload")
	}
	if p.EventKind != template.EventItemBlocked {
		t.Fatalf("expected item-blocked, got %s", p.EventKind)
	}
	if p.Priority != domain.PriorityUrgent {
		t.Fatalf("expected urgent priority, got %s", p.Priority)
	}
}

func TestMapTransition_Filtered(t *testing.T) {
	tests := []struct {
		name     string
		from, to domain.Status
	}{
		{"no-op transition", domain.StatusTodo, domain.StatusTodo},
		{"cancellation", domain.StatusInProgress, domain.StatusCancelled},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if p, ok := template.MapTransition(tc.from, tc.to, item); ok {
				t.Fatalf("expected no payload, got %+v", p)
			}
		})
	}
}

func TestMapTransition_NoAssignee(t *testing.T) {
	anon := item
	anon.AssigneeID = ""

	p, ok := template.MapTransition(domain.StatusTodo, domain.StatusReview, anon)
	if !ok {
		t.Fatal("expected a payload")
	}
	if p.SubjectID != "" {
		t.Fatalf("expected empty subject, got %q", p.SubjectID)
	}
}
