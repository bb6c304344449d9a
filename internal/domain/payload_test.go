package domain_test

import (
	"testing"

	"github.com/statuspush/statuspush/internal/domain"
)

func TestTransition_Validate(t *testing.T) {
	valid := domain.Transition{
		Item: domain.WorkItem{
			ID:        "item-1",
			Title:     "Deploy",
			ProjectID: "2",
		},
		OldStatus: domain.StatusTodo,
		NewStatus: domain.StatusInProgress,
	}

	t.Run("valid transition passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("missing item id", func(t *testing.T) {
		tr := valid
		tr.Item.ID = ""
		if err := tr.Validate(); err != domain.ErrMissingItemID {
			t.Fatalf("expected ErrMissingItemID, got %v", err)
		}
	})

	t.Run("missing project", func(t *testing.T) {
		tr := valid
		tr.Item.ProjectID = ""
		if err := tr.Validate(); err != domain.ErrMissingProject {
			t.Fatalf("expected ErrMissingProject, got %v", err)
		}
	})

	t.Run("invalid old status", func(t *testing.T) {
		tr := valid
		tr.OldStatus = "archived"
		if err := tr.Validate(); err != domain.ErrInvalidStatus {
			t.Fatalf("expected ErrInvalidStatus, got %v", err)
		}
	})

	t.Run("all valid statuses accepted", func(t *testing.T) {
		statuses := []domain.Status{
			domain.StatusTodo, domain.StatusInProgress, domain.StatusReview,
			domain.StatusBlocked, domain.StatusDone, domain.StatusCancelled,
		}
		for _, s := range statuses {
			tr := valid
			tr.NewStatus = s
			if err := tr.Validate(); err != nil {
				t.Fatalf("status %q: expected no error, got %v", s, err)
			}
		}
	})
}

func TestPayload_BatchKey(t *testing.T) {
	a := domain.Payload{Channel: "project-1", EventKind: "status-changed"}
	b := domain.Payload{Channel: "project-1", EventKind: "item-completed"}
	c := domain.Payload{Channel: "project-2", EventKind: "status-changed"}

	if a.BatchKey() == b.BatchKey() {
		t.Fatal("different event kinds must produce different batch keys")
	}
	if a.BatchKey() == c.BatchKey() {
		t.Fatal("different channels must produce different batch keys")
	}
	if a.BatchKey() != (domain.Payload{Channel: "project-1", EventKind: "status-changed"}).BatchKey() {
		t.Fatal("batch key must be deterministic")
	}
}

func TestPriority_IsValid(t *testing.T) {
	for _, p := range []domain.Priority{
		domain.PriorityLow, domain.PriorityNormal, domain.PriorityHigh, domain.PriorityUrgent,
	} {
		if !p.IsValid() {
			t.Fatalf("priority %q should be valid", p)
		}
	}
	if domain.Priority("critical").IsValid() {
		t.Fatal("unknown priority should be invalid")
	}
}
