package domain

import (
	"encoding/json"
	"testing"
)

func TestDiff(t *testing.T) {
	base := func() *State {
		s := NewState("w1", "", "q")
		s.CurrentNode = "router"
		s.Status = StatusRouting
		s.Messages = []Message{{Role: RoleUser, Content: "q"}}
		s.History = []string{"decode"}
		return s
	}

	t.Run("initial load", func(t *testing.T) {
		d := Diff(nil, base())
		if d == nil || d.Status == nil || *d.Status != StatusRouting {
			t.Fatalf("expected status in initial diff, got %+v", d)
		}
		if d.Messages == nil || len(d.Messages.Appended) != 1 {
			t.Errorf("expected the user message appended, got %+v", d.Messages)
		}
	})

	t.Run("no changes", func(t *testing.T) {
		if d := Diff(base(), base()); d != nil {
			t.Errorf("expected nil diff, got %+v", d)
		}
	})

	t.Run("replace last and advance", func(t *testing.T) {
		old := base()
		next := old.Clone()
		next.Messages[0].Content = "WARN q"
		next.Messages = append(next.Messages, Message{Role: RoleAssistant, Content: "a"})
		next.History = append(next.History, "router")
		next.IterationCount = 1

		d := Diff(old, next)
		if d == nil {
			t.Fatal("expected diff")
		}
		if !d.Messages.ReplacedLast || len(d.Messages.Appended) != 1 {
			t.Errorf("unexpected message delta: %+v", d.Messages)
		}
		if d.IterationCount == nil || *d.IterationCount != 1 {
			t.Errorf("iteration not reported: %+v", d.IterationCount)
		}
		if d.History == nil || d.History.Appended[0] != "router" {
			t.Errorf("history not reported: %+v", d.History)
		}
		if d.Status != nil {
			t.Errorf("status should be unchanged, got %v", *d.Status)
		}

		raw, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var round map[string]any
		if err := json.Unmarshal(raw, &round); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if _, ok := round["risk_score"]; ok {
			t.Error("unchanged risk score serialized")
		}
	})

	t.Run("suspension", func(t *testing.T) {
		old := base()
		next := old.Clone()
		next.PendingApproval = &PendingApproval{ToolCall: ToolCall{Name: "send_email"}}
		d := Diff(old, next)
		if d == nil || d.Suspended == nil || !*d.Suspended {
			t.Fatalf("expected suspension in diff, got %+v", d)
		}
	})
}
